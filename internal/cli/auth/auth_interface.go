package auth

// TokenStore defines the interface for refresh credential storage.
// This allows us to mock the keyring in tests
type TokenStore interface {
	SaveToken(serverAddr, token string) error
	LoadToken(serverAddr string) (string, error)
	DeleteToken(serverAddr string) error
}

// defaultTokenStore implements TokenStore using the OS keyring
type defaultTokenStore struct{}

var Default TokenStore = &defaultTokenStore{}

func (d *defaultTokenStore) SaveToken(serverAddr, token string) error {
	return SaveToken(serverAddr, token)
}

func (d *defaultTokenStore) LoadToken(serverAddr string) (string, error) {
	return LoadToken(serverAddr)
}

func (d *defaultTokenStore) DeleteToken(serverAddr string) error {
	return DeleteToken(serverAddr)
}
