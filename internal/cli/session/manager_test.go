package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stockd-dev/stockd/internal/cli/client"
)

// mockTokenStore is a simple in-memory token store for testing
type mockTokenStore struct {
	mu     sync.Mutex
	tokens map[string]string
}

func newMockTokenStore() *mockTokenStore {
	return &mockTokenStore{
		tokens: make(map[string]string),
	}
}

func (m *mockTokenStore) SaveToken(serverAddr, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[serverAddr] = token
	return nil
}

func (m *mockTokenStore) LoadToken(serverAddr string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	token, exists := m.tokens[serverAddr]
	if !exists {
		return "", fmt.Errorf("not authenticated. Please run 'stockd login' first")
	}
	return token, nil
}

func (m *mockTokenStore) DeleteToken(serverAddr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, serverAddr)
	return nil
}

// fakeAPI implements the API interface with pluggable behavior.
type fakeAPI struct {
	loginFn   func(ctx context.Context, email, password string) (*client.Session, error)
	refreshFn func(ctx context.Context, refreshToken string) (*client.Session, error)
	meFn      func(ctx context.Context, accessToken string) (*client.User, error)
	logoutFn  func(ctx context.Context, refreshToken string) error

	refreshCalls atomic.Int32
	logoutCalls  atomic.Int32

	mu            sync.Mutex
	revokedTokens []string
}

func (f *fakeAPI) Login(ctx context.Context, email, password string) (*client.Session, error) {
	if f.loginFn == nil {
		return nil, errors.New("login not stubbed")
	}
	return f.loginFn(ctx, email, password)
}

func (f *fakeAPI) Refresh(ctx context.Context, refreshToken string) (*client.Session, error) {
	f.refreshCalls.Add(1)
	if f.refreshFn == nil {
		return nil, errors.New("refresh not stubbed")
	}
	return f.refreshFn(ctx, refreshToken)
}

func (f *fakeAPI) Me(ctx context.Context, accessToken string) (*client.User, error) {
	if f.meFn == nil {
		return nil, errors.New("me not stubbed")
	}
	return f.meFn(ctx, accessToken)
}

func (f *fakeAPI) Logout(ctx context.Context, refreshToken string) error {
	f.logoutCalls.Add(1)
	f.mu.Lock()
	f.revokedTokens = append(f.revokedTokens, refreshToken)
	f.mu.Unlock()
	if f.logoutFn == nil {
		return nil
	}
	return f.logoutFn(ctx, refreshToken)
}

const testServer = "stock.example.com"

func testUser() *client.User {
	return &client.User{ID: "u1", Email: "ada@example.com", Name: "Ada Lovelace", Role: "ADMIN"}
}

func sessionFor(user *client.User) *client.Session {
	return &client.Session{AccessToken: "access-1", RefreshToken: "refresh-2", User: user}
}

func TestRestoreSessionRunsOnce(t *testing.T) {
	api := &fakeAPI{
		refreshFn: func(ctx context.Context, refreshToken string) (*client.Session, error) {
			return &client.Session{AccessToken: "access-1", RefreshToken: "refresh-2"}, nil
		},
		meFn: func(ctx context.Context, accessToken string) (*client.User, error) {
			return testUser(), nil
		},
	}
	tokens := newMockTokenStore()
	tokens.SaveToken(testServer, "refresh-1")

	m := NewManager(api, tokens, testServer)
	m.SetNotifier(func(string) {})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.RestoreSession(context.Background())
		}()
	}
	wg.Wait()

	if got := api.refreshCalls.Load(); got != 1 {
		t.Errorf("refresh called %d times, want 1", got)
	}
	// Wait for the winning goroutine's state to settle.
	deadline := time.After(time.Second)
	for !m.Store().Snapshot().IsAuthenticated {
		select {
		case <-deadline:
			t.Fatal("session never became authenticated")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestSnapshotBeforeRestoreIsLoading(t *testing.T) {
	api := &fakeAPI{}
	m := NewManager(api, newMockTokenStore(), testServer)
	m.SetNotifier(func(string) {})

	// Before the restore attempt the session is initializing, not
	// settled-anonymous.
	if state := m.Store().Snapshot(); !state.IsLoading || state.IsAuthenticated {
		t.Errorf("state before restore = %+v, want loading and anonymous", state)
	}

	if state := m.RestoreSession(context.Background()); state.IsLoading {
		t.Error("loading flag still set after restore settled")
	}
}

func TestRestoreSessionLosersSeeLoadingState(t *testing.T) {
	release := make(chan struct{})
	api := &fakeAPI{
		refreshFn: func(ctx context.Context, refreshToken string) (*client.Session, error) {
			<-release
			return &client.Session{AccessToken: "access-1", RefreshToken: "refresh-2"}, nil
		},
		meFn: func(ctx context.Context, accessToken string) (*client.User, error) {
			return testUser(), nil
		},
	}
	tokens := newMockTokenStore()
	tokens.SaveToken(testServer, "refresh-1")

	m := NewManager(api, tokens, testServer)
	m.SetNotifier(func(string) {})

	go m.RestoreSession(context.Background())

	// Wait until the winning call is inside the refresh request.
	deadline := time.After(time.Second)
	for api.refreshCalls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("restore never reached the server")
		case <-time.After(time.Millisecond):
		}
	}

	// A second caller returns immediately; while the winner is still in
	// flight it must not look like a settled logged-out session.
	if state := m.RestoreSession(context.Background()); !state.IsLoading {
		t.Errorf("loser state = %+v, want IsLoading while the restore is in flight", state)
	}
	close(release)
}

func TestRestoreSessionWithoutTokenStaysAnonymous(t *testing.T) {
	api := &fakeAPI{}
	m := NewManager(api, newMockTokenStore(), testServer)
	m.SetNotifier(func(string) {})

	state := m.RestoreSession(context.Background())

	if state.IsAuthenticated || state.User != nil {
		t.Errorf("state = %+v, want anonymous", state)
	}
	if state.IsLoading {
		t.Error("loading flag still set after restore")
	}
	if got := api.refreshCalls.Load(); got != 0 {
		t.Errorf("refresh called %d times without a stored token", got)
	}
}

func TestRestoreSessionRefreshFailureIsSilent(t *testing.T) {
	api := &fakeAPI{
		refreshFn: func(ctx context.Context, refreshToken string) (*client.Session, error) {
			return nil, errors.New("No active session")
		},
	}
	tokens := newMockTokenStore()
	tokens.SaveToken(testServer, "stale-token")

	m := NewManager(api, tokens, testServer)
	m.SetNotifier(func(string) {})

	state := m.RestoreSession(context.Background())

	if state.IsAuthenticated {
		t.Error("expected anonymous state after failed refresh")
	}
	if _, err := tokens.LoadToken(testServer); err == nil {
		t.Error("stale refresh token should have been deleted")
	}
}

func TestRestoreSessionSuccess(t *testing.T) {
	api := &fakeAPI{
		refreshFn: func(ctx context.Context, refreshToken string) (*client.Session, error) {
			if refreshToken != "refresh-1" {
				t.Errorf("refresh called with %q", refreshToken)
			}
			return &client.Session{AccessToken: "access-1", RefreshToken: "refresh-2"}, nil
		},
		meFn: func(ctx context.Context, accessToken string) (*client.User, error) {
			if accessToken != "access-1" {
				t.Errorf("me called with %q", accessToken)
			}
			return testUser(), nil
		},
	}
	tokens := newMockTokenStore()
	tokens.SaveToken(testServer, "refresh-1")

	m := NewManager(api, tokens, testServer)
	m.SetNotifier(func(string) {})

	state := m.RestoreSession(context.Background())

	if !state.IsAuthenticated || state.User == nil || state.User.Email != "ada@example.com" {
		t.Errorf("state = %+v, want authenticated ada", state)
	}
	// Rotation: the stored credential must be the new one.
	if stored, _ := tokens.LoadToken(testServer); stored != "refresh-2" {
		t.Errorf("stored token = %q, want rotated refresh-2", stored)
	}
	if m.AccessToken() != "access-1" {
		t.Errorf("access token = %q", m.AccessToken())
	}
}

func TestLoginSuccessNotifiesWithInitials(t *testing.T) {
	api := &fakeAPI{
		loginFn: func(ctx context.Context, email, password string) (*client.Session, error) {
			return sessionFor(testUser()), nil
		},
	}
	tokens := newMockTokenStore()
	m := NewManager(api, tokens, testServer)

	var messages []string
	m.SetNotifier(func(msg string) { messages = append(messages, msg) })

	if err := m.Login(context.Background(), "ada@example.com", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}

	state := m.Store().Snapshot()
	if !state.IsAuthenticated || state.IsLoading {
		t.Errorf("state = %+v", state)
	}
	if len(messages) != 1 || messages[0] != "Signed in as AL" {
		t.Errorf("messages = %v, want initials notification", messages)
	}
	if stored, _ := tokens.LoadToken(testServer); stored != "refresh-2" {
		t.Errorf("stored token = %q", stored)
	}
}

func TestLoginFailureSurfacesServerMessage(t *testing.T) {
	api := &fakeAPI{
		loginFn: func(ctx context.Context, email, password string) (*client.Session, error) {
			return nil, errors.New("Invalid email or password")
		},
	}
	m := NewManager(api, newMockTokenStore(), testServer)
	m.SetNotifier(func(string) {})

	err := m.Login(context.Background(), "ada@example.com", "wrong")

	if err == nil || err.Error() != "Invalid email or password" {
		t.Errorf("err = %v, want the server's message verbatim", err)
	}
	state := m.Store().Snapshot()
	if state.IsAuthenticated || state.IsLoading {
		t.Errorf("state after failed login = %+v", state)
	}
}

func TestLoginRejectsConcurrentLogin(t *testing.T) {
	release := make(chan struct{})
	api := &fakeAPI{
		loginFn: func(ctx context.Context, email, password string) (*client.Session, error) {
			<-release
			return sessionFor(testUser()), nil
		},
	}
	m := NewManager(api, newMockTokenStore(), testServer)
	m.SetNotifier(func(string) {})

	firstDone := make(chan error, 1)
	go func() { firstDone <- m.Login(context.Background(), "a@example.com", "pw") }()

	// Wait until the first login is inside the API call.
	for {
		m.mu.Lock()
		active := m.loginActive
		m.mu.Unlock()
		if active {
			break
		}
		time.Sleep(time.Millisecond)
	}

	if err := m.Login(context.Background(), "b@example.com", "pw"); !errors.Is(err, ErrLoginInProgress) {
		t.Errorf("second login err = %v, want ErrLoginInProgress", err)
	}

	close(release)
	if err := <-firstDone; err != nil {
		t.Errorf("first login err = %v", err)
	}
}

func TestLogoutDiscardsInFlightLogin(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	api := &fakeAPI{
		loginFn: func(ctx context.Context, email, password string) (*client.Session, error) {
			close(started)
			<-release
			return sessionFor(testUser()), nil
		},
	}
	tokens := newMockTokenStore()
	m := NewManager(api, tokens, testServer)
	m.SetNotifier(func(string) {})

	done := make(chan error, 1)
	go func() { done <- m.Login(context.Background(), "ada@example.com", "pw") }()

	<-started
	m.Logout(context.Background())
	close(release)

	if err := <-done; !errors.Is(err, ErrLoginSuperseded) {
		t.Fatalf("login err = %v, want ErrLoginSuperseded", err)
	}

	state := m.Store().Snapshot()
	if state.IsAuthenticated || state.User != nil {
		t.Errorf("state = %+v, the stale login must not resurrect the session", state)
	}
	if _, err := tokens.LoadToken(testServer); err == nil {
		t.Error("a token was stored by the superseded login")
	}

	// The credential issued to the superseded login must be revoked.
	api.mu.Lock()
	defer api.mu.Unlock()
	found := false
	for _, tok := range api.revokedTokens {
		if tok == "refresh-2" {
			found = true
		}
	}
	if !found {
		t.Errorf("revoked tokens = %v, want the superseded refresh-2", api.revokedTokens)
	}
}

func TestLogoutClearsSessionWhenServerUnreachable(t *testing.T) {
	api := &fakeAPI{
		loginFn: func(ctx context.Context, email, password string) (*client.Session, error) {
			return sessionFor(testUser()), nil
		},
		logoutFn: func(ctx context.Context, refreshToken string) error {
			return errors.New("connection refused")
		},
	}
	tokens := newMockTokenStore()
	m := NewManager(api, tokens, testServer)
	m.SetNotifier(func(string) {})

	if err := m.Login(context.Background(), "ada@example.com", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}

	m.Logout(context.Background())

	if m.Store().Snapshot().IsAuthenticated {
		t.Error("still authenticated after logout")
	}
	if _, err := tokens.LoadToken(testServer); err == nil {
		t.Error("refresh token still stored after logout")
	}
	if m.AccessToken() != "" {
		t.Error("access token still held after logout")
	}
}

func TestLogoutNotifies(t *testing.T) {
	api := &fakeAPI{
		loginFn: func(ctx context.Context, email, password string) (*client.Session, error) {
			return sessionFor(testUser()), nil
		},
	}
	m := NewManager(api, newMockTokenStore(), testServer)

	var messages []string
	m.SetNotifier(func(msg string) { messages = append(messages, msg) })

	if err := m.Login(context.Background(), "ada@example.com", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}

	m.Logout(context.Background())
	if len(messages) != 2 || messages[1] != "Signed out." {
		t.Errorf("messages = %v, want a sign-out confirmation", messages)
	}

	// With nothing left to end, a repeat logout stays silent.
	m.Logout(context.Background())
	if len(messages) != 2 {
		t.Errorf("messages = %v, logout while anonymous must not notify", messages)
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	api := &fakeAPI{}
	m := NewManager(api, newMockTokenStore(), testServer)
	m.SetNotifier(func(string) {})

	m.Logout(context.Background())
	m.Logout(context.Background())

	if state := m.Store().Snapshot(); state.IsAuthenticated {
		t.Errorf("state = %+v", state)
	}
	// No stored credential, so nothing to revoke server-side.
	if got := api.logoutCalls.Load(); got != 0 {
		t.Errorf("server logout called %d times with no session", got)
	}
}

func TestIdleSignsOutAndNotifies(t *testing.T) {
	api := &fakeAPI{
		loginFn: func(ctx context.Context, email, password string) (*client.Session, error) {
			return sessionFor(testUser()), nil
		},
	}
	m := NewManager(api, newMockTokenStore(), testServer)

	messages := make(chan string, 4)
	m.SetNotifier(func(msg string) { messages <- msg })
	m.WatchIdle(30 * time.Millisecond)

	if err := m.Login(context.Background(), "ada@example.com", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}
	<-messages // sign-in notification

	select {
	case msg := <-messages:
		if msg != "Signed out after inactivity." {
			t.Errorf("notification = %q", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("idle sign-out never happened")
	}

	if m.Store().Snapshot().IsAuthenticated {
		t.Error("still authenticated after idle sign-out")
	}
}

func TestGuardFollowsAuthentication(t *testing.T) {
	api := &fakeAPI{
		loginFn: func(ctx context.Context, email, password string) (*client.Session, error) {
			return sessionFor(testUser()), nil
		},
	}
	m := NewManager(api, newMockTokenStore(), testServer)
	m.SetNotifier(func(string) {})

	guard := NewExitGuard()
	m.GuardExit(guard)

	if guard.Armed() {
		t.Error("guard armed while anonymous")
	}

	if err := m.Login(context.Background(), "ada@example.com", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if !guard.Armed() {
		t.Error("guard not armed after login")
	}

	m.Logout(context.Background())
	if guard.Armed() {
		t.Error("guard still armed after logout")
	}
}
