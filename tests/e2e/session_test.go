package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/stockd-dev/stockd/internal/cli/client"
	"github.com/stockd-dev/stockd/internal/cli/session"
	"github.com/stockd-dev/stockd/internal/config"
	"github.com/stockd-dev/stockd/internal/server"
)

type setupResponse struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	User         *client.User `json:"user"`
}

// doSetup creates the first admin the way the web wizard does.
func doSetup(baseURL, name, email, password string) (*setupResponse, error) {
	body, err := json.Marshal(map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}

	resp, err := http.Post(baseURL+"/api/setup", "application/json", bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("setup returned status %d", resp.StatusCode)
	}

	var out setupResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// memoryTokenStore keeps refresh credentials in memory for the test.
type memoryTokenStore struct {
	tokens map[string]string
}

func (m *memoryTokenStore) SaveToken(serverAddr, token string) error {
	m.tokens[serverAddr] = token
	return nil
}

func (m *memoryTokenStore) LoadToken(serverAddr string) (string, error) {
	return m.tokens[serverAddr], nil
}

func (m *memoryTokenStore) DeleteToken(serverAddr string) error {
	delete(m.tokens, serverAddr)
	return nil
}

// TestSessionLifecycle drives the CLI session machinery against a real
// in-process server: first-run setup, login, restore with refresh
// rotation, and logout.
func TestSessionLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping E2E test in short mode")
	}

	cfg := &config.Config{
		Database: config.DatabaseConfig{URL: filepath.Join(t.TempDir(), "stockd.sqlite")},
		Redis:    config.RedisConfig{Address: "localhost:6379"},
		HTTP:     config.HTTPConfig{ListenAddr: ":0", WebOrigin: "http://localhost:5173"},
	}

	srv, err := server.New(cfg, zerolog.Nop(), "e2e")
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	api := client.New("ignored")
	api.SetBaseURL(ts.URL)

	ctx := context.Background()

	// First-run setup via raw HTTP, the way the web wizard does it.
	t.Run("Setup", func(t *testing.T) {
		sess, err := api.Login(ctx, "admin@test.com", "testpass123")
		require.Error(t, err, "login must fail before setup")
		require.Nil(t, sess)

		resp, err := doSetup(ts.URL, "Test Admin", "admin@test.com", "testpass123")
		require.NoError(t, err)
		require.NotEmpty(t, resp.AccessToken)
		require.Equal(t, "ADMIN", resp.User.Role)
	})

	tokens := &memoryTokenStore{tokens: map[string]string{}}
	const serverKey = "e2e-server"

	var notifications []string
	mgr := session.NewManager(api, tokens, serverKey)
	mgr.SetNotifier(func(msg string) { notifications = append(notifications, msg) })

	t.Run("Login", func(t *testing.T) {
		err := mgr.Login(ctx, "admin@test.com", "testpass123")
		require.NoError(t, err)

		state := mgr.Store().Snapshot()
		require.True(t, state.IsAuthenticated)
		require.Equal(t, "admin@test.com", state.User.Email)
		require.NotEmpty(t, tokens.tokens[serverKey], "refresh credential must be stored")
		require.Contains(t, notifications, "Signed in as TA")
	})

	t.Run("AccessTokenWorks", func(t *testing.T) {
		user, err := api.Me(ctx, mgr.AccessToken())
		require.NoError(t, err)
		require.Equal(t, "admin@test.com", user.Email)
	})

	t.Run("RestoreRotatesRefreshToken", func(t *testing.T) {
		before := tokens.tokens[serverKey]

		// A fresh manager simulates a new CLI process restoring the
		// previous session from the stored credential.
		restored := session.NewManager(api, tokens, serverKey)
		restored.SetNotifier(func(string) {})

		state := restored.RestoreSession(ctx)
		require.True(t, state.IsAuthenticated)
		require.Equal(t, "admin@test.com", state.User.Email)

		after := tokens.tokens[serverKey]
		require.NotEmpty(t, after)
		require.NotEqual(t, before, after, "refresh credential must rotate on use")

		// The old credential is single-use: replaying it fails.
		_, err := api.Refresh(ctx, before)
		require.Error(t, err)

		mgr = restored
	})

	t.Run("Logout", func(t *testing.T) {
		stored := tokens.tokens[serverKey]
		require.NotEmpty(t, stored)

		mgr.Logout(ctx)

		require.False(t, mgr.Store().Snapshot().IsAuthenticated)
		require.Empty(t, tokens.tokens[serverKey])

		// The revoked credential is dead server-side too.
		_, err := api.Refresh(ctx, stored)
		require.Error(t, err)
	})

	t.Run("RestoreAfterLogoutIsAnonymous", func(t *testing.T) {
		fresh := session.NewManager(api, tokens, serverKey)
		fresh.SetNotifier(func(string) {})

		state := fresh.RestoreSession(ctx)
		require.False(t, state.IsAuthenticated)
		require.Nil(t, state.User)
		require.False(t, state.IsLoading)
	})
}
