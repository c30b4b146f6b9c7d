package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/stockd-dev/stockd/internal/cli/auth"
	"github.com/stockd-dev/stockd/internal/cli/client"
)

var (
	// ErrLoginInProgress is returned when Login is called while another
	// login is still waiting on the server.
	ErrLoginInProgress = errors.New("a sign-in is already in progress")

	// ErrLoginSuperseded is returned when a login completed after the
	// user had already signed out. The result is discarded.
	ErrLoginSuperseded = errors.New("sign-in was cancelled by a sign-out")
)

// API is the subset of the server client the session manager needs.
type API interface {
	Login(ctx context.Context, email, password string) (*client.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*client.Session, error)
	Me(ctx context.Context, accessToken string) (*client.User, error)
	Logout(ctx context.Context, refreshToken string) error
}

// Manager drives the session lifecycle: restoring a previous session
// from the stored refresh credential, logging in and out, and keeping
// the idle monitor and exit guard in step with the store.
type Manager struct {
	store  *Store
	api    API
	tokens auth.TokenStore
	server string

	notify func(msg string)

	mu          sync.Mutex
	restored    bool
	loginActive bool
	epoch       uint64
	accessToken string

	idle  *IdleMonitor
	guard *ExitGuard
}

// NewManager creates a session manager for the given server address.
// Tokens are persisted through the given store, keyed by server.
func NewManager(api API, tokens auth.TokenStore, server string) *Manager {
	m := &Manager{
		store:  NewStore(),
		api:    api,
		tokens: tokens,
		server: server,
		notify: func(msg string) { fmt.Println(msg) },
	}
	return m
}

// Store returns the session store for snapshots and subscriptions.
func (m *Manager) Store() *Store {
	return m.store
}

// SetNotifier replaces the user-facing notification sink.
func (m *Manager) SetNotifier(fn func(msg string)) {
	if fn != nil {
		m.notify = fn
	}
}

// WatchIdle arms automatic sign-out after the given inactivity window.
// The monitor starts counting when a session becomes authenticated.
func (m *Manager) WatchIdle(timeout time.Duration) {
	m.idle = NewIdleMonitor(timeout, func() {
		m.logout(context.Background(), "Signed out after inactivity.")
	})
	if m.store.Snapshot().IsAuthenticated {
		m.idle.Start()
	}
}

// GuardExit wires an exit guard that is armed exactly while a user is
// signed in.
func (m *Manager) GuardExit(g *ExitGuard) {
	m.guard = g
	if m.store.Snapshot().IsAuthenticated {
		g.Arm()
	} else {
		g.Disarm()
	}
}

// Touch records user activity, postponing the idle sign-out.
func (m *Manager) Touch() {
	if m.idle != nil {
		m.idle.Touch()
	}
}

// AccessToken returns the current short-lived access token, or empty
// when anonymous.
func (m *Manager) AccessToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accessToken
}

// RestoreSession tries to resume the previous session from the stored
// refresh credential. It runs its work at most once per process; later
// calls just return the current state. Any failure leaves the session
// anonymous without surfacing an error: an expired credential on
// startup is normal, not something to report.
func (m *Manager) RestoreSession(ctx context.Context) State {
	m.mu.Lock()
	if m.restored {
		m.mu.Unlock()
		return m.store.Snapshot()
	}
	m.restored = true
	epoch := m.epoch
	m.mu.Unlock()

	m.store.setLoading(true)

	refreshToken, err := m.tokens.LoadToken(m.server)
	if err != nil || refreshToken == "" {
		m.finishAnonymous()
		return m.store.Snapshot()
	}

	sess, err := m.api.Refresh(ctx, refreshToken)
	if err != nil {
		// The stored credential is no longer accepted; drop it quietly.
		_ = m.tokens.DeleteToken(m.server)
		m.finishAnonymous()
		return m.store.Snapshot()
	}

	user, err := m.api.Me(ctx, sess.AccessToken)
	if err != nil {
		m.finishAnonymous()
		return m.store.Snapshot()
	}

	m.commit(epoch, sess, user)
	return m.store.Snapshot()
}

// Login authenticates with the server and establishes a session. Only
// one login may be in flight at a time. A login that completes after a
// sign-out is discarded rather than resurrecting the session.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	m.mu.Lock()
	if m.loginActive {
		m.mu.Unlock()
		return ErrLoginInProgress
	}
	m.loginActive = true
	epoch := m.epoch
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.loginActive = false
		m.mu.Unlock()
	}()

	m.store.setLoading(true)

	sess, err := m.api.Login(ctx, email, password)
	if err != nil {
		m.store.setLoading(false)
		return err
	}

	if !m.commit(epoch, sess, sess.User) {
		// The user signed out while this login was in flight. Revoke the
		// fresh credential so it does not linger server-side.
		_ = m.api.Logout(ctx, sess.RefreshToken)
		return ErrLoginSuperseded
	}

	m.notify(fmt.Sprintf("Signed in as %s", initials(sess.User)))
	return nil
}

// Logout ends the session and confirms it through the notifier. The
// server-side revocation is best effort: the local session is cleared
// even when the server is unreachable. Calling Logout while already
// anonymous is a silent no-op.
func (m *Manager) Logout(ctx context.Context) {
	m.logout(ctx, "Signed out.")
}

func (m *Manager) logout(ctx context.Context, msg string) {
	hadSession := m.store.Snapshot().IsAuthenticated

	m.mu.Lock()
	m.epoch++
	m.accessToken = ""
	m.mu.Unlock()

	if refreshToken, err := m.tokens.LoadToken(m.server); err == nil && refreshToken != "" {
		_ = m.api.Logout(ctx, refreshToken)
		hadSession = true
	}
	_ = m.tokens.DeleteToken(m.server)

	if m.idle != nil {
		m.idle.Stop()
	}
	if m.guard != nil {
		m.guard.Disarm()
	}
	m.store.set(State{})

	if hadSession {
		m.notify(msg)
	}
}

// commit installs an authenticated session unless a sign-out happened
// after the epoch was captured.
func (m *Manager) commit(epoch uint64, sess *client.Session, user *client.User) bool {
	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		return false
	}
	m.accessToken = sess.AccessToken
	m.mu.Unlock()

	if err := m.tokens.SaveToken(m.server, sess.RefreshToken); err != nil {
		// The session still works in memory; it just won't survive exit.
		m.notify(fmt.Sprintf("Warning: failed to save session: %v", err))
	}

	m.store.set(State{User: user})

	if m.idle != nil {
		m.idle.Start()
	}
	if m.guard != nil {
		m.guard.Arm()
	}
	return true
}

func (m *Manager) finishAnonymous() {
	m.store.set(State{})
}

// initials derives a short display tag from the user's name, falling
// back to the first letter of the email.
func initials(user *client.User) string {
	if user == nil {
		return "?"
	}
	fields := strings.Fields(user.Name)
	switch {
	case len(fields) >= 2:
		return strings.ToUpper(fields[0][:1] + fields[len(fields)-1][:1])
	case len(fields) == 1:
		return strings.ToUpper(fields[0][:1])
	case user.Email != "":
		return strings.ToUpper(user.Email[:1])
	}
	return "?"
}
