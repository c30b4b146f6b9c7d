package commands

import (
	"context"
	"fmt"

	"github.com/stockd-dev/stockd/internal/cli/auth"
	"github.com/stockd-dev/stockd/internal/cli/client"
	"github.com/stockd-dev/stockd/internal/cli/config"
	"github.com/stockd-dev/stockd/internal/cli/serverselect"
	"github.com/stockd-dev/stockd/internal/cli/session"
)

// apiClientFactory builds the API client for a server address. Tests
// override it to point at a plain-HTTP test server.
var apiClientFactory = func(serverAddr string) *client.Client {
	return client.New(serverAddr)
}

// tokenStore is the refresh credential store. Tests swap in an
// in-memory implementation so they don't touch the OS keyring.
var tokenStore auth.TokenStore = auth.Default

// getSelectedServer loads the config and returns the selected server.
// This is common logic used by most commands.
func getSelectedServer(serverAlias string) (*config.Server, error) {
	cfg, err := config.LoadFromCurrentDir()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w\nRun 'stockd init' to create a configuration file", err)
	}

	server, err := serverselect.ResolveServer(cfg, serverAlias)
	if err != nil {
		return nil, err
	}

	if server.Address == "" {
		return nil, fmt.Errorf("server address is empty. Please edit stockd.yaml and add a valid address")
	}

	return server, nil
}

// newSessionManager builds the API client and session manager for a
// server.
func newSessionManager(server *config.Server) (*client.Client, *session.Manager) {
	api := apiClientFactory(server.Address)
	mgr := session.NewManager(api, tokenStore, server.Address)
	return api, mgr
}

// requireSession restores the previous session and fails when there is
// none.
func requireSession(ctx context.Context, mgr *session.Manager) (session.State, error) {
	state := mgr.RestoreSession(ctx)
	if !state.IsAuthenticated {
		return state, fmt.Errorf("not authenticated. Please run 'stockd login' first")
	}
	return state, nil
}
