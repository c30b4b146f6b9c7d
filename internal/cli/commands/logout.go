package commands

import (
	"context"

	"github.com/spf13/cobra"
)

// NewLogoutCmd creates the logout command
func NewLogoutCmd() *cobra.Command {
	var serverAlias string

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Sign out and revoke the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogout(serverAlias)
		},
	}

	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias from stockd.yaml")

	return cmd
}

func runLogout(serverAlias string) error {
	server, err := getSelectedServer(serverAlias)
	if err != nil {
		return err
	}

	_, mgr := newSessionManager(server)

	// Logout is always safe: it clears the local session even when the
	// server can't be reached, and doing it twice is fine. The manager
	// confirms through its notifier when a session was actually ended.
	mgr.Logout(context.Background())
	return nil
}
