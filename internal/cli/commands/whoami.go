package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stockd-dev/stockd/internal/cli/userconfig"
)

// NewWhoamiCmd creates the whoami command
func NewWhoamiCmd() *cobra.Command {
	var serverAlias string

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the currently signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWhoami(serverAlias)
		},
	}

	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias from stockd.yaml")

	return cmd
}

func runWhoami(serverAlias string) error {
	server, err := getSelectedServer(serverAlias)
	if err != nil {
		return err
	}

	_, mgr := newSessionManager(server)

	state, err := requireSession(context.Background(), mgr)
	if err != nil {
		return err
	}

	fmt.Printf("User:   %s (%s)\n", state.User.Name, state.User.Email)
	fmt.Printf("Role:   %s\n", state.User.Role)
	fmt.Printf("Server: %s (%s)\n", server.Alias, server.Address)

	if siteID, err := userconfig.GetSelectedSite(); err == nil && siteID != "" {
		fmt.Printf("Site:   %s\n", siteID)
	}

	return nil
}
