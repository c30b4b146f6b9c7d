package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stockd-dev/stockd/internal/cli/config"
	"github.com/stockd-dev/stockd/internal/cli/serverselect"
	"github.com/stockd-dev/stockd/internal/cli/userconfig"
)

// NewSelectServerCmd creates the select-server command
func NewSelectServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "select-server",
		Short: "Choose which server from stockd.yaml to talk to",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSelectServer()
		},
	}
}

func runSelectServer() error {
	cfg, err := config.LoadFromCurrentDir()
	if err != nil {
		return fmt.Errorf("failed to load config: %w\nRun 'stockd init' to create a configuration file", err)
	}

	server, err := serverselect.PromptServerSelection(cfg)
	if err != nil {
		return err
	}

	if err := userconfig.SetSelectedServer(server.Address); err != nil {
		return fmt.Errorf("failed to save selected server: %w", err)
	}

	fmt.Printf("✓ Selected server %s (%s)\n", server.Alias, server.Address)
	return nil
}
