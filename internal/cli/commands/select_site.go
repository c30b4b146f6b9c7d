package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stockd-dev/stockd/internal/cli/siteselect"
	"github.com/stockd-dev/stockd/internal/cli/userconfig"
)

// NewSelectSiteCmd creates the select-site command
func NewSelectSiteCmd() *cobra.Command {
	var serverAlias string

	cmd := &cobra.Command{
		Use:   "select-site",
		Short: "Choose the site that stock commands operate on",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSelectSite(serverAlias)
		},
	}

	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias from stockd.yaml")

	return cmd
}

func runSelectSite(serverAlias string) error {
	server, err := getSelectedServer(serverAlias)
	if err != nil {
		return err
	}

	api, mgr := newSessionManager(server)

	ctx := context.Background()
	if _, err := requireSession(ctx, mgr); err != nil {
		return err
	}

	sites, err := api.ListSites(ctx, mgr.AccessToken())
	if err != nil {
		return fmt.Errorf("failed to list sites: %w", err)
	}
	if len(sites) == 0 {
		return fmt.Errorf("no sites exist yet. Create one in the dashboard first")
	}

	site, err := siteselect.PromptSiteSelection(sites)
	if err != nil {
		return err
	}

	if err := userconfig.SetSelectedSite(site.ID); err != nil {
		return fmt.Errorf("failed to save selected site: %w", err)
	}

	fmt.Printf("✓ Selected site %s\n", site.Name)
	return nil
}
