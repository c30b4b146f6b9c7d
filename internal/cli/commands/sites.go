package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/stockd-dev/stockd/internal/cli/userconfig"
)

// NewSitesCmd creates the sites command
func NewSitesCmd() *cobra.Command {
	var serverAlias string

	cmd := &cobra.Command{
		Use:   "sites",
		Short: "List sites",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSites(serverAlias)
		},
	}

	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias from stockd.yaml")

	return cmd
}

func runSites(serverAlias string) error {
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
		fmt.Println("No sites yet.")
		return nil
	}

	selectedID, _ := userconfig.GetSelectedSite()

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tADDRESS\t")
	for _, site := range sites {
		marker := ""
		if site.ID == selectedID {
			marker = " *"
		}
		fmt.Fprintf(w, "%s\t%s%s\t%s\t\n", site.ID, site.Name, marker, site.Address)
	}
	return w.Flush()
}
