package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/stockd-dev/stockd/internal/cli/siteselect"
)

// NewArticlesCmd creates the articles command
func NewArticlesCmd() *cobra.Command {
	var serverAlias, siteFlag string
	var lowOnly bool

	cmd := &cobra.Command{
		Use:   "articles",
		Short: "List articles at the selected site",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArticles(serverAlias, siteFlag, lowOnly)
		},
	}

	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias from stockd.yaml")
	cmd.Flags().StringVar(&siteFlag, "site", "", "Site ID or name (defaults to the selected site)")
	cmd.Flags().BoolVar(&lowOnly, "low", false, "Only show articles at or below their low-stock threshold")

	return cmd
}

func runArticles(serverAlias, siteFlag string, lowOnly bool) error {
	server, err := getSelectedServer(serverAlias)
	if err != nil {
		return err
	}

	api, mgr := newSessionManager(server)

	ctx := context.Background()
	if _, err := requireSession(ctx, mgr); err != nil {
		return err
	}

	site, err := siteselect.ResolveSite(ctx, api, mgr.AccessToken(), siteFlag)
	if err != nil {
		return err
	}

	articles, err := api.ListArticles(ctx, mgr.AccessToken(), site.ID, lowOnly)
	if err != nil {
		return fmt.Errorf("failed to list articles: %w", err)
	}

	if len(articles) == 0 {
		if lowOnly {
			fmt.Printf("No low-stock articles at %s.\n", site.Name)
		} else {
			fmt.Printf("No articles at %s.\n", site.Name)
		}
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SKU\tNAME\tCATEGORY\tQTY\tMIN\t")
	for _, a := range articles {
		qty := fmt.Sprintf("%d", a.Quantity)
		if a.Quantity == 0 {
			qty += " (out)"
		} else if a.MinQuantity > 0 && a.Quantity <= a.MinQuantity {
			qty += " (low)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t\n", a.SKU, a.Name, a.Category, qty, a.MinQuantity)
	}
	return w.Flush()
}
