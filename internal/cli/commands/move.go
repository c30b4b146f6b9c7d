package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stockd-dev/stockd/internal/cli/client"
	"github.com/stockd-dev/stockd/internal/cli/siteselect"
)

// NewMoveCmd creates the move command
func NewMoveCmd() *cobra.Command {
	var serverAlias, siteFlag, toSite, reason string

	cmd := &cobra.Command{
		Use:   "move <entry|exit|transfer> <sku> <quantity>",
		Short: "Record a stock movement",
		Long: `Record a stock movement for an article at the selected site.

  entry     stock arriving (delivery, return)
  exit      stock leaving (deployment, disposal)
  transfer  stock moving to another site (requires --to-site)`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMove(serverAlias, siteFlag, toSite, reason, args[0], args[1], args[2])
		},
	}

	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias from stockd.yaml")
	cmd.Flags().StringVar(&siteFlag, "site", "", "Site ID or name (defaults to the selected site)")
	cmd.Flags().StringVar(&toSite, "to-site", "", "Destination site ID or name (transfer only)")
	cmd.Flags().StringVar(&reason, "reason", "", "Free-text reason recorded with the movement")

	return cmd
}

func runMove(serverAlias, siteFlag, toSite, reason, movementType, sku, quantityArg string) error {
	movementType = strings.ToUpper(movementType)
	switch movementType {
	case "ENTRY", "EXIT", "TRANSFER":
	default:
		return fmt.Errorf("invalid movement type '%s', must be entry, exit or transfer", movementType)
	}

	quantity, err := strconv.Atoi(quantityArg)
	if err != nil || quantity < 1 {
		return fmt.Errorf("quantity must be a positive number, got '%s'", quantityArg)
	}

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

	article, err := findArticleBySKU(ctx, api, mgr.AccessToken(), site.ID, sku)
	if err != nil {
		return err
	}

	req := client.CreateMovementRequest{
		ArticleID: article.ID,
		Type:      movementType,
		Quantity:  quantity,
		Reason:    reason,
	}

	if movementType == "TRANSFER" {
		if toSite == "" {
			return fmt.Errorf("transfer requires --to-site")
		}
		dest, err := siteselect.ResolveSite(ctx, api, mgr.AccessToken(), toSite)
		if err != nil {
			return err
		}
		req.ToSiteID = dest.ID
	}

	mv, err := api.CreateMovement(ctx, mgr.AccessToken(), req)
	if err != nil {
		return fmt.Errorf("failed to record movement: %w", err)
	}

	label := strings.ToLower(mv.Type)
	label = strings.ToUpper(label[:1]) + label[1:]
	fmt.Printf("✓ %s of %d x %s recorded (movement %s)\n", label, mv.Quantity, article.SKU, mv.ID)
	return nil
}

// findArticleBySKU looks an article up by SKU within one site.
func findArticleBySKU(ctx context.Context, api *client.Client, accessToken, siteID, sku string) (*client.Article, error) {
	articles, err := api.ListArticles(ctx, accessToken, siteID, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	for i := range articles {
		if strings.EqualFold(articles[i].SKU, sku) {
			return &articles[i], nil
		}
	}
	return nil, fmt.Errorf("article with SKU '%s' not found at this site", sku)
}
