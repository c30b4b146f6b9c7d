package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewAlertsCmd creates the alerts command and its ack subcommand
func NewAlertsCmd() *cobra.Command {
	var serverAlias string
	var includeResolved bool

	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "List stock alerts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAlerts(serverAlias, includeResolved)
		},
	}

	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias from stockd.yaml")
	cmd.Flags().BoolVar(&includeResolved, "all", false, "Include resolved alerts")

	ack := &cobra.Command{
		Use:   "ack <alert-id>",
		Short: "Acknowledge an open alert",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAckAlert(serverAlias, args[0])
		},
	}
	cmd.AddCommand(ack)

	return cmd
}

func runAlerts(serverAlias string, includeResolved bool) error {
	server, err := getSelectedServer(serverAlias)
	if err != nil {
		return err
	}

	api, mgr := newSessionManager(server)

	ctx := context.Background()
	if _, err := requireSession(ctx, mgr); err != nil {
		return err
	}

	alerts, err := api.ListAlerts(ctx, mgr.AccessToken(), includeResolved)
	if err != nil {
		return fmt.Errorf("failed to list alerts: %w", err)
	}

	if len(alerts) == 0 {
		fmt.Println("No open alerts.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tLEVEL\tSKU\tARTICLE\tQTY\tACK\t")
	for _, a := range alerts {
		sku, name, qty := "?", "?", "?"
		if a.Article != nil {
			sku = a.Article.SKU
			name = a.Article.Name
			qty = fmt.Sprintf("%d", a.Article.Quantity)
		}
		ack := ""
		if a.AcknowledgedAt != nil {
			ack = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t\n", a.ID, a.Level, sku, name, qty, ack)
	}
	return w.Flush()
}

func runAckAlert(serverAlias, alertID string) error {
	server, err := getSelectedServer(serverAlias)
	if err != nil {
		return err
	}

	api, mgr := newSessionManager(server)

	ctx := context.Background()
	if _, err := requireSession(ctx, mgr); err != nil {
		return err
	}

	if err := api.AcknowledgeAlert(ctx, mgr.AccessToken(), alertID); err != nil {
		return fmt.Errorf("failed to acknowledge alert: %w", err)
	}

	fmt.Printf("✓ Alert %s acknowledged\n", alertID)
	return nil
}
