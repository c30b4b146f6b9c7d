package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stockd-dev/stockd/internal/cli/commands"
)

var version = "dev" // Will be set during build

var rootCmd = &cobra.Command{
	Use:   "stockd",
	Short: "Stockd - IT stock inventory",
	Long: `Stockd CLI - Track IT stock across your sites.

Stockd keeps article quantities per site, records every stock movement,
and raises alerts when an article runs low or out.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// The persisted theme applies before the first line of output
		commands.ApplyTheme()
	},
}

func init() {
	// Add version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("stockd version %s\n", version)
		},
	})

	// Add all subcommands
	rootCmd.AddCommand(commands.NewInitCmd())
	rootCmd.AddCommand(commands.NewLoginCmd())
	rootCmd.AddCommand(commands.NewLogoutCmd())
	rootCmd.AddCommand(commands.NewWhoamiCmd())
	rootCmd.AddCommand(commands.NewArticlesCmd())
	rootCmd.AddCommand(commands.NewMoveCmd())
	rootCmd.AddCommand(commands.NewAlertsCmd())
	rootCmd.AddCommand(commands.NewSitesCmd())
	rootCmd.AddCommand(commands.NewSelectSiteCmd())
	rootCmd.AddCommand(commands.NewSelectServerCmd())
	rootCmd.AddCommand(commands.NewConsoleCmd())
	rootCmd.AddCommand(commands.NewThemeCmd())
	rootCmd.AddCommand(commands.NewDashCmd())
}

// Execute runs the root command
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
