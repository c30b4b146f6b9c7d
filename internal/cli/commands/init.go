package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/stockd-dev/stockd/internal/cli/config"
)

// NewInitCmd creates the init command
func NewInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init <server-address>",
		Short: "Register a Stockd server in this directory",
		Args:  cobra.ExactArgs(1),
		RunE:  runInit,
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	serverAddr := args[0]

	currentDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	configPath := filepath.Join(currentDir, config.ConfigFileName)

	var cfg *config.Config
	isNewConfig := false

	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil {
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load existing config: %w", err)
		}
		fmt.Println("Found existing stockd.yaml")
	} else {
		cfg = &config.Config{
			Servers: []config.Server{},
		}
		isNewConfig = true
	}

	// Check if server already exists
	serverExists := false
	for _, server := range cfg.Servers {
		if server.Address == serverAddr {
			serverExists = true
			break
		}
	}

	if serverExists {
		fmt.Printf("Server %s already exists in stockd.yaml\n", serverAddr)
	} else {
		alias := "head-office"
		if len(cfg.Servers) > 0 {
			alias = fmt.Sprintf("server-%d", len(cfg.Servers)+1)
		}

		cfg.Servers = append(cfg.Servers, config.Server{
			Address: serverAddr,
			Alias:   alias,
		})

		if err := config.Save(configPath, cfg); err != nil {
			return err
		}

		if isNewConfig {
			fmt.Printf("✓ Created ./stockd.yaml with server %s (%s)\n", serverAddr, alias)
		} else {
			fmt.Printf("✓ Added server %s (%s) to ./stockd.yaml\n", serverAddr, alias)
		}
	}

	// Open browser to setup page
	setupURL := fmt.Sprintf("https://%s/setup", serverAddr)
	fmt.Printf("\nOpening setup page at %s...\n", setupURL)

	if err := openBrowser(setupURL); err != nil {
		fmt.Printf("⚠ Could not open browser automatically: %v\n", err)
		fmt.Printf("Please visit: %s\n", setupURL)
	}

	fmt.Println("\nNext steps:")
	fmt.Println("  1. Complete the setup wizard in your browser")
	fmt.Println("  2. Run 'stockd login' to authenticate")

	return nil
}
