package commands

import (
	"context"
	"fmt"
	"os"

	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// NewLoginCmd creates the login command
func NewLoginCmd() *cobra.Command {
	var email, password, serverAlias string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate with a Stockd server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(email, password, serverAlias)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (or set STOCKD_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set STOCKD_PASSWORD, will prompt if not provided)")
	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias from stockd.yaml")

	return cmd
}

func runLogin(email, password, serverAlias string) error {
	// Check for environment variables (useful for CI/CD)
	if email == "" {
		email = os.Getenv("STOCKD_EMAIL")
	}
	if password == "" {
		password = os.Getenv("STOCKD_PASSWORD")
	}

	if email == "" {
		return fmt.Errorf("email is required (use --email flag or STOCKD_EMAIL env var)")
	}

	server, err := getSelectedServer(serverAlias)
	if err != nil {
		return err
	}

	// Prompt for password if not provided via flag or env var
	if password == "" {
		// Check if stdin is a terminal (not piped)
		if term.IsTerminal(int(syscall.Stdin)) {
			fmt.Print("Password: ")
			bytePassword, err := term.ReadPassword(int(syscall.Stdin))
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			password = string(bytePassword)
			fmt.Println() // New line after password input
		} else {
			return fmt.Errorf("password is required in non-interactive mode (use --password flag or STOCKD_PASSWORD env var)")
		}
	}

	_, mgr := newSessionManager(server)

	fmt.Printf("Logging in to %s (%s)...\n", server.Alias, server.Address)

	if err := mgr.Login(context.Background(), email, password); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	state := mgr.Store().Snapshot()
	fmt.Println("✓ Login successful!")
	if state.User != nil {
		fmt.Printf("  User: %s (%s)\n", state.User.Name, state.User.Email)
		if state.User.Role == "ADMIN" {
			fmt.Println("  Role: Admin")
		}
	}

	return nil
}
