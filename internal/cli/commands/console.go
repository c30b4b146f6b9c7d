package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/stockd-dev/stockd/internal/cli/client"
	"github.com/stockd-dev/stockd/internal/cli/config"
	"github.com/stockd-dev/stockd/internal/cli/session"
	"github.com/stockd-dev/stockd/internal/cli/siteselect"
)

// NewConsoleCmd creates the console command
func NewConsoleCmd() *cobra.Command {
	var serverAlias, siteFlag string

	cmd := &cobra.Command{
		Use:   "console",
		Short: "Interactive stock console",
		Long: `An interactive console for working with stock at one site.

The console signs you out after 30 minutes without input. Ctrl-C asks
for confirmation while you are signed in.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConsole(serverAlias, siteFlag)
		},
	}

	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias from stockd.yaml")
	cmd.Flags().StringVar(&siteFlag, "site", "", "Site ID or name (defaults to the selected site)")

	return cmd
}

func runConsole(serverAlias, siteFlag string) error {
	server, err := getSelectedServer(serverAlias)
	if err != nil {
		return err
	}

	api, mgr := newSessionManager(server)

	ctx := context.Background()
	state := mgr.RestoreSession(ctx)
	if !state.IsAuthenticated {
		// No previous session: offer an interactive sign-in instead of
		// bailing out like the non-interactive commands do.
		state, err = promptLogin(ctx, mgr, server)
		if err != nil {
			return err
		}
	}

	site, err := siteselect.ResolveSite(ctx, api, mgr.AccessToken(), siteFlag)
	if err != nil {
		return err
	}

	// Sign out after half an hour of inactivity, and make Ctrl-C ask
	// for confirmation while signed in.
	mgr.WatchIdle(session.DefaultIdleTimeout)
	guard := session.NewExitGuard()
	mgr.GuardExit(guard)
	guard.Watch()
	defer guard.Close()

	// When the session ends (idle sign-out, or a logout from another
	// command), the console stops at the next prompt.
	ended := make(chan struct{})
	unsubscribe := mgr.Store().Subscribe(func(s session.State) {
		if !s.IsAuthenticated {
			select {
			case <-ended:
			default:
				close(ended)
			}
		}
	})
	defer unsubscribe()

	fmt.Printf("Connected to %s (%s), site %s as %s.\n", server.Alias, server.Address, site.Name, state.User.Email)
	fmt.Println("Type 'help' for commands, 'exit' to leave.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		select {
		case <-ended:
			fmt.Println("Session ended.")
			return nil
		default:
		}

		fmt.Printf("%s%s> %s", promptColor(), site.Name, promptReset())
		if !scanner.Scan() {
			return scanner.Err()
		}

		// Every line of input counts as activity.
		mgr.Touch()

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		switch fields[0] {
		case "exit", "quit":
			return nil
		case "help":
			printConsoleHelp()
		case "articles":
			lowOnly := len(fields) > 1 && fields[1] == "low"
			if err := consoleArticles(ctx, api, mgr, site.ID, lowOnly); err != nil {
				fmt.Printf("Error: %v\n", err)
			}
		case "alerts":
			if err := runAlertsWith(ctx, api, mgr, false); err != nil {
				fmt.Printf("Error: %v\n", err)
			}
		case "move":
			if err := consoleMove(ctx, api, mgr, site.ID, fields[1:]); err != nil {
				fmt.Printf("Error: %v\n", err)
			}
		case "stats":
			if err := consoleStats(ctx, api, mgr); err != nil {
				fmt.Printf("Error: %v\n", err)
			}
		case "logout":
			mgr.Logout(ctx)
			return nil
		default:
			fmt.Printf("Unknown command '%s'. Type 'help' for commands.\n", fields[0])
		}
	}
}

// promptLogin asks for credentials on the terminal and signs in. Used by
// the console when no previous session could be restored.
func promptLogin(ctx context.Context, mgr *session.Manager, server *config.Server) (session.State, error) {
	if !term.IsTerminal(int(syscall.Stdin)) {
		return session.State{}, fmt.Errorf("not authenticated. Please run 'stockd login' first")
	}

	fmt.Printf("Sign in to %s (%s).\n", server.Alias, server.Address)

	reader := bufio.NewReader(os.Stdin)
	fmt.Print("Email: ")
	email, err := reader.ReadString('\n')
	if err != nil {
		return session.State{}, fmt.Errorf("failed to read email: %w", err)
	}
	email = strings.TrimSpace(email)

	fmt.Print("Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return session.State{}, fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Println()

	if err := mgr.Login(ctx, email, string(bytePassword)); err != nil {
		return session.State{}, fmt.Errorf("login failed: %w", err)
	}

	return mgr.Store().Snapshot(), nil
}

func printConsoleHelp() {
	fmt.Println(`Commands:
  articles [low]              list articles at this site
  alerts                      list open alerts
  move <entry|exit> <sku> <qty> [reason...]
                              record a stock movement
  stats                       show dashboard counters
  logout                      sign out and leave
  exit                        leave without signing out`)
}

func consoleArticles(ctx context.Context, api *client.Client, mgr *session.Manager, siteID string, lowOnly bool) error {
	articles, err := api.ListArticles(ctx, mgr.AccessToken(), siteID, lowOnly)
	if err != nil {
		return err
	}
	if len(articles) == 0 {
		fmt.Println("No articles.")
		return nil
	}
	for _, a := range articles {
		flag := ""
		if a.Quantity == 0 {
			flag = "  OUT"
		} else if a.MinQuantity > 0 && a.Quantity <= a.MinQuantity {
			flag = "  LOW"
		}
		fmt.Printf("  %-16s %-30s %4d%s\n", a.SKU, a.Name, a.Quantity, flag)
	}
	return nil
}

func runAlertsWith(ctx context.Context, api *client.Client, mgr *session.Manager, includeResolved bool) error {
	alerts, err := api.ListAlerts(ctx, mgr.AccessToken(), includeResolved)
	if err != nil {
		return err
	}
	if len(alerts) == 0 {
		fmt.Println("No open alerts.")
		return nil
	}
	for _, a := range alerts {
		name := a.ArticleID
		if a.Article != nil {
			name = fmt.Sprintf("%s (%s)", a.Article.Name, a.Article.SKU)
		}
		fmt.Printf("  [%s] %s  %s\n", a.Level, name, a.ID)
	}
	return nil
}

func consoleMove(ctx context.Context, api *client.Client, mgr *session.Manager, siteID string, args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: move <entry|exit> <sku> <qty> [reason...]")
	}

	movementType := strings.ToUpper(args[0])
	if movementType != "ENTRY" && movementType != "EXIT" {
		return fmt.Errorf("console movements are entry or exit; use 'stockd move' for transfers")
	}

	var quantity int
	if _, err := fmt.Sscanf(args[2], "%d", &quantity); err != nil || quantity < 1 {
		return fmt.Errorf("quantity must be a positive number, got '%s'", args[2])
	}

	article, err := findArticleBySKU(ctx, api, mgr.AccessToken(), siteID, args[1])
	if err != nil {
		return err
	}

	mv, err := api.CreateMovement(ctx, mgr.AccessToken(), client.CreateMovementRequest{
		ArticleID: article.ID,
		Type:      movementType,
		Quantity:  quantity,
		Reason:    strings.Join(args[3:], " "),
	})
	if err != nil {
		return err
	}

	fmt.Printf("Recorded %s of %d x %s.\n", strings.ToLower(mv.Type), mv.Quantity, article.SKU)
	return nil
}

func consoleStats(ctx context.Context, api *client.Client, mgr *session.Manager) error {
	stats, err := api.GetStats(ctx, mgr.AccessToken())
	if err != nil {
		return err
	}
	fmt.Printf("  Articles: %d  Sites: %d  Open alerts: %d  Movements today: %d\n",
		stats.Articles, stats.Sites, stats.OpenAlerts, stats.MovementsToday)
	return nil
}
