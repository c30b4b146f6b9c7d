package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stockd-dev/stockd/internal/cli/userconfig"
)

// activeTheme is loaded before a command produces any output.
var activeTheme = userconfig.ThemeSystem

// ApplyTheme loads the persisted theme so it takes effect from the
// first line a command prints.
func ApplyTheme() {
	activeTheme = userconfig.GetTheme()
}

// promptColor returns the ANSI prefix for the console prompt. The
// light theme skips coloring entirely.
func promptColor() string {
	switch activeTheme {
	case userconfig.ThemeLight:
		return ""
	case userconfig.ThemeDark:
		return "\033[1;36m"
	default:
		return "\033[36m"
	}
}

func promptReset() string {
	if activeTheme == userconfig.ThemeLight {
		return ""
	}
	return "\033[0m"
}

// NewThemeCmd creates the theme command
func NewThemeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "theme [system|light|dark]",
		Short: "Show or set the display theme",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				fmt.Printf("Theme: %s\n", userconfig.GetTheme())
				return nil
			}

			if err := userconfig.SetTheme(args[0]); err != nil {
				return err
			}
			fmt.Printf("✓ Theme set to %s\n", args[0])
			return nil
		},
	}
}
