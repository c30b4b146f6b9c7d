package userconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	configDirName  = "stockd"
	configFileName = "config.json"
)

// Valid theme values. ThemeSystem defers to the terminal's own colors.
const (
	ThemeSystem = "system"
	ThemeLight  = "light"
	ThemeDark   = "dark"
)

// State holds display preferences. It is nested under "state" in the
// JSON file so the web dashboard and the CLI can share the same shape.
type State struct {
	Theme string `json:"theme"`
}

// UserConfig represents the user's local configuration stored in ~/.config/stockd/config.json
type UserConfig struct {
	SelectedServerAddress string `json:"selected_server_address,omitempty"`
	SelectedSiteID        string `json:"selected_site_id,omitempty"`
	State                 State  `json:"state"`
}

// GetConfigPath returns the path to the user config file
func GetConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, ".config", configDirName)
	return filepath.Join(configDir, configFileName), nil
}

// Load reads the user configuration file
func Load() (*UserConfig, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	// If config doesn't exist, return empty config
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return &UserConfig{State: State{Theme: ThemeSystem}}, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read user config file: %w", err)
	}

	var cfg UserConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse user config file: %w", err)
	}
	if cfg.State.Theme == "" {
		cfg.State.Theme = ThemeSystem
	}

	return &cfg, nil
}

// Save writes the user configuration to a file
func Save(cfg *UserConfig) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	// Create config directory if it doesn't exist
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal user config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write user config file: %w", err)
	}

	return nil
}

// SetSelectedServer updates the selected server address and saves the config
func SetSelectedServer(serverAddr string) error {
	cfg, err := Load()
	if err != nil {
		return err
	}

	cfg.SelectedServerAddress = serverAddr
	return Save(cfg)
}

// GetSelectedServer returns the selected server address, or empty string if not set
func GetSelectedServer() (string, error) {
	cfg, err := Load()
	if err != nil {
		return "", err
	}

	return cfg.SelectedServerAddress, nil
}

// SetSelectedSite updates the selected site ID and saves the config
func SetSelectedSite(siteID string) error {
	cfg, err := Load()
	if err != nil {
		return err
	}

	cfg.SelectedSiteID = siteID
	return Save(cfg)
}

// GetSelectedSite returns the selected site ID, or empty string if not set
func GetSelectedSite() (string, error) {
	cfg, err := Load()
	if err != nil {
		return "", err
	}

	return cfg.SelectedSiteID, nil
}

// SetTheme validates and persists the display theme
func SetTheme(theme string) error {
	switch theme {
	case ThemeSystem, ThemeLight, ThemeDark:
	default:
		return fmt.Errorf("invalid theme '%s', must be one of: system, light, dark", theme)
	}

	cfg, err := Load()
	if err != nil {
		return err
	}

	cfg.State.Theme = theme
	return Save(cfg)
}

// GetTheme returns the persisted theme, defaulting to system
func GetTheme() string {
	cfg, err := Load()
	if err != nil {
		return ThemeSystem
	}
	return cfg.State.Theme
}
