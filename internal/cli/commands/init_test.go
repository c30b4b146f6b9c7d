package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stockd-dev/stockd/internal/cli/config"
)

func chdirTemp(t *testing.T) string {
	t.Helper()

	tempDir := t.TempDir()
	originalDir, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(tempDir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(originalDir) })
	return tempDir
}

func TestInitCreatesConfig(t *testing.T) {
	tempDir := chdirTemp(t)

	if err := runInit(nil, []string{"10.0.0.9"}); err != nil {
		t.Fatalf("init: %v", err)
	}

	cfg, err := config.Load(filepath.Join(tempDir, config.ConfigFileName))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Servers) != 1 {
		t.Fatalf("servers = %d, want 1", len(cfg.Servers))
	}
	if cfg.Servers[0].Address != "10.0.0.9" || cfg.Servers[0].Alias != "head-office" {
		t.Errorf("server = %+v", cfg.Servers[0])
	}
}

func TestInitAppendsSecondServer(t *testing.T) {
	tempDir := chdirTemp(t)

	if err := runInit(nil, []string{"10.0.0.9"}); err != nil {
		t.Fatal(err)
	}
	if err := runInit(nil, []string{"10.0.0.10"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load(filepath.Join(tempDir, config.ConfigFileName))
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Servers) != 2 {
		t.Fatalf("servers = %d, want 2", len(cfg.Servers))
	}
	if cfg.Servers[1].Alias != "server-2" {
		t.Errorf("second alias = %s", cfg.Servers[1].Alias)
	}
}

func TestInitDoesNotDuplicateServer(t *testing.T) {
	tempDir := chdirTemp(t)

	if err := runInit(nil, []string{"10.0.0.9"}); err != nil {
		t.Fatal(err)
	}
	if err := runInit(nil, []string{"10.0.0.9"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load(filepath.Join(tempDir, config.ConfigFileName))
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Servers) != 1 {
		t.Errorf("servers = %d, want 1 (no duplicates)", len(cfg.Servers))
	}
}
