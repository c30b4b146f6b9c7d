package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)

	cfg := &Config{
		Servers: []Server{
			{Address: "stock.example.com", Alias: "head-office"},
			{Address: "10.0.0.5", Alias: "warehouse"},
		},
	}

	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if len(loaded.Servers) != 2 {
		t.Fatalf("servers = %d, want 2", len(loaded.Servers))
	}
	if loaded.Servers[0].Alias != "head-office" || loaded.Servers[0].Address != "stock.example.com" {
		t.Errorf("first server = %+v", loaded.Servers[0])
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)

	if err := os.WriteFile(path, []byte("servers: [unterminated"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected parse error for malformed YAML")
	}
}

func TestFindConfigFileSearchesUpwards(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(root, ConfigFileName)
	if err := Save(path, DefaultConfig()); err != nil {
		t.Fatal(err)
	}

	originalDir, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(originalDir)

	if err := os.Chdir(nested); err != nil {
		t.Fatal(err)
	}

	found, err := FindConfigFile()
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	// Resolve symlinks before comparing (macOS tempdirs)
	wantReal, _ := filepath.EvalSymlinks(path)
	foundReal, _ := filepath.EvalSymlinks(found)
	if foundReal != wantReal {
		t.Errorf("found %s, want %s", found, path)
	}
}

func TestGetServerByAlias(t *testing.T) {
	cfg := &Config{
		Servers: []Server{
			{Address: "10.0.0.1", Alias: "head-office"},
			{Address: "10.0.0.2", Alias: "warehouse"},
		},
	}

	server, err := cfg.GetServerByAlias("warehouse")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if server.Address != "10.0.0.2" {
		t.Errorf("address = %s", server.Address)
	}

	if _, err := cfg.GetServerByAlias("missing"); err == nil {
		t.Error("expected error for unknown alias")
	}
}

func TestGetDefaultServer(t *testing.T) {
	empty := &Config{}
	if _, err := empty.GetDefaultServer(); err == nil {
		t.Error("expected error for empty server list")
	}

	cfg := &Config{Servers: []Server{{Address: "10.0.0.1", Alias: "only"}}}
	server, err := cfg.GetDefaultServer()
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	if server.Alias != "only" {
		t.Errorf("alias = %s", server.Alias)
	}
}
