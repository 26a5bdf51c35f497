package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDiscoverIndexDirWalksUpToMarker(t *testing.T) {
	tmpDir := t.TempDir()
	sub := filepath.Join(tmpDir, "a", "b", "c")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	marker := filepath.Join(tmpDir, RootMarkerFile)
	if err := os.WriteFile(marker, []byte("/var/cache/everdex\r\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, ok := DiscoverIndexDir(sub)
	if !ok {
		t.Fatal("DiscoverIndexDir() = not found, want found")
	}
	if got != "/var/cache/everdex" {
		t.Errorf("DiscoverIndexDir() = %q, want %q", got, "/var/cache/everdex")
	}
}

func TestDiscoverIndexDirNotFound(t *testing.T) {
	tmpDir := t.TempDir()
	if _, ok := DiscoverIndexDir(tmpDir); ok {
		t.Error("DiscoverIndexDir() = found, want not found")
	}
}

func TestResolveIndexDirFlagWins(t *testing.T) {
	tmpDir := t.TempDir()
	marker := filepath.Join(tmpDir, RootMarkerFile)
	if err := os.WriteFile(marker, []byte("/from/marker"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := ResolveIndexDir("/from/flag", tmpDir)
	if err != nil {
		t.Fatalf("ResolveIndexDir: %v", err)
	}
	if got != "/from/flag" {
		t.Errorf("ResolveIndexDir() = %q, want %q", got, "/from/flag")
	}

	got, err = ResolveIndexDir("", tmpDir)
	if err != nil {
		t.Fatalf("ResolveIndexDir: %v", err)
	}
	if got != "/from/marker" {
		t.Errorf("ResolveIndexDir() = %q, want %q", got, "/from/marker")
	}
}

func TestResolveIndexDirFallsBackToDefault(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdgconf"))

	got, err := ResolveIndexDir("", tmpDir)
	if err != nil {
		t.Fatalf("ResolveIndexDir: %v", err)
	}
	want, err := DefaultIndexDir()
	if err != nil {
		t.Fatalf("DefaultIndexDir: %v", err)
	}
	if got != want {
		t.Errorf("ResolveIndexDir() = %q, want %q", got, want)
	}
}

func TestLoadDefaultsWhenNoConfigFile(t *testing.T) {
	indexDir := t.TempDir()
	cfg, err := Load(indexDir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.IndexDir != indexDir {
		t.Errorf("IndexDir = %q, want %q", cfg.IndexDir, indexDir)
	}
	if cfg.IgnoreCase {
		t.Error("IgnoreCase default = true, want false")
	}
	if len(cfg.ExcludePatterns) != 0 {
		t.Errorf("ExcludePatterns default = %v, want empty", cfg.ExcludePatterns)
	}
}

func TestLoadReadsConfigFile(t *testing.T) {
	indexDir := t.TempDir()
	content := "exclude_patterns:\n  - \"*.log\"\n  - vendor/**\nignore_case: true\n"
	if err := os.WriteFile(filepath.Join(indexDir, ConfigFileName), []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(indexDir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.IgnoreCase {
		t.Error("IgnoreCase = false, want true")
	}
	if len(cfg.ExcludePatterns) != 2 || cfg.ExcludePatterns[0] != "*.log" {
		t.Errorf("ExcludePatterns = %v, want [*.log vendor/**]", cfg.ExcludePatterns)
	}
}

func TestWriteConfigRoundTrips(t *testing.T) {
	indexDir := t.TempDir()
	path := filepath.Join(indexDir, ConfigFileName)
	cfg := &Config{ExcludePatterns: []string{"*.tmp"}, IgnoreCase: true}
	if err := WriteConfig(cfg, path); err != nil {
		t.Fatalf("WriteConfig: %v", err)
	}

	loaded, err := Load(indexDir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !loaded.IgnoreCase || len(loaded.ExcludePatterns) != 1 || loaded.ExcludePatterns[0] != "*.tmp" {
		t.Errorf("loaded = %+v, want matching cfg", loaded)
	}
}
