package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.DefaultSession = "night"
	cfg.Poll.Chat = Duration{5 * time.Second}
	cfg.Metrics.Addr = "127.0.0.1:9477"
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.DefaultSession != "night" {
		t.Errorf("DefaultSession = %q, want night", loaded.DefaultSession)
	}
	if loaded.Poll.Chat.Duration != 5*time.Second {
		t.Errorf("Poll.Chat = %v, want 5s", loaded.Poll.Chat)
	}
	if loaded.Metrics.Addr != "127.0.0.1:9477" {
		t.Errorf("Metrics.Addr = %q", loaded.Metrics.Addr)
	}
}

func TestLoadFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[poll]\norders = \"20s\"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Poll.Orders.Duration != 20*time.Second {
		t.Errorf("Poll.Orders = %v, want 20s", cfg.Poll.Orders)
	}
	if cfg.Poll.Notifications.Duration != 3*time.Second {
		t.Errorf("Poll.Notifications = %v, want default 3s", cfg.Poll.Notifications)
	}
	if cfg.API.BaseURL != "https://admin.tadhem.com/api" {
		t.Errorf("API.BaseURL = %q", cfg.API.BaseURL)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := map[string]string{
		"unparseable duration": "[poll]\nchat = \"soon\"\n",
		"zero interval":        "[poll]\nchat = \"0s\"\n",
		"empty base url":       "[api]\nbase_url = \"\"\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(body), 0600); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("Load() expected error")
			}
		})
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load("/nonexistent/config.toml"); err == nil {
		t.Error("Load() expected error for missing file")
	}
	cfg, err := LoadOrDefault("/nonexistent/config.toml")
	if err != nil {
		t.Fatalf("LoadOrDefault() error = %v", err)
	}
	if cfg.Poll.Orders.Duration != 10*time.Second {
		t.Errorf("default Poll.Orders = %v", cfg.Poll.Orders)
	}
}

func TestSavePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	if err := Save(path, Default()); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file permission = %o, want 0600", perm)
	}
}
