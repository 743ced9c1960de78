package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HAGGLE_DATA_DIR", dir)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DataDir != dir {
		t.Fatalf("data dir = %q, want %q", cfg.DataDir, dir)
	}
	if cfg.Chat.PollInterval != 3*time.Second {
		t.Fatalf("poll interval = %v", cfg.Chat.PollInterval)
	}
	if cfg.Chat.ListPollInterval != 5*time.Second {
		t.Fatalf("list poll interval = %v", cfg.Chat.ListPollInterval)
	}
	if cfg.Chat.RecentLimit != 50 || cfg.Chat.PageSize != 20 {
		t.Fatalf("limits = %d/%d", cfg.Chat.RecentLimit, cfg.Chat.PageSize)
	}
	if cfg.Log.File != filepath.Join(dir, "haggle.log") {
		t.Fatalf("log file = %q", cfg.Log.File)
	}
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte("api:\n  base_url: https://market.example/api\nchat:\n  page_size: 30\n  poll_interval: 1s\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HAGGLE_CHAT_RECENT_LIMIT", "10")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.BaseURL != "https://market.example/api" {
		t.Fatalf("base url = %q", cfg.API.BaseURL)
	}
	if cfg.Chat.PageSize != 30 {
		t.Fatalf("page size = %d", cfg.Chat.PageSize)
	}
	if cfg.Chat.PollInterval != time.Second {
		t.Fatalf("poll interval = %v", cfg.Chat.PollInterval)
	}
	if cfg.Chat.RecentLimit != 10 {
		t.Fatalf("recent limit = %d", cfg.Chat.RecentLimit)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty base url", func(c *Config) { c.API.BaseURL = "" }},
		{"zero poll", func(c *Config) { c.Chat.PollInterval = 0 }},
		{"zero page", func(c *Config) { c.Chat.PageSize = 0 }},
		{"zero notice", func(c *Config) { c.Chat.NoticeTTL = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{
				API:  APIConfig{BaseURL: "http://x"},
				Chat: ChatConfig{PollInterval: time.Second, ListPollInterval: time.Second, RecentLimit: 1, PageSize: 1, NoticeTTL: time.Second},
			}
			if err := cfg.Validate(); err != nil {
				t.Fatalf("baseline invalid: %v", err)
			}
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
