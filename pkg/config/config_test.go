package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Port != 4649 {
		t.Errorf("default port = %d, want 4649", cfg.Server.Port)
	}
	if cfg.Session.TTLSeconds != 86400 {
		t.Errorf("default session TTL = %d, want 86400", cfg.Session.TTLSeconds)
	}
	if cfg.Engine.Channel != "facebook" {
		t.Errorf("default channel = %q, want facebook", cfg.Engine.Channel)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 4649 {
		t.Errorf("port = %d, want default 4649", cfg.Server.Port)
	}
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{
  "facebook": {"page_access_token": "file-token", "verify_token": "file-verify"},
  "engine": {"url": "https://engine.example.com/bot"},
  "server": {"port": 8080}
}`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("FB_PAGE_ACCESS_TOKEN", "env-token")
	t.Setenv("PORT", "9090")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Facebook.PageAccessToken != "env-token" {
		t.Errorf("token = %q, env should beat file", cfg.Facebook.PageAccessToken)
	}
	if cfg.Facebook.VerifyToken != "file-verify" {
		t.Errorf("verify token = %q, want file value", cfg.Facebook.VerifyToken)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, env should beat file", cfg.Server.Port)
	}
	if cfg.Engine.URL != "https://engine.example.com/bot" {
		t.Errorf("engine url = %q", cfg.Engine.URL)
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for empty config")
	}

	cfg.Facebook.PageAccessToken = "t"
	cfg.Facebook.VerifyToken = "v"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing engine URL")
	}

	cfg.Engine.URL = "https://engine.example.com"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
