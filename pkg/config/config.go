package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Facebook FacebookConfig `json:"facebook"`
	Engine   EngineConfig   `json:"engine"`
	Session  SessionConfig  `json:"session"`
	Server   ServerConfig   `json:"server"`
	Tunnel   TunnelConfig   `json:"tunnel"`
	Log      LogConfig      `json:"log"`
}

type FacebookConfig struct {
	PageAccessToken string `env:"FB_PAGE_ACCESS_TOKEN" json:"page_access_token"`
	VerifyToken     string `env:"FB_VERIFY_TOKEN"      json:"verify_token"`
	// AppSecret enables X-Hub-Signature-256 validation on inbound webhooks
	// when set. Empty disables the check.
	AppSecret          string `env:"FB_APP_SECRET"   json:"app_secret,omitempty"`
	APIBase            string `env:"FB_API_BASE"     json:"api_base"`
	SendTimeoutSeconds int    `env:"FB_SEND_TIMEOUT" json:"send_timeout_seconds"`
}

type EngineConfig struct {
	URL            string `env:"TENEO_ENGINE_URL" json:"url"`
	Channel        string `env:"TENEO_CHANNEL"    json:"channel"`
	TimeoutSeconds int    `env:"TENEO_TIMEOUT"    json:"timeout_seconds"`
}

type SessionConfig struct {
	// RedisURL selects the persistent store when non-empty; otherwise
	// sessions live in process memory.
	RedisURL   string `env:"REDIS_URL"   json:"redis_url,omitempty"`
	TTLSeconds int    `env:"SESSION_TTL" json:"ttl_seconds"`
}

type ServerConfig struct {
	Host string `env:"HOST" json:"host"`
	Port int    `env:"PORT" json:"port"`
}

type TunnelConfig struct {
	Enabled   bool   `env:"TUNNEL_ENABLED"   json:"enabled"`
	Subdomain string `env:"SUBDOMAIN_PREFIX" json:"subdomain,omitempty"`
}

type LogConfig struct {
	Level string `env:"LOG_LEVEL" json:"level"`
}

func DefaultConfig() *Config {
	return &Config{
		Facebook: FacebookConfig{
			APIBase:            "https://graph.facebook.com/v2.6",
			SendTimeoutSeconds: 10,
		},
		Engine: EngineConfig{
			Channel:        "facebook",
			TimeoutSeconds: 15,
		},
		Session: SessionConfig{
			TTLSeconds: 86400,
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 4649,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadConfig reads the JSON config file at path (a missing file is fine, the
// defaults apply) and then overlays environment variables.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// Validate checks the options without which the relay cannot run.
func (c *Config) Validate() error {
	if c.Facebook.PageAccessToken == "" {
		return errors.New("FB_PAGE_ACCESS_TOKEN is required")
	}
	if c.Facebook.VerifyToken == "" {
		return errors.New("FB_VERIFY_TOKEN is required")
	}
	if c.Engine.URL == "" {
		return errors.New("TENEO_ENGINE_URL is required")
	}
	return nil
}

func (c *Config) EngineTimeout() time.Duration {
	return time.Duration(c.Engine.TimeoutSeconds) * time.Second
}

func (c *Config) SendTimeout() time.Duration {
	return time.Duration(c.Facebook.SendTimeoutSeconds) * time.Second
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Session.TTLSeconds) * time.Second
}
