package gateway

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the gateway configuration. Values come from an optional TOML
// file with CLI flags layered on top.
type Config struct {
	// Address to listen on (e.g., ":8080")
	ListenAddr string `toml:"listen_addr"`

	// AuthChatURL is the authenticated assistant endpoint. Optional; without
	// it (or without a token) every turn goes straight to the public path.
	AuthChatURL string `toml:"auth_chat_url"`

	// AuthToken is the bearer credential for the authenticated endpoint.
	AuthToken string `toml:"auth_token"`

	// PublicChatURL is the public fallback assistant endpoint.
	PublicChatURL string `toml:"public_chat_url"`

	// DBPath is the path to the SQLite recents cache.
	// Empty selects the in-memory cache.
	DBPath string `toml:"db_path"`

	// RequestTimeoutSeconds bounds each upstream chat call.
	RequestTimeoutSeconds int `toml:"request_timeout_seconds"`

	// Debug enables debug logging.
	Debug bool `toml:"debug"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		ListenAddr:            ":8080",
		RequestTimeoutSeconds: 30,
	}
}

// LoadConfig reads a TOML config file over the defaults.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()
	if path == "" {
		return config, nil
	}
	if _, err := toml.DecodeFile(path, &config); err != nil {
		return Config{}, fmt.Errorf("decode config %s: %w", path, err)
	}
	return config, nil
}

// RequestTimeout returns the upstream call timeout as a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}
