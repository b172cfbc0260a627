// Package config loads the portal's process-wide configuration: the bearer
// credential, the repo endpoint, and the challenge project view id.
//
// Environment variables win; a ~/.portal/config.json fallback covers setups
// where exporting secrets into the environment is awkward.
package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
)

// DefaultViewID is the production challenge project view.
const DefaultViewID = "syn51476218"

type Config struct {
	// AuthToken is the Synapse personal access token. Its absence is a
	// fatal startup condition, not a retryable error.
	AuthToken string `env:"SYNAPSE_AUTH_TOKEN"`
	Endpoint  string `env:"SYNAPSE_ENDPOINT"`
	ViewID    string `env:"PORTAL_VIEW_ID"`
}

type fileConfig struct {
	AuthToken string `json:"authToken,omitempty"`
	Endpoint  string `json:"endpoint,omitempty"`
	ViewID    string `json:"viewId,omitempty"`
}

// ErrMissingToken is returned when no credential can be found anywhere.
var ErrMissingToken = errors.New("config: missing auth token; set SYNAPSE_AUTH_TOKEN or add authToken to ~/.portal/config.json")

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".portal"), nil
}

// StateDir is the portal's local state directory (~/.portal). Secrets and
// session state live under it.
func StateDir() (string, error) {
	return configDir()
}

func ConfigPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// SessionDBPath is where the web UI keeps its browser-session state.
func SessionDBPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "sessions.sqlite"), nil
}

// Load reads the environment first, then fills gaps from the config file.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}

	if path, err := ConfigPath(); err == nil {
		if b, err := os.ReadFile(path); err == nil {
			var fc fileConfig
			if err := json.Unmarshal(b, &fc); err == nil {
				if strings.TrimSpace(cfg.AuthToken) == "" {
					cfg.AuthToken = fc.AuthToken
				}
				if strings.TrimSpace(cfg.Endpoint) == "" {
					cfg.Endpoint = fc.Endpoint
				}
				if strings.TrimSpace(cfg.ViewID) == "" {
					cfg.ViewID = fc.ViewID
				}
			}
		}
	}

	cfg.AuthToken = strings.TrimSpace(cfg.AuthToken)
	cfg.Endpoint = strings.TrimSpace(cfg.Endpoint)
	cfg.ViewID = strings.TrimSpace(cfg.ViewID)
	if cfg.ViewID == "" {
		cfg.ViewID = DefaultViewID
	}
	if cfg.AuthToken == "" {
		return Config{}, ErrMissingToken
	}
	return cfg, nil
}
