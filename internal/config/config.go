// Package config loads the ssp tool configuration: the caller options and
// host description fed to the resolver, plus the demo server settings.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	ssp "github.com/goliatone/go-socialshare"
)

// EnvPrefix marks environment overrides. Nested keys are separated by a
// double underscore, e.g. SSP_SERVER__ADDR.
const EnvPrefix = "SSP_"

// Store backends accepted by the demo server.
const (
	StoreCookie = "cookie"
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// Config is the file layout.
type Config struct {
	// Caller holds caller options, merged over the built-in defaults.
	Caller map[string]any `koanf:"caller"`
	Host   HostConfig     `koanf:"host"`
	Server ServerConfig   `koanf:"server"`
}

// HostConfig describes the element a widget mounts into. Attributes are
// "name=value" strings because attribute names contain dots.
type HostConfig struct {
	ID         string     `koanf:"id"`
	Lang       string     `koanf:"lang"`
	Attributes []string   `koanf:"attributes"`
	Page       PageConfig `koanf:"page"`
}

type PageConfig struct {
	URL         string `koanf:"url"`
	Canonical   string `koanf:"canonical"`
	Title       string `koanf:"title"`
	Description string `koanf:"description"`
	Image       string `koanf:"image"`
	EmbedHint   string `koanf:"embed_hint"`
}

type ServerConfig struct {
	Addr       string `koanf:"addr"`
	Store      string `koanf:"store"`
	SQLitePath string `koanf:"sqlite_path"`
	Namespace  string `koanf:"namespace"`
	// AllowAll opens CORS to every origin.
	AllowAll bool `koanf:"allow_all"`
}

// DefaultConfig returns the settings used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Caller: map[string]any{},
		Host: HostConfig{
			ID:   "share",
			Lang: "en",
			Page: PageConfig{URL: "http://localhost:8080/", Title: "go-socialshare demo"},
		},
		Server: ServerConfig{
			Addr:       ":8080",
			Store:      StoreCookie,
			SQLitePath: "data/perma.db",
		},
	}
}

// Load reads path (when it exists) and overlays SSP_ environment variables.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := DefaultConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the server section.
func (c *Config) Validate() error {
	switch c.Server.Store {
	case StoreCookie, StoreMemory:
	case StoreSQLite:
		if c.Server.SQLitePath == "" {
			return fmt.Errorf("server.sqlite_path is required for the sqlite store")
		}
	default:
		return fmt.Errorf("invalid server.store %q: must be one of cookie, sqlite, memory", c.Server.Store)
	}
	for _, attr := range c.Host.Attributes {
		if !strings.Contains(attr, "=") {
			return fmt.Errorf("invalid host attribute %q: expected name=value", attr)
		}
	}
	return nil
}

// NewHost builds a fresh host. Each mount needs its own host because
// mounting marks it initialized.
func (c *Config) NewHost() *ssp.Host {
	attrs := make(map[string]string, len(c.Host.Attributes))
	for _, attr := range c.Host.Attributes {
		name, value, _ := strings.Cut(attr, "=")
		attrs[strings.TrimSpace(name)] = value
	}
	return &ssp.Host{
		ID:         c.Host.ID,
		Lang:       c.Host.Lang,
		Attributes: attrs,
		Page:       ssp.Page{
			URL:         c.Host.Page.URL,
			Canonical:   c.Host.Page.Canonical,
			Title:       c.Host.Page.Title,
			Description: c.Host.Page.Description,
			Image:       c.Host.Page.Image,
			EmbedHint:   c.Host.Page.EmbedHint,
		},
	}
}

// CallerValues returns a copy of the caller options.
func (c *Config) CallerValues() ssp.Values {
	out := make(ssp.Values, len(c.Caller))
	for key, value := range c.Caller {
		out[key] = value
	}
	return out
}
