package config

import (
	"errors"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	toml "github.com/pelletier/go-toml/v2"
)

const defaultServerURL = "http://127.0.0.1:8787"

type Config struct {
	Server  ServerConfig  `toml:"server"`
	Logging LoggingConfig `toml:"logging"`
	Store   StoreConfig   `toml:"store"`
	UI      UIConfig      `toml:"ui"`
}

type ServerConfig struct {
	URL   string `toml:"url" env:"PARLEY_SERVER_URL"`
	Token string `toml:"-" env:"PARLEY_TOKEN"`
}

type LoggingConfig struct {
	Level string `toml:"level" env:"PARLEY_LOG_LEVEL"`
}

type StoreConfig struct {
	Backend string `toml:"backend" env:"PARLEY_STORE_BACKEND"`
}

type UIConfig struct {
	Markdown *bool `toml:"markdown"`
}

func DefaultConfig() Config {
	return Config{
		Server:  ServerConfig{URL: defaultServerURL},
		Logging: LoggingConfig{Level: "info"},
		Store:   StoreConfig{Backend: "file"},
	}
}

// Load reads config.toml from the data dir (defaults when missing) and
// applies environment overrides on top.
func Load() (Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return Config{}, err
	}
	return loadFromPath(path)
}

func loadFromPath(path string) (Config, error) {
	cfg := DefaultConfig()
	if err := readTOML(path, &cfg); err != nil {
		return Config{}, err
	}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readTOML(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return toml.Unmarshal(data, v)
}

func (c Config) ServerURL() string {
	url := strings.TrimSpace(c.Server.URL)
	if url == "" {
		return defaultServerURL
	}
	return strings.TrimRight(url, "/")
}

func (c Config) LogLevel() string {
	level := strings.TrimSpace(c.Logging.Level)
	if level == "" {
		return "info"
	}
	return level
}

func (c Config) StoreBackend() string {
	return strings.ToLower(strings.TrimSpace(c.Store.Backend))
}

// MarkdownEnabled defaults to on; the TOML key exists to switch the
// glamour renderer off on terminals it misbehaves on.
func (c Config) MarkdownEnabled() bool {
	if c.UI.Markdown == nil {
		return true
	}
	return *c.UI.Markdown
}
