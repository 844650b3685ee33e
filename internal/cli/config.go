package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/flowdiagram/pkg/diagram"
	"github.com/matzehuels/flowdiagram/pkg/store"
)

// Config is the flowdiagram configuration file.
//
//	[canvas]
//	width = 1280
//	height = 800
//	padding = 100
//
//	[store]
//	backend = "file"
//	dir = "./flows"
//
//	[cache]
//	dir = ""        # defaults to the XDG cache dir
//	redis_addr = "" # share rendered artifacts through Redis
//
//	[server]
//	addr = ":8080"
type Config struct {
	Canvas CanvasConfig `toml:"canvas"`
	Store  store.Config `toml:"store"`
	Cache  CacheConfig  `toml:"cache"`
	Server ServerConfig `toml:"server"`
}

// CanvasConfig is the virtual canvas flows are fitted into.
type CanvasConfig struct {
	diagram.Size
	Padding  float64 `toml:"padding"`
	ReadOnly bool    `toml:"read_only"`
}

// CacheConfig selects the artifact cache.
type CacheConfig struct {
	Dir       string `toml:"dir"`
	RedisAddr string `toml:"redis_addr"`
	Disabled  bool   `toml:"disabled"`
}

// ServerConfig configures `flowdiagram serve`.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	return Config{
		Canvas: CanvasConfig{
			Size:    diagram.Size{Width: 1280, Height: 800},
			Padding: diagram.DefaultPadding,
		},
		Store:  store.Config{Backend: store.BackendFile, Dir: "."},
		Server: ServerConfig{Addr: ":8080"},
	}
}

// LoadConfig reads path over the defaults. A missing file is not an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// configPath returns the default config file using the XDG standard
// (~/.config/flowdiagram/config.toml).
func configPath() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}
