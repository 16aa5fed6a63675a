package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Orchestrator OrchestratorRuntimeConfig `toml:"orchestrator"`
	Solver       SolverConfig              `toml:"solver"`
	Raw          map[string]any            `toml:"-"`
	Path         string                    `toml:"-"`
}

type OrchestratorRuntimeConfig struct {
	Addr            string `toml:"addr"`
	DBPath          string `toml:"db_path"`
	InputsRoot      string `toml:"inputs_root"`
	RedisURL        string `toml:"redis_url"`
	CacheTTLSeconds int    `toml:"cache_ttl_seconds"`
	SolveTimeoutMS  int    `toml:"solve_timeout_ms"`
	EventBuffer     int    `toml:"event_buffer"`
	MaxInputBytes   int64  `toml:"max_input_bytes"`
}

type SolverConfig struct {
	Memoize *bool `toml:"memoize"`
}

// MemoizeEnabled defaults to true when the key is absent.
func (s SolverConfig) MemoizeEnabled() bool {
	if s.Memoize == nil {
		return true
	}
	return *s.Memoize
}

// Load reads a TOML config. An empty path falls back to
// ~/.valvenet/config.toml, and a missing default file yields an empty config.
func Load(path string) (Config, error) {
	resolved := path
	explicit := resolved != ""
	if !explicit {
		resolved = defaultConfigPath()
	}
	if strings.HasPrefix(resolved, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("resolve home directory: %w", err)
		}
		trimmed := strings.TrimPrefix(resolved, "~")
		trimmed = strings.TrimPrefix(trimmed, "\\")
		trimmed = strings.TrimPrefix(trimmed, "/")
		resolved = filepath.Join(home, trimmed)
	}
	resolved = filepath.Clean(resolved)

	bytes, err := os.ReadFile(resolved)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Config{Path: resolved}, nil
		}
		return Config{}, fmt.Errorf("read config file %s: %w", resolved, err)
	}
	return Parse(string(bytes), resolved)
}

func Parse(data string, path string) (Config, error) {
	var cfg Config
	if _, err := toml.Decode(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config file: %w", err)
	}
	var raw map[string]any
	if _, err := toml.Decode(data, &raw); err != nil {
		return Config{}, fmt.Errorf("decode raw config: %w", err)
	}
	cfg.Raw = raw
	cfg.Path = path
	return cfg, nil
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".valvenet/config.toml"
	}
	return filepath.Join(home, ".valvenet", "config.toml")
}
