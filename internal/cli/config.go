package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ConfigFileName is the file LoadConfig looks for.
const ConfigFileName = "specbuilder.toml"

// DefaultBackendCommand is the symbolic execution tool check-backend
// checks when nothing else is configured.
const DefaultBackendCommand = "crux-mir"

// Config holds defaults read from specbuilder.toml. Flags override every
// field.
type Config struct {
	DB             string `toml:"db"`
	Contracts      string `toml:"contracts"`
	BackendCommand string `toml:"backend_command"`
	MaxObjects     int    `toml:"max_objects"`

	// Path is the file the config was read from, empty when none was found.
	Path string `toml:"-"`
}

// LoadConfig reads path, or when path is empty the nearest specbuilder.toml
// in the working directory or its parents. A missing file yields the zero
// Config; relative paths in the file are resolved against its directory.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		found, ok, err := findConfig(".")
		if err != nil || !ok {
			return Config{}, err
		}
		path = found
	}

	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}
	if cfg.MaxObjects < 0 {
		return Config{}, fmt.Errorf("%s: max_objects must be non-negative", path)
	}

	cfg.Path = path
	dir := filepath.Dir(path)
	cfg.DB = resolveRelative(dir, cfg.DB)
	cfg.Contracts = resolveRelative(dir, cfg.Contracts)
	return cfg, nil
}

func findConfig(startDir string) (string, bool, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false, nil
		}
		dir = parent
	}
}

func resolveRelative(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}
