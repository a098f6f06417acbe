// Package clihelp holds the configuration loading and small plumbing
// shared by cmd/cosmo: everything that isn't VM/compiler logic but that a
// CLI entrypoint needs (config merge precedence, history file path,
// terminal detection).
package clihelp

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tailscale/hujson"
)

// Config holds the knobs `.cosmorc` can set (SPEC_FULL.md §2). GCStress
// and HistoryFile are used by cmd/cosmo; HeapGrowFactor is loaded and
// merged but is not passed to the VM.
type Config struct {
	HeapGrowFactor float64 `json:"heap_grow_factor,omitempty"` //nolint:tagliatelle
	GCStress       bool    `json:"gc_stress,omitempty"`        //nolint:tagliatelle
	HistoryFile    string  `json:"history_file,omitempty"`     //nolint:tagliatelle
}

// ConfigFileName is the project-local config file name.
const ConfigFileName = ".cosmorc"

// DefaultConfig mirrors the VM's own built-in grow factor (internal/vm's
// gcGrowFactor); the VM's initial GC threshold has no Config field.
func DefaultConfig() Config {
	return Config{
		HeapGrowFactor: 2,
		GCStress:       false,
		HistoryFile:    defaultHistoryFile(),
	}
}

func defaultHistoryFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".cosmo_history")
}

var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrConfigFileRead     = errors.New("cannot read config file")
	ErrConfigInvalid      = errors.New("invalid config file")
)

func globalConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "cosmo", "config.jsonc")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".config", "cosmo", "config.jsonc")
}

// Load applies defaults -> global config -> project .cosmorc -> explicit
// --config path, in that precedence order (SPEC_FULL.md §2).
func Load(workDir, explicitPath string) (Config, error) {
	cfg := DefaultConfig()

	if path := globalConfigPath(); path != "" {
		overlay, loaded, err := loadFile(path, false)
		if err != nil {
			return Config{}, err
		}

		if loaded {
			cfg = merge(cfg, overlay)
		}
	}

	projectPath := filepath.Join(workDir, ConfigFileName)

	overlay, loaded, err := loadFile(projectPath, false)
	if err != nil {
		return Config{}, err
	}

	if loaded {
		cfg = merge(cfg, overlay)
	}

	if explicitPath != "" {
		overlay, _, err := loadFile(explicitPath, true)
		if err != nil {
			return Config{}, err
		}

		cfg = merge(cfg, overlay)
	}

	return cfg, nil
}

func loadFile(path string, mustExist bool) (Config, bool, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is config-controlled, not request-controlled
	if err != nil {
		if os.IsNotExist(err) {
			if mustExist {
				return Config{}, false, fmt.Errorf("%w: %s", ErrConfigFileNotFound, path)
			}

			return Config{}, false, nil
		}

		return Config{}, false, fmt.Errorf("%w: %s", ErrConfigFileRead, path)
	}

	cfg, err := parse(data)
	if err != nil {
		return Config{}, false, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, err)
	}

	return cfg, true, nil
}

func parse(data []byte) (Config, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return Config{}, fmt.Errorf("invalid JSON: %w", err)
	}

	return cfg, nil
}

func merge(base, overlay Config) Config {
	if overlay.HeapGrowFactor != 0 {
		base.HeapGrowFactor = overlay.HeapGrowFactor
	}

	base.GCStress = base.GCStress || overlay.GCStress

	if overlay.HistoryFile != "" {
		base.HistoryFile = overlay.HistoryFile
	}

	return base
}
