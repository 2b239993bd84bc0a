package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tailscale/hujson"

	"github.com/mulesoftforge/chunkstream/pkg/chunkstream"
)

// Strategy names accepted by the config file and the --strategy flag.
const (
	StrategyNonRepeatable = "non-repeatable"
	StrategySlidingWindow = "sliding-window"
	StrategyInMemory      = "in-memory"
	StrategyFileStore     = "file-store"
)

// Config holds all configuration options.
type Config struct {
	ChunkSize       int    `json:"chunk_size"`        //nolint:tagliatelle // snake_case for config file
	MaxCachedChunks int    `json:"max_cached_chunks"` //nolint:tagliatelle // snake_case for config file
	Strategy        string `json:"strategy"`
}

// ConfigFileName is the default project config file name.
const ConfigFileName = ".chunkcat.json"

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		ChunkSize:       chunkstream.DefaultChunkSize,
		MaxCachedChunks: chunkstream.DefaultMaxCachedChunks,
		Strategy:        StrategySlidingWindow,
	}
}

// LoadConfig loads configuration with the following precedence (highest wins):
// 1. Defaults
// 2. Project config file at default location (.chunkcat.json, if exists)
// 3. Explicit config file via configPath (if non-empty)
//
// Per-command flags are applied on top by the commands themselves.
func LoadConfig(workDir, configPath string) (Config, string, error) {
	cfg := DefaultConfig()

	var cfgFile string

	var mustExist bool

	if configPath != "" {
		// Explicit config file, must exist.
		cfgFile = configPath
		if !filepath.IsAbs(cfgFile) {
			cfgFile = filepath.Join(workDir, cfgFile)
		}

		mustExist = true

		if _, err := os.Stat(cfgFile); err != nil {
			return Config{}, "", fmt.Errorf("%w: %s", errConfigFileNotFound, configPath)
		}
	} else {
		cfgFile = filepath.Join(workDir, ConfigFileName)
		mustExist = false
	}

	fileCfg, loaded, err := loadConfigFile(cfgFile, mustExist)
	if err != nil {
		return Config{}, "", err
	}

	if !loaded {
		return cfg, "", nil
	}

	cfg = mergeConfig(cfg, fileCfg)

	if err := validateConfig(cfg); err != nil {
		return Config{}, "", fmt.Errorf("%w %s: %w", errConfigInvalid, cfgFile, err)
	}

	return cfg, cfgFile, nil
}

// loadConfigFile loads a config file. If mustExist is false, missing files
// return zero config. Returns the config, whether the file was loaded, and
// any error.
func loadConfigFile(path string, mustExist bool) (Config, bool, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is intentionally user-controlled
	if err != nil {
		if os.IsNotExist(err) && !mustExist {
			return Config{}, false, nil
		}

		if mustExist {
			return Config{}, false, fmt.Errorf("%w: reading %s: %w", errConfigInvalid, path, err)
		}

		return Config{}, false, nil
	}

	cfg, parseErr := parseConfig(data)
	if parseErr != nil {
		return Config{}, false, fmt.Errorf("%w %s: %w", errConfigInvalid, path, parseErr)
	}

	return cfg, true, nil
}

func parseConfig(data []byte) (Config, error) {
	// Standardize JSONC to JSON
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

func mergeConfig(base, overlay Config) Config {
	if overlay.ChunkSize != 0 {
		base.ChunkSize = overlay.ChunkSize
	}

	if overlay.MaxCachedChunks != 0 {
		base.MaxCachedChunks = overlay.MaxCachedChunks
	}

	if overlay.Strategy != "" {
		base.Strategy = overlay.Strategy
	}

	return base
}

func validateConfig(cfg Config) error {
	if cfg.ChunkSize <= 0 {
		return errChunkSizeInvalid
	}

	if cfg.MaxCachedChunks <= 0 {
		return errMaxCachedInvalid
	}

	return validateStrategy(cfg.Strategy)
}

func validateStrategy(strategy string) error {
	switch strategy {
	case StrategyNonRepeatable, StrategySlidingWindow, StrategyInMemory, StrategyFileStore:
		return nil
	default:
		return fmt.Errorf("%w: %s", errStrategyInvalid, strategy)
	}
}

// FormatConfig returns the config as formatted JSON.
func FormatConfig(cfg Config) (string, error) {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to format config: %w", err)
	}

	return string(data), nil
}
