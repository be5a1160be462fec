// Package config loads buo's layered JSONC configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tailscale/hujson"

	"github.com/calvinalkan/buo/internal/logging"
	"github.com/calvinalkan/buo/pkg/slotcache"
)

// Config holds all configuration options.
type Config struct {
	// From config files (serialized)
	CachePath        string `json:"cache_path,omitempty"`
	CacheCapacity    int    `json:"cache_capacity,omitempty"`
	CacheCompression string `json:"cache_compression,omitempty"`
	CandidatesPath   string `json:"candidates_path,omitempty"`
	CandidateLimit   int    `json:"candidate_limit,omitempty"`
	CandidateRoot    string `json:"candidate_root,omitempty"`
	MaxWalkDepth     int    `json:"max_walk_depth,omitempty"`
	FFprobe          string `json:"ffprobe,omitempty"`
	Jobs             int    `json:"jobs,omitempty"`
	LogLevel         string `json:"log_level,omitempty"`
	LogFormat        string `json:"log_format,omitempty"`

	// Resolved values (computed, not serialized)
	EffectiveCwd      string                `json:"-"`
	CachePathAbs      string                `json:"-"`
	CandidatesPathAbs string                `json:"-"`
	CandidateRootAbs  string                `json:"-"`
	Compression       slotcache.Compression `json:"-"`

	// Sources tracks which config files were loaded (for diagnostics)
	Sources Sources `json:"-"`
}

// Sources tracks which config files were loaded.
type Sources struct {
	Global  string // Path to global config if loaded, empty otherwise
	Project string // Path to project config if loaded, empty otherwise
}

// Defaults.
const (
	DefaultCacheCapacity  = 4096
	DefaultCandidateLimit = 64
	DefaultMaxWalkDepth   = 64
	DefaultJobs           = 4
)

// FileName is the project config file name.
const FileName = ".buo.json"

// Default returns the default configuration. Cache files live under
// $XDG_CACHE_HOME/buo (or ~/.cache/buo); without either, under .buo-cache in
// the working directory.
func Default(env map[string]string) Config {
	cacheDir := ".buo-cache"

	switch {
	case env["XDG_CACHE_HOME"] != "":
		cacheDir = filepath.Join(env["XDG_CACHE_HOME"], "buo")
	case env["HOME"] != "":
		cacheDir = filepath.Join(env["HOME"], ".cache", "buo")
	}

	return Config{
		CachePath:        filepath.Join(cacheDir, "cache.bin"),
		CacheCapacity:    DefaultCacheCapacity,
		CacheCompression: "zstd",
		CandidatesPath:   filepath.Join(cacheDir, "candidates.json"),
		CandidateLimit:   DefaultCandidateLimit,
		CandidateRoot:    ".",
		MaxWalkDepth:     DefaultMaxWalkDepth,
		FFprobe:          "ffprobe",
		Jobs:             DefaultJobs,
		LogLevel:         "warn",
		LogFormat:        logging.FormatConsole,
	}
}

// globalPath returns $XDG_CONFIG_HOME/buo/config.json, else
// ~/.config/buo/config.json, else "".
func globalPath(env map[string]string) string {
	if xdgConfig := env["XDG_CONFIG_HOME"]; xdgConfig != "" {
		return filepath.Join(xdgConfig, "buo", "config.json")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "buo", "config.json")
	}

	return ""
}

// Input holds the inputs for [Load].
type Input struct {
	WorkDirOverride   string            // -C/--cwd flag value; if empty, os.Getwd() is used
	ConfigPath        string            // -c/--config flag value
	CachePathOverride string            // --cache flag value; empty means no override
	Env               map[string]string // environment variables
}

// Load loads configuration with the following precedence (highest wins):
// 1. Defaults
// 2. Global user config (~/.config/buo/config.json or $XDG_CONFIG_HOME/buo/config.json)
// 3. Project config file (.buo.json in the working directory, if it exists)
// 4. Explicit config file via ConfigPath (replaces 3, must exist)
// 5. CLI overrides.
//
// All paths in the returned Config are resolved to absolute paths.
func Load(input Input) (Config, error) {
	workDir := input.WorkDirOverride
	if workDir == "" {
		var err error

		workDir, err = os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("cannot get working directory: %w", err)
		}
	}

	workDir, err := filepath.Abs(workDir)
	if err != nil {
		return Config{}, fmt.Errorf("resolve working directory: %w", err)
	}

	cfg := Default(input.Env)

	if path := globalPath(input.Env); path != "" {
		globalCfg, loaded, err := loadFile(path, false)
		if err != nil {
			return Config{}, err
		}

		if loaded {
			cfg.Sources.Global = path
			cfg = merge(cfg, globalCfg)
		}
	}

	projectCfg, projectPath, err := loadProject(workDir, input.ConfigPath)
	if err != nil {
		return Config{}, err
	}

	cfg.Sources.Project = projectPath
	cfg = merge(cfg, projectCfg)

	if input.CachePathOverride != "" {
		cfg.CachePath = input.CachePathOverride
	}

	if err := validate(&cfg); err != nil {
		return Config{}, err
	}

	cfg.EffectiveCwd = workDir
	cfg.CachePathAbs = absolute(workDir, cfg.CachePath)
	cfg.CandidatesPathAbs = absolute(workDir, cfg.CandidatesPath)
	cfg.CandidateRootAbs = absolute(workDir, cfg.CandidateRoot)

	return cfg, nil
}

func absolute(workDir, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}

	return filepath.Join(workDir, path)
}

// loadProject loads .buo.json from workDir or, when configPath is set, that
// file instead.
func loadProject(workDir, configPath string) (Config, string, error) {
	if configPath == "" {
		path := filepath.Join(workDir, FileName)

		cfg, loaded, err := loadFile(path, false)
		if err != nil || !loaded {
			return Config{}, "", err
		}

		return cfg, path, nil
	}

	path := absolute(workDir, configPath)

	if _, err := os.Stat(path); err != nil {
		return Config{}, "", fmt.Errorf("%w: %s", ErrConfigFileNotFound, configPath)
	}

	cfg, _, err := loadFile(path, true)
	if err != nil {
		return Config{}, "", err
	}

	return cfg, path, nil
}

// loadFile loads one config file. A missing file is not an error unless
// mustExist is set.
func loadFile(path string, mustExist bool) (Config, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !mustExist {
			return Config{}, false, nil
		}

		return Config{}, false, fmt.Errorf("%w: %s: %w", ErrConfigFileRead, path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return Config{}, false, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, err)
	}

	return cfg, true, nil
}

// Parse parses JSONC config data. Keys set to an empty path are rejected.
func Parse(data []byte) (Config, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var cfg Config

	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return Config{}, fmt.Errorf("invalid JSON: %w", err)
	}

	var raw map[string]any

	_ = json.Unmarshal(standardized, &raw)

	for _, key := range []string{"cache_path", "candidates_path", "candidate_root", "ffprobe"} {
		if val, exists := raw[key]; exists {
			if str, ok := val.(string); ok && str == "" {
				return Config{}, fmt.Errorf("%s: %w", key, ErrPathEmpty)
			}
		}
	}

	if val, exists := raw["max_walk_depth"]; exists {
		if n, ok := val.(float64); ok && n < 1 {
			return Config{}, ErrDepthInvalid
		}
	}

	return cfg, nil
}

func merge(base, overlay Config) Config {
	if overlay.CachePath != "" {
		base.CachePath = overlay.CachePath
	}

	if overlay.CacheCapacity != 0 {
		base.CacheCapacity = overlay.CacheCapacity
	}

	if overlay.CacheCompression != "" {
		base.CacheCompression = overlay.CacheCompression
	}

	if overlay.CandidatesPath != "" {
		base.CandidatesPath = overlay.CandidatesPath
	}

	if overlay.CandidateLimit != 0 {
		base.CandidateLimit = overlay.CandidateLimit
	}

	if overlay.CandidateRoot != "" {
		base.CandidateRoot = overlay.CandidateRoot
	}

	if overlay.MaxWalkDepth != 0 {
		base.MaxWalkDepth = overlay.MaxWalkDepth
	}

	if overlay.FFprobe != "" {
		base.FFprobe = overlay.FFprobe
	}

	if overlay.Jobs != 0 {
		base.Jobs = overlay.Jobs
	}

	if overlay.LogLevel != "" {
		base.LogLevel = overlay.LogLevel
	}

	if overlay.LogFormat != "" {
		base.LogFormat = overlay.LogFormat
	}

	return base
}

func validate(cfg *Config) error {
	if cfg.CacheCapacity < 1 || cfg.CacheCapacity > slotcache.MaxCapacity {
		return fmt.Errorf("%w: %d", ErrCapacityInvalid, cfg.CacheCapacity)
	}

	compression, err := slotcache.ParseCompression(cfg.CacheCompression)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrCompressionInvalid, cfg.CacheCompression)
	}

	cfg.Compression = compression

	if cfg.CandidateLimit < 1 {
		return fmt.Errorf("%w: %d", ErrLimitInvalid, cfg.CandidateLimit)
	}

	if cfg.MaxWalkDepth < 1 {
		return fmt.Errorf("%w: %d", ErrDepthInvalid, cfg.MaxWalkDepth)
	}

	if cfg.Jobs < 1 {
		return fmt.Errorf("%w: %d", ErrJobsInvalid, cfg.Jobs)
	}

	if _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("%w: %q", ErrLogLevelInvalid, cfg.LogLevel)
	}

	if !logging.ValidFormat(cfg.LogFormat) {
		return fmt.Errorf("%w: %q", ErrLogFormatInvalid, cfg.LogFormat)
	}

	return nil
}
