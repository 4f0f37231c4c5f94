package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
)

// Load loads configuration from multiple sources in priority order:
// 1. Defaults
// 2. User config file (~/.incrtask/incrtask.toml or OS-specific config dir)
// 3. Project config file (incrtask.toml or .incrtask.toml in current directory)
// 4. Environment variables
// 5. CLI flags
func Load(fs *flag.FlagSet, args []string) (*Config, error) {
	cws, err := load(fs, args, nil)
	if err != nil {
		return nil, err
	}
	return cws.Config, nil
}

// LoadWithSources loads configuration and tracks the source of each value.
// Returns ConfigWithSources containing the config and a map of field names to their sources.
func LoadWithSources(fs *flag.FlagSet, args []string) (*ConfigWithSources, error) {
	return load(fs, args, make(map[string]ConfigSource))
}

func load(fs *flag.FlagSet, args []string, sources map[string]ConfigSource) (*ConfigWithSources, error) {
	cfg := &Config{}

	// 1. Set defaults (all fields start with default source)
	setDefaults(cfg)
	if sources != nil {
		for _, field := range configFields() {
			sources[field] = SourceDefault
		}
	}

	// 2. Try to load from user config file
	if userConfigFile := findUserConfigFile(); userConfigFile != "" {
		if err := loadConfigFileWithSources(cfg, userConfigFile, sources, SourceUserFile); err != nil {
			return nil, fmt.Errorf("loading user config file %s: %w", userConfigFile, err)
		}
	}

	// 3. Try to load from project config file (overrides user config)
	if projectConfigFile := findProjectConfigFile(); projectConfigFile != "" {
		if err := loadConfigFileWithSources(cfg, projectConfigFile, sources, SourceProjFile); err != nil {
			return nil, fmt.Errorf("loading project config file %s: %w", projectConfigFile, err)
		}
	}

	// 4. Override from environment
	loadFromEnvHelper(cfg, sources, SourceEnv)

	// 5. Parse CLI flags (they override everything)
	if err := parseFlagsHelper(cfg, fs, args, sources, SourceFlag); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	// 6. Compute derived values
	if err := finalizeConfig(cfg); err != nil {
		return nil, fmt.Errorf("finalizing config: %w", err)
	}

	return &ConfigWithSources{Config: cfg, Sources: sources}, nil
}

// configFields returns the list of configurable field names for source tracking.
func configFields() []string {
	return []string{
		"vault_dir",
		"extensions",
		"task_tag",
		"incremental_task_tag",
		"max_retries",
		"scan_workers",
		"debounce_ms",
		"schema_file",
		"export_format",
		"metrics_addr",
		"log_dir",
		"edit_log",
		"log_level",
		"log_format",
		"log_timestamps",
		"log_caller",
	}
}

// loadConfigFile loads TOML config from the given file.
func loadConfigFile(cfg *Config, path string) error {
	return loadConfigFileWithSources(cfg, path, nil, "")
}

// loadConfigFileWithSources loads TOML config and updates source tracking
// for every key present in the file.
func loadConfigFileWithSources(cfg *Config, path string, sources map[string]ConfigSource, source ConfigSource) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	if sources == nil {
		return nil
	}
	for _, field := range configFields() {
		if md.IsDefined(field) {
			sources[field] = source
		}
	}
	return nil
}

// finalizeConfig computes derived values and validates the result.
func finalizeConfig(cfg *Config) error {
	// Expand ~ in paths
	cfg.LogDir = expandPath(cfg.LogDir)
	cfg.VaultDir = expandPath(cfg.VaultDir)
	cfg.SchemaFile = expandPath(cfg.SchemaFile)

	// Determine project root
	if cfg.ProjectRoot == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getting working directory: %w", err)
		}
		cfg.ProjectRoot = wd
	}

	// Make paths absolute if they're relative
	if cfg.VaultDir == "" {
		cfg.VaultDir = DefaultVaultDir
	}
	if !filepath.IsAbs(cfg.VaultDir) {
		cfg.VaultDir = filepath.Join(cfg.ProjectRoot, cfg.VaultDir)
	}
	if cfg.SchemaFile != "" && !filepath.IsAbs(cfg.SchemaFile) {
		cfg.SchemaFile = filepath.Join(cfg.ProjectRoot, cfg.SchemaFile)
	}

	cfg.Extensions = normalizeExtensions(cfg.Extensions)
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = DefaultExtensions()
	}
	cfg.ExportFormat = strings.ToLower(strings.TrimSpace(cfg.ExportFormat))

	return validate(cfg)
}

func validate(cfg *Config) error {
	for name, tag := range map[string]string{"task_tag": cfg.TaskTag, "incremental_task_tag": cfg.IncrementalTaskTag} {
		if !strings.HasPrefix(tag, "#") || len(tag) < 2 || strings.ContainsAny(tag, " \t") {
			return fmt.Errorf("%s must be a single hashtag, got %q", name, tag)
		}
	}
	if cfg.MaxRetries < 1 {
		return fmt.Errorf("max_retries must be at least 1, got %d", cfg.MaxRetries)
	}
	if cfg.ScanWorkers < 1 {
		return fmt.Errorf("scan_workers must be at least 1, got %d", cfg.ScanWorkers)
	}
	if cfg.DebounceMS < 0 {
		return fmt.Errorf("debounce_ms must not be negative, got %d", cfg.DebounceMS)
	}
	if !slices.Contains([]string{"json", "yaml"}, cfg.ExportFormat) {
		return fmt.Errorf("export_format must be json or yaml, got %q", cfg.ExportFormat)
	}
	return nil
}
