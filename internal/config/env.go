package config

import (
	"fmt"
	"os"

	"github.com/nibzard/incrtask/internal/utils"
)

// loadFromEnv overrides config from environment variables.
func loadFromEnv(cfg *Config) {
	loadFromEnvHelper(cfg, nil, "")
}

// loadFromEnvHelper is the shared implementation for env loading.
// If sources is non-nil, it tracks the source of each value.
func loadFromEnvHelper(cfg *Config, sources map[string]ConfigSource, source ConfigSource) {
	track := func(field string) {
		if sources != nil {
			sources[field] = source
		}
	}
	setString := func(env, field string, target *string) {
		if v := os.Getenv(env); v != "" {
			*target = v
			track(field)
		}
	}
	setInt := func(env, field string, target *int) {
		if v := os.Getenv(env); v != "" {
			var i int
			if _, err := fmt.Sscanf(v, "%d", &i); err == nil {
				*target = i
				track(field)
			}
		}
	}
	setBool := func(env, field string, target *bool) {
		if v := os.Getenv(env); v != "" {
			*target = boolFromString(v)
			track(field)
		}
	}

	setString("INCRTASK_VAULT", "vault_dir", &cfg.VaultDir)
	if v := os.Getenv("INCRTASK_EXTENSIONS"); v != "" {
		cfg.Extensions = utils.SplitAndTrim(v, ",")
		track("extensions")
	}
	setString("INCRTASK_TASK_TAG", "task_tag", &cfg.TaskTag)
	setString("INCRTASK_INCR_TAG", "incremental_task_tag", &cfg.IncrementalTaskTag)
	setInt("INCRTASK_MAX_RETRIES", "max_retries", &cfg.MaxRetries)
	setInt("INCRTASK_SCAN_WORKERS", "scan_workers", &cfg.ScanWorkers)
	setInt("INCRTASK_DEBOUNCE_MS", "debounce_ms", &cfg.DebounceMS)
	setString("INCRTASK_SCHEMA", "schema_file", &cfg.SchemaFile)
	setString("INCRTASK_EXPORT_FORMAT", "export_format", &cfg.ExportFormat)
	setString("INCRTASK_METRICS_ADDR", "metrics_addr", &cfg.MetricsAddr)

	// Logging configuration
	setString("INCRTASK_LOG_DIR", "log_dir", &cfg.LogDir)
	setBool("INCRTASK_EDIT_LOG", "edit_log", &cfg.EditLog)
	setString("INCRTASK_LOG_LEVEL", "log_level", &cfg.LogLevel)
	setString("INCRTASK_LOG_FORMAT", "log_format", &cfg.LogFormat)
	setBool("INCRTASK_LOG_TIMESTAMPS", "log_timestamps", &cfg.LogTimestamps)
	setBool("INCRTASK_LOG_CALLER", "log_caller", &cfg.LogCaller)
}
