package config

import (
	"flag"
	"strings"

	"github.com/nibzard/incrtask/internal/utils"
)

// parseFlags defines and parses CLI flags.
func parseFlags(cfg *Config, fs *flag.FlagSet, args []string) error {
	return parseFlagsHelper(cfg, fs, args, nil, "")
}

// parseFlagsHelper is the shared implementation for flag parsing.
// Flags are bound to locals and applied only when explicitly set, so a flag
// left at its default never masks a file or environment value.
// If sources is non-nil, it tracks the source of each value.
func parseFlagsHelper(cfg *Config, fs *flag.FlagSet, args []string, sources map[string]ConfigSource, source ConfigSource) error {
	if fs == nil {
		fs = flag.NewFlagSet("incrtask", flag.ContinueOnError)
	}

	vaultDir := cfg.VaultDir
	extensions := strings.Join(cfg.Extensions, ",")
	taskTag := cfg.TaskTag
	incrTag := cfg.IncrementalTaskTag
	maxRetries := cfg.MaxRetries
	scanWorkers := cfg.ScanWorkers
	debounceMS := cfg.DebounceMS
	schemaFile := cfg.SchemaFile
	metricsAddr := cfg.MetricsAddr
	logDir := cfg.LogDir
	editLog := cfg.EditLog
	logLevel := cfg.LogLevel
	logFormat := cfg.LogFormat
	logTimestamps := cfg.LogTimestamps
	logCaller := cfg.LogCaller

	// Vault
	fs.StringVar(&vaultDir, "vault", vaultDir, "Vault directory to scan")
	fs.StringVar(&extensions, "extensions", extensions, "Comma-separated document extensions")
	fs.StringVar(&taskTag, "task-tag", taskTag, "Tag written on generated child tasks")
	fs.StringVar(&incrTag, "incr-tag", incrTag, "Tag that marks incremental tasks")

	// Editing and indexing
	fs.IntVar(&maxRetries, "max-retries", maxRetries, "Edit retries after the first attempt")
	fs.IntVar(&scanWorkers, "scan-workers", scanWorkers, "Concurrent reads during the initial scan")
	fs.IntVar(&debounceMS, "debounce-ms", debounceMS, "Quiet period before file changes are indexed")

	// Export and metrics
	fs.StringVar(&schemaFile, "schema", schemaFile, "JSON Schema for exports (default: bundled)")
	fs.StringVar(&metricsAddr, "metrics-addr", metricsAddr, "Serve Prometheus metrics on this address")

	// Logging
	fs.StringVar(&logDir, "log-dir", logDir, "Edit log directory")
	fs.BoolVar(&editLog, "edit-log", editLog, "Write the JSONL edit log")
	fs.StringVar(&logLevel, "log-level", logLevel, "Log level (debug, info, warn, error)")
	fs.StringVar(&logFormat, "log-format", logFormat, "Log format (text, json, logfmt)")
	fs.BoolVar(&logTimestamps, "log-timestamps", logTimestamps, "Show timestamps in logs")
	fs.BoolVar(&logCaller, "log-caller", logCaller, "Show caller location in logs")

	if err := fs.Parse(args); err != nil {
		return err
	}

	// Map flag names to config fields
	apply := map[string]struct {
		field string
		set   func()
	}{
		"vault":          {"vault_dir", func() { cfg.VaultDir = vaultDir }},
		"extensions":     {"extensions", func() { cfg.Extensions = utils.SplitAndTrim(extensions, ",") }},
		"task-tag":       {"task_tag", func() { cfg.TaskTag = taskTag }},
		"incr-tag":       {"incremental_task_tag", func() { cfg.IncrementalTaskTag = incrTag }},
		"max-retries":    {"max_retries", func() { cfg.MaxRetries = maxRetries }},
		"scan-workers":   {"scan_workers", func() { cfg.ScanWorkers = scanWorkers }},
		"debounce-ms":    {"debounce_ms", func() { cfg.DebounceMS = debounceMS }},
		"schema":         {"schema_file", func() { cfg.SchemaFile = schemaFile }},
		"metrics-addr":   {"metrics_addr", func() { cfg.MetricsAddr = metricsAddr }},
		"log-dir":        {"log_dir", func() { cfg.LogDir = logDir }},
		"edit-log":       {"edit_log", func() { cfg.EditLog = editLog }},
		"log-level":      {"log_level", func() { cfg.LogLevel = logLevel }},
		"log-format":     {"log_format", func() { cfg.LogFormat = logFormat }},
		"log-timestamps": {"log_timestamps", func() { cfg.LogTimestamps = logTimestamps }},
		"log-caller":     {"log_caller", func() { cfg.LogCaller = logCaller }},
	}

	fs.Visit(func(f *flag.Flag) {
		binding, ok := apply[f.Name]
		if !ok {
			return
		}
		binding.set()
		if sources != nil {
			sources[binding.field] = source
		}
	})

	return nil
}
