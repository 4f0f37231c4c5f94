package config

// ConfigSource represents where a configuration value came from.
type ConfigSource string

const (
	SourceDefault  ConfigSource = "default"
	SourceUserFile ConfigSource = "user file"
	SourceProjFile ConfigSource = "project file"
	SourceEnv      ConfigSource = "environment"
	SourceFlag     ConfigSource = "flag"
)

// ConfigWithSources holds configuration along with source information for each field.
type ConfigWithSources struct {
	Config  *Config
	Sources map[string]ConfigSource
}

// Default values.
const (
	DefaultVaultDir           = "."
	DefaultTaskTag            = "#task"
	DefaultIncrementalTaskTag = "#task/incr"
	DefaultMaxRetries         = 10
	DefaultScanWorkers        = 4
	DefaultDebounceMS         = 150
	DefaultExportFormat       = "json"
	DefaultLogDir             = "~/.incrtask"
	DefaultEditLog            = true
)

// DefaultExtensions returns the document extensions scanned by default.
func DefaultExtensions() []string {
	return []string{"md"}
}

// Config holds the full configuration for incrtask.
type Config struct {
	// Vault
	VaultDir   string   `toml:"vault_dir"`
	Extensions []string `toml:"extensions"`

	// Tags
	TaskTag            string `toml:"task_tag"`
	IncrementalTaskTag string `toml:"incremental_task_tag"`

	// Retries after the first edit attempt
	MaxRetries int `toml:"max_retries"`

	// Indexing
	ScanWorkers int `toml:"scan_workers"`
	DebounceMS  int `toml:"debounce_ms"`

	// Export
	SchemaFile   string `toml:"schema_file"` // empty uses the bundled schema
	ExportFormat string `toml:"export_format"`

	// Metrics listen address, empty disables the endpoint
	MetricsAddr string `toml:"metrics_addr"`

	// Logging configuration
	LogDir        string `toml:"log_dir"`
	EditLog       bool   `toml:"edit_log"`
	LogLevel      string `toml:"log_level"`
	LogFormat     string `toml:"log_format"`
	LogTimestamps bool   `toml:"log_timestamps"`
	LogCaller     bool   `toml:"log_caller"`

	// Project root (computed)
	ProjectRoot string `toml:"-"`
}
