package config

// ExampleConfig returns an example configuration showing all available options.
func ExampleConfig() string {
	return `# incrtask configuration file
# Values can be overridden by environment variables (INCRTASK_*) or CLI flags

# Vault directory to scan (relative to the working directory)
vault_dir = "."

# Document extensions that may hold tasks
extensions = ["md"]

# Tag written on generated child tasks
task_tag = "#task"

# Tag that marks incremental tasks
incremental_task_tag = "#task/incr"

# Edit retries after the first attempt (delays 1ms, 10ms, then 100ms)
max_retries = 10

# Concurrent file reads during the initial scan
scan_workers = 4

# Quiet period before a file change is indexed (milliseconds)
debounce_ms = 150

# JSON Schema for exports; leave empty to use the bundled schema
# schema_file = "snapshot.schema.json"

# Export format: json or yaml
export_format = "json"

# Serve Prometheus metrics while watching
# metrics_addr = "127.0.0.1:9464"

# Edit log directory (supports ~ expansion and %VAR% on Windows)
log_dir = "~/.incrtask"
edit_log = true

# Console logging
log_level = "info"
log_format = "text"
log_timestamps = false
log_caller = false
`
}
