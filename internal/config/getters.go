package config

import "time"

// Debounce returns the watcher's quiet period.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.DebounceMS) * time.Millisecond
}

// EditLogDir returns the base directory for edit logs, or empty when the
// edit log is disabled.
func (c *Config) EditLogDir() string {
	if !c.EditLog {
		return ""
	}
	return c.LogDir
}

// GetExtensions returns a copy of the scanned extensions, never empty.
func (c *Config) GetExtensions() []string {
	if len(c.Extensions) == 0 {
		return DefaultExtensions()
	}
	copied := make([]string, len(c.Extensions))
	copy(copied, c.Extensions)
	return copied
}
