// Package config handles configuration loading and defaults.
//
// Configuration is loaded from multiple sources in priority order:
// 1. Built-in defaults
// 2. User config file (~/.incrtask/incrtask.toml or OS-specific config directory)
// 3. Project config file (incrtask.toml or .incrtask.toml in the working directory)
// 4. Environment variables (INCRTASK_*)
// 5. CLI flags
//
// Each level overrides the previous one, so CLI flags take precedence.
//
// User-level config locations:
// - ~/.incrtask/incrtask.toml (preferred)
// - Windows: %APPDATA%\incrtask\incrtask.toml
// - macOS: ~/Library/Application Support/incrtask/incrtask.toml
// - Linux/BSD: $XDG_CONFIG_HOME/incrtask/incrtask.toml or ~/.config/incrtask/incrtask.toml
//
// Project-level config locations (overrides user config):
// - ./incrtask.toml (preferred)
// - ./.incrtask.toml
package config
