// Package config tests configuration loading.
package config

import (
	"flag"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)

	if cfg.IncrementalTaskTag != DefaultIncrementalTaskTag {
		t.Errorf("IncrementalTaskTag: got %q, want %q", cfg.IncrementalTaskTag, DefaultIncrementalTaskTag)
	}
	if cfg.TaskTag != DefaultTaskTag {
		t.Errorf("TaskTag: got %q, want %q", cfg.TaskTag, DefaultTaskTag)
	}
	if cfg.MaxRetries != DefaultMaxRetries {
		t.Errorf("MaxRetries: got %d, want %d", cfg.MaxRetries, DefaultMaxRetries)
	}
	if cfg.LogDir != DefaultLogDir {
		t.Errorf("LogDir: got %q, want %q", cfg.LogDir, DefaultLogDir)
	}
	if len(cfg.Extensions) != 1 || cfg.Extensions[0] != "md" {
		t.Errorf("Extensions: got %v, want [md]", cfg.Extensions)
	}
	if cfg.Debounce() != 150*time.Millisecond {
		t.Errorf("Debounce: got %v, want 150ms", cfg.Debounce())
	}
	if !cfg.EditLog {
		t.Errorf("EditLog: got false, want true")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("INCRTASK_VAULT", "notes")
	t.Setenv("INCRTASK_INCR_TAG", "#habit")
	t.Setenv("INCRTASK_MAX_RETRIES", "3")
	t.Setenv("INCRTASK_EXTENSIONS", "md, markdown")
	t.Setenv("INCRTASK_EDIT_LOG", "off")
	t.Setenv("INCRTASK_SCAN_WORKERS", "not a number")

	cfg := &Config{}
	setDefaults(cfg)
	loadFromEnv(cfg)

	if cfg.VaultDir != "notes" {
		t.Errorf("VaultDir: got %q, want notes", cfg.VaultDir)
	}
	if cfg.IncrementalTaskTag != "#habit" {
		t.Errorf("IncrementalTaskTag: got %q, want #habit", cfg.IncrementalTaskTag)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("MaxRetries: got %d, want 3", cfg.MaxRetries)
	}
	if strings.Join(cfg.Extensions, ",") != "md,markdown" {
		t.Errorf("Extensions: got %v, want [md markdown]", cfg.Extensions)
	}
	if cfg.EditLog {
		t.Errorf("EditLog: got true, want false")
	}
	if cfg.ScanWorkers != DefaultScanWorkers {
		t.Errorf("ScanWorkers: got %d, want default %d", cfg.ScanWorkers, DefaultScanWorkers)
	}
}

func TestLoadConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "incrtask.toml")

	content := []byte(`vault_dir = "vault"
max_retries = 5
extensions = ["md", "txt"]
incremental_task_tag = "#habit"
`)
	if err := os.WriteFile(configFile, content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg := &Config{}
	setDefaults(cfg)
	sources := map[string]ConfigSource{}
	if err := loadConfigFileWithSources(cfg, configFile, sources, SourceProjFile); err != nil {
		t.Fatalf("loadConfigFile: %v", err)
	}

	if cfg.VaultDir != "vault" {
		t.Errorf("VaultDir: got %q, want vault", cfg.VaultDir)
	}
	if cfg.MaxRetries != 5 {
		t.Errorf("MaxRetries: got %d, want 5", cfg.MaxRetries)
	}
	if len(cfg.Extensions) != 2 {
		t.Errorf("Extensions: got %v, want [md txt]", cfg.Extensions)
	}
	if cfg.TaskTag != DefaultTaskTag {
		t.Errorf("TaskTag: got %q, want default", cfg.TaskTag)
	}
	if sources["max_retries"] != SourceProjFile {
		t.Errorf("max_retries source: got %q, want %q", sources["max_retries"], SourceProjFile)
	}
	if _, ok := sources["task_tag"]; ok {
		t.Errorf("task_tag source: should not be tracked when absent from file")
	}
}

func TestLoadConfigFileUnknownKey(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "incrtask.toml")
	if err := os.WriteFile(configFile, []byte("todo_file = \"x\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	err := loadConfigFile(&Config{}, configFile)
	if err == nil || !strings.Contains(err.Error(), "todo_file") {
		t.Errorf("loadConfigFile: got %v, want unknown key error", err)
	}
}

func TestExampleConfigParses(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "incrtask.toml")
	if err := os.WriteFile(configFile, []byte(ExampleConfig()), 0644); err != nil {
		t.Fatal(err)
	}
	cfg := &Config{}
	if err := loadConfigFile(cfg, configFile); err != nil {
		t.Fatalf("loadConfigFile: %v", err)
	}
	if cfg.IncrementalTaskTag != DefaultIncrementalTaskTag {
		t.Errorf("IncrementalTaskTag: got %q", cfg.IncrementalTaskTag)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot get home directory")
	}

	tests := []struct {
		input string
		want  string
	}{
		{"~/test", filepath.Join(home, "test")},
		{"~", home},
		{"/absolute/path", "/absolute/path"},
		{"relative", "relative"},
		{"", ""},
	}
	if runtime.GOOS == "windows" {
		t.Setenv("INCRTASK_TEST_HOME", home)
		tests = append(tests,
			struct{ input, want string }{`~\test`, filepath.Join(home, "test")},
			struct{ input, want string }{`%INCRTASK_TEST_HOME%\logs`, filepath.Join(home, "logs")},
		)
	} else {
		tests = append(tests, struct{ input, want string }{`~\test`, `~\test`})
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := expandPath(tt.input)
			if got != tt.want {
				t.Errorf("expandPath(%q): got %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseFlags(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)
	cfg.VaultDir = "from-file"

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	args := []string{
		"-incr-tag", "#habit",
		"-max-retries", "2",
		"-extensions", "md,markdown",
		"-edit-log=false",
		"ls",
	}

	if err := parseFlags(cfg, fs, args); err != nil {
		t.Fatalf("parseFlags: %v", err)
	}

	if cfg.IncrementalTaskTag != "#habit" {
		t.Errorf("IncrementalTaskTag: got %q, want #habit", cfg.IncrementalTaskTag)
	}
	if cfg.MaxRetries != 2 {
		t.Errorf("MaxRetries: got %d, want 2", cfg.MaxRetries)
	}
	if len(cfg.Extensions) != 2 || cfg.Extensions[1] != "markdown" {
		t.Errorf("Extensions: got %v, want [md markdown]", cfg.Extensions)
	}
	if cfg.EditLog {
		t.Errorf("EditLog: got true, want false")
	}
	if cfg.VaultDir != "from-file" {
		t.Errorf("VaultDir: unset flag overrode value, got %q", cfg.VaultDir)
	}
	if fs.Arg(0) != "ls" {
		t.Errorf("remaining args: got %v, want [ls]", fs.Args())
	}
}

func TestParseFlagsTracksSources(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)
	sources := map[string]ConfigSource{"vault_dir": SourceDefault, "max_retries": SourceDefault}

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	if err := parseFlagsHelper(cfg, fs, []string{"-vault", "x"}, sources, SourceFlag); err != nil {
		t.Fatalf("parseFlagsHelper: %v", err)
	}
	if sources["vault_dir"] != SourceFlag {
		t.Errorf("vault_dir source: got %q, want flag", sources["vault_dir"])
	}
	if sources["max_retries"] != SourceDefault {
		t.Errorf("max_retries source: got %q, want default", sources["max_retries"])
	}
}

func TestFinalizeConfig(t *testing.T) {
	root := t.TempDir()
	cfg := &Config{}
	setDefaults(cfg)
	cfg.ProjectRoot = root
	cfg.VaultDir = "notes"
	cfg.SchemaFile = "schema.json"
	cfg.Extensions = []string{".MD", "md", " "}
	cfg.ExportFormat = "YAML"

	if err := finalizeConfig(cfg); err != nil {
		t.Fatalf("finalizeConfig: %v", err)
	}
	if cfg.VaultDir != filepath.Join(root, "notes") {
		t.Errorf("VaultDir: got %q", cfg.VaultDir)
	}
	if cfg.SchemaFile != filepath.Join(root, "schema.json") {
		t.Errorf("SchemaFile: got %q", cfg.SchemaFile)
	}
	if strings.Join(cfg.Extensions, ",") != "md" {
		t.Errorf("Extensions: got %v, want [md]", cfg.Extensions)
	}
	if cfg.ExportFormat != "yaml" {
		t.Errorf("ExportFormat: got %q, want yaml", cfg.ExportFormat)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"ok", func(*Config) {}, ""},
		{"tag without hash", func(c *Config) { c.IncrementalTaskTag = "task/incr" }, "incremental_task_tag"},
		{"tag with space", func(c *Config) { c.TaskTag = "#a b" }, "task_tag"},
		{"no retries", func(c *Config) { c.MaxRetries = 0 }, "max_retries"},
		{"no workers", func(c *Config) { c.ScanWorkers = 0 }, "scan_workers"},
		{"bad format", func(c *Config) { c.ExportFormat = "xml" }, "export_format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			setDefaults(cfg)
			tt.mutate(cfg)
			err := validate(cfg)
			if tt.want == "" {
				if err != nil {
					t.Errorf("validate: got %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("validate: got %v, want error mentioning %q", err, tt.want)
			}
		})
	}
}

func TestBoolFromString(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"1", true},
		{"true", true},
		{"TRUE", true},
		{"yes", true},
		{"on", true},
		{"0", false},
		{"false", false},
		{"no", false},
		{"off", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := boolFromString(tt.input)
			if got != tt.want {
				t.Errorf("boolFromString(%q): got %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestEditLogDir(t *testing.T) {
	cfg := &Config{LogDir: "/logs", EditLog: true}
	if got := cfg.EditLogDir(); got != "/logs" {
		t.Errorf("EditLogDir: got %q, want /logs", got)
	}
	cfg.EditLog = false
	if got := cfg.EditLogDir(); got != "" {
		t.Errorf("EditLogDir: got %q, want empty", got)
	}
}
