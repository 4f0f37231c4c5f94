// Package cmd provides tests for CLI command handlers.
package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nibzard/incrtask/internal/config"
	"github.com/nibzard/incrtask/internal/task"
)

const booksDoc = "# Books\n" +
	"\n" +
	"- [ ] #task/incr Read book 🔁 chapters 4/5 ⛔ abc123\n" +
	"- [ ] #task/incr Sequel 🔁 chapters 0/9 ⛔ def456 🆔 abc123\n"

// captureOutput redirects command output for the rest of the test.
func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	old := stdout
	stdout = buf
	t.Cleanup(func() { stdout = old })
	return buf
}

// testVault writes files into a temp vault and returns a config for it.
func testVault(t *testing.T, files map[string]string) *config.Config {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		p := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return &config.Config{
		VaultDir:           root,
		ProjectRoot:        root,
		Extensions:         []string{"md"},
		TaskTag:            config.DefaultTaskTag,
		IncrementalTaskTag: config.DefaultIncrementalTaskTag,
		MaxRetries:         2,
		ScanWorkers:        2,
		ExportFormat:       "json",
		LogDir:             filepath.Join(root, ".logs"),
		LogLevel:           "error",
	}
}

// TestRun tests the main Run function.
func TestRun(t *testing.T) {
	t.Run("shows help with --help flag", func(t *testing.T) {
		out := captureOutput(t)
		if err := Run(context.Background(), []string{"--help"}); err != nil {
			t.Errorf("expected no error with --help, got %v", err)
		}
		if !strings.Contains(out.String(), "toggle <file>:<line>") {
			t.Errorf("usage missing toggle command:\n%s", out.String())
		}
	})

	t.Run("shows version with -v flag", func(t *testing.T) {
		out := captureOutput(t)
		if err := Run(context.Background(), []string{"-v"}); err != nil {
			t.Errorf("expected no error with -v, got %v", err)
		}
		if !strings.Contains(out.String(), "incrtask version dev") {
			t.Errorf("got %q", out.String())
		}
	})

	t.Run("shows help with help command", func(t *testing.T) {
		captureOutput(t)
		if err := Run(context.Background(), []string{"help"}); err != nil {
			t.Errorf("expected no error with help command, got %v", err)
		}
	})

	t.Run("unknown command returns error", func(t *testing.T) {
		err := Run(context.Background(), []string{"unknown-command"})
		if err == nil {
			t.Fatal("expected error for unknown command, got nil")
		}
		if !strings.Contains(err.Error(), "unknown command") {
			t.Errorf("expected 'unknown command' error, got %v", err)
		}
	})

	t.Run("invalid flag value fails config", func(t *testing.T) {
		err := Run(context.Background(), []string{"-max-retries", "0", "version"})
		if err == nil || !strings.Contains(err.Error(), "max_retries") {
			t.Errorf("expected max_retries error, got %v", err)
		}
	})
}

func TestParseLocation(t *testing.T) {
	tests := []struct {
		input    string
		wantFile string
		wantLine int
		wantErr  bool
	}{
		{"notes/books.md:3", "notes/books.md", 3, false},
		{`C:\vault\a.md:12`, `C:\vault\a.md`, 12, false},
		{"books.md", "", 0, true},
		{"books.md:", "", 0, true},
		{":4", "", 0, true},
		{"books.md:0", "", 0, true},
		{"books.md:x", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			file, line, err := parseLocation(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseLocation(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if file != tt.wantFile || line != tt.wantLine {
				t.Errorf("parseLocation(%q) = %q, %d, want %q, %d", tt.input, file, line, tt.wantFile, tt.wantLine)
			}
		})
	}
}

func TestLsCommand(t *testing.T) {
	cfg := testVault(t, map[string]string{
		"books.md":       booksDoc,
		"later/notes.md": "- [x] #task/incr Walk 🔁 km 3/3\n",
		"ignored.txt":    "- [ ] #task/incr Hidden 🔁 u 0/1\n",
	})

	t.Run("all tasks", func(t *testing.T) {
		out := captureOutput(t)
		if err := lsCommand(context.Background(), cfg, nil); err != nil {
			t.Fatalf("lsCommand() error = %v", err)
		}
		got := out.String()
		for _, want := range []string{
			"books.md\n",
			"  [ ]    3  Read book  4/5 chapters\n",
			"  [ ]    4  Sequel  0/9 chapters  (blocked)\n",
			"later/notes.md\n",
			"  [x]    1  Walk  3/3 km\n",
		} {
			if !strings.Contains(got, want) {
				t.Errorf("output missing %q:\n%s", want, got)
			}
		}
		if strings.Contains(got, "Hidden") {
			t.Errorf("unsupported extension listed:\n%s", got)
		}
		if strings.Index(got, "books.md") > strings.Index(got, "later/notes.md") {
			t.Errorf("files not sorted:\n%s", got)
		}
	})

	t.Run("blocked only", func(t *testing.T) {
		out := captureOutput(t)
		if err := lsCommand(context.Background(), cfg, []string{"-blocked", "-v"}); err != nil {
			t.Fatalf("lsCommand() error = %v", err)
		}
		got := out.String()
		if strings.Contains(got, "Read book") || !strings.Contains(got, "Sequel") {
			t.Errorf("unexpected blocked list:\n%s", got)
		}
		if !strings.Contains(got, "id=def456  after=abc123") {
			t.Errorf("verbose details missing:\n%s", got)
		}
	})

	t.Run("single file", func(t *testing.T) {
		out := captureOutput(t)
		if err := lsCommand(context.Background(), cfg, []string{"later/notes.md"}); err != nil {
			t.Fatalf("lsCommand() error = %v", err)
		}
		if strings.Contains(out.String(), "Read book") {
			t.Errorf("other file listed:\n%s", out.String())
		}
	})
}

func TestToggleAndAdvanceCommands(t *testing.T) {
	cfg := testVault(t, map[string]string{"books.md": booksDoc})
	path := filepath.Join(cfg.VaultDir, "books.md")

	out := captureOutput(t)
	if err := editCommand(context.Background(), cfg, "advance", []string{"books.md:3"}); err != nil {
		t.Fatalf("advance error = %v", err)
	}
	if !strings.Contains(out.String(), "books.md:3: - [x] #task/incr Read book 🔁 chapters 5/5 ⛔ abc123") {
		t.Errorf("advance output = %q", out.String())
	}

	if err := editCommand(context.Background(), cfg, "toggle", []string{path + ":4"}); err != nil {
		t.Fatalf("toggle error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "# Books\n" +
		"\n" +
		"- [x] #task/incr Read book 🔁 chapters 5/5 ⛔ abc123\n" +
		"- [x] #task/incr Sequel 🔁 chapters 0/9 ⛔ def456 🆔 abc123\n"
	if string(data) != want {
		t.Errorf("file content:\n%s\nwant:\n%s", data, want)
	}

	err = editCommand(context.Background(), cfg, "toggle", []string{"books.md:1"})
	if err == nil || !strings.Contains(err.Error(), "no incremental task") {
		t.Errorf("toggle on heading: got %v", err)
	}
}

func TestGenerateCommand(t *testing.T) {
	cfg := testVault(t, map[string]string{"books.md": booksDoc})

	out := captureOutput(t)
	args := []string{"-desc", "Learn Go", "-unit", "chapter", "-total", "2", "-after", "2", "books.md"}
	if err := generateCommand(context.Background(), cfg, args); err != nil {
		t.Fatalf("generateCommand() error = %v", err)
	}
	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("generated %d lines, want 2: %q", len(lines), lines)
	}

	data, err := os.ReadFile(filepath.Join(cfg.VaultDir, "books.md"))
	if err != nil {
		t.Fatal(err)
	}
	fileLines := strings.Split(string(data), "\n")
	if fileLines[2] != lines[0] || fileLines[3] != lines[1] {
		t.Errorf("block not inserted after line 2:\n%s", data)
	}

	if err := generateCommand(context.Background(), cfg, []string{"-desc", "x", "books.md"}); err == nil {
		t.Error("expected error for missing -total")
	}
}

func TestExportCommand(t *testing.T) {
	cfg := testVault(t, map[string]string{"books.md": booksDoc})

	out := captureOutput(t)
	if err := exportCommand(context.Background(), cfg, nil); err != nil {
		t.Fatalf("exportCommand() error = %v", err)
	}
	var snap struct {
		SchemaVersion int    `json:"schema_version"`
		State         string `json:"state"`
		Tasks         []struct {
			ID      string `json:"id"`
			Blocked bool   `json:"blocked"`
		} `json:"tasks"`
	}
	if err := json.Unmarshal(out.Bytes(), &snap); err != nil {
		t.Fatalf("export is not JSON: %v\n%s", err, out.String())
	}
	if snap.SchemaVersion != 1 || snap.State != "warm" || len(snap.Tasks) != 2 {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
	if !snap.Tasks[1].Blocked {
		t.Errorf("second task should be blocked: %+v", snap.Tasks[1])
	}

	captureOutput(t)
	if err := exportCommand(context.Background(), cfg, []string{"-format", "yaml", "-o", "out.yaml"}); err != nil {
		t.Fatalf("exportCommand(yaml) error = %v", err)
	}
	data, err := os.ReadFile(filepath.Join(cfg.ProjectRoot, "out.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "schema_version: 1") {
		t.Errorf("yaml export:\n%s", data)
	}

	if err := exportCommand(context.Background(), cfg, []string{"-format", "xml"}); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestDoctorCommand(t *testing.T) {
	t.Run("healthy vault", func(t *testing.T) {
		cfg := testVault(t, map[string]string{"books.md": booksDoc})
		out := captureOutput(t)
		if err := doctorCommand(context.Background(), cfg, []string{"-v"}); err != nil {
			t.Fatalf("doctorCommand() error = %v\n%s", err, out.String())
		}
		if !strings.Contains(out.String(), "Files: 1  Tasks: 2  Parse errors: 0") {
			t.Errorf("summary missing:\n%s", out.String())
		}
		if !strings.Contains(out.String(), "books.md: 2 list items") {
			t.Errorf("verbose outline missing:\n%s", out.String())
		}
	})

	t.Run("broken counters", func(t *testing.T) {
		cfg := testVault(t, map[string]string{
			"bad.md": "- [ ] #task/incr Broken 🔁 u 7/3 ⛔ bad001\n",
		})
		out := captureOutput(t)
		err := doctorCommand(context.Background(), cfg, []string{"bad.md"})
		if err == nil {
			t.Fatalf("expected doctor to fail:\n%s", out.String())
		}
		if !strings.Contains(out.String(), "bad.md:1: progress 7/3 exceeds total") {
			t.Errorf("counter problem not reported:\n%s", out.String())
		}
	})

	t.Run("missing vault", func(t *testing.T) {
		cfg := testVault(t, nil)
		cfg.VaultDir = filepath.Join(cfg.VaultDir, "missing")
		captureOutput(t)
		if err := doctorCommand(context.Background(), cfg, nil); err == nil {
			t.Error("expected error for missing vault")
		}
	})
}

func TestTaskProblems(t *testing.T) {
	mk := func(line int, id string, deps ...string) task.Task {
		tk := task.Task{Details: task.Details{ID: id, DependsOn: deps, Current: 1, Total: 2}}
		tk.Location = task.NewLocation("a.md", line, 0, 0)
		return tk
	}
	over := mk(3, "")
	over.Current = 4

	problems := taskProblems([]task.Task{
		mk(0, "aaa111"),
		mk(1, "aaa111"),
		mk(2, "", "zzz999"),
		over,
	})
	want := []string{
		"duplicate id aaa111 at a.md:1 and a.md:2",
		"a.md:4: progress 4/2 exceeds total",
		"a.md:3 depends on unknown id zzz999",
	}
	if strings.Join(problems, "\n") != strings.Join(want, "\n") {
		t.Errorf("taskProblems() =\n%s\nwant:\n%s", strings.Join(problems, "\n"), strings.Join(want, "\n"))
	}
}

func TestInitCommand(t *testing.T) {
	cfg := testVault(t, nil)
	captureOutput(t)

	if err := initCommand(cfg, nil); err != nil {
		t.Fatalf("initCommand() error = %v", err)
	}
	path := filepath.Join(cfg.ProjectRoot, "incrtask.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected %s to exist: %v", path, err)
	}
	if string(data) != config.ExampleConfig() {
		t.Error("config file does not match the example")
	}

	if err := os.WriteFile(path, []byte("# mine\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := initCommand(cfg, nil); err != nil {
		t.Fatalf("initCommand() second run error = %v", err)
	}
	data, _ = os.ReadFile(path)
	if string(data) != "# mine\n" {
		t.Error("existing config was overwritten without -force")
	}
}

func TestTailCommandNoLogs(t *testing.T) {
	cfg := testVault(t, nil)
	out := captureOutput(t)
	if err := tailCommand(cfg, nil); err != nil {
		t.Fatalf("tailCommand() error = %v", err)
	}
	if !strings.Contains(out.String(), "No log files found.") {
		t.Errorf("got %q", out.String())
	}
}

func TestVersionCommand(t *testing.T) {
	out := captureOutput(t)
	if err := versionCommand(); err != nil {
		t.Errorf("versionCommand() returned error: %v", err)
	}
	if strings.TrimSpace(out.String()) != "incrtask version dev" {
		t.Errorf("got %q", out.String())
	}
}
