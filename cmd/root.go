// Package cmd implements the CLI command structure for incrtask.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/nibzard/incrtask/internal/config"
	"github.com/nibzard/incrtask/internal/engine"
	"github.com/nibzard/incrtask/internal/export"
	"github.com/nibzard/incrtask/internal/index"
	"github.com/nibzard/incrtask/internal/logging"
	"github.com/nibzard/incrtask/internal/metrics"
	"github.com/nibzard/incrtask/internal/task"
	"github.com/nibzard/incrtask/internal/ui"
	"github.com/nibzard/incrtask/internal/vault"
)

// Version is set via ldflags at build time.
var Version = "dev"

// stdout receives command output; tests replace it.
var stdout io.Writer = os.Stdout

// Run executes the incrtask CLI.
func Run(ctx context.Context, args []string) error {
	// Create a flag set for global options
	fs := flag.NewFlagSet("incrtask", flag.ContinueOnError)
	fs.Usage = func() {
		printUsage(fs, os.Stderr)
	}
	help := fs.Bool("help", false, "Show help")
	fs.BoolVar(help, "h", false, "Show help")
	showVersion := fs.Bool("version", false, "Show version")
	fs.BoolVar(showVersion, "v", false, "Show version")

	// Global flags
	cfg, err := config.Load(fs, args)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if *help {
		printUsage(fs, stdout)
		return nil
	}
	if *showVersion {
		return versionCommand()
	}

	// Determine the subcommand; ls is the default
	subcommand := "ls"
	remainingArgs := fs.Args()
	if len(remainingArgs) > 0 && !strings.HasPrefix(remainingArgs[0], "-") {
		subcommand = remainingArgs[0]
		remainingArgs = remainingArgs[1:]
	}

	switch subcommand {
	case "ls":
		return lsCommand(ctx, cfg, remainingArgs)
	case "generate", "gen":
		return generateCommand(ctx, cfg, remainingArgs)
	case "toggle":
		return editCommand(ctx, cfg, "toggle", remainingArgs)
	case "advance":
		return editCommand(ctx, cfg, "advance", remainingArgs)
	case "watch":
		return watchCommand(ctx, cfg, remainingArgs)
	case "tui":
		return tuiCommand(ctx, cfg, remainingArgs)
	case "export":
		return exportCommand(ctx, cfg, remainingArgs)
	case "doctor":
		return doctorCommand(ctx, cfg, remainingArgs)
	case "tail":
		return tailCommand(cfg, remainingArgs)
	case "init":
		return initCommand(cfg, remainingArgs)
	case "version", "--version":
		return versionCommand()
	case "help", "--help":
		printUsage(fs, stdout)
		return nil
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", subcommand)
		printUsage(fs, os.Stderr)
		return fmt.Errorf("unknown command: %s", subcommand)
	}
}

// startEngine builds an engine for cfg and indexes the vault.
func startEngine(ctx context.Context, cfg *config.Config, opts ...engine.Option) (*engine.Engine, error) {
	eng, err := engine.New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	if err := eng.Start(ctx); err != nil {
		eng.Close()
		return nil, err
	}
	return eng, nil
}

// lsCommand lists indexed incremental tasks grouped by file.
func lsCommand(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("incrtask ls", flag.ContinueOnError)
	blockedOnly := fs.Bool("blocked", false, "Only show blocked tasks")
	verbose := fs.Bool("v", false, "Show more details")

	if err := fs.Parse(args); err != nil {
		return err
	}
	remaining := fs.Args()
	if len(remaining) > 1 {
		return fmt.Errorf("unexpected arguments: %v", remaining[1:])
	}

	eng, err := startEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer eng.Close()

	all := eng.Index().Tasks()
	tasks := all
	if len(remaining) == 1 {
		rel, err := eng.ResolvePath(remaining[0])
		if err != nil {
			return err
		}
		tasks = eng.Index().TasksIn(rel)
	}
	if *blockedOnly {
		var filtered []task.Task
		for _, t := range tasks {
			if t.IsBlocked(all) {
				filtered = append(filtered, t)
			}
		}
		tasks = filtered
	}

	if len(tasks) == 0 {
		fmt.Fprintln(stdout, "No incremental tasks.")
		return nil
	}
	sortTasks(tasks)
	printTaskList(stdout, tasks, all, *verbose)
	return nil
}

// generateCommand inserts a new incremental task block into a file.
func generateCommand(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("incrtask generate", flag.ContinueOnError)
	desc := fs.String("desc", "", "Task description")
	unit := fs.String("unit", "", "Increment unit (e.g. chapter)")
	total := fs.Int("total", 0, "Number of increments")
	after := fs.Int("after", 0, "Insert after this line (1-based, 0 = end of file)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	remaining := fs.Args()
	if len(remaining) != 1 {
		return errors.New("usage: incrtask generate -desc D -unit U -total N [-after L] <file>")
	}
	if strings.TrimSpace(*desc) == "" {
		return errors.New("-desc is required")
	}
	if *total < 1 {
		return fmt.Errorf("-total must be at least 1, got %d", *total)
	}
	if *after < 0 {
		return fmt.Errorf("-after must not be negative, got %d", *after)
	}

	eng, err := startEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer eng.Close()

	rel, err := eng.ResolvePath(remaining[0])
	if err != nil {
		return err
	}
	lines, err := eng.Generate(ctx, rel, *after-1, *desc, *unit, *total)
	if err != nil {
		return err
	}
	for _, line := range lines {
		fmt.Fprintln(stdout, line)
	}
	return nil
}

// editCommand toggles or advances the task at <file>:<line>.
func editCommand(ctx context.Context, cfg *config.Config, action string, args []string) error {
	fs := flag.NewFlagSet("incrtask "+action, flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	remaining := fs.Args()
	if len(remaining) != 1 {
		return fmt.Errorf("usage: incrtask %s <file>:<line>", action)
	}
	file, line, err := parseLocation(remaining[0])
	if err != nil {
		return err
	}

	eng, err := startEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer eng.Close()

	rel, err := eng.ResolvePath(file)
	if err != nil {
		return err
	}
	var updated task.Task
	if action == "toggle" {
		updated, err = eng.Toggle(ctx, rel, line-1)
	} else {
		updated, err = eng.Advance(ctx, rel, line-1)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s:%d: %s\n", rel, updated.LineNumber()+1, updated.OriginalMarkdown)
	return nil
}

// parseLocation splits "<file>:<line>" with a 1-based line.
func parseLocation(s string) (string, int, error) {
	i := strings.LastIndex(s, ":")
	if i <= 0 || i == len(s)-1 {
		return "", 0, fmt.Errorf("expected <file>:<line>, got %q", s)
	}
	line, err := strconv.Atoi(s[i+1:])
	if err != nil || line < 1 {
		return "", 0, fmt.Errorf("invalid line number in %q", s)
	}
	return s[:i], line, nil
}

// watchCommand indexes the vault and keeps the index current until
// interrupted.
func watchCommand(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("incrtask watch", flag.ContinueOnError)
	metricsAddr := fs.String("metrics-addr", cfg.MetricsAddr, "Serve Prometheus metrics on this address")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if len(fs.Args()) > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	eng, err := startEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer eng.Close()
	logger := eng.Logger()

	if *metricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, *metricsAddr, eng.Metrics()); err != nil {
				logger.Error("metrics server stopped", "addr", *metricsAddr, "err", err)
			}
		}()
		logger.Info("serving metrics", "addr", *metricsAddr)
	}

	unsubscribe := eng.Index().Subscribe(func(u index.Update) {
		logger.Info("index updated", "tasks", len(u.Tasks), "state", u.State)
	})
	defer unsubscribe()

	logger.Info("watching", "vault", cfg.VaultDir, "tasks", len(eng.Index().Tasks()))
	if err := eng.Watch(ctx); err != nil {
		return err
	}
	return ctx.Err()
}

// tuiCommand launches the TUI and keeps the index current while it runs.
func tuiCommand(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("incrtask tui", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	notices := make(chan logging.Notice, 16)
	eng, err := startEngine(ctx, cfg,
		engine.WithLogger(logging.Discard()),
		engine.WithNotifier(logging.NewChannelNotifier(notices)),
	)
	if err != nil {
		return err
	}
	defer eng.Close()

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if err := eng.Watch(watchCtx); err != nil {
			logging.NewChannelNotifier(notices).Error("watch stopped: "+err.Error(), logging.ErrorDuration)
		}
	}()

	return ui.RunTUI(ctx, eng, notices)
}

// exportCommand writes a validated snapshot of the index.
func exportCommand(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("incrtask export", flag.ContinueOnError)
	format := fs.String("format", cfg.ExportFormat, "Output format (json|yaml)")
	output := fs.String("o", "", "Write to file instead of stdout")
	schema := fs.String("schema", cfg.SchemaFile, "JSON Schema to validate against (default: bundled)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if len(fs.Args()) > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	eng, err := startEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer eng.Close()

	snap := eng.Snapshot()
	result := snap.Validate(*schema)
	for _, w := range result.Warnings {
		eng.Logger().Warn(w)
	}
	if !result.Valid {
		for _, e := range result.Errors {
			eng.Logger().Error("snapshot invalid", "err", e)
		}
		return fmt.Errorf("snapshot failed validation against %s schema", result.Schema)
	}

	if *output == "" {
		return snap.Write(stdout, *format)
	}
	path := *output
	if !filepath.IsAbs(path) {
		path = filepath.Join(cfg.ProjectRoot, path)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := snap.Write(f, *format); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Exported %d tasks to %s\n", len(snap.Tasks), path)
	return nil
}

// doctorCommand checks the vault, config, log directory and schema, and
// parses every document.
func doctorCommand(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("incrtask doctor", flag.ContinueOnError)
	verbose := fs.Bool("v", false, "Verbose output")

	if err := fs.Parse(args); err != nil {
		return err
	}
	remaining := fs.Args()
	if len(remaining) > 1 {
		return fmt.Errorf("unexpected arguments: %v", remaining[1:])
	}

	w := stdout
	fmt.Fprintln(w, "incrtask doctor")
	fmt.Fprintln(w, "===============")
	fmt.Fprintln(w)

	allOK := true

	// Check config
	fmt.Fprintln(w, "Config:")
	fmt.Fprintf(w, "  ✅ Incremental tag: %s\n", cfg.IncrementalTaskTag)
	fmt.Fprintf(w, "  ✅ Task tag: %s\n", cfg.TaskTag)
	fmt.Fprintf(w, "  ✅ Extensions: %s\n", strings.Join(cfg.GetExtensions(), ", "))
	fmt.Fprintf(w, "  ✅ Max retries: %d\n", cfg.MaxRetries)
	fmt.Fprintln(w)

	// Check vault
	fmt.Fprintf(w, "Vault: %s\n", cfg.VaultDir)
	disk, err := vault.NewDisk(cfg.VaultDir, cfg.GetExtensions())
	if err != nil {
		fmt.Fprintf(w, "  ❌ Error: %v\n", err)
		fmt.Fprintln(w)
		fmt.Fprintln(w, "⚠️  Some checks failed.")
		return fmt.Errorf("doctor checks failed")
	}
	fmt.Fprintln(w, "  ✅ OK")

	var files []string
	if len(remaining) == 1 {
		p := remaining[0]
		if !filepath.IsAbs(p) {
			p = filepath.Join(cfg.ProjectRoot, p)
		}
		rel, err := disk.Rel(p)
		if err != nil {
			fmt.Fprintf(w, "  ❌ %v\n", err)
			return fmt.Errorf("doctor checks failed")
		}
		if !disk.Exists(rel) {
			fmt.Fprintf(w, "  ❌ %s: not found\n", rel)
			return fmt.Errorf("doctor checks failed")
		}
		files = []string{rel}
	} else if files, err = disk.List(ctx); err != nil {
		fmt.Fprintf(w, "  ❌ Listing files: %v\n", err)
		return fmt.Errorf("doctor checks failed")
	}

	parser := task.NewParser(cfg.TaskTag, cfg.IncrementalTaskTag)
	var all []task.Task
	parseErrors := 0
	for _, rel := range files {
		content, err := disk.Read(ctx, rel)
		if err != nil {
			fmt.Fprintf(w, "  ❌ %s: %v\n", rel, err)
			allOK = false
			continue
		}
		fc := vault.BuildFileCache(content)
		tasks, err := index.TasksFromContent(rel, content, fc, parser, func(path string, item vault.ListItemCache, line string, err error) {
			fmt.Fprintf(w, "  ❌ %s:%d: %v\n     %s\n", path, item.Line+1, err, strings.TrimSpace(line))
			parseErrors++
		})
		if err != nil {
			fmt.Fprintf(w, "  ❌ %s: %v\n", rel, err)
			allOK = false
			continue
		}
		all = append(all, tasks...)
		if *verbose {
			fmt.Fprintf(w, "  %s: %d list items, %d sections, %d tasks\n", rel, len(fc.ListItems), len(fc.Sections), len(tasks))
		}
	}
	if parseErrors > 0 {
		allOK = false
	}
	fmt.Fprintf(w, "  Files: %d  Tasks: %d  Parse errors: %d\n", len(files), len(all), parseErrors)

	for _, problem := range taskProblems(all) {
		fmt.Fprintf(w, "  ❌ %s\n", problem)
		allOK = false
	}
	if *verbose && len(all) > 0 {
		sortTasks(all)
		printTaskList(w, all, all, true)
	}
	fmt.Fprintln(w)

	// Check schema file
	if cfg.SchemaFile == "" {
		fmt.Fprintln(w, "Schema file: (bundled)")
		fmt.Fprintln(w, "  ✅ OK")
	} else {
		fmt.Fprintf(w, "Schema file: %s\n", cfg.SchemaFile)
		result := export.Build(all, string(index.StateWarm)).Validate(cfg.SchemaFile)
		for _, warning := range result.Warnings {
			fmt.Fprintf(w, "  ⚠️  %s\n", warning)
		}
		if result.Valid {
			fmt.Fprintln(w, "  ✅ Snapshot valid")
		} else {
			fmt.Fprintln(w, "  ❌ Validation failed:")
			for _, e := range result.Errors {
				fmt.Fprintf(w, "     - %v\n", e)
			}
			allOK = false
		}
	}
	fmt.Fprintln(w)

	// Check log directory
	fmt.Fprintf(w, "Log directory: %s\n", cfg.LogDir)
	if !cfg.EditLog {
		fmt.Fprintln(w, "  ✅ Edit log disabled")
	} else if info, err := os.Stat(cfg.LogDir); err != nil {
		if os.IsNotExist(err) {
			fmt.Fprintln(w, "  ⚠️  Not found (will be created on first edit)")
		} else {
			fmt.Fprintf(w, "  ❌ Error: %v\n", err)
			allOK = false
		}
	} else if !info.IsDir() {
		fmt.Fprintln(w, "  ❌ Error: path is not a directory")
		allOK = false
	} else {
		fmt.Fprintln(w, "  ✅ OK")
	}
	fmt.Fprintln(w)

	// Overall status
	if allOK {
		fmt.Fprintln(w, "✅ All checks passed!")
		return nil
	}
	fmt.Fprintln(w, "⚠️  Some checks failed. Edits may not find their tasks.")
	return fmt.Errorf("doctor checks failed")
}

// taskProblems reports counters past their total, duplicate ids and
// dependencies on unknown ids.
func taskProblems(tasks []task.Task) []string {
	seen := make(map[string]string)
	var problems []string
	for _, t := range tasks {
		where := fmt.Sprintf("%s:%d", t.Path(), t.LineNumber()+1)
		if t.Current > t.Total {
			problems = append(problems, fmt.Sprintf("%s: progress %d/%d exceeds total", where, t.Current, t.Total))
		}
		if t.ID == "" {
			continue
		}
		if first, ok := seen[t.ID]; ok {
			problems = append(problems, fmt.Sprintf("duplicate id %s at %s and %s", t.ID, first, where))
			continue
		}
		seen[t.ID] = where
	}
	for _, t := range tasks {
		for _, dep := range t.DependsOn {
			if _, ok := seen[dep]; !ok {
				problems = append(problems, fmt.Sprintf("%s:%d depends on unknown id %s", t.Path(), t.LineNumber()+1, dep))
			}
		}
	}
	return problems
}

// tailCommand tails the latest edit log.
func tailCommand(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("incrtask tail", flag.ContinueOnError)
	follow := fs.Bool("f", false, "Follow the log (like tail -f)")
	fs.BoolVar(follow, "follow", false, "Follow the log (like tail -f)")
	n := fs.Int("n", 0, "Number of lines to show (0 = all)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	logDir, err := logging.FindLogDir(cfg.LogDir, cfg.VaultDir)
	if err != nil {
		return fmt.Errorf("finding log directory: %w", err)
	}
	logPath, err := logging.FindLatestLog(logDir)
	if err != nil {
		return fmt.Errorf("finding latest log: %w", err)
	}
	if logPath == "" {
		fmt.Fprintln(stdout, "No log files found.")
		return nil
	}

	fmt.Fprintf(stdout, "Tailing: %s\n", logPath)
	if *follow {
		fmt.Fprintln(stdout, "(Ctrl+C to stop)")
	}
	fmt.Fprintln(stdout)

	return logging.TailLog(stdout, logPath, *n, *follow)
}

// initCommand writes an example config file into the project root.
func initCommand(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("incrtask init", flag.ContinueOnError)
	force := fs.Bool("force", false, "Overwrite an existing config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	path := filepath.Join(cfg.ProjectRoot, "incrtask.toml")
	if _, err := os.Stat(path); err == nil && !*force {
		fmt.Fprintf(stdout, "Skipping %s (already exists)\n", path)
		return nil
	}
	if err := os.WriteFile(path, []byte(config.ExampleConfig()), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(stdout, "Wrote %s\n", path)
	return nil
}

// versionCommand prints version information.
func versionCommand() error {
	fmt.Fprintf(stdout, "incrtask version %s\n", Version)
	return nil
}

// printUsage prints the usage message.
func printUsage(fs *flag.FlagSet, w io.Writer) {
	fmt.Fprintln(w, "incrtask - Incremental tasks in Markdown notes")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  incrtask [global options] [command] [options]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  ls [path]                 List incremental tasks (default command)")
	fmt.Fprintln(w, "  generate <file>           Insert a new incremental task")
	fmt.Fprintln(w, "  toggle <file>:<line>      Toggle a task's checkbox")
	fmt.Fprintln(w, "  advance <file>:<line>     Record one unit of progress")
	fmt.Fprintln(w, "  watch                     Keep the index current as files change")
	fmt.Fprintln(w, "  tui                       Launch terminal UI")
	fmt.Fprintln(w, "  export                    Write a snapshot of every task")
	fmt.Fprintln(w, "  doctor [file]             Check config, vault and task syntax")
	fmt.Fprintln(w, "  tail                      Tail the latest edit log")
	fmt.Fprintln(w, "  init                      Write an example incrtask.toml")
	fmt.Fprintln(w, "  version                   Show version information")
	fmt.Fprintln(w, "  help                      Show this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Global Options:")
	fs.SetOutput(w)
	fs.PrintDefaults()
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Ls Options:")
	fmt.Fprintln(w, "  -blocked  Only show blocked tasks")
	fmt.Fprintln(w, "  -v        Show ids, dependencies and tags")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Generate Options:")
	fmt.Fprintln(w, "  -desc string   Task description")
	fmt.Fprintln(w, "  -unit string   Increment unit")
	fmt.Fprintln(w, "  -total int     Number of increments")
	fmt.Fprintln(w, "  -after int     Insert after this line (1-based, 0 = end of file)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Export Options:")
	fmt.Fprintln(w, "  -format string  Output format (json|yaml)")
	fmt.Fprintln(w, "  -o string       Write to file instead of stdout")
	fmt.Fprintln(w, "  -schema string  JSON Schema to validate against")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Tail Options:")
	fmt.Fprintln(w, "  -f, --follow  Follow the log (like tail -f)")
	fmt.Fprintln(w, "  -n int        Number of lines to show (0 = all)")
}

// printTaskList prints tasks grouped by file. all is used to decide which
// tasks are blocked.
func printTaskList(w io.Writer, tasks, all []task.Task, verbose bool) {
	lastPath := ""
	for _, t := range tasks {
		if t.Path() != lastPath {
			if lastPath != "" {
				fmt.Fprintln(w)
			}
			fmt.Fprintln(w, t.Path())
			lastPath = t.Path()
		}
		fmt.Fprintln(w, formatTask(t, t.IsBlocked(all), verbose))
	}
}

// sortTasks orders tasks by path, then line.
func sortTasks(tasks []task.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].Path() != tasks[j].Path() {
			return tasks[i].Path() < tasks[j].Path()
		}
		return tasks[i].LineNumber() < tasks[j].LineNumber()
	})
}

func formatTask(t task.Task, blocked, verbose bool) string {
	box := "[ ]"
	if t.Checked {
		box = "[x]"
	}
	line := fmt.Sprintf("  %s %4d  %s", box, t.LineNumber()+1, t.DescriptionWithoutTags())
	if t.Total > 0 {
		line += fmt.Sprintf("  %d/%d", t.Current, t.Total)
		if t.IncrementUnit != "" {
			line += " " + t.IncrementUnit
		}
	}
	if blocked {
		line += "  (blocked)"
	}
	if !verbose {
		return line
	}
	var extra []string
	if t.ID != "" {
		extra = append(extra, "id="+t.ID)
	}
	if len(t.DependsOn) > 0 {
		extra = append(extra, "after="+strings.Join(t.DependsOn, ","))
	}
	if len(t.Tags) > 0 {
		extra = append(extra, "tags="+strings.Join(t.Tags, " "))
	}
	if len(extra) == 0 {
		return line
	}
	return line + "\n        " + strings.Join(extra, "  ")
}
