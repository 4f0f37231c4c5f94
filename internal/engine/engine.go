// Package engine wires a vault, its outline cache, the task index and the
// edit controller into one object that lives for a command's duration.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/nibzard/incrtask/internal/config"
	"github.com/nibzard/incrtask/internal/edit"
	"github.com/nibzard/incrtask/internal/export"
	"github.com/nibzard/incrtask/internal/index"
	"github.com/nibzard/incrtask/internal/logging"
	"github.com/nibzard/incrtask/internal/metrics"
	"github.com/nibzard/incrtask/internal/task"
	"github.com/nibzard/incrtask/internal/vault"
	"github.com/nibzard/incrtask/internal/watch"
)

// ErrNoTask is returned when no incremental task is indexed at a location.
var ErrNoTask = errors.New("no incremental task at that line")

// Option customizes an Engine.
type Option func(*Engine)

// WithVault replaces the on-disk vault, typically with vault.Memory in tests.
func WithVault(v vault.Vault) Option {
	return func(e *Engine) { e.vault = v }
}

// WithLogger sets the console logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithNotifier sets where user-facing notices go.
func WithNotifier(n logging.Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithMetrics sets the metrics registry.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithSleep replaces the retry delay, mostly to make tests fast.
func WithSleep(s edit.SleepFunc) Option {
	return func(e *Engine) { e.sleep = s }
}

// WithEditLog sets the edit log instead of opening one under cfg.LogDir.
func WithEditLog(l *logging.EditLog) Option {
	return func(e *Engine) { e.editLog = l }
}

// Engine owns the components for one vault.
type Engine struct {
	cfg        *config.Config
	vault      vault.Vault
	outline    *vault.Outline
	parser     *task.Parser
	index      *index.Index
	controller *edit.Controller
	logger     *log.Logger
	notifier   logging.Notifier
	metrics    *metrics.Metrics
	editLog    *logging.EditLog
	sleep      edit.SleepFunc
	ownsLog    bool
}

// New builds an engine from cfg. The index starts cold; call Start to scan
// the vault.
func New(cfg *config.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		return nil, errors.New("engine: nil config")
	}
	e := &Engine{cfg: cfg}
	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = logging.NewConsoleFromConfig(os.Stderr, cfg.LogLevel, cfg.LogFormat, cfg.LogTimestamps, cfg.LogCaller)
	}
	if e.notifier == nil {
		e.notifier = logging.NewConsoleNotifier(e.logger)
	}
	if e.metrics == nil {
		e.metrics = metrics.New()
	}
	if e.vault == nil {
		disk, err := vault.NewDisk(cfg.VaultDir, cfg.GetExtensions())
		if err != nil {
			return nil, fmt.Errorf("opening vault: %w", err)
		}
		e.vault = disk
	}
	if e.editLog == nil {
		if dir := cfg.EditLogDir(); dir != "" {
			l, err := logging.NewEditLog(dir, cfg.VaultDir)
			if err != nil {
				e.logger.Warn("edit log disabled", "err", err)
			} else {
				e.editLog = l
				e.ownsLog = true
			}
		}
	}

	e.outline = vault.NewOutline(e.vault)
	e.parser = task.NewParser(cfg.TaskTag, cfg.IncrementalTaskTag)
	e.index = index.New(e.vault, e.outline, index.Options{
		Parser:     e.parser,
		Extensions: cfg.GetExtensions(),
		Workers:    cfg.ScanWorkers,
		Logger:     e.logger,
		Notifier:   e.notifier,
		EditLog:    e.editLog,
		Metrics:    e.metrics,
	})
	e.controller = edit.NewController(edit.Options{
		Vault:      e.vault,
		Cache:      e.outline,
		Serializer: e.parser.Serializer(),
		Extensions: cfg.GetExtensions(),
		MaxRetries: cfg.MaxRetries,
		Sleep:      e.sleep,
		Logger:     e.logger,
		Notifier:   e.notifier,
		EditLog:    e.editLog,
		Metrics:    e.metrics,
		AfterWrite: e.Reindex,
	})
	return e, nil
}

// Config returns the configuration the engine was built from.
func (e *Engine) Config() *config.Config { return e.cfg }

// Index returns the task index.
func (e *Engine) Index() *index.Index { return e.index }

// Controller returns the edit controller.
func (e *Engine) Controller() *edit.Controller { return e.controller }

// Metrics returns the metrics registry.
func (e *Engine) Metrics() *metrics.Metrics { return e.metrics }

// Logger returns the console logger.
func (e *Engine) Logger() *log.Logger { return e.logger }

// EditLog returns the edit log, or nil when disabled.
func (e *Engine) EditLog() *logging.EditLog { return e.editLog }

// Start scans every document and marks the index warm.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.index.IndexAll(ctx); err != nil {
		return fmt.Errorf("indexing vault: %w", err)
	}
	return nil
}

// Reindex rebuilds the outline of path and re-indexes its tasks. A file that
// no longer exists is dropped from the index.
func (e *Engine) Reindex(ctx context.Context, path string) error {
	if !vault.Supported(path, e.cfg.GetExtensions()) {
		return nil
	}
	if _, err := e.outline.Refresh(ctx, path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			e.forget(path)
			return nil
		}
		return fmt.Errorf("outline %s: %w", path, err)
	}
	return e.index.IndexFile(ctx, path)
}

// HandleEvent applies one watcher event to the outline cache and the index.
func (e *Engine) HandleEvent(ctx context.Context, ev watch.Event) error {
	switch ev.Op {
	case watch.OpWrite, watch.OpCreate:
		return e.Reindex(ctx, ev.Path)
	case watch.OpRemove:
		e.forget(ev.Path)
		return nil
	case watch.OpRename:
		e.outline.Rename(ev.OldPath, ev.Path)
		if f, ok := e.vault.(interface{ Forget(string) }); ok {
			f.Forget(ev.OldPath)
		}
		e.index.Rename(ev.OldPath, ev.Path)
		return e.Reindex(ctx, ev.Path)
	}
	return nil
}

func (e *Engine) forget(path string) {
	e.outline.Invalidate(path)
	if f, ok := e.vault.(interface{ Forget(string) }); ok {
		f.Forget(path)
	}
	e.index.RemoveFile(path)
}

// Watch watches the vault directory and applies changes until ctx is done.
// It requires the on-disk vault.
func (e *Engine) Watch(ctx context.Context) error {
	disk, ok := e.vault.(*vault.Disk)
	if !ok {
		return errors.New("watch requires an on-disk vault")
	}
	w, err := watch.New(disk.Root(), watch.Options{
		Extensions: e.cfg.GetExtensions(),
		Debounce:   e.cfg.Debounce(),
		Logger:     e.logger,
	})
	if err != nil {
		return err
	}
	defer w.Close()

	events := make(chan watch.Event, 64)
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.Run(ctx, events)
	}()

	for {
		select {
		case <-ctx.Done():
			return <-errCh
		case err := <-errCh:
			return err
		case ev := <-events:
			e.logger.Debug("change", "op", ev.Op, "path", ev.Path)
			if err := e.HandleEvent(ctx, ev); err != nil {
				e.logger.Error("failed to apply change", "path", ev.Path, "err", err)
			}
		}
	}
}

// ResolvePath turns a user supplied path into a vault-relative one.
func (e *Engine) ResolvePath(p string) (string, error) {
	if disk, ok := e.vault.(*vault.Disk); ok {
		if !filepath.IsAbs(p) {
			p = filepath.Join(e.cfg.ProjectRoot, p)
		}
		return disk.Rel(p)
	}
	return strings.TrimPrefix(filepath.ToSlash(filepath.Clean(p)), "./"), nil
}

// TaskAt returns the indexed task on the zero-based line of path.
func (e *Engine) TaskAt(path string, line int) (task.Task, error) {
	for _, t := range e.index.TasksIn(path) {
		if t.LineNumber() == line {
			return t, nil
		}
	}
	return task.Task{}, fmt.Errorf("%s:%d: %w", path, line+1, ErrNoTask)
}

// Toggle flips the checkbox of the task on line of path.
func (e *Engine) Toggle(ctx context.Context, path string, line int) (task.Task, error) {
	t, err := e.TaskAt(path, line)
	if err != nil {
		return t, err
	}
	return e.controller.Toggle(ctx, t)
}

// Advance records one unit of progress on the task on line of path.
func (e *Engine) Advance(ctx context.Context, path string, line int) (task.Task, error) {
	t, err := e.TaskAt(path, line)
	if err != nil {
		return t, err
	}
	return e.controller.Advance(ctx, t)
}

// Generate inserts a new incremental task with total child tasks into path
// after the zero-based line after (negative appends). The new id avoids
// every id currently indexed.
func (e *Engine) Generate(ctx context.Context, path string, after int, description, unit string, total int) ([]string, error) {
	d := task.Details{
		Description:   description,
		IncrementUnit: unit,
		Total:         total,
	}
	return e.controller.Generate(ctx, path, after, d, e.index.IDs())
}

// Snapshot returns the exportable view of the index.
func (e *Engine) Snapshot() *export.Snapshot {
	return export.Build(e.index.Tasks(), string(e.index.State()))
}

// Close releases the edit log when the engine opened it.
func (e *Engine) Close() error {
	if e.ownsLog {
		return e.editLog.Close()
	}
	return nil
}
