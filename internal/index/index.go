// Package index keeps the set of incremental tasks found in the vault and
// notifies subscribers when a file's tasks change.
package index

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nibzard/incrtask/internal/logging"
	"github.com/nibzard/incrtask/internal/metrics"
	"github.com/nibzard/incrtask/internal/parallel"
	"github.com/nibzard/incrtask/internal/task"
	"github.com/nibzard/incrtask/internal/vault"
)

// State is the lifecycle state of the index.
type State string

const (
	StateCold         State = "cold"
	StateInitializing State = "initializing"
	StateWarm         State = "warm"
)

// Update is delivered to subscribers after every change.
type Update struct {
	Tasks []task.Task
	State State
}

// Options configures an Index.
type Options struct {
	Parser     *task.Parser
	Extensions []string
	// Workers bounds concurrent reads during IndexAll.
	Workers  int
	Logger   *log.Logger
	Notifier logging.Notifier
	EditLog  *logging.EditLog
	Metrics  *metrics.Metrics
}

// Index is the in-memory task snapshot for one vault.
type Index struct {
	vault    vault.Vault
	cache    vault.MetadataCache
	parser   *task.Parser
	exts     []string
	workers  int
	logger   *log.Logger
	notifier logging.Notifier
	editLog  *logging.EditLog
	metrics  *metrics.Metrics

	mu      sync.Mutex
	state   State
	tasks   []task.Task
	subs    map[int]func(Update)
	nextSub int
}

// New returns a cold index over v using cache for outlines.
func New(v vault.Vault, cache vault.MetadataCache, opts Options) *Index {
	if opts.Parser == nil {
		opts.Parser = task.NewParser("", "")
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Notifier == nil {
		opts.Notifier = &logging.Recorder{}
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	return &Index{
		vault:    v,
		cache:    cache,
		parser:   opts.Parser,
		exts:     opts.Extensions,
		workers:  opts.Workers,
		logger:   opts.Logger.WithPrefix("index"),
		notifier: opts.Notifier,
		editLog:  opts.EditLog,
		metrics:  opts.Metrics,
		state:    StateCold,
		subs:     make(map[int]func(Update)),
	}
}

// State returns the lifecycle state.
func (x *Index) State() State {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.state
}

// Tasks returns a copy of the snapshot.
func (x *Index) Tasks() []task.Task {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.snapshotLocked()
}

// IDs returns every task id in the snapshot.
func (x *Index) IDs() []string {
	x.mu.Lock()
	defer x.mu.Unlock()
	ids := make([]string, 0, len(x.tasks))
	for _, t := range x.tasks {
		if t.ID != "" {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

// TasksIn returns the tasks of one file in line order.
func (x *Index) TasksIn(path string) []task.Task {
	x.mu.Lock()
	defer x.mu.Unlock()
	var out []task.Task
	for _, t := range x.tasks {
		if t.Path() == path {
			out = append(out, t)
		}
	}
	return out
}

// Subscribe registers fn for updates and returns a function that removes it.
// fn runs while the index lock is held and must not call back into the index.
func (x *Index) Subscribe(fn func(Update)) func() {
	x.mu.Lock()
	id := x.nextSub
	x.nextSub++
	x.subs[id] = fn
	x.mu.Unlock()

	return func() {
		x.mu.Lock()
		delete(x.subs, id)
		x.mu.Unlock()
	}
}

// IndexFile re-reads path and replaces its tasks when they changed. Files
// with no outline or an unsupported extension yield zero tasks.
func (x *Index) IndexFile(ctx context.Context, path string) error {
	x.begin()
	start := time.Now()

	tasks, err := x.readFile(ctx, path, false)
	if err != nil {
		x.metrics.RecordIndexPass("error", time.Since(start))
		return err
	}
	x.apply(path, tasks, start)
	return nil
}

// IndexAll rebuilds outlines (when the cache supports it) and indexes every
// file in the vault, then marks the index warm.
func (x *Index) IndexAll(ctx context.Context) error {
	x.begin()

	paths, err := x.vault.List(ctx)
	if err != nil {
		return err
	}

	found := make([][]task.Task, len(paths))
	pool := parallel.NewWorkerPool(ctx, x.workers, false)
	for i, p := range paths {
		i, p := i, p
		pool.Submit(p, func(ctx context.Context) error {
			tasks, err := x.readFile(ctx, p, true)
			found[i] = tasks
			return err
		})
	}
	_, errs := pool.Wait()
	for _, err := range errs {
		x.logger.Error("failed to index file", "err", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	x.mu.Lock()
	var all []task.Task
	for _, tasks := range found {
		all = append(all, tasks...)
	}
	x.tasks = all
	x.state = StateWarm
	x.metrics.SetTasksTracked(len(x.tasks))
	x.publishLocked()
	x.mu.Unlock()

	x.logger.Info("index warm", "files", len(paths), "tasks", len(all))
	x.editLog.IndexUpdate("", len(all), string(StateWarm))
	return nil
}

// RemoveFile drops every task in path.
func (x *Index) RemoveFile(path string) {
	x.mu.Lock()
	defer x.mu.Unlock()

	kept := x.tasks[:0:0]
	for _, t := range x.tasks {
		if t.Path() != path {
			kept = append(kept, t)
		}
	}
	if len(kept) == len(x.tasks) {
		return
	}
	x.tasks = kept
	x.metrics.SetTasksTracked(len(x.tasks))
	x.publishLocked()
	x.editLog.IndexUpdate(path, 0, string(x.state))
}

// Rename moves every task in oldPath to newPath.
func (x *Index) Rename(oldPath, newPath string) {
	x.mu.Lock()
	defer x.mu.Unlock()

	changed := false
	for i := range x.tasks {
		if x.tasks[i].Path() == oldPath {
			x.tasks[i].Location = x.tasks[i].Location.Renamed(newPath)
			changed = true
		}
	}
	if changed {
		x.publishLocked()
	}
}

func (x *Index) begin() {
	x.mu.Lock()
	if x.state == StateCold {
		x.state = StateInitializing
	}
	x.mu.Unlock()
}

func (x *Index) readFile(ctx context.Context, path string, refresh bool) ([]task.Task, error) {
	if !vault.Supported(path, x.exts) {
		return nil, nil
	}

	var fc *vault.FileCache
	if r, ok := x.cache.(vault.Refresher); ok && refresh {
		var err error
		if fc, err = r.Refresh(ctx, path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, nil
			}
			return nil, fmt.Errorf("outline %s: %w", path, err)
		}
	} else {
		var ok bool
		if fc, ok = x.cache.FileCache(path); !ok {
			return nil, nil
		}
	}
	if fc == nil || len(fc.ListItems) == 0 {
		return nil, nil
	}

	content, err := x.vault.CachedRead(ctx, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	tasks, err := TasksFromContent(path, content, fc, x.parser, x.report)
	if errors.Is(err, vault.ErrStaleCache) {
		x.logger.Debug("outline past end of file, skipping", "path", path, "err", err)
		return nil, nil
	}
	return tasks, err
}

func (x *Index) report(path string, item vault.ListItemCache, line string, err error) {
	x.metrics.RecordParseError()
	x.logger.Error("failed to parse task", "path", path, "line", item.Line+1, "text", line, "err", err)

	// Loud only during the initial scan; later failures stay in the log.
	if x.State() == StateInitializing {
		x.notifier.Warn(fmt.Sprintf(
			"There was an error loading incremental tasks from %s line %d. Check the console for details.",
			path, item.Line+1), logging.WarnDuration)
	}
}

func (x *Index) apply(path string, tasks []task.Task, start time.Time) {
	x.mu.Lock()
	defer x.mu.Unlock()

	var previous, others []task.Task
	for _, t := range x.tasks {
		if t.Path() == path {
			previous = append(previous, t)
		} else {
			others = append(others, t)
		}
	}

	if unchanged(previous, tasks) {
		x.metrics.RecordIndexPass("unchanged", time.Since(start))
		return
	}

	x.tasks = append(others, tasks...)
	x.metrics.RecordIndexPass("updated", time.Since(start))
	x.metrics.SetTasksTracked(len(x.tasks))
	x.publishLocked()
	x.editLog.IndexUpdate(path, len(tasks), string(x.state))
	x.logger.Debug("file reindexed", "path", path, "tasks", len(tasks))
}

// unchanged treats two lists as equal when they are structurally identical
// and every line still reads the same, so toggles and counter changes are
// published too.
func unchanged(a, b []task.Task) bool {
	if !task.ListsIdentical(a, b) {
		return false
	}
	for i := range a {
		if a[i].OriginalMarkdown != b[i].OriginalMarkdown {
			return false
		}
	}
	return true
}

func (x *Index) snapshotLocked() []task.Task {
	out := make([]task.Task, len(x.tasks))
	copy(out, x.tasks)
	return out
}

func (x *Index) publishLocked() {
	if len(x.subs) == 0 {
		return
	}
	ids := make([]int, 0, len(x.subs))
	for id := range x.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		x.subs[id](Update{Tasks: x.snapshotLocked(), State: x.state})
	}
}
