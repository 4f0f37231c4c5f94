// Package watch reports document changes under a vault root.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/nibzard/incrtask/internal/logging"
)

// DefaultDebounce is the quiet period before a batch of events is delivered.
const DefaultDebounce = 150 * time.Millisecond

// Options configures a Watcher.
type Options struct {
	Extensions []string
	Debounce   time.Duration
	Logger     *log.Logger
}

// Watcher watches a directory tree with fsnotify.
type Watcher struct {
	root     string
	exts     []string
	debounce time.Duration
	logger   *log.Logger
	fsw      *fsnotify.Watcher
}

// New watches root and every non-hidden directory below it.
func New(root string, opts Options) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve watch root: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	w := &Watcher{
		root:     abs,
		exts:     opts.Extensions,
		debounce: opts.Debounce,
		logger:   opts.Logger.WithPrefix("watch"),
		fsw:      fsw,
	}
	if err := w.addTree(abs); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Run delivers debounced events to out until ctx is done or the watcher is
// closed. Events are sent from this goroutine only.
func (w *Watcher) Run(ctx context.Context, out chan<- Event) error {
	batch := newBatcher(w.exts)
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(batch, ev)
			if !batch.empty() {
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "err", err)

		case <-timer.C:
			for _, ev := range batch.flush() {
				w.logger.Debug("change", "op", ev.Op, "path", ev.Path, "old", ev.OldPath)
				select {
				case out <- ev:
				case <-ctx.Done():
					return nil
				}
			}
		}
	}
}

func (w *Watcher) handle(batch *batcher, ev fsnotify.Event) {
	rel, ok := w.rel(ev.Name)
	if !ok {
		return
	}

	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addTree(ev.Name); err != nil {
				w.logger.Warn("watch new directory", "path", rel, "err", err)
			}
			return
		}
	}

	switch {
	case ev.Has(fsnotify.Create):
		batch.add(OpCreate, rel)
	case ev.Has(fsnotify.Write):
		batch.add(OpWrite, rel)
	case ev.Has(fsnotify.Remove):
		batch.add(OpRemove, rel)
	case ev.Has(fsnotify.Rename):
		batch.add(OpRename, rel)
	}
}

// rel converts an absolute event path to a slash separated vault path.
// Hidden files and directories are ignored.
func (w *Watcher) rel(name string) (string, bool) {
	rel, err := filepath.Rel(w.root, name)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	for _, part := range strings.Split(rel, "/") {
		if strings.HasPrefix(part, ".") {
			return "", false
		}
	}
	return rel, true
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(p); err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}
		return nil
	})
}
