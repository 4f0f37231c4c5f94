// Package edit rewrites task lines in documents, retrying while the outline
// of the file catches up with its content.
package edit

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nibzard/incrtask/internal/logging"
	"github.com/nibzard/incrtask/internal/metrics"
	"github.com/nibzard/incrtask/internal/resolver"
	"github.com/nibzard/incrtask/internal/task"
	"github.com/nibzard/incrtask/internal/vault"
)

// DefaultMaxRetries is the number of retries after the first attempt.
const DefaultMaxRetries = 10

const maxDelay = 100 * time.Millisecond

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Backoff returns the delay before retry number attempt (zero based):
// 1ms, 10ms, then 100ms.
func Backoff(attempt int) time.Duration {
	d := time.Millisecond
	for i := 0; i < attempt && d < maxDelay; i++ {
		d *= 10
	}
	if d > maxDelay {
		d = maxDelay
	}
	return d
}

// Options configures a Controller.
type Options struct {
	Vault      vault.Vault
	Cache      vault.MetadataCache
	Serializer *task.Serializer
	Extensions []string
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	Sleep      SleepFunc
	Logger     *log.Logger
	Notifier   logging.Notifier
	EditLog    *logging.EditLog
	Metrics    *metrics.Metrics
	// AfterWrite runs after every successful write, typically to re-index
	// the file.
	AfterWrite func(ctx context.Context, path string) error
}

// Controller applies edits to task lines.
type Controller struct {
	vault      vault.Vault
	cache      vault.MetadataCache
	serializer *task.Serializer
	resolver   *resolver.Resolver
	exts       []string
	maxRetries int
	sleep      SleepFunc
	logger     *log.Logger
	notifier   logging.Notifier
	editLog    *logging.EditLog
	metrics    *metrics.Metrics
	afterWrite func(ctx context.Context, path string) error
}

// NewController returns a controller. Zero options take defaults.
func NewController(opts Options) *Controller {
	if opts.Serializer == nil {
		opts.Serializer = task.NewSerializer("", "")
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.Sleep == nil {
		opts.Sleep = Sleep
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Notifier == nil {
		opts.Notifier = &logging.Recorder{}
	}
	return &Controller{
		vault:      opts.Vault,
		cache:      opts.Cache,
		serializer: opts.Serializer,
		resolver:   resolver.New(opts.Serializer.IncrementalTag()),
		exts:       opts.Extensions,
		maxRetries: opts.MaxRetries,
		sleep:      opts.Sleep,
		logger:     opts.Logger.WithPrefix("edit"),
		notifier:   opts.Notifier,
		editLog:    opts.EditLog,
		metrics:    opts.Metrics,
		afterWrite: opts.AfterWrite,
	}
}

// ReplaceTaskWithTasks replaces original's line with one line per task.
func (c *Controller) ReplaceTaskWithTasks(ctx context.Context, original task.Task, tasks []task.Task) error {
	lines := make([]string, len(tasks))
	for i, t := range tasks {
		lines[i] = c.serializer.FormatLine(t)
	}
	return c.ReplaceTaskWithLines(ctx, original, lines)
}

// ReplaceTaskWithLines replaces original's line with lines. Transient
// failures are retried with backoff; see Kind.Retryable.
func (c *Controller) ReplaceTaskWithLines(ctx context.Context, original task.Task, lines []string) error {
	_, err := c.replace(ctx, original, lines)
	return err
}

// replace runs the retry loop and returns the line that was replaced.
func (c *Controller) replace(ctx context.Context, original task.Task, lines []string) (int, error) {
	path := original.Path()
	if !original.Location.HasKnownPath() {
		return -1, &Error{Kind: KindInvalid, Line: original.OriginalMarkdown, Msg: "task has no file path"}
	}

	c.logger.Debug("replacing task", "path", path, "line", original.LineNumber(), "original", original.OriginalMarkdown)
	c.editLog.EditStart(path, original.LineNumber(), original.OriginalMarkdown)
	for i, line := range lines {
		c.logger.Debug("replacement line", "index", i, "text", line)
		c.editLog.EditLine(path, i, line)
	}

	warned := make(map[Kind]bool)
	for attempt := 0; ; attempt++ {
		at, err := c.attempt(ctx, original, lines)
		if err == nil {
			c.logger.Debug("task replaced", "path", path, "line", at, "attempts", attempt+1)
			c.editLog.EditDone(path, at, attempt+1)
			c.metrics.RecordEdit("ok", attempt+1)
			if c.afterWrite != nil {
				if err := c.afterWrite(ctx, path); err != nil {
					c.logger.Warn("reindex after write failed", "path", path, "err", err)
				}
			}
			return at, nil
		}

		kind := KindOf(err)
		if !kind.Retryable() {
			return -1, c.fail(path, kind, attempt+1, err)
		}
		if kind.Warn() && !warned[kind] {
			warned[kind] = true
			c.notifier.Warn(err.Error(), logging.WarnDuration)
		}
		if attempt >= c.maxRetries {
			exhausted := &Error{
				Kind: KindExhausted,
				Path: path,
				Line: original.OriginalMarkdown,
				Msg:  exhaustedMessage(path, original.OriginalMarkdown, attempt+1),
				Err:  err,
			}
			return -1, c.fail(path, KindExhausted, attempt+1, exhausted)
		}

		delay := Backoff(attempt)
		c.logger.Debug("retrying edit", "path", path, "attempt", attempt+1, "delay", delay, "kind", kind)
		c.editLog.EditRetry(path, attempt+1, delay, kind.String(), err)
		c.metrics.RecordRetry(kind.String())
		if err := c.sleep(ctx, delay); err != nil {
			return -1, c.fail(path, KindCanceled, attempt+1,
				&Error{Kind: KindCanceled, Path: path, Line: original.OriginalMarkdown, Msg: "edit canceled", Err: err})
		}
		if r, ok := c.cache.(vault.Refresher); ok {
			if _, err := r.Refresh(ctx, path); err != nil {
				c.logger.Debug("outline refresh failed", "path", path, "err", err)
			}
		}
	}
}

func (c *Controller) fail(path string, kind Kind, attempts int, err error) error {
	c.logger.Error("edit failed", "path", path, "kind", kind, "attempts", attempts, "err", err)
	c.editLog.EditFailed(path, kind.String(), err)
	c.metrics.RecordEdit(kind.String(), attempts)
	if kind != KindCanceled {
		c.notifier.Error(err.Error(), logging.ErrorDuration)
	}
	return err
}

// attempt performs one read-locate-write cycle.
func (c *Controller) attempt(ctx context.Context, original task.Task, lines []string) (int, error) {
	path := original.Path()
	fail := func(kind Kind, msg string, err error) (int, error) {
		return -1, &Error{Kind: kind, Path: path, Line: original.OriginalMarkdown, Msg: msg, Err: err}
	}

	if !c.vault.Exists(path) {
		return fail(KindMissingFile, fmt.Sprintf("File %s no longer exists. Was it renamed or deleted?", path), nil)
	}
	if !vault.Supported(path, c.exts) {
		return fail(KindUnsupported, fmt.Sprintf("%s is not a supported document type.", path), nil)
	}
	fc, ok := c.cache.FileCache(path)
	if !ok || fc == nil {
		return fail(KindCacheMissing, fmt.Sprintf("%s has not been indexed yet. Retrying.", path), nil)
	}
	if len(fc.ListItems) == 0 {
		return fail(KindNoListItems, fmt.Sprintf("No list items found in %s yet. Retrying.", path), nil)
	}

	content, err := c.vault.Read(ctx, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fail(KindMissingFile, fmt.Sprintf("File %s no longer exists. Was it renamed or deleted?", path), err)
		}
		return fail(KindRead, fmt.Sprintf("Could not read %s.", path), err)
	}
	fileLines := strings.Split(content, "\n")

	m, err := c.resolver.FindLine(original, fileLines, fc)
	if err != nil {
		var mismatch *resolver.MismatchError
		switch {
		case errors.As(err, &mismatch):
			return fail(KindMismatch, mismatch.Error(), err)
		case errors.Is(err, vault.ErrStaleCache):
			return fail(KindStaleCache, fmt.Sprintf("The outline of %s is out of date. Retrying.", path), err)
		default:
			return fail(KindNotFound, fmt.Sprintf("Task not found in %s.", path), err)
		}
	}
	c.metrics.RecordResolverTier(m.Tier.String())

	updated := splice(fileLines, m.Line, withLineEnding(fileLines[m.Line], lines))
	if err := c.vault.Write(ctx, path, strings.Join(updated, "\n")); err != nil {
		return fail(KindWrite, fmt.Sprintf("Could not write %s.", path), err)
	}
	return m.Line, nil
}

// InsertLines inserts lines after line after of path, or at the end when
// after is negative or past the end. Missing files are created.
func (c *Controller) InsertLines(ctx context.Context, path string, after int, lines []string) error {
	fail := func(kind Kind, msg string, err error) error {
		return c.fail(path, kind, 1, &Error{Kind: kind, Path: path, Msg: msg, Err: err})
	}
	if !vault.Supported(path, c.exts) {
		return fail(KindUnsupported, fmt.Sprintf("%s is not a supported document type.", path), nil)
	}

	content := ""
	if c.vault.Exists(path) {
		var err error
		if content, err = c.vault.Read(ctx, path); err != nil {
			return fail(KindRead, fmt.Sprintf("Could not read %s.", path), err)
		}
	}

	for i, line := range lines {
		c.editLog.EditLine(path, i, line)
	}
	if strings.Contains(content, "\r\n") {
		lines = withLineEnding("\r", lines)
	}
	if err := c.vault.Write(ctx, path, insertAfter(content, after, lines)); err != nil {
		return fail(KindWrite, fmt.Sprintf("Could not write %s.", path), err)
	}
	c.editLog.EditDone(path, after+1, 1)
	c.metrics.RecordEdit("ok", 1)
	if c.afterWrite != nil {
		if err := c.afterWrite(ctx, path); err != nil {
			c.logger.Warn("reindex after write failed", "path", path, "err", err)
		}
	}
	return nil
}

func splice(lines []string, at int, replacement []string) []string {
	out := make([]string, 0, len(lines)-1+len(replacement))
	out = append(out, lines[:at]...)
	out = append(out, replacement...)
	return append(out, lines[at+1:]...)
}

// withLineEnding gives every line the carriage return that ref ends with, so
// edits in CRLF documents stay CRLF.
func withLineEnding(ref string, lines []string) []string {
	if !strings.HasSuffix(ref, "\r") {
		return lines
	}
	out := make([]string, len(lines))
	for i, line := range lines {
		if !strings.HasSuffix(line, "\r") {
			line += "\r"
		}
		out[i] = line
	}
	return out
}

func insertAfter(content string, after int, newLines []string) string {
	lines := strings.Split(content, "\n")
	pos := after + 1
	if after < 0 || pos > len(lines) {
		pos = len(lines)
		// keep the trailing newline last
		if lines[pos-1] == "" {
			pos--
		}
	}
	out := make([]string, 0, len(lines)+len(newLines))
	out = append(out, lines[:pos]...)
	out = append(out, newLines...)
	out = append(out, lines[pos:]...)
	return strings.Join(out, "\n")
}

func exhaustedMessage(path, line string, attempts int) string {
	return fmt.Sprintf("Could not update the task in %s after %d attempts.\n"+
		"The task line was:\n%s\n"+
		"Recommendations:\n"+
		"- wait a moment and try again\n"+
		"- check that the file was not edited or moved by another program\n"+
		"- run 'incrtask doctor %s' to inspect the file outline",
		path, attempts, line, path)
}
