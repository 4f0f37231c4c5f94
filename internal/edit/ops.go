package edit

import (
	"context"
	"fmt"
	"strings"

	"github.com/nibzard/incrtask/internal/task"
)

// Toggle flips the checkbox of t and returns the task as written.
func (c *Controller) Toggle(ctx context.Context, t task.Task) (task.Task, error) {
	next := t
	next.Checked = !t.Checked
	return c.rewrite(ctx, t, next)
}

// Advance records one more unit of progress on t. Reaching the total checks
// the task.
func (c *Controller) Advance(ctx context.Context, t task.Task) (task.Task, error) {
	if t.Total <= 0 {
		return t, &Error{Kind: KindInvalid, Path: t.Path(), Line: t.OriginalMarkdown, Msg: "task has no total to advance toward"}
	}
	if t.Current >= t.Total {
		return t, &Error{
			Kind: KindInvalid,
			Path: t.Path(),
			Line: t.OriginalMarkdown,
			Msg:  fmt.Sprintf("task is already complete (%d/%d)", t.Current, t.Total),
		}
	}
	next := t
	next.Current++
	if next.Current >= next.Total {
		next.Checked = true
	}
	return c.rewrite(ctx, t, next)
}

// Generate writes a new incremental task into path after line after (see
// InsertLines). Existing ids are avoided when generating the new one.
func (c *Controller) Generate(ctx context.Context, path string, after int, d task.Details, existing []string) ([]string, error) {
	lines, err := c.serializer.SerializeWithIDs(d, existing)
	if err != nil {
		return nil, &Error{Kind: KindInvalid, Path: path, Msg: err.Error()}
	}
	if err := c.InsertLines(ctx, path, after, lines); err != nil {
		return nil, err
	}
	return lines, nil
}

// rewrite edits old's line in place. Only a line that no longer has a
// checkbox or counter to edit is re-encoded from next.
func (c *Controller) rewrite(ctx context.Context, old, next task.Task) (task.Task, error) {
	line, ok := c.serializer.RewriteLine(old.OriginalMarkdown, next.Checked, next.Current)
	if !ok {
		line = c.serializer.FormatLine(next)
		if strings.HasSuffix(old.OriginalMarkdown, "\r") {
			line += "\r"
		}
	}
	at, err := c.replace(ctx, old, []string{line})
	if err != nil {
		return old, err
	}
	next.OriginalMarkdown = line
	next.Location = task.NewLocation(old.Path(), at, old.Location.SectionStart(), old.Location.SectionIndex())
	return next, nil
}
