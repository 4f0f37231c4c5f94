package logging

import "time"

// Event names written to the edit log.
const (
	EventEditStart   = "edit_start"
	EventEditLine    = "edit_line"
	EventEditRetry   = "edit_retry"
	EventEditDone    = "edit_done"
	EventEditFailed  = "edit_failed"
	EventIndexUpdate = "index_update"
)

// EditStart records the task line an edit is about to replace.
func (e *EditLog) EditStart(path string, line int, original string) {
	if e == nil {
		return
	}
	e.logger.Info().
		Str("event", EventEditStart).
		Str("path", path).
		Int("line", line).
		Str("original", original).
		Msg("replacing task")
}

// EditLine records one replacement line.
func (e *EditLog) EditLine(path string, index int, text string) {
	if e == nil {
		return
	}
	e.logger.Debug().
		Str("event", EventEditLine).
		Str("path", path).
		Int("index", index).
		Str("text", text).
		Msg("replacement line")
}

// EditRetry records a failed attempt that will be retried after delay.
func (e *EditLog) EditRetry(path string, attempt int, delay time.Duration, kind string, err error) {
	if e == nil {
		return
	}
	e.logger.Warn().
		Str("event", EventEditRetry).
		Str("path", path).
		Int("attempt", attempt).
		Dur("delay", delay).
		Str("kind", kind).
		Err(err).
		Msg("retrying edit")
}

// EditDone records a successful write.
func (e *EditLog) EditDone(path string, line, attempts int) {
	if e == nil {
		return
	}
	e.logger.Info().
		Str("event", EventEditDone).
		Str("path", path).
		Int("line", line).
		Int("attempts", attempts).
		Msg("task replaced")
}

// EditFailed records an edit that gave up.
func (e *EditLog) EditFailed(path, kind string, err error) {
	if e == nil {
		return
	}
	e.logger.Error().
		Str("event", EventEditFailed).
		Str("path", path).
		Str("kind", kind).
		Err(err).
		Msg("edit failed")
}

// IndexUpdate records a changed task list for path.
func (e *EditLog) IndexUpdate(path string, tasks int, state string) {
	if e == nil {
		return
	}
	e.logger.Info().
		Str("event", EventIndexUpdate).
		Str("path", path).
		Int("tasks", tasks).
		Str("state", state).
		Msg("index updated")
}
