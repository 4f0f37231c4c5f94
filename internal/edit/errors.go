package edit

import (
	"errors"
	"fmt"
)

// Kind classifies why an edit attempt failed.
type Kind int

const (
	KindUnknown Kind = iota
	// KindCacheMissing: no outline for the file yet.
	KindCacheMissing
	// KindNoListItems: the outline lists no list items.
	KindNoListItems
	// KindStaleCache: the outline refers past the end of the file.
	KindStaleCache
	// KindNotFound: no resolver tier located the task.
	KindNotFound
	// KindMismatch: the task's slot holds a different line.
	KindMismatch
	KindMissingFile
	KindUnsupported
	KindRead
	KindWrite
	KindExhausted
	KindCanceled
	KindInvalid
)

var kindNames = map[Kind]string{
	KindUnknown:      "unknown",
	KindCacheMissing: "cache_missing",
	KindNoListItems:  "no_list_items",
	KindStaleCache:   "stale_cache",
	KindNotFound:     "not_found",
	KindMismatch:     "mismatch",
	KindMissingFile:  "missing_file",
	KindUnsupported:  "unsupported",
	KindRead:         "read",
	KindWrite:        "write",
	KindExhausted:    "exhausted",
	KindCanceled:     "canceled",
	KindInvalid:      "invalid",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Retryable reports whether another attempt may succeed once the outline
// catches up.
func (k Kind) Retryable() bool {
	switch k {
	case KindCacheMissing, KindNoListItems, KindStaleCache, KindNotFound:
		return true
	}
	return false
}

// Warn reports whether the first occurrence of a retryable kind is shown to
// the user.
func (k Kind) Warn() bool {
	switch k {
	case KindCacheMissing, KindNoListItems, KindStaleCache:
		return true
	}
	return false
}

// Error is returned by every edit operation.
type Error struct {
	Kind Kind
	Path string
	// Line is the original markdown of the task being edited.
	Line string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Err != nil && e.Kind != KindMismatch {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
