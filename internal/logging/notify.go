package logging

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Notice durations used for user facing messages.
const (
	WarnDuration  = 10 * time.Second
	ErrorDuration = 15 * time.Second
)

// Level is the severity of a notice.
type Level string

const (
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Notice is one user facing message.
type Notice struct {
	Level    Level
	Message  string
	Duration time.Duration
}

// Notifier shows short messages to the user.
type Notifier interface {
	Warn(msg string, d time.Duration)
	Error(msg string, d time.Duration)
}

// ConsoleNotifier prints notices through a console logger.
type ConsoleNotifier struct {
	logger *log.Logger
}

// NewConsoleNotifier returns a notifier writing through logger.
func NewConsoleNotifier(logger *log.Logger) *ConsoleNotifier {
	return &ConsoleNotifier{logger: logger}
}

func (n *ConsoleNotifier) Warn(msg string, d time.Duration) {
	n.logger.Warn(msg)
}

func (n *ConsoleNotifier) Error(msg string, d time.Duration) {
	n.logger.Error(msg)
}

// ChannelNotifier forwards notices to a channel without blocking; notices
// are dropped while the channel is full.
type ChannelNotifier struct {
	ch chan<- Notice
}

// NewChannelNotifier returns a notifier sending on ch.
func NewChannelNotifier(ch chan<- Notice) *ChannelNotifier {
	return &ChannelNotifier{ch: ch}
}

func (n *ChannelNotifier) Warn(msg string, d time.Duration) {
	n.send(Notice{Level: LevelWarn, Message: msg, Duration: d})
}

func (n *ChannelNotifier) Error(msg string, d time.Duration) {
	n.send(Notice{Level: LevelError, Message: msg, Duration: d})
}

func (n *ChannelNotifier) send(notice Notice) {
	select {
	case n.ch <- notice:
	default:
	}
}

// Recorder keeps every notice in memory.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *Recorder) Warn(msg string, d time.Duration) {
	r.add(Notice{Level: LevelWarn, Message: msg, Duration: d})
}

func (r *Recorder) Error(msg string, d time.Duration) {
	r.add(Notice{Level: LevelError, Message: msg, Duration: d})
}

func (r *Recorder) add(n Notice) {
	r.mu.Lock()
	r.notices = append(r.notices, n)
	r.mu.Unlock()
}

// Notices returns a copy of the recorded notices.
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notice, len(r.notices))
	copy(out, r.notices)
	return out
}

// Count returns how many notices of level were recorded.
func (r *Recorder) Count(level Level) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, notice := range r.notices {
		if notice.Level == level {
			n++
		}
	}
	return n
}

// Multi fans notices out to several notifiers.
type Multi []Notifier

func (m Multi) Warn(msg string, d time.Duration) {
	for _, n := range m {
		n.Warn(msg, d)
	}
}

func (m Multi) Error(msg string, d time.Duration) {
	for _, n := range m {
		n.Error(msg, d)
	}
}
