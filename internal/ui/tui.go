// Package ui provides an optional terminal interface for browsing and
// editing incremental tasks.
package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nibzard/incrtask/internal/engine"
	"github.com/nibzard/incrtask/internal/index"
	"github.com/nibzard/incrtask/internal/logging"
	"github.com/nibzard/incrtask/internal/task"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	cursorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	doneStyle    = lipgloss.NewStyle().Faint(true)
	blockedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	footerStyle  = lipgloss.NewStyle().Faint(true)
)

// RunTUI shows the tasks indexed by eng until the user quits or ctx is done.
// notices should be the channel behind the engine's ChannelNotifier; it may
// be nil.
func RunTUI(ctx context.Context, eng *engine.Engine, notices <-chan logging.Notice) error {
	if !IsTTY(os.Stdout) {
		return fmt.Errorf("tui requires a TTY")
	}

	model := newTUIModel(ctx, eng, notices)
	defer model.unsubscribe()

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	return err
}

type tuiModel struct {
	ctx         context.Context
	eng         *engine.Engine
	updates     chan index.Update
	notices     <-chan logging.Notice
	unsubscribe func()

	state       index.State
	all         []task.Task
	visible     []task.Task
	cursor      int
	blockedOnly bool
	showHelp    bool
	busy        bool

	notice      *logging.Notice
	noticeUntil time.Time
	now         func() time.Time
}

type updateMsg index.Update

type noticeMsg logging.Notice

type editDoneMsg struct {
	action string
	task   task.Task
	err    error
}

type refreshDoneMsg struct{ err error }

func newTUIModel(ctx context.Context, eng *engine.Engine, notices <-chan logging.Notice) *tuiModel {
	m := &tuiModel{
		ctx:     ctx,
		eng:     eng,
		updates: make(chan index.Update, 1),
		notices: notices,
		now:     time.Now,
	}
	// Subscribers run under the index lock, so hand off without blocking and
	// keep only the newest snapshot.
	m.unsubscribe = eng.Index().Subscribe(func(u index.Update) {
		select {
		case m.updates <- u:
		default:
			select {
			case <-m.updates:
			default:
			}
			select {
			case m.updates <- u:
			default:
			}
		}
	})
	m.setTasks(eng.Index().Tasks(), eng.Index().State())
	return m
}

func (m *tuiModel) Init() tea.Cmd {
	cmds := []tea.Cmd{waitForUpdate(m.updates)}
	if m.notices != nil {
		cmds = append(cmds, waitForNotice(m.notices))
	}
	return tea.Batch(cmds...)
}

func (m *tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case updateMsg:
		m.setTasks(msg.Tasks, msg.State)
		return m, waitForUpdate(m.updates)
	case noticeMsg:
		n := logging.Notice(msg)
		m.showNotice(n)
		return m, waitForNotice(m.notices)
	case editDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.showNotice(logging.Notice{Level: logging.LevelError, Message: msg.err.Error(), Duration: logging.ErrorDuration})
			return m, nil
		}
		m.showNotice(logging.Notice{
			Level:    logging.LevelWarn,
			Message:  fmt.Sprintf("%s: %s", msg.action, msg.task.DescriptionWithoutTags()),
			Duration: 3 * time.Second,
		})
		return m, nil
	case refreshDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.showNotice(logging.Notice{Level: logging.LevelError, Message: msg.err.Error(), Duration: logging.ErrorDuration})
		}
		m.setTasks(m.eng.Index().Tasks(), m.eng.Index().State())
		return m, nil
	}
	return m, nil
}

func (m *tuiModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "h", "?":
		m.showHelp = !m.showHelp
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.visible)-1 {
			m.cursor++
		}
	case "b":
		m.blockedOnly = !m.blockedOnly
		m.applyFilter()
	case "r", "f5":
		if m.busy {
			return m, nil
		}
		m.busy = true
		return m, m.refreshCmd()
	case " ", "x":
		return m, m.editCmd("toggled", m.eng.Controller().Toggle)
	case "+", "a":
		return m, m.editCmd("advanced", m.eng.Controller().Advance)
	}
	return m, nil
}

func (m *tuiModel) editCmd(action string, fn func(context.Context, task.Task) (task.Task, error)) tea.Cmd {
	t, ok := m.selected()
	if !ok || m.busy {
		return nil
	}
	m.busy = true
	ctx := m.ctx
	return func() tea.Msg {
		next, err := fn(ctx, t)
		return editDoneMsg{action: action, task: next, err: err}
	}
}

func (m *tuiModel) refreshCmd() tea.Cmd {
	ctx, eng := m.ctx, m.eng
	return func() tea.Msg {
		return refreshDoneMsg{err: eng.Start(ctx)}
	}
}

func (m *tuiModel) selected() (task.Task, bool) {
	if m.cursor < 0 || m.cursor >= len(m.visible) {
		return task.Task{}, false
	}
	return m.visible[m.cursor], true
}

func (m *tuiModel) setTasks(tasks []task.Task, state index.State) {
	sorted := make([]task.Task, len(tasks))
	copy(sorted, tasks)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Path() != sorted[j].Path() {
			return sorted[i].Path() < sorted[j].Path()
		}
		return sorted[i].LineNumber() < sorted[j].LineNumber()
	})
	m.all = sorted
	m.state = state
	m.applyFilter()
}

// applyFilter rebuilds the visible list and keeps the cursor on the same
// task when it is still shown.
func (m *tuiModel) applyFilter() {
	prev, hadPrev := m.selected()

	m.visible = m.visible[:0]
	for _, t := range m.all {
		if m.blockedOnly && !t.IsBlocked(m.all) {
			continue
		}
		m.visible = append(m.visible, t)
	}

	if hadPrev {
		for i, t := range m.visible {
			if t.Path() == prev.Path() && (t.LineNumber() == prev.LineNumber() || (t.ID != "" && t.ID == prev.ID)) {
				m.cursor = i
				return
			}
		}
	}
	if m.cursor >= len(m.visible) {
		m.cursor = len(m.visible) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *tuiModel) showNotice(n logging.Notice) {
	m.notice = &n
	m.noticeUntil = m.now().Add(n.Duration)
}

func (m *tuiModel) View() string {
	var b strings.Builder
	writeTitle(&b, m.state, len(m.all))

	if m.showHelp {
		writeHelp(&b)
		writeFooter(&b)
		return b.String()
	}

	if m.blockedOnly {
		b.WriteString("Filter: blocked (b to clear)\n\n")
	}

	switch {
	case m.state != index.StateWarm && len(m.all) == 0:
		b.WriteString("Indexing...\n\n")
	case len(m.visible) == 0:
		b.WriteString("  No incremental tasks.\n\n")
	default:
		m.writeTasks(&b)
	}

	m.writeNotice(&b)
	writeFooter(&b)
	return b.String()
}

func (m *tuiModel) writeTasks(b *strings.Builder) {
	lastPath := ""
	for i, t := range m.visible {
		if t.Path() != lastPath {
			if lastPath != "" {
				b.WriteString("\n")
			}
			b.WriteString(headerStyle.Render(t.Path()) + "\n")
			lastPath = t.Path()
		}
		line := formatTask(t, t.IsBlocked(m.all))
		switch {
		case i == m.cursor:
			line = cursorStyle.Render("> " + line)
		case t.Checked:
			line = doneStyle.Render("  " + line)
		case t.IsBlocked(m.all):
			line = blockedStyle.Render("  " + line)
		default:
			line = "  " + line
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n")
}

func (m *tuiModel) writeNotice(b *strings.Builder) {
	if m.busy {
		b.WriteString("Working...\n\n")
	}
	if m.notice == nil || m.now().After(m.noticeUntil) {
		return
	}
	msg := m.notice.Message
	if m.notice.Level == logging.LevelError {
		b.WriteString(errorStyle.Render(msg) + "\n\n")
		return
	}
	b.WriteString(warnStyle.Render(msg) + "\n\n")
}

func waitForUpdate(ch <-chan index.Update) tea.Cmd {
	return func() tea.Msg {
		return updateMsg(<-ch)
	}
}

func waitForNotice(ch <-chan logging.Notice) tea.Cmd {
	return func() tea.Msg {
		n, ok := <-ch
		if !ok {
			return nil
		}
		return noticeMsg(n)
	}
}

func writeTitle(b *strings.Builder, state index.State, n int) {
	b.WriteString(titleStyle.Render("incrtask") + fmt.Sprintf("  %d tasks (%s)\n\n", n, state))
}

func writeHelp(b *strings.Builder) {
	b.WriteString("Keyboard Shortcuts\n\n")
	b.WriteString("  q, ctrl+c    Quit\n")
	b.WriteString("  up/k down/j  Move\n")
	b.WriteString("  space, x     Toggle the selected task\n")
	b.WriteString("  +, a         Advance progress by one unit\n")
	b.WriteString("  b            Show only blocked tasks\n")
	b.WriteString("  r, F5        Re-index the vault\n")
	b.WriteString("  h, ?         Toggle this help screen\n\n")
}

func writeFooter(b *strings.Builder) {
	b.WriteString(footerStyle.Render("space toggle | + advance | b blocked | h help | q quit") + "\n")
}

// formatTask renders one task row: checkbox, line, description, progress and
// id.
func formatTask(t task.Task, blocked bool) string {
	box := "[ ]"
	if t.Checked {
		box = "[x]"
	}
	line := fmt.Sprintf("%s %4d  %s", box, t.LineNumber()+1, t.DescriptionWithoutTags())
	if t.Total > 0 {
		line += fmt.Sprintf("  %d/%d %s", t.Current, t.Total, t.IncrementUnit)
	}
	if t.ID != "" {
		line += "  #" + t.ID
	}
	if blocked {
		line += "  (blocked by " + strings.Join(t.DependsOn, ",") + ")"
	}
	return line
}

// IsTTY returns true if stdout is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
