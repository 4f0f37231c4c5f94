package task

import (
	"slices"
	"strings"
)

// Details holds the fields carried by the single-line encoding.
type Details struct {
	Checked       bool
	Description   string
	IncrementUnit string
	Current       int
	Total         int
	DependsOn     []string
	ID            string
	Tags          []string
}

// Task is an incremental task found in a document.
type Task struct {
	Details

	Indentation      string
	ListMarker       string
	BlockLink        string // trailing block reference, without the caret
	OriginalMarkdown string
	Location         Location

	// ParentLine is the line of the structural parent list item, or -1 for a
	// top level item.
	ParentLine int
}

// ListItem is a plain list line, tracked only to link tasks to their parents.
type ListItem struct {
	Line       string
	LineNumber int
	ParentLine int
}

// Path returns the path of the file holding the task.
func (t Task) Path() string { return t.Location.Path() }

// LineNumber returns the line the task was parsed from.
func (t Task) LineNumber() int { return t.Location.LineNumber() }

// IsDone reports whether the task is checked.
func (t Task) IsDone() bool { return t.Checked }

// IsRoot reports whether the task has no structural parent.
func (t Task) IsRoot() bool { return t.ParentLine < 0 }

// Progress returns the completed fraction in [0, 1], or 0 when the task has
// no total.
func (t Task) Progress() float64 {
	if t.Total <= 0 {
		return 0
	}
	if t.Current >= t.Total {
		return 1
	}
	return float64(t.Current) / float64(t.Total)
}

// DescriptionWithoutTags returns the description with hashtags removed.
func (t Task) DescriptionWithoutTags() string {
	return stripHashtags(t.Description)
}

// IsBlocked reports whether any task t depends on is still open. Checked
// tasks are never blocked.
func (t Task) IsBlocked(all []Task) bool {
	if t.Checked || len(t.DependsOn) == 0 {
		return false
	}
	for _, other := range all {
		if other.ID == "" || other.Checked {
			continue
		}
		if slices.Contains(t.DependsOn, other.ID) {
			return true
		}
	}
	return false
}

// IdenticalTo reports structural equality: description, indentation, list
// marker, line number, id, dependencies and tags (order sensitive). Other
// fields are ignored.
func (t Task) IdenticalTo(o Task) bool {
	return t.Description == o.Description &&
		t.Indentation == o.Indentation &&
		t.ListMarker == o.ListMarker &&
		t.LineNumber() == o.LineNumber() &&
		t.ID == o.ID &&
		slices.Equal(t.DependsOn, o.DependsOn) &&
		slices.Equal(t.Tags, o.Tags)
}

// ListsIdentical reports whether a and b have the same length and are
// pairwise identical.
func ListsIdentical(a, b []Task) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].IdenticalTo(b[i]) {
			return false
		}
	}
	return true
}

// String returns the task's original markdown, trimmed.
func (t Task) String() string {
	return strings.TrimSpace(t.OriginalMarkdown)
}
