package task

// Location records where a task was last seen. It is immutable; use Renamed
// to derive a location for a moved file.
type Location struct {
	path         string
	lineNumber   int
	sectionStart int
	sectionIndex int
}

// NewLocation returns a location. lineNumber and sectionStart are zero based
// line numbers; sectionIndex is the ordinal of the task within its section.
func NewLocation(path string, lineNumber, sectionStart, sectionIndex int) Location {
	return Location{
		path:         path,
		lineNumber:   lineNumber,
		sectionStart: sectionStart,
		sectionIndex: sectionIndex,
	}
}

// Path returns the vault relative path of the file holding the task.
func (l Location) Path() string { return l.path }

// LineNumber returns the zero based line the task was parsed from.
func (l Location) LineNumber() int { return l.lineNumber }

// SectionStart returns the first line of the section containing the task.
func (l Location) SectionStart() int { return l.sectionStart }

// SectionIndex returns the task's ordinal among tasks in its section.
func (l Location) SectionIndex() int { return l.sectionIndex }

// HasKnownPath reports whether the location names a file.
func (l Location) HasKnownPath() bool { return l.path != "" }

// Renamed returns a copy of l pointing at path.
func (l Location) Renamed(path string) Location {
	l.path = path
	return l
}
