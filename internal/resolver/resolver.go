// Package resolver locates a previously indexed task in the current content
// of its file.
package resolver

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/nibzard/incrtask/internal/task"
	"github.com/nibzard/incrtask/internal/vault"
)

// ErrNotFound means no tier produced a candidate line.
var ErrNotFound = errors.New("task line not found")

// MismatchError means the section replay reached the task's ordinal but the
// line there differs from the expected markdown.
type MismatchError struct {
	Path     string
	Line     int
	Expected string
	Found    string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("unable to find incremental task in file %s.\nExpected task:\n%s\nFound task:\n%s",
		e.Path, e.Expected, e.Found)
}

// Tier identifies which heuristic located the task.
type Tier int

const (
	TierNone Tier = iota
	TierExactLine
	TierUniqueMatch
	TierSectionReplay
)

func (t Tier) String() string {
	switch t {
	case TierExactLine:
		return "exact_line"
	case TierUniqueMatch:
		return "unique_match"
	case TierSectionReplay:
		return "section_replay"
	default:
		return "none"
	}
}

// Match is a located line.
type Match struct {
	Line int
	Tier Tier
}

// Resolver finds task lines. It is stateless.
type Resolver struct {
	incrTag string
}

// New returns a resolver replaying sections for lines tagged incrTag.
func New(incrTag string) *Resolver {
	if strings.TrimSpace(incrTag) == "" {
		incrTag = task.DefaultIncrementalTaskTag
	}
	return &Resolver{incrTag: incrTag}
}

// FindLine returns the line now holding t. It tries, in order: the recorded
// line number, a unique line equal to t's markdown, and a replay of the
// task's section counting tagged task items up to its section index.
func (r *Resolver) FindLine(t task.Task, lines []string, fc *vault.FileCache) (Match, error) {
	original := t.OriginalMarkdown
	loc := t.Location

	if n := loc.LineNumber(); n >= 0 && n < len(lines) && lines[n] == original {
		return Match{Line: n, Tier: TierExactLine}, nil
	}

	found := -1
	for i, line := range lines {
		if line != original {
			continue
		}
		if found >= 0 {
			found = -1
			break
		}
		found = i
	}
	if found >= 0 {
		return Match{Line: found, Tier: TierUniqueMatch}, nil
	}

	if fc == nil {
		return Match{}, ErrNotFound
	}

	start := loc.SectionStart()
	end := sectionEnd(fc.Sections, start)
	ordinal := 0
	for _, item := range fc.ListItems {
		if item.Line >= len(lines) {
			return Match{}, fmt.Errorf("%s line %d of %d: %w", loc.Path(), item.Line, len(lines), vault.ErrStaleCache)
		}
		if item.Line < start {
			continue
		}
		if item.Line > end {
			break
		}
		line := lines[item.Line]
		if !item.Task || !strings.Contains(line, r.incrTag) {
			continue
		}
		if ordinal == loc.SectionIndex() {
			if line == original {
				return Match{Line: item.Line, Tier: TierSectionReplay}, nil
			}
			return Match{}, &MismatchError{
				Path:     loc.Path(),
				Line:     item.Line,
				Expected: original,
				Found:    line,
			}
		}
		ordinal++
	}
	return Match{}, ErrNotFound
}

// sectionEnd bounds the replay: the end of the section starting at start,
// or the line before the next section when none starts there.
func sectionEnd(sections []vault.SectionCache, start int) int {
	next := math.MaxInt
	for _, s := range sections {
		if s.Start == start {
			return s.End
		}
		if s.Start > start && s.Start-1 < next {
			next = s.Start - 1
		}
	}
	return next
}
