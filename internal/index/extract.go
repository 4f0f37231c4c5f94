package index

import (
	"fmt"
	"strings"

	"github.com/nibzard/incrtask/internal/task"
	"github.com/nibzard/incrtask/internal/vault"
)

// Reporter receives lines that failed to parse. Parsing continues with the
// next list item.
type Reporter func(path string, item vault.ListItemCache, line string, err error)

// TasksFromContent extracts every incremental task from content using the
// outline fc. Items outside any section are skipped. It returns
// vault.ErrStaleCache, and no tasks, when fc refers to a line past the end
// of content.
func TasksFromContent(path, content string, fc *vault.FileCache, parser *task.Parser, report Reporter) ([]task.Task, error) {
	var tasks []task.Task
	if fc == nil {
		return tasks, nil
	}

	lines := strings.Split(content, "\n")
	// list items seen so far, keyed by line, for parent lookups
	items := make(map[int]task.ListItem)

	var section *vault.SectionCache
	sectionIndex := 0
	for _, item := range fc.ListItems {
		if item.Line < 0 || item.Line >= len(lines) {
			return nil, fmt.Errorf("%s line %d of %d: %w", path, item.Line, len(lines), vault.ErrStaleCache)
		}

		if section == nil || section.End < item.Line {
			section = vault.SectionAt(item.Line, fc.Sections)
			sectionIndex = 0
		}
		if section == nil {
			continue
		}

		line := lines[item.Line]
		parent := parentLine(item.Parent, items)
		items[item.Line] = task.ListItem{Line: line, LineNumber: item.Line, ParentLine: parent}
		if !item.Task {
			continue
		}

		loc := task.NewLocation(path, item.Line, section.Start, sectionIndex)
		t, ok, err := parseLine(parser, line, loc)
		if err != nil {
			if report != nil {
				report(path, item, line, err)
			}
			continue
		}
		if !ok {
			continue
		}
		t.ParentLine = parent
		tasks = append(tasks, *t)
		sectionIndex++
	}
	return tasks, nil
}

// parentLine resolves a structural parent to a known list item line, or -1.
func parentLine(parent int, items map[int]task.ListItem) int {
	if parent < 0 {
		return -1
	}
	if _, ok := items[parent]; ok {
		return parent
	}
	return -1
}

// parseLine runs the parser, converting a panic into an error so one bad
// line cannot abort indexing of the file.
func parseLine(parser *task.Parser, line string, loc task.Location) (t *task.Task, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			t, ok, err = nil, false, fmt.Errorf("parse task line: %v", r)
		}
	}()
	t, ok = parser.FromLine(line, loc)
	return t, ok, nil
}
