package task

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/nibzard/incrtask/internal/utils"
)

// Serializer converts between Details and task lines.
type Serializer struct {
	taskTag string
	incrTag string
}

// NewSerializer returns a serializer using the given tags. Empty tags fall
// back to DefaultTaskTag and DefaultIncrementalTaskTag.
func NewSerializer(taskTag, incrTag string) *Serializer {
	if strings.TrimSpace(taskTag) == "" {
		taskTag = DefaultTaskTag
	}
	if strings.TrimSpace(incrTag) == "" {
		incrTag = DefaultIncrementalTaskTag
	}
	return &Serializer{taskTag: taskTag, incrTag: incrTag}
}

// TaskTag returns the tag written on generated child lines.
func (s *Serializer) TaskTag() string { return s.taskTag }

// IncrementalTag returns the tag that marks a parent line.
func (s *Serializer) IncrementalTag() string { return s.incrTag }

// Serialize encodes d as d.Total lines: the parent followed by the children.
func (s *Serializer) Serialize(d Details) ([]string, error) {
	return s.SerializeWithIDs(d, nil)
}

// SerializeWithIDs is Serialize with a generated id guaranteed not to be in
// existing.
func (s *Serializer) SerializeWithIDs(d Details, existing []string) ([]string, error) {
	if d.Total < 1 {
		return nil, fmt.Errorf("total must be at least 1, got %d", d.Total)
	}

	id := GenerateID(existing)
	desc := strings.TrimSpace(d.Description)
	unit := strings.TrimSpace(d.IncrementUnit)

	lines := make([]string, 0, d.Total)
	lines = append(lines, fmt.Sprintf("- %s %s %s %s %s 0/%d %s %s",
		checkbox(d.Checked), s.incrTag, desc, recurSymbol, unit, d.Total, blockedSymbol, id))
	for i := 1; i < d.Total; i++ {
		line := fmt.Sprintf("\t- [ ] %s %s - %s %d", s.taskTag, desc, unit, i)
		if i == 1 {
			line += " " + idSymbol + " " + id
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// FormatLine re-encodes an existing task on a single line, keeping its
// indentation, list marker, counters, id, dependencies and tags.
func (s *Serializer) FormatLine(t Task) string {
	marker := t.ListMarker
	if marker == "" {
		marker = "-"
	}

	parts := []string{marker, checkbox(t.Checked), s.incrTag}
	if desc := strings.TrimSpace(t.Description); desc != "" {
		parts = append(parts, desc)
	}
	unit := strings.TrimSpace(t.IncrementUnit)
	if unit != "" || t.Total > 0 {
		parts = append(parts, recurSymbol)
		if unit != "" {
			parts = append(parts, unit)
		}
		if t.Total > 0 {
			parts = append(parts, fmt.Sprintf("%d/%d", t.Current, t.Total))
		}
	}
	if t.ID != "" {
		parts = append(parts, blockedSymbol, t.ID)
	}
	if len(t.DependsOn) > 0 {
		parts = append(parts, idSymbol, strings.Join(t.DependsOn, ","))
	}
	for _, tag := range t.Tags {
		if tag != s.incrTag {
			parts = append(parts, tag)
		}
	}
	if t.BlockLink != "" {
		parts = append(parts, "^"+t.BlockLink)
	}
	return t.Indentation + strings.Join(parts, " ")
}

// RewriteLine edits line in place so it carries the given checkbox state and
// progress counter. Everything else on the line, including text the grammar
// does not model, is kept byte for byte. It reports false when line is not a
// checkbox item, or when current differs but line has no counter.
func (s *Serializer) RewriteLine(line string, checked bool, current int) (string, bool) {
	m := checkboxMarkRegex.FindStringSubmatchIndex(line)
	if m == nil {
		return line, false
	}
	mark := line[m[2]:m[3]]
	if checked != (mark != " ") {
		mark = " "
		if checked {
			mark = "x"
		}
	}
	head, body := line[:m[2]]+mark+"]", line[m[1]:]

	if loc := progressIndex(body); loc != nil {
		if atoi(body[loc[2]:loc[3]]) != current {
			body = body[:loc[2]] + strconv.Itoa(current) + body[loc[3]:]
		}
	} else if current != 0 {
		return line, false
	}
	return head + body, true
}

// Deserialize decodes a task body starting at the checkbox. Missing fields
// decode to zero values.
func (s *Serializer) Deserialize(body string) Details {
	var d Details
	line := strings.TrimSpace(body)

	if m := checkboxRegex.FindStringSubmatch(line); m != nil {
		d.Checked = m[1] != " "
		line = strings.TrimSpace(line[len(m[0]):])
	}
	d.Tags = s.normalizeTags(hashtags(line))

	if loc := progressIndex(line); loc != nil {
		d.Current = atoi(line[loc[2]:loc[3]])
		d.Total = atoi(line[loc[4]:loc[5]])
		line = line[:loc[0]] + " " + line[loc[1]:]
	}

	// Trailing tags are peeled off first so they never leak into the id or
	// dependency segments.
	for {
		loc := trailingHashTagRegex.FindStringIndex(line)
		if loc == nil {
			break
		}
		line = strings.TrimRight(line[:loc[0]], " \t")
	}

	head := line
	if i := firstMarker(line); i >= 0 {
		head = line[:i]
	}
	d.Description = strings.TrimSpace(strings.ReplaceAll(stripHashtags(head), s.incrTag, ""))

	if i := strings.Index(line, recurSymbol); i >= 0 {
		rest := line[i+len(recurSymbol):]
		if j := firstMarker(rest); j >= 0 {
			rest = rest[:j]
		}
		rest = strings.TrimPrefix(rest, variationSelector)
		d.IncrementUnit = stripHashtags(rest)
	}

	if m := idRegex.FindStringSubmatch(line); m != nil {
		d.ID = m[1]
	}
	if m := dependsOnRegex.FindStringSubmatch(line); m != nil {
		d.DependsOn = utils.SplitAndTrim(m[1], ",")
	}
	return d
}

// normalizeTags trims tags and drops the incremental tag.
func (s *Serializer) normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || tag == s.incrTag {
			continue
		}
		out = append(out, tag)
	}
	return slices.Clip(out)
}

// progressIndex returns submatch indexes of the progress counter, preferring
// the first match after the recur marker.
func progressIndex(line string) []int {
	if i := strings.Index(line, recurSymbol); i >= 0 {
		if loc := progressRegex.FindStringSubmatchIndex(line[i:]); loc != nil {
			for k := range loc {
				loc[k] += i
			}
			return loc
		}
	}
	return progressRegex.FindStringSubmatchIndex(line)
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func checkbox(checked bool) string {
	if checked {
		return "[x]"
	}
	return "[ ]"
}
