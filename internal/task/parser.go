package task

import "strings"

// Components are the structural parts of a list item line.
type Components struct {
	Indentation string
	ListMarker  string
	// Body starts at the checkbox. A trailing block link (" ^abc") is removed.
	Body string
	// BlockLink is the removed block link without its caret.
	BlockLink string
}

// ExtractComponents splits a checkbox list item. It reports false when line
// is not a checkbox list item. A CRLF line ending is ignored.
func ExtractComponents(line string) (Components, bool) {
	m := listItemRegex.FindStringSubmatch(strings.TrimSuffix(line, "\r"))
	if m == nil {
		return Components{}, false
	}
	c := Components{Indentation: m[1], ListMarker: m[2]}
	body := strings.TrimRight(m[3], " \t")
	if loc := blockLinkRegex.FindStringSubmatchIndex(body); loc != nil {
		c.BlockLink = body[loc[2]:loc[3]]
		body = body[:loc[0]]
	}
	c.Body = strings.TrimSpace(body)
	return c, true
}

// Parser builds tasks from document lines.
type Parser struct {
	serializer *Serializer
}

// NewParser returns a parser recognising incrTag as the incremental tag.
func NewParser(taskTag, incrTag string) *Parser {
	return &Parser{serializer: NewSerializer(taskTag, incrTag)}
}

// Serializer returns the serializer used by the parser.
func (p *Parser) Serializer() *Serializer { return p.serializer }

// IncrementalTag returns the tag that marks incremental tasks.
func (p *Parser) IncrementalTag() string { return p.serializer.incrTag }

// FromLine parses line as an incremental task found at loc. It reports false
// for lines that are not checkbox list items or lack the incremental tag.
func (p *Parser) FromLine(line string, loc Location) (*Task, bool) {
	c, ok := ExtractComponents(line)
	if !ok || !strings.Contains(c.Body, p.serializer.incrTag) {
		return nil, false
	}

	d := p.serializer.Deserialize(c.Body)
	d.Tags = p.serializer.normalizeTags(d.Tags)

	return &Task{
		Details:          d,
		Indentation:      c.Indentation,
		ListMarker:       c.ListMarker,
		BlockLink:        c.BlockLink,
		OriginalMarkdown: line,
		Location:         loc,
		ParentLine:       -1,
	}, true
}

// Generate encodes a new incremental task. The generated id avoids every id
// in existing.
func (p *Parser) Generate(description, unit string, total int, existing []string) ([]string, error) {
	return p.serializer.SerializeWithIDs(Details{
		Description:   description,
		IncrementUnit: unit,
		Total:         total,
	}, existing)
}
