package task

import (
	"regexp"
	"strings"
)

const (
	recurSymbol   = "🔁"
	blockedSymbol = "⛔"
	idSymbol      = "🆔"

	// variationSelector may trail any emoji marker.
	variationSelector = "\ufe0f"
)

// Default tags used when none are configured.
const (
	DefaultTaskTag            = "#task"
	DefaultIncrementalTaskTag = "#task/incr"
)

var (
	// indentation (including blockquote markers), list marker, body from the checkbox on
	listItemRegex = regexp.MustCompile(`^([\s\t>]*)([-*+]|[0-9]+[.)])\s+(\[.\].*)$`)

	checkboxRegex  = regexp.MustCompile(`^\[(.)\]`)
	blockLinkRegex = regexp.MustCompile(`\s\^([a-zA-Z0-9-]+)$`)
	progressRegex  = regexp.MustCompile(`(\d+)\s*/\s*(\d+)`)

	hashTagsRegex        = regexp.MustCompile(`(^|\s)#[^ !@#$%^&*(),.?":{}|<>]+`)
	trailingHashTagRegex = regexp.MustCompile(`(^|\s)#[^ !@#$%^&*(),.?":{}|<>]+$`)

	idRegex        = regexp.MustCompile(`⛔\x{FE0F}?\s*([a-zA-Z0-9_-]+)`)
	dependsOnRegex = regexp.MustCompile(`🆔\x{FE0F}?\s*([a-zA-Z0-9_-]+(?:\s*,\s*[a-zA-Z0-9_-]+)*)`)

	whitespaceRegex = regexp.MustCompile(`\s+`)

	// checkbox character of a whole list item line, as submatch 1
	checkboxMarkRegex = regexp.MustCompile(`^[\s\t>]*(?:[-*+]|[0-9]+[.)])\s+\[(.)\]`)
)

var markers = []string{recurSymbol, blockedSymbol, idSymbol}

// firstMarker returns the byte offset of the earliest marker in s, or -1.
func firstMarker(s string) int {
	first := -1
	for _, m := range markers {
		if i := strings.Index(s, m); i >= 0 && (first < 0 || i < first) {
			first = i
		}
	}
	return first
}

// collapse trims s and folds runs of whitespace into a single space.
func collapse(s string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(s, " "))
}

// hashtags returns every hashtag in s, trimmed, in order of appearance.
func hashtags(s string) []string {
	matches := hashTagsRegex.FindAllString(s, -1)
	tags := make([]string, 0, len(matches))
	for _, m := range matches {
		tags = append(tags, strings.TrimSpace(m))
	}
	return tags
}

// stripHashtags removes every hashtag from s and collapses whitespace.
func stripHashtags(s string) string {
	return collapse(hashTagsRegex.ReplaceAllString(s, " "))
}
