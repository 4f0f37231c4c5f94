package config

import "strings"

// normalizeExtensions lowercases extensions, strips leading dots and drops
// empty and duplicate entries.
func normalizeExtensions(exts []string) []string {
	normalized := make([]string, 0, len(exts))
	seen := make(map[string]bool, len(exts))
	for _, ext := range exts {
		ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
		if ext == "" || seen[ext] {
			continue
		}
		seen[ext] = true
		normalized = append(normalized, ext)
	}
	return normalized
}

// boolFromString parses a boolean from a string.
func boolFromString(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "1" || s == "true" || s == "yes" || s == "on"
}
