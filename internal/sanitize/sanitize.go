// Package sanitize strips markup and script vectors from user-supplied text
// before it is stored. Output encoding at render time is still required.
package sanitize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const MaxBioLength = 500

var (
	scriptBlockPattern = regexp.MustCompile(`(?is)<\s*script\b[^>]*>.*?<\s*/\s*script\s*>`)
	openScriptPattern  = regexp.MustCompile(`(?is)<\s*script\b.*$`)
	eventAttrPattern   = regexp.MustCompile(`(?i)\bon[a-z]+\s*=\s*("[^"]*"|'[^']*'|[^\s>]+)`)
	tagPattern         = regexp.MustCompile(`(?s)<[^>]*>`)
	jsURIPattern       = regexp.MustCompile(`(?i)javascript\s*:`)
)

// Text removes script blocks, tags, inline event handlers, javascript: URIs
// and NUL bytes. Passes repeat until nothing changes, so removals cannot
// splice a new match together.
func Text(input string) string {
	clean := input
	for {
		next := strip(clean)
		if next == clean {
			return next
		}
		clean = next
	}
}

// strip only ever deletes, so every changing pass shortens the input.
func strip(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	s = scriptBlockPattern.ReplaceAllString(s, "")
	s = openScriptPattern.ReplaceAllString(s, "")
	s = eventAttrPattern.ReplaceAllString(s, "")
	s = tagPattern.ReplaceAllString(s, "")
	return jsURIPattern.ReplaceAllString(s, "")
}

// Field sanitizes a short single-value field and trims surrounding space.
func Field(input string) string {
	return strings.TrimSpace(Text(input))
}

// Bio sanitizes free text and truncates it to MaxBioLength characters.
func Bio(input string) string {
	return Truncate(strings.TrimSpace(Text(input)), MaxBioLength)
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// List sanitizes every entry, dropping ones that end up empty and duplicates.
func List(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		clean := Field(item)
		if clean == "" {
			continue
		}
		if _, dup := seen[clean]; dup {
			continue
		}
		seen[clean] = struct{}{}
		out = append(out, clean)
	}
	return out
}
