package scenario

import (
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

var (
	// jsonBlockPattern matches JSON inside markdown code blocks: ```json { ... } ```
	jsonBlockPattern = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(\\{.*\\})\\s*```")
	// jsonObjectPattern matches any JSON object (greedy fallback).
	jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)
	// trailingCommaPattern matches trailing commas before ] or }.
	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
)

// extractJSON returns the first valid JSON object found in content, or "".
// A fenced block wins over bare text. When the greedy match is not valid JSON
// (prose with braces after the object, say) the shortest valid object is used.
func extractJSON(content string) string {
	if m := jsonBlockPattern.FindStringSubmatch(content); len(m) > 1 {
		if raw := cleanJSON(m[1]); gjson.Valid(raw) {
			return raw
		}
	}
	if m := jsonObjectPattern.FindString(content); m != "" {
		if raw := cleanJSON(m); gjson.Valid(raw) {
			return raw
		}
	}
	return shortestObject(content)
}

// shortestObject scans each '{' in turn for the shortest prefix that closes
// into a valid object.
func shortestObject(content string) string {
	for start := strings.IndexByte(content, '{'); start >= 0; {
		for end := start + 1; end <= len(content); end++ {
			if content[end-1] != '}' {
				continue
			}
			if raw := cleanJSON(content[start:end]); gjson.Valid(raw) {
				return raw
			}
		}
		next := strings.IndexByte(content[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return ""
}

// cleanJSON removes JavaScript-style comments and trailing commas, both
// common in model output.
func cleanJSON(raw string) string {
	lines := strings.Split(raw, "\n")
	for i, line := range lines {
		lines[i] = stripLineComment(line)
	}
	return trailingCommaPattern.ReplaceAllString(strings.Join(lines, "\n"), "$1")
}

// stripLineComment removes a // comment from a JSON line, leaving string
// values such as "http://example.com" intact.
func stripLineComment(line string) string {
	if !strings.Contains(line, "//") {
		return line
	}
	inString := false
	escaped := false
	for i := 0; i < len(line); i++ {
		ch := line[i]
		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' && inString {
			escaped = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if !inString && ch == '/' && i+1 < len(line) && line[i+1] == '/' {
			return strings.TrimRight(line[:i], " \t")
		}
	}
	return line
}
