// Package util provides shared utility functions used across the codebase.
package util

import "strings"

// SplitCSV splits a comma-separated string into a slice, trimming whitespace.
// Returns nil for empty strings.
func SplitCSV(s string) []string {
	if s == "" {
		return nil
	}
	var result []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}

// RedactURL masks the password segment of a connection URL (the text
// between the last ':' before '@' and the '@') so URLs can be logged.
// URLs without credentials pass through unchanged.
func RedactURL(url string) string {
	at := strings.Index(url, "@")
	if at < 0 {
		return url
	}
	// Skip the scheme separator so a user-only URL is not mangled.
	start := 0
	if i := strings.Index(url, "://"); i >= 0 && i+3 < at {
		start = i + 3
	}
	colon := strings.LastIndex(url[start:at], ":")
	if colon < 0 {
		return url
	}
	colon += start
	return url[:colon+1] + "***" + url[at:]
}

// Truncate shortens s to at most n bytes, appending "..." when it cuts.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
