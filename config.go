package main

import (
	"strings"
)

// UnlimitedTokens is the sentinel budget meaning "never stop early".
const UnlimitedTokens = -1

// ProcessConfig carries everything one aggregation run needs. It is built by
// the caller, never mutated by the pipeline, and passed explicitly — the
// pipeline reads no ambient state.
type ProcessConfig struct {
	// AllowedExtensions restricts which files are aggregated, keyed by
	// lower-cased extension without the dot. Empty means accept all.
	AllowedExtensions map[string]struct{}

	// SkipPatterns are user-supplied glob-like patterns appended to the
	// built-in skip list (see defaultSkipPatterns).
	SkipPatterns []string

	// MaxFileSize in bytes; larger files are silently skipped. Zero or
	// negative disables the cap.
	MaxFileSize int64

	// TokenBudget caps the estimated token count of the final artifact.
	// UnlimitedTokens disables the cap.
	TokenBudget int

	StripComments bool
	Minify        bool

	// Credential is an optional API token for remote fetching. It raises
	// the effective rate limit and is attached as a bearer header.
	Credential string
}

// parseFormats turns the user-facing extension list (newline- or
// comma-separated, dots optional) into the allow set.
func parseFormats(raw string) map[string]struct{} {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == '\n' || r == ','
	})
	if len(fields) == 0 {
		return nil
	}
	allowed := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		ext := strings.ToLower(strings.TrimSpace(field))
		ext = strings.TrimPrefix(ext, ".")
		if ext == "" {
			continue
		}
		allowed[ext] = struct{}{}
	}
	if len(allowed) == 0 {
		return nil
	}
	return allowed
}

// parsePatterns splits a comma-separated string of patterns into a slice.
func parsePatterns(patterns string) []string {
	if patterns == "" {
		return nil
	}
	parts := strings.Split(patterns, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// fileExtension returns the lower-cased text after the last dot of the base
// name. A dotless name yields the whole name, matching how extension allow
// lists are commonly written ("makefile" is a valid entry).
func fileExtension(name string) string {
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		name = name[idx+1:]
	}
	return strings.ToLower(name)
}

// allowsFile applies the per-file acceptance rules shared by the local walker
// and the remote fetcher: size cap first, then the extension allow list.
func (c *ProcessConfig) allowsFile(path string, size int64) bool {
	if c.MaxFileSize > 0 && size > c.MaxFileSize {
		return false
	}
	if len(c.AllowedExtensions) == 0 {
		return true
	}
	_, ok := c.AllowedExtensions[fileExtension(path)]
	return ok
}
