package main

import (
	"regexp"
	"strings"
)

// defaultSkipPatterns excludes the directories nobody wants in a prompt:
// dependency caches, build artifacts, VCS metadata, editor state.
var defaultSkipPatterns = []string{
	"node_modules",
	".git",
	".svn",
	".hg",
	"__pycache__",
	".venv",
	"venv",
	"dist",
	"build",
	"target",
	"vendor",
	"coverage",
	".next",
	".nuxt",
	".idea",
	".vscode",
	"tmp",
	".ds_store",
}

// skipMatcher evaluates glob-like skip patterns against traversal paths.
// A pattern matching anywhere in the lower-cased path excludes the entry,
// so "node_modules" prunes that directory at any depth.
type skipMatcher struct {
	patterns []compiledPattern
}

type compiledPattern struct {
	// re is nil when the pattern degraded to a literal substring match.
	re      *regexp.Regexp
	literal string
}

// newSkipMatcher compiles the built-in skip list plus any extra patterns.
// Blank patterns are dropped. A pattern that fails to compile (shouldn't
// happen after quoting, but filtering must never abort a run) falls back to
// plain substring matching.
func newSkipMatcher(extra []string) *skipMatcher {
	all := make([]string, 0, len(defaultSkipPatterns)+len(extra))
	all = append(all, defaultSkipPatterns...)
	all = append(all, extra...)

	matcher := &skipMatcher{patterns: make([]compiledPattern, 0, len(all))}
	for _, raw := range all {
		pattern := strings.ToLower(strings.TrimSpace(raw))
		if pattern == "" {
			continue
		}
		matcher.patterns = append(matcher.patterns, compilePattern(pattern))
	}
	return matcher
}

// compilePattern escapes regex metacharacters, then re-introduces the two
// supported wildcards: '*' matches any run of characters, '?' any single one.
func compilePattern(pattern string) compiledPattern {
	quoted := regexp.QuoteMeta(pattern)
	quoted = strings.ReplaceAll(quoted, `\*`, `.*`)
	quoted = strings.ReplaceAll(quoted, `\?`, `.`)
	re, err := regexp.Compile(quoted)
	if err != nil {
		return compiledPattern{literal: pattern}
	}
	return compiledPattern{re: re}
}

// Excludes reports whether path matches any skip pattern. Matching is
// case-insensitive and purely a function of its inputs.
func (m *skipMatcher) Excludes(path string) bool {
	candidate := strings.ToLower(normalizePath(path))
	for _, p := range m.patterns {
		if p.re != nil {
			if p.re.MatchString(candidate) {
				return true
			}
		} else if strings.Contains(candidate, p.literal) {
			return true
		}
	}
	return false
}

// shouldExclude is the one-shot form used when no matcher is being reused:
// the given patterns are appended to the default list.
func shouldExclude(path string, patterns []string) bool {
	return newSkipMatcher(patterns).Excludes(path)
}

// normalizePath rewrites a traversal path to forward slashes with no leading
// slash, the canonical form fragments carry.
func normalizePath(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	return strings.TrimPrefix(path, "/")
}
