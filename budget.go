package main

import (
	"fmt"
	"strings"
)

// Fragment is one accepted file: its normalized path plus the (possibly
// transformed) text. Fragments are consumed into the aggregate in traversal
// order.
type Fragment struct {
	Path    string
	Content string
}

// Result is what a run hands back to the caller. Truncated is true iff the
// token budget was hit before the source ran out; a result with zero files
// and Truncated false means nothing matched at all.
type Result struct {
	Content        string
	FileCount      int
	TotalSizeBytes int64
	TokenCount     int
	Truncated      bool
}

// Empty reports the "nothing matched" case, distinct from a
// truncated-but-nonempty run.
func (r Result) Empty() bool {
	return r.FileCount == 0 && !r.Truncated
}

// Aggregator owns the running counters and enforces the token budget across
// whichever source is producing fragments. Granularity is whole fragments: a
// single oversized file is rejected outright, never sliced mid-content.
type Aggregator struct {
	budget    int
	builder   strings.Builder
	fragments []Fragment
	fileCount int
	totalSize int64
	tokens    int
	truncated bool
}

func newAggregator(tokenBudget int) *Aggregator {
	return &Aggregator{budget: tokenBudget}
}

// renderFragment is the one place the artifact's per-file framing is defined:
// a blank line, a "// File:" header, then the content.
func renderFragment(frag Fragment) string {
	return fmt.Sprintf("\n\n// File: %s\n%s", frag.Path, frag.Content)
}

// Add appends one fragment and re-derives the token count over the whole
// artifact. The return value is the cooperative stop signal: false tells the
// source to produce nothing further. A fragment that would push past the
// budget is rejected and marks the result truncated.
func (a *Aggregator) Add(frag Fragment) bool {
	if a.truncated {
		return false
	}
	frag.Path = normalizePath(frag.Path)
	rendered := renderFragment(frag)

	if a.budget != UnlimitedTokens {
		candidate := strings.TrimSpace(a.builder.String() + rendered)
		if EstimateTokens(candidate) > a.budget {
			a.truncated = true
			return false
		}
	}

	a.builder.WriteString(rendered)
	a.fragments = append(a.fragments, frag)
	a.fileCount++
	a.totalSize += int64(len(frag.Content))
	a.tokens = EstimateTokens(strings.TrimSpace(a.builder.String()))

	if a.budget != UnlimitedTokens && a.tokens >= a.budget {
		a.truncated = true
		return false
	}
	return true
}

// Truncated reports whether the budget has been hit.
func (a *Aggregator) Truncated() bool { return a.truncated }

// Fragments exposes the accepted fragments in order (the PDF renderer wants
// per-file boundaries the flat artifact no longer has).
func (a *Aggregator) Fragments() []Fragment { return a.fragments }

// Result finalizes the run: the artifact is trimmed and the token count is
// recomputed over exactly the content the caller receives.
func (a *Aggregator) Result() Result {
	content := strings.TrimSpace(a.builder.String())
	return Result{
		Content:        content,
		FileCount:      a.fileCount,
		TotalSizeBytes: a.totalSize,
		TokenCount:     EstimateTokens(content),
		Truncated:      a.truncated,
	}
}
