package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderSummary(t *testing.T) {
	result := Result{FileCount: 3, TotalSizeBytes: 120, TokenCount: 30, Truncated: true}
	summary := renderSummary(result, -1)
	assert.Contains(t, summary, "Files aggregated: 3")
	assert.Contains(t, summary, "Total size: 120 bytes")
	assert.Contains(t, summary, "Estimated tokens: 30")
	assert.Contains(t, summary, "truncated")
	assert.NotContains(t, summary, "Exact tokens")
}

func TestRenderSummaryWithExactCount(t *testing.T) {
	summary := renderSummary(Result{FileCount: 1}, 42)
	assert.Contains(t, summary, "Exact tokens: 42")
}
