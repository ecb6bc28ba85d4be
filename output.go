package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/atotto/clipboard"
)

// renderSummary builds the human-readable run report printed to stderr after
// the artifact is delivered. exactTokens is negative when no exact-count
// backend ran.
func renderSummary(result Result, exactTokens int) string {
	var builder strings.Builder
	builder.WriteString("--- Summary ---\n")
	builder.WriteString(fmt.Sprintf("Files aggregated: %d\n", result.FileCount))
	builder.WriteString(fmt.Sprintf("Total size: %d bytes\n", result.TotalSizeBytes))
	builder.WriteString(fmt.Sprintf("Estimated tokens: %d\n", result.TokenCount))
	if exactTokens >= 0 {
		builder.WriteString(fmt.Sprintf("Exact tokens: %d\n", exactTokens))
	}
	if result.Truncated {
		builder.WriteString("Output truncated: token budget reached before the source was exhausted.\n")
	}
	return builder.String()
}

// deliverOutput sends the artifact where the flags point: a file, the
// clipboard, or stdout. A clipboard failure falls back to stdout so the run's
// work is never lost.
func deliverOutput(content, outputFile string, copyToClipboard bool) error {
	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(content), 0644); err != nil {
			return fmt.Errorf("write %s: %w", outputFile, err)
		}
		fmt.Fprintf(os.Stderr, "Output saved to %s\n", outputFile)
		return nil
	}

	if copyToClipboard {
		if err := clipboard.WriteAll(content); err != nil {
			fmt.Fprintf(os.Stderr, "Clipboard copy failed (%v), printing instead:\n", err)
			fmt.Println(content)
			return nil
		}
		fmt.Fprintln(os.Stderr, "Output copied to clipboard.")
		return nil
	}

	fmt.Println(content)
	return nil
}
