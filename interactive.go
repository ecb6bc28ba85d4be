package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	fuzzyfinder "github.com/ktr0731/go-fuzzyfinder"
)

// runInteractiveFinder scans the current directory and lets the user
// multi-select the roots to aggregate. The skip list prunes the candidate
// walk so node_modules and friends never clutter the picker. A nil, nil
// return means the user backed out.
func runInteractiveFinder(cfg *ProcessConfig) ([]string, error) {
	matcher := newSkipMatcher(cfg.SkipPatterns)
	var candidates []string

	err := filepath.WalkDir(".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries just don't show up
		}
		if path == "." {
			return nil
		}
		if matcher.Excludes(filepath.ToSlash(path)) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		candidates = append(candidates, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan for candidates: %w", err)
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("nothing to select from in the current directory")
	}

	indices, err := fuzzyfinder.FindMulti(
		candidates,
		func(i int) string { return candidates[i] },
		fuzzyfinder.WithPreviewWindow(func(i, width, height int) string {
			if i == -1 {
				return "Tab to multi-select, Enter to confirm."
			}
			info, statErr := os.Stat(candidates[i])
			if statErr != nil {
				return fmt.Sprintf("Path: %s\nError: %v", candidates[i], statErr)
			}
			kind := "File"
			if info.IsDir() {
				kind = "Directory"
			}
			return fmt.Sprintf("Path: %s\nType: %s\nSize: %d bytes", candidates[i], kind, info.Size())
		}),
	)
	if err != nil {
		if err == fuzzyfinder.ErrAbort {
			return nil, nil
		}
		return nil, fmt.Errorf("fuzzy finder: %w", err)
	}

	selected := make([]string, len(indices))
	for i, index := range indices {
		selected[i] = candidates[index]
	}
	return selected, nil
}
