package main

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// languageInfo mirrors the linguist languages.yml schema, reduced to the
// fields that matter for building an extension allow list.
type languageInfo struct {
	Type       string   `yaml:"type"` // programming, data, markup, prose
	Extensions []string `yaml:"extensions"`
	Filenames  []string `yaml:"filenames"`
}

// loadAllowedExtensions parses a linguist-style languages.yml and flattens it
// into the allow set the pipeline consumes: lower-cased extensions without
// the dot, plus well-known extensionless filenames (Makefile and friends).
func loadAllowedExtensions(path string) (map[string]struct{}, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read language file %s: %w", path, err)
	}

	var languages map[string]languageInfo
	if err := yaml.Unmarshal(raw, &languages); err != nil {
		return nil, fmt.Errorf("parse language file %s: %w", path, err)
	}

	allowed := make(map[string]struct{})
	for _, info := range languages {
		for _, ext := range info.Extensions {
			normalized := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
			if normalized != "" {
				allowed[normalized] = struct{}{}
			}
		}
		for _, name := range info.Filenames {
			// Dotless filenames land in the set whole, matching how
			// fileExtension treats them.
			normalized := strings.ToLower(strings.TrimSpace(name))
			if normalized != "" && !strings.Contains(normalized, ".") {
				allowed[normalized] = struct{}{}
			}
		}
	}
	if len(allowed) == 0 {
		return nil, fmt.Errorf("language file %s defines no usable extensions", path)
	}
	return allowed, nil
}
