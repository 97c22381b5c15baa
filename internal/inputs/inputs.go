// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package inputs enumerates the documents a merge run consumes.
package inputs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdiddy/docmerge/pkg/types"
)

// lockPrefix marks owner files Office writes next to open documents.
const lockPrefix = "~$"

// List returns the files in dir whose names match the format's pattern,
// joined with dir. Matching ignores case. Subdirectories, dotfiles and
// Office lock files are skipped. A missing dir is not an error; List
// returns an empty slice.
//
// With types.SortNone the order is whatever the directory listing yields.
func List(dir string, format types.Format, order types.SortOrder) ([]string, error) {
	f, err := os.Open(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("opening input directory %s: %w", dir, err)
	}
	defer f.Close()

	// File.ReadDir does not sort, unlike os.ReadDir.
	entries, err := f.ReadDir(-1)
	if err != nil {
		return nil, fmt.Errorf("reading input directory %s: %w", dir, err)
	}

	pattern := strings.ToLower(format.Pattern())
	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || strings.HasPrefix(name, lockPrefix) {
			continue
		}
		ok, err := filepath.Match(pattern, strings.ToLower(name))
		if err != nil {
			return nil, fmt.Errorf("matching %s: %w", pattern, err)
		}
		if ok {
			paths = append(paths, filepath.Join(dir, name))
		}
	}

	if order != types.SortNone {
		sort.Slice(paths, func(i, j int) bool {
			return filepath.Base(paths[i]) < filepath.Base(paths[j])
		})
	}
	return paths, nil
}

// IsLegacyPresentation reports whether path is a binary .ppt file, which
// OOXML readers cannot open directly.
func IsLegacyPresentation(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".ppt")
}
