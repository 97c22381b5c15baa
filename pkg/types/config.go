// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strings"
)

// Format selects which kind of document is merged.
type Format string

const (
	FormatPresentation Format = "presentation"
	FormatDocument     Format = "document"
)

// ParseFormat maps a user-supplied format name to a Format. Besides the
// canonical names it accepts the file-type aliases ppt, pptx and pdf.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "presentation", "ppt", "pptx":
		return FormatPresentation, nil
	case "document", "pdf":
		return FormatDocument, nil
	default:
		return "", fmt.Errorf("unsupported format %q: use presentation or document", s)
	}
}

// Pattern returns the file-name glob that selects inputs of this format.
func (f Format) Pattern() string {
	if f == FormatDocument {
		return "*.pdf"
	}
	return "*.ppt*"
}

// Extension returns the file extension of merged output in this format.
func (f Format) Extension() string {
	if f == FormatDocument {
		return ".pdf"
	}
	return ".pptx"
}

// Unit names the content unit of the format ("slide" or "page").
func (f Format) Unit() string {
	if f == FormatDocument {
		return "page"
	}
	return "slide"
}

// SortOrder controls the order in which enumerated inputs are merged.
type SortOrder string

const (
	// SortName orders inputs lexicographically by file name.
	SortName SortOrder = "name"

	// SortNone keeps the raw directory listing order, which is not stable
	// across platforms or filesystems.
	SortNone SortOrder = "none"
)

// ParseSortOrder validates a sort order name. Empty means SortName.
func ParseSortOrder(s string) (SortOrder, error) {
	switch SortOrder(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortName:
		return SortName, nil
	case SortNone:
		return SortNone, nil
	default:
		return "", fmt.Errorf("unsupported sort order %q: use name or none", s)
	}
}

// StrategyAuto lets the merger pick the first available strategy.
const StrategyAuto = "auto"

// MergeConfig holds settings for one merge run.
type MergeConfig struct {
	// InputDir is the directory scanned for input documents (default "docs").
	InputDir string `json:"input_dir" yaml:"input_dir"`

	// OutputDir receives timestamped output when OutputPath is empty
	// (default "output").
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// OutputPath is an explicit output file. Intermediate directories are
	// created as needed.
	OutputPath string `json:"output_path,omitempty" yaml:"output_path,omitempty"`

	// Format selects presentation or document merging.
	Format Format `json:"format" yaml:"format"`

	// Strategy is "auto" or the name of one strategy to force.
	Strategy string `json:"strategy" yaml:"strategy"`

	// Sort controls input ordering.
	Sort SortOrder `json:"sort" yaml:"sort"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error (default info).
	Level string `json:"level" yaml:"level"`

	// Format is text or json (default text).
	Format string `json:"format" yaml:"format"`

	// Dir receives a timestamped log file per invocation. Empty disables
	// file logging.
	Dir string `json:"dir" yaml:"dir"`
}

// HistoryConfig holds settings for the merge history store.
type HistoryConfig struct {
	// Enabled turns run recording on or off.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Path is the SQLite database file (default "logs/history.db").
	Path string `json:"path" yaml:"path"`
}

// Config groups all docmerge settings.
type Config struct {
	Merge   MergeConfig   `json:"merge" yaml:"merge"`
	Log     LogConfig     `json:"log" yaml:"log"`
	History HistoryConfig `json:"history" yaml:"history"`
}
