// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Fidelity describes how much of the source content a strategy preserves.
type Fidelity string

const (
	// FidelityFull copies native slides or pages unchanged.
	FidelityFull Fidelity = "full"

	// FidelityDegraded keeps plain text only.
	FidelityDegraded Fidelity = "degraded"
)

// SourceStatus is the outcome of merging one input document.
type SourceStatus string

const (
	// SourceBase marks the input used as the accumulator.
	SourceBase   SourceStatus = "base"
	SourceMerged SourceStatus = "merged"
	SourceFailed SourceStatus = "failed"
)

// SourceResult records what happened to one input document.
type SourceResult struct {
	// Position is the zero-based index in enumeration order.
	Position int `json:"position" yaml:"position"`

	Path   string       `json:"path" yaml:"path"`
	Status SourceStatus `json:"status" yaml:"status"`

	// Units is the number of slides or pages the input contributed.
	Units int `json:"units" yaml:"units"`

	// Error holds the failure cause when Status is SourceFailed.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Failed reports whether the input was skipped.
func (s SourceResult) Failed() bool {
	return s.Status == SourceFailed
}

// RunStatus is the overall outcome of a merge run.
type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	// RunEmpty means no input matched; nothing was written.
	RunEmpty  RunStatus = "empty"
	RunFailed RunStatus = "failed"
)

// MergeResult describes one merge run.
type MergeResult struct {
	ID         string         `json:"id" yaml:"id"`
	Format     Format         `json:"format" yaml:"format"`
	Strategy   string         `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	Fidelity   Fidelity       `json:"fidelity,omitempty" yaml:"fidelity,omitempty"`
	OutputPath string         `json:"output_path,omitempty" yaml:"output_path,omitempty"`
	Status     RunStatus      `json:"status" yaml:"status"`
	Sources    []SourceResult `json:"sources" yaml:"sources"`
	StartedAt  time.Time      `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time      `json:"finished_at" yaml:"finished_at"`
	Error      string         `json:"error,omitempty" yaml:"error,omitempty"`
}

// Units returns the total number of slides or pages in the output.
func (r MergeResult) Units() int {
	n := 0
	for _, s := range r.Sources {
		if !s.Failed() {
			n += s.Units
		}
	}
	return n
}

// Merged returns the number of inputs represented in the output.
func (r MergeResult) Merged() int {
	n := 0
	for _, s := range r.Sources {
		if !s.Failed() {
			n++
		}
	}
	return n
}

// Failed returns the number of inputs that were skipped.
func (r MergeResult) Failed() int {
	return len(r.Sources) - r.Merged()
}

// HasFailures reports whether any input was skipped.
func (r MergeResult) HasFailures() bool {
	return r.Failed() > 0
}

// Duration returns how long the run took.
func (r MergeResult) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
