// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package merge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pdiddy/docmerge/pkg/types"
)

var (
	// ErrMissingDependency means no merge strategy for the format can run
	// on this machine.
	ErrMissingDependency = errors.New("missing dependency")

	// ErrAllInputsFailed means inputs existed but none could be merged.
	ErrAllInputsFailed = errors.New("no input could be merged")
)

// Strategy merges inputs of one format into a single output file.
type Strategy interface {
	// Name identifies the strategy in configuration and logs.
	Name() string

	// Format is the input and output format the strategy handles.
	Format() types.Format

	// Fidelity describes how much source content survives the merge.
	Fidelity() types.Fidelity

	// Probe reports whether the strategy can run. It must not modify
	// anything.
	Probe() error

	// Remediation tells the user how to make the strategy available.
	Remediation() string

	// Merge writes the merged output to out. It returns one SourceResult
	// per input, in input order. Per-input failures are recorded in the
	// results and do not fail the merge.
	Merge(ctx context.Context, inputs []string, out string, log *slog.Logger) ([]types.SourceResult, error)
}

// ProbeResult is the outcome of probing one strategy.
type ProbeResult struct {
	Strategy string
	Fidelity types.Fidelity
	Err      error
}

// Available reports whether the probe succeeded.
func (p ProbeResult) Available() bool {
	return p.Err == nil
}

// DependencyError reports that no strategy could be selected. It matches
// ErrMissingDependency with errors.Is.
type DependencyError struct {
	Format      types.Format
	Probes      []ProbeResult
	remediation []string
}

func (e *DependencyError) Error() string {
	parts := make([]string, 0, len(e.Probes))
	for _, p := range e.Probes {
		parts = append(parts, fmt.Sprintf("%s: %v", p.Strategy, p.Err))
	}
	return fmt.Sprintf("%v: no %s merge strategy available (%s)",
		ErrMissingDependency, e.Format, strings.Join(parts, "; "))
}

func (e *DependencyError) Unwrap() error {
	return ErrMissingDependency
}

// Remediation returns the steps that would make a strategy available.
func (e *DependencyError) Remediation() string {
	return strings.Join(e.remediation, "\n")
}

// pending returns SourceResults for inputs with positions and paths set.
func pending(inputs []string) []types.SourceResult {
	out := make([]types.SourceResult, len(inputs))
	for i, in := range inputs {
		out[i] = types.SourceResult{Position: i, Path: in}
	}
	return out
}

// fail marks a source as skipped and logs why.
func fail(log *slog.Logger, src *types.SourceResult, err error) {
	src.Status = types.SourceFailed
	src.Units = 0
	src.Error = err.Error()
	log.Error("skipping input", "path", src.Path, "error", err)
}
