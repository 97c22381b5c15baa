// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package merge concatenates a directory of presentations or PDF documents
// into one output file.
//
// Each format has an ordered list of strategies. With the "auto" preference
// the first strategy whose probe succeeds is used, so presentation merging
// prefers application automation (full fidelity) and falls back to the
// OOXML library (plain text only) when no automation host is available.
// Inputs that fail individually are logged and skipped; the output holds
// the slides or pages of every other input in enumeration order.
package merge

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/docmerge/internal/automation"
	"github.com/pdiddy/docmerge/internal/inputs"
	"github.com/pdiddy/docmerge/internal/office"
	"github.com/pdiddy/docmerge/pkg/types"
)

const (
	defaultInputDir  = "docs"
	defaultOutputDir = "output"
	timestampLayout  = "20060102150405"
	tempPrefix       = ".docmerge-"
)

// Recorder persists finished runs.
type Recorder interface {
	Record(ctx context.Context, result *types.MergeResult) error
}

// Merger runs the enumerate, select, merge and persist pipeline.
type Merger struct {
	strategies map[types.Format][]Strategy
	log        *slog.Logger
	status     io.Writer
	recorder   Recorder
	now        func() time.Time
	newID      func() string
}

// Option configures a Merger.
type Option func(*Merger)

// WithStatus sets the writer that receives human-readable progress lines.
func WithStatus(w io.Writer) Option {
	return func(m *Merger) { m.status = w }
}

// WithRecorder records every run, including empty and failed ones.
func WithRecorder(r Recorder) Option {
	return func(m *Merger) { m.recorder = r }
}

// WithClock overrides the time source used for timestamps and output names.
func WithClock(now func() time.Time) Option {
	return func(m *Merger) { m.now = now }
}

// New returns a Merger using strategies in preference order. Strategies
// are grouped by their format.
func New(log *slog.Logger, strategies []Strategy, opts ...Option) *Merger {
	m := &Merger{
		strategies: make(map[types.Format][]Strategy),
		log:        log,
		status:     io.Discard,
		now:        time.Now,
		newID:      func() string { return uuid.NewString() },
	}
	for _, s := range strategies {
		m.strategies[s.Format()] = append(m.strategies[s.Format()], s)
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// DefaultStrategies returns the production strategies in preference order:
// PowerPoint automation, then the OOXML library for presentations, and
// pdfcpu for documents.
func DefaultStrategies() []Strategy {
	return []Strategy{
		NewAutomationStrategy(automation.PowerPoint{}),
		NewLibraryStrategy(office.DetectRuntime),
		NewDocumentStrategy(),
	}
}

// Strategies returns the strategies registered for format in preference
// order.
func (m *Merger) Strategies(format types.Format) []Strategy {
	return m.strategies[format]
}

// Probe probes every strategy registered for format.
func (m *Merger) Probe(format types.Format) []ProbeResult {
	list := m.strategies[format]
	out := make([]ProbeResult, len(list))
	for i, s := range list {
		out[i] = ProbeResult{Strategy: s.Name(), Fidelity: s.Fidelity(), Err: s.Probe()}
	}
	return out
}

// Select picks the strategy for format. preference is "auto" (or empty)
// for the first available strategy, or a strategy name to force.
func (m *Merger) Select(format types.Format, preference string) (Strategy, error) {
	candidates := m.strategies[format]
	if preference != "" && preference != types.StrategyAuto {
		var forced []Strategy
		for _, s := range candidates {
			if s.Name() == preference {
				forced = append(forced, s)
			}
		}
		if len(forced) == 0 {
			return nil, fmt.Errorf("unknown %s strategy %q", format, preference)
		}
		candidates = forced
	}

	depErr := &DependencyError{Format: format}
	for _, s := range candidates {
		err := s.Probe()
		if err == nil {
			if len(depErr.Probes) > 0 {
				m.log.Warn("falling back to alternate strategy",
					"format", format, "strategy", s.Name(), "unavailable", depErr.Error())
			}
			return s, nil
		}
		m.log.Info("strategy unavailable", "format", format, "strategy", s.Name(), "error", err)
		depErr.Probes = append(depErr.Probes, ProbeResult{Strategy: s.Name(), Fidelity: s.Fidelity(), Err: err})
		depErr.remediation = append(depErr.remediation, s.Remediation())
	}
	return nil, depErr
}

// OutputPath returns where a run writes its result: cfg.OutputPath when
// set (with the format's extension added if it has none), otherwise a
// timestamped file in cfg.OutputDir.
func OutputPath(cfg types.MergeConfig, now time.Time) string {
	ext := cfg.Format.Extension()
	if cfg.OutputPath != "" {
		if filepath.Ext(cfg.OutputPath) == "" {
			return cfg.OutputPath + ext
		}
		return cfg.OutputPath
	}
	dir := cfg.OutputDir
	if dir == "" {
		dir = defaultOutputDir
	}
	return filepath.Join(dir, now.Format(timestampLayout)+ext)
}

// Run merges every input of cfg.Format found in cfg.InputDir.
//
// When no input matches, Run writes nothing and returns a result with
// status types.RunEmpty and a nil error. Otherwise the returned result is
// never nil, even when err is not.
func (m *Merger) Run(ctx context.Context, cfg types.MergeConfig) (*types.MergeResult, error) {
	if cfg.Format == "" {
		cfg.Format = types.FormatPresentation
	}
	if cfg.InputDir == "" {
		cfg.InputDir = defaultInputDir
	}

	result := &types.MergeResult{
		ID:        m.newID(),
		Format:    cfg.Format,
		StartedAt: m.now(),
		Sources:   []types.SourceResult{},
	}
	log := m.log.With("run", result.ID, "format", cfg.Format)

	err := m.run(ctx, cfg, result, log)
	result.FinishedAt = m.now()
	if err != nil {
		result.Status = types.RunFailed
		result.Error = err.Error()
		log.Error("merge failed", "error", err)
	}
	m.record(ctx, result, log)
	return result, err
}

func (m *Merger) run(ctx context.Context, cfg types.MergeConfig, result *types.MergeResult, log *slog.Logger) error {
	paths, err := inputs.List(cfg.InputDir, cfg.Format, cfg.Sort)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		result.Status = types.RunEmpty
		log.Warn("nothing to merge", "dir", cfg.InputDir, "pattern", cfg.Format.Pattern())
		fmt.Fprintf(m.status, "nothing to merge: no %s files in %s\n", cfg.Format.Pattern(), cfg.InputDir)
		return nil
	}
	log.Info("found inputs", "dir", cfg.InputDir, "count", len(paths))

	strategy, err := m.Select(cfg.Format, cfg.Strategy)
	if err != nil {
		return err
	}
	result.Strategy = strategy.Name()
	result.Fidelity = strategy.Fidelity()
	log = log.With("strategy", strategy.Name())
	fmt.Fprintf(m.status, "merging %d %s file(s) with %s (%s fidelity)\n",
		len(paths), cfg.Format, strategy.Name(), strategy.Fidelity())

	out := OutputPath(cfg, result.StartedAt)
	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory %s: %w", dir, err)
		}
	}

	// Merge into a temp file beside the output and rename on success, so a
	// failed run leaves nothing behind.
	tmp := filepath.Join(filepath.Dir(out), tempPrefix+result.ID+cfg.Format.Extension())
	defer os.Remove(tmp)

	sources, err := safeMerge(ctx, strategy, paths, tmp, log)
	if sources != nil {
		result.Sources = sources
	}
	m.reportSources(cfg.Format, result.Sources)
	if err != nil {
		return fmt.Errorf("%s merge: %w", strategy.Name(), err)
	}

	if err := os.Rename(tmp, out); err != nil {
		return fmt.Errorf("moving output into place: %w", err)
	}
	result.OutputPath = out
	result.Status = types.RunSucceeded

	log.Info("merge complete", "output", out, "merged", result.Merged(),
		"failed", result.Failed(), "units", result.Units())
	fmt.Fprintf(m.status, "\nMerge summary: %d merged, %d failed, %d %s(s) -> %s\n",
		result.Merged(), result.Failed(), result.Units(), cfg.Format.Unit(), out)
	return nil
}

// safeMerge runs the strategy and turns a panic into an error so the temp
// file is still cleaned up and the run recorded. The stack is logged.
func safeMerge(ctx context.Context, s Strategy, paths []string, out string, log *slog.Logger) (sources []types.SourceResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("merge panicked", "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("panic during merge: %v", r)
		}
	}()
	return s.Merge(ctx, paths, out, log)
}

func (m *Merger) reportSources(format types.Format, sources []types.SourceResult) {
	for _, s := range sources {
		name := filepath.Base(s.Path)
		switch s.Status {
		case types.SourceBase:
			fmt.Fprintf(m.status, "base:    %s (%d %s(s))\n", name, s.Units, format.Unit())
		case types.SourceMerged:
			fmt.Fprintf(m.status, "merged:  %s (%d %s(s))\n", name, s.Units, format.Unit())
		case types.SourceFailed:
			fmt.Fprintf(m.status, "failed:  %s (%s)\n", name, s.Error)
		}
	}
}

func (m *Merger) record(ctx context.Context, result *types.MergeResult, log *slog.Logger) {
	if m.recorder == nil {
		return
	}
	// Cancelled runs are still recorded.
	if err := m.recorder.Record(context.WithoutCancel(ctx), result); err != nil {
		log.Warn("recording merge history failed", "error", err)
	}
}
