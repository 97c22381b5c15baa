// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package merge

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/docmerge/pkg/types"
)

// fakeStrategy implements Strategy with a configurable probe and merge.
type fakeStrategy struct {
	name     string
	format   types.Format
	fidelity types.Fidelity
	probeErr error
	merge    func(inputs []string, out string) ([]types.SourceResult, error)
	calls    int
}

func (f *fakeStrategy) Name() string             { return f.name }
func (f *fakeStrategy) Format() types.Format     { return f.format }
func (f *fakeStrategy) Fidelity() types.Fidelity { return f.fidelity }
func (f *fakeStrategy) Probe() error             { return f.probeErr }
func (f *fakeStrategy) Remediation() string      { return "install " + f.name }

func (f *fakeStrategy) Merge(_ context.Context, inputs []string, out string, _ *slog.Logger) ([]types.SourceResult, error) {
	f.calls++
	if f.merge != nil {
		return f.merge(inputs, out)
	}
	sources := pending(inputs)
	for i := range sources {
		sources[i].Status = types.SourceMerged
		sources[i].Units = 1
	}
	return sources, os.WriteFile(out, []byte(f.name), 0o644)
}

// fakeRecorder captures recorded runs.
type fakeRecorder struct {
	runs []*types.MergeResult
	err  error
}

func (r *fakeRecorder) Record(_ context.Context, result *types.MergeResult) error {
	r.runs = append(r.runs, result)
	return r.err
}

var fixedNow = time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

func newTestMerger(strategies []Strategy, opts ...Option) *Merger {
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	m := New(discardLogger(), strategies, opts...)
	m.newID = func() string { return "run-1" }
	return m
}

func presentationStrategies() (*fakeStrategy, *fakeStrategy) {
	full := &fakeStrategy{name: "automation", format: types.FormatPresentation, fidelity: types.FidelityFull}
	degraded := &fakeStrategy{name: "library", format: types.FormatPresentation, fidelity: types.FidelityDegraded}
	return full, degraded
}

func TestSelect(t *testing.T) {
	unavailable := errors.New("not installed")

	tests := []struct {
		name       string
		fullErr    error
		preference string
		want       string
		wantDepErr bool
		wantErr    string
	}{
		{name: "auto prefers first", want: "automation"},
		{name: "empty preference is auto", preference: "", want: "automation"},
		{name: "auto falls back", fullErr: unavailable, preference: "auto", want: "library"},
		{name: "forced degraded", preference: "library", want: "library"},
		{name: "forced unavailable", fullErr: unavailable, preference: "automation", wantDepErr: true},
		{name: "unknown name", preference: "pdfcpu", wantErr: `unknown presentation strategy "pdfcpu"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			full, degraded := presentationStrategies()
			full.probeErr = tt.fullErr
			m := newTestMerger([]Strategy{full, degraded})

			got, err := m.Select(types.FormatPresentation, tt.preference)
			switch {
			case tt.wantDepErr:
				require.ErrorIs(t, err, ErrMissingDependency)
				var depErr *DependencyError
				require.ErrorAs(t, err, &depErr)
				assert.Equal(t, "install automation", depErr.Remediation())
				require.Len(t, depErr.Probes, 1)
				assert.False(t, depErr.Probes[0].Available())
			case tt.wantErr != "":
				require.EqualError(t, err, tt.wantErr)
				assert.NotErrorIs(t, err, ErrMissingDependency)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.want, got.Name())
			}
		})
	}
}

func TestSelect_AllUnavailable(t *testing.T) {
	full, degraded := presentationStrategies()
	full.probeErr = errors.New("no powerpoint")
	degraded.probeErr = errors.New("broken build")
	m := newTestMerger([]Strategy{full, degraded})

	_, err := m.Select(types.FormatPresentation, types.StrategyAuto)
	require.ErrorIs(t, err, ErrMissingDependency)
	assert.Contains(t, err.Error(), "automation: no powerpoint")
	assert.Contains(t, err.Error(), "library: broken build")

	var depErr *DependencyError
	require.ErrorAs(t, err, &depErr)
	assert.Equal(t, "install automation\ninstall library", depErr.Remediation())
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		name string
		cfg  types.MergeConfig
		want string
	}{
		{
			name: "timestamped presentation",
			cfg:  types.MergeConfig{OutputDir: "out", Format: types.FormatPresentation},
			want: filepath.Join("out", "20260314150926.pptx"),
		},
		{
			name: "timestamped document in default dir",
			cfg:  types.MergeConfig{Format: types.FormatDocument},
			want: filepath.Join("output", "20260314150926.pdf"),
		},
		{
			name: "explicit path kept",
			cfg:  types.MergeConfig{OutputPath: "deck/all.pptx", Format: types.FormatPresentation},
			want: "deck/all.pptx",
		},
		{
			name: "explicit path gains extension",
			cfg:  types.MergeConfig{OutputPath: "deck/all", Format: types.FormatDocument},
			want: "deck/all.pdf",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OutputPath(tt.cfg, fixedNow))
		})
	}
}

func TestRun_Succeeds(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "docs")
	writeFile(t, filepath.Join(in, "b.pptx"), "b")
	writeFile(t, filepath.Join(in, "a.pptx"), "a")
	writeFile(t, filepath.Join(in, "notes.txt"), "ignored")

	full, degraded := presentationStrategies()
	var got []string
	full.merge = func(inputs []string, out string) ([]types.SourceResult, error) {
		got = inputs
		sources := pending(inputs)
		sources[0].Status, sources[0].Units = types.SourceBase, 2
		sources[1].Status, sources[1].Units = types.SourceMerged, 3
		return sources, os.WriteFile(out, []byte("deck"), 0o644)
	}
	rec := &fakeRecorder{}
	var status bytes.Buffer
	m := newTestMerger([]Strategy{full, degraded}, WithRecorder(rec), WithStatus(&status))

	res, err := m.Run(context.Background(), types.MergeConfig{
		InputDir:  in,
		OutputDir: filepath.Join(dir, "output"),
		Format:    types.FormatPresentation,
		Strategy:  types.StrategyAuto,
	})
	require.NoError(t, err)

	want := filepath.Join(dir, "output", "20260314150926.pptx")
	assert.Equal(t, []string{filepath.Join(in, "a.pptx"), filepath.Join(in, "b.pptx")}, got)
	assert.Equal(t, types.RunSucceeded, res.Status)
	assert.Equal(t, "run-1", res.ID)
	assert.Equal(t, want, res.OutputPath)
	assert.Equal(t, "automation", res.Strategy)
	assert.Equal(t, types.FidelityFull, res.Fidelity)
	assert.Equal(t, 5, res.Units())
	assert.FileExists(t, want)
	assertNoTempFiles(t, filepath.Dir(want))

	require.Len(t, rec.runs, 1)
	assert.Same(t, res, rec.runs[0])

	assert.Contains(t, status.String(), "base:    a.pptx (2 slide(s))")
	assert.Contains(t, status.String(), "merged:  b.pptx (3 slide(s))")
	assert.Contains(t, status.String(), "Merge summary: 2 merged, 0 failed, 5 slide(s)")
}

func TestRun_Empty(t *testing.T) {
	dir := t.TempDir()
	full, degraded := presentationStrategies()
	rec := &fakeRecorder{}
	var status bytes.Buffer
	m := newTestMerger([]Strategy{full, degraded}, WithRecorder(rec), WithStatus(&status))

	res, err := m.Run(context.Background(), types.MergeConfig{
		InputDir:  filepath.Join(dir, "missing"),
		OutputDir: filepath.Join(dir, "output"),
	})
	require.NoError(t, err)

	assert.Equal(t, types.RunEmpty, res.Status)
	assert.Zero(t, full.calls)
	assert.NoDirExists(t, filepath.Join(dir, "output"))
	assert.Contains(t, status.String(), "nothing to merge")
	require.Len(t, rec.runs, 1)
	assert.Equal(t, types.RunEmpty, rec.runs[0].Status)
}

func TestRun_FailureLeavesNoOutput(t *testing.T) {
	tests := []struct {
		name      string
		merge     func(inputs []string, out string) ([]types.SourceResult, error)
		want      string
		wantStack bool
	}{
		{
			name: "strategy error after partial write",
			merge: func(inputs []string, out string) ([]types.SourceResult, error) {
				_ = os.WriteFile(out, []byte("partial"), 0o644)
				return pending(inputs), errors.New("save failed")
			},
			want: "automation merge: save failed",
		},
		{
			name: "all inputs failed",
			merge: func(inputs []string, out string) ([]types.SourceResult, error) {
				sources := pending(inputs)
				for i := range sources {
					sources[i].Status = types.SourceFailed
					sources[i].Error = "corrupt"
				}
				return sources, ErrAllInputsFailed
			},
			want: ErrAllInputsFailed.Error(),
		},
		{
			name: "panic is recovered",
			merge: func(inputs []string, out string) ([]types.SourceResult, error) {
				_ = os.WriteFile(out, []byte("partial"), 0o644)
				var slides map[string]int
				slides[out] = len(inputs)
				return nil, nil
			},
			want:      "panic during merge: assignment to entry in nil map",
			wantStack: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			in := filepath.Join(dir, "docs")
			outDir := filepath.Join(dir, "output")
			writeFile(t, filepath.Join(in, "a.pptx"), "a")

			full, degraded := presentationStrategies()
			full.merge = tt.merge
			rec := &fakeRecorder{}
			m := newTestMerger([]Strategy{full, degraded}, WithRecorder(rec))
			var logs bytes.Buffer
			m.log = slog.New(slog.NewTextHandler(&logs, nil))

			res, err := m.Run(context.Background(), types.MergeConfig{InputDir: in, OutputDir: outDir})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			if tt.wantStack {
				assert.Contains(t, logs.String(), `msg="merge panicked"`)
				assert.Contains(t, logs.String(), "runtime/debug.Stack")
				assert.Contains(t, logs.String(), "safeMerge")
			} else {
				assert.NotContains(t, logs.String(), "merge panicked")
			}

			require.NotNil(t, res)
			assert.Equal(t, types.RunFailed, res.Status)
			assert.Equal(t, err.Error(), res.Error)
			assert.Empty(t, res.OutputPath)
			assertNoTempFiles(t, outDir)
			entries, _ := os.ReadDir(outDir)
			assert.Empty(t, entries)
			require.Len(t, rec.runs, 1)
		})
	}
}

func TestRun_MissingDependency(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "docs")
	writeFile(t, filepath.Join(in, "a.pptx"), "a")

	full, degraded := presentationStrategies()
	full.probeErr = errors.New("no powerpoint")
	m := newTestMerger([]Strategy{full, degraded})

	res, err := m.Run(context.Background(), types.MergeConfig{
		InputDir:  in,
		OutputDir: filepath.Join(dir, "output"),
		Strategy:  "automation",
	})
	assert.ErrorIs(t, err, ErrMissingDependency)
	assert.Equal(t, types.RunFailed, res.Status)
	assert.Zero(t, degraded.calls)
}

func TestRun_RecorderFailureIsNotFatal(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "docs")
	writeFile(t, filepath.Join(in, "a.pdf"), "a")

	doc := &fakeStrategy{name: "pdfcpu", format: types.FormatDocument, fidelity: types.FidelityFull}
	m := newTestMerger([]Strategy{doc}, WithRecorder(&fakeRecorder{err: errors.New("disk full")}))

	res, err := m.Run(context.Background(), types.MergeConfig{
		InputDir:   in,
		OutputPath: filepath.Join(dir, "nested", "deep", "merged"),
		Format:     types.FormatDocument,
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "nested", "deep", "merged.pdf"), res.OutputPath)
	assert.FileExists(t, res.OutputPath)
}

func TestProbe(t *testing.T) {
	full, degraded := presentationStrategies()
	full.probeErr = errors.New("no powerpoint")
	m := newTestMerger([]Strategy{full, degraded})

	probes := m.Probe(types.FormatPresentation)
	require.Len(t, probes, 2)
	assert.Equal(t, "automation", probes[0].Strategy)
	assert.False(t, probes[0].Available())
	assert.Equal(t, "library", probes[1].Strategy)
	assert.True(t, probes[1].Available())
	assert.Equal(t, types.FidelityDegraded, probes[1].Fidelity)

	assert.Empty(t, m.Probe(types.FormatDocument))
}

// TestRun_FallbackToLibrary runs the real library strategy behind an
// unavailable automation host.
func TestRun_FallbackToLibrary(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "docs")
	writeDeck(t, filepath.Join(in, "a.pptx"), []string{"a.1"}, []string{"a.2"})
	writeFile(t, filepath.Join(in, "b.pptx"), "corrupt")
	writeDeck(t, filepath.Join(in, "c.pptx"), []string{"c.1"})

	m := newTestMerger([]Strategy{
		NewAutomationStrategy(&fakeLauncher{probeErr: errors.New("automation unsupported on linux")}),
		NewLibraryStrategy(nil),
	})

	res, err := m.Run(context.Background(), types.MergeConfig{InputDir: in, OutputDir: filepath.Join(dir, "output")})
	require.NoError(t, err)

	assert.Equal(t, StrategyLibrary, res.Strategy)
	assert.Equal(t, types.FidelityDegraded, res.Fidelity)
	assert.Equal(t, 2, res.Merged())
	assert.Equal(t, 1, res.Failed())
	assert.Equal(t, []string{"a.1", "a.2", "c.1"}, deckTexts(t, res.OutputPath))
}

// TestRun_AutomationOrder merges a.pptx (2 slides) and b.pptx (3 slides)
// through the automation strategy.
func TestRun_AutomationOrder(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "docs")
	a := filepath.Join(in, "a.pptx")
	b := filepath.Join(in, "b.pptx")
	writeFile(t, a, "a")
	writeFile(t, b, "b")
	host := newFakeHost(map[string][]string{a: {"a.1", "a.2"}, b: {"b.1", "b.2", "b.3"}})

	m := newTestMerger([]Strategy{
		NewAutomationStrategy(&fakeLauncher{host: host}),
		NewLibraryStrategy(nil),
	})
	res, err := m.Run(context.Background(), types.MergeConfig{InputDir: in, OutputDir: filepath.Join(dir, "output")})
	require.NoError(t, err)

	assert.Equal(t, 5, res.Units())
	assert.Equal(t, []string{"a.1", "a.2", "b.1", "b.2", "b.3"}, readSlides(t, res.OutputPath))
	assert.True(t, host.quit)
}

func TestRun_Documents(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "docs")
	writePDF(t, filepath.Join(in, "2.pdf"), 3)
	writePDF(t, filepath.Join(in, "1.pdf"), 1)
	writeDeck(t, filepath.Join(in, "slides.pptx"), []string{"ignored"})

	m := newTestMerger([]Strategy{NewDocumentStrategy()})
	res, err := m.Run(context.Background(), types.MergeConfig{
		InputDir:  in,
		OutputDir: filepath.Join(dir, "output"),
		Format:    types.FormatDocument,
	})
	require.NoError(t, err)

	require.Len(t, res.Sources, 2)
	assert.Equal(t, filepath.Join(in, "1.pdf"), res.Sources[0].Path)
	assert.Equal(t, 4, res.Units())
	assert.Equal(t, ".pdf", filepath.Ext(res.OutputPath))
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, tempPrefix+"*"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}
