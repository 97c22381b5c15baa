// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/docmerge/pkg/types"
)

// --- test helpers ---

func testStore(t *testing.T) (*Store, string) {
	t.Helper()
	tmpDir := t.TempDir()
	store, err := NewStore(types.HistoryConfig{Enabled: true, Path: filepath.Join(tmpDir, "logs", "history.db")})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store, tmpDir
}

var epoch = time.Date(2026, 3, 14, 15, 9, 26, 500, time.UTC)

func sampleRun(id string, offset time.Duration) *types.MergeResult {
	return &types.MergeResult{
		ID:         id,
		Format:     types.FormatPresentation,
		Strategy:   "library",
		Fidelity:   types.FidelityDegraded,
		OutputPath: "output/" + id + ".pptx",
		Status:     types.RunSucceeded,
		StartedAt:  epoch.Add(offset),
		FinishedAt: epoch.Add(offset + 2*time.Second),
		Sources: []types.SourceResult{
			{Position: 0, Path: "docs/a.pptx", Status: types.SourceMerged, Units: 2},
			{Position: 1, Path: "docs/b.pptx", Status: types.SourceFailed, Error: "zip: not a valid zip file"},
			{Position: 2, Path: "docs/c.pptx", Status: types.SourceMerged, Units: 3},
		},
	}
}

// --- store tests ---

func TestNewStoreCreatesDBFile(t *testing.T) {
	_, tmpDir := testStore(t)

	if _, err := os.Stat(filepath.Join(tmpDir, "logs", "history.db")); err != nil {
		t.Fatalf("database file not created: %v", err)
	}
}

func TestNewStoreCreatesSchema(t *testing.T) {
	store, _ := testStore(t)

	for _, table := range []string{"runs", "sources"} {
		var n int
		err := store.db.QueryRow(
			`SELECT count(*) FROM sqlite_master WHERE type='table' AND name=?`, table,
		).Scan(&n)
		if err != nil {
			t.Fatal(err)
		}
		if n != 1 {
			t.Errorf("table %s missing", table)
		}
	}
}

func TestRecordAndGet(t *testing.T) {
	store, _ := testStore(t)
	ctx := context.Background()
	want := sampleRun("run-a", 0)

	if err := store.Record(ctx, want); err != nil {
		t.Fatal(err)
	}

	got, err := store.Get(ctx, "run-a")
	if err != nil {
		t.Fatal(err)
	}
	if got.Strategy != "library" || got.Fidelity != types.FidelityDegraded {
		t.Errorf("strategy = %s/%s, want library/degraded", got.Strategy, got.Fidelity)
	}
	if got.Status != types.RunSucceeded {
		t.Errorf("status = %s, want succeeded", got.Status)
	}
	if !got.StartedAt.Equal(want.StartedAt) || !got.FinishedAt.Equal(want.FinishedAt) {
		t.Errorf("times = %v..%v, want %v..%v", got.StartedAt, got.FinishedAt, want.StartedAt, want.FinishedAt)
	}
	if len(got.Sources) != 3 {
		t.Fatalf("got %d sources, want 3", len(got.Sources))
	}
	if got.Sources[1].Status != types.SourceFailed || got.Sources[1].Error == "" {
		t.Errorf("source 1 = %+v, want failed with error", got.Sources[1])
	}
	if got.Units() != 5 {
		t.Errorf("units = %d, want 5", got.Units())
	}
}

func TestRecordReplacesSameID(t *testing.T) {
	store, _ := testStore(t)
	ctx := context.Background()

	run := sampleRun("run-a", 0)
	if err := store.Record(ctx, run); err != nil {
		t.Fatal(err)
	}
	run.Status = types.RunFailed
	run.Error = "save failed"
	run.Sources = run.Sources[:1]
	if err := store.Record(ctx, run); err != nil {
		t.Fatal(err)
	}

	got, err := store.Get(ctx, "run-a")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != types.RunFailed || got.Error != "save failed" {
		t.Errorf("got %s %q, want failed %q", got.Status, got.Error, "save failed")
	}
	if len(got.Sources) != 1 {
		t.Errorf("got %d sources, want 1", len(got.Sources))
	}
}

func TestRecordEmptyRun(t *testing.T) {
	store, _ := testStore(t)
	ctx := context.Background()

	empty := &types.MergeResult{
		ID:        "run-empty",
		Format:    types.FormatDocument,
		Status:    types.RunEmpty,
		StartedAt: epoch,
	}
	if err := store.Record(ctx, empty); err != nil {
		t.Fatal(err)
	}

	got, err := store.Get(ctx, "run-empty")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != types.RunEmpty || len(got.Sources) != 0 {
		t.Errorf("got %+v, want empty run without sources", got)
	}
	if !got.FinishedAt.IsZero() {
		t.Errorf("finished = %v, want zero", got.FinishedAt)
	}
}

func TestGetNotFound(t *testing.T) {
	store, _ := testStore(t)

	_, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRecentNewestFirst(t *testing.T) {
	store, _ := testStore(t)
	ctx := context.Background()

	for i, id := range []string{"first", "second", "third"} {
		if err := store.Record(ctx, sampleRun(id, time.Duration(i)*time.Minute)); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		limit int
		want  []string
	}{
		{limit: 0, want: []string{"third", "second", "first"}},
		{limit: 2, want: []string{"third", "second"}},
		{limit: 10, want: []string{"third", "second", "first"}},
	}
	for _, tt := range tests {
		runs, err := store.Recent(ctx, tt.limit)
		if err != nil {
			t.Fatal(err)
		}
		if len(runs) != len(tt.want) {
			t.Fatalf("limit %d: got %d runs, want %d", tt.limit, len(runs), len(tt.want))
		}
		for i, id := range tt.want {
			if runs[i].ID != id {
				t.Errorf("limit %d: runs[%d] = %s, want %s", tt.limit, i, runs[i].ID, id)
			}
			if len(runs[i].Sources) != 3 {
				t.Errorf("run %s has %d sources, want 3", id, len(runs[i].Sources))
			}
		}
	}
}

func TestRecentSubSecondOrdering(t *testing.T) {
	store, _ := testStore(t)
	ctx := context.Background()

	if err := store.Record(ctx, sampleRun("whole", 0)); err != nil {
		t.Fatal(err)
	}
	if err := store.Record(ctx, sampleRun("fraction", 250*time.Millisecond)); err != nil {
		t.Fatal(err)
	}

	runs, err := store.Recent(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if runs[0].ID != "fraction" {
		t.Errorf("newest = %s, want fraction", runs[0].ID)
	}
}

// --- export tests ---

func TestExportYAML(t *testing.T) {
	store, tmpDir := testStore(t)
	ctx := context.Background()
	for i, id := range []string{"first", "second"} {
		if err := store.Record(ctx, sampleRun(id, time.Duration(i)*time.Minute)); err != nil {
			t.Fatal(err)
		}
	}

	path := filepath.Join(tmpDir, "exports", "history.yaml")
	if err := store.ExportYAML(ctx, path, 0); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var runs []types.MergeResult
	if err := yaml.Unmarshal(data, &runs); err != nil {
		t.Fatalf("invalid YAML: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].ID != "second" {
		t.Errorf("first exported run = %s, want second", runs[0].ID)
	}
	if len(runs[0].Sources) != 3 || runs[0].Sources[2].Units != 3 {
		t.Errorf("sources not exported: %+v", runs[0].Sources)
	}
}
