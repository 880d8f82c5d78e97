package storage

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/spice-ledger/internal/model"
)

func TestSQLiteStorage_Watermarks(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	wm, err := store.GetWatermark(ctx, model.SourceSMS)
	if err != nil {
		t.Fatalf("GetWatermark() error = %v", err)
	}
	if !wm.IsZero() {
		t.Errorf("initial watermark = %v, want zero", wm)
	}

	first := time.Date(2024, 3, 12, 10, 15, 0, 0, time.UTC)
	second := first.Add(36 * time.Hour)
	for _, at := range []time.Time{first, second} {
		if err := store.SetWatermark(ctx, model.SourceSMS, at); err != nil {
			t.Fatalf("SetWatermark() error = %v", err)
		}
	}

	wm, err = store.GetWatermark(ctx, model.SourceSMS)
	if err != nil {
		t.Fatalf("GetWatermark() error = %v", err)
	}
	if !wm.Equal(second) {
		t.Errorf("watermark = %v, want %v", wm, second)
	}

	other, err := store.GetWatermark(ctx, model.SourceLinked)
	if err != nil {
		t.Fatalf("GetWatermark() error = %v", err)
	}
	if !other.IsZero() {
		t.Errorf("linked watermark = %v, want zero", other)
	}
}

func TestSQLiteStorage_ScanRunsAndDiagnostics(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	start := time.Date(2024, 3, 12, 10, 0, 0, 0, time.UTC)
	runs := []*model.ScanSummary{
		model.NewScanSummary("run-1", model.SourceSMS, start),
		model.NewScanSummary("run-2", model.SourceSMS, start.Add(time.Hour)),
	}
	runs[0].Accepted, runs[0].Malformed = 3, 2
	runs[0].MalformedByIssuer["HDFC"] = 2
	runs[1].Duplicates, runs[1].Malformed = 3, 1
	runs[1].MalformedByIssuer["HDFC"] = 1
	runs[1].MalformedByIssuer["SBI"] = 0

	for _, run := range runs {
		run.FinishedAt = run.StartedAt.Add(time.Second)
		if err := store.SaveScanRun(ctx, run); err != nil {
			t.Fatalf("SaveScanRun() error = %v", err)
		}
	}

	got, err := store.GetScanRuns(ctx, 10)
	if err != nil {
		t.Fatalf("GetScanRuns() error = %v", err)
	}
	if len(got) != 2 || got[0].ID != "run-2" || got[1].ID != "run-1" {
		t.Fatalf("GetScanRuns() = %+v", got)
	}
	if got[1].Accepted != 3 || got[0].Duplicates != 3 {
		t.Errorf("counts not persisted: %+v", got)
	}

	diag, err := store.GetParseDiagnostics(ctx)
	if err != nil {
		t.Fatalf("GetParseDiagnostics() error = %v", err)
	}
	if diag["HDFC"] != 3 {
		t.Errorf("HDFC malformed = %d, want 3", diag["HDFC"])
	}
	if _, ok := diag["SBI"]; ok {
		t.Error("zero counts should not create diagnostics rows")
	}
}
