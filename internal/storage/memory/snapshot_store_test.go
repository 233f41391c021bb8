package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/domain"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/storage"
)

func testSnapshot(id, runID, ticker string, createdAt int64) *domain.FundamentalSnapshot {
	return &domain.FundamentalSnapshot{
		SnapshotID: id,
		RunID:      runID,
		AsOf:       "2026-08-25",
		Metrics: domain.FundamentalMetrics{
			Ticker:        ticker,
			CompanyName:   ticker + " Corp",
			LTMEBITDA:     domain.NewFigure(240e6),
			EVEBITDA:      domain.NewFigure(7.5),
			NetDebtEBITDA: domain.NewFigure(1.2),
		},
		CreatedAt: createdAt,
	}
}

func TestSnapshotStore_InsertAndGetByID(t *testing.T) {
	store := NewSnapshotStore()
	ctx := context.Background()

	snap := testSnapshot("snap-1", "run-1", "ACME", 1000)
	if err := store.Insert(ctx, snap); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "snap-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Metrics.Ticker != "ACME" {
		t.Errorf("Ticker = %s, want ACME", got.Metrics.Ticker)
	}
	if !got.Metrics.EVEBITDA.Defined || got.Metrics.EVEBITDA.Value != 7.5 {
		t.Errorf("EVEBITDA = %+v, want defined 7.5", got.Metrics.EVEBITDA)
	}
}

func TestSnapshotStore_DuplicateKey(t *testing.T) {
	store := NewSnapshotStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testSnapshot("snap-1", "run-1", "ACME", 1000)); err != nil {
		t.Fatalf("first Insert failed: %v", err)
	}
	if err := store.Insert(ctx, testSnapshot("snap-1", "run-2", "BOLT", 2000)); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestSnapshotStore_InsertBulkAtomic(t *testing.T) {
	store := NewSnapshotStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testSnapshot("snap-1", "run-1", "ACME", 1000)); err != nil {
		t.Fatalf("seed Insert failed: %v", err)
	}

	batch := []*domain.FundamentalSnapshot{
		testSnapshot("snap-2", "run-1", "BOLT", 1000),
		testSnapshot("snap-1", "run-1", "ZEN", 1000), // duplicate
	}
	if err := store.InsertBulk(ctx, batch); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}

	// The non-duplicate member must not have been inserted.
	if _, err := store.GetByID(ctx, "snap-2"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("snap-2 present after failed batch, err = %v", err)
	}
}

func TestSnapshotStore_GetByTickerNewestFirst(t *testing.T) {
	store := NewSnapshotStore()
	ctx := context.Background()

	for _, snap := range []*domain.FundamentalSnapshot{
		testSnapshot("snap-old", "run-1", "ACME", 1000),
		testSnapshot("snap-new", "run-2", "ACME", 3000),
		testSnapshot("snap-mid", "run-3", "ACME", 2000),
		testSnapshot("snap-other", "run-1", "BOLT", 5000),
	} {
		if err := store.Insert(ctx, snap); err != nil {
			t.Fatalf("Insert %s failed: %v", snap.SnapshotID, err)
		}
	}

	got, err := store.GetByTicker(ctx, "ACME")
	if err != nil {
		t.Fatalf("GetByTicker failed: %v", err)
	}
	want := []string{"snap-new", "snap-mid", "snap-old"}
	if len(got) != len(want) {
		t.Fatalf("GetByTicker returned %d snapshots, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].SnapshotID != id {
			t.Errorf("got[%d].SnapshotID = %s, want %s", i, got[i].SnapshotID, id)
		}
	}

	latest, err := store.GetLatestByTicker(ctx, "ACME")
	if err != nil {
		t.Fatalf("GetLatestByTicker failed: %v", err)
	}
	if latest.SnapshotID != "snap-new" {
		t.Errorf("latest = %s, want snap-new", latest.SnapshotID)
	}
}

func TestSnapshotStore_GetLatestByTickerNotFound(t *testing.T) {
	store := NewSnapshotStore()

	if _, err := store.GetLatestByTicker(context.Background(), "GHOST"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSnapshotStore_GetByRunTickerSorted(t *testing.T) {
	store := NewSnapshotStore()
	ctx := context.Background()

	for _, snap := range []*domain.FundamentalSnapshot{
		testSnapshot("snap-z", "run-1", "ZEN", 1000),
		testSnapshot("snap-a", "run-1", "ACME", 1000),
		testSnapshot("snap-x", "run-2", "ACME", 1000),
	} {
		if err := store.Insert(ctx, snap); err != nil {
			t.Fatalf("Insert %s failed: %v", snap.SnapshotID, err)
		}
	}

	got, err := store.GetByRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetByRun failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("GetByRun returned %d snapshots, want 2", len(got))
	}
	if got[0].Metrics.Ticker != "ACME" || got[1].Metrics.Ticker != "ZEN" {
		t.Errorf("run snapshots = [%s %s], want [ACME ZEN]", got[0].Metrics.Ticker, got[1].Metrics.Ticker)
	}
}

func TestSnapshotStore_UndefinedFiguresSurvive(t *testing.T) {
	store := NewSnapshotStore()
	ctx := context.Background()

	snap := testSnapshot("snap-1", "run-1", "ACME", 1000)
	snap.Metrics.RevenueCAGR = domain.Figure{}
	if err := store.Insert(ctx, snap); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "snap-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Metrics.RevenueCAGR.Defined {
		t.Error("RevenueCAGR came back defined, want undefined")
	}
}
