package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/domain"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/storage"
)

func testCompany(ticker string) *domain.Company {
	return &domain.Company{
		Ticker:   ticker,
		CIK:      "0000012345",
		Name:     ticker + " Corp",
		Sector:   "Industrials",
		Industry: "Machinery",
		AddedAt:  1756123200000,
	}
}

func TestCompanyStore_InsertAndGet(t *testing.T) {
	store := NewCompanyStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testCompany("ACME")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByTicker(ctx, "ACME")
	if err != nil {
		t.Fatalf("GetByTicker failed: %v", err)
	}
	if got.Name != "ACME Corp" {
		t.Errorf("Name = %s, want ACME Corp", got.Name)
	}
	if got.CIK != "0000012345" {
		t.Errorf("CIK = %s, want 0000012345", got.CIK)
	}
}

func TestCompanyStore_DuplicateKey(t *testing.T) {
	store := NewCompanyStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testCompany("ACME")); err != nil {
		t.Fatalf("first Insert failed: %v", err)
	}
	if err := store.Insert(ctx, testCompany("ACME")); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestCompanyStore_NotFound(t *testing.T) {
	store := NewCompanyStore()

	if _, err := store.GetByTicker(context.Background(), "GHOST"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCompanyStore_Upsert(t *testing.T) {
	store := NewCompanyStore()
	ctx := context.Background()

	original := testCompany("ACME")
	if err := store.Upsert(ctx, original); err != nil {
		t.Fatalf("first Upsert failed: %v", err)
	}

	refreshed := testCompany("ACME")
	refreshed.Sector = "Technology"
	refreshed.AddedAt = 1756209600000
	if err := store.Upsert(ctx, refreshed); err != nil {
		t.Fatalf("second Upsert failed: %v", err)
	}

	got, err := store.GetByTicker(ctx, "ACME")
	if err != nil {
		t.Fatalf("GetByTicker failed: %v", err)
	}
	if got.Sector != "Technology" {
		t.Errorf("Sector = %s, want Technology", got.Sector)
	}
	if got.AddedAt != original.AddedAt {
		t.Errorf("AddedAt = %d, want original %d preserved", got.AddedAt, original.AddedAt)
	}
}

func TestCompanyStore_GetAllSorted(t *testing.T) {
	store := NewCompanyStore()
	ctx := context.Background()

	for _, ticker := range []string{"ZEN", "ACME", "BOLT"} {
		if err := store.Insert(ctx, testCompany(ticker)); err != nil {
			t.Fatalf("Insert %s failed: %v", ticker, err)
		}
	}

	all, err := store.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	want := []string{"ACME", "BOLT", "ZEN"}
	if len(all) != len(want) {
		t.Fatalf("GetAll returned %d companies, want %d", len(all), len(want))
	}
	for i, ticker := range want {
		if all[i].Ticker != ticker {
			t.Errorf("all[%d].Ticker = %s, want %s", i, all[i].Ticker, ticker)
		}
	}
}

func TestCompanyStore_CopyIsolation(t *testing.T) {
	store := NewCompanyStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testCompany("ACME")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByTicker(ctx, "ACME")
	if err != nil {
		t.Fatalf("GetByTicker failed: %v", err)
	}
	got.Name = "Mutated"

	again, err := store.GetByTicker(ctx, "ACME")
	if err != nil {
		t.Fatalf("second GetByTicker failed: %v", err)
	}
	if again.Name != "ACME Corp" {
		t.Errorf("stored Name = %s, caller mutation leaked in", again.Name)
	}
}

func TestCompanyStore_InvalidInput(t *testing.T) {
	store := NewCompanyStore()
	ctx := context.Background()

	if err := store.Insert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Insert(nil) = %v, want ErrInvalidInput", err)
	}
	if err := store.Insert(ctx, &domain.Company{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Insert(empty ticker) = %v, want ErrInvalidInput", err)
	}
}
