package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/domain"
	"github.com/we-re-wolf/Aperture-LBO-Screener/internal/storage"
)

func TestRunStore_InsertAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRunStore(pool)
	ctx := context.Background()

	run := &domain.ScreenRun{
		RunID:        "2Fq8vXb",
		Status:       domain.RunStatusRunning,
		UniverseSize: 20,
		StartedAt:    1700000000,
	}
	err := store.Insert(ctx, run)
	require.NoError(t, err)

	retrieved, err := store.GetByID(ctx, "2Fq8vXb")
	require.NoError(t, err)

	assert.Equal(t, "2Fq8vXb", retrieved.RunID)
	assert.Equal(t, domain.RunStatusRunning, retrieved.Status)
	assert.Equal(t, 20, retrieved.UniverseSize)
	assert.Equal(t, 0, retrieved.Fetched)
	assert.Equal(t, 0, retrieved.Screened)
	assert.Equal(t, 0, retrieved.Modeled)
	assert.Equal(t, int64(1700000000), retrieved.StartedAt)
	assert.Equal(t, int64(0), retrieved.FinishedAt)
}

func TestRunStore_InsertDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRunStore(pool)
	ctx := context.Background()

	run := &domain.ScreenRun{
		RunID:     "run-dup",
		Status:    domain.RunStatusRunning,
		StartedAt: 1700000000,
	}
	err := store.Insert(ctx, run)
	require.NoError(t, err)

	err = store.Insert(ctx, run)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestRunStore_Finish(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRunStore(pool)
	ctx := context.Background()

	run := &domain.ScreenRun{
		RunID:        "run-1",
		Status:       domain.RunStatusRunning,
		UniverseSize: 20,
		StartedAt:    1700000000,
	}
	err := store.Insert(ctx, run)
	require.NoError(t, err)

	err = store.Finish(ctx, "run-1", domain.RunStatusCompleted, 18, 6, 6, 1700000120)
	require.NoError(t, err)

	retrieved, err := store.GetByID(ctx, "run-1")
	require.NoError(t, err)

	assert.Equal(t, domain.RunStatusCompleted, retrieved.Status)
	assert.Equal(t, 20, retrieved.UniverseSize)
	assert.Equal(t, 18, retrieved.Fetched)
	assert.Equal(t, 6, retrieved.Screened)
	assert.Equal(t, 6, retrieved.Modeled)
	assert.Equal(t, int64(1700000120), retrieved.FinishedAt)
}

func TestRunStore_FinishUnknownRun(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRunStore(pool)
	ctx := context.Background()

	err := store.Finish(ctx, "run-missing", domain.RunStatusFailed, 0, 0, 0, 1700000120)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRunStore_GetByIDNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRunStore(pool)
	ctx := context.Background()

	_, err := store.GetByID(ctx, "nonexistent")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRunStore_GetAllNewestFirst(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRunStore(pool)
	ctx := context.Background()

	runs := []*domain.ScreenRun{
		{RunID: "run-old", Status: domain.RunStatusCompleted, StartedAt: 1000},
		{RunID: "run-new", Status: domain.RunStatusRunning, StartedAt: 3000},
		{RunID: "run-mid", Status: domain.RunStatusFailed, StartedAt: 2000},
	}
	for _, r := range runs {
		err := store.Insert(ctx, r)
		require.NoError(t, err)
	}

	got, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "run-new", got[0].RunID)
	assert.Equal(t, "run-mid", got[1].RunID)
	assert.Equal(t, "run-old", got[2].RunID)
}

func TestRunStore_EmptyResult(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRunStore(pool)
	ctx := context.Background()

	got, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}
