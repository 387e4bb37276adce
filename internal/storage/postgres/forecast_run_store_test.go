package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fluence-lab/internal/domain"
	"fluence-lab/internal/storage"
)

func sampleRun(id string, createdAtMs int64) *domain.ForecastRun {
	return &domain.ForecastRun{
		RunID:            id,
		CreatedAtMs:      createdAtMs,
		Status:           domain.ForecastStatusOK,
		Level:            ptr(120.5),
		Trend:            ptr(-0.02),
		LibrarySize:      5000,
		BinWidth:         0.196,
		MagnitudeMatches: 210,
		Selected:         210,
		P10:              []float64{1e5, 2e5},
		P50:              []float64{2e5, 4e5},
		P90:              []float64{3e5, 6e5},
	}
}

func TestForecastRunStore_InsertAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewForecastRunStore(pool)
	ctx := context.Background()

	run := sampleRun("run-1", 1700000000000)
	require.NoError(t, store.Insert(ctx, run))

	got, err := store.GetByID(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, run, got)
}

func TestForecastRunStore_NullableFields(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewForecastRunStore(pool)
	ctx := context.Background()

	run := &domain.ForecastRun{
		RunID:       "run-empty",
		CreatedAtMs: 1,
		Status:      domain.ForecastStatusNoLiveData,
	}
	require.NoError(t, store.Insert(ctx, run))

	got, err := store.GetByID(ctx, "run-empty")
	require.NoError(t, err)
	assert.Nil(t, got.Level)
	assert.Nil(t, got.Trend)
	assert.Empty(t, got.P50)
	assert.Equal(t, domain.ForecastStatusNoLiveData, got.Status)
}

func TestForecastRunStore_Errors(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewForecastRunStore(pool)
	ctx := context.Background()

	_, err := store.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.GetLatest(ctx)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.Insert(ctx, sampleRun("run-1", 1)))
	assert.ErrorIs(t, store.Insert(ctx, sampleRun("run-1", 2)), storage.ErrDuplicateKey)

	assert.ErrorIs(t, store.Insert(ctx, nil), storage.ErrInvalidInput)
}

func TestForecastRunStore_LatestAndRange(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewForecastRunStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, sampleRun("a", 1000)))
	require.NoError(t, store.Insert(ctx, sampleRun("c", 3000)))
	require.NoError(t, store.Insert(ctx, sampleRun("b", 2000)))

	latest, err := store.GetLatest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "c", latest.RunID)

	runs, err := store.GetByTimeRange(ctx, 1000, 2000)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "a", runs[0].RunID)
	assert.Equal(t, "b", runs[1].RunID)
}
