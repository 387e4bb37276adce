package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fluence-lab/internal/domain"
	"fluence-lab/internal/storage"
)

func TestFluxSampleStore_InsertBulkAndGetAll(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewFluxSampleStore(pool)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, nil))

	samples := []domain.FluxSample{
		{Time: 300002, Flux: 12.5},
		{Time: 300000, Flux: 10},
		{Time: 300001, Flux: -100000},
	}
	require.NoError(t, store.InsertBulk(ctx, samples))

	got, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, domain.FluxSample{Time: 300000, Flux: 10}, got[0])
	assert.Equal(t, domain.FluxSample{Time: 300001, Flux: -100000}, got[1])
	assert.Equal(t, domain.FluxSample{Time: 300002, Flux: 12.5}, got[2])
}

func TestFluxSampleStore_InsertBulk_DuplicateRollsBack(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewFluxSampleStore(pool)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, []domain.FluxSample{{Time: 1, Flux: 1}}))

	err := store.InsertBulk(ctx, []domain.FluxSample{
		{Time: 2, Flux: 2},
		{Time: 1, Flux: 3},
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	got, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1, "batch with duplicate must be rolled back")
}

func TestFluxSampleStore_GetByTimeRange(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewFluxSampleStore(pool)
	ctx := context.Background()

	var samples []domain.FluxSample
	for i := 0; i < 48; i++ {
		samples = append(samples, domain.FluxSample{Time: float64(i) * 0.5, Flux: float64(i)})
	}
	require.NoError(t, store.InsertBulk(ctx, samples))

	got, err := store.GetByTimeRange(ctx, 1.0, 3.0)
	require.NoError(t, err)
	require.Len(t, got, 5)
	assert.Equal(t, 1.0, got[0].Time)
	assert.Equal(t, 3.0, got[4].Time)
}
