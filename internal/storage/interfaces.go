package storage

import (
	"context"

	"fluence-lab/internal/domain"
)

// FluxSampleStore provides access to flux_samples storage.
// Sample time (hours since epoch) is the key.
type FluxSampleStore interface {
	// InsertBulk adds multiple samples. Fails entire batch on duplicate time.
	InsertBulk(ctx context.Context, samples []domain.FluxSample) error

	// GetAll retrieves all samples, ordered by time ASC.
	GetAll(ctx context.Context) ([]domain.FluxSample, error)

	// GetByTimeRange retrieves samples within [start, end] hours (inclusive), ordered by time ASC.
	GetByTimeRange(ctx context.Context, start, end float64) ([]domain.FluxSample, error)
}

// ForecastRunStore provides access to forecast_runs storage.
type ForecastRunStore interface {
	// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, r *domain.ForecastRun) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.ForecastRun, error)

	// GetLatest retrieves the most recently created run. Returns ErrNotFound if empty.
	GetLatest(ctx context.Context) (*domain.ForecastRun, error)

	// GetByTimeRange retrieves runs created within [start, end] ms (inclusive), ordered by created_at ASC.
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.ForecastRun, error)
}
