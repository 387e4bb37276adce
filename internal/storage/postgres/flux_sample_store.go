package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"fluence-lab/internal/domain"
	"fluence-lab/internal/storage"
)

// FluxSampleStore implements storage.FluxSampleStore using PostgreSQL.
type FluxSampleStore struct {
	pool *Pool
}

// NewFluxSampleStore creates a new FluxSampleStore.
func NewFluxSampleStore(pool *Pool) *FluxSampleStore {
	return &FluxSampleStore{pool: pool}
}

// Compile-time interface check.
var _ storage.FluxSampleStore = (*FluxSampleStore)(nil)

// InsertBulk adds multiple samples atomically. Fails entire batch on any duplicate.
func (s *FluxSampleStore) InsertBulk(ctx context.Context, samples []domain.FluxSample) error {
	if len(samples) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `INSERT INTO flux_samples (time_hours, flux) VALUES ($1, $2)`

	batch := &pgx.Batch{}
	for _, p := range samples {
		batch.Queue(query, p.Time, p.Flux)
	}

	results := tx.SendBatch(ctx, batch)
	for range samples {
		if _, err := results.Exec(); err != nil {
			results.Close()
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert flux sample in bulk: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetAll retrieves all samples, ordered by time ASC.
func (s *FluxSampleStore) GetAll(ctx context.Context) ([]domain.FluxSample, error) {
	query := `
		SELECT time_hours, flux
		FROM flux_samples
		ORDER BY time_hours ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all flux samples: %w", err)
	}
	defer rows.Close()

	return scanFluxSamples(rows)
}

// GetByTimeRange retrieves samples within [start, end] (inclusive).
func (s *FluxSampleStore) GetByTimeRange(ctx context.Context, start, end float64) ([]domain.FluxSample, error) {
	query := `
		SELECT time_hours, flux
		FROM flux_samples
		WHERE time_hours >= $1 AND time_hours <= $2
		ORDER BY time_hours ASC
	`

	rows, err := s.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("get flux samples by time range: %w", err)
	}
	defer rows.Close()

	return scanFluxSamples(rows)
}

func scanFluxSamples(rows pgx.Rows) ([]domain.FluxSample, error) {
	var samples []domain.FluxSample

	for rows.Next() {
		var p domain.FluxSample
		if err := rows.Scan(&p.Time, &p.Flux); err != nil {
			return nil, fmt.Errorf("scan flux sample row: %w", err)
		}
		samples = append(samples, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate flux sample rows: %w", err)
	}

	return samples, nil
}
