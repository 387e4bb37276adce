package clickhouse

import (
	"context"
	"fmt"

	"fluence-lab/internal/domain"
	"fluence-lab/internal/storage"
)

// FluxSampleStore implements storage.FluxSampleStore using ClickHouse.
// MergeTree does not enforce uniqueness, so duplicates are checked before insert.
type FluxSampleStore struct {
	conn *Conn
}

// NewFluxSampleStore creates a new FluxSampleStore.
func NewFluxSampleStore(conn *Conn) *FluxSampleStore {
	return &FluxSampleStore{conn: conn}
}

// Compile-time interface check.
var _ storage.FluxSampleStore = (*FluxSampleStore)(nil)

// InsertBulk adds multiple samples. Fails entire batch on duplicate time.
func (s *FluxSampleStore) InsertBulk(ctx context.Context, samples []domain.FluxSample) error {
	if len(samples) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	seen := make(map[float64]struct{}, len(samples))
	minT, maxT := samples[0].Time, samples[0].Time
	for _, p := range samples {
		if _, exists := seen[p.Time]; exists {
			return storage.ErrDuplicateKey
		}
		seen[p.Time] = struct{}{}
		minT = min(minT, p.Time)
		maxT = max(maxT, p.Time)
	}

	// Check for duplicates against existing rows in the batch span
	existing, err := s.existingTimes(ctx, minT, maxT)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	for _, t := range existing {
		if _, dup := seen[t]; dup {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO flux_samples (time_hours, flux)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range samples {
		if err := batch.Append(p.Time, p.Flux); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
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

	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query all flux samples: %w", err)
	}
	defer rows.Close()

	return scanFluxSamples(rows)
}

// GetByTimeRange retrieves samples within [start, end] (inclusive).
func (s *FluxSampleStore) GetByTimeRange(ctx context.Context, start, end float64) ([]domain.FluxSample, error) {
	query := `
		SELECT time_hours, flux
		FROM flux_samples
		WHERE time_hours >= ? AND time_hours <= ?
		ORDER BY time_hours ASC
	`

	rows, err := s.conn.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanFluxSamples(rows)
}

// existingTimes returns stored sample times within [start, end].
func (s *FluxSampleStore) existingTimes(ctx context.Context, start, end float64) ([]float64, error) {
	query := `
		SELECT time_hours FROM flux_samples
		WHERE time_hours >= ? AND time_hours <= ?
	`

	rows, err := s.conn.Query(ctx, query, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var times []float64
	for rows.Next() {
		var t float64
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		times = append(times, t)
	}
	return times, rows.Err()
}

// scanFluxSamples scans multiple rows.
func scanFluxSamples(rows chRows) ([]domain.FluxSample, error) {
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
