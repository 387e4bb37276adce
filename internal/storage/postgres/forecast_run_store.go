package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"fluence-lab/internal/domain"
	"fluence-lab/internal/storage"
)

// ForecastRunStore implements storage.ForecastRunStore using PostgreSQL.
type ForecastRunStore struct {
	pool *Pool
}

// NewForecastRunStore creates a new ForecastRunStore.
func NewForecastRunStore(pool *Pool) *ForecastRunStore {
	return &ForecastRunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ForecastRunStore = (*ForecastRunStore)(nil)

const forecastRunColumns = `
	run_id, created_at_ms, status, level, trend, library_size,
	bin_width, magnitude_matches, selected, p10, p50, p90
`

// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
func (s *ForecastRunStore) Insert(ctx context.Context, r *domain.ForecastRun) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO forecast_runs (` + forecastRunColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := s.pool.Exec(ctx, query,
		r.RunID, r.CreatedAtMs, r.Status, r.Level, r.Trend, r.LibrarySize,
		r.BinWidth, r.MagnitudeMatches, r.Selected,
		nonNil(r.P10), nonNil(r.P50), nonNil(r.P90),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert forecast run: %w", err)
	}
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *ForecastRunStore) GetByID(ctx context.Context, runID string) (*domain.ForecastRun, error) {
	query := `SELECT ` + forecastRunColumns + ` FROM forecast_runs WHERE run_id = $1`

	r, err := scanForecastRun(s.pool.QueryRow(ctx, query, runID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get forecast run by id: %w", err)
	}
	return r, nil
}

// GetLatest retrieves the most recently created run. Returns ErrNotFound if empty.
func (s *ForecastRunStore) GetLatest(ctx context.Context) (*domain.ForecastRun, error) {
	query := `
		SELECT ` + forecastRunColumns + `
		FROM forecast_runs
		ORDER BY created_at_ms DESC, run_id DESC
		LIMIT 1
	`

	r, err := scanForecastRun(s.pool.QueryRow(ctx, query))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get latest forecast run: %w", err)
	}
	return r, nil
}

// GetByTimeRange retrieves runs created within [start, end] (inclusive).
func (s *ForecastRunStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.ForecastRun, error) {
	query := `
		SELECT ` + forecastRunColumns + `
		FROM forecast_runs
		WHERE created_at_ms >= $1 AND created_at_ms <= $2
		ORDER BY created_at_ms ASC, run_id ASC
	`

	rows, err := s.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("get forecast runs by time range: %w", err)
	}
	defer rows.Close()

	var runs []*domain.ForecastRun
	for rows.Next() {
		r, err := scanForecastRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan forecast run row: %w", err)
		}
		runs = append(runs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate forecast run rows: %w", err)
	}

	return runs, nil
}

// scanForecastRun scans a single row; pgx.Rows satisfies pgx.Row.
func scanForecastRun(row pgx.Row) (*domain.ForecastRun, error) {
	var r domain.ForecastRun

	err := row.Scan(
		&r.RunID, &r.CreatedAtMs, &r.Status, &r.Level, &r.Trend, &r.LibrarySize,
		&r.BinWidth, &r.MagnitudeMatches, &r.Selected, &r.P10, &r.P50, &r.P90,
	)
	if err != nil {
		return nil, err
	}

	return &r, nil
}

// nonNil keeps NOT NULL array columns satisfied for runs without percentiles.
func nonNil(v []float64) []float64 {
	if v == nil {
		return []float64{}
	}
	return v
}
