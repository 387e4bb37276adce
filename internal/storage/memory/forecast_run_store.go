package memory

import (
	"context"
	"sort"
	"sync"

	"fluence-lab/internal/domain"
	"fluence-lab/internal/storage"
)

// ForecastRunStore is an in-memory implementation of storage.ForecastRunStore.
type ForecastRunStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ForecastRun // keyed by run_id
}

// NewForecastRunStore creates a new in-memory forecast run store.
func NewForecastRunStore() *ForecastRunStore {
	return &ForecastRunStore{
		data: make(map[string]*domain.ForecastRun),
	}
}

// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
func (s *ForecastRunStore) Insert(_ context.Context, r *domain.ForecastRun) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.RunID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[r.RunID] = cloneRun(r)
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *ForecastRunStore) GetByID(_ context.Context, runID string) (*domain.ForecastRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return cloneRun(r), nil
}

// GetLatest retrieves the most recently created run. Ties break on run_id.
func (s *ForecastRunStore) GetLatest(_ context.Context) (*domain.ForecastRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.ForecastRun
	for _, r := range s.data {
		if latest == nil || runLess(latest, r) {
			latest = r
		}
	}
	if latest == nil {
		return nil, storage.ErrNotFound
	}
	return cloneRun(latest), nil
}

// GetByTimeRange retrieves runs created within [start, end] (inclusive).
func (s *ForecastRunStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.ForecastRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ForecastRun
	for _, r := range s.data {
		if r.CreatedAtMs >= start && r.CreatedAtMs <= end {
			result = append(result, cloneRun(r))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return runLess(result[i], result[j])
	})

	return result, nil
}

func runLess(a, b *domain.ForecastRun) bool {
	if a.CreatedAtMs != b.CreatedAtMs {
		return a.CreatedAtMs < b.CreatedAtMs
	}
	return a.RunID < b.RunID
}

// cloneRun deep-copies a run so callers never share slices or pointers with the store.
func cloneRun(r *domain.ForecastRun) *domain.ForecastRun {
	c := *r
	if r.Level != nil {
		v := *r.Level
		c.Level = &v
	}
	if r.Trend != nil {
		v := *r.Trend
		c.Trend = &v
	}
	c.P10 = append([]float64(nil), r.P10...)
	c.P50 = append([]float64(nil), r.P50...)
	c.P90 = append([]float64(nil), r.P90...)
	return &c
}

var _ storage.ForecastRunStore = (*ForecastRunStore)(nil)
