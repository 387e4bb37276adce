package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"fluence-lab/internal/domain"
	"fluence-lab/internal/storage"
)

// FluxSampleStore is an in-memory implementation of storage.FluxSampleStore.
type FluxSampleStore struct {
	mu   sync.RWMutex
	data map[float64]domain.FluxSample // keyed by time (hours)
}

// NewFluxSampleStore creates a new in-memory flux sample store.
func NewFluxSampleStore() *FluxSampleStore {
	return &FluxSampleStore{
		data: make(map[float64]domain.FluxSample),
	}
}

// InsertBulk adds multiple samples. Fails entire batch on duplicate.
func (s *FluxSampleStore) InsertBulk(_ context.Context, samples []domain.FluxSample) error {
	if len(samples) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[float64]struct{}, len(samples))

	// First pass: validate and check for duplicates (existing + intra-batch)
	for _, p := range samples {
		if math.IsNaN(p.Time) || math.IsInf(p.Time, 0) || math.IsNaN(p.Flux) {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[p.Time]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[p.Time]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[p.Time] = struct{}{}
	}

	// Second pass: insert all
	for _, p := range samples {
		s.data[p.Time] = p
	}

	return nil
}

// GetAll retrieves all samples, ordered by time ASC.
func (s *FluxSampleStore) GetAll(_ context.Context) ([]domain.FluxSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.FluxSample, 0, len(s.data))
	for _, p := range s.data {
		result = append(result, p)
	}
	sortSamples(result)

	return result, nil
}

// GetByTimeRange retrieves samples within [start, end] (inclusive).
func (s *FluxSampleStore) GetByTimeRange(_ context.Context, start, end float64) ([]domain.FluxSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.FluxSample
	for _, p := range s.data {
		if p.Time >= start && p.Time <= end {
			result = append(result, p)
		}
	}
	sortSamples(result)

	return result, nil
}

func sortSamples(samples []domain.FluxSample) {
	sort.Slice(samples, func(i, j int) bool {
		return samples[i].Time < samples[j].Time
	})
}

var _ storage.FluxSampleStore = (*FluxSampleStore)(nil)
