package pipeline

import (
	"context"
	"fmt"

	"fluence-lab/internal/domain"
	"fluence-lab/internal/observability"
	"fluence-lab/internal/storage"
)

// DefaultImportBatchSize is the number of samples inserted per InsertBulk call.
const DefaultImportBatchSize = 10000

// ImportOptions configures ImportSamples.
type ImportOptions struct {
	BatchSize int // Default: DefaultImportBatchSize

	// SkipExisting drops samples whose time is already stored instead of
	// failing with storage.ErrDuplicateKey.
	SkipExisting bool

	Metrics *observability.Metrics // Default: observability.DefaultMetrics
}

// ImportSamples appends time-sorted samples to store in batches and returns the
// number inserted. Batches already written stay written if a later batch fails.
func ImportSamples(ctx context.Context, store storage.FluxSampleStore, samples []domain.FluxSample, opts ImportOptions) (int, error) {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultImportBatchSize
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = observability.DefaultMetrics
	}

	if len(samples) == 0 {
		return 0, nil
	}

	if opts.SkipExisting {
		existing, err := store.GetByTimeRange(ctx, samples[0].Time, samples[len(samples)-1].Time)
		if err != nil {
			return 0, fmt.Errorf("load existing samples: %w", err)
		}
		samples = withoutTimes(samples, existing)
	}

	inserted := 0
	for start := 0; start < len(samples); start += batchSize {
		end := min(start+batchSize, len(samples))

		if err := store.InsertBulk(ctx, samples[start:end]); err != nil {
			metrics.RecordSamplesImported(inserted)
			return inserted, fmt.Errorf("insert samples %d-%d: %w", start, end-1, err)
		}
		inserted += end - start
	}

	metrics.RecordSamplesImported(inserted)
	return inserted, nil
}

func withoutTimes(samples, existing []domain.FluxSample) []domain.FluxSample {
	if len(existing) == 0 {
		return samples
	}

	seen := make(map[float64]struct{}, len(existing))
	for _, s := range existing {
		seen[s.Time] = struct{}{}
	}

	out := make([]domain.FluxSample, 0, len(samples))
	for _, s := range samples {
		if _, ok := seen[s.Time]; !ok {
			out = append(out, s)
		}
	}
	return out
}
