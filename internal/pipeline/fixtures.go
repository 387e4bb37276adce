package pipeline

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"fluence-lab/internal/domain"
	"fluence-lab/internal/storage"
)

// SyntheticArchive generates an hourly flux series ending at end, for demos
// and in-memory mode. Quiet-time flux wanders log-normally around ~100 with
// occasional storms that rise over a few hours and decay over a day or two.
// The output is deterministic for a given seed.
func SyntheticArchive(end time.Time, hours int, seed uint64) []domain.FluxSample {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	tEnd := math.Floor(domain.HoursSinceEpoch(end))
	samples := make([]domain.FluxSample, hours)

	logFlux := 2.0
	storm := 0.0
	for i := range samples {
		// mean-reverting quiet background
		logFlux += 0.05*(2.0-logFlux) + 0.04*rng.NormFloat64()

		if storm <= 0.01 && rng.Float64() < 1.0/300 {
			storm = 1 + 2*rng.Float64()
		}
		storm *= 0.96

		samples[i] = domain.FluxSample{
			Time: tEnd - float64(hours-1-i),
			Flux: math.Pow(10, logFlux+storm),
		}

		// occasional telemetry dropouts
		if rng.Float64() < 0.005 {
			samples[i].Flux = -100000
		}
	}
	return samples
}

// LoadFixtures populates store with a synthetic archive.
func LoadFixtures(ctx context.Context, store storage.FluxSampleStore, end time.Time, hours int) error {
	return store.InsertBulk(ctx, SyntheticArchive(end, hours, 1))
}
