// Package fluence builds empirical flux trajectory libraries from an archive
// and forecasts percentile bands of accumulated fluence from them.
package fluence

import (
	"math"

	"fluence-lab/internal/domain"
)

// BuildLibrary extracts overlapping trajectories from an ordered flux history.
// Steps:
//  1. Drop samples with flux <= MinValidFlux
//  2. Slide a window of NPast+NFuture samples with stride NSamp
//  3. Reject windows whose real time span is not NTotal-1 hours (data gaps)
//  4. Fit the log10 trend over the past segment
//  5. Accumulate future flux into fluence per sample interval
//
// Fewer than NTotal valid samples yields an empty library, not an error.
func BuildLibrary(samples []domain.FluxSample, cfg domain.LibraryConfig) (*domain.Library, error) {
	if err := ValidateLibraryConfig(cfg); err != nil {
		return nil, err
	}

	valid := filterValid(samples, cfg.MinValidFlux)
	lib := &domain.Library{Config: cfg}

	nTotal := cfg.NTotal()
	idealSpan := float64(nTotal - 1)

	for start := 0; start+nTotal <= len(valid); start += cfg.NSamp {
		window := valid[start : start+nTotal]

		span := window[nTotal-1].Time - window[0].Time
		if math.Abs(span-idealSpan) > cfg.GapToleranceHours {
			continue
		}

		lib.Trajectories = append(lib.Trajectories, newTrajectory(window, cfg))
	}

	return lib, nil
}

// filterValid returns samples with flux strictly above minFlux.
func filterValid(samples []domain.FluxSample, minFlux float64) []domain.FluxSample {
	valid := make([]domain.FluxSample, 0, len(samples))
	for _, s := range samples {
		if s.Flux > minFlux {
			valid = append(valid, s)
		}
	}
	return valid
}

// newTrajectory builds one trajectory from a gap-free window of NTotal samples.
func newTrajectory(window []domain.FluxSample, cfg domain.LibraryConfig) domain.Trajectory {
	past := make([]float64, cfg.NPast)
	for i := range past {
		past[i] = window[i].Flux
	}

	future := make([]float64, cfg.NFuture)
	cumulative := make([]float64, cfg.NFuture)
	sum := 0.0
	for i := range future {
		future[i] = window[cfg.NPast+i].Flux
		sum += future[i]
		cumulative[i] = sum * cfg.SampleIntervalSeconds
	}

	return domain.Trajectory{
		StartTime:         window[0].Time,
		Past:              past,
		Future:            future,
		Level:             past[cfg.NPast-1],
		Trend:             logSlope(past),
		CumulativeFluence: cumulative,
	}
}
