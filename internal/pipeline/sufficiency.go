package pipeline

import (
	"fmt"

	"fluence-lab/internal/domain"
)

// SufficiencyCheck represents one archive sufficiency criterion.
type SufficiencyCheck struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// SufficiencyResult summarizes whether an archive can support forecasts.
type SufficiencyResult struct {
	Checks  []SufficiencyCheck
	AllPass bool

	Samples       int
	ValidSamples  int
	SpanHours     float64
	LargestGapHrs float64
	Trajectories  int
}

// MinValidFraction is the share of archive samples that must be valid.
const MinValidFraction = 0.5

// CheckSufficiency evaluates archive coverage against the library and forecaster configs.
// samples must be ordered by time ASC; lib is the library built from them.
func CheckSufficiency(samples []domain.FluxSample, lib *domain.Library, libraryCfg domain.LibraryConfig, forecastCfg domain.ForecastConfig) *SufficiencyResult {
	result := &SufficiencyResult{
		Checks:       make([]SufficiencyCheck, 0, 3),
		AllPass:      true,
		Samples:      len(samples),
		Trajectories: lib.Len(),
	}

	var prev float64
	for i, s := range samples {
		if s.Flux > libraryCfg.MinValidFlux {
			result.ValidSamples++
		}
		if i > 0 {
			result.LargestGapHrs = max(result.LargestGapHrs, s.Time-prev)
		}
		prev = s.Time
	}
	if len(samples) > 1 {
		result.SpanHours = samples[len(samples)-1].Time - samples[0].Time
	}

	nTotal := libraryCfg.NTotal()
	result.add(SufficiencyCheck{
		Name:      "valid_samples",
		Threshold: fmt.Sprintf(">= %d", nTotal),
		Actual:    fmt.Sprintf("%d", result.ValidSamples),
		Pass:      result.ValidSamples >= nTotal,
	})

	fraction := 0.0
	if result.Samples > 0 {
		fraction = float64(result.ValidSamples) / float64(result.Samples)
	}
	result.add(SufficiencyCheck{
		Name:      "valid_fraction",
		Threshold: fmt.Sprintf(">= %.2f", MinValidFraction),
		Actual:    fmt.Sprintf("%.3f", fraction),
		Pass:      fraction >= MinValidFraction,
	})

	// the magnitude bin can only fill if the whole library exceeds MinSamples
	result.add(SufficiencyCheck{
		Name:      "trajectories",
		Threshold: fmt.Sprintf("> %d", forecastCfg.MinSamples),
		Actual:    fmt.Sprintf("%d", result.Trajectories),
		Pass:      result.Trajectories > forecastCfg.MinSamples,
	})

	return result
}

func (r *SufficiencyResult) add(c SufficiencyCheck) {
	r.Checks = append(r.Checks, c)
	if !c.Pass {
		r.AllPass = false
	}
}
