package fluence

import (
	"fmt"
	"math"
	"sort"

	"fluence-lab/internal/domain"
)

// Forecast computes 10/50/90 percentile fluence curves for the live query.
// Steps:
//  1. Grow a log10 magnitude bin around q.Level until it holds more than
//     MinSamples trajectories or exceeds MaxBinWidth
//  2. If q.Trend is set, rank the bin by trend distance and keep the closest
//     MaxSlopeSamples (all when nil)
//  3. Rescale each cumulative fluence curve by q.Level / trajectory level
//  4. Take linear-interpolated percentiles at every future hour
//
// The library is only read.
func Forecast(q domain.LiveQuery, lib *domain.Library, cfg domain.ForecastConfig) (*domain.FluenceForecast, error) {
	if !(q.Level > 0) || math.IsInf(q.Level, 0) {
		return nil, fmt.Errorf("%w: flux level must be positive and finite, got %v", ErrInvalidInput, q.Level)
	}
	if q.Trend != nil && (math.IsNaN(*q.Trend) || math.IsInf(*q.Trend, 0)) {
		return nil, fmt.Errorf("%w: trend must be finite, got %v", ErrInvalidInput, *q.Trend)
	}
	if err := ValidateForecastConfig(cfg); err != nil {
		return nil, err
	}
	if lib.Len() == 0 {
		return nil, fmt.Errorf("%w: empty trajectory library", ErrInsufficientData)
	}

	trajectories := lib.Trajectories
	selected, binWidth := selectByMagnitude(q.Level, trajectories, cfg)
	magnitudeMatches := len(selected)

	if q.Trend != nil {
		selected = rankByTrend(selected, trajectories, *q.Trend, cfg.MaxSlopeSamples)
	}

	if len(selected) == 0 {
		return nil, fmt.Errorf("%w: no trajectories within log10 bin width %.3f of level %g",
			ErrInsufficientData, binWidth, q.Level)
	}

	nFuture := len(trajectories[selected[0]].CumulativeFluence)
	result := &domain.FluenceForecast{
		Hours:            make([]int, nFuture),
		P10:              make([]float64, nFuture),
		P50:              make([]float64, nFuture),
		P90:              make([]float64, nFuture),
		BinWidth:         binWidth,
		MagnitudeMatches: magnitudeMatches,
		Selected:         len(selected),
	}

	column := make([]float64, len(selected))
	for h := 0; h < nFuture; h++ {
		for k, idx := range selected {
			t := &trajectories[idx]
			column[k] = t.CumulativeFluence[h] * q.Level / t.Level
		}
		sort.Float64s(column)

		result.Hours[h] = h + 1
		result.P10[h] = computePercentile(column, 0.10)
		result.P50[h] = computePercentile(column, 0.50)
		result.P90[h] = computePercentile(column, 0.90)
	}

	return result, nil
}

// selectByMagnitude returns indices (library order) of trajectories whose
// level lies within the adaptive log10 bin around level, and the final width.
// The loop is bounded: width grows geometrically by BinGrowth > 1 until it
// passes MaxBinWidth.
func selectByMagnitude(level float64, trajectories []domain.Trajectory, cfg domain.ForecastConfig) ([]int, float64) {
	logLevel := math.Log10(level)
	logLevels := make([]float64, len(trajectories))
	for i := range trajectories {
		logLevels[i] = math.Log10(trajectories[i].Level)
	}

	binWidth := cfg.InitialBinWidth
	for {
		var selected []int
		for i, ll := range logLevels {
			if math.Abs(ll-logLevel) < binWidth {
				selected = append(selected, i)
			}
		}
		if len(selected) > cfg.MinSamples || binWidth > cfg.MaxBinWidth {
			return selected, binWidth
		}
		binWidth *= cfg.BinGrowth
	}
}

// rankByTrend orders candidate indices by |trend - target| ascending and
// keeps at most maxSamples of them. Ties keep library order.
func rankByTrend(candidates []int, trajectories []domain.Trajectory, target float64, maxSamples *int) []int {
	ranked := make([]int, len(candidates))
	copy(ranked, candidates)

	sort.SliceStable(ranked, func(i, j int) bool {
		di := math.Abs(trajectories[ranked[i]].Trend - target)
		dj := math.Abs(trajectories[ranked[j]].Trend - target)
		return di < dj
	})

	if maxSamples != nil && len(ranked) > *maxSamples {
		ranked = ranked[:*maxSamples]
	}
	return ranked
}
