// Package live derives the current flux level and trend from the most
// recent archive samples.
package live

import (
	"errors"
	"math"

	"fluence-lab/internal/domain"
	"fluence-lab/internal/fluence"
)

// Errors returned by live estimators.
var (
	ErrNoSamples           = errors.New("no flux samples available")
	ErrInsufficientSamples = errors.New("insufficient recent flux samples")
)

// TrendConfig controls the live trend estimate.
type TrendConfig struct {
	WindowHours  float64 // samples strictly within this many hours of the last sample
	MinPoints    int     // need more than this many valid points
	MinSpanHours float64 // valid points must span more than this
}

// DefaultTrendConfig fits the last 6 hours, needing at least 5 points over more than 2 hours.
func DefaultTrendConfig() TrendConfig {
	return TrendConfig{
		WindowHours:  6,
		MinPoints:    4,
		MinSpanHours: 2,
	}
}

// CurrentTrend returns the slope of log10(flux) per hour over the trailing
// window ending at the last sample. Samples with flux <= 0 are ignored but
// the window is anchored at the last sample regardless of its validity.
// samples must be ordered by time ASC.
func CurrentTrend(samples []domain.FluxSample, cfg TrendConfig) (float64, error) {
	if len(samples) == 0 {
		return 0, ErrNoSamples
	}

	tLast := samples[len(samples)-1].Time

	var x, y []float64
	for _, s := range samples {
		if tLast-s.Time < cfg.WindowHours && s.Flux > 0 {
			x = append(x, s.Time-tLast)
			y = append(y, math.Log10(s.Flux))
		}
	}

	if len(x) <= cfg.MinPoints {
		return 0, ErrInsufficientSamples
	}
	if x[len(x)-1]-x[0] <= cfg.MinSpanHours {
		return 0, ErrInsufficientSamples
	}

	slope := fluence.LeastSquaresSlope(x, y)
	if math.IsNaN(slope) {
		return 0, ErrInsufficientSamples
	}
	return slope, nil
}

// CurrentLevel returns the mean valid flux over the trailing window ending at
// the last sample. Samples with flux <= minValidFlux are ignored.
// samples must be ordered by time ASC.
func CurrentLevel(samples []domain.FluxSample, windowHours, minValidFlux float64) (float64, error) {
	if len(samples) == 0 {
		return 0, ErrNoSamples
	}

	tLast := samples[len(samples)-1].Time

	sum := 0.0
	n := 0
	for i := len(samples) - 1; i >= 0; i-- {
		s := samples[i]
		if tLast-s.Time >= windowHours {
			break
		}
		if s.Flux > minValidFlux {
			sum += s.Flux
			n++
		}
	}

	if n == 0 {
		return 0, ErrInsufficientSamples
	}
	return sum / float64(n), nil
}

// Query builds the forecaster query from recent samples. A missing trend
// yields a magnitude-only query; a missing level is an error.
func Query(samples []domain.FluxSample, trendCfg TrendConfig, levelWindowHours, minValidFlux float64) (domain.LiveQuery, error) {
	level, err := CurrentLevel(samples, levelWindowHours, minValidFlux)
	if err != nil {
		return domain.LiveQuery{}, err
	}

	q := domain.LiveQuery{Level: level}
	if trend, err := CurrentTrend(samples, trendCfg); err == nil {
		q.Trend = &trend
	}
	return q, nil
}
