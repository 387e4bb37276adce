package live

import (
	"math"
	"testing"

	"fluence-lab/internal/domain"
)

// makeSamples creates samples every stepHours ending at tEnd.
func makeSamples(tEnd, stepHours float64, flux []float64) []domain.FluxSample {
	n := len(flux)
	samples := make([]domain.FluxSample, n)
	for i, f := range flux {
		samples[i] = domain.FluxSample{Time: tEnd - float64(n-1-i)*stepHours, Flux: f}
	}
	return samples
}

func TestCurrentTrend_ExponentialRise(t *testing.T) {
	// log10 rises 0.05 per hour, sampled every 5 minutes over 10 hours
	step := 5.0 / 60
	n := 121
	flux := make([]float64, n)
	for i := range flux {
		hours := float64(i) * step
		flux[i] = math.Pow(10, 2+0.05*hours)
	}

	slope, err := CurrentTrend(makeSamples(1000, step, flux), DefaultTrendConfig())
	if err != nil {
		t.Fatalf("CurrentTrend failed: %v", err)
	}
	if math.Abs(slope-0.05) > 1e-9 {
		t.Errorf("expected slope 0.05, got %v", slope)
	}
}

func TestCurrentTrend_IgnoresOldAndBadSamples(t *testing.T) {
	flux := []float64{
		1e6, 1e6, // older than the window, would dominate the fit
		100, -100000, 100, 100, 100, 100, 100,
	}
	slope, err := CurrentTrend(makeSamples(500, 1, flux), DefaultTrendConfig())
	if err != nil {
		t.Fatalf("CurrentTrend failed: %v", err)
	}
	if math.Abs(slope) > 1e-12 {
		t.Errorf("expected flat slope, got %v", slope)
	}
}

func TestCurrentTrend_InsufficientSamples(t *testing.T) {
	tests := []struct {
		name    string
		samples []domain.FluxSample
		want    error
	}{
		{"empty", nil, ErrNoSamples},
		// 4 points is not more than MinPoints
		{"too few points", makeSamples(10, 1, []float64{5, 6, 7, 8}), ErrInsufficientSamples},
		// 6 points over 1.25 h does not span more than 2 h
		{"span too short", makeSamples(10, 0.25, []float64{5, 6, 7, 8, 9, 10}), ErrInsufficientSamples},
		// last sample invalid and the rest older than the window
		{"all invalid", makeSamples(10, 1, []float64{-1, -1, -1, -1, -1, -1}), ErrInsufficientSamples},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := CurrentTrend(tc.samples, DefaultTrendConfig())
			if err != tc.want {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestCurrentLevel(t *testing.T) {
	samples := makeSamples(100, 0.5, []float64{1000, 10, 20, -5, 30})

	// window of 2 h: samples at 98.5, 99, 99.5, 100
	level, err := CurrentLevel(samples, 2, 1)
	if err != nil {
		t.Fatalf("CurrentLevel failed: %v", err)
	}
	if math.Abs(level-20) > 1e-12 {
		t.Errorf("expected mean 20, got %v", level)
	}

	if _, err := CurrentLevel(nil, 2, 1); err != ErrNoSamples {
		t.Errorf("expected ErrNoSamples, got %v", err)
	}
	if _, err := CurrentLevel(makeSamples(5, 1, []float64{0, 0}), 2, 1); err != ErrInsufficientSamples {
		t.Errorf("expected ErrInsufficientSamples, got %v", err)
	}
}

func TestQuery_MagnitudeOnlyWithoutTrend(t *testing.T) {
	// Two samples: enough for a level, not for a trend
	samples := makeSamples(10, 1, []float64{40, 60})

	q, err := Query(samples, DefaultTrendConfig(), 2, 1)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if q.Level != 50 {
		t.Errorf("expected level 50, got %v", q.Level)
	}
	if q.Trend != nil {
		t.Errorf("expected nil trend, got %v", *q.Trend)
	}
}

func TestQuery_WithTrend(t *testing.T) {
	samples := makeSamples(10, 1, []float64{100, 100, 100, 100, 100, 100})

	q, err := Query(samples, DefaultTrendConfig(), 2, 1)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if q.Trend == nil {
		t.Fatal("expected trend to be set")
	}
	if *q.Trend != 0 {
		t.Errorf("expected zero trend, got %v", *q.Trend)
	}
}
