package fluence

import (
	"fmt"
	"math"

	"fluence-lab/internal/domain"
)

// ValidateLibraryConfig checks that a library configuration can produce trajectories.
func ValidateLibraryConfig(cfg domain.LibraryConfig) error {
	switch {
	case cfg.NPast < 2:
		return fmt.Errorf("%w: NPast must be at least 2, got %d", ErrInvalidConfig, cfg.NPast)
	case cfg.NFuture < 1:
		return fmt.Errorf("%w: NFuture must be positive, got %d", ErrInvalidConfig, cfg.NFuture)
	case cfg.NSamp < 1:
		return fmt.Errorf("%w: NSamp must be positive, got %d", ErrInvalidConfig, cfg.NSamp)
	case !(cfg.MinValidFlux >= 0):
		// log10 trend fit needs strictly positive flux
		return fmt.Errorf("%w: MinValidFlux must be >= 0, got %v", ErrInvalidConfig, cfg.MinValidFlux)
	case !(cfg.GapToleranceHours >= 0):
		return fmt.Errorf("%w: GapToleranceHours must be >= 0, got %v", ErrInvalidConfig, cfg.GapToleranceHours)
	case !(cfg.SampleIntervalSeconds > 0) || math.IsInf(cfg.SampleIntervalSeconds, 0):
		return fmt.Errorf("%w: SampleIntervalSeconds must be positive, got %v", ErrInvalidConfig, cfg.SampleIntervalSeconds)
	}
	return nil
}

// ValidateForecastConfig checks that bin growth terminates and caps are sane.
func ValidateForecastConfig(cfg domain.ForecastConfig) error {
	switch {
	case cfg.MinSamples < 0:
		return fmt.Errorf("%w: MinSamples must be >= 0, got %d", ErrInvalidConfig, cfg.MinSamples)
	case cfg.MaxSlopeSamples != nil && *cfg.MaxSlopeSamples < 1:
		return fmt.Errorf("%w: MaxSlopeSamples must be positive when set, got %d", ErrInvalidConfig, *cfg.MaxSlopeSamples)
	case !(cfg.InitialBinWidth > 0):
		return fmt.Errorf("%w: InitialBinWidth must be positive, got %v", ErrInvalidConfig, cfg.InitialBinWidth)
	case !(cfg.MaxBinWidth > 0) || math.IsInf(cfg.MaxBinWidth, 0):
		return fmt.Errorf("%w: MaxBinWidth must be positive and finite, got %v", ErrInvalidConfig, cfg.MaxBinWidth)
	case !(cfg.BinGrowth > 1) || math.IsInf(cfg.BinGrowth, 0):
		return fmt.Errorf("%w: BinGrowth must be > 1, got %v", ErrInvalidConfig, cfg.BinGrowth)
	}
	return nil
}
