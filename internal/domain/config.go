package domain

// LibraryConfig controls trajectory extraction from the flux archive.
type LibraryConfig struct {
	NPast   int // trend-fit window length (samples)
	NFuture int // forecast horizon (samples)
	NSamp   int // stride between consecutive window starts (samples)

	MinValidFlux          float64 // samples with flux <= this are dropped
	GapToleranceHours     float64 // max deviation of window span from NTotal-1 hours
	SampleIntervalSeconds float64 // seconds per sample, converts rate to fluence
}

// NTotal returns the full window length.
func (c LibraryConfig) NTotal() int {
	return c.NPast + c.NFuture
}

// ForecastConfig controls trajectory selection in the percentile forecaster.
type ForecastConfig struct {
	// MinSamples is the magnitude-bin population that stops bin growth
	// (the bin must hold strictly more trajectories than this).
	MinSamples int

	// MaxSlopeSamples caps the trend-ranked subset. Nil keeps every
	// magnitude-matched trajectory.
	MaxSlopeSamples *int

	InitialBinWidth float64 // starting half-width of the log10 magnitude bin
	MaxBinWidth     float64 // growth stops once the width exceeds this
	BinGrowth       float64 // multiplicative growth factor per step
}

// Default configuration values.
const (
	DefaultNPast                 = 6
	DefaultNFuture               = 48
	DefaultNSamp                 = 6
	DefaultMinValidFlux          = 1.0
	DefaultGapToleranceHours     = 0.15
	DefaultSampleIntervalSeconds = SecondsPerHour

	DefaultMinSamples      = 100
	DefaultInitialBinWidth = 0.1
	DefaultMaxBinWidth     = 0.5
	DefaultBinGrowth       = 1.4
)

// DefaultLibraryConfig returns the hourly ACE P3 library configuration.
func DefaultLibraryConfig() LibraryConfig {
	return LibraryConfig{
		NPast:                 DefaultNPast,
		NFuture:               DefaultNFuture,
		NSamp:                 DefaultNSamp,
		MinValidFlux:          DefaultMinValidFlux,
		GapToleranceHours:     DefaultGapToleranceHours,
		SampleIntervalSeconds: DefaultSampleIntervalSeconds,
	}
}

// DefaultForecastConfig returns forecaster defaults with unlimited trend ranking.
func DefaultForecastConfig() ForecastConfig {
	return ForecastConfig{
		MinSamples:      DefaultMinSamples,
		InitialBinWidth: DefaultInitialBinWidth,
		MaxBinWidth:     DefaultMaxBinWidth,
		BinGrowth:       DefaultBinGrowth,
	}
}
