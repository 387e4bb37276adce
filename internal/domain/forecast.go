package domain

// LiveQuery is the current state of the instrument environment.
type LiveQuery struct {
	Level float64  `json:"level"`           // current flux, must be > 0
	Trend *float64 `json:"trend,omitempty"` // current log10 slope per hour, nil disables trend ranking
}

// FluenceForecast holds percentile fluence curves for future hours 1..NFuture.
type FluenceForecast struct {
	Hours []int     `json:"hours"`
	P10   []float64 `json:"p10"`
	P50   []float64 `json:"p50"`
	P90   []float64 `json:"p90"`

	BinWidth         float64 `json:"bin_width"`         // final magnitude bin half-width (log10 units)
	MagnitudeMatches int     `json:"magnitude_matches"` // trajectories inside the magnitude bin
	Selected         int     `json:"selected"`          // trajectories used for percentiles
}

// ForecastRun records one forecast invocation.
// Corresponds to forecast_runs table in Postgres.
type ForecastRun struct {
	RunID       string `json:"run_id"`        // uuid
	CreatedAtMs int64  `json:"created_at_ms"` // Unix timestamp in milliseconds
	Status      string `json:"status"`        // OK | INSUFFICIENT_DATA | NO_LIVE_DATA

	Level       *float64 `json:"level"` // live flux level, nil when unavailable
	Trend       *float64 `json:"trend"` // live trend, nil when unavailable
	LibrarySize int      `json:"library_size"`

	BinWidth         float64 `json:"bin_width"`
	MagnitudeMatches int     `json:"magnitude_matches"`
	Selected         int     `json:"selected"`

	P10 []float64 `json:"p10"`
	P50 []float64 `json:"p50"`
	P90 []float64 `json:"p90"`
}

// Forecast run status constants
const (
	ForecastStatusOK               = "OK"
	ForecastStatusInsufficientData = "INSUFFICIENT_DATA"
	ForecastStatusNoLiveData       = "NO_LIVE_DATA"
)
