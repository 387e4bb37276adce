package domain

import (
	"math"
	"time"
)

// FluxSample represents one hourly-averaged particle flux measurement.
// Corresponds to flux_samples table in Postgres and ClickHouse.
type FluxSample struct {
	Time float64 // hours since Unix epoch
	Flux float64 // particles / (cm^2 s sr)
}

// Time conversion constants.
const (
	SecondsPerHour = 3600.0
	HoursPerYear   = 24 * 365.25
	epochYear      = 1970.0
)

// HoursSinceEpoch converts a wall-clock time into the archive hour clock.
func HoursSinceEpoch(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Hour)
}

// TimeFromHours converts an archive hour value back to wall-clock time (UTC).
func TimeFromHours(hours float64) time.Time {
	return time.Unix(0, int64(math.Round(hours*float64(time.Hour)))).UTC()
}

// FractionalYearToHours converts a fractional-year timestamp (e.g. 2012.6789)
// into hours since Unix epoch using a 365.25 day year.
// Archive files historically store sample times in this form.
func FractionalYearToHours(fpYear float64) float64 {
	return (fpYear - epochYear) * HoursPerYear
}

// HoursToFractionalYear is the inverse of FractionalYearToHours.
func HoursToFractionalYear(hours float64) float64 {
	return hours/HoursPerYear + epochYear
}
