package fluence

import "errors"

// Errors returned by the library builder and forecaster.
var (
	// ErrInsufficientData is returned when the library is empty or no
	// trajectory survives selection. Callers skip the percentile overlay.
	ErrInsufficientData = errors.New("insufficient data for fluence percentiles")

	// ErrInvalidInput is returned when the live flux level is not a positive finite number.
	ErrInvalidInput = errors.New("invalid forecast input")

	// ErrInvalidConfig is returned when library or forecast configuration is unusable.
	ErrInvalidConfig = errors.New("invalid fluence configuration")
)
