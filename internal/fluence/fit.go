package fluence

import "math"

// LeastSquaresSlope returns the slope of the ordinary least-squares line
// through (x[i], y[i]). Returns NaN for fewer than two points or when all
// x values coincide.
func LeastSquaresSlope(x, y []float64) float64 {
	n := len(x)
	if n < 2 || n != len(y) {
		return math.NaN()
	}

	meanX, meanY := 0.0, 0.0
	for i := 0; i < n; i++ {
		meanX += x[i]
		meanY += y[i]
	}
	meanX /= float64(n)
	meanY /= float64(n)

	var sxy, sxx float64
	for i := 0; i < n; i++ {
		dx := x[i] - meanX
		sxy += dx * (y[i] - meanY)
		sxx += dx * dx
	}
	if sxx == 0 {
		return math.NaN()
	}
	return sxy / sxx
}

// logSlope fits log10(values) against sample index 0..n-1.
func logSlope(values []float64) float64 {
	x := make([]float64, len(values))
	y := make([]float64, len(values))
	for i, v := range values {
		x[i] = float64(i)
		y[i] = math.Log10(v)
	}
	return LeastSquaresSlope(x, y)
}
