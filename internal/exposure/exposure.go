// Package exposure projects accumulated instrument fluence on a timeline,
// applying instrument configuration attenuation and radiation-zone resets.
//
// Times are hours since epoch; step sizes are seconds.
package exposure

import (
	"sort"

	"fluence-lab/internal/domain"
)

// Grid returns times from start (inclusive) to stop (exclusive) every dtSeconds.
func Grid(start, stop, dtSeconds float64) []float64 {
	if dtSeconds <= 0 || stop <= start {
		return nil
	}
	step := dtSeconds / domain.SecondsPerHour
	n := int((stop - start) / step)
	if start+float64(n)*step < stop {
		n++
	}
	times := make([]float64, n)
	for i := range times {
		times[i] = start + float64(i)*step
	}
	return times
}

// FlatRateRates returns n per-step fluence increments for a constant flux.
// Negative flux (missing data sentinel) is treated as zero.
func FlatRateRates(n int, flux, dtSeconds float64) []float64 {
	if flux < 0 {
		flux = 0
	}
	rates := make([]float64, n)
	for i := range rates {
		rates[i] = flux * dtSeconds
	}
	return rates
}

// Attenuate applies instrument states to per-step rates and returns a new slice.
// Within (TStart, TStop) of a state: detector out of focus zeroes the rate,
// HETG inserted divides it by 5 and LETG inserted by 2.
func Attenuate(times, rates []float64, states []domain.InstrumentState) []float64 {
	out := make([]float64, len(rates))
	copy(out, rates)

	for _, st := range states {
		for i, t := range times {
			if i >= len(out) {
				break
			}
			if !(st.TStart < t && t < st.TStop) {
				continue
			}
			if st.SimPos < domain.SimPosFocalMin {
				out[i] = 0
			}
			if st.HETG == domain.GratingInserted {
				out[i] /= domain.HETGAttenuation
			}
			if st.LETG == domain.GratingInserted {
				out[i] /= domain.LETGAttenuation
			}
		}
	}
	return out
}

// Integrate returns fluence0 plus the running sum of rates.
func Integrate(fluence0 float64, rates []float64) []float64 {
	fluence := make([]float64, len(rates))
	sum := fluence0
	for i, r := range rates {
		sum += r
		fluence[i] = sum
	}
	return fluence
}

// ResetAtZones zeroes the fluence at the first time inside each zone (Start, Stop]
// and carries the offset to every later point. fluence is modified in place.
func ResetAtZones(times, fluence []float64, zones []domain.Interval) {
	for _, z := range zones {
		for i, t := range times {
			if i >= len(fluence) {
				break
			}
			if t > z.Start && t <= z.Stop {
				offset := fluence[i]
				for j := i; j < len(fluence); j++ {
					fluence[j] -= offset
				}
				break
			}
		}
	}
}

// ProjectCurve linearly interpolates (hours, values) onto grid hours.
// Grid points outside the curve take the nearest end value.
func ProjectCurve(hours []int, values []float64, grid []float64) []float64 {
	out := make([]float64, len(grid))
	n := len(hours)
	if n == 0 || n != len(values) {
		return out
	}

	for i, g := range grid {
		switch {
		case g <= float64(hours[0]):
			out[i] = values[0]
		case g >= float64(hours[n-1]):
			out[i] = values[n-1]
		default:
			// first hour strictly greater than g
			k := sort.Search(n, func(j int) bool { return float64(hours[j]) > g })
			h0, h1 := float64(hours[k-1]), float64(hours[k])
			frac := (g - h0) / (h1 - h0)
			out[i] = values[k-1] + frac*(values[k]-values[k-1])
		}
	}
	return out
}

// FlatRate projects fluence for a constant flux from fluence0 at times[0].
func FlatRate(times []float64, fluence0, flux, dtSeconds float64, states []domain.InstrumentState, zones []domain.Interval) []float64 {
	rates := FlatRateRates(len(times), flux, dtSeconds)
	rates = Attenuate(times, rates, states)
	fluence := Integrate(fluence0, rates)
	ResetAtZones(times, fluence, zones)
	return fluence
}

// Percentile projects a percentile cumulative-fluence curve onto times.
// The curve is differenced into per-step rates, attenuated, and integrated
// from fluence0. The result has len(times)-1 points aligned with times[:len-1].
func Percentile(hours []int, curve []float64, times []float64, fluence0 float64, states []domain.InstrumentState, zones []domain.Interval) []float64 {
	if len(times) < 2 {
		return nil
	}

	grid := make([]float64, len(times))
	for i, t := range times {
		grid[i] = t - times[0]
	}
	projected := ProjectCurve(hours, curve, grid)

	rates := make([]float64, len(projected)-1)
	for i := range rates {
		rates[i] = projected[i+1] - projected[i]
	}

	stepTimes := times[:len(times)-1]
	rates = Attenuate(stepTimes, rates, states)
	fluence := Integrate(fluence0, rates)
	ResetAtZones(stepTimes, fluence, zones)
	return fluence
}
