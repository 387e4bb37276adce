package exposure

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"fluence-lab/internal/domain"
)

// DefaultStepSeconds is the timeline resolution used by the commands.
const DefaultStepSeconds = 300.0

// ErrBadSchedule is returned when a schedule file cannot be used.
var ErrBadSchedule = errors.New("invalid schedule")

// Schedule holds the instrument states and radiation zones affecting a timeline.
type Schedule struct {
	States []domain.InstrumentState
	Zones  []domain.Interval
}

type scheduleFile struct {
	States []struct {
		Start  time.Time `json:"start"`
		Stop   time.Time `json:"stop"`
		SimPos int       `json:"simpos"`
		HETG   string    `json:"hetg"`
		LETG   string    `json:"letg"`
	} `json:"states"`
	RadZones []struct {
		Start time.Time `json:"start"`
		Stop  time.Time `json:"stop"`
	} `json:"rad_zones"`
}

// LoadSchedule reads a JSON schedule with RFC 3339 interval bounds:
//
//	{"states": [{"start": ..., "stop": ..., "simpos": 75624, "hetg": "RETR", "letg": "RETR"}],
//	 "rad_zones": [{"start": ..., "stop": ...}]}
func LoadSchedule(path string) (*Schedule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schedule: %w", err)
	}

	var f scheduleFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSchedule, err)
	}

	s := &Schedule{}
	for i, st := range f.States {
		if !st.Stop.After(st.Start) {
			return nil, fmt.Errorf("%w: state %d stop is not after start", ErrBadSchedule, i)
		}
		s.States = append(s.States, domain.InstrumentState{
			TStart: domain.HoursSinceEpoch(st.Start),
			TStop:  domain.HoursSinceEpoch(st.Stop),
			SimPos: st.SimPos,
			HETG:   st.HETG,
			LETG:   st.LETG,
		})
	}
	for i, z := range f.RadZones {
		if !z.Stop.After(z.Start) {
			return nil, fmt.Errorf("%w: zone %d stop is not after start", ErrBadSchedule, i)
		}
		s.Zones = append(s.Zones, domain.Interval{
			Start: domain.HoursSinceEpoch(z.Start),
			Stop:  domain.HoursSinceEpoch(z.Stop),
		})
	}

	return s, nil
}

// Timeline is a projected fluence timeline. Flat is the flat-rate projection
// at the live level; the percentile projections are nil without a forecast.
type Timeline struct {
	Times []float64 // hours since epoch, one per step
	Flat  []float64
	P10   []float64
	P50   []float64
	P90   []float64
}

// Project builds a timeline from start covering the forecast horizon.
// The last grid point only bounds the final step, so every series has
// one value per returned time.
func Project(start float64, level, fluence0 float64, fc *domain.FluenceForecast, horizonHours, stepSeconds float64, sched *Schedule) (*Timeline, error) {
	if stepSeconds <= 0 || horizonHours <= 0 {
		return nil, errors.New("project timeline: non-positive horizon or step")
	}
	if sched == nil {
		sched = &Schedule{}
	}

	grid := Grid(start, start+horizonHours+stepSeconds/domain.SecondsPerHour, stepSeconds)
	if len(grid) < 2 {
		return nil, errors.New("project timeline: horizon shorter than one step")
	}
	times := grid[:len(grid)-1]

	tl := &Timeline{
		Times: times,
		Flat:  FlatRate(times, fluence0, level, stepSeconds, sched.States, sched.Zones),
	}
	if fc != nil {
		tl.P10 = Percentile(fc.Hours, fc.P10, grid, fluence0, sched.States, sched.Zones)
		tl.P50 = Percentile(fc.Hours, fc.P50, grid, fluence0, sched.States, sched.Zones)
		tl.P90 = Percentile(fc.Hours, fc.P90, grid, fluence0, sched.States, sched.Zones)
	}

	return tl, nil
}
