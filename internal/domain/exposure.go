package domain

// InstrumentState is an interval of constant instrument configuration.
// Times are hours since epoch.
type InstrumentState struct {
	TStart float64
	TStop  float64
	SimPos int    // translation table position; < SimPosFocalMin means detector out of focus
	HETG   string // INSR | RETR
	LETG   string // INSR | RETR
}

// Interval is a half-open (Start, Stop] time range in hours since epoch.
type Interval struct {
	Start float64
	Stop  float64
}

// Instrument constants
const (
	GratingInserted  = "INSR"
	GratingRetracted = "RETR"

	SimPosFocalMin = 40000

	HETGAttenuation = 5.0
	LETGAttenuation = 2.0
)
