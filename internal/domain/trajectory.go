package domain

// Trajectory is a fixed-length historical window of flux samples split into
// a past segment (trend) and a future segment (outcome).
type Trajectory struct {
	StartTime float64 // time of the first past sample, hours since epoch

	Past   []float64 // NPast flux values, chronological
	Future []float64 // NFuture flux values immediately after Past

	Level float64 // Past[NPast-1], the flux at trajectory time zero
	Trend float64 // least-squares slope of log10(flux) over Past per sample

	// CumulativeFluence[i] is the fluence accumulated over future hours 1..i+1.
	CumulativeFluence []float64
}

// Library is the set of trajectories extracted from one archive snapshot.
// It is rebuilt for every forecast and never mutated after construction.
type Library struct {
	Config       LibraryConfig
	Trajectories []Trajectory
}

// Len returns the number of trajectories in the library.
func (l *Library) Len() int {
	if l == nil {
		return 0
	}
	return len(l.Trajectories)
}
