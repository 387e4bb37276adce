// Package pipeline runs end-to-end fluence forecasts: load the archive,
// build the trajectory library, derive the live query, forecast, persist.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"fluence-lab/internal/domain"
	"fluence-lab/internal/fluence"
	"fluence-lab/internal/live"
	"fluence-lab/internal/observability"
	"fluence-lab/internal/storage"
)

// RunnerOptions configures a Runner. Zero values take defaults.
type RunnerOptions struct {
	SampleStore storage.FluxSampleStore  // required
	RunStore    storage.ForecastRunStore // optional, runs are not persisted when nil

	LibraryConfig  *domain.LibraryConfig  // Default: domain.DefaultLibraryConfig()
	ForecastConfig *domain.ForecastConfig // Default: domain.DefaultForecastConfig()
	TrendConfig    *live.TrendConfig      // Default: live.DefaultTrendConfig()

	LevelWindowHours  float64 // Default: 2 - live level is the mean over this trailing window
	LiveLookbackHours float64 // Default: 6 - samples older than this are not live

	Logger  *log.Logger
	Metrics *observability.Metrics // Default: observability.DefaultMetrics
	NewID   func() string          // Default: uuid.NewString
	Clock   func() time.Time       // Default: time.Now().UTC()
}

// Result is the outcome of one forecast run.
type Result struct {
	Run      *domain.ForecastRun
	Query    *domain.LiveQuery       // nil when no live data
	Forecast *domain.FluenceForecast // nil unless Run.Status is OK
}

// Runner executes forecast runs. Safe for concurrent use.
type Runner struct {
	sampleStore storage.FluxSampleStore
	runStore    storage.ForecastRunStore

	libraryCfg  domain.LibraryConfig
	forecastCfg domain.ForecastConfig
	trendCfg    live.TrendConfig

	levelWindowHours  float64
	liveLookbackHours float64

	logger  *log.Logger
	metrics *observability.Metrics
	newID   func() string
	clock   func() time.Time

	// library cache, rebuilt when the archive changes
	mu       sync.Mutex
	cacheKey archiveKey
	cached   *domain.Library
}

// archiveKey identifies archive contents cheaply; append-only stores only grow.
type archiveKey struct {
	count       int
	first, last float64
}

// NewRunner creates a new forecast runner. Configs are validated here.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.SampleStore == nil {
		return nil, errors.New("sample store is required")
	}

	libraryCfg := domain.DefaultLibraryConfig()
	if opts.LibraryConfig != nil {
		libraryCfg = *opts.LibraryConfig
	}
	if err := fluence.ValidateLibraryConfig(libraryCfg); err != nil {
		return nil, err
	}

	forecastCfg := domain.DefaultForecastConfig()
	if opts.ForecastConfig != nil {
		forecastCfg = *opts.ForecastConfig
	}
	if err := fluence.ValidateForecastConfig(forecastCfg); err != nil {
		return nil, err
	}

	trendCfg := live.DefaultTrendConfig()
	if opts.TrendConfig != nil {
		trendCfg = *opts.TrendConfig
	}

	levelWindow := opts.LevelWindowHours
	if levelWindow == 0 {
		levelWindow = 2
	}

	lookback := opts.LiveLookbackHours
	if lookback == 0 {
		lookback = 6
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	metrics := opts.Metrics
	if metrics == nil {
		metrics = observability.DefaultMetrics
	}

	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	clock := opts.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}

	return &Runner{
		sampleStore:       opts.SampleStore,
		runStore:          opts.RunStore,
		libraryCfg:        libraryCfg,
		forecastCfg:       forecastCfg,
		trendCfg:          trendCfg,
		levelWindowHours:  levelWindow,
		liveLookbackHours: lookback,
		logger:            logger,
		metrics:           metrics,
		newID:             newID,
		clock:             clock,
	}, nil
}

// Run forecasts from the live state derived from the most recent archive samples.
// Missing live data and thin libraries are reported through Run.Status, not as errors.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	return r.run(ctx, nil)
}

// RunQuery forecasts for an explicit live state instead of deriving it.
func (r *Runner) RunQuery(ctx context.Context, q domain.LiveQuery) (*Result, error) {
	return r.run(ctx, &q)
}

func (r *Runner) run(ctx context.Context, explicit *domain.LiveQuery) (*Result, error) {
	start := time.Now()
	now := r.clock()

	result, err := r.forecast(ctx, now, explicit)
	if err != nil {
		r.metrics.RecordForecastRun("error", time.Since(start))
		return nil, err
	}
	run := result.Run

	if r.runStore != nil {
		err := r.timed("forecast_runs_insert", func() error {
			return r.runStore.Insert(ctx, run)
		})
		if err != nil {
			r.metrics.RecordForecastRun("error", time.Since(start))
			return nil, fmt.Errorf("persist forecast run: %w", err)
		}
	}

	r.metrics.RecordForecastRun(run.Status, time.Since(start))
	if run.Status == domain.ForecastStatusOK {
		r.metrics.RecordForecastResult(run.LibrarySize, run.Selected, run.BinWidth, *run.Level, now)
	}

	r.logger.Printf("forecast run %s: status=%s library=%d selected=%d in %v",
		run.RunID, run.Status, run.LibrarySize, run.Selected, time.Since(start))

	return result, nil
}

func (r *Runner) forecast(ctx context.Context, now time.Time, explicit *domain.LiveQuery) (*Result, error) {
	run := &domain.ForecastRun{
		RunID:       r.newID(),
		CreatedAtMs: now.UnixMilli(),
	}
	result := &Result{Run: run}

	lib, err := r.library(ctx)
	if err != nil {
		return nil, err
	}
	run.LibrarySize = lib.Len()

	q := explicit
	if q == nil {
		q, err = r.liveQuery(ctx, now)
		if err != nil {
			return nil, err
		}
	}
	if q == nil {
		run.Status = domain.ForecastStatusNoLiveData
		return result, nil
	}
	result.Query = q
	run.Level = &q.Level
	run.Trend = q.Trend

	fc, err := fluence.Forecast(*q, lib, r.forecastCfg)
	if errors.Is(err, fluence.ErrInsufficientData) {
		r.logger.Printf("forecast: %v", err)
		run.Status = domain.ForecastStatusInsufficientData
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("forecast: %w", err)
	}

	run.Status = domain.ForecastStatusOK
	run.BinWidth = fc.BinWidth
	run.MagnitudeMatches = fc.MagnitudeMatches
	run.Selected = fc.Selected
	run.P10 = fc.P10
	run.P50 = fc.P50
	run.P90 = fc.P90
	result.Forecast = fc

	return result, nil
}

// library returns the trajectory library for the current archive,
// reusing the previous build when the archive is unchanged.
func (r *Runner) library(ctx context.Context) (*domain.Library, error) {
	var samples []domain.FluxSample
	err := r.timed("flux_samples_get_all", func() error {
		var err error
		samples, err = r.sampleStore.GetAll(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("load flux archive: %w", err)
	}
	r.metrics.RecordSamplesLoaded(len(samples))

	key := archiveKey{count: len(samples)}
	if len(samples) > 0 {
		key.first = samples[0].Time
		key.last = samples[len(samples)-1].Time
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cached != nil && r.cacheKey == key {
		return r.cached, nil
	}

	lib, err := fluence.BuildLibrary(samples, r.libraryCfg)
	if err != nil {
		return nil, fmt.Errorf("build library: %w", err)
	}
	r.cached = lib
	r.cacheKey = key

	return lib, nil
}

// liveQuery derives the live state from samples within the lookback window before now.
// Returns nil without error when there is no usable live data.
func (r *Runner) liveQuery(ctx context.Context, now time.Time) (*domain.LiveQuery, error) {
	end := domain.HoursSinceEpoch(now)
	start := end - r.liveLookbackHours

	var recent []domain.FluxSample
	err := r.timed("flux_samples_get_range", func() error {
		var err error
		recent, err = r.sampleStore.GetByTimeRange(ctx, start, end)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("load live samples: %w", err)
	}

	q, err := live.Query(recent, r.trendCfg, r.levelWindowHours, r.libraryCfg.MinValidFlux)
	if errors.Is(err, live.ErrNoSamples) || errors.Is(err, live.ErrInsufficientSamples) {
		r.logger.Printf("live query: %v (%d samples in last %.1f h)", err, len(recent), r.liveLookbackHours)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("live query: %w", err)
	}
	return &q, nil
}

func (r *Runner) timed(operation string, fn func() error) error {
	start := time.Now()
	err := fn()
	r.metrics.RecordDBQuery(operation, time.Since(start), err)
	return err
}
