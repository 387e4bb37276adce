package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fluence-lab/internal/domain"
	"fluence-lab/internal/fluence"
	"fluence-lab/internal/observability"
	"fluence-lab/internal/storage"
	"fluence-lab/internal/storage/memory"
)

var testNow = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// constantArchive returns n hourly samples of the given flux ending endOffset hours before testNow.
func constantArchive(n int, flux, endOffset float64) []domain.FluxSample {
	tEnd := domain.HoursSinceEpoch(testNow) - endOffset
	samples := make([]domain.FluxSample, n)
	for i := range samples {
		samples[i] = domain.FluxSample{Time: tEnd - float64(n-1-i), Flux: flux}
	}
	return samples
}

type testEnv struct {
	samples *memory.FluxSampleStore
	runs    *memory.ForecastRunStore
	metrics *observability.Metrics
	runner  *Runner
}

func newTestEnv(t *testing.T, archive []domain.FluxSample, opts RunnerOptions) *testEnv {
	t.Helper()

	env := &testEnv{
		samples: memory.NewFluxSampleStore(),
		runs:    memory.NewForecastRunStore(),
		metrics: observability.NewMetricsWith(prometheus.NewRegistry(), "test"),
	}
	require.NoError(t, env.samples.InsertBulk(context.Background(), archive))

	seq := 0
	opts.SampleStore = env.samples
	opts.RunStore = env.runs
	opts.Metrics = env.metrics
	opts.Logger = log.New(io.Discard, "", 0)
	opts.NewID = func() string {
		seq++
		return fmt.Sprintf("run-%d", seq)
	}
	opts.Clock = func() time.Time { return testNow }

	runner, err := NewRunner(opts)
	require.NoError(t, err)
	env.runner = runner
	return env
}

func TestRunner_Run_OK(t *testing.T) {
	env := newTestEnv(t, constantArchive(500, 100, 0), RunnerOptions{})
	ctx := context.Background()

	result, err := env.runner.Run(ctx)
	require.NoError(t, err)

	run := result.Run
	assert.Equal(t, "run-1", run.RunID)
	assert.Equal(t, testNow.UnixMilli(), run.CreatedAtMs)
	assert.Equal(t, domain.ForecastStatusOK, run.Status)
	assert.Equal(t, 75, run.LibrarySize)
	assert.Equal(t, 75, run.Selected)

	require.NotNil(t, run.Level)
	assert.Equal(t, 100.0, *run.Level)
	require.NotNil(t, run.Trend)
	assert.InDelta(t, 0, *run.Trend, 1e-12)

	require.NotNil(t, result.Forecast)
	require.Len(t, run.P50, domain.DefaultNFuture)
	for h, v := range run.P50 {
		assert.InDelta(t, 100*domain.SecondsPerHour*float64(h+1), v, 1e-6)
	}

	stored, err := env.runs.GetByID(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, domain.ForecastStatusOK, stored.Status)

	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.ForecastRunsTotal.WithLabelValues(domain.ForecastStatusOK)))
	assert.Equal(t, 500.0, testutil.ToFloat64(env.metrics.SamplesLoaded))
	assert.Equal(t, 75.0, testutil.ToFloat64(env.metrics.LibrarySize))
}

func TestRunner_Run_NoLiveData(t *testing.T) {
	// archive ends a day before now
	env := newTestEnv(t, constantArchive(500, 100, 24), RunnerOptions{})
	ctx := context.Background()

	result, err := env.runner.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, domain.ForecastStatusNoLiveData, result.Run.Status)
	assert.Nil(t, result.Query)
	assert.Nil(t, result.Forecast)
	assert.Nil(t, result.Run.Level)
	assert.Equal(t, 75, result.Run.LibrarySize)

	stored, err := env.runs.GetLatest(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.ForecastStatusNoLiveData, stored.Status)
}

func TestRunner_Run_InsufficientData(t *testing.T) {
	// fewer samples than one window: empty library
	env := newTestEnv(t, constantArchive(20, 100, 0), RunnerOptions{})

	result, err := env.runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.ForecastStatusInsufficientData, result.Run.Status)
	assert.Equal(t, 0, result.Run.LibrarySize)
	require.NotNil(t, result.Query)
	assert.Equal(t, 100.0, result.Query.Level)
	assert.Nil(t, result.Forecast)
	assert.Empty(t, result.Run.P50)
}

func TestRunner_RunQuery(t *testing.T) {
	env := newTestEnv(t, constantArchive(500, 100, 0), RunnerOptions{})
	ctx := context.Background()

	// within the bin: rescaled to the query level
	result, err := env.runner.RunQuery(ctx, domain.LiveQuery{Level: 150})
	require.NoError(t, err)
	require.Equal(t, domain.ForecastStatusOK, result.Run.Status)
	assert.Nil(t, result.Run.Trend)
	assert.InDelta(t, 150*domain.SecondsPerHour, result.Run.P50[0], 1e-6)

	// an order of magnitude away from every trajectory
	result, err = env.runner.RunQuery(ctx, domain.LiveQuery{Level: 1000})
	require.NoError(t, err)
	assert.Equal(t, domain.ForecastStatusInsufficientData, result.Run.Status)

	_, err = env.runner.RunQuery(ctx, domain.LiveQuery{Level: -1})
	assert.ErrorIs(t, err, fluence.ErrInvalidInput)
}

func TestRunner_LibraryCache(t *testing.T) {
	env := newTestEnv(t, constantArchive(500, 100, 1), RunnerOptions{})
	ctx := context.Background()

	_, err := env.runner.Run(ctx)
	require.NoError(t, err)
	first := env.runner.cached

	_, err = env.runner.Run(ctx)
	require.NoError(t, err)
	assert.Same(t, first, env.runner.cached, "unchanged archive should reuse library")

	// archive grows by one sample
	next := domain.FluxSample{Time: domain.HoursSinceEpoch(testNow), Flux: 100}
	require.NoError(t, env.samples.InsertBulk(ctx, []domain.FluxSample{next}))

	_, err = env.runner.Run(ctx)
	require.NoError(t, err)
	assert.NotSame(t, first, env.runner.cached, "grown archive should rebuild library")
}

func TestRunner_WithoutRunStore(t *testing.T) {
	store := memory.NewFluxSampleStore()
	require.NoError(t, store.InsertBulk(context.Background(), constantArchive(100, 50, 0)))

	runner, err := NewRunner(RunnerOptions{
		SampleStore: store,
		Metrics:     observability.NewMetricsWith(prometheus.NewRegistry(), ""),
		Logger:      log.New(io.Discard, "", 0),
		Clock:       func() time.Time { return testNow },
	})
	require.NoError(t, err)

	result, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, result.Run.RunID, "default id generator should assign a uuid")
	assert.Len(t, result.Run.RunID, 36)
}

func TestNewRunner_Errors(t *testing.T) {
	_, err := NewRunner(RunnerOptions{})
	assert.Error(t, err)

	bad := domain.DefaultLibraryConfig()
	bad.NPast = 1
	_, err = NewRunner(RunnerOptions{SampleStore: memory.NewFluxSampleStore(), LibraryConfig: &bad})
	assert.ErrorIs(t, err, fluence.ErrInvalidConfig)

	badForecast := domain.DefaultForecastConfig()
	badForecast.BinGrowth = 1
	_, err = NewRunner(RunnerOptions{SampleStore: memory.NewFluxSampleStore(), ForecastConfig: &badForecast})
	assert.ErrorIs(t, err, fluence.ErrInvalidConfig)
}

// failingStore returns err from every read.
type failingStore struct {
	storage.FluxSampleStore
	err error
}

func (s failingStore) GetAll(context.Context) ([]domain.FluxSample, error) {
	return nil, s.err
}

func TestRunner_StoreError(t *testing.T) {
	boom := errors.New("connection refused")
	metrics := observability.NewMetricsWith(prometheus.NewRegistry(), "test")

	runner, err := NewRunner(RunnerOptions{
		SampleStore: failingStore{err: boom},
		Metrics:     metrics,
		Logger:      log.New(io.Discard, "", 0),
	})
	require.NoError(t, err)

	_, err = runner.Run(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ForecastRunsTotal.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.DBQueryErrors.WithLabelValues("flux_samples_get_all")))
}
