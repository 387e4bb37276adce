// Package main provides the forecast server:
// - Scheduler: runs a fluence forecast every --forecast-interval
// - HTTP: /health, /metrics, /status and the forecast run API
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fluence-lab/internal/archive"
	"fluence-lab/internal/domain"
	"fluence-lab/internal/pipeline"
	"fluence-lab/internal/storage/backend"
)

// Server holds the forecast service components.
type Server struct {
	// Configuration
	forecastInterval time.Duration

	// Components
	stores *backend.Stores
	runner *pipeline.Runner
	logger *log.Logger

	// State
	mu           sync.Mutex
	startedAt    time.Time
	lastRun      time.Time
	lastStatus   string
	lastError    string
	running      bool
	forecastRuns int
}

func main() {
	_ = godotenv.Load()

	// Parse flags (env vars as defaults)
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (flux samples)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage seeded with a synthetic archive")
	seedFile := flag.String("seed-file", "", "Archive file imported into the sample store on startup")
	forecastInterval := flag.Duration("forecast-interval", 1*time.Hour, "Forecast run interval")
	httpAddr := flag.String("http-addr", ":9090", "HTTP address for API, health and metrics")
	minSamples := flag.Int("min-samples", domain.DefaultMinSamples, "Magnitude bin population that stops bin growth")
	maxSlopeSamples := flag.Int("max-slope-samples", 0, "Cap on trend-ranked trajectories (0 = unlimited)")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Create stores
	stores, cleanup, err := backend.Open(ctx, backend.Options{
		PostgresDSN:   *postgresDSN,
		ClickhouseDSN: *clickhouseDSN,
		UseMemory:     *useMemory,
		Migrate:       true,
	})
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()
	logger.Printf("Flux samples stored in %s", stores.SampleBackend)

	if err := seedStore(ctx, logger, stores, *seedFile, *useMemory); err != nil {
		logger.Fatalf("Failed to seed sample store: %v", err)
	}

	forecastCfg := domain.DefaultForecastConfig()
	forecastCfg.MinSamples = *minSamples
	if *maxSlopeSamples > 0 {
		forecastCfg.MaxSlopeSamples = maxSlopeSamples
	}

	runner, err := pipeline.NewRunner(pipeline.RunnerOptions{
		SampleStore:    stores.Samples,
		RunStore:       stores.Runs,
		ForecastConfig: &forecastCfg,
		Logger:         log.New(os.Stdout, "[pipeline] ", log.LstdFlags),
	})
	if err != nil {
		logger.Fatalf("Invalid forecast configuration: %v", err)
	}

	server := &Server{
		forecastInterval: *forecastInterval,
		stores:           stores,
		runner:           runner,
		logger:           logger,
		startedAt:        time.Now(),
	}

	// Channel to signal completion
	done := make(chan struct{})

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	httpServer := &http.Server{
		Addr:              *httpAddr,
		Handler:           server.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Printf("Starting HTTP server on %s", *httpAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("HTTP server error: %v", err)
			cancel()
		}
	}()

	err = server.runScheduler(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("HTTP shutdown: %v", err)
	}
	shutdownCancel()
	close(done)

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// seedStore imports seedFile, or a synthetic archive in memory mode when no file is given.
func seedStore(ctx context.Context, logger *log.Logger, stores *backend.Stores, seedFile string, useMemory bool) error {
	var samples []domain.FluxSample
	switch {
	case seedFile != "":
		var err error
		samples, err = archive.ReadFile(seedFile)
		if err != nil {
			return err
		}
	case useMemory:
		samples = pipeline.SyntheticArchive(time.Now().UTC(), 24*365*2, 1)
	default:
		return nil
	}

	n, err := pipeline.ImportSamples(ctx, stores.Samples, samples, pipeline.ImportOptions{SkipExisting: true})
	if err != nil {
		return err
	}
	logger.Printf("Seeded %d samples (%d already present)", n, len(samples)-n)
	return nil
}

// runScheduler runs forecasts on schedule until ctx is cancelled.
func (s *Server) runScheduler(ctx context.Context) error {
	s.logger.Printf("Starting forecast scheduler (interval: %v)...", s.forecastInterval)

	// Run immediately on start
	s.runForecast(ctx)

	ticker := time.NewTicker(s.forecastInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runForecast(ctx)
		}
	}
}

// runForecast executes one scheduled forecast, skipping if one is in flight.
func (s *Server) runForecast(ctx context.Context) {
	s.runAndRecord(ctx, nil)
}

// runAndRecord runs a forecast (derived or explicit query) and updates server state.
// Returns nil result when another forecast is already running.
func (s *Server) runAndRecord(ctx context.Context, q *domain.LiveQuery) (*pipeline.Result, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Println("Forecast already running, skipping...")
		return nil, nil
	}
	s.running = true
	s.mu.Unlock()

	var (
		result *pipeline.Result
		err    error
	)
	if q != nil {
		result, err = s.runner.RunQuery(ctx, *q)
	} else {
		result, err = s.runner.Run(ctx)
	}

	s.mu.Lock()
	s.running = false
	s.lastRun = time.Now()
	s.forecastRuns++
	if err != nil {
		s.lastStatus = "ERROR"
		s.lastError = err.Error()
	} else {
		s.lastStatus = result.Run.Status
		s.lastError = ""
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Printf("Forecast error: %v", err)
	}
	return result, err
}
