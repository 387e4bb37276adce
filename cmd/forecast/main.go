// Package main runs a single fluence forecast from an archive file or store.
//
// Usage:
//
//	forecast --input ace_hourly.parquet --format text
//	forecast --postgres-dsn ... --clickhouse-dsn ... --save --format json
//	forecast --use-memory --level 500 --trend 0.01 --format csv
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"fluence-lab/internal/archive"
	"fluence-lab/internal/domain"
	"fluence-lab/internal/exposure"
	"fluence-lab/internal/pipeline"
	"fluence-lab/internal/reporting"
	"fluence-lab/internal/storage/backend"
	"fluence-lab/internal/storage/memory"
)

// jsonOutput is the --format json document.
type jsonOutput struct {
	Run      *domain.ForecastRun     `json:"run"`
	Query    *domain.LiveQuery       `json:"query,omitempty"`
	Forecast *domain.FluenceForecast `json:"forecast,omitempty"`
}

func main() {
	_ = godotenv.Load()

	input := flag.String("input", "", "Archive file (.parquet, .csv, .csv.gz, .csv.zst); overrides database stores")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (flux samples)")
	useMemory := flag.Bool("use-memory", false, "Use a synthetic in-memory archive")
	save := flag.Bool("save", false, "Persist the forecast run to the run store")

	level := flag.Float64("level", 0, "Live flux level override (0 = derive from recent samples)")
	trend := flag.String("trend", "", "Live log10 trend per hour override (empty = derive, or magnitude-only with --level)")
	nowFlag := flag.String("now", "", "Forecast time RFC3339 (default: last archive sample for --input, else current time)")

	minSamples := flag.Int("min-samples", domain.DefaultMinSamples, "Magnitude bin population that stops bin growth")
	maxSlopeSamples := flag.Int("max-slope-samples", 0, "Cap on trend-ranked trajectories (0 = unlimited)")
	nFuture := flag.Int("hours", domain.DefaultNFuture, "Forecast horizon in hours")

	format := flag.String("format", "text", "Output format: text, csv, json, markdown")
	output := flag.String("output", "", "Output file (default: stdout)")

	timelineOut := flag.String("timeline-out", "", "Write projected fluence timeline CSV to this file")
	schedulePath := flag.String("schedule", "", "Instrument states and radiation zones JSON for the timeline")
	fluence0 := flag.Float64("fluence0", 0, "Fluence at the start of the timeline")
	stepSeconds := flag.Float64("step-seconds", exposure.DefaultStepSeconds, "Timeline step in seconds")

	flag.Parse()

	logger := log.New(os.Stderr, "[forecast] ", log.LstdFlags)

	switch *format {
	case "text", "csv", "json", "markdown":
	default:
		logger.Fatalf("unknown --format %q", *format)
	}

	ctx := context.Background()

	libraryCfg := domain.DefaultLibraryConfig()
	libraryCfg.NFuture = *nFuture

	forecastCfg := domain.DefaultForecastConfig()
	forecastCfg.MinSamples = *minSamples
	if *maxSlopeSamples > 0 {
		forecastCfg.MaxSlopeSamples = maxSlopeSamples
	}

	// Stores
	var (
		stores  *backend.Stores
		cleanup = func() {}
		lastT   float64
	)
	switch {
	case *input != "":
		samples, err := archive.ReadFile(*input)
		if err != nil {
			logger.Fatalf("Failed to read archive: %v", err)
		}
		if len(samples) == 0 {
			logger.Fatalf("Archive %s is empty", *input)
		}
		logger.Printf("Loaded %d samples from %s", len(samples), *input)
		lastT = samples[len(samples)-1].Time

		sampleStore := memory.NewFluxSampleStore()
		if err := sampleStore.InsertBulk(ctx, samples); err != nil {
			logger.Fatalf("Failed to load archive: %v", err)
		}
		stores = &backend.Stores{Samples: sampleStore, Runs: memory.NewForecastRunStore(), SampleBackend: "file"}

	case *useMemory:
		var err error
		stores, cleanup, err = backend.Open(ctx, backend.Options{UseMemory: true})
		if err != nil {
			logger.Fatalf("Failed to create stores: %v", err)
		}
		if err := pipeline.LoadFixtures(ctx, stores.Samples, time.Now().UTC(), 24*365*2); err != nil {
			logger.Fatalf("Failed to load fixtures: %v", err)
		}

	default:
		var err error
		stores, cleanup, err = backend.Open(ctx, backend.Options{
			PostgresDSN:   *postgresDSN,
			ClickhouseDSN: *clickhouseDSN,
			Migrate:       *save,
		})
		if err != nil {
			logger.Fatalf("Failed to create stores: %v (use --input or --use-memory without databases)", err)
		}
	}
	defer cleanup()

	now, err := forecastTime(*nowFlag, lastT)
	if err != nil {
		logger.Fatalf("Invalid --now: %v", err)
	}

	opts := pipeline.RunnerOptions{
		SampleStore:    stores.Samples,
		LibraryConfig:  &libraryCfg,
		ForecastConfig: &forecastCfg,
		Logger:         logger,
		Clock:          func() time.Time { return now },
	}
	if *save {
		opts.RunStore = stores.Runs
	}

	runner, err := pipeline.NewRunner(opts)
	if err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}

	var result *pipeline.Result
	if *level > 0 {
		q := domain.LiveQuery{Level: *level}
		if *trend != "" {
			v, err := strconv.ParseFloat(*trend, 64)
			if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
				logger.Fatalf("Invalid --trend %q", *trend)
			}
			q.Trend = &v
		}
		result, err = runner.RunQuery(ctx, q)
	} else {
		if *trend != "" {
			logger.Fatal("--trend requires --level")
		}
		result, err = runner.Run(ctx)
	}
	if err != nil {
		logger.Fatalf("Forecast failed: %v", err)
	}

	out := io.Writer(os.Stdout)
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			logger.Fatalf("Failed to create output: %v", err)
		}
		defer f.Close()
		out = f
	}

	if err := render(out, *format, result); err != nil {
		logger.Fatalf("Failed to write output: %v", err)
	}

	if *timelineOut != "" {
		if err := writeTimeline(*timelineOut, *schedulePath, now, *fluence0, *stepSeconds, float64(libraryCfg.NFuture), result); err != nil {
			logger.Fatalf("Failed to write timeline: %v", err)
		}
		logger.Printf("Timeline written to %s", *timelineOut)
	}

	if result.Run.Status != domain.ForecastStatusOK {
		os.Exit(2)
	}
}

// forecastTime resolves the forecast clock: explicit flag, else one hour past
// the last archive sample, else now.
func forecastTime(flagValue string, lastSample float64) (time.Time, error) {
	if flagValue != "" {
		return time.Parse(time.RFC3339, flagValue)
	}
	if lastSample != 0 {
		return domain.TimeFromHours(lastSample + 1), nil
	}
	return time.Now().UTC(), nil
}

func render(w io.Writer, format string, result *pipeline.Result) error {
	var s string
	switch format {
	case "csv":
		s = reporting.RenderCSV(result.Forecast)
	case "markdown":
		s = reporting.RenderMarkdown(result.Run, 6)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(jsonOutput{Run: result.Run, Query: result.Query, Forecast: result.Forecast})
	default:
		s = reporting.RenderSummary(result.Run)
	}
	_, err := io.WriteString(w, s)
	return err
}

func writeTimeline(path, schedulePath string, now time.Time, fluence0, stepSeconds, horizon float64, result *pipeline.Result) error {
	if result.Query == nil {
		return fmt.Errorf("no live level for timeline")
	}

	sched := &exposure.Schedule{}
	if schedulePath != "" {
		var err error
		sched, err = exposure.LoadSchedule(schedulePath)
		if err != nil {
			return err
		}
	}

	tl, err := exposure.Project(domain.HoursSinceEpoch(now), result.Query.Level, fluence0,
		result.Forecast, horizon, stepSeconds, sched)
	if err != nil {
		return err
	}

	return os.WriteFile(path, []byte(reporting.RenderTimelineCSV(tl)), 0o644)
}
