// Package main moves flux archives between files and stores and checks
// whether an archive can support forecasts.
//
// Modes:
//
//	import: read --input and append it to the sample store
//	export: write the sample store to --output
//	check:  report archive sufficiency for --input or the sample store
//	synth:  write a synthetic archive to --output
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"fluence-lab/internal/archive"
	"fluence-lab/internal/domain"
	"fluence-lab/internal/fluence"
	"fluence-lab/internal/pipeline"
	"fluence-lab/internal/reporting"
	"fluence-lab/internal/storage/backend"
)

func main() {
	_ = godotenv.Load()

	mode := flag.String("mode", "", "Mode: import, export, check, synth")
	input := flag.String("input", "", "Archive file to read (.parquet, .csv, .csv.gz, .csv.zst)")
	output := flag.String("output", "", "Archive file to write (format chosen by extension)")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (flux samples)")
	batchSize := flag.Int("batch-size", pipeline.DefaultImportBatchSize, "Samples per insert batch")
	skipExisting := flag.Bool("skip-existing", false, "Skip samples already in the store instead of failing")
	hours := flag.Int("hours", 24*365*2, "Synthetic archive length in hours (synth mode)")
	seed := flag.Uint64("seed", 1, "Synthetic archive seed (synth mode)")
	minSamples := flag.Int("min-samples", domain.DefaultMinSamples, "Forecast magnitude bin population (check mode)")

	flag.Parse()

	logger := log.New(os.Stderr, "[archive] ", log.LstdFlags)
	ctx := context.Background()

	var err error
	switch *mode {
	case "import":
		if *input == "" {
			logger.Fatal("--input is required for import")
		}
		err = runImport(ctx, logger, *input, *postgresDSN, *clickhouseDSN, pipeline.ImportOptions{
			BatchSize:    *batchSize,
			SkipExisting: *skipExisting,
		})
	case "export":
		if *output == "" {
			logger.Fatal("--output is required for export")
		}
		err = runExport(ctx, logger, *output, *postgresDSN, *clickhouseDSN)
	case "check":
		err = runCheck(ctx, logger, *input, *postgresDSN, *clickhouseDSN, *minSamples)
	case "synth":
		if *output == "" {
			logger.Fatal("--output is required for synth")
		}
		samples := pipeline.SyntheticArchive(time.Now().UTC(), *hours, *seed)
		err = archive.WriteFile(*output, samples)
		if err == nil {
			logger.Printf("Wrote %d synthetic samples to %s", len(samples), *output)
		}
	default:
		flag.Usage()
		logger.Fatalf("unknown --mode %q", *mode)
	}

	if err != nil {
		logger.Fatalf("%s failed: %v", *mode, err)
	}
}

func openStores(ctx context.Context, postgresDSN, clickhouseDSN string, migrate bool) (*backend.Stores, func(), error) {
	return backend.Open(ctx, backend.Options{
		PostgresDSN:   postgresDSN,
		ClickhouseDSN: clickhouseDSN,
		Migrate:       migrate,
	})
}

func runImport(ctx context.Context, logger *log.Logger, input, postgresDSN, clickhouseDSN string, opts pipeline.ImportOptions) error {
	samples, err := archive.ReadFile(input)
	if err != nil {
		return err
	}
	logger.Printf("Read %d samples from %s", len(samples), input)

	stores, cleanup, err := openStores(ctx, postgresDSN, clickhouseDSN, true)
	if err != nil {
		return err
	}
	defer cleanup()

	start := time.Now()
	n, err := pipeline.ImportSamples(ctx, stores.Samples, samples, opts)
	if err != nil {
		return fmt.Errorf("imported %d before error: %w", n, err)
	}

	logger.Printf("Imported %d samples into %s in %v (%d skipped)",
		n, stores.SampleBackend, time.Since(start), len(samples)-n)
	return nil
}

func runExport(ctx context.Context, logger *log.Logger, output, postgresDSN, clickhouseDSN string) error {
	stores, cleanup, err := openStores(ctx, postgresDSN, clickhouseDSN, false)
	if err != nil {
		return err
	}
	defer cleanup()

	samples, err := stores.Samples.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("load samples: %w", err)
	}
	if len(samples) == 0 {
		return errors.New("sample store is empty")
	}

	if err := archive.WriteFile(output, samples); err != nil {
		return err
	}
	logger.Printf("Exported %d samples from %s to %s", len(samples), stores.SampleBackend, output)
	return nil
}

func runCheck(ctx context.Context, logger *log.Logger, input, postgresDSN, clickhouseDSN string, minSamples int) error {
	var samples []domain.FluxSample
	if input != "" {
		var err error
		samples, err = archive.ReadFile(input)
		if err != nil {
			return err
		}
	} else {
		stores, cleanup, err := openStores(ctx, postgresDSN, clickhouseDSN, false)
		if err != nil {
			return err
		}
		defer cleanup()

		samples, err = stores.Samples.GetAll(ctx)
		if err != nil {
			return fmt.Errorf("load samples: %w", err)
		}
	}

	libraryCfg := domain.DefaultLibraryConfig()
	forecastCfg := domain.DefaultForecastConfig()
	forecastCfg.MinSamples = minSamples

	lib, err := fluence.BuildLibrary(samples, libraryCfg)
	if err != nil {
		return fmt.Errorf("build library: %w", err)
	}

	result := pipeline.CheckSufficiency(samples, lib, libraryCfg, forecastCfg)
	fmt.Print(reporting.RenderSufficiency(result))

	if !result.AllPass {
		logger.Println("Archive is not sufficient for forecasting")
		os.Exit(2)
	}
	return nil
}
