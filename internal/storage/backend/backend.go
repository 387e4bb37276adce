// Package backend opens the configured storage backends for the commands.
package backend

import (
	"context"
	"errors"
	"fmt"

	"fluence-lab/internal/storage"
	chstore "fluence-lab/internal/storage/clickhouse"
	"fluence-lab/internal/storage/memory"
	"fluence-lab/internal/storage/migrations"
	pgstore "fluence-lab/internal/storage/postgres"
)

// Options selects backends. With UseMemory both stores live in memory.
// Otherwise forecast runs need Postgres; flux samples go to ClickHouse when
// ClickhouseDSN is set and to Postgres otherwise.
type Options struct {
	PostgresDSN   string
	ClickhouseDSN string
	UseMemory     bool

	// Migrate applies embedded migrations before returning.
	Migrate bool
}

// Stores holds the opened stores and the name of the sample backend.
type Stores struct {
	Samples storage.FluxSampleStore
	Runs    storage.ForecastRunStore

	SampleBackend string // memory | postgres | clickhouse
}

// ErrNoBackend is returned when neither memory nor a Postgres DSN is configured.
var ErrNoBackend = errors.New("postgres dsn is required unless using memory storage")

// Open opens stores per opts. The returned cleanup closes every connection.
func Open(ctx context.Context, opts Options) (*Stores, func(), error) {
	if opts.UseMemory {
		return &Stores{
			Samples:       memory.NewFluxSampleStore(),
			Runs:          memory.NewForecastRunStore(),
			SampleBackend: "memory",
		}, func() {}, nil
	}

	if opts.PostgresDSN == "" {
		return nil, nil, ErrNoBackend
	}

	pool, err := pgstore.NewPool(ctx, opts.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if opts.Migrate {
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrate postgres: %w", err)
		}
	}

	stores := &Stores{
		Samples:       pgstore.NewFluxSampleStore(pool),
		Runs:          pgstore.NewForecastRunStore(pool),
		SampleBackend: "postgres",
	}

	if opts.ClickhouseDSN == "" {
		return stores, pool.Close, nil
	}

	var conn *chstore.Conn
	if opts.Migrate {
		conn, err = migrations.RunClickhouseMigrations(ctx, opts.ClickhouseDSN)
	} else {
		conn, err = chstore.NewConn(ctx, opts.ClickhouseDSN)
	}
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
	}

	stores.Samples = chstore.NewFluxSampleStore(conn)
	stores.SampleBackend = "clickhouse"

	cleanup := func() {
		conn.Close()
		pool.Close()
	}
	return stores, cleanup, nil
}
