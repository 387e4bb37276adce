package migrations

import "embed"

// PostgresFS embeds the flux_samples and forecast_runs schema, applied in file order.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// ClickhouseFS embeds the columnar flux_samples schema.
//
//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS
