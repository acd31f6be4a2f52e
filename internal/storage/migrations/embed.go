package migrations

import "embed"

// PostgresFS embeds the position, funding, and claim table migrations.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// ClickhouseFS embeds the accrual analytics table migrations.
//
//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS
