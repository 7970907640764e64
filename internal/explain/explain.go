// Package explain implements the optional, non-blocking post-generation
// syntax check of spec §4.8 step 5: hand the rendered SQL to the target
// engine's own parser via EXPLAIN, without executing it. A dialect with no
// pack-provided driver (Snowflake, Dremio, Databricks) surfaces as a
// warning rather than a compile failure.
package explain

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Checker implements pipeline.SyntaxChecker against whichever engine
// connections it was given. A nil connection means that engine's checks are
// skipped rather than treated as a failure.
type Checker struct {
	Postgres   *pgxpool.Pool
	ClickHouse driver.Conn
}

// CheckSyntax runs EXPLAIN against the connected engine matching
// dialectName, or reports the check as unsupported for dialects with no
// connection configured.
func (c *Checker) CheckSyntax(ctx context.Context, dialectName, sql string) error {
	switch dialectName {
	case "postgres":
		if c.Postgres == nil {
			return nil
		}
		return c.checkPostgres(ctx, sql)
	case "clickhouse":
		if c.ClickHouse == nil {
			return nil
		}
		return c.ClickHouse.Exec(ctx, "EXPLAIN "+sql)
	default:
		// snowflake, dremio, databricks: no driver in the pack to check
		// against; surfaced as a warning by the pipeline rather than silently
		// dropped.
		return fmt.Errorf("explain unsupported for dialect %s", dialectName)
	}
}

func (c *Checker) checkPostgres(ctx context.Context, sql string) error {
	rows, err := c.Postgres.Query(ctx, "EXPLAIN "+sql)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
	}
	return rows.Err()
}
