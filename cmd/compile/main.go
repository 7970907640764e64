// Command semlayer-compile reads a semantic model YAML file and a query
// request JSON file, compiles the query against the named dialect, and
// prints the resulting SQL.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/orionsql/semlayer"
	"github.com/orionsql/semlayer/internal/explain"
	"github.com/orionsql/semlayer/internal/model"
	"github.com/orionsql/semlayer/internal/pipeline"
)

func main() {
	log.SetFlags(0)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "compile":
		if err := runCompile(os.Args[2:]); err != nil {
			log.Fatalf("compile: %v", err)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: semlayer-compile <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  compile   Compile a query request against a semantic model into SQL")
}

func runCompile(args []string) error {
	flags := flag.NewFlagSet("compile", flag.ContinueOnError)
	flags.SetOutput(os.Stdout)
	flags.Usage = func() {
		fmt.Println("Usage: semlayer-compile compile [options]")
		fmt.Println()
		fmt.Println("Options:")
		flags.PrintDefaults()
	}

	cfg := semlayer.DefaultConfig()

	modelPath := flags.String("model", "", "Path to the semantic model YAML file (required)")
	queryPath := flags.String("query", "", "Path to the query request JSON file (required)")
	dialectName := flags.String("dialect", cfg.Compile.DefaultDialect, "Target dialect: postgres, snowflake, clickhouse, dremio, databricks")
	explainFlag := flags.Bool("explain", false, "Run the generated SQL through the target engine's EXPLAIN as a non-blocking syntax check")
	postgresDSN := flags.String("postgres-dsn", "", "Postgres connection string for -explain (postgres dialect only)")
	clickhouseDSN := flags.String("clickhouse-dsn", "", "ClickHouse connection string for -explain (clickhouse dialect only)")
	quiet := flags.Bool("quiet", false, "Suppress structured log output")

	if err := flags.Parse(args); err != nil {
		return err
	}

	if *modelPath == "" || *queryPath == "" {
		flags.Usage()
		return fmt.Errorf("-model and -query are required")
	}

	modelBytes, err := os.ReadFile(*modelPath)
	if err != nil {
		return fmt.Errorf("read model file: %w", err)
	}
	sm, err := model.LoadModel(modelBytes)
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}

	queryBytes, err := os.ReadFile(*queryPath)
	if err != nil {
		return fmt.Errorf("read query file: %w", err)
	}
	qo, err := parseQueryRequest(queryBytes)
	if err != nil {
		return fmt.Errorf("parse query: %w", err)
	}

	var logger *zap.SugaredLogger
	if !*quiet {
		zl, err := zap.NewProduction()
		if err != nil {
			return fmt.Errorf("build logger: %w", err)
		}
		defer zl.Sync()
		logger = zl.Sugar()
	}

	opts := []pipeline.Option{}
	if logger != nil {
		opts = append(opts, pipeline.WithLogger(logger))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Compile.QueryTimeout)
	defer cancel()
	if *explainFlag {
		checker, closeFn, err := buildChecker(ctx, *dialectName, *postgresDSN, *clickhouseDSN)
		if err != nil {
			return fmt.Errorf("-explain: %w", err)
		}
		if closeFn != nil {
			defer closeFn()
		}
		opts = append(opts, pipeline.WithSyntaxChecker(checker))
	}

	result, err := pipeline.New(opts...).Compile(ctx, qo, sm, *dialectName)
	if err != nil {
		return err
	}

	fmt.Println(result.SQL)
	for _, w := range result.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
	return nil
}

// buildChecker wires the one pack-provided driver that can EXPLAIN the
// requested dialect's SQL. Snowflake, Dremio, and Databricks have no driver
// in the pack; the checker is still returned with nothing connected, and
// Checker.CheckSyntax reports that as a warning rather than failing compile.
func buildChecker(ctx context.Context, dialectName, postgresDSN, clickhouseDSN string) (*explain.Checker, func(), error) {
	checker := &explain.Checker{}

	switch dialectName {
	case "postgres":
		if postgresDSN == "" {
			return nil, nil, fmt.Errorf("-postgres-dsn is required for -explain with the postgres dialect")
		}
		pool, err := pgxpool.New(ctx, postgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		checker.Postgres = pool
		return checker, pool.Close, nil

	case "clickhouse":
		if clickhouseDSN == "" {
			return nil, nil, fmt.Errorf("-clickhouse-dsn is required for -explain with the clickhouse dialect")
		}
		conn, err := clickhouse.Open(&clickhouse.Options{Addr: []string{clickhouseDSN}})
		if err != nil {
			return nil, nil, fmt.Errorf("connect clickhouse: %w", err)
		}
		checker.ClickHouse = conn
		return checker, func() { conn.Close() }, nil

	default:
		return checker, nil, nil
	}
}
