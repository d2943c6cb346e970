// Package app wires together configuration, the database pool, the
// source registry, notification sinks, and the worker pool into one
// runnable intake pass (spec §4.9, §4.10).
package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"fileloader/internal/config"
	"fileloader/internal/db"
	"fileloader/internal/dialect"
	"fileloader/internal/dlq"
	"fileloader/internal/intake"
	"fileloader/internal/logging"
	"fileloader/internal/notify"
	"fileloader/internal/pipeline"
	"fileloader/internal/runlog"
	"fileloader/internal/sourceregistry"
	"fileloader/internal/workerpool"
)

// Application-level errors mirroring the command's usage contract.
var (
	ErrUsage          = errors.New("usage error")
	ErrConfigNotFound = errors.New("configuration file not found")
)

var osStatFunc = os.Stat

// AppRunner encapsulates one invocation of the loader.
type AppRunner struct{}

// NewAppRunner creates a new runner.
func NewAppRunner() *AppRunner {
	return &AppRunner{}
}

const usageText = `Usage:
  fileloader [options]

Options:
  -config string   YAML run configuration file (default "config/fileloader.yaml")
  -loglevel string Logging level: debug, info, warning, error (default: the config's log_level)
  -help            Show this help
`

// Usage prints command-line help to writer.
func (a *AppRunner) Usage(writer io.Writer) {
	fmt.Fprint(writer, usageText)
}

// Run parses args, loads the run configuration, and processes every file
// currently sitting in the intake directory.
func (a *AppRunner) Run(args []string) error {
	fs := flag.NewFlagSet("fileloader", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configFile := fs.String("config", "config/fileloader.yaml", "YAML run configuration file")
	logLevelStr := fs.String("loglevel", "", "Override log level from config")
	helpFlag := fs.Bool("help", false, "Show help")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			a.Usage(os.Stderr)
			return nil
		}
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if *helpFlag {
		a.Usage(os.Stderr)
		return nil
	}

	if _, err := osStatFunc(*configFile); err != nil {
		if os.IsNotExist(err) {
			return ErrConfigNotFound
		}
		return fmt.Errorf("stat config file %q: %w", *configFile, err)
	}

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		return fmt.Errorf("load config %q: %w", *configFile, err)
	}

	level := cfg.LogLevel
	if *logLevelStr != "" {
		level = *logLevelStr
	}
	logging.SetupLevel(level)

	return a.run(cfg)
}

func (a *AppRunner) run(cfg *config.RunConfig) error {
	ctx := context.Background()

	pool, err := db.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open database pool: %w", err)
	}
	defer pool.Close()

	runLogs := runlog.New(pool)
	dlqStore := dlq.New(pool)
	if err := bootstrapSchema(ctx, pool, cfg, runLogs, dlqStore); err != nil {
		return fmt.Errorf("bootstrap schema: %w", err)
	}

	files, err := intake.Scan(cfg.IntakeDir)
	if err != nil {
		return fmt.Errorf("scan intake directory %q: %w", cfg.IntakeDir, err)
	}
	if len(files) == 0 {
		logging.L().Info("no files found in intake directory")
		return nil
	}

	p := &pipeline.Pipeline{
		Config:   cfg,
		Pool:     pool,
		Registry: sourceregistry.New(cfg.Sources),
		RunLogs:  runLogs,
		DLQ:      dlqStore,
		Owner:    notify.NewSMTPOwnerNotifier(cfg.Notifications),
		Operator: notify.NewWebhookOperatorNotifier(cfg.Notifications),
	}

	outcomes := workerpool.Run(ctx, p, files, cfg.WorkerCount)

	var succeeded, failed, skipped int
	for _, o := range outcomes {
		switch {
		case o.Skipped:
			skipped++
		case o.Success:
			succeeded++
		default:
			failed++
			logging.For(logging.Fields{"file": o.FileName, "kind": o.Kind}).Error(o.Err)
		}
	}

	logging.For(logging.Fields{
		"total": len(outcomes), "succeeded": succeeded, "failed": failed, "skipped": skipped,
	}).Info("intake pass complete")

	return nil
}

// bootstrapSchema creates every target table named by cfg.Sources plus the
// run-log and DLQ tables, all idempotently, before any file is processed
// (spec §3 "Target tables and run_log/dlq tables are created at program
// startup if absent"). The original reflects file_load_log from an
// assumed-existing schema and has no DLQ table at all; this program
// creates all of them so a fresh database needs no manual setup.
func bootstrapSchema(ctx context.Context, pool *db.Pool, cfg *config.RunConfig, runLogs *runlog.Store, dlqStore *dlq.Store) error {
	for _, src := range cfg.Sources {
		if warning := dialect.GrainWarning(src); warning != "" {
			logging.L().Warn(warning)
		}

		ddl := pool.Dialect.CreateTargetTableSQL(src.TargetTable, src)
		if _, err := pool.SQL.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create target table %s: %w", src.TargetTable, err)
		}
		if err := ensureTargetIndex(ctx, pool, src.TargetTable); err != nil {
			return err
		}
	}

	if err := runLogs.CreateTable(ctx); err != nil {
		return err
	}
	if err := dlqStore.CreateTable(ctx); err != nil {
		return err
	}
	return nil
}

// ensureTargetIndex creates the source_filename secondary index on
// tableName unless it already exists. The existence check is done once in
// Go rather than four different ways in SQL, since MySQL has no
// `CREATE INDEX IF NOT EXISTS` and SQL Server needs the same sys-catalog
// guard CreateTableSQL needs for tables.
func ensureTargetIndex(ctx context.Context, pool *db.Pool, tableName string) error {
	idx := dialect.IndexName(tableName)

	var count int
	if err := pool.SQL.QueryRowContext(ctx, pool.Dialect.IndexExistsSQL(idx)).Scan(&count); err != nil {
		return fmt.Errorf("check index %s: %w", idx, err)
	}
	if count > 0 {
		return nil
	}

	if _, err := pool.SQL.ExecContext(ctx, pool.Dialect.CreateTargetIndexSQL(tableName)); err != nil {
		return fmt.Errorf("create index %s: %w", idx, err)
	}
	return nil
}
