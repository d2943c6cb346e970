// Package dlq persists rows that failed validation to the durable dead
// letter queue, and bounds how much history a reprocess run cleans up
// (spec §3, §4.9 step 7).
package dlq

import (
	"context"
	"encoding/json"
	"strings"

	"fileloader/internal/db"
	"fileloader/internal/fileerrors"
	"fileloader/internal/model"
)

const tableName = "file_load_dlq"

// deleteBatchSize bounds a single reprocess cleanup DELETE so it never
// locks the table for an unbounded duration (spec §4.9 step 7).
const deleteBatchSize = 5000

// Store persists DeadLetterRows and cleans them up on successful reprocess.
type Store struct {
	pool *db.Pool
}

// New binds a Store to pool.
func New(pool *db.Pool) *Store {
	return &Store{pool: pool}
}

// CreateTable issues the startup DDL for file_load_dlq (spec §3, §6); the
// original has no equivalent table at all, so there is no schema to
// reflect here, only one to declare.
func (s *Store) CreateTable(ctx context.Context) error {
	d := s.pool.Dialect
	cols := []string{
		d.QuoteIdent("id") + " " + d.AutoIncrementPK(),
		d.QuoteIdent("source_filename") + " " + d.TextType(),
		d.QuoteIdent("file_row_number") + " BIGINT",
		d.QuoteIdent("file_record_data") + " " + d.JSONColumnType(),
		d.QuoteIdent("validation_errors") + " " + d.JSONColumnType(),
		d.QuoteIdent("run_log_id") + " BIGINT",
		d.QuoteIdent("target_table_name") + " " + d.TextType(),
		d.QuoteIdent("failed_at") + " " + d.DatetimeType(),
	}
	ddl := d.CreateTableSQL(tableName, strings.Join(cols, ",\n  "))
	if _, err := s.pool.SQL.ExecContext(ctx, ddl); err != nil {
		return fileerrors.Wrap(fileerrors.KindTransientDB, err, "create %s table", tableName)
	}
	return nil
}

// Insert persists one failed row's diagnostics.
func (s *Store) Insert(ctx context.Context, row model.DeadLetterRow) error {
	recordJSON, err := json.Marshal(row.FileRecordData)
	if err != nil {
		return fileerrors.Wrap(fileerrors.KindCodeDefect, err, "marshal dead letter record for %s", row.SourceFilename)
	}
	errorsJSON, err := json.Marshal(row.ValidationErrors)
	if err != nil {
		return fileerrors.Wrap(fileerrors.KindCodeDefect, err, "marshal dead letter errors for %s", row.SourceFilename)
	}

	query := `INSERT INTO ` + tableName + ` (source_filename, file_row_number, file_record_data, validation_errors, run_log_id, target_table_name, failed_at) VALUES (` +
		s.pool.Dialect.Placeholder(1) + `, ` + s.pool.Dialect.Placeholder(2) + `, ` + s.pool.Dialect.Placeholder(3) + `, ` +
		s.pool.Dialect.Placeholder(4) + `, ` + s.pool.Dialect.Placeholder(5) + `, ` + s.pool.Dialect.Placeholder(6) + `, ` + s.pool.Dialect.Placeholder(7) + `)`

	_, err = s.pool.SQL.ExecContext(ctx, query,
		row.SourceFilename, row.FileRowNumber, string(recordJSON), string(errorsJSON),
		row.RunLogID, row.TargetTableName, row.FailedAt)
	if err != nil {
		return fileerrors.Wrap(fileerrors.KindTransientDB, err, "insert dead letter row for %s", row.SourceFilename)
	}
	return nil
}

// CleanupPriorRuns deletes dead letter rows left by earlier, now-superseded
// runs of sourceFilename (run_log_id below the current run), in bounded
// batches so a file reprocessed many times never triggers a single huge
// delete (spec §4.9 step 7, §8 "DLQ monotonicity after reprocess").
func (s *Store) CleanupPriorRuns(ctx context.Context, sourceFilename string, currentRunLogID int64) (int64, error) {
	var total int64
	for {
		query := s.pool.Dialect.CappedDeletePriorDLQSQL(tableName, deleteBatchSize)
		res, err := s.pool.SQL.ExecContext(ctx, query, sourceFilename, currentRunLogID)
		if err != nil {
			return total, fileerrors.Wrap(fileerrors.KindTransientDB, err, "cleanup dead letter rows for %s", sourceFilename)
		}
		n, _ := res.RowsAffected()
		total += n
		if n < deleteBatchSize {
			break
		}
	}
	return total, nil
}
