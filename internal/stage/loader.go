// Package stage manages each file's ephemeral staging table: create it,
// bulk-load its valid rows, and drop it when the file's run ends, whether
// or not the merge succeeded (spec §4.4, §4.9).
package stage

import (
	"context"
	"fmt"
	"strings"

	"fileloader/internal/config"
	"fileloader/internal/db"
	"fileloader/internal/dialect"
	"fileloader/internal/logging"
	"fileloader/internal/model"
)

// progressEvery controls how often InsertValid logs batch progress for a
// large file (spec §4.5).
const progressEvery = 100000

// Loader owns one file's staging table for its lifetime.
type Loader struct {
	pool       *db.Pool
	src        config.SourceSpec
	StageTable string
}

// NewLoader derives the staging table name from fileStem and binds the
// loader to pool and src.
func NewLoader(pool *db.Pool, src config.SourceSpec, fileStem string) *Loader {
	return &Loader{pool: pool, src: src, StageTable: dialect.StageTableName(fileStem)}
}

// CreateTable issues the CREATE TABLE for this file's staging table.
func (l *Loader) CreateTable(ctx context.Context) error {
	ddl := l.pool.Dialect.CreateStageTableSQL(l.StageTable, l.src)
	if _, err := l.pool.SQL.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create stage table %s: %w", l.StageTable, err)
	}
	return nil
}

// DropTable tears down this file's staging table (spec §4.9: stage tables
// never outlive the file that created them, win or lose).
func (l *Loader) DropTable(ctx context.Context) error {
	ddl := l.pool.Dialect.DropStageTableSQL(l.StageTable)
	if _, err := l.pool.SQL.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("drop stage table %s: %w", l.StageTable, err)
	}
	return nil
}

func (l *Loader) columns() []string {
	cols := make([]string, 0, len(l.src.Model)+2)
	for _, fs := range l.src.Model {
		cols = append(cols, fs.Name)
	}
	return append(cols, "etl_row_hash", "source_filename")
}

// InsertValid loads rows into the staging table, using Postgres's COPY
// fast path when available and a dialect-sized batched INSERT otherwise.
// A batch failure rolls back that batch and propagates the error; rows
// already committed in prior batches remain staged (spec §4.5).
func (l *Loader) InsertValid(ctx context.Context, rows []model.ValidRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	if l.pool.PG != nil {
		n, err := l.pool.CopyValidRows(ctx, l.StageTable, l.columns(), rows)
		if err != nil {
			return n, err
		}
		logging.For(logging.Fields{"stage_table": l.StageTable, "rows": n}).Info("staged rows via copy")
		return n, nil
	}

	columns := l.columns()
	batchSize := l.pool.Dialect.BatchSize(l.src, config.DefaultBatchSize)

	var total int64
	for start := 0; start < len(rows); start += batchSize {
		end := start + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[start:end]

		n, err := l.insertBatch(ctx, columns, batch)
		if err != nil {
			return total, fmt.Errorf("insert batch [%d:%d] into %s: %w", start, end, l.StageTable, err)
		}
		total += n

		if total%progressEvery < int64(batchSize) {
			logging.For(logging.Fields{"stage_table": l.StageTable, "rows": total}).Info("stage load progress")
		}
	}
	return total, nil
}

func (l *Loader) insertBatch(ctx context.Context, columns []string, batch []model.ValidRow) (int64, error) {
	tx, err := l.pool.SQL.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin stage insert transaction: %w", err)
	}
	defer tx.Rollback()

	stmt := l.insertSQL(columns, len(batch))
	args := make([]interface{}, 0, len(columns)*len(batch))
	for _, row := range batch {
		for _, col := range columns {
			switch col {
			case "etl_row_hash":
				args = append(args, row.ETLRowHash)
			case "source_filename":
				args = append(args, row.SourceFilename)
			default:
				args = append(args, row.Fields[col])
			}
		}
	}

	res, err := tx.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit stage insert transaction: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (l *Loader) insertSQL(columns []string, rowCount int) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = l.pool.Dialect.QuoteIdent(c)
	}

	var rows []string
	argIndex := 1
	for r := 0; r < rowCount; r++ {
		placeholders := make([]string, len(columns))
		for c := range columns {
			placeholders[c] = l.pool.Dialect.Placeholder(argIndex)
			argIndex++
		}
		rows = append(rows, "("+strings.Join(placeholders, ", ")+")")
	}

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		l.pool.Dialect.QuoteIdent(l.StageTable), strings.Join(quoted, ", "), strings.Join(rows, ", "))
}
