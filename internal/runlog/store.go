// Package runlog persists the durable per-file RunLog record across a
// file's full lifecycle (spec §3, §4.9): one row created at intake and a
// final ended_at, counts, and success/failure summary written on exit.
// Only the whole attempt's started_at/ended_at are stored; no per-phase
// timestamps are recorded.
package runlog

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"fileloader/internal/db"
	"fileloader/internal/dialect"
	"fileloader/internal/fileerrors"
	"fileloader/internal/model"
)

const tableName = "file_load_log"

// Store persists RunLog rows to the file_load_log table.
type Store struct {
	pool *db.Pool
}

// New binds a Store to pool.
func New(pool *db.Pool) *Store {
	return &Store{pool: pool}
}

// CreateTable issues the startup DDL for file_load_log (spec §3, §6): the
// program never assumes this table pre-exists, unlike the original, which
// reflected it from an operator-managed schema.
func (s *Store) CreateTable(ctx context.Context) error {
	d := s.pool.Dialect
	cols := []string{
		d.QuoteIdent("id") + " " + d.AutoIncrementPK(),
		d.QuoteIdent("run_uuid") + " " + d.TextType(),
		d.QuoteIdent("file_name") + " " + d.TextType(),
		d.QuoteIdent("started_at") + " " + d.DatetimeType(),
		d.QuoteIdent("ended_at") + " " + d.DatetimeType(),
		d.QuoteIdent("success") + " " + d.BoolType(),
		d.QuoteIdent("error_type") + " " + d.TextType(),
		d.QuoteIdent("records_processed") + " BIGINT",
		d.QuoteIdent("validation_errors") + " BIGINT",
		d.QuoteIdent("records_stage_loaded") + " BIGINT",
		d.QuoteIdent("target_inserts") + " BIGINT",
		d.QuoteIdent("target_updates") + " BIGINT",
		d.QuoteIdent("duplicate_skipped") + " " + d.BoolType() + " DEFAULT " + d.BoolFalseLiteral(),
	}
	ddl := d.CreateTableSQL(tableName, strings.Join(cols, ",\n  "))
	if _, err := s.pool.SQL.ExecContext(ctx, ddl); err != nil {
		return fileerrors.Wrap(fileerrors.KindTransientDB, err, "create %s table", tableName)
	}
	return nil
}

// Start inserts a new RunLog row for fileName and returns it with its ID
// and correlation UUID populated.
func (s *Store) Start(ctx context.Context, fileName string) (*model.RunLog, error) {
	log := &model.RunLog{
		UUID:      uuid.NewString(),
		FileName:  fileName,
		StartedAt: time.Now(),
	}

	query := `INSERT INTO ` + tableName + ` (run_uuid, file_name, started_at) VALUES (` +
		s.pool.Dialect.Placeholder(1) + `, ` + s.pool.Dialect.Placeholder(2) + `, ` + s.pool.Dialect.Placeholder(3) + `)`

	args := []interface{}{log.UUID, log.FileName, log.StartedAt}
	var err error
	switch s.pool.Dialect {
	case dialect.Postgres:
		err = s.pool.SQL.QueryRowContext(ctx, query+` RETURNING id`, args...).Scan(&log.ID)
	case dialect.SQLServer:
		query = strings.Replace(query, `) VALUES (`, `) OUTPUT INSERTED.id VALUES (`, 1)
		err = s.pool.SQL.QueryRowContext(ctx, query, args...).Scan(&log.ID)
	default:
		var res sql.Result
		if res, err = s.pool.SQL.ExecContext(ctx, query, args...); err == nil {
			log.ID, _ = res.LastInsertId()
		}
	}
	if err != nil {
		return nil, fileerrors.Wrap(fileerrors.KindTransientDB, err, "insert run log for %s", fileName)
	}
	return log, nil
}

// Finish writes ended_at, the counts, and the success/failure summary for
// a RunLog (spec §4.9, last step of every file's lifecycle). It writes no
// per-phase timestamps.
func (s *Store) Finish(ctx context.Context, log *model.RunLog) error {
	now := time.Now()
	log.EndedAt = &now

	query := `UPDATE ` + tableName + ` SET ended_at=` + s.pool.Dialect.Placeholder(1) +
		`, success=` + s.pool.Dialect.Placeholder(2) +
		`, error_type=` + s.pool.Dialect.Placeholder(3) +
		`, records_processed=` + s.pool.Dialect.Placeholder(4) +
		`, validation_errors=` + s.pool.Dialect.Placeholder(5) +
		`, records_stage_loaded=` + s.pool.Dialect.Placeholder(6) +
		`, target_inserts=` + s.pool.Dialect.Placeholder(7) +
		`, target_updates=` + s.pool.Dialect.Placeholder(8) +
		`, duplicate_skipped=` + s.pool.Dialect.Placeholder(9) +
		` WHERE run_uuid=` + s.pool.Dialect.Placeholder(10)

	_, err := s.pool.SQL.ExecContext(ctx, query,
		log.EndedAt, log.Success, log.ErrorType,
		log.RecordsProcessed, log.ValidationErrors, log.RecordsStageLoaded,
		log.TargetInserts, log.TargetUpdates, log.DuplicateSkipped, log.UUID)
	if err != nil {
		return fileerrors.Wrap(fileerrors.KindTransientDB, err, "finalize run log for %s", log.FileName)
	}
	return nil
}
