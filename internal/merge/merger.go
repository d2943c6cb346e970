// Package merge moves a file's audited staging rows into its target table
// using the dialect-appropriate upsert, after pre-computing how many rows
// will be inserted versus updated (spec §4.6).
package merge

import (
	"context"

	"fileloader/internal/config"
	"fileloader/internal/db"
	"fileloader/internal/fileerrors"
)

// Result reports the pre-computed insert/update split for one file's merge
// (spec §4.9 run log fields target_inserts/target_updates).
type Result struct {
	Inserts int64
	Updates int64
}

// Merger applies one file's staged rows to its target table.
type Merger struct {
	pool       *db.Pool
	src        config.SourceSpec
	stageTable string
}

// New binds a Merger to pool, src, and the file's staging table.
func New(pool *db.Pool, src config.SourceSpec, stageTable string) *Merger {
	return &Merger{pool: pool, src: src, stageTable: stageTable}
}

// Run counts the pending inserts/updates, then applies the merge inside a
// single transaction (spec §4.6: merge is all-or-nothing per file).
func (m *Merger) Run(ctx context.Context) (Result, error) {
	var result Result

	if err := m.pool.SQL.QueryRowContext(ctx,
		m.pool.Dialect.CountInsertsSQL(m.src.TargetTable, m.stageTable, m.src),
	).Scan(&result.Inserts); err != nil {
		return result, fileerrors.Wrap(fileerrors.KindTransientDB, err, "count pending inserts for %s", m.src.TargetTable)
	}

	if err := m.pool.SQL.QueryRowContext(ctx,
		m.pool.Dialect.CountUpdatesSQL(m.src.TargetTable, m.stageTable, m.src),
	).Scan(&result.Updates); err != nil {
		return result, fileerrors.Wrap(fileerrors.KindTransientDB, err, "count pending updates for %s", m.src.TargetTable)
	}

	tx, err := m.pool.SQL.BeginTx(ctx, nil)
	if err != nil {
		return result, fileerrors.Wrap(fileerrors.KindTransientDB, err, "begin merge transaction for %s", m.src.TargetTable)
	}
	defer tx.Rollback()

	mergeSQL := m.pool.Dialect.MergeSQL(m.src.TargetTable, m.stageTable, m.src)
	if _, err := tx.ExecContext(ctx, mergeSQL); err != nil {
		return result, fileerrors.Wrap(fileerrors.KindTransientDB, err, "merge stage %s into %s", m.stageTable, m.src.TargetTable)
	}

	if err := tx.Commit(); err != nil {
		return result, fileerrors.Wrap(fileerrors.KindTransientDB, err, "commit merge for %s", m.src.TargetTable)
	}

	return result, nil
}
