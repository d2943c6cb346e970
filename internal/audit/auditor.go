// Package audit validates a file's staged rows before they are allowed to
// reach the merge step: the grain must be unique within the file, and any
// declared custom audit_sql must return zero rows (spec §4.6, §9 "Grain
// validation").
package audit

import (
	"context"
	"fmt"
	"strings"

	"fileloader/internal/config"
	"fileloader/internal/db"
	"fileloader/internal/fileerrors"
)

// sampleSize bounds how many duplicate-grain examples are rendered into a
// GrainValidationError message.
const sampleSize int = 5

// Auditor checks one file's staged rows for grain uniqueness and runs any
// source-declared custom audit query.
type Auditor struct {
	pool       *db.Pool
	src        config.SourceSpec
	stageTable string
}

// New binds an Auditor to pool, src, and the file's staging table.
func New(pool *db.Pool, src config.SourceSpec, stageTable string) *Auditor {
	return &Auditor{pool: pool, src: src, stageTable: stageTable}
}

// Run executes both audit checks in order, returning the first failure.
func (a *Auditor) Run(ctx context.Context) error {
	if err := a.checkGrainUniqueness(ctx); err != nil {
		return err
	}
	if a.src.AuditSQL != "" {
		if err := a.runCustomAudit(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (a *Auditor) checkGrainUniqueness(ctx context.Context) error {
	grainCols := make([]string, len(a.src.Grain))
	for i, g := range a.src.Grain {
		grainCols[i] = a.pool.Dialect.QuoteIdent(g)
	}
	grainList := strings.Join(grainCols, ", ")

	query := fmt.Sprintf(
		"SELECT %s, COUNT(*) AS dup_count FROM %s GROUP BY %s HAVING COUNT(*) > 1 LIMIT %d",
		grainList, a.pool.Dialect.QuoteIdent(a.stageTable), grainList, sampleSize,
	)

	rows, err := a.pool.SQL.QueryContext(ctx, query)
	if err != nil {
		return fileerrors.Wrap(fileerrors.KindTransientDB, err, "grain uniqueness check failed for %s", a.stageTable)
	}
	defer rows.Close()

	var samples []string
	for rows.Next() {
		vals := make([]interface{}, len(a.src.Grain)+1)
		ptrs := make([]interface{}, len(vals))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return fileerrors.Wrap(fileerrors.KindTransientDB, err, "scan duplicate grain row for %s", a.stageTable)
		}
		parts := make([]string, len(a.src.Grain))
		for i, g := range a.src.Grain {
			parts[i] = fmt.Sprintf("%s=%v", g, vals[i])
		}
		samples = append(samples, "{"+strings.Join(parts, ", ")+fmt.Sprintf("} (x%v)", vals[len(vals)-1]))
	}
	if err := rows.Err(); err != nil {
		return fileerrors.Wrap(fileerrors.KindTransientDB, err, "iterate duplicate grain rows for %s", a.stageTable)
	}

	if len(samples) > 0 {
		return fileerrors.New(fileerrors.KindGrainValidationError,
			"source %q grain %v is not unique within the file; duplicate examples: %s",
			a.src.Name, a.src.Grain, strings.Join(samples, "; "))
	}
	return nil
}

func (a *Auditor) runCustomAudit(ctx context.Context) error {
	query := strings.ReplaceAll(a.src.AuditSQL, "{stage_table}", a.pool.Dialect.QuoteIdent(a.stageTable))

	rows, err := a.pool.SQL.QueryContext(ctx, query)
	if err != nil {
		return fileerrors.Wrap(fileerrors.KindTransientDB, err, "audit_sql failed for source %q", a.src.Name)
	}
	defer rows.Close()

	if rows.Next() {
		return fileerrors.New(fileerrors.KindAuditFailed,
			"audit_sql for source %q returned at least one offending row", a.src.Name)
	}
	return rows.Err()
}
