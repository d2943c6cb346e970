package dialect

import (
	"fmt"
	"strings"

	"fileloader/internal/config"
)

// mergeColumns returns the model column names plus the source_filename
// bookkeeping column, in declaration order, for rendering INSERT/UPDATE
// column lists.
func mergeColumns(src config.SourceSpec) []string {
	cols := make([]string, 0, len(src.Model)+1)
	for _, fs := range src.Model {
		cols = append(cols, fs.Name)
	}
	cols = append(cols, "source_filename")
	return cols
}

func nonGrainColumns(src config.SourceSpec) []string {
	grain := make(map[string]bool, len(src.Grain))
	for _, g := range src.Grain {
		grain[g] = true
	}
	var out []string
	for _, c := range mergeColumns(src) {
		if !grain[c] {
			out = append(out, c)
		}
	}
	return out
}

func (d Dialect) joinGrainPredicate(leftAlias, rightAlias string, src config.SourceSpec) string {
	parts := make([]string, len(src.Grain))
	for i, g := range src.Grain {
		col := d.QuoteIdent(g)
		parts[i] = fmt.Sprintf("%s.%s = %s.%s", leftAlias, col, rightAlias, col)
	}
	return strings.Join(parts, " AND ")
}

// MergeSQL renders the dialect-appropriate upsert that moves every row of
// stageTable into targetTable, matching on src.Grain and treating a row as
// unchanged when its etl_row_hash already matches the target (spec §4.6).
func (d Dialect) MergeSQL(targetTable, stageTable string, src config.SourceSpec) string {
	switch d {
	case Postgres, SQLite:
		return d.upsertOnConflict(targetTable, stageTable, src)
	case MySQL:
		return d.upsertOnDuplicateKey(targetTable, stageTable, src)
	case SQLServer:
		return d.mergeStatement(targetTable, stageTable, src)
	default:
		return ""
	}
}

func (d Dialect) upsertOnConflict(targetTable, stageTable string, src config.SourceSpec) string {
	cols := mergeColumns(src)
	cols = append(cols, "etl_row_hash")
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = d.QuoteIdent(c)
	}

	grainQuoted := make([]string, len(src.Grain))
	for i, g := range src.Grain {
		grainQuoted[i] = d.QuoteIdent(g)
	}

	var setClauses []string
	for _, c := range nonGrainColumns(src) {
		setClauses = append(setClauses, fmt.Sprintf("%s = EXCLUDED.%s", d.QuoteIdent(c), d.QuoteIdent(c)))
	}
	setClauses = append(setClauses, fmt.Sprintf("%s = EXCLUDED.%s", d.QuoteIdent("etl_row_hash"), d.QuoteIdent("etl_row_hash")))

	return fmt.Sprintf(
		"INSERT INTO %s (%s)\nSELECT %s FROM %s\nON CONFLICT (%s) DO UPDATE SET %s\nWHERE %s.%s IS DISTINCT FROM EXCLUDED.%s",
		d.QuoteIdent(targetTable), strings.Join(quoted, ", "),
		strings.Join(quoted, ", "), d.QuoteIdent(stageTable),
		strings.Join(grainQuoted, ", "), strings.Join(setClauses, ", "),
		d.QuoteIdent(targetTable), d.QuoteIdent("etl_row_hash"), d.QuoteIdent("etl_row_hash"),
	)
}

func (d Dialect) upsertOnDuplicateKey(targetTable, stageTable string, src config.SourceSpec) string {
	cols := mergeColumns(src)
	cols = append(cols, "etl_row_hash")
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = d.QuoteIdent(c)
	}

	// MySQL applies these assignments left to right, so every column is
	// compared against the target's old etl_row_hash before it is replaced
	// by the last assignment.
	target := d.QuoteIdent(targetTable)
	hash := d.QuoteIdent("etl_row_hash")
	var setClauses []string
	for _, c := range nonGrainColumns(src) {
		col := d.QuoteIdent(c)
		setClauses = append(setClauses, fmt.Sprintf("%s = IF(%s.%s <> VALUES(%s), VALUES(%s), %s.%s)", col, target, hash, hash, col, target, col))
	}
	setClauses = append(setClauses, fmt.Sprintf("%s = VALUES(%s)", hash, hash))

	return fmt.Sprintf(
		"INSERT INTO %s (%s)\nSELECT %s FROM %s\nON DUPLICATE KEY UPDATE %s",
		d.QuoteIdent(targetTable), strings.Join(quoted, ", "),
		strings.Join(quoted, ", "), d.QuoteIdent(stageTable),
		strings.Join(setClauses, ", "),
	)
}

func (d Dialect) mergeStatement(targetTable, stageTable string, src config.SourceSpec) string {
	cols := mergeColumns(src)
	cols = append(cols, "etl_row_hash")

	insertCols := make([]string, len(cols))
	insertVals := make([]string, len(cols))
	for i, c := range cols {
		insertCols[i] = d.QuoteIdent(c)
		insertVals[i] = "src." + d.QuoteIdent(c)
	}

	var setClauses []string
	for _, c := range nonGrainColumns(src) {
		setClauses = append(setClauses, fmt.Sprintf("tgt.%s = src.%s", d.QuoteIdent(c), d.QuoteIdent(c)))
	}
	setClauses = append(setClauses, fmt.Sprintf("tgt.%s = src.%s", d.QuoteIdent("etl_row_hash"), d.QuoteIdent("etl_row_hash")))

	return fmt.Sprintf(
		"MERGE INTO %s AS tgt\nUSING %s AS src\nON %s\nWHEN MATCHED AND tgt.%s <> src.%s THEN\n  UPDATE SET %s\nWHEN NOT MATCHED THEN\n  INSERT (%s) VALUES (%s);",
		d.QuoteIdent(targetTable), d.QuoteIdent(stageTable),
		d.joinGrainPredicate("tgt", "src", src),
		d.QuoteIdent("etl_row_hash"), d.QuoteIdent("etl_row_hash"),
		strings.Join(setClauses, ", "),
		strings.Join(insertCols, ", "), strings.Join(insertVals, ", "),
	)
}

// CountInsertsSQL counts stage rows whose grain key does not yet exist in
// targetTable — the pre-computed target_inserts metric (spec §4.6, §4.9).
func (d Dialect) CountInsertsSQL(targetTable, stageTable string, src config.SourceSpec) string {
	return fmt.Sprintf(
		"SELECT COUNT(*) FROM %s s WHERE NOT EXISTS (SELECT 1 FROM %s t WHERE %s)",
		d.QuoteIdent(stageTable), d.QuoteIdent(targetTable), d.joinGrainPredicate("t", "s", src),
	)
}

// CountUpdatesSQL counts stage rows whose grain key exists in targetTable
// with a different etl_row_hash — the pre-computed target_updates metric.
func (d Dialect) CountUpdatesSQL(targetTable, stageTable string, src config.SourceSpec) string {
	return fmt.Sprintf(
		"SELECT COUNT(*) FROM %s s WHERE EXISTS (SELECT 1 FROM %s t WHERE %s AND t.%s <> s.%s)",
		d.QuoteIdent(stageTable), d.QuoteIdent(targetTable), d.joinGrainPredicate("t", "s", src),
		d.QuoteIdent("etl_row_hash"), d.QuoteIdent("etl_row_hash"),
	)
}
