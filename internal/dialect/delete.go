package dialect

import "fmt"

// CappedDeletePriorDLQSQL renders a bounded DELETE of dead-letter rows for
// one file, older than the current run, limited to limit rows per call
// (spec §4.9 step 7). Takes two positional args at query time: source
// filename, current run_log_id.
func (d Dialect) CappedDeletePriorDLQSQL(tableName string, limit int) string {
	table := d.QuoteIdent(tableName)
	switch d {
	case MySQL, SQLite:
		return fmt.Sprintf(
			"DELETE FROM %s WHERE source_filename = %s AND run_log_id < %s LIMIT %d",
			table, d.Placeholder(1), d.Placeholder(2), limit,
		)
	case SQLServer:
		return fmt.Sprintf(
			"DELETE TOP (%d) FROM %s WHERE source_filename = %s AND run_log_id < %s",
			limit, table, d.Placeholder(1), d.Placeholder(2),
		)
	default: // Postgres has no DELETE...LIMIT; emulate via a subquery over ctid.
		return fmt.Sprintf(
			"DELETE FROM %s WHERE ctid IN (SELECT ctid FROM %s WHERE source_filename = %s AND run_log_id < %s LIMIT %d)",
			table, table, d.Placeholder(1), d.Placeholder(2), limit,
		)
	}
}
