package dialect

import (
	"fmt"
	"regexp"
	"strings"

	"fileloader/internal/config"
)

var nonIdentChar = regexp.MustCompile(`[^A-Za-z0-9_]`)

// StageTableName derives the ephemeral staging table name for a source
// file stem (spec §4.4, §9): non-identifier characters become underscores,
// and a name not starting with a letter is prefixed so every dialect
// accepts it unquoted.
func StageTableName(fileStem string) string {
	sanitized := nonIdentChar.ReplaceAllString(fileStem, "_")
	if sanitized == "" || !isLetter(sanitized[0]) {
		sanitized = "t_" + sanitized
	}
	return "stage_" + sanitized
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// ColumnType maps a FieldSpec's SemanticType to d's native column type.
func (d Dialect) ColumnType(fs config.FieldSpec) string {
	switch fs.SemanticType {
	case config.TypeString:
		if fs.MaxLength > 0 {
			return fmt.Sprintf("VARCHAR(%d)", fs.MaxLength)
		}
		return d.textType()
	case config.TypeInt:
		return "BIGINT"
	case config.TypeDecimal:
		return d.decimalType()
	case config.TypeFloat:
		return d.floatType()
	case config.TypeBool:
		return d.boolType()
	case config.TypeDate:
		return "DATE"
	case config.TypeDateTime:
		return d.datetimeType()
	default:
		return d.textType()
	}
}

func (d Dialect) textType() string {
	if d == SQLServer {
		return "NVARCHAR(MAX)"
	}
	return "TEXT"
}

func (d Dialect) decimalType() string {
	return "DECIMAL(18,4)"
}

func (d Dialect) floatType() string {
	switch d {
	case SQLServer:
		return "FLOAT"
	default:
		return "DOUBLE PRECISION"
	}
}

func (d Dialect) boolType() string {
	switch d {
	case MySQL:
		return "TINYINT(1)"
	case SQLServer:
		return "BIT"
	default:
		return "BOOLEAN"
	}
}

func (d Dialect) datetimeType() string {
	switch d {
	case SQLServer:
		return "DATETIME2"
	case MySQL:
		return "DATETIME"
	default:
		return "TIMESTAMP"
	}
}

// TextType, DatetimeType, and BoolType expose the dialect's native column
// types to packages outside dialect that render their own bootstrap DDL
// (run log, dead letter queue) alongside the model-driven DDL this file
// renders for stage and target tables.
func (d Dialect) TextType() string     { return d.textType() }
func (d Dialect) DatetimeType() string { return d.datetimeType() }
func (d Dialect) BoolType() string     { return d.boolType() }

// AutoIncrementPK renders a single-column auto-incrementing primary key
// declaration, one of the few DDL fragments every dialect spells
// differently even though the concept (a surrogate bookkeeping id) is the
// same everywhere.
func (d Dialect) AutoIncrementPK() string {
	switch d {
	case Postgres:
		return "BIGSERIAL PRIMARY KEY"
	case MySQL:
		return "BIGINT AUTO_INCREMENT PRIMARY KEY"
	case SQLServer:
		return "BIGINT IDENTITY(1,1) PRIMARY KEY"
	default: // SQLite
		return "INTEGER PRIMARY KEY AUTOINCREMENT"
	}
}

// JSONColumnType returns the dialect's native JSON storage type where one
// exists, falling back to text where it doesn't (spec §6: DLQ payload
// columns are "native JSON where available, otherwise text").
func (d Dialect) JSONColumnType() string {
	switch d {
	case Postgres:
		return "JSONB"
	case MySQL:
		return "JSON"
	case SQLServer:
		return "NVARCHAR(MAX)"
	default: // SQLite
		return "TEXT"
	}
}

// BoolFalseLiteral is the dialect's spelling of a literal false, used for
// column defaults on boolean flags an INSERT doesn't always specify.
func (d Dialect) BoolFalseLiteral() string {
	if d == Postgres {
		return "FALSE"
	}
	return "0"
}

func (d Dialect) currentTimestampDefault() string {
	if d == SQLServer {
		return "SYSUTCDATETIME()"
	}
	return "CURRENT_TIMESTAMP"
}

// CreateStageTableSQL renders the DDL for one file's ephemeral staging
// table: every declared model column, plus the two ETL bookkeeping
// columns etl_row_hash and source_filename (spec §4.4, §3). The stage
// table has no run_log_id column.
func (d Dialect) CreateStageTableSQL(tableName string, src config.SourceSpec) string {
	var cols []string
	for _, fs := range src.Model {
		cols = append(cols, fmt.Sprintf("%s %s", d.QuoteIdent(fs.Name), d.ColumnType(fs)))
	}
	cols = append(cols,
		fmt.Sprintf("%s %s", d.QuoteIdent("etl_row_hash"), d.rowHashType()),
		fmt.Sprintf("%s %s", d.QuoteIdent("source_filename"), d.textType()),
	)
	return fmt.Sprintf("CREATE TABLE %s (\n  %s\n)", d.QuoteIdent(tableName), strings.Join(cols, ",\n  "))
}

// CreateTableSQL wraps columnsBody in the dialect's idempotent "create if
// absent" form (spec §6: target, run-log, and DLQ tables are created at
// startup, not assumed pre-existing). Postgres, MySQL, and SQLite all
// accept `CREATE TABLE IF NOT EXISTS`; SQL Server has no such clause, so
// it is emulated with a `sys.tables` existence guard around a plain
// `CREATE TABLE`, issued as a single batch.
func (d Dialect) CreateTableSQL(tableName, columnsBody string) string {
	quoted := d.QuoteIdent(tableName)
	if d == SQLServer {
		return fmt.Sprintf(
			"IF NOT EXISTS (SELECT 1 FROM sys.tables WHERE name = '%s')\nCREATE TABLE %s (\n  %s\n)",
			tableName, quoted, columnsBody,
		)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n)", quoted, columnsBody)
}

// CreateTargetTableSQL renders the DDL for one SourceSpec's durable target
// table: every declared model column, the row-hash/source-filename
// bookkeeping pair stage tables also carry, plus the three columns only
// the target carries — `run_log_id`, `etl_created_at`, `etl_updated_at`
// (spec §6) — and a primary key over the declared grain. `run_log_id` and
// `etl_updated_at` stay nullable because the merge step (spec §4.6) only
// ever writes model columns, etl_row_hash, and source_filename; a DB-side
// default on etl_created_at lets it go unspecified the same way.
func (d Dialect) CreateTargetTableSQL(tableName string, src config.SourceSpec) string {
	var cols []string
	for _, fs := range src.Model {
		cols = append(cols, fmt.Sprintf("%s %s", d.QuoteIdent(fs.Name), d.ColumnType(fs)))
	}
	cols = append(cols,
		fmt.Sprintf("%s %s", d.QuoteIdent("etl_row_hash"), d.rowHashType()),
		fmt.Sprintf("%s %s", d.QuoteIdent("source_filename"), d.textType()),
		fmt.Sprintf("%s BIGINT", d.QuoteIdent("run_log_id")),
		fmt.Sprintf("%s %s DEFAULT %s", d.QuoteIdent("etl_created_at"), d.datetimeType(), d.currentTimestampDefault()),
		fmt.Sprintf("%s %s", d.QuoteIdent("etl_updated_at"), d.datetimeType()),
	)

	grainQuoted := make([]string, len(src.Grain))
	for i, g := range src.Grain {
		grainQuoted[i] = d.QuoteIdent(g)
	}
	cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(grainQuoted, ", ")))

	return d.CreateTableSQL(tableName, strings.Join(cols, ",\n  "))
}

// IndexName is the secondary index spec §6 requires on every target
// table's source_filename column.
func IndexName(tableName string) string {
	return "idx_" + tableName + "_source_filename"
}

// CreateTargetIndexSQL renders a plain (non-idempotent) CREATE INDEX for
// the target table's source_filename index. Callers must check
// IndexExistsSQL first: Postgres/SQLite support `IF NOT EXISTS` on
// CREATE INDEX but MySQL never does and SQL Server needs the same
// sys.indexes guard CreateTableSQL needs for tables, so the existence
// check is done once, in Go, the same way for all four dialects instead
// of four different SQL spellings of the same guard.
func (d Dialect) CreateTargetIndexSQL(tableName string) string {
	return fmt.Sprintf("CREATE INDEX %s ON %s (%s)",
		d.QuoteIdent(IndexName(tableName)), d.QuoteIdent(tableName), d.QuoteIdent("source_filename"))
}

// IndexExistsSQL returns a COUNT query reporting whether indexName already
// exists, so CreateTargetIndexSQL can be skipped on a rerun.
func (d Dialect) IndexExistsSQL(indexName string) string {
	switch d {
	case Postgres:
		return fmt.Sprintf("SELECT COUNT(*) FROM pg_indexes WHERE indexname = '%s'", indexName)
	case MySQL:
		return fmt.Sprintf("SELECT COUNT(*) FROM information_schema.statistics WHERE table_schema = DATABASE() AND index_name = '%s'", indexName)
	case SQLServer:
		return fmt.Sprintf("SELECT COUNT(*) FROM sys.indexes WHERE name = '%s'", indexName)
	default: // SQLite
		return fmt.Sprintf("SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name='%s'", indexName)
	}
}

func (d Dialect) rowHashType() string {
	switch d {
	case Postgres:
		return "BYTEA"
	case SQLServer:
		return "VARBINARY(8)"
	default:
		return "BLOB"
	}
}

// DropStageTableSQL renders the DDL that tears down a finished file's
// staging table (spec §4.9 step "cleanup": stage tables never outlive the
// file that created them).
func (d Dialect) DropStageTableSQL(tableName string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s", d.QuoteIdent(tableName))
}

// GrainWarning returns a non-empty advisory string when grain declares
// more identifying columns than is typical; it is logged, never an error
// (spec §4.1 Open Question: ">3 grain columns is a smell, not a failure").
func GrainWarning(src config.SourceSpec) string {
	if len(src.Grain) > 3 {
		return fmt.Sprintf("source %q declares %d grain columns; consider whether a narrower natural key exists", src.Name, len(src.Grain))
	}
	return ""
}
