package dialect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fileloader/internal/config"
)

func TestFromURL(t *testing.T) {
	cases := map[string]Dialect{
		"postgres://u:p@host/db":   Postgres,
		"postgresql://u:p@host/db": Postgres,
		"mysql://u:p@host/db":      MySQL,
		"sqlserver://u:p@host/db":  SQLServer,
		"file:./local.db":          SQLite,
		"./local.sqlite":           SQLite,
	}
	for url, want := range cases {
		got, err := FromURL(url)
		require.NoError(t, err, url)
		assert.Equal(t, want, got, url)
	}
}

func TestFromURL_Unknown(t *testing.T) {
	_, err := FromURL("redis://host")
	require.Error(t, err)
}

func TestStageTableName_Sanitizes(t *testing.T) {
	assert.Equal(t, "stage_sales_2024_01", StageTableName("sales-2024.01"))
	assert.Equal(t, "stage_t_123abc", StageTableName("123abc"))
	assert.Equal(t, "stage_ab_cd", StageTableName("ab cd"))
}

func TestBatchSize_NonSQLServerUsesConfigured(t *testing.T) {
	src := config.SourceSpec{Model: make([]config.FieldSpec, 10)}
	assert.Equal(t, 5000, Postgres.BatchSize(src, 5000))
}

func TestBatchSize_SQLServerCapsAt1000Params(t *testing.T) {
	// 8 declared columns + 2 bookkeeping columns = 10 column_count.
	src := config.SourceSpec{Model: make([]config.FieldSpec, 8)}
	got := SQLServer.BatchSize(src, 5000)
	assert.Equal(t, 99, got) // (1000/10)-1 = 99
}

func TestBatchSize_SQLServerNeverBelowOne(t *testing.T) {
	src := config.SourceSpec{Model: make([]config.FieldSpec, 500)}
	got := SQLServer.BatchSize(src, 5000)
	assert.Equal(t, 1, got)
}

func TestBatchSize_SQLServerRespectsSmallerConfigured(t *testing.T) {
	src := config.SourceSpec{Model: make([]config.FieldSpec, 8)}
	got := SQLServer.BatchSize(src, 10)
	assert.Equal(t, 10, got)
}

func TestGrainWarning(t *testing.T) {
	src := config.SourceSpec{Name: "wide", Grain: []string{"a", "b", "c", "d"}}
	assert.NotEmpty(t, GrainWarning(src))

	narrow := config.SourceSpec{Name: "narrow", Grain: []string{"a", "b"}}
	assert.Empty(t, GrainWarning(narrow))
}

func TestMergeSQL_PostgresUsesOnConflict(t *testing.T) {
	src := config.SourceSpec{
		Model: []config.FieldSpec{{Name: "order_id"}, {Name: "amount"}},
		Grain: []string{"order_id"},
	}
	sql := Postgres.MergeSQL("orders", "stage_orders_csv", src)
	assert.Contains(t, sql, "ON CONFLICT")
	assert.Contains(t, sql, "IS DISTINCT FROM")
}

func TestMergeSQL_MySQLUsesOnDuplicateKey(t *testing.T) {
	src := config.SourceSpec{
		Model: []config.FieldSpec{{Name: "order_id"}, {Name: "amount"}},
		Grain: []string{"order_id"},
	}
	sql := MySQL.MergeSQL("orders", "stage_orders_csv", src)
	assert.Contains(t, sql, "ON DUPLICATE KEY UPDATE")
}

func TestMergeSQL_SQLServerUsesMergeStatement(t *testing.T) {
	src := config.SourceSpec{
		Model: []config.FieldSpec{{Name: "order_id"}, {Name: "amount"}},
		Grain: []string{"order_id"},
	}
	sql := SQLServer.MergeSQL("orders", "stage_orders_csv", src)
	assert.Contains(t, sql, "MERGE INTO")
	assert.Contains(t, sql, "WHEN NOT MATCHED")
}

func TestMergeSQL_SQLiteUsesOnConflict(t *testing.T) {
	src := config.SourceSpec{
		Model: []config.FieldSpec{{Name: "order_id"}, {Name: "amount"}},
		Grain: []string{"order_id"},
	}
	sql := SQLite.MergeSQL("orders", "stage_orders_csv", src)
	assert.Contains(t, sql, "ON CONFLICT")
}

func TestCreateTableSQL_NonSQLServerUsesNativeIfNotExists(t *testing.T) {
	for _, d := range []Dialect{Postgres, MySQL, SQLite} {
		sql := d.CreateTableSQL("orders", `"id" BIGINT`)
		assert.Contains(t, sql, "CREATE TABLE IF NOT EXISTS", d)
	}
}

func TestCreateTableSQL_SQLServerUsesSysTablesGuard(t *testing.T) {
	sql := SQLServer.CreateTableSQL("orders", "[id] BIGINT")
	assert.Contains(t, sql, "IF NOT EXISTS (SELECT 1 FROM sys.tables WHERE name = 'orders')")
	assert.Contains(t, sql, "CREATE TABLE [orders]")
}

func TestCreateTargetTableSQL_IncludesModelAndBookkeepingColumns(t *testing.T) {
	src := config.SourceSpec{
		Model: []config.FieldSpec{{Name: "order_id", SemanticType: config.TypeInt}, {Name: "amount", SemanticType: config.TypeDecimal}},
		Grain: []string{"order_id"},
	}
	sql := Postgres.CreateTargetTableSQL("orders", src)
	assert.Contains(t, sql, "CREATE TABLE IF NOT EXISTS")
	assert.Contains(t, sql, `"order_id"`)
	assert.Contains(t, sql, `"etl_row_hash"`)
	assert.Contains(t, sql, `"source_filename"`)
	assert.Contains(t, sql, `"run_log_id"`)
	assert.Contains(t, sql, `"etl_created_at"`)
	assert.Contains(t, sql, `"etl_updated_at"`)
	assert.Contains(t, sql, `PRIMARY KEY ("order_id")`)
}

func TestCreateTargetIndexSQL_TargetsSourceFilename(t *testing.T) {
	sql := Postgres.CreateTargetIndexSQL("orders")
	assert.Equal(t, `CREATE INDEX "idx_orders_source_filename" ON "orders" ("source_filename")`, sql)
}

func TestIndexExistsSQL_PerDialect(t *testing.T) {
	assert.Contains(t, Postgres.IndexExistsSQL("idx_x"), "pg_indexes")
	assert.Contains(t, MySQL.IndexExistsSQL("idx_x"), "information_schema.statistics")
	assert.Contains(t, SQLServer.IndexExistsSQL("idx_x"), "sys.indexes")
	assert.Contains(t, SQLite.IndexExistsSQL("idx_x"), "sqlite_master")
}

func TestAutoIncrementPK_PerDialect(t *testing.T) {
	assert.Contains(t, Postgres.AutoIncrementPK(), "BIGSERIAL")
	assert.Contains(t, MySQL.AutoIncrementPK(), "AUTO_INCREMENT")
	assert.Contains(t, SQLServer.AutoIncrementPK(), "IDENTITY")
	assert.Contains(t, SQLite.AutoIncrementPK(), "AUTOINCREMENT")
}

func TestJSONColumnType_FallsBackToTextOnSQLServer(t *testing.T) {
	assert.Equal(t, "JSONB", Postgres.JSONColumnType())
	assert.Equal(t, "JSON", MySQL.JSONColumnType())
	assert.Equal(t, "NVARCHAR(MAX)", SQLServer.JSONColumnType())
	assert.Equal(t, "TEXT", SQLite.JSONColumnType())
}
