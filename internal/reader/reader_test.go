package reader

import (
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fileloader/internal/config"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

func writeGzFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, os.WriteFile(p, buf.Bytes(), 0644))
	return p
}

func csvSource() config.SourceSpec {
	return config.SourceSpec{
		Name:       "orders",
		FormatKind: config.FormatDelimited,
		Model: []config.FieldSpec{
			{Name: "order_id", SemanticType: config.TypeInt},
			{Name: "amount", SemanticType: config.TypeDecimal},
		},
	}
}

func TestDelimited_HappyPath(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "orders.csv", "order_id,amount\n1,9.99\n2,4.50\n")

	r, err := OpenDelimited(p, csvSource())
	require.NoError(t, err)
	defer r.Close()

	rec, ok, err := r.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1", rec["order_id"])
	assert.Equal(t, "9.99", rec["amount"])

	_, ok, err = r.Next()
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = r.Next()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDelimited_MissingColumns(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "orders.csv", "order_id\n1\n")

	_, err := OpenDelimited(p, csvSource())
	require.Error(t, err)
	var missing *MissingColumnsError
	require.ErrorAs(t, err, &missing)
	assert.True(t, missing.Missing["amount"])
}

func TestDelimited_MissingHeader(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "empty.csv", "")

	_, err := OpenDelimited(p, csvSource())
	require.Error(t, err)
	var missing *MissingHeaderError
	require.ErrorAs(t, err, &missing)
}

func TestDelimited_Gzip(t *testing.T) {
	dir := t.TempDir()
	p := writeGzFile(t, dir, "orders.csv.gz", "order_id,amount\n7,1.00\n")

	r, err := OpenDelimited(p, csvSource())
	require.NoError(t, err)
	defer r.Close()

	rec, ok, err := r.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "7", rec["order_id"])
}

func TestDelimited_SkipRows(t *testing.T) {
	dir := t.TempDir()
	src := csvSource()
	src.SkipRows = 1
	p := writeFile(t, dir, "orders.csv", "# generated report\norder_id,amount\n3,2.00\n")

	r, err := OpenDelimited(p, src)
	require.NoError(t, err)
	defer r.Close()

	rec, ok, err := r.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "3", rec["order_id"])
}

func TestDelimited_CustomDelimiter(t *testing.T) {
	dir := t.TempDir()
	src := csvSource()
	src.Delimiter = "|"
	p := writeFile(t, dir, "orders.psv", "order_id|amount\n5|3.25\n")

	r, err := OpenDelimited(p, src)
	require.NoError(t, err)
	defer r.Close()

	rec, _, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "5", rec["order_id"])
}

func spreadsheetDateSource() config.SourceSpec {
	return config.SourceSpec{
		Name:       "shipments",
		FormatKind: config.FormatSpreadsheet,
		Model: []config.FieldSpec{
			{Name: "ship_date", SemanticType: config.TypeDate},
		},
	}
}

func TestSpreadsheet_ExcelSerialDateConversion(t *testing.T) {
	sr := &SpreadsheetReader{
		dateAlias: map[string]config.SemanticType{"ship_date": config.TypeDate},
	}
	// Serial 45658 is 2025-01-01 under the 1899-12-30 epoch convention.
	got := sr.coerceExcelDate("45658", config.TypeDate)
	assert.Equal(t, "2025-01-01", got)
}

func TestSpreadsheet_NonNumericDatePassesThrough(t *testing.T) {
	sr := &SpreadsheetReader{
		dateAlias: map[string]config.SemanticType{"ship_date": config.TypeDate},
	}
	got := sr.coerceExcelDate("2025-01-01", config.TypeDate)
	assert.Equal(t, "2025-01-01", got)
}

func documentSource(arrayPath string) config.SourceSpec {
	return config.SourceSpec{
		Name:       "events",
		FormatKind: config.FormatDocument,
		ArrayPath:  arrayPath,
		Model: []config.FieldSpec{
			{Name: "id", SemanticType: config.TypeInt},
			{Name: "user_name", SemanticType: config.TypeString},
		},
	}
}

func TestDocument_FlattensNestedObjects(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "events.json", `{
		"results": [
			{"id": 1, "user": {"name": "ann"}},
			{"id": 2, "user": {"name": "bo"}}
		]
	}`)

	src := documentSource("results")
	src.Model = []config.FieldSpec{
		{Name: "id", SemanticType: config.TypeInt},
		{Name: "user_name", SemanticType: config.TypeString, Alias: "user_name"},
	}

	r, err := OpenDocument(p, src)
	require.NoError(t, err)
	defer r.Close()

	rec, ok, err := r.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ann", rec["user_name"])
}

func TestDocument_ScalarArrayJoinsWithUnderscore(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "events.json", `[{"id": 1, "user_name": "ann", "tags": ["a", "b"]}]`)

	src := documentSource("")
	src.Model = []config.FieldSpec{
		{Name: "id", SemanticType: config.TypeInt},
		{Name: "user_name", SemanticType: config.TypeString},
	}

	r, err := OpenDocument(p, src)
	require.NoError(t, err)
	defer r.Close()

	rec, ok, err := r.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a_b", rec["tags"])
}

func TestDocument_MissingArrayPath(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "events.json", `{"other": []}`)

	_, err := OpenDocument(p, documentSource("results"))
	require.Error(t, err)
}
