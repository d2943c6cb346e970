package sourceregistry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fileloader/internal/config"
)

func specs() []config.SourceSpec {
	return []config.SourceSpec{
		{Name: "sales", FilePattern: "sales_*.csv"},
		{Name: "sales_alt", FilePattern: "SALES_*.CSV"},
		{Name: "inventory", FilePattern: "inventory_*.xlsx"},
	}
}

func TestMatch_SingleMatch(t *testing.T) {
	reg := New([]config.SourceSpec{specs()[2]})
	src, err := reg.Match("inventory_2024.xlsx")
	require.NoError(t, err)
	assert.Equal(t, "inventory", src.Name)
}

func TestMatch_CaseInsensitive(t *testing.T) {
	reg := New([]config.SourceSpec{specs()[2]})
	src, err := reg.Match("INVENTORY_2024.XLSX")
	require.NoError(t, err)
	assert.Equal(t, "inventory", src.Name)
}

func TestMatch_NoMatch(t *testing.T) {
	reg := New(specs())
	_, err := reg.Match("unknown_file.json")
	require.Error(t, err)
	var noMatch *ErrNoMatch
	require.ErrorAs(t, err, &noMatch)
}

func TestMatch_Ambiguous(t *testing.T) {
	reg := New(specs())
	_, err := reg.Match("sales_2024.csv")
	require.Error(t, err)
	var ambiguous *ErrAmbiguous
	require.ErrorAs(t, err, &ambiguous)
	assert.ElementsMatch(t, []string{"sales", "sales_alt"}, ambiguous.Matches)
}

func TestMatch_IgnoresDirectoryComponent(t *testing.T) {
	reg := New([]config.SourceSpec{specs()[2]})
	src, err := reg.Match("/intake/sub/inventory_2024.xlsx")
	require.NoError(t, err)
	assert.Equal(t, "inventory", src.Name)
}
