package catalog

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, data string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(data), 0o644))
	return p
}

func TestLoadCSV(t *testing.T) {
	p := writeFile(t, "sku_weights.csv", "SKU,ItemWeight,BinWeight\nSKU123,10.0,50.0\nBOLT-M6,2.35,312.75\n")

	c, err := Load(p, "")
	require.NoError(t, err)
	require.Equal(t, 2, c.Len())
	require.Equal(t, []string{"SKU123", "BOLT-M6"}, c.SKUs())

	e, ok := c.Lookup("SKU123")
	require.True(t, ok)
	require.Equal(t, Entry{SKU: "SKU123", ItemWeightGrams: 10, BinWeightGrams: 50}, e)
}

func TestLookupIsExactAndCaseSensitive(t *testing.T) {
	c := New("test", []Entry{{SKU: "SKU123", ItemWeightGrams: 10, BinWeightGrams: 50}})

	_, ok := c.Lookup("UNKNOWN")
	require.False(t, ok)
	_, ok = c.Lookup("sku123")
	require.False(t, ok)
	_, ok = c.Lookup("SKU12")
	require.False(t, ok)
}

func TestReadCSVHeaderVariantsAndExtraColumns(t *testing.T) {
	data := "\ufeffName, sku , Item Weight,bin_weight\nWidget,W-1,1.5,20\n,,,\nGadget,  ,2,3\n"
	c, err := ReadCSV(strings.NewReader(data), "inline")
	require.NoError(t, err)
	require.Equal(t, 1, c.Len())

	e, ok := c.Lookup("W-1")
	require.True(t, ok)
	require.Equal(t, 1.5, e.ItemWeightGrams)
	require.Equal(t, 20.0, e.BinWeightGrams)
}

func TestReadCSVFirstDuplicateWins(t *testing.T) {
	data := "SKU,ItemWeight,BinWeight\nA,1,10\nA,2,20\n"
	c, err := ReadCSV(strings.NewReader(data), "inline")
	require.NoError(t, err)

	e, ok := c.Lookup("A")
	require.True(t, ok)
	require.Equal(t, 1.0, e.ItemWeightGrams)
}

func TestLoadCSVErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "empty", data: ""},
		{name: "header-only", data: "SKU,ItemWeight,BinWeight\n"},
		{name: "missing-column", data: "SKU,ItemWeight\nA,1\n"},
		{name: "bad-number", data: "SKU,ItemWeight,BinWeight\nA,abc,1\n"},
		{name: "empty-weight", data: "SKU,ItemWeight,BinWeight\nA,1,\n"},
		{name: "broken-quote", data: "SKU,ItemWeight,BinWeight\n\"A,1,2\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := writeFile(t, "sku_weights.csv", tc.data)
			_, err := LoadCSV(p)
			require.ErrorIs(t, err, ErrLoad)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.csv"), "")
	require.ErrorIs(t, err, ErrLoad)

	_, err = Load(filepath.Join(t.TempDir(), "nope.db"), "")
	require.ErrorIs(t, err, ErrLoad)

	_, err = Load("  ", "")
	require.ErrorIs(t, err, ErrLoad)
}

func TestLoadSQLite(t *testing.T) {
	p := filepath.Join(t.TempDir(), "catalog.db")
	db, err := sql.Open("sqlite", p)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE sku_weights (sku TEXT, item_weight REAL, bin_weight REAL)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO sku_weights VALUES ('SKU123', 10.0, 50.0), ('NUT-M8', 4.2, 120.5), ('', 1, 1)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	c, err := Load(p, "")
	require.NoError(t, err)
	require.Equal(t, 2, c.Len())

	e, ok := c.Lookup("NUT-M8")
	require.True(t, ok)
	require.Equal(t, 4.2, e.ItemWeightGrams)
	require.Equal(t, 120.5, e.BinWeightGrams)
}

func TestLoadSQLiteRejectsBadTable(t *testing.T) {
	p := filepath.Join(t.TempDir(), "catalog.db")
	db, err := sql.Open("sqlite", p)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE sku_weights (sku TEXT, item_weight REAL, bin_weight REAL)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = LoadSQLite(p, "sku_weights; DROP TABLE x")
	require.ErrorIs(t, err, ErrLoad)

	_, err = LoadSQLite(p, "")
	require.ErrorIs(t, err, ErrLoad)

	_, err = LoadSQLite(p, "missing_table")
	require.ErrorIs(t, err, ErrLoad)
}
