package catalog

import (
	"database/sql"
	"fmt"
	"os"
	"regexp"
	"strings"

	_ "modernc.org/sqlite"
)

const DefaultTable = "sku_weights"

var tableNameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// LoadSQLite reads sku, item_weight and bin_weight from table.
func LoadSQLite(path, table string) (*Catalog, error) {
	table = strings.TrimSpace(table)
	if table == "" {
		table = DefaultTable
	}
	if !tableNameRegex.MatchString(table) {
		return nil, fmt.Errorf("%w: invalid table name %q", ErrLoad, table)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrLoad, path, err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrLoad, path, err)
	}
	defer db.Close()

	rows, err := db.Query(fmt.Sprintf("SELECT sku, item_weight, bin_weight FROM %s", table))
	if err != nil {
		return nil, fmt.Errorf("%w: query %s: %v", ErrLoad, path, err)
	}
	defer rows.Close()

	c := New(path, nil)
	for rows.Next() {
		var (
			sku  sql.NullString
			item sql.NullFloat64
			bin  sql.NullFloat64
		)
		if err := rows.Scan(&sku, &item, &bin); err != nil {
			return nil, fmt.Errorf("%w: scan %s: %v", ErrLoad, path, err)
		}
		key := strings.TrimSpace(sku.String)
		if !sku.Valid || key == "" {
			continue
		}
		if !item.Valid || !bin.Valid {
			return nil, fmt.Errorf("%w: %s: sku %q has empty weights", ErrLoad, path, key)
		}
		c.add(Entry{SKU: key, ItemWeightGrams: item.Float64, BinWeightGrams: bin.Float64})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrLoad, path, err)
	}

	if c.Len() == 0 {
		return nil, fmt.Errorf("%w: %s table %s has no rows", ErrLoad, path, table)
	}
	return c, nil
}
