package catalog

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	// ErrLoad wraps every failure to build a catalog from its source.
	ErrLoad     = errors.New("catalog load error")
	ErrNotFound = errors.New("sku not found")
)

// Entry holds the per-unit and container weight of one SKU, in grams.
type Entry struct {
	SKU             string
	ItemWeightGrams float64
	BinWeightGrams  float64
}

// Catalog is read-only after construction.
type Catalog struct {
	source  string
	entries map[string]Entry
	order   []string
}

func New(source string, entries []Entry) *Catalog {
	c := &Catalog{
		source:  source,
		entries: make(map[string]Entry, len(entries)),
		order:   make([]string, 0, len(entries)),
	}
	for _, e := range entries {
		c.add(e)
	}
	return c
}

// add keeps the first entry seen for a SKU.
func (c *Catalog) add(e Entry) bool {
	if e.SKU == "" {
		return false
	}
	if _, ok := c.entries[e.SKU]; ok {
		return false
	}
	c.entries[e.SKU] = e
	c.order = append(c.order, e.SKU)
	return true
}

// Lookup matches sku exactly, case included.
func (c *Catalog) Lookup(sku string) (Entry, bool) {
	if c == nil {
		return Entry{}, false
	}
	e, ok := c.entries[sku]
	return e, ok
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

func (c *Catalog) Source() string {
	if c == nil {
		return ""
	}
	return c.source
}

func (c *Catalog) SKUs() []string {
	if c == nil {
		return nil
	}
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Load picks the reader from the file extension. table is only used for
// SQLite sources.
func Load(path, table string) (*Catalog, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("%w: catalog path is empty", ErrLoad)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return LoadSQLite(path, table)
	default:
		return LoadCSV(path)
	}
}
