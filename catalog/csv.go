package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

var (
	skuColumns        = []string{"sku", "itemcode", "id"}
	itemWeightColumns = []string{"itemweight", "unitweight"}
	binWeightColumns  = []string{"binweight", "containerweight"}
)

func LoadCSV(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrLoad, path, err)
	}
	defer f.Close()

	c, err := ReadCSV(f, path)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ReadCSV expects a header row naming the SKU, ItemWeight and BinWeight
// columns. Header matching ignores case, spaces and underscores.
func ReadCSV(r io.Reader, source string) (*Catalog, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %s is empty", ErrLoad, source)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read header of %s: %v", ErrLoad, source, err)
	}

	skuIdx, err := columnIndex(header, skuColumns)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLoad, source, err)
	}
	itemIdx, err := columnIndex(header, itemWeightColumns)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLoad, source, err)
	}
	binIdx, err := columnIndex(header, binWeightColumns)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLoad, source, err)
	}

	c := New(source, nil)
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%w: %s line %d: %v", ErrLoad, source, line, err)
		}
		if isBlankRecord(rec) {
			continue
		}

		sku := field(rec, skuIdx)
		if sku == "" {
			continue
		}
		item, err := parseGrams(field(rec, itemIdx))
		if err != nil {
			return nil, fmt.Errorf("%w: %s line %d: item weight: %v", ErrLoad, source, line, err)
		}
		bin, err := parseGrams(field(rec, binIdx))
		if err != nil {
			return nil, fmt.Errorf("%w: %s line %d: bin weight: %v", ErrLoad, source, line, err)
		}
		c.add(Entry{SKU: sku, ItemWeightGrams: item, BinWeightGrams: bin})
	}

	if c.Len() == 0 {
		return nil, fmt.Errorf("%w: %s has no rows", ErrLoad, source)
	}
	return c, nil
}

func columnIndex(header []string, names []string) (int, error) {
	for i, h := range header {
		n := normalizeColumn(h)
		for _, want := range names {
			if n == want {
				return i, nil
			}
		}
	}
	return -1, fmt.Errorf("missing column %q", names[0])
}

func normalizeColumn(v string) string {
	v = strings.TrimPrefix(v, "\ufeff")
	repl := strings.NewReplacer(" ", "", "_", "", "-", "")
	return strings.ToLower(repl.Replace(strings.TrimSpace(v)))
}

func field(rec []string, idx int) string {
	if idx < 0 || idx >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[idx])
}

func isBlankRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func parseGrams(v string) (float64, error) {
	if v == "" {
		return 0, errors.New("empty value")
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", v)
	}
	return f, nil
}
