package core

import (
	"errors"
	"math"
	"testing"
)

func TestComputeQuantity(t *testing.T) {
	got, err := ComputeQuantity(130.0, 10.0, 50.0)
	if err != nil {
		t.Fatalf("ComputeQuantity error: %v", err)
	}
	if got != 8 {
		t.Fatalf("quantity mismatch: got=%d want=8", got)
	}
}

func TestComputeQuantityRoundTrip(t *testing.T) {
	items := []float64{0.1, 0.35, 1.7, 2.5, 12.345, 250}
	bins := []float64{0, 48.2, 312.75}
	for _, item := range items {
		for _, bin := range bins {
			for n := 1; n <= 500; n += 7 {
				total := bin + float64(n)*item
				got, err := ComputeQuantity(total, item, bin)
				if err != nil {
					t.Fatalf("ComputeQuantity(%v,%v,%v) error: %v", total, item, bin, err)
				}
				if got != n {
					t.Fatalf("round trip mismatch: item=%v bin=%v got=%d want=%d", item, bin, got, n)
				}
			}
		}
	}
}

// Exact halves round to the even neighbour.
func TestComputeQuantityHalvesRoundToEven(t *testing.T) {
	tests := []struct {
		total float64
		want  int
	}{
		{total: 75, want: 2},  // 2.5
		{total: 85, want: 4},  // 3.5
		{total: 95, want: 4},  // 4.5
		{total: 104, want: 5}, // 5.4
		{total: 106, want: 6}, // 5.6
	}
	for _, tc := range tests {
		got, err := ComputeQuantity(tc.total, 10, 50)
		if err != nil {
			t.Fatalf("ComputeQuantity error: %v", err)
		}
		if got != tc.want {
			t.Fatalf("total=%v: got=%d want=%d", tc.total, got, tc.want)
		}
	}
}

// Weights are taken at their printed decimal value, so a net weight that is an
// exact half of the item weight stays a half even where float division lands
// just above it.
func TestComputeQuantityUsesPrintedDecimals(t *testing.T) {
	total, item, bin := 50.35, 0.14, 50.0
	if f := (total - bin) / item; math.Round(f) != 3 {
		t.Fatalf("float division drifted differently: %v", f)
	}
	got, err := ComputeQuantity(total, item, bin)
	if err != nil {
		t.Fatalf("ComputeQuantity error: %v", err)
	}
	if got != 2 {
		t.Fatalf("quantity mismatch: got=%d want=2", got)
	}
}

func TestComputeQuantityBelowBinIsNegative(t *testing.T) {
	got, err := ComputeQuantity(30, 10, 50)
	if err != nil {
		t.Fatalf("ComputeQuantity error: %v", err)
	}
	if got != -2 {
		t.Fatalf("quantity mismatch: got=%d want=-2", got)
	}
}

func TestComputeQuantityRejectsBadItemWeight(t *testing.T) {
	for _, item := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		if _, err := ComputeQuantity(100, item, 10); !errors.Is(err, ErrInvalidCatalogEntry) {
			t.Fatalf("item=%v: expected ErrInvalidCatalogEntry, got %v", item, err)
		}
	}
}

func TestNewQuantityResult(t *testing.T) {
	r, err := NewQuantityResult("SKU123", 130, 10, 50)
	if err != nil {
		t.Fatalf("NewQuantityResult error: %v", err)
	}
	if r.SKU != "SKU123" || r.TotalWeightGrams != 130 || r.Quantity != 8 {
		t.Fatalf("result mismatch: %+v", r)
	}
}
