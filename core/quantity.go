package core

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

var ErrInvalidCatalogEntry = errors.New("invalid catalog entry")

// QuantityResult is the outcome of one counting request.
type QuantityResult struct {
	SKU              string
	TotalWeightGrams float64
	Quantity         int
}

// ComputeQuantity returns round((total-bin)/item). Halves round to even.
func ComputeQuantity(total, item, bin float64) (int, error) {
	if item <= 0 || math.IsNaN(item) || math.IsInf(item, 0) {
		return 0, fmt.Errorf("%w: item weight %v", ErrInvalidCatalogEntry, item)
	}
	if math.IsNaN(bin) || math.IsInf(bin, 0) {
		return 0, fmt.Errorf("%w: bin weight %v", ErrInvalidCatalogEntry, bin)
	}
	if math.IsNaN(total) || math.IsInf(total, 0) {
		return 0, fmt.Errorf("total weight %v is not finite", total)
	}

	net := decimal.NewFromFloat(total).Sub(decimal.NewFromFloat(bin))
	q := net.Div(decimal.NewFromFloat(item)).RoundBank(0)
	return int(q.IntPart()), nil
}

func NewQuantityResult(sku string, total, item, bin float64) (QuantityResult, error) {
	q, err := ComputeQuantity(total, item, bin)
	if err != nil {
		return QuantityResult{}, err
	}
	return QuantityResult{SKU: sku, TotalWeightGrams: total, Quantity: q}, nil
}
