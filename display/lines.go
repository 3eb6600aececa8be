package display

import (
	"fmt"
	"strings"
)

const (
	headerCols = 12
	headerRows = 3
	valueCols  = 10
)

func Status(text string) Payload {
	return Payload{Kind: KindStatus, Line1: strings.TrimSpace(text)}
}

func Result(sku string, quantity int, attemptID string) Payload {
	q := quantity
	return Payload{
		Kind:      KindResult,
		Line1:     sku,
		Line2:     fmt.Sprintf("QTY: %d", quantity),
		SKU:       sku,
		Quantity:  &q,
		AttemptID: attemptID,
	}
}

func NotFound(sku string) Payload {
	return Payload{Kind: KindNotFound, Line1: "SKU not in database.", SKU: sku}
}

func Failure(text string) Payload {
	return Payload{Kind: KindError, Line1: strings.TrimSpace(text)}
}

// PanelRows lays a payload out for the small panel: the first line wraps over
// up to three 12-column rows, the second is cut to 10 columns.
func PanelRows(p Payload) []string {
	head := []rune(p.Line1)
	rows := make([]string, 0, headerRows+1)
	for i := 0; i < headerRows; i++ {
		start := i * headerCols
		if start >= len(head) {
			rows = append(rows, "")
			continue
		}
		end := start + headerCols
		if end > len(head) {
			end = len(head)
		}
		rows = append(rows, string(head[start:end]))
	}

	value := []rune(p.Line2)
	if len(value) > valueCols {
		value = value[:valueCols]
	}
	return append(rows, string(value))
}
