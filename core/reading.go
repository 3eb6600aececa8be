package core

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var weightRegex = regexp.MustCompile(`[+-]?\d+\.\d+`)

// Reading is one parsed weight sample taken from the scale stream.
type Reading struct {
	Value      float64
	ObservedAt time.Time
}

// ParseWeight extracts the first signed decimal number from a raw scale line.
// Bytes outside the ASCII range are dropped before matching.
func ParseWeight(raw []byte) (float64, bool) {
	return ParseWeightString(decodeASCII(raw))
}

func ParseWeightString(raw string) (float64, bool) {
	line := strings.TrimSpace(raw)
	if line == "" {
		return 0, false
	}

	m := weightRegex.FindString(line)
	if m == "" {
		return 0, false
	}

	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func decodeASCII(raw []byte) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, c := range raw {
		if c < 0x80 {
			b.WriteByte(c)
		}
	}
	return b.String()
}
