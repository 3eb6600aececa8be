package core

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Window keeps the readings observed during the last span, oldest first.
type Window struct {
	span       time.Duration
	minSamples int
	samples    []Reading
}

func NewWindow(span time.Duration, minSamples int) *Window {
	if minSamples < 1 {
		minSamples = 1
	}
	return &Window{
		span:       span,
		minSamples: minSamples,
		samples:    make([]Reading, 0, 32),
	}
}

// Add appends r and drops every sample older than now-span.
// The cutoff is taken from now, not from r.ObservedAt.
func (w *Window) Add(r Reading, now time.Time) {
	w.samples = append(w.samples, r)
	w.prune(now)
}

func (w *Window) prune(now time.Time) {
	cutoff := now.Add(-w.span)
	drop := 0
	for drop < len(w.samples) && w.samples[drop].ObservedAt.Before(cutoff) {
		drop++
	}
	if drop == 0 {
		return
	}
	n := copy(w.samples, w.samples[drop:])
	w.samples = w.samples[:n]
}

// Deviation returns max-min over the window, or +Inf while fewer than
// minSamples readings are held.
func (w *Window) Deviation() float64 {
	if len(w.samples) < w.minSamples {
		return math.Inf(1)
	}

	minV := decimal.NewFromFloat(w.samples[0].Value)
	maxV := minV
	for _, s := range w.samples[1:] {
		v := decimal.NewFromFloat(s.Value)
		if v.LessThan(minV) {
			minV = v
		}
		if v.GreaterThan(maxV) {
			maxV = v
		}
	}
	return maxV.Sub(minV).InexactFloat64()
}

func (w *Window) Clear() {
	w.samples = w.samples[:0]
}

func (w *Window) Len() int {
	return len(w.samples)
}

func (w *Window) MinSamples() int {
	return w.minSamples
}

func (w *Window) Values() []float64 {
	out := make([]float64, len(w.samples))
	for i, s := range w.samples {
		out[i] = s.Value
	}
	return out
}

func (w *Window) Last() (Reading, bool) {
	if len(w.samples) == 0 {
		return Reading{}, false
	}
	return w.samples[len(w.samples)-1], true
}
