package main

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"

	"gscale-count/catalog"
	"gscale-count/core"
)

type skuLookup interface {
	Lookup(sku string) (catalog.Entry, bool)
}

// counter runs one counting request end to end: lookup, stable weight,
// quantity. It is not safe for concurrent use; one scale, one operator.
type counter struct {
	lookup skuLookup
	source core.LineSource
	policy core.Policy
	sink   Sink
	lg     *log.Logger
	opts   []core.Option
}

func newCounter(lookup skuLookup, source core.LineSource, policy core.Policy, sink Sink, lg *log.Logger) *counter {
	return &counter{lookup: lookup, source: source, policy: policy, sink: sink, lg: lg}
}

func (c *counter) Count(ctx context.Context, sku string) (core.QuantityResult, error) {
	sku = strings.TrimSpace(sku)
	entry, ok := c.lookup.Lookup(sku)
	if !ok {
		c.lg.Printf("lookup miss: sku=%q", sku)
		c.sink.NotFound(sku)
		return core.QuantityResult{}, fmt.Errorf("%w: %q", catalog.ErrNotFound, sku)
	}
	c.lg.Printf("lookup ok: sku=%q item=%.3f bin=%.3f", sku, entry.ItemWeightGrams, entry.BinWeightGrams)
	c.sink.Status("Counting...")

	opts := make([]core.Option, 0, len(c.opts)+1)
	opts = append(opts, c.opts...)
	opts = append(opts, core.WithObserver(c.observe))

	stable, err := core.NewStabilizer(c.source, c.policy, opts...).Run(ctx)
	if err != nil {
		if ctx.Err() != nil {
			c.lg.Printf("attempt cancelled: sku=%q", sku)
			return core.QuantityResult{}, err
		}
		c.lg.Printf("attempt failed: sku=%q err=%v", sku, err)
		c.sink.Failure(err)
		return core.QuantityResult{}, err
	}

	res, err := core.NewQuantityResult(sku, stable.Weight, entry.ItemWeightGrams, entry.BinWeightGrams)
	if err != nil {
		c.lg.Printf("quantity error: sku=%q err=%v", sku, err)
		c.sink.Failure(err)
		return core.QuantityResult{}, err
	}

	c.lg.Printf("counted: attempt=%s sku=%q total=%.3f qty=%d samples=%d restarts=%d elapsed=%s",
		stable.AttemptID, sku, res.TotalWeightGrams, res.Quantity, stable.Samples, stable.Restarts, stable.Elapsed)
	c.sink.Result(res, stable)
	return res, nil
}

func (c *counter) observe(ev core.Event) {
	switch ev.Kind {
	case core.EventSample:
		c.lg.Printf("sample: attempt=%s weight=%.3f dev=%s n=%d", ev.AttemptID, ev.Weight, formatDeviation(ev.Deviation), ev.Samples)
	case core.EventParseMiss:
		c.lg.Printf("parse miss: raw=%q", ev.Raw)
	case core.EventAwaitingContainer:
		c.lg.Printf("awaiting container: attempt=%s weight=%.3f", ev.AttemptID, ev.Weight)
	case core.EventRestart:
		c.lg.Printf("restart: attempt=%s restarts=%d", ev.AttemptID, ev.Restarts)
	case core.EventTimedOut:
		c.lg.Printf("timed out: attempt=%s restarts=%d", ev.AttemptID, ev.Restarts)
	case core.EventStable:
		c.lg.Printf("stable: attempt=%s weight=%.3f dev=%s n=%d", ev.AttemptID, ev.Weight, formatDeviation(ev.Deviation), ev.Samples)
	case core.EventIOError:
		c.lg.Printf("transport error: attempt=%s err=%v", ev.AttemptID, ev.Err)
	}
	c.sink.Event(ev)
}

func formatDeviation(d float64) string {
	if math.IsInf(d, 1) {
		return "inf"
	}
	return fmt.Sprintf("%.4f", d)
}
