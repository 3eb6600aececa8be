package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"gscale-count/catalog"
	"gscale-count/core"
	"gscale-count/display"

	"github.com/charmbracelet/lipgloss"
)

// Sink receives structured outcomes of the counting loop and decides how to
// render them.
type Sink interface {
	Status(text string)
	Event(ev core.Event)
	Result(r core.QuantityResult, stable core.Result)
	NotFound(sku string)
	Failure(err error)
}

type multiSink []Sink

func (m multiSink) Status(text string) {
	for _, s := range m {
		s.Status(text)
	}
}

func (m multiSink) Event(ev core.Event) {
	for _, s := range m {
		s.Event(ev)
	}
}

func (m multiSink) Result(r core.QuantityResult, stable core.Result) {
	for _, s := range m {
		s.Result(r, stable)
	}
}

func (m multiSink) NotFound(sku string) {
	for _, s := range m {
		s.NotFound(sku)
	}
}

func (m multiSink) Failure(err error) {
	for _, s := range m {
		s.Failure(err)
	}
}

var (
	promptStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229"))
	infoStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	okStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	errStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
)

// consoleSink prints one line per outcome, the way an operator terminal
// without a TUI expects.
type consoleSink struct {
	out     io.Writer
	timeout string
}

func newConsoleSink(out io.Writer, policy core.Policy) *consoleSink {
	return &consoleSink{out: out, timeout: policy.Timeout.String()}
}

func (c *consoleSink) Status(text string) {
	fmt.Fprintln(c.out, infoStyle.Render(text))
}

func (c *consoleSink) Event(ev core.Event) {
	switch ev.Kind {
	case core.EventAwaitingContainer:
		fmt.Fprintln(c.out, promptStyle.Render("Please place your bin."))
	case core.EventRestart:
		fmt.Fprintln(c.out, warnStyle.Render(fmt.Sprintf("Stable weight not detected within %s, restarting...", c.timeout)))
	case core.EventStable:
		fmt.Fprintln(c.out, infoStyle.Render(fmt.Sprintf("Stable weight detected: %.3f", ev.Weight)))
	}
}

func (c *consoleSink) Result(r core.QuantityResult, _ core.Result) {
	fmt.Fprintln(c.out, okStyle.Render(fmt.Sprintf("Total weight: %.2f grams. Approximate quantity: %d pieces.", r.TotalWeightGrams, r.Quantity)))
}

func (c *consoleSink) NotFound(string) {
	fmt.Fprintln(c.out, errStyle.Render("SKU not found in the database. Please check and try again."))
}

func (c *consoleSink) Failure(err error) {
	fmt.Fprintln(c.out, errStyle.Render(failureText(err)))
}

// displaySink mirrors outcomes onto the panel state file.
type displaySink struct {
	store *display.Store
	lg    *log.Logger
}

func newDisplaySink(store *display.Store, lg *log.Logger) *displaySink {
	return &displaySink{store: store, lg: lg}
}

func (d *displaySink) show(p display.Payload) {
	if err := d.store.Show(p); err != nil && d.lg != nil {
		d.lg.Printf("display write error: %v", err)
	}
}

func (d *displaySink) Status(text string) {
	d.show(display.Status(text))
}

func (d *displaySink) Event(ev core.Event) {
	switch ev.Kind {
	case core.EventAwaitingContainer:
		d.show(display.Status("Please place your bin."))
	case core.EventRestart:
		d.show(display.Status("Not stable, restarting..."))
	}
}

func (d *displaySink) Result(r core.QuantityResult, stable core.Result) {
	d.show(display.Result(r.SKU, r.Quantity, stable.AttemptID))
}

func (d *displaySink) NotFound(sku string) {
	d.show(display.NotFound(sku))
}

func (d *displaySink) Failure(err error) {
	d.show(display.Failure(failureText(err)))
}

func failureText(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, core.ErrTransport):
		return "Unable to read from the scale."
	case errors.Is(err, core.ErrAttemptTimeout):
		return "Stable weight not detected."
	case errors.Is(err, core.ErrInvalidCatalogEntry):
		return "Catalog entry is invalid."
	case errors.Is(err, catalog.ErrNotFound):
		return "SKU not in database."
	default:
		return strings.TrimSpace(err.Error())
	}
}
