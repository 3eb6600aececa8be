package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"gscale-count/core"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type phase int

const (
	phaseEntry phase = iota
	phaseCounting
)

type (
	eventMsg     struct{ ev core.Event }
	statusMsg    string
	resultMsg    struct{ res core.QuantityResult }
	notFoundMsg  string
	failureMsg   struct{ err error }
	countDoneMsg struct{ err error }
	quitMsg      struct{}
	clockMsg     time.Time
)

// tuiSink forwards counter outcomes into the running program.
type tuiSink struct {
	p *tea.Program
}

func (s *tuiSink) send(msg tea.Msg) {
	if s.p != nil {
		s.p.Send(msg)
	}
}

func (s *tuiSink) Status(text string)                          { s.send(statusMsg(text)) }
func (s *tuiSink) Event(ev core.Event)                         { s.send(eventMsg{ev: ev}) }
func (s *tuiSink) Result(r core.QuantityResult, _ core.Result) { s.send(resultMsg{res: r}) }
func (s *tuiSink) NotFound(sku string)                         { s.send(notFoundMsg(sku)) }
func (s *tuiSink) Failure(err error)                           { s.send(failureMsg{err: err}) }

type tuiModel struct {
	ctx        context.Context
	cancel     context.CancelFunc
	counter    *counter
	sourceLine string
	policy     core.Policy

	phase      phase
	input      []rune
	sku        string
	message    string
	statusKind string

	weight    *float64
	deviation float64
	samples   int
	restarts  int
	history   []float64

	result   *core.QuantityResult
	resultAt time.Time
	fatal    error

	width  int
	height int
	now    time.Time
}

func newTUIModel(ctx context.Context, cancel context.CancelFunc, c *counter, sourceLine string) tuiModel {
	return tuiModel{
		ctx:        ctx,
		cancel:     cancel,
		counter:    c,
		sourceLine: sourceLine,
		policy:     c.policy,
		message:    "Scan the QR Code",
		statusKind: "OK",
		deviation:  math.Inf(1),
		now:        time.Now(),
		history:    make([]float64, 0, 256),
	}
}

// runTUI drives the operator loop until quit. A transport failure ends the
// program and is returned. ctx is cancelled before it returns so an in-flight
// count stops before the port is closed.
func runTUI(ctx context.Context, cancel context.CancelFunc, c *counter, ts *tuiSink, sourceLine string) error {
	defer cancel()
	m := newTUIModel(ctx, cancel, c, sourceLine)
	p := tea.NewProgram(m, tea.WithAltScreen())
	ts.p = p

	final, err := p.Run()
	if err != nil {
		return err
	}
	if fm, ok := final.(tuiModel); ok && fm.fatal != nil {
		return fm.fatal
	}
	return nil
}

func (m tuiModel) Init() tea.Cmd {
	return tea.Batch(waitForDoneCmd(m.ctx), clockTickCmd())
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case statusMsg:
		m.message = string(msg)
		m.statusKind = "OK"
		return m, nil
	case eventMsg:
		m.applyEvent(msg.ev)
		return m, nil
	case resultMsg:
		r := msg.res
		m.result = &r
		m.resultAt = m.now
		m.message = fmt.Sprintf("Total weight: %.2f grams. Approximate quantity: %d pieces.", r.TotalWeightGrams, r.Quantity)
		m.statusKind = "OK"
		return m, nil
	case notFoundMsg:
		m.result = nil
		m.message = fmt.Sprintf("SKU %q not found in the database. Please check and try again.", string(msg))
		m.statusKind = "ERROR"
		return m, nil
	case failureMsg:
		m.message = failureText(msg.err)
		m.statusKind = "ERROR"
		return m, nil
	case countDoneMsg:
		m.phase = phaseEntry
		m.sku = ""
		if msg.err != nil && errors.Is(msg.err, core.ErrTransport) {
			m.fatal = msg.err
			return m, tea.Quit
		}
		if msg.err != nil && m.ctx.Err() != nil {
			return m, tea.Quit
		}
		return m, nil
	case quitMsg:
		return m, tea.Quit
	case clockMsg:
		m.now = time.Time(msg)
		return m, clockTickCmd()
	default:
		return m, nil
	}
}

func (m tuiModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		if m.cancel != nil {
			m.cancel()
		}
		return m, tea.Quit
	}
	if m.phase != phaseEntry {
		return m, nil
	}

	switch msg.Type {
	case tea.KeyEnter:
		sku := strings.TrimSpace(string(m.input))
		if sku == "" {
			return m, nil
		}
		m.input = m.input[:0]
		m.sku = sku
		m.phase = phaseCounting
		m.weight = nil
		m.deviation = math.Inf(1)
		m.samples = 0
		m.restarts = 0
		m.history = m.history[:0]
		return m, countCmd(m.ctx, m.counter, sku)
	case tea.KeyBackspace:
		if len(m.input) > 0 {
			m.input = m.input[:len(m.input)-1]
		}
		return m, nil
	case tea.KeySpace:
		m.input = append(m.input, ' ')
		return m, nil
	case tea.KeyRunes:
		m.input = append(m.input, msg.Runes...)
		return m, nil
	}
	return m, nil
}

func (m *tuiModel) applyEvent(ev core.Event) {
	m.samples = ev.Samples
	m.restarts = ev.Restarts
	switch ev.Kind {
	case core.EventAwaitingContainer:
		w := ev.Weight
		m.weight = &w
		m.deviation = math.Inf(1)
		m.message = "Please place your bin."
		m.statusKind = "WARN"
	case core.EventSample:
		w := ev.Weight
		m.weight = &w
		m.deviation = ev.Deviation
		m.history = append(m.history, w)
		if len(m.history) > 240 {
			m.history = m.history[len(m.history)-240:]
		}
		m.message = "Counting..."
		m.statusKind = "OK"
	case core.EventRestart:
		m.deviation = math.Inf(1)
		m.message = fmt.Sprintf("Stable weight not detected within %s, restarting...", m.policy.Timeout)
		m.statusKind = "WARN"
	case core.EventStable:
		w := ev.Weight
		m.weight = &w
		m.deviation = ev.Deviation
		m.message = fmt.Sprintf("Stable weight detected: %.3f", ev.Weight)
		m.statusKind = "OK"
	}
}

func (m tuiModel) View() string {
	viewWidth, leftW, rightW := panelWidths(m.width)

	titleLine := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229")).Render("GSCALE COUNT")
	helpLine := lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("Enter: count  |  Esc / Ctrl+C: quit")
	header := renderPanel("Counting Scale", []string{titleLine, helpLine}, viewWidth, "63", "2")

	var operatorLines []string
	if m.phase == phaseEntry {
		cursor := lipgloss.NewStyle().Reverse(true).Render(" ")
		operatorLines = []string{"Enter SKU: " + string(m.input) + cursor}
	} else {
		operatorLines = []string{"Counting: " + lipgloss.NewStyle().Bold(true).Render(m.sku)}
	}
	operatorPanel := renderPanel("Operator", operatorLines, viewWidth, "69", "2")

	weight := "-- g"
	if m.weight != nil {
		weight = fmt.Sprintf("%.3f g", *m.weight)
	}
	minV, maxV := historyRange(m.history)
	trend := sparkline(m.history, 28)
	if trend == "" {
		trend = "-"
	}
	weightLine := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")).Render(weight)
	trendLine := lipgloss.NewStyle().Foreground(lipgloss.Color("112")).Render("Trend: " + trend)
	rangeLine := lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Render(fmt.Sprintf("Range: %.3f .. %.3f", minV, maxV))
	readingPanel := renderPanel("Live Reading", []string{
		weightLine,
		trendLine,
		rangeLine,
		fmt.Sprintf("Spread: %s / %.3f g", formatDeviation(m.deviation), m.policy.ThresholdGrams),
		fmt.Sprintf("Samples: %d / %d  Restarts: %d", m.samples, m.policy.MinSamples, m.restarts),
	}, leftW, "45", "3")

	qty := "--"
	resultSKU := "-"
	resultAt := "-"
	if m.result != nil {
		qty = fmt.Sprintf("QTY: %d PCS", m.result.Quantity)
		resultSKU = m.result.SKU
		resultAt = m.resultAt.Format("15:04:05")
	}
	resultPanel := renderPanel("Result", []string{
		lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229")).Render(qty),
		"SKU: " + elideMiddle(resultSKU, rightW-10),
		"At: " + resultAt,
	}, rightW, "99", "2")

	top := lipgloss.JoinHorizontal(lipgloss.Top, readingPanel, " ", resultPanel)

	statusPanel := renderPanel("System", []string{
		"State: " + renderBadge(m.statusKind),
		"Detail: " + elideMiddle(m.message, viewWidth-18),
		"Source: " + elideMiddle(m.sourceLine, viewWidth-18),
	}, viewWidth, "240", "2")

	layout := strings.Join([]string{header, "", operatorPanel, "", top, "", statusPanel}, "\n")
	return lipgloss.NewStyle().Padding(0, 1).Render(layout)
}

func countCmd(ctx context.Context, c *counter, sku string) tea.Cmd {
	return func() tea.Msg {
		_, err := c.Count(ctx, sku)
		return countDoneMsg{err: err}
	}
}

func waitForDoneCmd(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		<-ctx.Done()
		return quitMsg{}
	}
}

func clockTickCmd() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(t time.Time) tea.Msg {
		return clockMsg(t)
	})
}

// panelWidths sizes the full-width panels and the two side-by-side ones for a
// terminal w columns wide.
func panelWidths(w int) (full, left, right int) {
	if w <= 0 {
		w = 100
	}
	full = min(max(w-4, 72), 118)
	left = full * 56 / 100
	right = full - left - 1
	return full, left, right
}

// renderPanel draws a bordered box exactly width columns wide; lipgloss wraps
// lines that do not fit.
func renderPanel(title string, lines []string, width int, border, titleColor string) string {
	head := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(titleColor)).Render(title)
	body := strings.Join(append([]string{head}, lines...), "\n")
	return lipgloss.NewStyle().
		Width(width-2).
		Padding(0, 1).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(border)).
		Render(body)
}

var badgeColors = map[string][2]string{
	"OK":    {"46", "22"},
	"WARN":  {"228", "94"},
	"ERROR": {"231", "160"},
}

func renderBadge(kind string) string {
	kind = strings.ToUpper(strings.TrimSpace(kind))
	c, ok := badgeColors[kind]
	if !ok {
		kind, c = "ERROR", badgeColors["ERROR"]
	}
	return lipgloss.NewStyle().Bold(true).Padding(0, 1).
		Foreground(lipgloss.Color(c[0])).
		Background(lipgloss.Color(c[1])).
		Render(kind)
}

func historyRange(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	return slices.Min(values), slices.Max(values)
}

var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// sparkline renders the last width values scaled between their own min and max.
func sparkline(values []float64, width int) string {
	if width <= 0 || len(values) == 0 {
		return ""
	}
	values = values[max(0, len(values)-width):]
	lo, hi := historyRange(values)
	out := make([]rune, len(values))
	for i, v := range values {
		level := 0
		if hi-lo > 1e-9 {
			level = int(math.Round((v - lo) / (hi - lo) * float64(len(sparkBlocks)-1)))
		}
		out[i] = sparkBlocks[level]
	}
	return string(out)
}

func elideMiddle(text string, limit int) string {
	r := []rune(strings.TrimSpace(text))
	switch {
	case limit <= 0:
		return ""
	case len(r) <= limit:
		return string(r)
	case limit <= 5:
		return string(r[:limit])
	}
	keep := (limit - 3) / 2
	return string(r[:keep]) + "..." + string(r[len(r)-keep:])
}
