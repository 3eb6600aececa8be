package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNoData is returned by a LineSource when the read slice elapsed
	// without a complete line. It is not a failure.
	ErrNoData = errors.New("no data within read timeout")

	ErrTransport      = errors.New("scale transport error")
	ErrAttemptTimeout = errors.New("stable weight not detected")
)

// LineSource delivers raw scale lines, blocking at most timeout per call.
type LineSource interface {
	ReadLine(timeout time.Duration) ([]byte, error)
}

type State int

const (
	StateAwaitingContainer State = iota
	StateAccumulating
	StateStable
	StateTimedOut
	StateIOError
)

func (s State) String() string {
	switch s {
	case StateAwaitingContainer:
		return "awaiting_container"
	case StateAccumulating:
		return "accumulating"
	case StateStable:
		return "stable"
	case StateTimedOut:
		return "timed_out"
	case StateIOError:
		return "io_error"
	default:
		return "unknown"
	}
}

// Policy is the stability configuration of one deployment.
type Policy struct {
	ThresholdGrams float64
	MinSamples     int
	ReadDuration   time.Duration
	Timeout        time.Duration
	FloorGrams     float64
	ReadTimeout    time.Duration
	// MaxRestarts bounds timeout restarts per attempt; 0 retries forever.
	MaxRestarts int
}

func DefaultPolicy() Policy {
	return Policy{
		ThresholdGrams: 0.01,
		MinSamples:     3,
		ReadDuration:   3 * time.Second,
		Timeout:        5 * time.Second,
		FloorGrams:     5.0,
		ReadTimeout:    1 * time.Second,
		MaxRestarts:    0,
	}
}

func (p Policy) Validate() error {
	switch {
	case p.ThresholdGrams <= 0:
		return fmt.Errorf("threshold must be > 0, got %v", p.ThresholdGrams)
	case p.MinSamples < 1:
		return fmt.Errorf("min samples must be >= 1, got %d", p.MinSamples)
	case p.ReadDuration <= 0:
		return fmt.Errorf("read duration must be > 0, got %s", p.ReadDuration)
	case p.Timeout <= 0:
		return fmt.Errorf("timeout must be > 0, got %s", p.Timeout)
	case p.ReadTimeout <= 0:
		return fmt.Errorf("read timeout must be > 0, got %s", p.ReadTimeout)
	case p.FloorGrams < 0:
		return fmt.Errorf("floor must be >= 0, got %v", p.FloorGrams)
	case p.MaxRestarts < 0:
		return fmt.Errorf("max restarts must be >= 0, got %d", p.MaxRestarts)
	}
	return nil
}

type EventKind int

const (
	EventAwaitingContainer EventKind = iota
	EventSample
	EventParseMiss
	EventRestart
	EventStable
	EventTimedOut
	EventIOError
)

func (k EventKind) String() string {
	switch k {
	case EventAwaitingContainer:
		return "awaiting_container"
	case EventSample:
		return "sample"
	case EventParseMiss:
		return "parse_miss"
	case EventRestart:
		return "restart"
	case EventStable:
		return "stable"
	case EventTimedOut:
		return "timed_out"
	case EventIOError:
		return "io_error"
	default:
		return "unknown"
	}
}

// Event describes one step of an attempt for presentation layers.
type Event struct {
	Kind      EventKind
	AttemptID string
	State     State
	Weight    float64
	Deviation float64
	Samples   int
	Restarts  int
	Raw       string
	Err       error
	At        time.Time
}

type Result struct {
	AttemptID string
	Weight    float64
	Deviation float64
	Samples   int
	Restarts  int
	Elapsed   time.Duration
}

type Option func(*Stabilizer)

func WithClock(now func() time.Time) Option {
	return func(s *Stabilizer) {
		if now != nil {
			s.now = now
		}
	}
}

func WithObserver(fn func(Event)) Option {
	return func(s *Stabilizer) {
		s.observe = fn
	}
}

// Stabilizer turns a stream of noisy scale lines into one settled weight.
// It does not own the source; the caller opens and closes the port.
type Stabilizer struct {
	src     LineSource
	policy  Policy
	now     func() time.Time
	observe func(Event)

	attemptID   string
	state       State
	window      *Window
	windowStart time.Time
	restarts    int
}

func NewStabilizer(src LineSource, policy Policy, opts ...Option) *Stabilizer {
	s := &Stabilizer{
		src:    src,
		policy: policy,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Stabilizer) State() State {
	return s.state
}

func (s *Stabilizer) Window() *Window {
	return s.window
}

// Run blocks until a stable weight is found, the context is cancelled, the
// transport fails, or the restart limit is exceeded.
func (s *Stabilizer) Run(ctx context.Context) (Result, error) {
	if err := s.policy.Validate(); err != nil {
		return Result{}, fmt.Errorf("stability policy: %w", err)
	}

	s.attemptID = uuid.NewString()
	s.state = StateAwaitingContainer
	s.window = NewWindow(s.policy.ReadDuration, s.policy.MinSamples)
	s.windowStart = s.now()
	s.restarts = 0
	started := s.windowStart
	prompted := false

	for {
		if s.now().Sub(s.windowStart) > s.policy.Timeout {
			s.restarts++
			s.window.Clear()
			s.windowStart = s.now()
			s.state = StateTimedOut
			if s.policy.MaxRestarts > 0 && s.restarts > s.policy.MaxRestarts {
				s.emit(Event{Kind: EventTimedOut})
				return Result{}, fmt.Errorf("%w after %d restarts", ErrAttemptTimeout, s.restarts-1)
			}
			s.emit(Event{Kind: EventRestart})
			// Back to waiting; the next below-floor reading prompts again.
			s.state = StateAwaitingContainer
			prompted = false
		}

		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		raw, err := s.src.ReadLine(s.policy.ReadTimeout)
		if err != nil {
			if errors.Is(err, ErrNoData) {
				continue
			}
			s.state = StateIOError
			s.emit(Event{Kind: EventIOError, Err: err})
			return Result{}, fmt.Errorf("%w: %v", ErrTransport, err)
		}

		weight, ok := ParseWeight(raw)
		if !ok {
			s.emit(Event{Kind: EventParseMiss, Raw: string(raw)})
			continue
		}

		if weight < s.policy.FloorGrams {
			s.window.Clear()
			s.windowStart = s.now()
			if s.state != StateAwaitingContainer || !prompted {
				s.state = StateAwaitingContainer
				prompted = true
				s.emit(Event{Kind: EventAwaitingContainer, Weight: weight})
			}
			continue
		}

		at := s.now()
		s.window.Add(Reading{Value: weight, ObservedAt: at}, at)
		s.state = StateAccumulating
		dev := s.window.Deviation()
		s.emit(Event{Kind: EventSample, Weight: weight, Deviation: dev})

		if s.window.Len() >= s.policy.MinSamples && dev < s.policy.ThresholdGrams {
			s.state = StateStable
			s.emit(Event{Kind: EventStable, Weight: weight, Deviation: dev})
			return Result{
				AttemptID: s.attemptID,
				Weight:    weight,
				Deviation: dev,
				Samples:   s.window.Len(),
				Restarts:  s.restarts,
				Elapsed:   s.now().Sub(started),
			}, nil
		}
	}
}

func (s *Stabilizer) emit(ev Event) {
	if s.observe == nil {
		return
	}
	ev.AttemptID = s.attemptID
	ev.State = s.state
	ev.Samples = s.window.Len()
	ev.Restarts = s.restarts
	if ev.At.IsZero() {
		ev.At = s.now()
	}
	s.observe(ev)
}
