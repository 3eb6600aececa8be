package main

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"gscale-count/core"
)

func TestPopSerialFrame(t *testing.T) {
	frame, rest, ok := popSerialFrame("  130.05g\r  130.04g\r")
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if frame != "  130.05g" {
		t.Fatalf("frame mismatch: got=%q", frame)
	}
	if rest != "  130.04g\r" {
		t.Fatalf("rest mismatch: got=%q", rest)
	}
}

func TestPopSerialFrameConsumesCRLF(t *testing.T) {
	frame, rest, ok := popSerialFrame("0.00\r\n- 0.50\n")
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if frame != "0.00" {
		t.Fatalf("frame mismatch: got=%q", frame)
	}
	if rest != "- 0.50\n" {
		t.Fatalf("rest mismatch: got=%q", rest)
	}
}

func TestPopSerialFrameNoDelimiter(t *testing.T) {
	frame, rest, ok := popSerialFrame("12.05")
	if ok {
		t.Fatalf("expected ok=false, frame=%q rest=%q", frame, rest)
	}
	if rest != "12.05" {
		t.Fatalf("rest mismatch: got=%q", rest)
	}
}

// chunkReader hands out one chunk per Read and io.EOF once drained, like a
// port whose read timeout elapsed. wait, when set, runs before that EOF.
type chunkReader struct {
	chunks []string
	err    error
	wait   func()
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		if r.wait != nil {
			r.wait()
		}
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	r.chunks = r.chunks[1:]
	return n, nil
}

func newTestSource(r io.Reader) *serialLineSource {
	s := newSerialLineSource(r, nil)
	clock := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }
	s.idle = func(d time.Duration) { clock = clock.Add(d) }
	if cr, ok := r.(*chunkReader); ok {
		cr.wait = func() { clock = clock.Add(portReadSlice) }
	}
	return s
}

// hungUpPort returns at once with no data, as a tty does after the USB
// adapter is unplugged.
type hungUpPort struct{ reads int }

func (p *hungUpPort) Read([]byte) (int, error) {
	p.reads++
	return 0, io.EOF
}

func TestSerialLineSourceJoinsPartialFrames(t *testing.T) {
	src := newTestSource(&chunkReader{chunks: []string{"ST,+00", "130.05g\r\n\r\n+00130.", "04g\r\n"}})

	for _, want := range []string{"ST,+00130.05g", "+00130.04g"} {
		line, err := src.ReadLine(time.Second)
		if err != nil {
			t.Fatalf("ReadLine error: %v", err)
		}
		if string(line) != want {
			t.Fatalf("line mismatch: got=%q want=%q", line, want)
		}
	}

	if _, err := src.ReadLine(time.Second); !errors.Is(err, core.ErrNoData) {
		t.Fatalf("expected ErrNoData on a silent port, got %v", err)
	}
}

func TestSerialLineSourceSurfacesReadErrors(t *testing.T) {
	src := newTestSource(&chunkReader{err: errors.New("input/output error")})
	_, err := src.ReadLine(time.Second)
	if err == nil || errors.Is(err, core.ErrNoData) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestSerialLineSourceQuietPortKeepsWaiting(t *testing.T) {
	src := newTestSource(&chunkReader{})
	for i := 0; i < 5; i++ {
		if _, err := src.ReadLine(time.Second); !errors.Is(err, core.ErrNoData) {
			t.Fatalf("call %d: expected ErrNoData, got %v", i, err)
		}
	}
}

func TestSerialLineSourceReportsHungUpPort(t *testing.T) {
	port := &hungUpPort{}
	src := newTestSource(port)

	_, err := src.ReadLine(time.Second)
	if err == nil || errors.Is(err, core.ErrNoData) {
		t.Fatalf("expected disconnect error, got %v", err)
	}
	if !errors.Is(err, errPortHungUp) {
		t.Fatalf("error mismatch: got=%v want=%v", err, errPortHungUp)
	}
	if port.reads != maxFastEOFs {
		t.Fatalf("reads mismatch: got=%d want=%d", port.reads, maxFastEOFs)
	}
}

func TestHungUpPortEndsCount(t *testing.T) {
	sink := &recordingSink{}
	c := newCounter(testCatalog(), newTestSource(&hungUpPort{}), core.DefaultPolicy(), sink, discardLog())

	_, err := c.Count(context.Background(), "SKU123")
	if !errors.Is(err, core.ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	if len(sink.failures) != 1 {
		t.Fatalf("failure not reported: %v", sink.failures)
	}
}

func TestAppendRawKeepsTail(t *testing.T) {
	if got := appendRaw("abc", "def", 4); got != "cdef" {
		t.Fatalf("appendRaw mismatch: got=%q", got)
	}
}
