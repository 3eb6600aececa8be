package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"gscale-count/core"

	"github.com/tarm/serial"
)

// portReadSlice is the blocking granularity of a single port read; ReadLine
// loops over several of these until its own timeout elapses.
const portReadSlice = 200 * time.Millisecond

const maxPendingBytes = 1024

// maxFastEOFs consecutive empty reads that return well before portReadSlice
// mean the tty was hung up (USB adapter unplugged), not a quiet scale.
const maxFastEOFs = 10

var errPortHungUp = errors.New("serial port hung up")

func openScalePort(device string, baud int) (*serial.Port, error) {
	port, err := serial.OpenPort(&serial.Config{Name: device, Baud: baud, ReadTimeout: portReadSlice})
	if err != nil {
		return nil, fmt.Errorf("open %s @ %d: %w", device, baud, err)
	}
	return port, nil
}

// serialLineSource splits the byte stream from the scale into lines for the
// stabilizer. It keeps partial frames between calls.
type serialLineSource struct {
	port    io.Reader
	lg      *log.Logger
	pending string
	buf     []byte
	now     func() time.Time
	idle    func(time.Duration)

	fastEOFs int
}

func newSerialLineSource(port io.Reader, lg *log.Logger) *serialLineSource {
	return &serialLineSource{
		port: port,
		lg:   lg,
		buf:  make([]byte, 256),
		now:  time.Now,
		idle: time.Sleep,
	}
}

func (s *serialLineSource) ReadLine(timeout time.Duration) ([]byte, error) {
	if frame, ok := s.nextFrame(); ok {
		return frame, nil
	}

	deadline := s.now().Add(timeout)
	for {
		started := s.now()
		n, err := s.port.Read(s.buf)
		if n > 0 {
			s.fastEOFs = 0
			s.pending = appendRaw(s.pending, string(s.buf[:n]), maxPendingBytes)
			if frame, ok := s.nextFrame(); ok {
				return frame, nil
			}
		}
		if err != nil && !errors.Is(err, io.EOF) {
			if s.lg != nil {
				s.lg.Printf("read error: %v", err)
			}
			return nil, err
		}
		if n == 0 {
			if s.now().Sub(started) < portReadSlice/4 {
				s.fastEOFs++
			} else {
				s.fastEOFs = 0
			}
			if s.fastEOFs >= maxFastEOFs {
				if s.lg != nil {
					s.lg.Printf("read error: %d empty reads without waiting", s.fastEOFs)
				}
				return nil, errPortHungUp
			}
		}
		if !s.now().Before(deadline) {
			return nil, core.ErrNoData
		}
		// A port read that times out returns io.EOF; do not spin if the
		// driver returned it without waiting.
		if n == 0 && s.now().Sub(started) < 5*time.Millisecond {
			s.idle(10 * time.Millisecond)
		}
	}
}

// nextFrame pops the next non-blank frame from the pending buffer.
func (s *serialLineSource) nextFrame() ([]byte, bool) {
	for {
		frame, rest, ok := popSerialFrame(s.pending)
		if !ok {
			return nil, false
		}
		s.pending = rest
		if strings.TrimSpace(frame) == "" {
			continue
		}
		return []byte(frame), true
	}
}

func popSerialFrame(buf string) (frame, rest string, ok bool) {
	idx := strings.IndexAny(buf, "\r\n")
	if idx < 0 {
		return "", buf, false
	}

	frame = buf[:idx]
	j := idx
	for j < len(buf) {
		if buf[j] != '\r' && buf[j] != '\n' {
			break
		}
		j++
	}
	rest = buf[j:]
	return frame, rest, true
}

func appendRaw(existing, chunk string, max int) string {
	combined := existing + chunk
	if len(combined) <= max {
		return combined
	}
	return combined[len(combined)-max:]
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
