package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"gscale-count/core"
)

// runPlain is the line-mode operator loop: one SKU per input line. It
// returns nil on EOF or interrupt and an error only when the scale transport
// fails.
func runPlain(ctx context.Context, in io.Reader, out io.Writer, c *counter, hold time.Duration) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		s := bufio.NewScanner(in)
		for s.Scan() {
			select {
			case lines <- s.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		fmt.Fprint(out, "\n\n\n")
		c.sink.Status("Scan the QR Code")
		fmt.Fprintln(out, "Enter SKU...")

		var sku string
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			sku = strings.TrimSpace(line)
		}
		if sku == "" {
			continue
		}

		_, err := c.Count(ctx, sku)
		switch {
		case err == nil:
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, core.ErrTransport):
			return err
		default:
			// Lookup misses and attempt failures go back to the prompt.
		}

		if !sleepWithContext(ctx, hold) {
			return nil
		}
	}
}
