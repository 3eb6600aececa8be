package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gscale-count/core"

	"github.com/tarm/serial"
)

// detectScalePort returns device/bauds[0] when a device is configured;
// otherwise it probes every candidate port at every baud until one yields a
// parsable weight line.
func detectScalePort(device string, bauds []int, probeTimeout time.Duration) (string, int, error) {
	if strings.TrimSpace(device) != "" {
		return strings.TrimSpace(device), bauds[0], nil
	}

	lg := workerLog("worker.detect")
	candidates := listCandidates()
	if len(candidates) == 0 {
		return "", 0, errors.New("no serial device found (/dev/ttyUSB* or /dev/ttyACM*)")
	}

	var lastBusy error
	var firstWithData string
	firstWithDataBaud := 0
	for _, dev := range candidates {
		for _, b := range bauds {
			found, hasData, err := probePort(dev, b, probeTimeout)
			if err != nil {
				if isBusyErr(err) {
					lastBusy = fmt.Errorf("%s busy: %w", dev, err)
				}
				lg.Printf("probe error: device=%s baud=%d err=%v", dev, b, err)
				continue
			}
			if found {
				lg.Printf("probe ok: device=%s baud=%d", dev, b)
				return dev, b, nil
			}
			if hasData && firstWithData == "" {
				firstWithData, firstWithDataBaud = dev, b
			}
		}
	}

	if firstWithData != "" {
		lg.Printf("probe fallback: device=%s baud=%d (data but no weight)", firstWithData, firstWithDataBaud)
		return firstWithData, firstWithDataBaud, nil
	}
	if lastBusy != nil {
		return "", 0, fmt.Errorf("serial port busy: %w", lastBusy)
	}

	return candidates[0], bauds[0], nil
}

func listCandidates() []string {
	seen := map[string]bool{}
	out := make([]string, 0, 16)
	add := func(v string) {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			return
		}
		seen[v] = true
		out = append(out, v)
	}

	if byID, err := filepath.Glob("/dev/serial/by-id/*"); err == nil {
		sort.Strings(byID)
		for _, path := range byID {
			target, err := filepath.EvalSymlinks(path)
			if err == nil {
				add(target)
				continue
			}
			add(path)
		}
	}

	for _, pattern := range []string{"/dev/ttyUSB*", "/dev/ttyACM*"} {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			continue
		}
		sort.Strings(matches)
		for _, path := range matches {
			add(path)
		}
	}

	return out
}

func probePort(device string, baud int, timeout time.Duration) (bool, bool, error) {
	port, err := serial.OpenPort(&serial.Config{Name: device, Baud: baud, ReadTimeout: portReadSlice})
	if err != nil {
		return false, false, err
	}
	defer port.Close()

	src := newSerialLineSource(port, nil)
	deadline := time.Now().Add(timeout)
	hasData := false
	for time.Now().Before(deadline) {
		line, err := src.ReadLine(time.Until(deadline))
		if errors.Is(err, core.ErrNoData) {
			continue
		}
		if err != nil {
			return false, hasData, err
		}
		hasData = true
		if _, ok := core.ParseWeight(line); ok {
			return true, true, nil
		}
	}

	return false, hasData || src.pending != "", nil
}

func isBusyErr(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "resource busy") || strings.Contains(msg, "device or resource busy") || strings.Contains(msg, "permission denied")
}
