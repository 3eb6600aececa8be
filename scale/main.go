package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"gscale-count/catalog"
	"gscale-count/display"

	"golang.org/x/term"
)

func main() {
	if err := run(); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		exitErr(err)
	}
}

func run() error {
	cfg, err := parseConfig(os.Args[1:], os.Getenv, os.Stderr)
	if err != nil {
		return err
	}

	interactive := !cfg.plain && term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
	var echo io.Writer = os.Stderr
	if interactive {
		echo = nil
	}
	if err := initWorkflowLogs(cfg.logDir, echo); err != nil {
		return err
	}
	defer closeWorkflowLogs()
	lg := workerLog("worker.count")

	store := display.New(cfg.displayFile)
	cat, err := catalog.Load(cfg.catalogPath, cfg.catalogTable)
	if err != nil {
		_ = store.Show(display.Failure("Catalog error"))
		return err
	}
	lg.Printf("catalog loaded: source=%s skus=%d", cat.Source(), cat.Len())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	device, baud, err := detectScalePort(cfg.device, cfg.bauds, cfg.probeTimeout)
	if err != nil {
		_ = store.Show(display.Failure("Scale not found"))
		return err
	}
	port, err := openScalePort(device, baud)
	if err != nil {
		_ = store.Show(display.Failure("Scale not found"))
		return fmt.Errorf("serial open failed (%s @ %d): %w", device, baud, err)
	}
	defer port.Close()
	sourceLine := fmt.Sprintf("serial (%s @ %d)", device, baud)
	lg.Printf("scale opened: %s", sourceLine)

	source := newSerialLineSource(port, workerLog("worker.serial"))
	displaySink := newDisplaySink(store, workerLog("worker.display"))

	if interactive {
		ts := &tuiSink{}
		c := newCounter(cat, source, cfg.policy, multiSink{ts, displaySink}, lg)
		err = runTUI(ctx, cancel, c, ts, sourceLine)
	} else {
		c := newCounter(cat, source, cfg.policy, multiSink{newConsoleSink(os.Stdout, cfg.policy), displaySink}, lg)
		err = runPlain(ctx, os.Stdin, os.Stdout, c, cfg.resultHold)
	}
	cancel()

	_ = store.Show(display.Status("Bye :)"))
	fmt.Println("Bye :)")
	return err
}
