package main

import (
	"io"
	"log"
	"os"

	"gscale-count/core/workflowlog"
)

var countWorkflowLogs *workflowlog.Manager

// initWorkflowLogs sets up per-worker log files. echo is nil in TUI mode so
// log lines do not tear the screen.
func initWorkflowLogs(root string, echo io.Writer) error {
	m, err := workflowlog.New("scale", root, echo)
	if err != nil {
		return err
	}
	countWorkflowLogs = m
	return nil
}

func closeWorkflowLogs() {
	if countWorkflowLogs != nil {
		countWorkflowLogs.Close()
	}
}

func workerLog(name string) *log.Logger {
	if countWorkflowLogs != nil {
		return countWorkflowLogs.Logger(name)
	}
	return log.New(os.Stdout, "["+name+"] ", log.LstdFlags|log.Lmicroseconds|log.LUTC)
}
