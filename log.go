package main

import (
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// setupLog silences logging unless a log file is requested, so stray log
// lines never corrupt the TUI.
func setupLog() (func() error, error) {
	log.SetOutput(io.Discard)
	logFile := os.Getenv("SELAH_LOGFILE")
	if logFile == "" {
		return func() error { return nil }, nil
	}

	f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec
	if err != nil {
		return nil, err
	}
	log.SetOutput(f)
	log.SetTimeFormat(time.Kitchen)
	if os.Getenv("DEBUG") != "" {
		log.SetLevel(log.DebugLevel)
	}
	return f.Close, nil
}
