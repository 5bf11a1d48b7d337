package main

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// setupLog configures logging. Logs go to stderr; NOTESAI_LOGFILE
// redirects them to a file instead.
func setupLog() (func() error, error) {
	log.SetOutput(os.Stderr)
	log.SetTimeFormat(time.Kitchen)

	if os.Getenv("DEBUG") != "" {
		log.SetLevel(log.DebugLevel)
	}

	if path := os.Getenv("NOTESAI_LOGFILE"); path != "" {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec
		if err != nil {
			return nil, fmt.Errorf("error opening log file: %w", err)
		}
		log.SetOutput(f)
		log.SetFormatter(log.TextFormatter)
		return f.Close, nil
	}

	return func() error { return nil }, nil
}
