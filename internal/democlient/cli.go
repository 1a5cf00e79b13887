package democlient

import (
	"fmt"
	"io"
	"os"

	"github.com/okian/review360/pkg/logger"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// SetupLogging initializes the global logger writing to stderr and, when
// logFile is set, appending to that file as well. The returned closer
// releases the file.
func SetupLogging(logFile string, verbose bool) (io.Closer, error) {
	var (
		out    io.Writer = os.Stderr
		closer io.Closer = nopCloser{}
	)
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out = io.MultiWriter(os.Stderr, file)
		closer = file
	}

	if err := initLogger(out, verbose); err != nil {
		_ = closer.Close()
		return nil, err
	}
	return closer, nil
}

func initLogger(out io.Writer, verbose bool) error {
	if err := logger.Init(logger.WithOutput(out)); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	level := "info"
	if verbose {
		level = "debug"
	}
	if err := logger.SetLevelString(level); err != nil {
		return fmt.Errorf("failed to set log level: %w", err)
	}
	return nil
}

// ShowHelp prints usage information for the demo tool.
func ShowHelp(w io.Writer) {
	_, _ = io.WriteString(w, `Review360 Demo Session
======================

Plays the data-entry and presentation roles against a running review360
server: fetches the rubric, creates sessions, fills them with generated
scores, submits them, checks the results against a local aggregation and
saves the charts.

Usage:
  go run ./cmd/demo-session [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -sessions int
        Number of sessions to play (default 1)
  -workers int
        Number of concurrent workers (default CPU cores)
  -seed uint
        Seed of the score generator (default 1)
  -lang string
        Rubric language, e.g. en or es
  -out string
        Directory for chart PNGs (default "charts"; empty disables)
  -cleanup
        Delete sessions once verified
  -timeout duration
        HTTP request timeout (default 30s)
  -log string
        Also append logs to this file
  -verbose
        Report every session and log at debug level
  -help
        Show this help message

Examples:
  # One session with charts saved under ./charts
  go run ./cmd/demo-session

  # A hundred sessions in Spanish without charts
  go run ./cmd/demo-session -sessions 100 -lang es -out "" -cleanup
`)
}
