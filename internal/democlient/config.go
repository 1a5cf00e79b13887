package democlient

import (
	"io"
	"time"

	"github.com/okian/review360/pkg/logger"
)

// Config holds configuration for a demo run.
type Config struct {
	BaseURL   string        // Base URL of the service
	Sessions  int           // Number of review sessions to play
	Workers   int           // Number of concurrent workers
	Seed      uint64        // Seed of the demo score generator
	Lang      string        // Rubric language
	Timeout   time.Duration // HTTP request timeout
	OutputDir string        // Directory for chart PNGs; empty skips saving
	Cleanup   bool          // Delete sessions once verified
	Verbose   bool          // Enable verbose logging

	Out    io.Writer     // Report destination
	Logger logger.Logger // Defaults to logger.Get()
}

// Stats holds run statistics.
type Stats struct {
	SessionsCreated  int
	SessionsVerified int
	Mismatches       int
	Failed           int
	ChartsSaved      int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
