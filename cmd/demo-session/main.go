package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/review360/internal/democlient"
)

// Default configuration constants.
const (
	defaultTimeout    = 30 * time.Second
	defaultRunTimeout = 10 * time.Minute
	defaultOutputDir  = "charts"
)

func main() {
	var (
		baseURL   = flag.String("url", democlient.DefaultBaseURL, "Base URL of the service")
		sessions  = flag.Int("sessions", democlient.DefaultSessions, "Number of sessions to play")
		workers   = flag.Int("workers", runtime.NumCPU(), "Number of concurrent workers")
		seed      = flag.Uint64("seed", 1, "Seed of the score generator")
		lang      = flag.String("lang", "", "Rubric language, e.g. en or es")
		outputDir = flag.String("out", defaultOutputDir, "Directory for chart PNGs; empty disables")
		cleanup   = flag.Bool("cleanup", false, "Delete sessions once verified")
		timeout   = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		logFile   = flag.String("log", "", "Also append logs to this file")
		verbose   = flag.Bool("verbose", false, "Report every session and log at debug level")
		help      = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		democlient.ShowHelp(os.Stdout)
		return
	}

	closer, err := democlient.SetupLogging(*logFile, *verbose)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)

	_, err = democlient.Run(ctx, &democlient.Config{
		BaseURL:   *baseURL,
		Sessions:  *sessions,
		Workers:   *workers,
		Seed:      *seed,
		Lang:      *lang,
		Timeout:   *timeout,
		OutputDir: *outputDir,
		Cleanup:   *cleanup,
		Verbose:   *verbose,
		Out:       os.Stdout,
	})

	cancel()
	stop()
	_ = closer.Close()

	if err != nil {
		os.Stderr.WriteString("Demo failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
