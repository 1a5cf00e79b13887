package democlient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/review360/internal/domain/model"
	"github.com/okian/review360/internal/domain/rubric"
	"github.com/okian/review360/internal/domain/types"
	"github.com/okian/review360/pkg/logger"
)

// chartKinds are the charts saved for every verified session.
var chartKinds = []string{"radar", "consistency", "stddev"}

// job is one session to fill, submit and verify.
type job struct {
	session types.Session
	scores  [][]float64
}

// outcome of a processed job.
type outcome struct {
	result types.Result
	err    error
}

// Run plays a complete demo against a running service: it fetches the
// rubric, creates sessions, fills them with generated scores, submits them,
// checks the returned results against a local aggregation and saves charts.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	cfg := withDefaults(config)
	log := cfg.Logger
	stats := &Stats{StartTime: time.Now()}

	log.Info(ctx, "starting review360 demo",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("sessions", cfg.Sessions),
		logger.Int("workers", cfg.Workers),
		logger.Any("seed", cfg.Seed),
		logger.String("outputDir", cfg.OutputDir))

	client := NewClient(cfg.BaseURL, cfg.Timeout)

	// Step 1: Check service health
	if err := client.Health(ctx); err != nil {
		return stats, err
	}

	// Step 2: Fetch the rating help shown to raters
	rb, err := client.Rubric(ctx, cfg.Lang)
	if err != nil {
		return stats, fmt.Errorf("rubric retrieval failed: %w", err)
	}
	log.Info(ctx, "rubric loaded", logger.String("language", rb.Language), logger.Int("levels", len(rb.Scale)))

	// Step 3: Create sessions and generate their scores in a fixed order
	gen := NewGenerator(cfg.Seed)
	jobs := make([]job, 0, cfg.Sessions)
	for i := 0; i < cfg.Sessions; i++ {
		sess, err := client.CreateSession(ctx)
		if err != nil {
			return stats, fmt.Errorf("session creation failed: %w", err)
		}
		jobs = append(jobs, job{
			session: sess,
			scores:  gen.Matrix(len(sess.Competencies), len(sess.Evaluators)),
		})
	}
	stats.SessionsCreated = len(jobs)

	// Step 4: Submit, verify and render concurrently
	outcomes := process(ctx, cfg, client, jobs, stats)

	for i, o := range outcomes {
		if o.err != nil {
			continue
		}
		report(cfg.Out, rb, jobs[i].session.ID, o.result)
		if !cfg.Verbose {
			break
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)

	switch {
	case stats.Mismatches > 0:
		return stats, fmt.Errorf("%w: %d of %d sessions", ErrMismatch, stats.Mismatches, stats.SessionsCreated)
	case stats.Failed > 0:
		return stats, fmt.Errorf("%w: %d of %d sessions", ErrFailed, stats.Failed, stats.SessionsCreated)
	}
	log.Info(ctx, "demo completed successfully")
	return stats, nil
}

func withDefaults(config *Config) Config {
	cfg := *config
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Sessions <= 0 {
		cfg.Sessions = DefaultSessions
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	cfg.Workers = min(cfg.Workers, cfg.Sessions)
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Out == nil {
		cfg.Out = io.Discard
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Get()
	}
	return cfg
}

// process runs jobs on a worker pool and returns their outcomes in job order.
func process(ctx context.Context, cfg Config, client *Client, jobs []job, stats *Stats) []outcome {
	outcomes := make([]outcome, len(jobs))
	var verified, mismatched, charts int64

	jobChan := make(chan int, cfg.Workers*2)
	var wg sync.WaitGroup

	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobChan {
				res, saved, err := runJob(ctx, cfg, client, jobs[i])
				outcomes[i] = outcome{result: res, err: err}
				atomic.AddInt64(&charts, int64(saved))
				switch {
				case err == nil:
					atomic.AddInt64(&verified, 1)
				case errors.Is(err, ErrMismatch):
					atomic.AddInt64(&mismatched, 1)
				}
				if err != nil {
					cfg.Logger.Warn(ctx, "session failed",
						logger.String("sessionID", jobs[i].session.ID), logger.Error(err))
				} else if cfg.Verbose {
					cfg.Logger.Info(ctx, "session verified", logger.String("sessionID", jobs[i].session.ID))
				}
			}
		}()
	}

	go func() {
		defer close(jobChan)
		for i := range jobs {
			select {
			case <-ctx.Done():
				return
			case jobChan <- i:
			}
		}
	}()

	wg.Wait()

	stats.SessionsVerified = int(verified)
	stats.Mismatches = int(mismatched)
	stats.ChartsSaved = int(charts)
	// Jobs never dispatched because ctx ended count as failed.
	stats.Failed = len(jobs) - stats.SessionsVerified - stats.Mismatches
	return outcomes
}

func runJob(ctx context.Context, cfg Config, client *Client, j job) (types.Result, int, error) {
	id := j.session.ID
	m, err := model.NewScoreMatrix(j.session.Competencies, j.session.Evaluators, j.scores)
	if err != nil {
		return types.Result{}, 0, fmt.Errorf("build matrix: %w", err)
	}
	if _, err := client.SubmitMatrix(ctx, id, j.scores); err != nil {
		return types.Result{}, 0, fmt.Errorf("submit: %w", err)
	}
	res, err := client.Results(ctx, id)
	if err != nil {
		return types.Result{}, 0, fmt.Errorf("results: %w", err)
	}
	if err := verifyResult(m, res); err != nil {
		return res, 0, err
	}

	saved := 0
	if cfg.OutputDir != "" {
		for _, kind := range chartKinds {
			png, err := client.Chart(ctx, id, kind)
			if err != nil {
				return res, saved, fmt.Errorf("chart %s: %w", kind, err)
			}
			if err := saveChart(cfg.OutputDir, id, kind, png); err != nil {
				return res, saved, err
			}
			saved++
		}
	}

	if cfg.Cleanup {
		if err := client.DeleteSession(ctx, id); err != nil {
			return res, saved, fmt.Errorf("delete: %w", err)
		}
	}
	return res, saved, nil
}

func saveChart(dir, id, kind string, png []byte) error {
	if err := os.MkdirAll(dir, directoryPermission); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	name := filepath.Join(dir, id+"-"+kind+".png")
	if err := os.WriteFile(name, png, filePermission); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

// report prints the result table with scale labels from the rubric.
func report(w io.Writer, rb rubric.Rubric, id string, res types.Result) {
	fmt.Fprintf(w, "%s (session %s)\n\n", rb.Title, id)
	fmt.Fprintf(w, "%-28s %6s %6s %8s  %s\n", "Competency", "Mean", "Std", "Var", fmt.Sprintf("%.0f%% CI", res.ConfidenceLevel*100))
	for _, c := range res.Competencies {
		fmt.Fprintf(w, "%-28s %6.2f %6.2f %8.2f  [%.2f, %.2f]\n", c.Name, c.Mean, c.Std, c.Variance, c.CILower, c.CIUpper)
	}
	fmt.Fprintln(w)
	for _, e := range res.Evaluators {
		fmt.Fprintf(w, "%-28s %6.2f\n", e.Name, e.Mean)
	}
	fmt.Fprintln(w, "\nTop strengths:")
	for _, r := range res.TopStrengths {
		fmt.Fprintf(w, "  %-26s %.2f  %s\n", r.Competency, r.Mean, label(rb, r.Mean))
	}
	fmt.Fprintln(w, "Development areas:")
	for _, r := range res.BottomAreas {
		fmt.Fprintf(w, "  %-26s %.2f  %s\n", r.Competency, r.Mean, label(rb, r.Mean))
	}
	fmt.Fprintln(w)
}

func label(rb rubric.Rubric, mean float64) string {
	l, _ := rb.Label(int(math.Round(mean)))
	return l
}

// displayFinalStats logs the run statistics.
func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var sessionsPerSecond float64
	if stats.Duration > 0 {
		sessionsPerSecond = float64(stats.SessionsCreated) / stats.Duration.Seconds()
	}

	log.Info(ctx, "final statistics",
		logger.Int("sessionsCreated", stats.SessionsCreated),
		logger.Int("sessionsVerified", stats.SessionsVerified),
		logger.Int("mismatches", stats.Mismatches),
		logger.Int("failed", stats.Failed),
		logger.Int("chartsSaved", stats.ChartsSaved),
		logger.Duration("duration", stats.Duration),
		logger.Float64("sessionsPerSecond", sessionsPerSecond))
}
