// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults; Load layers file and env on top.
// - External errors are wrapped with this package's sentinel kinds.
package config

import (
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// SessionTTLSeconds is how long a session lives after its last update.
	// Zero keeps sessions until evicted for capacity.
	SessionTTLSeconds int `koanf:"session_ttl_seconds"`

	// SweepIntervalSeconds is how often expired sessions are purged.
	SweepIntervalSeconds int `koanf:"sweep_interval_seconds"`

	// MaxSessions bounds the session store; the least recently updated
	// session is evicted when full.
	MaxSessions int `koanf:"max_sessions"`

	// MaxCompetencies and MaxEvaluators cap the matrix a client may build.
	MaxCompetencies int `koanf:"max_competencies"`
	MaxEvaluators   int `koanf:"max_evaluators"`

	// ScoreMin and ScoreMax bound scores entered into a session.
	ScoreMin float64 `koanf:"score_min"`
	ScoreMax float64 `koanf:"score_max"`

	// DefaultScore fills new draft cells.
	DefaultScore float64 `koanf:"default_score"`

	// ConfidenceLevel is the two-sided level of the per-competency interval.
	ConfidenceLevel float64 `koanf:"confidence_level"`

	// TopK is the number of strengths and development areas reported.
	TopK int `koanf:"top_k"`

	// Competencies and Evaluators override the built-in session layout.
	// Empty means use the built-in lists.
	Competencies []string `koanf:"competencies"`
	Evaluators   []string `koanf:"evaluators"`

	// ChartSize is the edge of rendered PNG charts in pixels.
	ChartSize int `koanf:"chart_size"`

	// RateLimitRPS and RateLimitBurst configure the request limiter.
	// A non-positive RPS disables limiting.
	RateLimitRPS   float64 `koanf:"rate_limit_rps"`
	RateLimitBurst int     `koanf:"rate_limit_burst"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		LogFormat:            "text",
		Addr:                 ":9080",
		SessionTTLSeconds:    24 * 60 * 60,
		SweepIntervalSeconds: 60,
		MaxSessions:          10_000,
		MaxCompetencies:      30,
		MaxEvaluators:        30,
		ScoreMin:             1,
		ScoreMax:             5,
		DefaultScore:         3,
		ConfidenceLevel:      0.95,
		TopK:                 3,
		ChartSize:            800,
		RateLimitRPS:         50,
		RateLimitBurst:       100,
	}
}

// SessionTTL returns SessionTTLSeconds as a duration.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLSeconds) * time.Second
}

// SweepInterval returns SweepIntervalSeconds as a duration.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}
