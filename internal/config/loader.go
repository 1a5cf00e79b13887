package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variable names.
const (
	EnvPrefix = "REVIEW360_"
	EnvFile   = EnvPrefix + "CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if REVIEW360_CONFIG is set
//  3. env (prefix REVIEW360_)
func Load(ctx context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(EnvFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// REVIEW360_MAX_SESSIONS -> max_sessions (flat keys, underscores kept).
	// Lists are comma separated: REVIEW360_EVALUATORS=Self,Peers.
	envProvider := env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, interface{}) {
		key = strings.TrimPrefix(strings.ToLower(key), strings.ToLower(EnvPrefix))
		if _, ok := listKeys[key]; ok {
			return key, splitList(value)
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// listKeys are the keys read from the environment as comma separated lists.
var listKeys = map[string]struct{}{
	"competencies": {},
	"evaluators":   {},
}

// splitList splits a comma separated value, trimming blanks around items.
// Empty items are dropped so "A,,B" and "A, B" both yield [A B].
func splitList(value string) []string {
	out := make([]string, 0, strings.Count(value, ",")+1)
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.ScoreMin >= c.ScoreMax:
		return fmt.Errorf("%w: score_min (%v) must be below score_max (%v)", ErrInvalidConfig, c.ScoreMin, c.ScoreMax)
	case c.DefaultScore < c.ScoreMin || c.DefaultScore > c.ScoreMax:
		return fmt.Errorf("%w: default_score %v outside [%v, %v]", ErrInvalidConfig, c.DefaultScore, c.ScoreMin, c.ScoreMax)
	case c.ConfidenceLevel <= 0 || c.ConfidenceLevel >= 1:
		return fmt.Errorf("%w: confidence_level must be in (0, 1), got %v", ErrInvalidConfig, c.ConfidenceLevel)
	case c.TopK <= 0:
		return fmt.Errorf("%w: top_k must be positive", ErrInvalidConfig)
	case c.MaxCompetencies <= 0 || c.MaxEvaluators < 2:
		return fmt.Errorf("%w: max_competencies must be positive and max_evaluators at least 2", ErrInvalidConfig)
	case len(c.Competencies) > c.MaxCompetencies:
		return fmt.Errorf("%w: %d competencies exceed max_competencies %d", ErrInvalidConfig, len(c.Competencies), c.MaxCompetencies)
	case len(c.Evaluators) > c.MaxEvaluators:
		return fmt.Errorf("%w: %d evaluators exceed max_evaluators %d", ErrInvalidConfig, len(c.Evaluators), c.MaxEvaluators)
	case c.SessionTTLSeconds < 0:
		return fmt.Errorf("%w: session_ttl_seconds must not be negative", ErrInvalidConfig)
	case c.SessionTTLSeconds > 0 && c.SweepIntervalSeconds <= 0:
		return fmt.Errorf("%w: sweep_interval_seconds must be positive when sessions expire", ErrInvalidConfig)
	case c.ChartSize < 200:
		return fmt.Errorf("%w: chart_size must be at least 200", ErrInvalidConfig)
	case c.RateLimitRPS > 0 && c.RateLimitBurst <= 0:
		return fmt.Errorf("%w: rate_limit_burst must be positive when rate limiting", ErrInvalidConfig)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}
