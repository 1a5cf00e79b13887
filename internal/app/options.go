package service

import (
	"time"

	"github.com/okian/review360/internal/adapters/repository"
	"github.com/okian/review360/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithDefaultLayout sets the competencies and evaluators used when a session
// is created without its own. Empty lists keep the built-in layout.
func WithDefaultLayout(competencies, evaluators []string) Option {
	return func(s *Service) {
		if len(competencies) > 0 {
			s.competencies = append([]string(nil), competencies...)
		}
		if len(evaluators) > 0 {
			s.evaluators = append([]string(nil), evaluators...)
		}
	}
}

// WithLimits caps the number of competencies and evaluators per session.
func WithLimits(maxCompetencies, maxEvaluators int) Option {
	return func(s *Service) {
		if maxCompetencies > 0 {
			s.maxCompetencies = maxCompetencies
		}
		if maxEvaluators > 0 {
			s.maxEvaluators = maxEvaluators
		}
	}
}

// WithScoreRange sets the inclusive range accepted for entered scores.
func WithScoreRange(lo, hi float64) Option {
	return func(s *Service) {
		if lo < hi {
			s.scoreMin, s.scoreMax = lo, hi
		}
	}
}

// WithDefaultScore sets the value new draft cells start with.
func WithDefaultScore(v float64) Option {
	return func(s *Service) {
		s.defaultScore = v
	}
}

// WithConfidenceLevel sets the level of the per-competency interval.
func WithConfidenceLevel(level float64) Option {
	return func(s *Service) {
		if level > 0 && level < 1 {
			s.confidence = level
		}
	}
}

// WithTopK sets the length of the strengths and development areas lists.
func WithTopK(k int) Option {
	return func(s *Service) {
		if k > 0 {
			s.topK = k
		}
	}
}

// WithMaxSessions bounds the session store.
func WithMaxSessions(n int) Option {
	return func(s *Service) {
		s.maxSessions = n
	}
}

// WithSessionTTL sets session expiry and the sweep period. A zero ttl keeps
// sessions until they are evicted for capacity.
func WithSessionTTL(ttl, sweep time.Duration) Option {
	return func(s *Service) {
		if ttl >= 0 {
			s.ttl = ttl
		}
		if sweep > 0 {
			s.sweep = sweep
		}
	}
}

// WithChartSize sets the edge of rendered charts in pixels.
func WithChartSize(px int) Option {
	return func(s *Service) {
		if px > 0 {
			s.chartSize = px
		}
	}
}

// WithStore replaces the in-memory store built by Start.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithIDGenerator replaces the UUID session id generator.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithClock replaces time.Now for session timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
