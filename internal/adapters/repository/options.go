package repository

import (
	"time"

	"github.com/okian/review360/pkg/logger"
)

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithMaxSessions bounds the number of sessions kept. When full, the least
// recently updated session is evicted. Zero or negative means unbounded.
func WithMaxSessions(n int) Option {
	return func(s *MemoryStore) {
		s.maxSessions = n
	}
}

// WithTTL sets how long a session lives after its last update. Zero disables
// expiry.
func WithTTL(ttl time.Duration) Option {
	return func(s *MemoryStore) {
		if ttl >= 0 {
			s.ttl = ttl
		}
	}
}

// WithSweepInterval sets how often expired sessions are purged.
func WithSweepInterval(interval time.Duration) Option {
	return func(s *MemoryStore) {
		if interval > 0 {
			s.sweepInterval = interval
		}
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger used for eviction messages.
func WithLogger(l logger.Logger) Option {
	return func(s *MemoryStore) {
		if l != nil {
			s.log = l
		}
	}
}
