package repository

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/review360/pkg/logger"
	"github.com/okian/review360/pkg/metrics"
)

// Eviction reasons reported to metrics.
const (
	reasonCapacity = "capacity"
	reasonExpired  = "expired"
)

// MemoryStore is an in-memory Store.
//
// Sessions are kept in a map plus a recency list ordered by UpdatedAt, most
// recent at the front. Capacity eviction and TTL sweeps both pop from the
// back, so neither needs a scan.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*list.Element
	order    *list.List // of *Session

	maxSessions   int
	ttl           time.Duration
	sweepInterval time.Duration
	now           func() time.Time
	log           logger.Logger

	wg       sync.WaitGroup
	stopChan chan struct{}
}

// NewMemoryStore constructs a session store and starts its sweeper. The
// sweeper stops when ctx is cancelled or Close is called.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		sessions:      make(map[string]*list.Element),
		order:         list.New(),
		maxSessions:   10000,
		ttl:           24 * time.Hour,
		sweepInterval: time.Minute,
		now:           time.Now,
		log:           logger.Discard(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.stopChan = make(chan struct{})
	if s.ttl > 0 {
		s.startSweeper(ctx)
	}
	metrics.UpdateActiveSessions(0)

	return s
}

func (s *MemoryStore) startSweeper(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				if n := s.Sweep(); n > 0 {
					s.log.Debug(ctx, "expired sessions swept", logger.Int("count", n))
				}
			}
		}
	}()
}

// Close stops the sweeper goroutine.
func (s *MemoryStore) Close() error {
	select {
	case <-s.stopChan:
	default:
		close(s.stopChan)
	}
	s.wg.Wait()
	return nil
}

// Sweep removes every expired session and returns how many were dropped.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked()
}

func (s *MemoryStore) sweepLocked() int {
	if s.ttl <= 0 {
		return 0
	}
	now := s.now()
	removed := 0
	for e := s.order.Back(); e != nil; e = s.order.Back() {
		if !s.expired(e.Value.(*Session), now) {
			break
		}
		s.removeLocked(e, reasonExpired)
		removed++
	}
	if removed > 0 {
		metrics.UpdateActiveSessions(len(s.sessions))
	}
	return removed
}

func (s *MemoryStore) expired(sess *Session, now time.Time) bool {
	return s.ttl > 0 && now.Sub(sess.UpdatedAt) >= s.ttl
}

func (s *MemoryStore) removeLocked(e *list.Element, reason string) {
	sess := e.Value.(*Session)
	s.order.Remove(e)
	delete(s.sessions, sess.ID)
	if reason != "" {
		metrics.RecordSessionEvicted(reason)
	}
}

// lookupLocked returns the live element for id, dropping it if it expired
// since the last sweep.
func (s *MemoryStore) lookupLocked(id string) (*list.Element, bool) {
	e, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	if s.expired(e.Value.(*Session), s.now()) {
		s.removeLocked(e, reasonExpired)
		metrics.UpdateActiveSessions(len(s.sessions))
		return nil, false
	}
	return e, true
}

// Create implements Store.Create.
func (s *MemoryStore) Create(ctx context.Context, sess Session) (Session, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Nanoseconds()) / 1e6)
	}()

	if sess.ID == "" {
		return Session{}, fmt.Errorf("%w: empty id", ErrInvalidSession)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lookupLocked(sess.ID); ok {
		return Session{}, fmt.Errorf("%w: %s", ErrAlreadyExists, sess.ID)
	}

	s.sweepLocked()
	for s.maxSessions > 0 && len(s.sessions) >= s.maxSessions {
		oldest := s.order.Back()
		s.log.Info(ctx, "session evicted at capacity",
			logger.String("session_id", oldest.Value.(*Session).ID),
			logger.Int("max_sessions", s.maxSessions))
		s.removeLocked(oldest, reasonCapacity)
	}

	now := s.now()
	stored := sess.Clone()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.sessions[stored.ID] = s.order.PushFront(&stored)
	metrics.UpdateActiveSessions(len(s.sessions))

	return stored.Clone(), nil
}

// Get implements Store.Get.
func (s *MemoryStore) Get(ctx context.Context, id string) (Session, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Nanoseconds()) / 1e6)
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookupLocked(id)
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return Session{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e.Value.(*Session).Clone(), nil
}

// Update implements Store.Update. A successful update refreshes the TTL.
func (s *MemoryStore) Update(ctx context.Context, id string, fn func(*Session) error) (Session, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Nanoseconds()) / 1e6)
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookupLocked(id)
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return Session{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	current := e.Value.(*Session)
	next := current.Clone()
	if err := fn(&next); err != nil {
		return Session{}, err
	}
	next.ID = current.ID
	next.CreatedAt = current.CreatedAt
	next.UpdatedAt = s.now()

	e.Value = &next
	s.order.MoveToFront(e)

	return next.Clone(), nil
}

// Delete implements Store.Delete.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookupLocked(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.removeLocked(e, "")
	metrics.UpdateActiveSessions(len(s.sessions))
	return nil
}

// Count implements Store.Count. Expired sessions not yet swept are excluded.
func (s *MemoryStore) Count(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	return len(s.sessions)
}

var _ Store = (*MemoryStore)(nil)
