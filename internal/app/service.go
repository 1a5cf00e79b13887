// Package service provides the review service behind the HTTP API: it owns
// review sessions, enforces data-entry rules and runs the aggregation.
package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/review360/internal/adapters/chart"
	"github.com/okian/review360/internal/adapters/repository"
	"github.com/okian/review360/internal/domain/aggregate"
	"github.com/okian/review360/internal/domain/model"
	"github.com/okian/review360/internal/domain/rubric"
	"github.com/okian/review360/internal/domain/types"
	"github.com/okian/review360/pkg/logger"
	"github.com/okian/review360/pkg/metrics"
)

// Chart kinds served by Chart.
const (
	ChartRadar       = "radar"
	ChartConsistency = "consistency"
	ChartStdDev      = "stddev"
)

// ChartKinds lists the supported chart kinds.
func ChartKinds() []string {
	return []string{ChartRadar, ChartConsistency, ChartStdDev}
}

var defaultCompetencies = []string{
	"Leadership",
	"Effective communication",
	"Teamwork",
	"Problem solving",
	"Adaptability",
	"Innovation",
	"Decision making",
	"Results orientation",
	"Emotional intelligence",
	"Ethics and values",
}

var defaultEvaluators = []string{
	"Self",
	"Direct manager",
	"Peers",
	"Direct reports",
	"Internal/external clients",
}

// DefaultCompetencies returns the built-in competency list.
func DefaultCompetencies() []string { return append([]string(nil), defaultCompetencies...) }

// DefaultEvaluators returns the built-in evaluator roles.
func DefaultEvaluators() []string { return append([]string(nil), defaultEvaluators...) }

// Service implements the API dependencies for review sessions.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	ownStore   bool
	aggregator *aggregate.Aggregator
	charts     *chart.Renderer
	rubrics    *rubric.Catalog

	// Configuration
	competencies    []string
	evaluators      []string
	maxCompetencies int
	maxEvaluators   int
	scoreMin        float64
	scoreMax        float64
	defaultScore    float64
	confidence      float64
	topK            int
	maxSessions     int
	ttl             time.Duration
	sweep           time.Duration
	chartSize       int
	newID           func() string
	now             func() time.Time

	// State
	started bool

	// Logging
	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		competencies:    DefaultCompetencies(),
		evaluators:      DefaultEvaluators(),
		maxCompetencies: 30,
		maxEvaluators:   30,
		scoreMin:        1,
		scoreMax:        5,
		defaultScore:    3,
		confidence:      aggregate.DefaultConfidenceLevel,
		topK:            aggregate.DefaultTopK,
		maxSessions:     10_000,
		ttl:             24 * time.Hour,
		sweep:           time.Minute,
		chartSize:       800,
		newID:           uuid.NewString,
		now:             time.Now,
		logger:          nil, // Discard unless WithLogger is given
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes the service components. The session sweeper runs until
// ctx is cancelled or Stop is called.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Discard()
	}

	s.logger.Info(ctx, "starting review service...")

	catalog, err := rubric.Load()
	if err != nil {
		return fmt.Errorf("load rubric: %w", err)
	}
	s.rubrics = catalog

	if s.store == nil {
		s.store = repository.NewMemoryStore(ctx,
			repository.WithMaxSessions(s.maxSessions),
			repository.WithTTL(s.ttl),
			repository.WithSweepInterval(s.sweep),
			repository.WithClock(s.now),
			repository.WithLogger(s.logger.Named("store")),
		)
		s.ownStore = true
	}
	s.aggregator = aggregate.New(
		aggregate.WithConfidenceLevel(s.confidence),
		aggregate.WithTopK(s.topK),
	)
	s.charts = chart.New(
		chart.WithSize(s.chartSize),
		chart.WithScale(s.scoreMin, s.scoreMax),
	)

	s.started = true
	s.logger.Info(ctx, "review service started",
		logger.Int("competencies", len(s.competencies)),
		logger.Int("evaluators", len(s.evaluators)),
		logger.Int("maxSessions", s.maxSessions),
		logger.Duration("sessionTTL", s.ttl),
		logger.Float64("confidenceLevel", s.aggregator.ConfidenceLevel()),
		logger.Int("topK", s.aggregator.TopK()),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping review service...")

	if s.ownStore {
		_ = s.store.Close()
		s.store = nil
		s.ownStore = false
	}

	s.started = false
	s.logger.Info(context.Background(), "review service stopped")
}

// components returns the live collaborators or ErrNotStarted.
func (s *Service) components() (repository.Store, *aggregate.Aggregator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, nil, ErrNotStarted
	}
	return s.store, s.aggregator, nil
}

// CreateSession opens a review with the given layout, or the configured one
// when a list is empty. Every draft cell starts at the default score.
func (s *Service) CreateSession(ctx context.Context, competencies, evaluators []string) (types.Session, error) {
	store, _, err := s.components()
	if err != nil {
		return types.Session{}, err
	}

	if len(competencies) == 0 {
		competencies = s.competencies
	}
	if len(evaluators) == 0 {
		evaluators = s.evaluators
	}
	if err := s.checkLayout(competencies, evaluators); err != nil {
		return types.Session{}, err
	}

	draft := make([][]float64, len(competencies))
	for i := range draft {
		draft[i] = make([]float64, len(evaluators))
		for j := range draft[i] {
			draft[i][j] = s.defaultScore
		}
	}

	created, err := store.Create(ctx, repository.Session{
		ID:           s.newID(),
		Competencies: competencies,
		Evaluators:   evaluators,
		Draft:        draft,
	})
	if err != nil {
		return types.Session{}, fmt.Errorf("create session: %w", err)
	}

	metrics.RecordSessionCreated()
	s.logger.Info(ctx, "session created",
		logger.String("sessionID", created.ID),
		logger.Int("competencies", len(competencies)),
		logger.Int("evaluators", len(evaluators)),
	)
	return sessionView(created), nil
}

// checkLayout enforces unique non-blank names and the configured maxima.
func (s *Service) checkLayout(competencies, evaluators []string) error {
	if len(competencies) > s.maxCompetencies || len(evaluators) > s.maxEvaluators {
		return fmt.Errorf("%w: %dx%d, limit %dx%d", ErrTooLarge,
			len(competencies), len(evaluators), s.maxCompetencies, s.maxEvaluators)
	}
	if _, err := model.NewScoreMatrix(competencies, evaluators, emptyGrid(len(competencies), len(evaluators))); err != nil {
		return err
	}
	return nil
}

// Session returns the current state of a session.
func (s *Service) Session(ctx context.Context, id string) (types.Session, error) {
	store, _, err := s.components()
	if err != nil {
		return types.Session{}, err
	}
	sess, err := store.Get(ctx, id)
	if err != nil {
		return types.Session{}, err
	}
	return sessionView(sess), nil
}

// DeleteSession discards a session.
func (s *Service) DeleteSession(ctx context.Context, id string) error {
	store, _, err := s.components()
	if err != nil {
		return err
	}
	if err := store.Delete(ctx, id); err != nil {
		return err
	}
	metrics.RecordSessionDeleted()
	s.logger.Info(ctx, "session deleted", logger.String("sessionID", id))
	return nil
}

// SetScore edits one draft cell. A submitted matrix is left untouched until
// the next Submit.
func (s *Service) SetScore(ctx context.Context, id, competency, evaluator string, score float64) (types.Session, error) {
	store, _, err := s.components()
	if err != nil {
		return types.Session{}, err
	}
	if err := s.checkScore(score); err != nil {
		return types.Session{}, err
	}

	updated, err := store.Update(ctx, id, func(sess *repository.Session) error {
		i := slices.Index(sess.Competencies, competency)
		j := slices.Index(sess.Evaluators, evaluator)
		if i < 0 || j < 0 {
			return fmt.Errorf("%w: %q/%q", ErrUnknownCell, competency, evaluator)
		}
		sess.Draft[i][j] = score
		return nil
	})
	if err != nil {
		return types.Session{}, err
	}

	metrics.RecordScoreUpdates(1)
	s.logger.Debug(ctx, "score set",
		logger.String("sessionID", id),
		logger.String("competency", competency),
		logger.String("evaluator", evaluator),
		logger.Float64("score", score),
	)
	return sessionView(updated), nil
}

// ReplaceScores replaces the draft wholesale. Empty name lists keep the
// session's current layout.
func (s *Service) ReplaceScores(ctx context.Context, id string, competencies, evaluators []string, scores [][]float64) (types.Session, error) {
	store, _, err := s.components()
	if err != nil {
		return types.Session{}, err
	}

	updated, err := store.Update(ctx, id, func(sess *repository.Session) error {
		comps, evals := competencies, evaluators
		if len(comps) == 0 {
			comps = sess.Competencies
		}
		if len(evals) == 0 {
			evals = sess.Evaluators
		}
		if err := s.checkLayout(comps, evals); err != nil {
			return err
		}
		m, err := model.NewScoreMatrix(comps, evals, scores)
		if err != nil {
			return err
		}
		for i := 0; i < m.Rows(); i++ {
			for j := 0; j < m.Cols(); j++ {
				if err := s.checkScore(m.At(i, j)); err != nil {
					return fmt.Errorf("%s/%s: %w", comps[i], evals[j], err)
				}
			}
		}
		sess.Competencies = m.Competencies()
		sess.Evaluators = m.Evaluators()
		sess.Draft = m.Values()
		return nil
	})
	if err != nil {
		return types.Session{}, err
	}

	metrics.RecordScoreUpdates(len(updated.Competencies) * len(updated.Evaluators))
	s.logger.Debug(ctx, "scores replaced",
		logger.String("sessionID", id),
		logger.Int("competencies", len(updated.Competencies)),
		logger.Int("evaluators", len(updated.Evaluators)),
	)
	return sessionView(updated), nil
}

// Submit commits the draft as the session's score matrix.
func (s *Service) Submit(ctx context.Context, id string) (types.Session, error) {
	store, _, err := s.components()
	if err != nil {
		return types.Session{}, err
	}

	updated, err := store.Update(ctx, id, func(sess *repository.Session) error {
		m, err := model.NewScoreMatrix(sess.Competencies, sess.Evaluators, sess.Draft)
		if err != nil {
			return err
		}
		sess.Matrix = &m
		sess.SubmittedAt = s.now()
		return nil
	})
	if err != nil {
		return types.Session{}, err
	}

	metrics.RecordSessionSubmitted()
	s.logger.Info(ctx, "score matrix submitted",
		logger.String("sessionID", id),
		logger.Int("competencies", updated.Matrix.Rows()),
		logger.Int("evaluators", updated.Matrix.Cols()),
	)
	return sessionView(updated), nil
}

// Results aggregates the submitted matrix. Returns ErrMissingInput before
// the first Submit.
func (s *Service) Results(ctx context.Context, id string) (model.Result, error) {
	m, err := s.submitted(ctx, id)
	if err != nil {
		return model.Result{}, err
	}
	return s.Aggregate(ctx, m)
}

func (s *Service) submitted(ctx context.Context, id string) (model.ScoreMatrix, error) {
	store, _, err := s.components()
	if err != nil {
		return model.ScoreMatrix{}, err
	}
	sess, err := store.Get(ctx, id)
	if err != nil {
		return model.ScoreMatrix{}, err
	}
	if !sess.Submitted() {
		return model.ScoreMatrix{}, fmt.Errorf("session %s: %w", id, ErrMissingInput)
	}
	return *sess.Matrix, nil
}

// Aggregate runs the aggregator on a caller-supplied matrix. No range check
// is applied.
func (s *Service) Aggregate(ctx context.Context, m model.ScoreMatrix) (model.Result, error) {
	_, agg, err := s.components()
	if err != nil {
		return model.Result{}, err
	}

	start := time.Now()
	res, err := agg.Aggregate(m)
	latency := float64(time.Since(start).Nanoseconds()) / 1e6

	switch {
	case err == nil:
		metrics.RecordAggregation("ok", latency)
		metrics.RecordMatrixShape(m.Rows(), m.Cols())
	case errors.Is(err, aggregate.ErrEmptyMatrix):
		metrics.RecordAggregation("empty_matrix", latency)
	case errors.Is(err, aggregate.ErrInsufficientEvaluators):
		metrics.RecordAggregation("insufficient_evaluators", latency)
	case errors.Is(err, aggregate.ErrNonFinite):
		metrics.RecordAggregation("non_finite", latency)
	default:
		metrics.RecordAggregation("error", latency)
	}
	if err != nil {
		s.logger.Debug(ctx, "aggregation rejected", logger.Error(err),
			logger.Int("competencies", m.Rows()), logger.Int("evaluators", m.Cols()))
		return model.Result{}, err
	}
	return res, nil
}

// Chart renders one of ChartKinds for a submitted session. Charts are
// withheld with the aggregation error when results cannot be computed.
func (s *Service) Chart(ctx context.Context, id, kind string) ([]byte, error) {
	if !slices.Contains(ChartKinds(), kind) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownChart, kind)
	}
	m, err := s.submitted(ctx, id)
	if err != nil {
		return nil, err
	}
	res, err := s.Aggregate(ctx, m)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	charts := s.charts
	s.mu.RUnlock()

	start := time.Now()
	var png []byte
	switch kind {
	case ChartRadar:
		png, err = charts.Radar(m)
	case ChartConsistency:
		png, err = charts.Bars("Consistency (variance)", res.Competencies, column(res.Competencies, res.Consistency))
	case ChartStdDev:
		png, err = charts.Bars("Standard deviation", res.Competencies, column(res.Competencies, res.StdPerCompetency))
	}
	if err != nil {
		metrics.RecordErrorByComponent("chart", kind)
		return nil, fmt.Errorf("render %s chart: %w", kind, err)
	}
	metrics.RecordChartRendered(kind, float64(time.Since(start).Nanoseconds())/1e6)
	return png, nil
}

// Rubric returns the rubric for the first matching language preference.
func (s *Service) Rubric(prefs ...string) (rubric.Rubric, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return rubric.Rubric{}, ErrNotStarted
	}
	return s.rubrics.Match(prefs...), nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":         s.started,
		"maxSessions":     s.maxSessions,
		"sessionTTL":      s.ttl.String(),
		"scoreMin":        s.scoreMin,
		"scoreMax":        s.scoreMax,
		"confidenceLevel": s.confidence,
		"topK":            s.topK,
		"competencies":    len(s.competencies),
		"evaluators":      len(s.evaluators),
	}

	if s.started {
		count := s.store.Count(context.Background())
		stats["activeSessions"] = count
		metrics.UpdateActiveSessions(count)
	}

	return stats
}

func (s *Service) checkScore(v float64) error {
	if math.IsNaN(v) || v < s.scoreMin || v > s.scoreMax {
		return fmt.Errorf("%w: %v not in [%v, %v]", ErrScoreOutOfRange, v, s.scoreMin, s.scoreMax)
	}
	return nil
}

func sessionView(sess repository.Session) types.Session {
	view := types.Session{
		ID:           sess.ID,
		Competencies: sess.Competencies,
		Evaluators:   sess.Evaluators,
		Scores:       sess.Draft,
		Submitted:    sess.Submitted(),
		CreatedAt:    sess.CreatedAt,
		UpdatedAt:    sess.UpdatedAt,
	}
	if sess.Submitted() {
		at := sess.SubmittedAt
		view.SubmittedAt = &at
	}
	return view
}

func column(names []string, values map[string]float64) []float64 {
	out := make([]float64, len(names))
	for i, name := range names {
		out[i] = values[name]
	}
	return out
}

func emptyGrid(rows, cols int) [][]float64 {
	grid := make([][]float64, rows)
	for i := range grid {
		grid[i] = make([]float64, cols)
	}
	return grid
}
