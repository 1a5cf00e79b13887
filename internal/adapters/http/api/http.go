// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"golang.org/x/time/rate"

	"github.com/okian/review360/internal/domain/model"
	"github.com/okian/review360/internal/domain/rubric"
	"github.com/okian/review360/internal/domain/types"
	"github.com/okian/review360/pkg/logger"
)

const defaultMaxBody = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	CreateSession(ctx context.Context, competencies, evaluators []string) (types.Session, error)
	Session(ctx context.Context, id string) (types.Session, error)
	DeleteSession(ctx context.Context, id string) error

	// Data entry.
	SetScore(ctx context.Context, id, competency, evaluator string, score float64) (types.Session, error)
	ReplaceScores(ctx context.Context, id string, competencies, evaluators []string, scores [][]float64) (types.Session, error)
	Submit(ctx context.Context, id string) (types.Session, error)

	// Presentation.
	Results(ctx context.Context, id string) (model.Result, error)
	Aggregate(ctx context.Context, m model.ScoreMatrix) (model.Result, error)
	Chart(ctx context.Context, id, kind string) ([]byte, error)
	Rubric(prefs ...string) (rubric.Rubric, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	deps     Dependencies
	validate *validator.Validate
	limiter  *rate.Limiter
	maxBody  int64
	logger   logger.Logger

	healthHandler *HealthHandler
	statsHandler  *StatsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		deps:          deps,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		maxBody:       defaultMaxBody,
		logger:        logger.Discard(),
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	// Operational endpoints are never rate limited.
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	s.handle(mux, "POST /sessions", "create_session", s.handleCreateSession)
	s.handle(mux, "GET /sessions/{id}", "get_session", s.handleGetSession)
	s.handle(mux, "DELETE /sessions/{id}", "delete_session", s.handleDeleteSession)
	s.handle(mux, "PATCH /sessions/{id}/scores", "set_score", s.handleSetScore)
	s.handle(mux, "PUT /sessions/{id}/matrix", "replace_matrix", s.handleReplaceMatrix)
	s.handle(mux, "POST /sessions/{id}/submit", "submit", s.handleSubmit)
	s.handle(mux, "GET /sessions/{id}/results", "results", s.handleResults)
	s.handle(mux, "GET /sessions/{id}/charts/{kind}", "chart", s.handleChart)
	s.handle(mux, "POST /aggregate", "aggregate", s.handleAggregate)
	s.handle(mux, "GET /rubric", "rubric", s.handleRubric)
}

func (s *Server) handle(mux *http.ServeMux, pattern, endpoint string, h http.HandlerFunc) {
	mux.HandleFunc(pattern, MetricsMiddleware(RateLimitMiddleware(h, s.limiter, endpoint), endpoint))
}

// decode reads a JSON body into v and validates it. An empty body leaves v
// untouched when allowEmpty is set.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if !(allowEmpty && errors.Is(err, io.EOF)) {
			return err
		}
	}
	return s.validate.Struct(v)
}

// fail logs server-side failures and writes the classified error.
func (s *Server) fail(r *http.Request, w http.ResponseWriter, err error) {
	status, _ := classify(err)
	if status >= statusInternalError {
		s.logger.Error(r.Context(), "request failed",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Error(err),
		)
	}
	writeFailure(w, err)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeJSON encodes v before committing status, so a value that cannot be
// encoded turns into a 500 instead of an empty success.
func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		buf.Reset()
		_ = json.NewEncoder(&buf).Encode(errorResponse{
			Code:    "internal_error",
			Message: "encode response: " + err.Error(),
		})
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

func writeFailure(w http.ResponseWriter, err error) {
	status, code := classify(err)
	writeError(w, status, code, err)
}
