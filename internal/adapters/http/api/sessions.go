package api

import (
	"net/http"

	"github.com/okian/review360/internal/domain/types"
)

// createSessionRequest mirrors the OpenAPI schema for POST /sessions. Empty
// lists select the configured defaults.
type createSessionRequest struct {
	Competencies []string `json:"competencies" validate:"omitempty,unique,dive,required"`
	Evaluators   []string `json:"evaluators" validate:"omitempty,unique,dive,required"`
}

// setScoreRequest mirrors the OpenAPI schema for PATCH /sessions/{id}/scores.
type setScoreRequest struct {
	Competency string   `json:"competency" validate:"required"`
	Evaluator  string   `json:"evaluator" validate:"required"`
	Score      *float64 `json:"score" validate:"required"`
}

// matrixRequest carries a full score grid, rows in competency order.
type matrixRequest struct {
	Competencies []string    `json:"competencies" validate:"omitempty,unique,dive,required"`
	Evaluators   []string    `json:"evaluators" validate:"omitempty,unique,dive,required"`
	Scores       [][]float64 `json:"scores"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_session"
	var req createSessionRequest
	if err := s.decode(w, r, &req, true); err != nil {
		s.fail(r, w, WrapKind(op, ErrBadRequest, err))
		return
	}
	sess, err := s.deps.CreateSession(r.Context(), req.Competencies, req.Evaluators)
	if err != nil {
		s.fail(r, w, Wrap(op, err))
		return
	}
	w.Header().Set("Location", "/sessions/"+sess.ID)
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_session"
	sess, err := s.deps.Session(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(r, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_session"
	if err := s.deps.DeleteSession(r.Context(), r.PathValue("id")); err != nil {
		s.fail(r, w, Wrap(op, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.set_score"
	var req setScoreRequest
	if err := s.decode(w, r, &req, false); err != nil {
		s.fail(r, w, WrapKind(op, ErrBadRequest, err))
		return
	}
	sess, err := s.deps.SetScore(r.Context(), r.PathValue("id"), req.Competency, req.Evaluator, *req.Score)
	if err != nil {
		s.fail(r, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// handleReplaceMatrix replaces the draft and submits it in one step.
func (s *Server) handleReplaceMatrix(w http.ResponseWriter, r *http.Request) {
	const op = "api.replace_matrix"
	var req matrixRequest
	if err := s.decode(w, r, &req, false); err != nil {
		s.fail(r, w, WrapKind(op, ErrBadRequest, err))
		return
	}
	id := r.PathValue("id")
	if _, err := s.deps.ReplaceScores(r.Context(), id, req.Competencies, req.Evaluators, req.Scores); err != nil {
		s.fail(r, w, Wrap(op, err))
		return
	}
	sess, err := s.deps.Submit(r.Context(), id)
	if err != nil {
		s.fail(r, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit"
	sess, err := s.deps.Submit(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(r, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	const op = "api.results"
	res, err := s.deps.Results(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(r, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, types.NewResult(res))
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	const op = "api.chart"
	png, err := s.deps.Chart(r.Context(), r.PathValue("id"), r.PathValue("kind"))
	if err != nil {
		s.fail(r, w, Wrap(op, err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
