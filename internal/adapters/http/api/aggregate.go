package api

import (
	"net/http"

	"github.com/okian/review360/internal/domain/model"
	"github.com/okian/review360/internal/domain/types"
)

// handleAggregate runs a stateless aggregation of the posted matrix. Scores
// are not range checked.
func (s *Server) handleAggregate(w http.ResponseWriter, r *http.Request) {
	const op = "api.aggregate"
	var req matrixRequest
	if err := s.decode(w, r, &req, false); err != nil {
		s.fail(r, w, WrapKind(op, ErrBadRequest, err))
		return
	}
	m, err := model.NewScoreMatrix(req.Competencies, req.Evaluators, req.Scores)
	if err != nil {
		s.fail(r, w, WrapKind(op, ErrBadRequest, err))
		return
	}
	res, err := s.deps.Aggregate(r.Context(), m)
	if err != nil {
		s.fail(r, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, types.NewResult(res))
}

// handleRubric serves the rating help. ?lang= wins over Accept-Language.
func (s *Server) handleRubric(w http.ResponseWriter, r *http.Request) {
	const op = "api.rubric"
	rb, err := s.deps.Rubric(r.URL.Query().Get("lang"), r.Header.Get("Accept-Language"))
	if err != nil {
		s.fail(r, w, Wrap(op, err))
		return
	}
	w.Header().Set("Content-Language", rb.Language)
	writeJSON(w, http.StatusOK, rb)
}
