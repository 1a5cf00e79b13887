// Package repository holds review sessions between requests.
package repository

import (
	"context"
	"time"

	"github.com/okian/review360/internal/domain/model"
)

// Session is one review in progress: the layout chosen at creation, the
// draft grid being edited and, once submitted, the committed score matrix.
type Session struct {
	ID           string
	Competencies []string
	Evaluators   []string
	// Draft is indexed [competency][evaluator].
	Draft [][]float64
	// Matrix is nil until the draft is submitted.
	Matrix      *model.ScoreMatrix
	CreatedAt   time.Time
	UpdatedAt   time.Time
	SubmittedAt time.Time
}

// Submitted reports whether a matrix has been committed.
func (s Session) Submitted() bool { return s.Matrix != nil }

// Clone returns a deep copy. The submitted matrix is immutable and shared.
func (s Session) Clone() Session {
	out := s
	out.Competencies = append([]string(nil), s.Competencies...)
	out.Evaluators = append([]string(nil), s.Evaluators...)
	if s.Draft != nil {
		out.Draft = make([][]float64, len(s.Draft))
		for i, row := range s.Draft {
			out.Draft[i] = append([]float64(nil), row...)
		}
	}
	return out
}

// Store provides read/write access to sessions.
type Store interface {
	// Create stores a new session. Returns ErrAlreadyExists on an ID clash.
	Create(ctx context.Context, s Session) (Session, error)

	// Get returns a copy of the session or ErrNotFound.
	Get(ctx context.Context, id string) (Session, error)

	// Update applies fn to a copy of the session and stores the result when
	// fn succeeds. The whole read-modify-write runs under the store lock.
	Update(ctx context.Context, id string, fn func(*Session) error) (Session, error)

	// Delete removes the session. Returns ErrNotFound if it is unknown.
	Delete(ctx context.Context, id string) error

	// Count returns the number of live sessions.
	Count(ctx context.Context) int

	// Close stops background work.
	Close() error
}
