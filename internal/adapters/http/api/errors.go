package api

import (
	"errors"
	"net/http"

	"github.com/okian/review360/internal/adapters/repository"
	service "github.com/okian/review360/internal/app"
	"github.com/okian/review360/internal/domain/aggregate"
	"github.com/okian/review360/internal/domain/model"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest  = errors.New("bad request")
	ErrRateLimited = errors.New("rate limited")
)

// Error tags a failure with the handler operation that produced it. Kind is
// an API sentinel; Err is the underlying cause. Both take part in errors.Is.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Kind != nil && e.Err != nil:
		return e.Op + ": " + e.Kind.Error() + ": " + e.Err.Error()
	case e.Kind != nil:
		return e.Op + ": " + e.Kind.Error()
	case e.Err != nil:
		return e.Op + ": " + e.Err.Error()
	default:
		return e.Op
	}
}

func (e *Error) Unwrap() []error {
	var errs []error
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// NewKind returns an error of the given kind without a cause.
func NewKind(op string, kind error) error {
	return &Error{Op: op, Kind: kind}
}

// WrapKind returns an error of the given kind wrapping err.
func WrapKind(op string, kind, err error) error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// Wrap tags err with op and leaves classification to the cause.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// classify maps an error chain to an HTTP status and a response code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, service.ErrScoreOutOfRange),
		errors.Is(err, service.ErrUnknownCell),
		errors.Is(err, service.ErrTooLarge),
		errors.Is(err, service.ErrUnknownChart),
		errors.Is(err, model.ErrShapeMismatch),
		errors.Is(err, model.ErrDuplicateName),
		errors.Is(err, model.ErrBlankName):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrMissingInput):
		return http.StatusConflict, "missing_input"
	case errors.Is(err, aggregate.ErrEmptyMatrix):
		return http.StatusUnprocessableEntity, "empty_matrix"
	case errors.Is(err, aggregate.ErrInsufficientEvaluators):
		return http.StatusUnprocessableEntity, "insufficient_evaluators"
	case errors.Is(err, aggregate.ErrNonFinite):
		return http.StatusUnprocessableEntity, "non_finite"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
