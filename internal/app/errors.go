package service

import "errors"

// Sentinel kinds returned by the Service. The aggregation kinds
// (aggregate.ErrEmptyMatrix, aggregate.ErrInsufficientEvaluators) and
// repository.ErrNotFound pass through wrapped.
var (
	ErrNotStarted      = errors.New("service not started")
	ErrMissingInput    = errors.New("no score matrix has been submitted")
	ErrScoreOutOfRange = errors.New("score out of range")
	ErrUnknownCell     = errors.New("unknown competency or evaluator")
	ErrTooLarge        = errors.New("matrix exceeds configured limits")
	ErrUnknownChart    = errors.New("unknown chart kind")
)
