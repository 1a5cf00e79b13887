package aggregate

import "errors"

// Sentinel errors returned by Aggregate. Callers match them with errors.Is.
var (
	ErrEmptyMatrix            = errors.New("score matrix has no competencies or no evaluators")
	ErrInsufficientEvaluators = errors.New("at least two evaluators are required")
	ErrNonFinite              = errors.New("score or statistic is not a finite number")
)
