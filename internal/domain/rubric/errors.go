package rubric

import "errors"

// ErrInvalidRubric reports a malformed rubric document.
var ErrInvalidRubric = errors.New("invalid rubric")
