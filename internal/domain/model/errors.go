package model

import "errors"

// Sentinel errors for matrix construction.
var (
	ErrShapeMismatch = errors.New("score grid does not match competencies x evaluators")
	ErrDuplicateName = errors.New("duplicate name")
	ErrBlankName     = errors.New("blank name")
)
