// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
)

// ScoreMatrix is a competency x evaluator table of scores.
// Rows are competencies and columns are evaluator roles, both in the order
// supplied by the caller. The zero value is an empty matrix.
type ScoreMatrix struct {
	competencies []string
	evaluators   []string
	values       [][]float64
}

// NewScoreMatrix builds a matrix from ordered row and column names and a
// row-major value grid. Names must be unique and non-blank and the grid must
// be rectangular with one row per competency and one column per evaluator.
// Empty matrices are accepted; value ranges are not checked.
func NewScoreMatrix(competencies, evaluators []string, values [][]float64) (ScoreMatrix, error) {
	if err := checkNames("competency", competencies); err != nil {
		return ScoreMatrix{}, err
	}
	if err := checkNames("evaluator", evaluators); err != nil {
		return ScoreMatrix{}, err
	}
	if len(values) != len(competencies) {
		return ScoreMatrix{}, fmt.Errorf("%w: %d rows for %d competencies", ErrShapeMismatch, len(values), len(competencies))
	}
	for i, row := range values {
		if len(row) != len(evaluators) {
			return ScoreMatrix{}, fmt.Errorf("%w: row %q has %d values for %d evaluators",
				ErrShapeMismatch, competencies[i], len(row), len(evaluators))
		}
	}

	return ScoreMatrix{
		competencies: cloneStrings(competencies),
		evaluators:   cloneStrings(evaluators),
		values:       cloneGrid(values),
	}, nil
}

func checkNames(kind string, names []string) error {
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%w: %s", ErrBlankName, kind)
		}
		if _, ok := seen[name]; ok {
			return fmt.Errorf("%w: %s %q", ErrDuplicateName, kind, name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// Rows returns the number of competencies.
func (m ScoreMatrix) Rows() int { return len(m.competencies) }

// Cols returns the number of evaluator roles.
func (m ScoreMatrix) Cols() int { return len(m.evaluators) }

// IsEmpty reports whether the matrix has no rows or no columns.
func (m ScoreMatrix) IsEmpty() bool { return m.Rows() == 0 || m.Cols() == 0 }

// Competencies returns a copy of the row names.
func (m ScoreMatrix) Competencies() []string { return cloneStrings(m.competencies) }

// Evaluators returns a copy of the column names.
func (m ScoreMatrix) Evaluators() []string { return cloneStrings(m.evaluators) }

// Values returns a copy of the value grid.
func (m ScoreMatrix) Values() [][]float64 { return cloneGrid(m.values) }

// At returns the score at row i, column j.
func (m ScoreMatrix) At(i, j int) float64 { return m.values[i][j] }

// Row returns a copy of row i.
func (m ScoreMatrix) Row(i int) []float64 {
	out := make([]float64, len(m.values[i]))
	copy(out, m.values[i])
	return out
}

// Col returns a copy of column j.
func (m ScoreMatrix) Col(j int) []float64 {
	out := make([]float64, len(m.values))
	for i := range m.values {
		out[i] = m.values[i][j]
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneGrid(in [][]float64) [][]float64 {
	if in == nil {
		return nil
	}
	out := make([][]float64, len(in))
	for i, row := range in {
		out[i] = make([]float64, len(row))
		copy(out[i], row)
	}
	return out
}
