// Package types contains the views shared by the service and the HTTP API.
package types

import (
	"time"

	"github.com/okian/review360/internal/domain/model"
)

// Session is the client view of a review session.
type Session struct {
	ID           string      `json:"id"`
	Competencies []string    `json:"competencies"`
	Evaluators   []string    `json:"evaluators"`
	Scores       [][]float64 `json:"scores"`
	Submitted    bool        `json:"submitted"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
	SubmittedAt  *time.Time  `json:"submitted_at,omitempty"`
}

// CompetencyStats is one row of the result table.
type CompetencyStats struct {
	Name     string  `json:"name"`
	Mean     float64 `json:"mean"`
	Std      float64 `json:"std"`
	Variance float64 `json:"variance"`
	CILower  float64 `json:"ci_lower"`
	CIUpper  float64 `json:"ci_upper"`
}

// EvaluatorMean is the average score one evaluator gave.
type EvaluatorMean struct {
	Name string  `json:"name"`
	Mean float64 `json:"mean"`
}

// Ranked is an entry of the strengths or development areas lists.
type Ranked struct {
	Competency string  `json:"competency"`
	Mean       float64 `json:"mean"`
}

// Result is the ordered view of an aggregation. Arrays follow matrix order
// so clients do not depend on JSON object key order.
type Result struct {
	Competencies     []CompetencyStats `json:"competencies"`
	Evaluators       []EvaluatorMean   `json:"evaluators"`
	TopStrengths     []Ranked          `json:"top_strengths"`
	BottomAreas      []Ranked          `json:"bottom_areas"`
	ConfidenceLevel  float64           `json:"confidence_level"`
	DegreesOfFreedom int               `json:"degrees_of_freedom"`
}

// NewResult flattens a model.Result into its ordered view.
func NewResult(r model.Result) Result {
	out := Result{
		Competencies:     make([]CompetencyStats, 0, len(r.Competencies)),
		Evaluators:       make([]EvaluatorMean, 0, len(r.Evaluators)),
		TopStrengths:     ranked(r.TopStrengths),
		BottomAreas:      ranked(r.BottomAreas),
		ConfidenceLevel:  r.ConfidenceLevel,
		DegreesOfFreedom: r.DegreesOfFreedom,
	}
	for _, name := range r.Competencies {
		ci := r.ConfidenceInterval[name]
		out.Competencies = append(out.Competencies, CompetencyStats{
			Name:     name,
			Mean:     r.RowMean[name],
			Std:      r.StdPerCompetency[name],
			Variance: r.Consistency[name],
			CILower:  ci.Lower,
			CIUpper:  ci.Upper,
		})
	}
	for _, name := range r.Evaluators {
		out.Evaluators = append(out.Evaluators, EvaluatorMean{Name: name, Mean: r.MeanPerEvaluator[name]})
	}
	return out
}

func ranked(in []model.Ranked) []Ranked {
	out := make([]Ranked, len(in))
	for i, r := range in {
		out[i] = Ranked{Competency: r.Competency, Mean: r.Mean}
	}
	return out
}
