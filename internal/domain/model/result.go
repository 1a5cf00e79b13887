package model

// Interval is a closed confidence interval around a row mean.
type Interval struct {
	Lower float64
	Upper float64
}

// Ranked pairs a competency with its row mean.
type Ranked struct {
	Competency string
	Mean       float64
}

// Result holds the summary statistics derived from one ScoreMatrix.
// It is produced fresh on every aggregation and never mutated afterwards.
type Result struct {
	// Competencies and Evaluators keep the matrix ordering for presentation.
	Competencies []string
	Evaluators   []string

	MeanPerEvaluator   map[string]float64
	RowMean            map[string]float64
	StdPerCompetency   map[string]float64
	Consistency        map[string]float64
	ConfidenceInterval map[string]Interval

	TopStrengths []Ranked
	BottomAreas  []Ranked

	ConfidenceLevel  float64
	DegreesOfFreedom int
}
