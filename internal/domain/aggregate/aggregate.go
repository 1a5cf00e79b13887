// Package aggregate turns a competency x evaluator score matrix into the
// summary statistics of a 360-degree review.
//
// Aggregation is a pure function of its input: no I/O, no shared state and
// no randomness. Callers own the matrix and pass it in by value.
package aggregate

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/okian/review360/internal/domain/model"
)

// Default aggregation parameters.
const (
	DefaultConfidenceLevel = 0.95
	DefaultTopK            = 3
)

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithConfidenceLevel sets the two-sided confidence level of the per-competency
// intervals. Values outside (0, 1) are ignored.
func WithConfidenceLevel(level float64) Option {
	return func(a *Aggregator) {
		if level > 0 && level < 1 {
			a.confidence = level
		}
	}
}

// WithTopK sets how many competencies are reported as strengths and as areas
// for improvement. Non-positive values are ignored.
func WithTopK(k int) Option {
	return func(a *Aggregator) {
		if k > 0 {
			a.topK = k
		}
	}
}

// Aggregator computes Results from ScoreMatrix values. It holds only
// immutable parameters and is safe for concurrent use.
type Aggregator struct {
	confidence float64
	topK       int
}

// New creates an Aggregator with configuration options.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{
		confidence: DefaultConfidenceLevel,
		topK:       DefaultTopK,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

var defaultAggregator = New()

// Aggregate runs the default Aggregator (95% intervals, top/bottom 3).
func Aggregate(m model.ScoreMatrix) (model.Result, error) {
	return defaultAggregator.Aggregate(m)
}

// ConfidenceLevel returns the configured interval level.
func (a *Aggregator) ConfidenceLevel() float64 { return a.confidence }

// TopK returns the configured strengths/areas length.
func (a *Aggregator) TopK() int { return a.topK }

// Aggregate computes column means, row means, row sample standard deviation
// and variance (divisor C-1), Student-t confidence intervals around the row
// means, and the stable top/bottom competencies by row mean.
//
// It returns ErrEmptyMatrix when the matrix has no rows or no columns,
// ErrInsufficientEvaluators when it has a single column and ErrNonFinite when
// a score is NaN or infinite or a statistic overflows. No partial result is
// ever returned.
func (a *Aggregator) Aggregate(m model.ScoreMatrix) (model.Result, error) {
	rows, cols := m.Rows(), m.Cols()
	if m.IsEmpty() {
		return model.Result{}, fmt.Errorf("%w: %d competencies x %d evaluators", ErrEmptyMatrix, rows, cols)
	}
	if cols < 2 {
		return model.Result{}, fmt.Errorf("%w: got %d", ErrInsufficientEvaluators, cols)
	}

	if i, j, ok := firstNonFinite(m); ok {
		return model.Result{}, fmt.Errorf("%w: score at row %d, column %d", ErrNonFinite, i, j)
	}

	competencies := m.Competencies()
	evaluators := m.Evaluators()
	df := cols - 1

	res := model.Result{
		Competencies:       competencies,
		Evaluators:         evaluators,
		MeanPerEvaluator:   make(map[string]float64, cols),
		RowMean:            make(map[string]float64, rows),
		StdPerCompetency:   make(map[string]float64, rows),
		Consistency:        make(map[string]float64, rows),
		ConfidenceInterval: make(map[string]model.Interval, rows),
		ConfidenceLevel:    a.confidence,
		DegreesOfFreedom:   df,
	}

	for j, evaluator := range evaluators {
		mean := stat.Mean(m.Col(j), nil)
		if !finite(mean) {
			return model.Result{}, fmt.Errorf("%w: mean of evaluator %q", ErrNonFinite, evaluator)
		}
		res.MeanPerEvaluator[evaluator] = mean
	}

	t := criticalValue(a.confidence, df)
	sqrtN := math.Sqrt(float64(cols))
	means := make([]float64, rows)
	for i, competency := range competencies {
		mean, variance := stat.MeanVariance(m.Row(i), nil)
		std := math.Sqrt(variance)
		half := t * std / sqrtN
		ci := model.Interval{Lower: mean - half, Upper: mean + half}
		if !finite(mean) || !finite(variance) || !finite(ci.Lower) || !finite(ci.Upper) {
			return model.Result{}, fmt.Errorf("%w: statistics of competency %q", ErrNonFinite, competency)
		}

		means[i] = mean
		res.RowMean[competency] = mean
		res.Consistency[competency] = variance
		res.StdPerCompetency[competency] = std
		res.ConfidenceInterval[competency] = ci
	}

	res.TopStrengths = rank(competencies, means, a.topK, func(x, y float64) int { return cmp.Compare(y, x) })
	res.BottomAreas = rank(competencies, means, a.topK, cmp.Compare[float64])
	return res, nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// firstNonFinite reports the position of the first NaN or infinite score.
func firstNonFinite(m model.ScoreMatrix) (int, int, bool) {
	for i := 0; i < m.Rows(); i++ {
		for j := 0; j < m.Cols(); j++ {
			if !finite(m.At(i, j)) {
				return i, j, true
			}
		}
	}
	return 0, 0, false
}

// criticalValue returns the two-sided Student-t quantile for level with df
// degrees of freedom.
func criticalValue(level float64, df int) float64 {
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(df)}
	return dist.Quantile(1 - (1-level)/2)
}

// rank stable-sorts row indices by means using compare and returns the first
// k as Ranked entries. Equal means keep their original row order.
func rank(names []string, means []float64, k int, compare func(a, b float64) int) []model.Ranked {
	idx := make([]int, len(means))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int { return compare(means[a], means[b]) })

	k = min(k, len(idx))
	out := make([]model.Ranked, k)
	for n, i := range idx[:k] {
		out[n] = model.Ranked{Competency: names[i], Mean: means[i]}
	}
	return out
}
