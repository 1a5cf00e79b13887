package democlient

import (
	"fmt"
	"math"
	"slices"

	"github.com/okian/review360/internal/domain/aggregate"
	"github.com/okian/review360/internal/domain/model"
	"github.com/okian/review360/internal/domain/types"
)

// verifyResult recomputes the aggregation of m locally with the server's
// confidence level and list length and compares it with remote.
func verifyResult(m model.ScoreMatrix, remote types.Result) error {
	agg := aggregate.New(
		aggregate.WithConfidenceLevel(remote.ConfidenceLevel),
		aggregate.WithTopK(max(len(remote.TopStrengths), 1)),
	)
	res, err := agg.Aggregate(m)
	if err != nil {
		return fmt.Errorf("local aggregation: %w", err)
	}
	return compareResults(types.NewResult(res), remote)
}

// compareResults reports the first difference between two result views.
func compareResults(local, remote types.Result) error {
	if local.DegreesOfFreedom != remote.DegreesOfFreedom {
		return fmt.Errorf("%w: degrees of freedom %d != %d", ErrMismatch, remote.DegreesOfFreedom, local.DegreesOfFreedom)
	}
	if len(local.Competencies) != len(remote.Competencies) || len(local.Evaluators) != len(remote.Evaluators) {
		return fmt.Errorf("%w: shape %dx%d != %dx%d", ErrMismatch,
			len(remote.Competencies), len(remote.Evaluators), len(local.Competencies), len(local.Evaluators))
	}
	for i, want := range local.Competencies {
		got := remote.Competencies[i]
		if got.Name != want.Name {
			return fmt.Errorf("%w: competency %d is %q, want %q", ErrMismatch, i, got.Name, want.Name)
		}
		for _, f := range []struct {
			field     string
			got, want float64
		}{
			{"mean", got.Mean, want.Mean},
			{"std", got.Std, want.Std},
			{"variance", got.Variance, want.Variance},
			{"ci_lower", got.CILower, want.CILower},
			{"ci_upper", got.CIUpper, want.CIUpper},
		} {
			if !approxEqual(f.got, f.want) {
				return fmt.Errorf("%w: %s %s %v != %v", ErrMismatch, want.Name, f.field, f.got, f.want)
			}
		}
	}
	for j, want := range local.Evaluators {
		got := remote.Evaluators[j]
		if got.Name != want.Name || !approxEqual(got.Mean, want.Mean) {
			return fmt.Errorf("%w: evaluator %d is %s=%v, want %s=%v", ErrMismatch, j, got.Name, got.Mean, want.Name, want.Mean)
		}
	}
	if !slices.EqualFunc(local.TopStrengths, remote.TopStrengths, sameRank) {
		return fmt.Errorf("%w: top strengths %v != %v", ErrMismatch, remote.TopStrengths, local.TopStrengths)
	}
	if !slices.EqualFunc(local.BottomAreas, remote.BottomAreas, sameRank) {
		return fmt.Errorf("%w: bottom areas %v != %v", ErrMismatch, remote.BottomAreas, local.BottomAreas)
	}
	return nil
}

func sameRank(a, b types.Ranked) bool {
	return a.Competency == b.Competency && approxEqual(a.Mean, b.Mean)
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) <= tolerance*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}
