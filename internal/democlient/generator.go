package democlient

import (
	"math"
	"math/rand/v2"
)

// Shape of the demo score distribution on the 1..5 scale.
const (
	competencyMean   = 3.4
	competencySpread = 0.8
	raterSpread      = 0.7
	scaleMin         = 1
	scaleMax         = 5
)

// Generator produces demo scores. Each competency draws a level shared by
// all raters and every cell adds rater noise, so rows disagree to varying
// degrees. The same seed yields the same matrices. Not safe for concurrent
// use.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator creates a Generator seeded with seed.
func NewGenerator(seed uint64) *Generator {
	return &Generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Matrix returns rows x cols integer scores in [1,5].
func (g *Generator) Matrix(rows, cols int) [][]float64 {
	out := make([][]float64, rows)
	for i := range out {
		level := competencyMean + competencySpread*g.rng.NormFloat64()
		out[i] = make([]float64, cols)
		for j := range out[i] {
			v := math.Round(level + raterSpread*g.rng.NormFloat64())
			out[i][j] = math.Max(scaleMin, math.Min(scaleMax, v))
		}
	}
	return out
}
