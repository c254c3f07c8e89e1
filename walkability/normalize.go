package walkability

import (
	"math"
	"strings"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/floats"
)

// DegeneratePolicy decides the normalized score when all raw scores are equal.
type DegeneratePolicy int

const (
	// DegenerateZero gives every cell 0.
	DegenerateZero DegeneratePolicy = iota
	// DegenerateNaN gives every cell NaN, as a plain division by zero would.
	DegenerateNaN
)

func (p DegeneratePolicy) String() string {
	if p == DegenerateNaN {
		return "nan"
	}
	return "zero"
}

func ParseDegeneratePolicy(s string) (DegeneratePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "zero", "0":
		return DegenerateZero, nil
	case "nan":
		return DegenerateNaN, nil
	}
	return DegenerateZero, eris.Wrapf(ErrInvalidConfig, "walkability: unknown degenerate policy %q", s)
}

// MinMax rescales values linearly so the minimum maps to 0 and the maximum to
// 100. When all values are equal the policy decides the outcome.
func MinMax(values []float64, policy DegeneratePolicy) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	lo, hi := floats.Min(values), floats.Max(values)
	if hi == lo {
		fill := 0.
		if policy == DegenerateNaN {
			fill = math.NaN()
		}
		for i := range out {
			out[i] = fill
		}
		return out
	}
	span := hi - lo
	for i, v := range values {
		out[i] = 100 * (v - lo) / span
	}
	return out
}

// Normalize sets the NormalizedScore of every cell from the raw scores of the
// whole grid.
func Normalize(grid *Grid, policy DegeneratePolicy) {
	if grid == nil || len(grid.Cells) == 0 {
		return
	}
	for i, v := range MinMax(grid.RawScores(), policy) {
		grid.Cells[i].NormalizedScore = v
	}
}
