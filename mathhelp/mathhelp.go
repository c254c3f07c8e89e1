package mathhelp

import "math"

// DefaultTolerance is the relative tolerance used when a float ratio is
// expected to land on a whole number.
const DefaultTolerance = 1e-9

// StepCount returns how many steps of the given size are needed to cover span,
// i.e. ceil(span/step), without letting floating point noise add a step.
// A span that is an exact multiple of step (give or take tol, relative) yields
// exactly span/step steps. Always returns at least 1 for a positive span.
func StepCount(span, step, tol float64) int {
	if span <= 0 || step <= 0 {
		return 0
	}
	ratio := span / step
	nearest := math.Round(ratio)
	if math.Abs(ratio-nearest) <= tol*math.Max(1, nearest) {
		ratio = nearest
	}
	n := int(math.Ceil(ratio))
	if n < 1 {
		return 1
	}
	return n
}

// IsFinite reports whether f is neither NaN nor infinite.
func IsFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
