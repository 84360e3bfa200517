package beat

import "math"

// pow10 is the small helper the noise gate and nothing else needs;
// kept local instead of scattering math.Pow(10, ...) call sites.
func pow10(x float64) float64 { return math.Pow(10, x) }

// cosTwoPi(x) = cos(2*pi*x), used by the Hamming window (spec.md §4.2).
func cosTwoPi(x float64) float64 { return math.Cos(2 * math.Pi * x) }

// gaussian evaluates the unnormalized Gaussian kernel exp(-x^2/width)
// used by the BPS fill (fillBPS); width is passed straight through as
// the denominator. The tempo and CBSS stages call math.Exp directly.
func gaussian(x, width float64) float64 {
	return math.Exp(-(x * x) / width)
}

// floorDivInt divides a by b rounding toward negative infinity,
// matching Python's `//` operator exactly — Go's native `/` truncates
// toward zero, which differs from Python for mixed-sign operands. No
// stage calls it: the CBSS back-look bound in backLookPhi compares
// against the real value -tempo_lag/2 instead.
func floorDivInt(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// clampInt clamps v into [lo, hi].
func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
