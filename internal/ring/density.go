package ring

import "math"

// radiusScale converts ring radii from meters to the unit convention used by
// the reference mining tools. Stored densities were computed with this factor
// and the 6-decimal rounding below; both are a compatibility contract.
const radiusScale = 1.0 / 1000.0

// Density computes ring density from mass (megatons) and the inner and outer
// ring radii (meters). It returns ok=false instead of an error when the
// inputs cannot produce a meaningful density: missing or non-positive mass,
// non-positive radii, or inner >= outer. Zero is never returned as a valid
// density stand-in.
func Density(massMT, innerRadiusM, outerRadiusM float64) (density float64, ok bool) {
	if massMT <= 0 || innerRadiusM <= 0 || outerRadiusM <= 0 {
		return 0, false
	}
	if innerRadiusM >= outerRadiusM {
		return 0, false
	}

	inner := innerRadiusM * radiusScale
	outer := outerRadiusM * radiusScale
	area := math.Pi * (outer*outer - inner*inner)

	return round6(massMT / area), true
}

// DensityPtr is the pointer-shaped variant used by the reconciler and the
// adapters, which carry optional fields as pointers. Any nil input yields nil.
func DensityPtr(massMT, innerRadiusM, outerRadiusM *float64) *float64 {
	if massMT == nil || innerRadiusM == nil || outerRadiusM == nil {
		return nil
	}
	d, ok := Density(*massMT, *innerRadiusM, *outerRadiusM)
	if !ok {
		return nil
	}
	return &d
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
