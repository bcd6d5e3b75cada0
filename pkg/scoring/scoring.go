// Package scoring implements weighted composite scores built from capped
// sub-scores.  Both worker trust scoring and marketplace listing quality
// scoring are weighted sums of normalized components, so the aggregation
// lives here once.
package scoring

import "math"

// Component is one weighted contribution to a composite score.  Value is the
// normalized sub-score in [0,1]; values outside the range are clamped so a
// single out-of-range signal can never dominate the composite.
type Component struct {
	Name   string
	Weight float64
	Value  float64
}

// Composite returns the weighted sum of the components.  With weights that
// sum to W, the result lies in [0, W].
func Composite(components []Component) float64 {
	var total float64
	for _, c := range components {
		total += c.Weight * Clamp01(c.Value)
	}
	return total
}

// Clamp01 restricts v to [0,1].
func Clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Ratio normalizes value against max, capped at 1.  A non-positive max
// yields 0 rather than dividing by zero.
func Ratio(value, max float64) float64 {
	if max <= 0 {
		return 0
	}
	return Clamp01(value / max)
}

// LogRatio normalizes a count on a log10 scale: log10(count+1)/scale, capped
// at 1.  Used for volume signals (units sold) where the difference between 10
// and 100 matters more than between 5000 and 6000.
func LogRatio(count, scale float64) float64 {
	if count < 0 || scale <= 0 {
		return 0
	}
	return Clamp01(math.Log10(count+1) / scale)
}

// Bool maps a boolean signal to a full or empty sub-score.
func Bool(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Proximity scores how close value is to reference as 1 - |value-ref|/ref,
// floored at 0.  Identical values score 1; a value twice or half the
// reference scores 0 or 0.5 respectively.
func Proximity(value, reference float64) float64 {
	if reference <= 0 {
		return 0
	}
	return Clamp01(1 - math.Abs(value-reference)/reference)
}
