// Package stats holds the small descriptive-statistics primitives shared by
// the outlier filter and the accuracy reports.
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary describes a sample of values.
type Summary struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"` // population standard deviation
}

// Summarize computes a Summary. An empty sample yields the zero Summary.
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	mean, variance := stat.PopMeanVariance(values, nil)
	return Summary{
		Count:  len(values),
		Min:    floats.Min(values),
		Max:    floats.Max(values),
		Mean:   mean,
		Median: Median(values),
		Std:    math.Sqrt(variance),
	}
}

// Mean returns the arithmetic mean, or 0 for an empty sample.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// Median returns the middle value, averaging the two middle values of an
// even-sized sample. An empty sample yields 0.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := sortedCopy(values)
	return medianSorted(sorted)
}

// Quartiles returns the lower quartile, median and upper quartile using the
// median-of-halves method: for odd n the middle value is excluded from both
// halves. ok is false for an empty sample.
func Quartiles(values []float64) (q1, q2, q3 float64, ok bool) {
	if len(values) == 0 {
		return 0, 0, 0, false
	}
	sorted := sortedCopy(values)
	n := len(sorted)
	q2 = medianSorted(sorted)
	q1 = medianSorted(sorted[:n/2])
	q3 = medianSorted(sorted[(n+1)/2:])
	return q1, q2, q3, true
}

// IQROutliers returns the indices of values outside
// [q1 - k*IQR, q3 + k*IQR]. The lower fence is clamped at zero because wait
// times are non-negative. This is a whole-sample check with no notion of
// zone or congestion: reports count with it, the two-stage filter does the
// cleaning.
func IQROutliers(values []float64, k float64) map[int]struct{} {
	out := make(map[int]struct{})
	q1, _, q3, ok := Quartiles(values)
	if !ok {
		return out
	}
	iqr := q3 - q1
	lower := math.Max(0, q1-k*iqr)
	upper := q3 + k*iqr
	for i, v := range values {
		if v < lower || v > upper {
			out[i] = struct{}{}
		}
	}
	return out
}

func sortedCopy(values []float64) []float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return sorted
}

func medianSorted(sorted []float64) float64 {
	m := len(sorted)
	if m == 0 {
		return 0
	}
	if m%2 == 0 {
		return (sorted[m/2-1] + sorted[m/2]) / 2
	}
	return sorted[m/2]
}
