// Package stats provides the descriptive and inferential statistics used
// to summarize Monte Carlo replica results: percentile summaries, two-way
// ANOVA with Type II sums of squares, and Tukey HSD post-hoc comparisons.
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary is the descriptive block computed over one KPI column. Std is
// the population standard deviation; percentiles interpolate linearly
// between order statistics.
type Summary struct {
	Mean float64
	Std  float64
	Min  float64
	Max  float64
	P25  float64
	P50  float64
	P75  float64
	P95  float64
}

// Summarize reduces a sample to its Summary. ok is false for an empty
// sample.
func Summarize(values []float64) (s Summary, ok bool) {
	if len(values) == 0 {
		return Summary{}, false
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return Summary{
		Mean: stat.Mean(sorted, nil),
		Std:  stat.PopStdDev(sorted, nil),
		Min:  floats.Min(sorted),
		Max:  floats.Max(sorted),
		P25:  PercentileSorted(sorted, 25),
		P50:  PercentileSorted(sorted, 50),
		P75:  PercentileSorted(sorted, 75),
		P95:  PercentileSorted(sorted, 95),
	}, true
}

// Mean returns the arithmetic mean, or 0 for an empty sample.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// PopStd returns the population standard deviation, or 0 for an empty
// sample.
func PopStd(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.PopStdDev(values, nil)
}

// SampleStd returns the Bessel-corrected standard deviation, or 0 for
// samples smaller than two.
func SampleStd(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	return stat.StdDev(values, nil)
}

// Percentile sorts a copy of the sample and returns its p-th percentile.
func Percentile(values []float64, p float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return PercentileSorted(sorted, p)
}

// PercentileSorted returns the p-th percentile (p in [0,100]) of an
// already-sorted sample, interpolating linearly at rank h = (n−1)·p/100.
func PercentileSorted(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}
	h := (float64(n) - 1) * p / 100
	lo := int(math.Floor(h))
	if lo >= n-1 {
		return sorted[n-1]
	}
	frac := h - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}
