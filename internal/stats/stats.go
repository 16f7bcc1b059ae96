// Package stats summarises per-trial samples. Empty samples are a normal
// outcome of sweeps and yield zero instead of an error.
package stats

import (
	"math"

	"github.com/montanaflynn/stats"
)

// Z95 is the normal quantile used for 95% confidence intervals.
const Z95 = 1.96

// Mean returns the arithmetic mean, or 0 for an empty sample.
func Mean(xs []float64) float64 {
	m, err := stats.Mean(xs)
	if err != nil {
		return 0
	}
	return m
}

// StdDev returns the population standard deviation, or 0 for an empty sample.
func StdDev(xs []float64) float64 {
	sd, err := stats.StandardDeviationPopulation(xs)
	if err != nil {
		return 0
	}
	return sd
}

// CI returns the half-width z*std/sqrt(n). It is 0 when n < 2.
func CI(std float64, n int, z float64) float64 {
	if n < 2 {
		return 0
	}
	return z * std / math.Sqrt(float64(n))
}

// CI95 is CI at the 95% level.
func CI95(std float64, n int) float64 {
	return CI(std, n, Z95)
}

// CumulativeMeans returns the running mean after each sample.
func CumulativeMeans(xs []float64) []float64 {
	out := make([]float64, len(xs))
	sum := 0.0
	for i, x := range xs {
		sum += x
		out[i] = sum / float64(i+1)
	}
	return out
}
