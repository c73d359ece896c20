// Package stats provides small pure helpers for sanity-checking a
// claimed return series before it enters the correlation corpus.
package stats

import (
	"math"
	"sort"
)

// Percentile returns the p-th percentile (0-100) of values using linear
// interpolation. Returns 0 for an empty slice.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// LongestStreak returns the longest run of consecutive wins (positive
// returns) and losses (negative returns). Zeros break both streaks.
func LongestStreak(returns []float64) (wins, losses int) {
	var curWin, curLoss int
	for _, r := range returns {
		switch {
		case r > 0:
			curWin++
			curLoss = 0
		case r < 0:
			curLoss++
			curWin = 0
		default:
			curWin, curLoss = 0, 0
		}
		if curWin > wins {
			wins = curWin
		}
		if curLoss > losses {
			losses = curLoss
		}
	}
	return wins, losses
}

// ChiSquareUniform computes the chi-square statistic of the last decimal
// digit distribution of the series against a uniform expectation. Large
// values suggest fabricated numbers. Returns 0 for fewer than 20 points.
func ChiSquareUniform(returns []float64) float64 {
	if len(returns) < 20 {
		return 0
	}
	var counts [10]int
	for _, r := range returns {
		d := int(math.Abs(r)*10000) % 10
		counts[d]++
	}
	expected := float64(len(returns)) / 10
	var chi float64
	for _, c := range counts {
		diff := float64(c) - expected
		chi += diff * diff / expected
	}
	return chi
}

// WinRate returns the fraction of strictly positive returns.
func WinRate(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	var wins int
	for _, r := range returns {
		if r > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(returns))
}
