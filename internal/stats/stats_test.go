package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPercentile(t *testing.T) {
	vals := []float64{1, 2, 3, 4, 5}
	assert.Equal(t, 1.0, Percentile(vals, 0))
	assert.Equal(t, 3.0, Percentile(vals, 50))
	assert.Equal(t, 5.0, Percentile(vals, 100))
	assert.Equal(t, 2.0, Percentile(vals, 25))
	assert.Zero(t, Percentile(nil, 50))
}

func TestPercentileInterpolates(t *testing.T) {
	assert.InDelta(t, 1.5, Percentile([]float64{1, 2}, 50), 1e-9)
}

func TestLongestStreak(t *testing.T) {
	wins, losses := LongestStreak([]float64{0.1, 0.2, 0.3, -0.1, -0.2, 0.05})
	assert.Equal(t, 3, wins)
	assert.Equal(t, 2, losses)
}

func TestLongestStreakZeroBreaks(t *testing.T) {
	wins, losses := LongestStreak([]float64{0.1, 0, 0.1, 0.1})
	assert.Equal(t, 2, wins)
	assert.Zero(t, losses)
}

func TestWinRate(t *testing.T) {
	assert.Equal(t, 0.5, WinRate([]float64{0.1, -0.1, 0.2, -0.2}))
	assert.Zero(t, WinRate(nil))
}

func TestChiSquareUniformShortSeries(t *testing.T) {
	assert.Zero(t, ChiSquareUniform([]float64{0.1, 0.2}))
}

func TestChiSquareUniformSkewedDigits(t *testing.T) {
	// Every return ends in the same digit: maximally non-uniform.
	same := make([]float64, 50)
	for i := range same {
		same[i] = 0.0005
	}
	varied := make([]float64, 50)
	for i := range varied {
		varied[i] = float64(i%10) / 10000
	}
	assert.Greater(t, ChiSquareUniform(same), ChiSquareUniform(varied))
}
