package windowing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHannSymmetric(t *testing.T) {
	h := NewHann(5, true)
	assert.Equal(t, 5, h.Size())
	assert.InDeltaSlice(t, []float64{0, 0.5, 1, 0.5, 0}, h.Coefficients(), 1e-12)
}

func TestHannPeriodic(t *testing.T) {
	h := NewHann(4, false)
	assert.InDeltaSlice(t, []float64{0, 0.5, 1, 0.5}, h.Coefficients(), 1e-12)
}

func TestHannApplyInPlace(t *testing.T) {
	h := NewHann(5, true)

	signal := []float64{2, 2, 2, 2, 2}
	require.NoError(t, h.ApplyInPlace(signal))
	assert.InDeltaSlice(t, []float64{0, 1, 2, 1, 0}, signal, 1e-12)

	assert.Error(t, h.ApplyInPlace([]float64{1, 2}))
}

func TestFallingHalf(t *testing.T) {
	assert.Empty(t, NewFallingHalf(0).Coefficients())
	assert.Equal(t, []float64{1}, NewFallingHalf(1).Coefficients())
	assert.InDeltaSlice(t, []float64{1, 0.5, 0}, NewFallingHalf(3).Coefficients(), 1e-12)

	taper := NewFallingHalf(64)
	require.Equal(t, 64, taper.Size())
	coeffs := taper.Coefficients()
	assert.InDelta(t, 1.0, coeffs[0], 1e-12)
	assert.InDelta(t, 0.0, coeffs[63], 1e-12)
	for i := 1; i < len(coeffs); i++ {
		assert.LessOrEqual(t, coeffs[i], coeffs[i-1])
	}

	signal := []float64{4, 4, 4}
	require.NoError(t, NewFallingHalf(3).ApplyInPlace(signal))
	assert.InDeltaSlice(t, []float64{4, 2, 0}, signal, 1e-12)
}
