package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocalMaxima(t *testing.T) {
	tests := []struct {
		name string
		data []float64
		want []int
	}{
		{"empty", nil, []int{}},
		{"too short", []float64{1, 2}, []int{}},
		{"flat", []float64{3, 3, 3, 3}, []int{}},
		{"increasing", []float64{1, 2, 3, 4}, []int{}},
		{"decreasing", []float64{4, 3, 2, 1}, []int{}},
		{"plateau", []float64{1, 5, 5, 1}, []int{}},
		{"two peaks", []float64{1, 3, 2, 2, 6, 1}, []int{1, 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LocalMaxima(tt.data))
		})
	}
}

func TestParabolicVertex(t *testing.T) {
	// y = -(x-0.25)² + 2
	f := func(x float64) float64 { return -(x-0.25)*(x-0.25) + 2 }
	offset, height := ParabolicVertex(f(-1), f(0), f(1))
	assert.InDelta(t, 0.25, offset, 1e-12)
	assert.InDelta(t, 2.0, height, 1e-12)

	offset, height = ParabolicVertex(1, 1, 1)
	assert.Equal(t, 0.0, offset)
	assert.Equal(t, 1.0, height)
}

func TestInterpolate(t *testing.T) {
	x := []float64{0, 1, 3}
	y := []float64{0, 10, 30}

	assert.InDelta(t, 5.0, Interpolate(x, y, 0.5), 1e-12)
	assert.InDelta(t, 20.0, Interpolate(x, y, 2), 1e-12)
	assert.Equal(t, 0.0, Interpolate(x, y, -1))
	assert.Equal(t, 30.0, Interpolate(x, y, 5))
	assert.Equal(t, 0.0, Interpolate(nil, nil, 1))
}

func TestMax(t *testing.T) {
	data := []float64{4, 1, 9, 2, 7}

	v, idx := Max(data)
	assert.Equal(t, 9.0, v)
	assert.Equal(t, 2, idx)

	_, idx = Max(nil)
	assert.Equal(t, -1, idx)
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, 1.0, Clamp(3, 0, 1))
	assert.Equal(t, 0.0, Clamp(-3, 0, 1))
	assert.Equal(t, 1024, NextPowerOfTwo(1000))
	assert.Equal(t, 1, NextPowerOfTwo(0))
}
