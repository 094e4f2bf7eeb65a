package common

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Numeric helpers shared by the analysis stages, backed by gonum where it has an equivalent.

// Max returns the largest value and its index, or (0, -1) for empty data
func Max(data []float64) (float64, int) {
	if len(data) == 0 {
		return 0, -1
	}
	idx := floats.MaxIdx(data)
	return data[idx], idx
}

// LocalMaxima returns the indices of strict interior local maxima: samples
// greater than both neighbors. Plateaus and endpoints never qualify.
func LocalMaxima(data []float64) []int {
	if len(data) < 3 {
		return []int{}
	}

	peaks := []int{}
	for i := 1; i < len(data)-1; i++ {
		if data[i] > data[i-1] && data[i] > data[i+1] {
			peaks = append(peaks, i)
		}
	}
	return peaks
}

// ParabolicVertex fits a parabola through (-1, y1), (0, y2), (1, y3) and
// returns the vertex offset in [-0.5, 0.5] and its height. A flat triple
// returns (0, y2).
func ParabolicVertex(y1, y2, y3 float64) (offset, height float64) {
	denom := y1 - 2*y2 + y3
	if math.Abs(denom) < 1e-12*math.Max(math.Abs(y2), 1) {
		return 0, y2
	}

	offset = Clamp(0.5*(y1-y3)/denom, -0.5, 0.5)
	a := 0.5 * denom
	b := 0.5 * (y3 - y1)
	return offset, y2 + a*offset*offset + b*offset
}

// Interpolate performs linear interpolation of y(x) at xi; x must be
// increasing. Values outside the range clamp to the end points.
func Interpolate(x, y []float64, xi float64) float64 {
	if len(x) != len(y) || len(x) == 0 {
		return 0.0
	}
	if len(x) == 1 || xi <= x[0] {
		return y[0]
	}
	if xi >= x[len(x)-1] {
		return y[len(y)-1]
	}

	// Binary search for the interval
	left := 0
	right := len(x) - 1

	for right-left > 1 {
		mid := (left + right) / 2
		if x[mid] <= xi {
			left = mid
		} else {
			right = mid
		}
	}

	t := (xi - x[left]) / (x[right] - x[left])
	return y[left] + t*(y[right]-y[left])
}

// Clamp constrains a value to a range
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// NextPowerOfTwo finds the next power of 2 >= n
func NextPowerOfTwo(n int) int {
	if n <= 0 {
		return 1
	}

	power := 1
	for power < n {
		power <<= 1
	}
	return power
}
