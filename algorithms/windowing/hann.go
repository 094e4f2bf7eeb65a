package windowing

import (
	"fmt"
	"math"
)

// Hann is a raised-cosine window
type Hann struct {
	size         int
	symmetric    bool
	coefficients []float64
}

// NewHann creates a new Hann window. Symmetric windows reach zero at both
// ends; periodic ones are meant for spectral frames.
func NewHann(size int, symmetric bool) *Hann {
	h := &Hann{
		size:      max(size, 0),
		symmetric: symmetric,
	}
	h.generate()
	return h
}

func (h *Hann) generate() {
	h.coefficients = make([]float64, h.size)
	if h.size == 1 {
		h.coefficients[0] = 1
		return
	}

	denominator := float64(h.size)
	if h.symmetric {
		denominator = float64(h.size - 1)
	}

	for i := range h.size {
		h.coefficients[i] = 0.5 * (1.0 - math.Cos(2*math.Pi*float64(i)/denominator))
	}
}

// ApplyInPlace multiplies signal by the window
func (h *Hann) ApplyInPlace(signal []float64) error {
	if len(signal) != h.size {
		return fmt.Errorf("signal length (%d) doesn't match window size (%d)", len(signal), h.size)
	}

	for i := range signal {
		signal[i] *= h.coefficients[i]
	}

	return nil
}

// Coefficients returns a copy of the window coefficients
func (h *Hann) Coefficients() []float64 {
	coeffs := make([]float64, len(h.coefficients))
	copy(coeffs, h.coefficients)
	return coeffs
}

// Size returns the window size
func (h *Hann) Size() int {
	return h.size
}

// NewFallingHalf returns an n-point taper running from 1 down to 0: the
// second half of a symmetric Hann window of length 2n-1. Used to roll off a
// one-sided spectrum before inverse transforming it.
func NewFallingHalf(n int) *Hann {
	n = max(n, 0)
	if n <= 1 {
		return NewHann(n, true)
	}

	full := NewHann(2*n-1, true)
	return &Hann{
		size:         n,
		coefficients: append([]float64(nil), full.coefficients[n-1:]...),
	}
}
