package acoustic

import (
	"encoding/json"
	"fmt"
	"math"
	"math/cmplx"
)

// Complex is a complex value used for matrix entries and impedances.
type Complex complex128

// NewComplex builds re + j·im.
func NewComplex(re, im float64) Complex {
	return Complex(complex(re, im))
}

// Real returns the real part.
func (z Complex) Real() float64 { return real(z) }

// Imag returns the imaginary part.
func (z Complex) Imag() float64 { return imag(z) }

// Add returns z + w.
func (z Complex) Add(w Complex) Complex { return z + w }

// Sub returns z - w.
func (z Complex) Sub(w Complex) Complex { return z - w }

// Mul returns z·w.
func (z Complex) Mul(w Complex) Complex { return z * w }

// Div returns z/w, or ErrDivisionByZero when |w| is zero.
func (z Complex) Div(w Complex) (Complex, error) {
	if real(w) == 0 && imag(w) == 0 {
		return 0, ErrDivisionByZero
	}
	return z / w, nil
}

// Abs returns the magnitude sqrt(re²+im²).
func (z Complex) Abs() float64 { return cmplx.Abs(complex128(z)) }

// Conj returns the complex conjugate.
func (z Complex) Conj() Complex { return Complex(cmplx.Conj(complex128(z))) }

// IsFinite reports whether both parts are finite numbers.
func (z Complex) IsFinite() bool {
	re, im := real(z), imag(z)
	return !math.IsNaN(re) && !math.IsInf(re, 0) && !math.IsNaN(im) && !math.IsInf(im, 0)
}

func (z Complex) String() string {
	return fmt.Sprintf("(%g%+gj)", real(z), imag(z))
}

// MarshalJSON encodes z as {"real": re, "imag": im}.
func (z Complex) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Real float64 `json:"real"`
		Imag float64 `json:"imag"`
	}{real(z), imag(z)})
}
