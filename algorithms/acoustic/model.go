// Package acoustic implements the plane/spherical-wave transfer-matrix model of
// a bore: per-segment ABCD matrices, their cascade, the open-end radiation
// load and the resulting input impedance.
package acoustic

import (
	"errors"
	"math"
	"math/cmplx"

	"github.com/RyanBlaney/sonido-bore/geometry"
)

// Errors returned by the acoustic model.
var (
	ErrDegenerateSegment = errors.New("acoustic: degenerate segment")
	ErrInvalidRadiation  = errors.New("acoustic: radiation needs positive radius and frequency")
	ErrDivisionByZero    = errors.New("acoustic: division by zero-magnitude complex value")
)

// Physical constants of air at roughly 20 °C.
const (
	SpeedOfSound = 343.0 // m/s
	AirDensity   = 1.225 // kg/m³
)

// Termination selects the radiation model at the open end.
type Termination string

const (
	Unflanged Termination = "unflanged"
	Flanged   Termination = "flanged"
)

// Model holds the physical parameters shared by every matrix evaluation.
// It is a value type and safe for concurrent use.
type Model struct {
	SpeedOfSound      float64     `json:"speed_of_sound"`
	Density           float64     `json:"density"`
	WallLosses        bool        `json:"wall_losses"`
	CylinderTolerance float64     `json:"cylinder_tolerance"` // |taper-1| below this uses the cylinder matrix
	Termination       Termination `json:"termination"`
}

// DefaultModel returns air at 343 m/s and 1.225 kg/m³ with wall losses and an
// unflanged bell.
func DefaultModel() Model {
	return Model{
		SpeedOfSound:      SpeedOfSound,
		Density:           AirDensity,
		WallLosses:        true,
		CylinderTolerance: 1e-6,
		Termination:       Unflanged,
	}
}

// CharacteristicImpedance returns ρc/S for a duct of the given radius.
func (m Model) CharacteristicImpedance(radius float64) float64 {
	return m.Density * m.SpeedOfSound / (math.Pi * radius * radius)
}

// wavenumber returns the (possibly lossy) wavenumber for a duct of mean radius r.
// Losses follow the boundary-layer approximation α ≈ 3·10⁻⁵·√f / r.
func (m Model) wavenumber(frequency, r float64) complex128 {
	k := 2 * math.Pi * frequency / m.SpeedOfSound
	if !m.WallLosses {
		return complex(k, 0)
	}
	alpha := 3e-5 * math.Sqrt(frequency) / r
	return complex(k, -alpha)
}

func validFrequency(f float64) bool {
	return f > 0 && !math.IsInf(f, 0) && !math.IsNaN(f)
}

func validLength(l float64) bool {
	return l > 0 && !math.IsInf(l, 0) && !math.IsNaN(l)
}

// SegmentMatrix computes the transfer matrix of a truncated cone at frequency.
// Nearly cylindrical segments use the closed-form duct matrix.
func (m Model) SegmentMatrix(seg geometry.Segment, frequency float64) (TransferMatrix, error) {
	r1, r2, l := seg.R1.Meters(), seg.R2.Meters(), seg.Length.Meters()
	if !validLength(r1) || !validLength(r2) || !validLength(l) || !validFrequency(frequency) {
		return TransferMatrix{}, ErrDegenerateSegment
	}

	var mat TransferMatrix
	if math.Abs(r2/r1-1) < m.CylinderTolerance {
		mat = m.cylinder(r1, l, frequency)
	} else {
		mat = m.cone(r1, r2, l, frequency)
	}

	if !mat.IsFinite() {
		return TransferMatrix{}, ErrDegenerateSegment
	}
	return mat, nil
}

func (m Model) cylinder(r, l, frequency float64) TransferMatrix {
	k := m.wavenumber(frequency, r)
	zc := complex(m.CharacteristicImpedance(r), 0)

	kl := k * complex(l, 0)
	cos, sin := cmplx.Cos(kl), cmplx.Sin(kl)

	return TransferMatrix{
		A: Complex(cos),
		B: Complex(1i * zc * sin),
		C: Complex(1i * sin / zc),
		D: Complex(cos),
	}
}

// cone uses the spherical-wave solution with apex distances x1 (input) and
// x2 = x1 + L (output). x1 is negative for a contracting segment.
func (m Model) cone(r1, r2, l, frequency float64) TransferMatrix {
	k := m.wavenumber(frequency, (r1+r2)/2)
	rhoC := m.Density * m.SpeedOfSound

	x1 := complex(r1*l/(r2-r1), 0)
	x2 := x1 + complex(l, 0)
	lc := complex(l, 0)

	kl := k * lc
	cos, sin := cmplx.Cos(kl), cmplx.Sin(kl)
	area := complex(math.Pi*r1*r2, 0)

	a := complex(r2/r1, 0)*cos - sin/(k*x1)
	b := 1i * complex(rhoC, 0) / area * sin
	c := 1i * area / complex(rhoC, 0) * ((1+1/(k*k*x1*x2))*sin - lc/(k*x1*x2)*cos)
	d := complex(r1/r2, 0)*cos + sin/(k*x2)

	return TransferMatrix{A: Complex(a), B: Complex(b), C: Complex(c), D: Complex(d)}
}

// RadiationImpedance returns the open-end load of a circular opening using
// the Levine–Schwinger low-frequency expansion.
func (m Model) RadiationImpedance(radius, frequency float64) (Complex, error) {
	if !validLength(radius) || !validFrequency(frequency) {
		return 0, ErrInvalidRadiation
	}

	ka := 2 * math.Pi * frequency / m.SpeedOfSound * radius
	zc := m.CharacteristicImpedance(radius)

	var re, im float64
	switch m.Termination {
	case Flanged:
		re, im = ka*ka/2, 0.8216*ka
	default:
		re, im = ka*ka/4, 0.6133*ka
	}

	return NewComplex(zc*re, zc*im), nil
}
