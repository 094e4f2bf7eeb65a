package spectral

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"

	"github.com/RyanBlaney/sonido-bore/algorithms/common"
	"github.com/RyanBlaney/sonido-bore/algorithms/windowing"
)

// ErrInvalidImpedance is returned when an impedance spectrum cannot be
// converted to a reflection function.
var ErrInvalidImpedance = errors.New("spectral: invalid impedance spectrum")

// ReflectionConfig controls the time-domain reflection function.
type ReflectionConfig struct {
	// Resolution is the uniform grid spacing in Hz the spectrum is resampled
	// onto. Zero uses the smallest step of the input.
	Resolution float64 `json:"resolution"`

	// Taper rolls the spectrum off with a falling half-Hann window so the
	// band edge doesn't ring.
	Taper bool `json:"taper"`
}

// DefaultReflectionConfig returns the settings used for bore analysis.
func DefaultReflectionConfig() ReflectionConfig {
	return ReflectionConfig{
		Resolution: 0,
		Taper:      true,
	}
}

// ReflectionFunction is the pressure reflection impulse response seen from
// the mouthpiece. Samples[i] is the response at time i*TimeStep.
type ReflectionFunction struct {
	TimeStep float64   `json:"time_step"` // seconds
	Samples  []float64 `json:"samples"`
}

// Duration returns the time span covered by the samples.
func (r ReflectionFunction) Duration() float64 {
	return float64(len(r.Samples)) * r.TimeStep
}

// PeakDelay returns the time of the largest-magnitude sample at or after
// minDelay seconds, or -1 if there is none.
func (r ReflectionFunction) PeakDelay(minDelay float64) float64 {
	best, bestIdx := 0.0, -1
	for i, v := range r.Samples {
		if float64(i)*r.TimeStep < minDelay {
			continue
		}
		if a := math.Abs(v); a > best {
			best, bestIdx = a, i
		}
	}
	if bestIdx < 0 {
		return -1
	}
	return float64(bestIdx) * r.TimeStep
}

// ComputeReflectionFunction converts an input impedance spectrum to a
// reflection impulse response. The pressure reflectance
// R = (Z - Zc)/(Z + Zc) is resampled onto a uniform grid from DC, made
// Hermitian and inverse transformed. Bins below the first input frequency
// take the first sample's value.
func ComputeReflectionFunction(freqs []float64, impedance []complex128, zc float64, cfg ReflectionConfig) (ReflectionFunction, error) {
	if len(freqs) != len(impedance) {
		return ReflectionFunction{}, fmt.Errorf("%w: %d frequencies for %d impedances", ErrInvalidImpedance, len(freqs), len(impedance))
	}
	if len(freqs) < 2 {
		return ReflectionFunction{}, fmt.Errorf("%w: need at least 2 samples", ErrInvalidImpedance)
	}
	if !(zc > 0) || math.IsInf(zc, 0) {
		return ReflectionFunction{}, fmt.Errorf("%w: characteristic impedance %g", ErrInvalidImpedance, zc)
	}

	minStep := math.Inf(1)
	for i := 1; i < len(freqs); i++ {
		step := freqs[i] - freqs[i-1]
		if !(step > 0) {
			return ReflectionFunction{}, fmt.Errorf("%w: frequencies not increasing at index %d", ErrInvalidImpedance, i)
		}
		minStep = math.Min(minStep, step)
	}

	df := cfg.Resolution
	if df <= 0 {
		df = minStep
	}

	reR := make([]float64, len(freqs))
	imR := make([]float64, len(freqs))
	for i, z := range impedance {
		if cmplx.IsNaN(z) || cmplx.IsInf(z) {
			return ReflectionFunction{}, fmt.Errorf("%w: non-finite impedance at %.2f Hz", ErrInvalidImpedance, freqs[i])
		}
		r := (z - complex(zc, 0)) / (z + complex(zc, 0))
		if cmplx.IsNaN(r) || cmplx.IsInf(r) {
			return ReflectionFunction{}, fmt.Errorf("%w: reflectance undefined at %.2f Hz", ErrInvalidImpedance, freqs[i])
		}
		reR[i], imR[i] = real(r), imag(r)
	}

	m := int(math.Floor(freqs[len(freqs)-1]/df)) + 1

	gridRe := make([]float64, m)
	gridIm := make([]float64, m)
	for k := range m {
		f := float64(k) * df
		gridRe[k] = common.Interpolate(freqs, reR, f)
		gridIm[k] = common.Interpolate(freqs, imR, f)
	}
	gridIm[0] = 0

	if cfg.Taper {
		taper := windowing.NewFallingHalf(m)
		if err := taper.ApplyInPlace(gridRe); err != nil {
			return ReflectionFunction{}, err
		}
		if err := taper.ApplyInPlace(gridIm); err != nil {
			return ReflectionFunction{}, err
		}
	}

	n := common.NextPowerOfTwo(2 * m)
	spectrum := make([]complex128, n)
	for k := range m {
		spectrum[k] = complex(gridRe[k], gridIm[k])
		if k > 0 {
			spectrum[n-k] = complex(gridRe[k], -gridIm[k])
		}
	}

	timeDomain := fft.IFFT(spectrum)

	samples := make([]float64, n/2)
	for i := range samples {
		samples[i] = real(timeDomain[i])
	}

	return ReflectionFunction{
		TimeStep: 1 / (float64(n) * df),
		Samples:  samples,
	}, nil
}
