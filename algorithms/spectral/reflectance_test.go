package spectral

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testZc = 400.0

// delayedReflection builds the impedance whose reflectance is a single
// attenuated echo after tau seconds.
func delayedReflection(freqs []float64, gain, tau float64) []complex128 {
	z := make([]complex128, len(freqs))
	for i, f := range freqs {
		r := complex(gain, 0) * cmplx.Exp(complex(0, -2*math.Pi*f*tau))
		z[i] = complex(testZc, 0) * (1 + r) / (1 - r)
	}
	return z
}

func linearFrequencies(start, end, step float64) []float64 {
	var out []float64
	for i := 0; ; i++ {
		f := start + float64(i)*step
		if f > end {
			return out
		}
		out = append(out, f)
	}
}

func TestReflectionFunctionEchoDelay(t *testing.T) {
	freqs := linearFrequencies(1, 1000, 1)
	tau := 0.01

	rf, err := ComputeReflectionFunction(freqs, delayedReflection(freqs, 0.5, tau), testZc, DefaultReflectionConfig())
	require.NoError(t, err)

	// 1001 bins from DC, padded to 2048
	assert.InDelta(t, 1.0/2048, rf.TimeStep, 1e-15)
	assert.Len(t, rf.Samples, 1024)
	assert.InDelta(t, 0.5, rf.Duration(), 1e-12)

	assert.InDelta(t, tau, rf.PeakDelay(0), rf.TimeStep)
	assert.Greater(t, rf.Samples[20], 0.0)
}

func TestReflectionFunctionMatchedLoad(t *testing.T) {
	freqs := linearFrequencies(30, 200, 0.5)
	z := make([]complex128, len(freqs))
	for i := range z {
		z[i] = complex(testZc, 0)
	}

	rf, err := ComputeReflectionFunction(freqs, z, testZc, ReflectionConfig{Taper: false})
	require.NoError(t, err)
	for _, v := range rf.Samples {
		assert.InDelta(t, 0.0, v, 1e-12)
	}
	assert.Equal(t, -1.0, ReflectionFunction{TimeStep: 1}.PeakDelay(0))
}

func TestReflectionFunctionResolution(t *testing.T) {
	freqs := linearFrequencies(10, 100, 0.5)
	z := delayedReflection(freqs, 0.3, 0.02)

	rf, err := ComputeReflectionFunction(freqs, z, testZc, ReflectionConfig{Resolution: 2})
	require.NoError(t, err)

	// 51 bins at 2 Hz, padded to 128
	assert.InDelta(t, 1.0/256, rf.TimeStep, 1e-15)
	assert.Len(t, rf.Samples, 64)
}

func TestReflectionFunctionErrors(t *testing.T) {
	freqs := []float64{10, 20, 30}
	good := []complex128{1, 2, 3}

	tests := []struct {
		name  string
		freqs []float64
		z     []complex128
		zc    float64
	}{
		{"length mismatch", freqs, good[:2], testZc},
		{"too few", freqs[:1], good[:1], testZc},
		{"zero zc", freqs, good, 0},
		{"nan zc", freqs, good, math.NaN()},
		{"infinite zc", freqs, good, math.Inf(1)},
		{"unordered", []float64{10, 30, 20}, good, testZc},
		{"duplicate", []float64{10, 10, 20}, good, testZc},
		{"nan impedance", freqs, []complex128{1, cmplx.NaN(), 3}, testZc},
		{"pole", freqs, []complex128{1, complex(-testZc, 0), 3}, testZc},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ComputeReflectionFunction(tt.freqs, tt.z, tt.zc, DefaultReflectionConfig())
			assert.ErrorIs(t, err, ErrInvalidImpedance)
		})
	}
}
