package harmonic

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seriesFrequencies(start float64, n int) []float64 {
	freqs := make([]float64, n)
	for i := range freqs {
		freqs[i] = start + float64(i)
	}
	return freqs
}

func TestDetectTwoPeaks(t *testing.T) {
	freqs := seriesFrequencies(30, 11)
	mags := []float64{1, 2, 4, 8, 3, 2, 1, 2, 5, 9, 4}

	peaks, err := NewResonanceDetector(DefaultDetectorConfig()).Detect(freqs, mags)
	require.NoError(t, err)
	require.Len(t, peaks, 2)

	assert.Equal(t, 3, peaks[0].Index)
	assert.InDelta(t, 33, peaks[0].Frequency, 0.5)
	assert.Equal(t, 9, peaks[1].Index)
	assert.InDelta(t, 39, peaks[1].Frequency, 0.5)

	assert.InDelta(t, 7, peaks[0].Prominence, 1e-12)
	assert.InDelta(t, 5, peaks[1].Prominence, 1e-12)

	assert.InDelta(t, 1.0, peaks[1].Amplitude, 1e-12)
	assert.Less(t, peaks[0].Amplitude, 1.0)

	for _, p := range peaks {
		assert.GreaterOrEqual(t, p.Amplitude, 0.0)
		assert.LessOrEqual(t, p.Amplitude, 1.0)
		assert.GreaterOrEqual(t, p.Quality, 0.0)
		assert.LessOrEqual(t, p.Quality, 1.0)
		assert.Greater(t, p.Bandwidth, 0.0)
	}
}

func TestDetectNoPeaks(t *testing.T) {
	detector := NewResonanceDetector(DefaultDetectorConfig())
	freqs := seriesFrequencies(30, 8)

	tests := []struct {
		name string
		mags []float64
	}{
		{"constant", []float64{5, 5, 5, 5, 5, 5, 5, 5}},
		{"increasing", []float64{1, 2, 3, 4, 5, 6, 7, 8}},
		{"decreasing", []float64{8, 7, 6, 5, 4, 3, 2, 1}},
		{"zeros", make([]float64, 8)},
		{"plateau", []float64{1, 2, 5, 5, 2, 1, 1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			peaks, err := detector.Detect(freqs, tt.mags)
			require.NoError(t, err)
			assert.Empty(t, peaks)
		})
	}

	peaks, err := detector.Detect(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, peaks)
}

func TestDetectProminenceThreshold(t *testing.T) {
	freqs := seriesFrequencies(30, 5)
	ripple := []float64{10, 10.5, 10, 9.9, 9.8}

	peaks, err := NewResonanceDetector(DefaultDetectorConfig()).Detect(freqs, ripple)
	require.NoError(t, err)
	assert.Empty(t, peaks)

	cfg := DefaultDetectorConfig()
	cfg.MinProminence = 0.01
	peaks, err = NewResonanceDetector(cfg).Detect(freqs, ripple)
	require.NoError(t, err)
	require.Len(t, peaks, 1)
	assert.InDelta(t, 0.5, peaks[0].Prominence, 1e-12)
}

func TestDetectErrors(t *testing.T) {
	detector := NewResonanceDetector(DefaultDetectorConfig())

	_, err := detector.Detect([]float64{1, 2}, []float64{1})
	assert.ErrorIs(t, err, ErrSpectrumMismatch)

	_, err = detector.Detect([]float64{1, 2, 3}, []float64{1, math.NaN(), 1})
	assert.Error(t, err)
}

func TestDetectQualityPrefersSharpLowPeaks(t *testing.T) {
	freqs := seriesFrequencies(30, 41)
	mags := make([]float64, len(freqs))
	for i, f := range freqs {
		// narrow resonance at 40 Hz, broad one at 60 Hz
		mags[i] = 1 + 10/(1+math.Pow((f-40)/0.5, 2)) + 10/(1+math.Pow((f-60)/4, 2))
	}

	peaks, err := NewResonanceDetector(DefaultDetectorConfig()).Detect(freqs, mags)
	require.NoError(t, err)
	require.Len(t, peaks, 2)

	assert.Less(t, peaks[0].Bandwidth, peaks[1].Bandwidth)
	assert.Greater(t, peaks[0].Quality, peaks[1].Quality)
}

func TestNewResonanceDetectorDefaults(t *testing.T) {
	cfg := NewResonanceDetector(DetectorConfig{MinProminence: -1}).Config()
	assert.Equal(t, DefaultDetectorConfig(), cfg)
}

func TestAssignHarmonics(t *testing.T) {
	tests := []struct {
		name  string
		freqs []float64
		want  []int
	}{
		{"closed cylinder", []float64{56.7, 170.2, 283.6}, []int{1, 3, 5}},
		{"cone", []float64{50, 100, 150}, []int{1, 2, 3}},
		{"crowded", []float64{50, 60, 140}, []int{1, 2, 3}},
		{"single", []float64{72}, []int{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			peaks := make([]ResonancePeak, len(tt.freqs))
			for i, f := range tt.freqs {
				peaks[i].Frequency = f
			}

			AssignHarmonics(peaks)

			got := make([]int, len(peaks))
			for i, p := range peaks {
				got[i] = p.Harmonic
			}
			assert.Equal(t, tt.want, got)
		})
	}

	AssignHarmonics(nil)
}
