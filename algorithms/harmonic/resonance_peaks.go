package harmonic

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/RyanBlaney/sonido-bore/algorithms/common"
)

// ErrSpectrumMismatch is returned when frequencies and magnitudes don't line up.
var ErrSpectrumMismatch = errors.New("harmonic: frequency and magnitude lengths differ")

// ResonancePeak is one detected resonance of an impedance magnitude spectrum
type ResonancePeak struct {
	Index      int     `json:"index"`      // sample index of the local maximum
	Frequency  float64 `json:"frequency"`  // Hz, refined by parabolic interpolation
	Magnitude  float64 `json:"magnitude"`  // refined peak magnitude
	Prominence float64 `json:"prominence"` // height above the local baseline
	Bandwidth  float64 `json:"bandwidth"`  // Hz, width at half prominence
	Amplitude  float64 `json:"amplitude"`  // magnitude relative to the largest peak, [0,1]
	Quality    float64 `json:"quality"`    // playability score, [0,1]
	Harmonic   int     `json:"harmonic"`   // set by AssignHarmonics
}

// DetectorConfig holds the resonance detector parameters
type DetectorConfig struct {
	// MinProminence is the minimum (peak - baseline) / peak ratio
	MinProminence float64 `json:"min_prominence"`

	// BaselineWindow limits how many samples each side of a peak are
	// searched for its baseline
	BaselineWindow int `json:"baseline_window"`

	// Q0 is the quality factor at which sharpness scores 0.5
	Q0 float64 `json:"q0"`

	// FrequencyRolloff is the frequency in Hz at which the frequency score
	// has dropped to 0.5
	FrequencyRolloff float64 `json:"frequency_rolloff"`
}

// DefaultDetectorConfig returns detector settings tuned for didgeridoo
// impedance spectra sampled by the default sweep.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		MinProminence:    0.1,
		BaselineWindow:   60,
		Q0:               10,
		FrequencyRolloff: 400,
	}
}

// ResonanceDetector finds resonances in an impedance magnitude spectrum
type ResonanceDetector struct {
	config DetectorConfig
}

// NewResonanceDetector creates a detector. Non-positive parameters fall
// back to their defaults.
func NewResonanceDetector(config DetectorConfig) *ResonanceDetector {
	defaults := DefaultDetectorConfig()
	if config.MinProminence < 0 || math.IsNaN(config.MinProminence) {
		config.MinProminence = defaults.MinProminence
	}
	if config.BaselineWindow <= 0 {
		config.BaselineWindow = defaults.BaselineWindow
	}
	if !(config.Q0 > 0) {
		config.Q0 = defaults.Q0
	}
	if !(config.FrequencyRolloff > 0) {
		config.FrequencyRolloff = defaults.FrequencyRolloff
	}

	return &ResonanceDetector{config: config}
}

// Config returns the effective configuration
func (rd *ResonanceDetector) Config() DetectorConfig {
	return rd.config
}

// Detect returns the strict interior local maxima of magnitudes that stand
// out from their baseline by at least MinProminence, in frequency order.
// Flat and monotonic spectra yield no peaks.
func (rd *ResonanceDetector) Detect(freqs, magnitudes []float64) ([]ResonancePeak, error) {
	if len(freqs) != len(magnitudes) {
		return nil, fmt.Errorf("%w: %d vs %d", ErrSpectrumMismatch, len(freqs), len(magnitudes))
	}
	for i, m := range magnitudes {
		if math.IsNaN(m) || math.IsInf(m, 0) {
			return nil, fmt.Errorf("harmonic: non-finite magnitude at index %d", i)
		}
	}

	peaks := []ResonancePeak{}
	for _, i := range common.LocalMaxima(magnitudes) {
		height := magnitudes[i]
		if height <= 0 {
			continue
		}

		baseline := rd.baseline(magnitudes, i)
		prominence := height - baseline
		if prominence/height < rd.config.MinProminence {
			continue
		}

		offset, refined := common.ParabolicVertex(magnitudes[i-1], height, magnitudes[i+1])
		frequency := freqs[i]
		if offset > 0 {
			frequency += offset * (freqs[i+1] - freqs[i])
		} else {
			frequency += offset * (freqs[i] - freqs[i-1])
		}

		peaks = append(peaks, ResonancePeak{
			Index:      i,
			Frequency:  frequency,
			Magnitude:  math.Max(refined, height),
			Prominence: prominence,
			Bandwidth:  rd.halfProminenceWidth(freqs, magnitudes, i, height-prominence/2),
		})
	}

	if len(peaks) == 0 {
		return peaks, nil
	}

	heights := make([]float64, len(peaks))
	for i, p := range peaks {
		heights[i] = p.Magnitude
	}
	largest, _ := common.Max(heights)

	for i := range peaks {
		peaks[i].Amplitude = common.Clamp(peaks[i].Magnitude/largest, 0, 1)
		peaks[i].Quality = rd.quality(peaks[i])
	}

	return peaks, nil
}

// baseline is the higher of the two minima found walking left and right
// from the peak until a taller sample or the window edge.
func (rd *ResonanceDetector) baseline(data []float64, peak int) float64 {
	lo := peak
	for lo > 0 && peak-lo < rd.config.BaselineWindow && data[lo-1] <= data[peak] {
		lo--
	}
	hi := peak
	for hi < len(data)-1 && hi-peak < rd.config.BaselineWindow && data[hi+1] <= data[peak] {
		hi++
	}

	return math.Max(floats.Min(data[lo:peak+1]), floats.Min(data[peak:hi+1]))
}

// halfProminenceWidth returns the width in Hz between the points where the
// magnitude crosses level on either side of the peak. When only one side
// crosses, that half width is doubled.
func (rd *ResonanceDetector) halfProminenceWidth(freqs, data []float64, peak int, level float64) float64 {
	left, leftOK := math.NaN(), false
	for j := peak; j > 0 && peak-j < rd.config.BaselineWindow; j-- {
		if data[j-1] < level {
			t := (data[j] - level) / (data[j] - data[j-1])
			left, leftOK = freqs[j]-t*(freqs[j]-freqs[j-1]), true
			break
		}
	}

	right, rightOK := math.NaN(), false
	for j := peak; j < len(data)-1 && j-peak < rd.config.BaselineWindow; j++ {
		if data[j+1] < level {
			t := (data[j] - level) / (data[j] - data[j+1])
			right, rightOK = freqs[j]+t*(freqs[j+1]-freqs[j]), true
			break
		}
	}

	switch {
	case leftOK && rightOK:
		return right - left
	case leftOK:
		return 2 * (freqs[peak] - left)
	case rightOK:
		return 2 * (right - freqs[peak])
	default:
		return freqs[len(freqs)-1] - freqs[0]
	}
}

// quality blends peak sharpness with a low-frequency preference
func (rd *ResonanceDetector) quality(p ResonancePeak) float64 {
	sharpness := 0.0
	if p.Bandwidth > 0 {
		q := p.Frequency / p.Bandwidth
		sharpness = q / (q + rd.config.Q0)
	}

	frequencyScore := 0.0
	if p.Frequency > 0 {
		frequencyScore = 1 / (1 + p.Frequency/rd.config.FrequencyRolloff)
	}

	return common.Clamp(0.6*sharpness+0.4*frequencyScore, 0, 1)
}

// AssignHarmonics numbers peaks against the first one: n = round(f/f1),
// bumped where needed so numbers strictly increase from 1. A closed
// cylinder's resonances therefore number 1, 3, 5 and a cone's 1, 2, 3.
func AssignHarmonics(peaks []ResonancePeak) {
	if len(peaks) == 0 {
		return
	}

	f1 := peaks[0].Frequency
	prev := 0
	for i := range peaks {
		n := 1
		if f1 > 0 {
			n = int(math.Round(peaks[i].Frequency / f1))
		}
		n = max(n, prev+1)
		peaks[i].Harmonic = n
		prev = n
	}
}
