package resonance

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/RyanBlaney/sonido-bore/algorithms/common"
	"github.com/RyanBlaney/sonido-bore/geometry"
	"github.com/RyanBlaney/sonido-bore/logging"
	"github.com/RyanBlaney/sonido-bore/resonance/config"
)

// AnalyzeSimplified estimates the resonances with a closed-form open-pipe
// model: an end-corrected quarter-wave drone and overtones stretched by
// the bore taper. reason is recorded in the metadata when non-empty.
// Results are deterministic for a given configuration.
func (a *Analyzer) AnalyzeSimplified(points []geometry.Point, reason string) (*AnalysisResult, error) {
	stats, err := geometry.Measure(points)
	if err != nil {
		return nil, err
	}

	fc := a.config.Fallback
	c := a.config.Physics.SpeedOfSound

	length := stats.Length.Meters()
	endCorrection := fc.EndCorrection * stats.BellRadius.Meters()
	effective := length + endCorrection
	avgRadius := stats.AverageRadius.Meters()

	f0 := c / (4 * effective) * (1 - fc.RadiusCorrection*avgRadius/effective) * fc.MouthCoupling
	if !(f0 > 0) || math.IsInf(f0, 0) {
		return nil, fmt.Errorf("%w: simplified model gives %g Hz", geometry.ErrInvalidGeometry, f0)
	}

	result := newResult(MethodSimplified)
	suppressed := []int{}

	var rng *rand.Rand
	if fc.Inclusion == config.InclusionSeeded {
		rng = rand.New(rand.NewPCG(fc.Seed, fc.Seed^0x9e3779b97f4a7c15))
	}

	last := 0.0
	for n := 1; n <= fc.MaxOvertone && len(result.Results) < a.config.MaxHarmonics; n++ {
		frequency := float64(n) * f0 * (1 + fc.TaperShift*(stats.TaperRatio-1)*float64(n-1))
		amplitude := common.Clamp(1/math.Pow(float64(n), fc.Rolloff), 0, 1)

		if n > 1 && !a.include(fc, rng, amplitude) {
			suppressed = append(suppressed, n)
			continue
		}
		// strong negative taper settings can fold overtones back down
		if frequency <= last {
			suppressed = append(suppressed, n)
			continue
		}
		last = frequency

		note, err := a.classifier.Classify(frequency)
		if err != nil {
			return nil, fmt.Errorf("simplified harmonic %d: %w", n, err)
		}

		result.Results = append(result.Results, HarmonicResult{
			Frequency: frequency,
			Harmonic:  n,
			Note:      note.Name,
			Octave:    note.Octave,
			Cents:     note.Cents,
			Amplitude: amplitude,
			Quality:   simplifiedQuality(frequency, amplitude, a.config.Peaks.FrequencyRolloff),
		})
	}

	result.Metadata.EffectiveLength = effective
	result.Metadata.PhysicalLength = length
	result.Metadata.AverageRadius = avgRadius
	result.Metadata.Volume = stats.Volume
	result.Metadata.ReferencePitch = a.classifier.Reference()
	result.Metadata.Simplified = &SimplifiedDetails{
		EndCorrection:  endCorrection,
		MouthCoupling:  fc.MouthCoupling,
		TaperRatio:     stats.TaperRatio,
		Inclusion:      fc.Inclusion,
		Suppressed:     suppressed,
		FallbackReason: reason,
	}

	a.logger.Debug("Simplified analysis complete", logging.Fields{
		"fundamental": f0,
		"harmonics":   len(result.Results),
		"suppressed":  len(suppressed),
	})

	return result, nil
}

// include decides whether an overtone is reported
func (a *Analyzer) include(fc config.FallbackConfig, rng *rand.Rand, amplitude float64) bool {
	if fc.Inclusion == config.InclusionSeeded && rng != nil {
		return rng.Float64() < fc.InclusionProbability
	}
	return amplitude >= fc.MinHarmonicAmplitude
}

// simplifiedQuality mirrors the detector's score without a measured peak
// width: strength stands in for sharpness.
func simplifiedQuality(frequency, amplitude, rolloff float64) float64 {
	if !(rolloff > 0) {
		rolloff = 400
	}
	return common.Clamp(0.6*amplitude+0.4/(1+frequency/rolloff), 0, 1)
}
