// Package resonance runs the bore analysis pipeline: geometry segmentation,
// impedance spectrum synthesis, resonance detection and note naming, with a
// closed-form fallback when the transfer-matrix model cannot be used.
package resonance

import (
	"context"
	"errors"
	"fmt"

	"github.com/RyanBlaney/sonido-bore/algorithms/acoustic"
	"github.com/RyanBlaney/sonido-bore/algorithms/harmonic"
	"github.com/RyanBlaney/sonido-bore/algorithms/spectral"
	"github.com/RyanBlaney/sonido-bore/algorithms/tonal"
	"github.com/RyanBlaney/sonido-bore/geometry"
	"github.com/RyanBlaney/sonido-bore/logging"
	"github.com/RyanBlaney/sonido-bore/resonance/config"
)

var (
	ErrEmptySpectrum = errors.New("resonance: impedance spectrum has too few samples")
	ErrNoResonances  = errors.New("resonance: no resonance peaks found")
)

// Analyzer turns bore profiles into resonance results. It holds only
// immutable configuration and is safe for concurrent use.
type Analyzer struct {
	config     config.AnalysisConfig
	classifier *tonal.NoteClassifier
	detector   *harmonic.ResonanceDetector
	logger     logging.Logger
}

// NewAnalyzer creates an analyzer. A nil config uses DefaultAnalysisConfig.
// The config is copied.
func NewAnalyzer(cfg *config.AnalysisConfig) (*Analyzer, error) {
	if cfg == nil {
		cfg = config.DefaultAnalysisConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	classifier, err := tonal.NewNoteClassifier(cfg.ReferencePitch)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}

	return &Analyzer{
		config:     *cfg,
		classifier: classifier,
		detector:   harmonic.NewResonanceDetector(cfg.Peaks),
		logger: logging.WithFields(logging.Fields{
			"component": "resonance_analyzer",
		}),
	}, nil
}

// Config returns a copy of the analyzer configuration
func (a *Analyzer) Config() config.AnalysisConfig {
	return a.config
}

// AnalyzeTransferMatrix runs the full transfer-matrix pipeline. Geometry is
// validated before any numeric work; lower-layer errors are returned
// wrapped.
func (a *Analyzer) AnalyzeTransferMatrix(ctx context.Context, points []geometry.Point) (*AnalysisResult, error) {
	logger := a.logger.WithContext(ctx)

	segments, err := geometry.Segments(points)
	if err != nil {
		return nil, err
	}
	stats, err := geometry.Measure(points)
	if err != nil {
		return nil, err
	}

	freqs, err := a.config.Sweep.Frequencies()
	if err != nil {
		return nil, err
	}

	synth := acoustic.NewSynthesizer(a.config.Physics)
	synth.Workers = a.config.Workers
	synth.SkipInvalidSamples = a.config.SkipInvalidSamples

	spectrum, err := synth.Spectrum(ctx, segments, freqs)
	if err != nil {
		return nil, fmt.Errorf("impedance spectrum: %w", err)
	}
	if spectrum.Len() < 3 {
		return nil, fmt.Errorf("%w: %d of %d", ErrEmptySpectrum, spectrum.Len(), len(freqs))
	}

	magnitudes := spectrum.Magnitudes()
	sampleFreqs := spectrum.Frequencies()

	peaks, err := a.detector.Detect(sampleFreqs, magnitudes)
	if err != nil {
		return nil, fmt.Errorf("resonance detection: %w", err)
	}
	if len(peaks) == 0 {
		return nil, ErrNoResonances
	}
	if len(peaks) > a.config.MaxHarmonics {
		peaks = peaks[:a.config.MaxHarmonics]
	}
	harmonic.AssignHarmonics(peaks)

	result := newResult(MethodTransferMatrix)
	result.Results = make([]HarmonicResult, 0, len(peaks))
	for _, p := range peaks {
		note, err := a.classifier.Classify(p.Frequency)
		if err != nil {
			return nil, fmt.Errorf("resonance at %.2f Hz: %w", p.Frequency, err)
		}
		result.Results = append(result.Results, HarmonicResult{
			Frequency: p.Frequency,
			Harmonic:  p.Harmonic,
			Note:      note.Name,
			Octave:    note.Octave,
			Cents:     note.Cents,
			Amplitude: p.Amplitude,
			Quality:   p.Quality,
		})
	}

	chart := make([]ChartPoint, len(magnitudes))
	for i := range magnitudes {
		chart[i] = ChartPoint{Frequency: sampleFreqs[i], Magnitude: magnitudes[i]}
	}

	details := &TransferMatrixDetails{
		ImpedanceSpectrum: chart,
		SampleCount:       spectrum.Len(),
		SkippedSamples:    spectrum.Skipped,
		SegmentCount:      len(segments),
		Termination:       a.config.Physics.Termination,
		WallLosses:        a.config.Physics.WallLosses,
	}

	if a.config.ReflectionFunction {
		rf, err := a.reflection(spectrum, stats)
		if err != nil {
			// the reflection function is an extra; the resonances stand
			logger.Warn("Reflection function unavailable", logging.Fields{"error": err.Error()})
		} else {
			details.Reflection = &rf
		}
	}

	result.Metadata.EffectiveLength = stats.Length.Meters()
	result.Metadata.PhysicalLength = stats.Length.Meters()
	result.Metadata.AverageRadius = stats.AverageRadius.Meters()
	result.Metadata.Volume = stats.Volume
	result.Metadata.ReferencePitch = a.classifier.Reference()
	result.Metadata.TransferMatrix = details

	logger.Debug("Transfer matrix analysis complete", logging.Fields{
		"segments":    len(segments),
		"samples":     spectrum.Len(),
		"resonances":  len(result.Results),
		"fundamental": result.Fundamental(),
	})

	return result, nil
}

func (a *Analyzer) reflection(spectrum acoustic.Spectrum, stats geometry.BoreStats) (spectral.ReflectionFunction, error) {
	impedance := make([]complex128, 0, spectrum.Len())
	for _, s := range spectrum.All() {
		impedance = append(impedance, complex128(s.Impedance))
	}

	zc := a.config.Physics.CharacteristicImpedance(stats.MouthRadius.Meters())
	return spectral.ComputeReflectionFunction(spectrum.Frequencies(), impedance, zc, a.config.Reflection)
}

// Analyze picks the transfer-matrix pipeline when it is enabled and the
// profile has enough points, and otherwise, or when that pipeline fails
// numerically or finds no resonances, the simplified model. Invalid
// geometry and cancellation are returned, never fallen back from.
func (a *Analyzer) Analyze(ctx context.Context, points []geometry.Point) (*AnalysisResult, error) {
	if err := geometry.Validate(points); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger := a.logger.WithContext(ctx)

	var reason string
	switch {
	case !a.config.UseTransferMatrix:
		reason = "transfer matrix disabled"
	case len(points) < a.config.MinTransferMatrixPoints:
		reason = fmt.Sprintf("%d points, transfer matrix needs %d", len(points), a.config.MinTransferMatrixPoints)
	default:
		result, err := a.AnalyzeTransferMatrix(ctx, points)
		if err == nil {
			return result, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if !a.config.FallbackOnError {
			return nil, err
		}

		logger.Warn("Transfer matrix analysis failed, using simplified model", logging.Fields{
			"error":  err.Error(),
			"points": len(points),
		})
		reason = err.Error()
	}

	return a.AnalyzeSimplified(points, reason)
}
