package acoustic

import (
	"context"
	"fmt"
	"iter"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/RyanBlaney/sonido-bore/geometry"
	"github.com/RyanBlaney/sonido-bore/logging"
)

// ImpedanceSample is the input impedance at one driving frequency.
type ImpedanceSample struct {
	Frequency float64 `json:"frequency"`
	Impedance Complex `json:"impedance"`
	Magnitude float64 `json:"magnitude"`
}

// Spectrum is an input impedance spectrum ordered by increasing frequency.
type Spectrum struct {
	Samples []ImpedanceSample `json:"samples"`
	Skipped int               `json:"skipped"` // samples dropped as non-finite
}

// Len returns the number of samples.
func (s Spectrum) Len() int { return len(s.Samples) }

// All iterates over the samples in frequency order. The sequence can be
// ranged over any number of times.
func (s Spectrum) All() iter.Seq2[int, ImpedanceSample] {
	return func(yield func(int, ImpedanceSample) bool) {
		for i, sample := range s.Samples {
			if !yield(i, sample) {
				return
			}
		}
	}
}

// Frequencies returns a copy of the sample frequencies.
func (s Spectrum) Frequencies() []float64 {
	out := make([]float64, len(s.Samples))
	for i, sample := range s.Samples {
		out[i] = sample.Frequency
	}
	return out
}

// Magnitudes returns a copy of the impedance magnitudes.
func (s Spectrum) Magnitudes() []float64 {
	out := make([]float64, len(s.Samples))
	for i, sample := range s.Samples {
		out[i] = sample.Magnitude
	}
	return out
}

// Synthesizer evaluates the input impedance of a segmented bore.
type Synthesizer struct {
	Model Model

	// Workers bounds the goroutines used by Spectrum; <= 0 uses GOMAXPROCS.
	Workers int

	// SkipInvalidSamples drops samples whose evaluation fails instead of
	// aborting the whole spectrum.
	SkipInvalidSamples bool

	logger logging.Logger
}

// NewSynthesizer creates a synthesizer for the given model.
func NewSynthesizer(model Model) *Synthesizer {
	return &Synthesizer{
		Model: model,
		logger: logging.WithFields(logging.Fields{
			"component": "impedance_synthesizer",
		}),
	}
}

func (s *Synthesizer) log() logging.Logger {
	if s.logger == nil {
		return logging.GetGlobalLogger()
	}
	return s.logger
}

// BoreMatrix cascades the segment matrices at frequency, mouthpiece first.
func (s *Synthesizer) BoreMatrix(segments []geometry.Segment, frequency float64) (TransferMatrix, error) {
	total := Identity()
	for i, seg := range segments {
		m, err := s.Model.SegmentMatrix(seg, frequency)
		if err != nil {
			return TransferMatrix{}, fmt.Errorf("segment %d at %.2f Hz: %w", i, frequency, err)
		}
		total = total.Mul(m)
	}
	return total, nil
}

// InputImpedance returns the mouthpiece impedance of the bore at frequency,
// with the bell terminated by its radiation impedance.
func (s *Synthesizer) InputImpedance(segments []geometry.Segment, frequency float64) (Complex, error) {
	if len(segments) == 0 {
		return 0, fmt.Errorf("%w: no segments", ErrDegenerateSegment)
	}

	total, err := s.BoreMatrix(segments, frequency)
	if err != nil {
		return 0, err
	}

	bell := segments[len(segments)-1].R2.Meters()
	zrad, err := s.Model.RadiationImpedance(bell, frequency)
	if err != nil {
		return 0, err
	}

	zin, err := total.InputImpedance(zrad)
	if err != nil {
		return 0, fmt.Errorf("input impedance at %.2f Hz: %w", frequency, err)
	}
	if !zin.IsFinite() {
		return 0, fmt.Errorf("%w: non-finite impedance at %.2f Hz", ErrDegenerateSegment, frequency)
	}

	return zin, nil
}

// Spectrum evaluates InputImpedance at every frequency. Work is split into
// contiguous chunks across workers; the result is always in input order.
// Cancelling ctx stops the sweep and returns ctx.Err().
func (s *Synthesizer) Spectrum(ctx context.Context, segments []geometry.Segment, frequencies []float64) (Spectrum, error) {
	n := len(frequencies)
	samples := make([]ImpedanceSample, n)
	ok := make([]bool, n)

	workers := s.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, max(n, 1))
	chunk := (n + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}

				f := frequencies[i]
				z, err := s.InputImpedance(segments, f)
				if err != nil {
					if s.SkipInvalidSamples {
						continue
					}
					return err
				}

				samples[i] = ImpedanceSample{Frequency: f, Impedance: z, Magnitude: z.Abs()}
				ok[i] = true
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		// a cancelled parent wins over the per-sample error it triggered
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Spectrum{}, ctxErr
		}
		return Spectrum{}, err
	}

	spectrum := Spectrum{Samples: make([]ImpedanceSample, 0, n)}
	for i := range samples {
		if ok[i] {
			spectrum.Samples = append(spectrum.Samples, samples[i])
		} else {
			spectrum.Skipped++
		}
	}

	if spectrum.Skipped > 0 {
		s.log().Warn("Skipped invalid impedance samples", logging.Fields{
			"skipped": spectrum.Skipped,
			"total":   n,
		})
	}

	return spectrum, nil
}
