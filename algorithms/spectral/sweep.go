package spectral

import (
	"errors"
	"fmt"
	"iter"
	"math"
)

// ErrInvalidSweep is returned for sweep bounds or steps that cannot produce a
// strictly increasing sequence.
var ErrInvalidSweep = errors.New("spectral: invalid frequency sweep")

// FrequencySweep describes the driving frequencies of an impedance
// calculation: FineStep spacing from Start up to (not including) Breakpoint,
// CoarseStep spacing from there to End. End is always the last sample.
type FrequencySweep struct {
	Start      float64 `json:"start"`       // Hz
	End        float64 `json:"end"`         // Hz, inclusive
	Breakpoint float64 `json:"breakpoint"`  // Hz where the step widens
	FineStep   float64 `json:"fine_step"`   // Hz
	CoarseStep float64 `json:"coarse_step"` // Hz
}

// DefaultFrequencySweep covers 30–1000 Hz with 0.5 Hz resolution below 100 Hz,
// where didgeridoo drones sit, and 1 Hz above.
func DefaultFrequencySweep() FrequencySweep {
	return FrequencySweep{
		Start:      30,
		End:        1000,
		Breakpoint: 100,
		FineStep:   0.5,
		CoarseStep: 1.0,
	}
}

// Validate checks the sweep parameters.
func (s FrequencySweep) Validate() error {
	for _, v := range []float64{s.Start, s.End, s.Breakpoint, s.FineStep, s.CoarseStep} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite parameter", ErrInvalidSweep)
		}
	}
	if s.Start <= 0 {
		return fmt.Errorf("%w: start %.2f Hz must be positive", ErrInvalidSweep, s.Start)
	}
	if s.End < s.Start {
		return fmt.Errorf("%w: end %.2f Hz below start %.2f Hz", ErrInvalidSweep, s.End, s.Start)
	}
	if s.FineStep <= 0 || s.CoarseStep <= 0 {
		return fmt.Errorf("%w: steps must be positive", ErrInvalidSweep)
	}
	return nil
}

// All yields the sweep frequencies in increasing order. Each sample is
// computed from an integer step count, so no rounding error accumulates and
// ranging over the sequence again yields identical values.
func (s FrequencySweep) All() iter.Seq[float64] {
	return func(yield func(float64) bool) {
		if s.Validate() != nil {
			return
		}

		// tolerance for landing exactly on a bound
		eps := 1e-9 * math.Max(s.FineStep, s.CoarseStep)

		last := math.Inf(-1)
		i := 0
		for {
			f := s.Start + float64(i)*s.FineStep
			if f >= s.Breakpoint-eps || f > s.End+eps {
				break
			}
			if !yield(f) {
				return
			}
			last = f
			i++
		}

		// the coarse grid continues from the first fine sample at or past the breakpoint
		origin := s.Start + float64(i)*s.FineStep
		for j := 0; ; j++ {
			f := origin + float64(j)*s.CoarseStep
			if f > s.End+eps {
				break
			}
			if math.Abs(f-s.End) <= eps {
				f = s.End
			}
			if !yield(f) {
				return
			}
			last = f
		}

		if last < s.End-eps {
			yield(s.End)
		}
	}
}

// Frequencies returns the sweep as a new slice.
func (s FrequencySweep) Frequencies() ([]float64, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	out := make([]float64, 0, s.estimate())
	for f := range s.All() {
		out = append(out, f)
	}
	return out, nil
}

func (s FrequencySweep) estimate() int {
	fine := math.Max(0, math.Min(s.Breakpoint, s.End)-s.Start) / s.FineStep
	coarse := math.Max(0, s.End-math.Max(s.Breakpoint, s.Start)) / s.CoarseStep
	return int(fine+coarse) + 2
}
