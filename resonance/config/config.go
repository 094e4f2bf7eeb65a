package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/RyanBlaney/sonido-bore/algorithms/acoustic"
	"github.com/RyanBlaney/sonido-bore/algorithms/harmonic"
	"github.com/RyanBlaney/sonido-bore/algorithms/spectral"
	"github.com/RyanBlaney/sonido-bore/algorithms/tonal"
)

var ErrInvalidConfig = errors.New("config: invalid analysis config")

// InclusionMode decides which overtones the simplified model reports
type InclusionMode string

const (
	// InclusionThreshold keeps overtones whose amplitude reaches MinHarmonicAmplitude
	InclusionThreshold InclusionMode = "threshold"
	// InclusionSeeded keeps each overtone with probability InclusionProbability,
	// drawn from a generator seeded by Seed
	InclusionSeeded InclusionMode = "seeded"
)

// AnalysisConfig configures one bore analysis. It replaces any process-wide
// switch: callers pass it per analyzer.
type AnalysisConfig struct {
	// Method selection
	UseTransferMatrix       bool `json:"use_transfer_matrix"`
	FallbackOnError         bool `json:"fallback_on_error"`
	MinTransferMatrixPoints int  `json:"min_transfer_matrix_points"`

	// Sweep behavior
	SkipInvalidSamples bool `json:"skip_invalid_samples"`
	Workers            int  `json:"workers"` // <= 0 uses GOMAXPROCS

	// Output
	MaxHarmonics       int     `json:"max_harmonics"`
	ReferencePitch     float64 `json:"reference_pitch"` // A4 in Hz
	ReflectionFunction bool    `json:"reflection_function"`

	Physics    acoustic.Model            `json:"physics"`
	Sweep      spectral.FrequencySweep   `json:"sweep"`
	Peaks      harmonic.DetectorConfig   `json:"peaks"`
	Reflection spectral.ReflectionConfig `json:"reflection"`
	Fallback   FallbackConfig            `json:"fallback"`
}

// FallbackConfig holds the closed-form open-pipe approximation parameters
type FallbackConfig struct {
	EndCorrection    float64 `json:"end_correction"`    // bell radii added to the length
	RadiusCorrection float64 `json:"radius_correction"` // pitch drop per unit r̄/L_eff
	MouthCoupling    float64 `json:"mouth_coupling"`    // lip/mouthpiece pitch factor
	TaperShift       float64 `json:"taper_shift"`       // overtone stretch per unit of taper

	MaxOvertone int     `json:"max_overtone"` // highest n computed
	Rolloff     float64 `json:"rolloff"`      // amplitude = 1/n^Rolloff

	Inclusion            InclusionMode `json:"inclusion"`
	MinHarmonicAmplitude float64       `json:"min_harmonic_amplitude"`
	InclusionProbability float64       `json:"inclusion_probability"`
	Seed                 uint64        `json:"seed"`
}

// DefaultFallbackConfig returns the simplified model tuned against measured
// straight didgeridoos.
func DefaultFallbackConfig() FallbackConfig {
	return FallbackConfig{
		EndCorrection:        0.6,
		RadiusCorrection:     0.3,
		MouthCoupling:        0.95,
		TaperShift:           0.05,
		MaxOvertone:          6,
		Rolloff:              1.0,
		Inclusion:            InclusionThreshold,
		MinHarmonicAmplitude: 0.15,
		InclusionProbability: 0.7,
		Seed:                 1,
	}
}

// DefaultAnalysisConfig returns the configuration used when none is given
func DefaultAnalysisConfig() *AnalysisConfig {
	return &AnalysisConfig{
		UseTransferMatrix:       true,
		FallbackOnError:         true,
		MinTransferMatrixPoints: 2,
		SkipInvalidSamples:      true,
		Workers:                 0,
		MaxHarmonics:            8,
		ReferencePitch:          tonal.DefaultReferencePitch,
		ReflectionFunction:      false,
		Physics:                 acoustic.DefaultModel(),
		Sweep:                   spectral.DefaultFrequencySweep(),
		Peaks:                   harmonic.DefaultDetectorConfig(),
		Reflection:              spectral.DefaultReflectionConfig(),
		Fallback:                DefaultFallbackConfig(),
	}
}

// LoadJSON reads a JSON config file and applies it on top of the defaults.
// Keys absent from the file keep their default values.
func LoadJSON(path string) (*AnalysisConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseJSON(b)
}

// ParseJSON overlays a JSON document onto the defaults and validates it.
func ParseJSON(data []byte) (*AnalysisConfig, error) {
	cfg := DefaultAnalysisConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every section. Errors wrap ErrInvalidConfig.
func (c *AnalysisConfig) Validate() error {
	if c.MinTransferMatrixPoints < 2 {
		return fmt.Errorf("%w: min_transfer_matrix_points must be >= 2", ErrInvalidConfig)
	}
	if c.MaxHarmonics < 1 {
		return fmt.Errorf("%w: max_harmonics must be >= 1", ErrInvalidConfig)
	}
	if !positive(c.ReferencePitch) {
		return fmt.Errorf("%w: reference_pitch must be > 0", ErrInvalidConfig)
	}

	p := c.Physics
	if !positive(p.SpeedOfSound) || !positive(p.Density) {
		return fmt.Errorf("%w: physics speed_of_sound and density must be > 0", ErrInvalidConfig)
	}
	if p.CylinderTolerance < 0 || math.IsNaN(p.CylinderTolerance) {
		return fmt.Errorf("%w: physics cylinder_tolerance must be >= 0", ErrInvalidConfig)
	}
	switch p.Termination {
	case acoustic.Unflanged, acoustic.Flanged:
	default:
		return fmt.Errorf("%w: unknown termination %q", ErrInvalidConfig, p.Termination)
	}

	if err := c.Sweep.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if c.Peaks.MinProminence < 0 || c.Peaks.MinProminence >= 1 {
		return fmt.Errorf("%w: peaks min_prominence must be in [0, 1)", ErrInvalidConfig)
	}

	if c.Reflection.Resolution < 0 {
		return fmt.Errorf("%w: reflection resolution must be >= 0", ErrInvalidConfig)
	}

	return c.Fallback.Validate()
}

// Validate checks the simplified model parameters
func (f FallbackConfig) Validate() error {
	if f.EndCorrection < 0 || f.RadiusCorrection < 0 {
		return fmt.Errorf("%w: fallback corrections must be >= 0", ErrInvalidConfig)
	}
	if !positive(f.MouthCoupling) {
		return fmt.Errorf("%w: fallback mouth_coupling must be > 0", ErrInvalidConfig)
	}
	if f.MaxOvertone < 1 {
		return fmt.Errorf("%w: fallback max_overtone must be >= 1", ErrInvalidConfig)
	}
	if f.Rolloff < 0 {
		return fmt.Errorf("%w: fallback rolloff must be >= 0", ErrInvalidConfig)
	}

	switch f.Inclusion {
	case InclusionThreshold:
		if f.MinHarmonicAmplitude < 0 || f.MinHarmonicAmplitude > 1 {
			return fmt.Errorf("%w: fallback min_harmonic_amplitude must be in [0, 1]", ErrInvalidConfig)
		}
	case InclusionSeeded:
		if f.InclusionProbability < 0 || f.InclusionProbability > 1 {
			return fmt.Errorf("%w: fallback inclusion_probability must be in [0, 1]", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown inclusion mode %q", ErrInvalidConfig, f.Inclusion)
	}

	return nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}
