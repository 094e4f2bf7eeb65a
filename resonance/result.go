package resonance

import (
	"time"

	"github.com/google/uuid"

	"github.com/RyanBlaney/sonido-bore/algorithms/acoustic"
	"github.com/RyanBlaney/sonido-bore/algorithms/spectral"
	"github.com/RyanBlaney/sonido-bore/resonance/config"
)

// Method names the model that produced a result
type Method string

const (
	MethodTransferMatrix Method = "transfer_matrix_method"
	MethodSimplified     Method = "simplified"
)

// HarmonicResult is one playable resonance
type HarmonicResult struct {
	Frequency float64 `json:"frequency"` // Hz
	Harmonic  int     `json:"harmonic"`  // 1 = drone, strictly increasing
	Note      string  `json:"note"`
	Octave    int     `json:"octave"`
	Cents     int     `json:"cents"`
	Amplitude float64 `json:"amplitude"` // relative to the strongest resonance, [0,1]
	Quality   float64 `json:"quality"`   // playability, [0,1]
}

// ChartPoint is one point of the impedance magnitude curve
type ChartPoint struct {
	Frequency float64 `json:"frequency"`
	Magnitude float64 `json:"magnitude"`
}

// TransferMatrixDetails carries the data only the transfer-matrix model produces
type TransferMatrixDetails struct {
	ImpedanceSpectrum []ChartPoint                 `json:"impedance_spectrum"`
	SampleCount       int                          `json:"sample_count"`
	SkippedSamples    int                          `json:"skipped_samples"`
	SegmentCount      int                          `json:"segment_count"`
	Termination       acoustic.Termination         `json:"termination"`
	WallLosses        bool                         `json:"wall_losses"`
	Reflection        *spectral.ReflectionFunction `json:"reflection_function,omitempty"`
}

// SimplifiedDetails carries the closed-form model parameters
type SimplifiedDetails struct {
	EndCorrection  float64              `json:"end_correction"` // meters added to the length
	MouthCoupling  float64              `json:"mouth_coupling"`
	TaperRatio     float64              `json:"taper_ratio"`
	Inclusion      config.InclusionMode `json:"inclusion"`
	Suppressed     []int                `json:"suppressed"` // overtone numbers left out
	FallbackReason string               `json:"fallback_reason,omitempty"`
}

// Metadata describes the analyzed bore and how it was analyzed. Exactly one
// of TransferMatrix and Simplified is set, matching CalculationMethod.
type Metadata struct {
	CalculationMethod Method  `json:"calculation_method"`
	EffectiveLength   float64 `json:"effective_length"` // meters
	PhysicalLength    float64 `json:"physical_length"`  // meters
	AverageRadius     float64 `json:"average_radius"`   // meters
	Volume            float64 `json:"volume"`           // m³
	ReferencePitch    float64 `json:"reference_pitch"`  // Hz

	TransferMatrix *TransferMatrixDetails `json:"transfer_matrix,omitempty"`
	Simplified     *SimplifiedDetails     `json:"simplified,omitempty"`
}

// AnalysisResult is the outcome of one bore analysis. It shares no memory
// with the analyzer or the input geometry.
type AnalysisResult struct {
	ID          uuid.UUID        `json:"id"`
	GeneratedAt time.Time        `json:"generated_at"`
	Method      Method           `json:"method"`
	Results     []HarmonicResult `json:"results"`
	Metadata    Metadata         `json:"metadata"`
}

func newResult(method Method) *AnalysisResult {
	return &AnalysisResult{
		ID:          uuid.New(),
		GeneratedAt: time.Now().UTC(),
		Method:      method,
		Results:     []HarmonicResult{},
		Metadata:    Metadata{CalculationMethod: method},
	}
}

// Fundamental returns the drone frequency, or 0 when nothing resonates
func (r *AnalysisResult) Fundamental() float64 {
	if r == nil || len(r.Results) == 0 {
		return 0
	}
	return r.Results[0].Frequency
}
