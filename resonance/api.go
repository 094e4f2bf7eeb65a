package resonance

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/RyanBlaney/sonido-bore/algorithms/acoustic"
	"github.com/RyanBlaney/sonido-bore/algorithms/common"
	"github.com/RyanBlaney/sonido-bore/algorithms/spectral"
	"github.com/RyanBlaney/sonido-bore/geometry"
	"github.com/RyanBlaney/sonido-bore/resonance/config"
)

// Response is the envelope returned to front ends
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

func ok(data any) Response {
	return Response{Success: true, Data: data}
}

func fail(err error) Response {
	return Response{Success: false, Error: err.Error(), Code: ErrorCode(err)}
}

// ErrorCode maps an error to a stable machine-readable kind
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, geometry.ErrInsufficientGeometry):
		return "insufficient_geometry"
	case errors.Is(err, geometry.ErrInvalidGeometry):
		return "invalid_geometry"
	case errors.Is(err, geometry.ErrParse):
		return "parse_error"
	case errors.Is(err, config.ErrInvalidConfig):
		return "invalid_config"
	case errors.Is(err, acoustic.ErrDegenerateSegment),
		errors.Is(err, acoustic.ErrInvalidRadiation),
		errors.Is(err, acoustic.ErrDivisionByZero):
		return "numeric_error"
	case errors.Is(err, spectral.ErrInvalidSweep):
		return "invalid_sweep"
	case errors.Is(err, ErrNoResonances), errors.Is(err, ErrEmptySpectrum):
		return "no_resonances"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "internal_error"
	}
}

// ParsedGeometry is the data of a ParseGeometry response, in millimeters
type ParsedGeometry struct {
	Length    float64   `json:"length"`
	Diameters []float64 `json:"diameters"`
	Format    string    `json:"format"`
	Points    int       `json:"points"`
}

// ParseGeometry decodes geometry text into a response envelope
func ParseGeometry(text string) Response {
	parsed, err := geometry.ParseGeometry(text)
	if err != nil {
		return fail(err)
	}
	points, err := parsed.Points()
	if err != nil {
		return fail(err)
	}

	diameters := make([]float64, len(parsed.Diameters))
	for i, d := range parsed.Diameters {
		diameters[i] = d.Millimeters()
	}

	return ok(ParsedGeometry{
		Length:    parsed.Length.Millimeters(),
		Diameters: diameters,
		Format:    string(parsed.Format),
		Points:    len(points),
	})
}

func analyze(ctx context.Context, points []geometry.Point, cfg *config.AnalysisConfig) (*AnalysisResult, error) {
	analyzer, err := NewAnalyzer(cfg)
	if err != nil {
		return nil, err
	}
	return analyzer.Analyze(ctx, points)
}

// CalculateFrequencies runs a full analysis. A nil cfg uses the defaults.
func CalculateFrequencies(ctx context.Context, points []geometry.Point, cfg *config.AnalysisConfig) Response {
	result, err := analyze(ctx, points, cfg)
	if err != nil {
		return fail(err)
	}
	return ok(result)
}

// ToneAnalysis summarizes the drone of a bore
type ToneAnalysis struct {
	Fundamental float64 `json:"fundamental"` // Hz
	Note        string  `json:"note"`        // e.g. "D2"
	Cents       int     `json:"cents"`
	Harmonics   int     `json:"harmonics"`
	Method      Method  `json:"method"`
}

// AnalyzeTone reports the drone note of a bore
func AnalyzeTone(ctx context.Context, points []geometry.Point, cfg *config.AnalysisConfig) Response {
	result, err := analyze(ctx, points, cfg)
	if err != nil {
		return fail(err)
	}
	if len(result.Results) == 0 {
		return fail(ErrNoResonances)
	}

	drone := result.Results[0]
	return ok(ToneAnalysis{
		Fundamental: drone.Frequency,
		Note:        fmt.Sprintf("%s%d", drone.Note, drone.Octave),
		Cents:       drone.Cents,
		Harmonics:   len(result.Results),
		Method:      result.Method,
	})
}

// ResonantMode is one resonance relative to the drone
type ResonantMode struct {
	Harmonic  int     `json:"harmonic"`
	Frequency float64 `json:"frequency"`
	Ratio     float64 `json:"ratio"` // frequency / drone frequency
	Note      string  `json:"note"`
	Cents     int     `json:"cents"`
	Amplitude float64 `json:"amplitude"`
}

// CalculateResonantModes lists every resonance with its ratio to the drone
func CalculateResonantModes(ctx context.Context, points []geometry.Point, cfg *config.AnalysisConfig) Response {
	result, err := analyze(ctx, points, cfg)
	if err != nil {
		return fail(err)
	}
	return ok(ResonantModes(result))
}

// ResonantModes derives the mode table of a result
func ResonantModes(result *AnalysisResult) []ResonantMode {
	modes := make([]ResonantMode, 0, len(result.Results))
	f1 := result.Fundamental()
	for _, r := range result.Results {
		ratio := 0.0
		if f1 > 0 {
			ratio = r.Frequency / f1
		}
		modes = append(modes, ResonantMode{
			Harmonic:  r.Harmonic,
			Frequency: r.Frequency,
			Ratio:     ratio,
			Note:      fmt.Sprintf("%s%d", r.Note, r.Octave),
			Cents:     r.Cents,
			Amplitude: r.Amplitude,
		})
	}
	return modes
}

// QualityMetrics scores a bore as a whole. All scores are in [0,1].
type QualityMetrics struct {
	OverallQuality    float64 `json:"overall_quality"`    // mean resonance quality
	DroneStrength     float64 `json:"drone_strength"`     // drone quality times amplitude
	HarmonicRichness  float64 `json:"harmonic_richness"`  // share of MaxHarmonics found
	TuningConsistency float64 `json:"tuning_consistency"` // 1 - mean |cents| / 50
	Inharmonicity     float64 `json:"inharmonicity"`      // mean |f_n / (n·f1) - 1|
	AverageAmplitude  float64 `json:"average_amplitude"`
	ResonanceCount    int     `json:"resonance_count"`
	CalculationMethod Method  `json:"calculation_method"`
}

// GetQualityMetrics scores the playability of a bore
func GetQualityMetrics(ctx context.Context, points []geometry.Point, cfg *config.AnalysisConfig) Response {
	if cfg == nil {
		cfg = config.DefaultAnalysisConfig()
	}
	result, err := analyze(ctx, points, cfg)
	if err != nil {
		return fail(err)
	}
	return ok(Quality(result, cfg.MaxHarmonics))
}

// Quality computes QualityMetrics for a result
func Quality(result *AnalysisResult, maxHarmonics int) QualityMetrics {
	metrics := QualityMetrics{
		ResonanceCount:    len(result.Results),
		CalculationMethod: result.Method,
	}
	if len(result.Results) == 0 {
		return metrics
	}

	n := len(result.Results)
	quality := make([]float64, n)
	amplitude := make([]float64, n)
	cents := make([]float64, n)
	deviation := make([]float64, n)

	f1 := result.Fundamental()
	for i, r := range result.Results {
		quality[i] = r.Quality
		amplitude[i] = r.Amplitude
		cents[i] = math.Abs(float64(r.Cents))
		deviation[i] = math.Abs(r.Frequency/(float64(r.Harmonic)*f1) - 1)
	}

	metrics.OverallQuality = clamp01(stat.Mean(quality, nil))
	metrics.DroneStrength = clamp01(result.Results[0].Quality * result.Results[0].Amplitude)
	metrics.AverageAmplitude = clamp01(stat.Mean(amplitude, nil))
	metrics.TuningConsistency = clamp01(1 - stat.Mean(cents, nil)/50)
	metrics.Inharmonicity = stat.Mean(deviation, nil)
	if maxHarmonics > 0 {
		metrics.HarmonicRichness = clamp01(float64(n) / float64(maxHarmonics))
	}

	return metrics
}

func clamp01(v float64) float64 {
	return common.Clamp(v, 0, 1)
}
