package resonance

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/sonido-bore/algorithms/acoustic"
	"github.com/RyanBlaney/sonido-bore/geometry"
	"github.com/RyanBlaney/sonido-bore/logging"
	"github.com/RyanBlaney/sonido-bore/resonance/config"
)

func TestMain(m *testing.M) {
	logging.SetGlobalLogger(nil)
	os.Exit(m.Run())
}

func cylinder(length, diameter geometry.Length) []geometry.Point {
	return []geometry.Point{
		{Position: 0, Diameter: diameter},
		{Position: length, Diameter: diameter},
	}
}

func nearCylinder() []geometry.Point {
	return []geometry.Point{
		{Position: 0, Diameter: 30 * geometry.Millimeter},
		{Position: 60 * geometry.Centimeter, Diameter: 31 * geometry.Millimeter},
		{Position: 110 * geometry.Centimeter, Diameter: 32 * geometry.Millimeter},
		{Position: 150 * geometry.Centimeter, Diameter: 34 * geometry.Millimeter},
	}
}

func newAnalyzer(t *testing.T, mutate func(*config.AnalysisConfig)) *Analyzer {
	t.Helper()
	cfg := config.DefaultAnalysisConfig()
	if mutate != nil {
		mutate(cfg)
	}
	a, err := NewAnalyzer(cfg)
	require.NoError(t, err)
	return a
}

func assertWellFormed(t *testing.T, result *AnalysisResult) {
	t.Helper()
	require.NotEmpty(t, result.Results)
	assert.Equal(t, 1, result.Results[0].Harmonic)

	for i, r := range result.Results {
		assert.GreaterOrEqual(t, r.Amplitude, 0.0)
		assert.LessOrEqual(t, r.Amplitude, 1.0)
		assert.GreaterOrEqual(t, r.Quality, 0.0)
		assert.LessOrEqual(t, r.Quality, 1.0)
		assert.GreaterOrEqual(t, r.Cents, -50)
		assert.LessOrEqual(t, r.Cents, 50)
		assert.NotEmpty(t, r.Note)
		if i > 0 {
			assert.Greater(t, r.Frequency, result.Results[i-1].Frequency)
			assert.Greater(t, r.Harmonic, result.Results[i-1].Harmonic)
		}
	}
}

func TestAnalyzeTransferMatrixCylinder(t *testing.T) {
	a := newAnalyzer(t, nil)

	result, err := a.AnalyzeTransferMatrix(context.Background(), cylinder(150*geometry.Centimeter, 40*geometry.Millimeter))
	require.NoError(t, err)
	assertWellFormed(t, result)

	assert.Equal(t, MethodTransferMatrix, result.Method)
	assert.Equal(t, MethodTransferMatrix, result.Metadata.CalculationMethod)
	assert.Greater(t, result.Fundamental(), 50.0)
	assert.Less(t, result.Fundamental(), 65.0)
	assert.LessOrEqual(t, len(result.Results), 8)

	// closed cylinder: odd resonances only
	require.GreaterOrEqual(t, len(result.Results), 3)
	assert.Equal(t, 3, result.Results[1].Harmonic)
	assert.Equal(t, 5, result.Results[2].Harmonic)

	details := result.Metadata.TransferMatrix
	require.NotNil(t, details)
	assert.Nil(t, result.Metadata.Simplified)
	assert.Equal(t, 1041, details.SampleCount)
	assert.Len(t, details.ImpedanceSpectrum, 1041)
	assert.Equal(t, 30.0, details.ImpedanceSpectrum[0].Frequency)
	assert.Equal(t, 1000.0, details.ImpedanceSpectrum[1040].Frequency)
	assert.Equal(t, 1, details.SegmentCount)
	assert.Equal(t, acoustic.Unflanged, details.Termination)
	assert.Nil(t, details.Reflection)

	assert.InDelta(t, 1.5, result.Metadata.PhysicalLength, 1e-12)
	assert.InDelta(t, 0.02, result.Metadata.AverageRadius, 1e-12)
	assert.NotEqual(t, uuid.Nil, result.ID)
	assert.False(t, result.GeneratedAt.IsZero())
}

func TestCylinderFundamentalNearQuarterWave(t *testing.T) {
	a := newAnalyzer(t, nil)

	for _, length := range []geometry.Length{100 * geometry.Centimeter, 130 * geometry.Centimeter, 170 * geometry.Centimeter} {
		result, err := a.AnalyzeTransferMatrix(context.Background(), cylinder(length, 32*geometry.Millimeter))
		require.NoError(t, err)

		want := acoustic.SpeedOfSound / (4 * length.Meters())
		assert.InEpsilon(t, want, result.Fundamental(), 0.2, "length %v", length)
	}
}

func TestNearCylinderHarmonicSeries(t *testing.T) {
	a := newAnalyzer(t, nil)

	result, err := a.AnalyzeTransferMatrix(context.Background(), nearCylinder())
	require.NoError(t, err)
	assertWellFormed(t, result)
	require.Greater(t, len(result.Results), 2)

	f0 := result.Fundamental()
	for _, r := range result.Results {
		want := float64(r.Harmonic) * f0
		assert.InEpsilon(t, want, r.Frequency, 0.2, "harmonic %d", r.Harmonic)
	}
	assert.Equal(t, 3, result.Metadata.TransferMatrix.SegmentCount)
}

func TestAnalyzeTransferMatrixReflectionFunction(t *testing.T) {
	a := newAnalyzer(t, func(c *config.AnalysisConfig) { c.ReflectionFunction = true })

	result, err := a.AnalyzeTransferMatrix(context.Background(), cylinder(150*geometry.Centimeter, 40*geometry.Millimeter))
	require.NoError(t, err)

	rf := result.Metadata.TransferMatrix.Reflection
	require.NotNil(t, rf)
	require.NotEmpty(t, rf.Samples)

	// the bell echo returns after the round trip over the end-corrected length
	roundTrip := 2 * (1.5 + 0.6133*0.02) / acoustic.SpeedOfSound
	assert.InDelta(t, roundTrip, rf.PeakDelay(0.002), 0.0015)
}

func TestGeometryErrors(t *testing.T) {
	a := newAnalyzer(t, nil)
	ctx := context.Background()

	tests := []struct {
		name    string
		points  []geometry.Point
		wantErr error
	}{
		{"single point", []geometry.Point{{Position: 0, Diameter: 40 * geometry.Millimeter}}, geometry.ErrInsufficientGeometry},
		{"empty", nil, geometry.ErrInsufficientGeometry},
		{"identical positions", []geometry.Point{
			{Position: 0, Diameter: 40 * geometry.Millimeter},
			{Position: 0, Diameter: 40 * geometry.Millimeter},
		}, geometry.ErrInvalidGeometry},
		{"negative diameter", []geometry.Point{
			{Position: 0, Diameter: -40 * geometry.Millimeter},
			{Position: 1, Diameter: 40 * geometry.Millimeter},
		}, geometry.ErrInvalidGeometry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.AnalyzeTransferMatrix(ctx, tt.points)
			assert.ErrorIs(t, err, tt.wantErr)

			_, err = a.Analyze(ctx, tt.points)
			assert.ErrorIs(t, err, tt.wantErr)

			_, err = a.AnalyzeSimplified(tt.points, "")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestAnalyzeUsesTransferMatrix(t *testing.T) {
	a := newAnalyzer(t, nil)

	result, err := a.Analyze(context.Background(), nearCylinder())
	require.NoError(t, err)
	assert.Equal(t, MethodTransferMatrix, result.Method)
	assert.NotNil(t, result.Metadata.TransferMatrix)
}

func TestAnalyzeFallsBackWithoutResonances(t *testing.T) {
	// the drone of a 1.5 m bore lies above this band
	narrow := func(c *config.AnalysisConfig) {
		c.Sweep.Start = 30
		c.Sweep.End = 40
	}

	a := newAnalyzer(t, narrow)
	result, err := a.Analyze(context.Background(), cylinder(150*geometry.Centimeter, 40*geometry.Millimeter))
	require.NoError(t, err)
	assert.Equal(t, MethodSimplified, result.Method)
	require.NotNil(t, result.Metadata.Simplified)
	assert.Contains(t, result.Metadata.Simplified.FallbackReason, "no resonance")
	assertWellFormed(t, result)

	strict := newAnalyzer(t, func(c *config.AnalysisConfig) {
		narrow(c)
		c.FallbackOnError = false
	})
	_, err = strict.Analyze(context.Background(), cylinder(150*geometry.Centimeter, 40*geometry.Millimeter))
	assert.ErrorIs(t, err, ErrNoResonances)
}

func TestAnalyzeMinTransferMatrixPoints(t *testing.T) {
	a := newAnalyzer(t, func(c *config.AnalysisConfig) { c.MinTransferMatrixPoints = 3 })

	result, err := a.Analyze(context.Background(), cylinder(150*geometry.Centimeter, 40*geometry.Millimeter))
	require.NoError(t, err)
	assert.Equal(t, MethodSimplified, result.Method)
	assert.Contains(t, result.Metadata.Simplified.FallbackReason, "needs 3")

	result, err = a.Analyze(context.Background(), nearCylinder())
	require.NoError(t, err)
	assert.Equal(t, MethodTransferMatrix, result.Method)
}

func TestAnalyzeCancelled(t *testing.T) {
	a := newAnalyzer(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Analyze(ctx, nearCylinder())
	assert.ErrorIs(t, err, context.Canceled)

	_, err = a.AnalyzeTransferMatrix(ctx, nearCylinder())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResultsAreIndependent(t *testing.T) {
	a := newAnalyzer(t, nil)
	points := nearCylinder()

	first, err := a.Analyze(context.Background(), points)
	require.NoError(t, err)
	second, err := a.Analyze(context.Background(), points)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, first.Results, second.Results)

	first.Results[0].Frequency = -1
	first.Metadata.TransferMatrix.ImpedanceSpectrum[0].Magnitude = -1
	assert.Positive(t, second.Results[0].Frequency)
	assert.Positive(t, second.Metadata.TransferMatrix.ImpedanceSpectrum[0].Magnitude)
	assert.Equal(t, 30*geometry.Millimeter, points[0].Diameter)
}

func TestNewAnalyzerRejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultAnalysisConfig()
	cfg.ReferencePitch = 0

	_, err := NewAnalyzer(cfg)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)

	a, err := NewAnalyzer(nil)
	require.NoError(t, err)
	assert.Equal(t, 440.0, a.Config().ReferencePitch)
}

func TestAlternateReferencePitch(t *testing.T) {
	standard := newAnalyzer(t, nil)
	low := newAnalyzer(t, func(c *config.AnalysisConfig) { c.ReferencePitch = 432 })

	points := cylinder(150*geometry.Centimeter, 40*geometry.Millimeter)
	a, err := standard.AnalyzeTransferMatrix(context.Background(), points)
	require.NoError(t, err)
	b, err := low.AnalyzeTransferMatrix(context.Background(), points)
	require.NoError(t, err)

	assert.InDelta(t, a.Fundamental(), b.Fundamental(), 1e-9)
	assert.Equal(t, 432.0, b.Metadata.ReferencePitch)
	assert.NotEqual(t, a.Results[0].Cents, b.Results[0].Cents)
}
