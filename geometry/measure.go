package geometry

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// BoreStats summarizes a bore profile.
type BoreStats struct {
	Length        Length  `json:"length"`         // mouthpiece to bell
	AverageRadius Length  `json:"average_radius"` // mean of sampled radii
	RadiusStdDev  Length  `json:"radius_std_dev"`
	MouthRadius   Length  `json:"mouth_radius"`
	BellRadius    Length  `json:"bell_radius"`
	Volume        float64 `json:"volume"` // m³, sum of frustum volumes
	TaperRatio    float64 `json:"taper_ratio"`
}

// Measure computes BoreStats for a valid profile.
func Measure(points []Point) (BoreStats, error) {
	if err := Validate(points); err != nil {
		return BoreStats{}, err
	}

	radii := make([]float64, len(points))
	for i, p := range points {
		radii[i] = float64(p.Radius())
	}

	volumes := make([]float64, 0, len(points)-1)
	for i := 1; i < len(points); i++ {
		r1, r2 := radii[i-1], radii[i]
		l := float64(points[i].Position - points[i-1].Position)
		volumes = append(volumes, math.Pi*l*(r1*r1+r1*r2+r2*r2)/3)
	}

	first, last := points[0], points[len(points)-1]
	stats := BoreStats{
		Length:        last.Position - first.Position,
		AverageRadius: Length(stat.Mean(radii, nil)),
		MouthRadius:   first.Radius(),
		BellRadius:    last.Radius(),
		Volume:        floats.Sum(volumes),
		TaperRatio:    float64(last.Radius() / first.Radius()),
	}
	if len(radii) > 1 {
		stats.RadiusStdDev = Length(stat.StdDev(radii, nil))
	}

	return stats, nil
}
