// Package geometry describes a bore as an ordered diameter profile and turns
// that profile into conical segments for the acoustic engine.
//
// All lengths are carried as Length values in meters. Callers holding display
// units multiply by the unit constants:
//
//	geometry.Point{Position: 150 * geometry.Centimeter, Diameter: 40 * geometry.Millimeter}
package geometry

import (
	"errors"
	"fmt"
	"math"
)

// Errors returned by geometry validation and segmentation.
var (
	ErrInsufficientGeometry = errors.New("geometry: at least 2 points are required")
	ErrInvalidGeometry      = errors.New("geometry: invalid bore profile")
)

// Length is a distance in meters.
type Length float64

// Length units.
const (
	Meter      Length = 1
	Centimeter Length = 1e-2
	Millimeter Length = 1e-3
	Inch       Length = 0.0254
)

// Meters returns l as a plain float64 in meters.
func (l Length) Meters() float64 { return float64(l) }

// Millimeters returns l in millimeters.
func (l Length) Millimeters() float64 { return float64(l / Millimeter) }

func (l Length) String() string {
	return fmt.Sprintf("%.1fmm", l.Millimeters())
}

// Point is one sample of the bore profile: the inner diameter at a distance
// from the mouthpiece.
type Point struct {
	Position Length `json:"position"`
	Diameter Length `json:"diameter"`
}

// Radius returns half the diameter.
func (p Point) Radius() Length { return p.Diameter / 2 }

// Validate checks that points form a usable profile: at least two samples,
// strictly increasing finite positions and positive finite diameters.
func Validate(points []Point) error {
	if len(points) < 2 {
		return fmt.Errorf("%w: got %d", ErrInsufficientGeometry, len(points))
	}

	for i, p := range points {
		pos, d := float64(p.Position), float64(p.Diameter)
		if math.IsNaN(pos) || math.IsInf(pos, 0) {
			return fmt.Errorf("%w: point %d has non-finite position", ErrInvalidGeometry, i)
		}
		if math.IsNaN(d) || math.IsInf(d, 0) || d <= 0 {
			return fmt.Errorf("%w: point %d has diameter %v", ErrInvalidGeometry, i, d)
		}
		if i > 0 && p.Position <= points[i-1].Position {
			return fmt.Errorf("%w: position %d (%v) does not increase past %v",
				ErrInvalidGeometry, i, p.Position, points[i-1].Position)
		}
	}

	return nil
}

// Segment is a truncated cone between two adjacent profile points.
type Segment struct {
	StartPosition Length  `json:"start_position"`
	Length        Length  `json:"length"`
	R1            Length  `json:"r1"` // entry radius (mouthpiece side)
	R2            Length  `json:"r2"` // exit radius (bell side)
	TaperRatio    float64 `json:"taper_ratio"`
}

// IsCylindrical reports whether the taper ratio is within tol of 1.
func (s Segment) IsCylindrical(tol float64) bool {
	return math.Abs(s.TaperRatio-1) < tol
}

// Segments converts a validated profile into one segment per adjacent pair,
// mouthpiece first.
func Segments(points []Point) ([]Segment, error) {
	if err := Validate(points); err != nil {
		return nil, err
	}

	segments := make([]Segment, 0, len(points)-1)
	for i := 1; i < len(points); i++ {
		a, b := points[i-1], points[i]
		r1, r2 := a.Radius(), b.Radius()
		segments = append(segments, Segment{
			StartPosition: a.Position,
			Length:        b.Position - a.Position,
			R1:            r1,
			R2:            r2,
			TaperRatio:    float64(r2 / r1),
		})
	}

	return segments, nil
}
