package layout

import (
	"math"

	"f1replaybot/pkg/telemetry"
)

const (
	DefaultWidth   = 800
	DefaultHeight  = 500
	DefaultPadding = 50
)

// Point is a position in screen space (pixels, Y pointing down).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) Finite() bool {
	return isFinite(p.X) && isFinite(p.Y)
}

// Transform maps track coordinates to the padded viewport.
type Transform struct {
	Scale   float64 `json:"scale"`
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
}

func Identity() Transform {
	return Transform{Scale: 1}
}

// Apply projects a track position. Track data is Y-up while surfaces are
// Y-down, so the result is flipped around the viewport height.
func (t Transform) Apply(x, y, height float64) Point {
	return Point{
		X: x*t.Scale + t.OffsetX,
		Y: height - (y*t.Scale + t.OffsetY),
	}
}

// Fit computes the uniform scale and the centering offsets that make all
// points fit into width x height minus padding on every side. Degenerate
// inputs (no points, zero extent, no room left after padding) yield the
// identity transform.
func Fit(points [][2]float64, width, height, padding float64) Transform {
	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, p := range points {
		if !isFinite(p[0]) || !isFinite(p[1]) {
			continue
		}
		minX = math.Min(minX, p[0])
		maxX = math.Max(maxX, p[0])
		minY = math.Min(minY, p[1])
		maxY = math.Max(maxY, p[1])
	}

	trackWidth := maxX - minX
	trackHeight := maxY - minY
	innerWidth := width - 2*padding
	innerHeight := height - 2*padding
	if !isFinite(trackWidth) || !isFinite(trackHeight) || trackWidth <= 0 || trackHeight <= 0 {
		return Identity()
	}
	if !isFinite(innerWidth) || !isFinite(innerHeight) || innerWidth <= 0 || innerHeight <= 0 {
		return Identity()
	}

	scale := math.Min(innerWidth/trackWidth, innerHeight/trackHeight)
	return Transform{
		Scale:   scale,
		OffsetX: padding - minX*scale + (innerWidth-trackWidth*scale)/2,
		OffsetY: padding - minY*scale + (innerHeight-trackHeight*scale)/2,
	}
}

// TrackPath projects the reference trace into screen space, keeping the
// sample order so it can be stroked as one polyline.
func TrackPath(samples []telemetry.Sample, t Transform, height float64) []Point {
	path := make([]Point, 0, len(samples))
	for _, s := range samples {
		p := t.Apply(s.X, s.Y, height)
		if !p.Finite() {
			continue
		}
		path = append(path, p)
	}
	return path
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
