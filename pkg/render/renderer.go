package render

import (
	"image/color"

	"f1replaybot/pkg/layout"
	"f1replaybot/pkg/playback"
	"f1replaybot/pkg/telemetry"
)

type Style struct {
	Background   color.Color
	Track        color.Color
	TrackWidth   float64
	MarkerRadius float64
	Label        color.Color
	LabelOffset  layout.Point
}

func DefaultStyle() Style {
	return Style{
		Background:   color.RGBA{0x15, 0x15, 0x1e, 0xff},
		Track:        color.RGBA{0x38, 0x38, 0x3f, 0xff},
		TrackWidth:   5,
		MarkerRadius: 6,
		Label:        white,
		LabelOffset:  layout.Point{X: 8, Y: 4},
	}
}

// Scene holds everything derived once per payload: the viewport transform,
// the static track path and the driver colors.
type Scene struct {
	Payload   *telemetry.Payload
	Transform layout.Transform
	Track     []layout.Point
	Width     float64
	Height    float64
	colors    []color.RGBA
}

func NewScene(p *telemetry.Payload, width, height, padding float64) *Scene {
	s := &Scene{
		Payload:   p,
		Transform: layout.Fit(p.Points(), width, height, padding),
		Width:     width,
		Height:    height,
	}
	if ref, ok := p.Reference(); ok {
		s.Track = layout.TrackPath(ref.Samples, s.Transform, height)
	}
	if p != nil {
		s.colors = make([]color.RGBA, len(p.Drivers))
		for i, d := range p.Drivers {
			s.colors[i] = DriverColor(d.Color)
		}
	}
	return s
}

// Marker is the resolved position of one driver for a frame.
type Marker struct {
	Driver string
	Index  int
	Sample telemetry.Sample
	At     layout.Point
	Color  color.RGBA
}

// Markers resolves the driver positions at progress in payload order. Drivers
// without samples or with a non projectable sample are left out.
func (s *Scene) Markers(progress float64) []Marker {
	if s.Payload == nil {
		return nil
	}
	markers := make([]Marker, 0, len(s.Payload.Drivers))
	for i, d := range s.Payload.Drivers {
		sample, idx, ok := playback.SampleAt(d, progress)
		if !ok {
			continue
		}
		at := s.Transform.Apply(sample.X, sample.Y, s.Height)
		if !at.Finite() {
			continue
		}
		markers = append(markers, Marker{Driver: d.Driver, Index: idx, Sample: sample, At: at, Color: s.colors[i]})
	}
	return markers
}

type Renderer struct {
	Style Style
}

func NewRenderer(style Style) *Renderer {
	return &Renderer{Style: style}
}

// DrawFrame clears the surface, fills the background, strokes the track and
// draws every driver marker with its label. It returns the number of markers.
func (r *Renderer) DrawFrame(surface Surface, scene *Scene, progress float64) int {
	surface.Clear()
	surface.FillBackground(r.Style.Background)
	if scene == nil {
		return 0
	}

	if len(scene.Track) > 0 {
		surface.StrokePolyline(scene.Track, r.Style.Track, r.Style.TrackWidth)
	}

	markers := scene.Markers(progress)
	for _, m := range markers {
		surface.FillCircle(m.At, r.Style.MarkerRadius, m.Color)
		label := layout.Point{X: m.At.X + r.Style.LabelOffset.X, Y: m.At.Y + r.Style.LabelOffset.Y}
		surface.DrawText(label, m.Driver, r.Style.Label)
	}
	return len(markers)
}
