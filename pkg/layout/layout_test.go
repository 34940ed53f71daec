package layout

import (
	"bytes"
	"image/color"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"f1replaybot/pkg/telemetry"
)

func samples(xy ...float64) []telemetry.Sample {
	s := make([]telemetry.Sample, 0, len(xy)/2)
	for i := 0; i+1 < len(xy); i += 2 {
		s = append(s, telemetry.Sample{X: xy[i], Y: xy[i+1]})
	}
	return s
}

func points(s []telemetry.Sample) [][2]float64 {
	p := make([][2]float64, len(s))
	for i := range s {
		p[i] = [2]float64{s[i].X, s[i].Y}
	}
	return p
}

func TestFitSquareTrack(t *testing.T) {
	ref := samples(0, 0, 10, 0, 10, 10)
	tr := Fit(points(ref), 800, 500, 50)

	assert.InDelta(t, 40.0, tr.Scale, 1e-9)
	assert.InDelta(t, 200.0, tr.OffsetX, 1e-9)
	assert.InDelta(t, 50.0, tr.OffsetY, 1e-9)

	path := TrackPath(ref, tr, 500)
	require.Len(t, path, 3)
	assert.InDelta(t, 200.0, path[0].X, 1e-9)
	assert.InDelta(t, 450.0, path[0].Y, 1e-9)
	assert.InDelta(t, 600.0, path[1].X, 1e-9)
	assert.InDelta(t, 450.0, path[1].Y, 1e-9)
	assert.InDelta(t, 600.0, path[2].X, 1e-9)
	assert.InDelta(t, 50.0, path[2].Y, 1e-9)
}

func TestFitUsesSmallestRatio(t *testing.T) {
	tests := []struct {
		name                   string
		pts                    [][2]float64
		width, height, padding float64
	}{
		{"wide track", [][2]float64{{-500, 20}, {1500, 300}, {200, -40}}, 800, 500, 50},
		{"tall track", [][2]float64{{0, 0}, {10, 900}, {-3, 450}}, 800, 500, 50},
		{"negative coordinates", [][2]float64{{-8000, -3000}, {-1000, -200}}, 1024, 768, 20},
		{"no padding", [][2]float64{{1, 1}, {2, 5}}, 300, 300, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := Fit(tt.pts, tt.width, tt.height, tt.padding)

			minX, maxX, minY, maxY := math.Inf(1), math.Inf(-1), math.Inf(1), math.Inf(-1)
			for _, p := range tt.pts {
				minX, maxX = math.Min(minX, p[0]), math.Max(maxX, p[0])
				minY, maxY = math.Min(minY, p[1]), math.Max(maxY, p[1])
			}
			scaleX := (tt.width - 2*tt.padding) / (maxX - minX)
			scaleY := (tt.height - 2*tt.padding) / (maxY - minY)
			assert.InDelta(t, math.Min(scaleX, scaleY), tr.Scale, 1e-9)

			const eps = 1e-6
			for _, p := range tt.pts {
				s := tr.Apply(p[0], p[1], tt.height)
				assert.GreaterOrEqual(t, s.X, tt.padding-eps)
				assert.LessOrEqual(t, s.X, tt.width-tt.padding+eps)
				assert.GreaterOrEqual(t, s.Y, tt.padding-eps)
				assert.LessOrEqual(t, s.Y, tt.height-tt.padding+eps)
			}
		})
	}
}

func TestFitDegenerate(t *testing.T) {
	tests := []struct {
		name   string
		pts    [][2]float64
		width  float64
		height float64
	}{
		{"no points", nil, 800, 500},
		{"single point", [][2]float64{{3, 4}}, 800, 500},
		{"vertical line", [][2]float64{{3, 4}, {3, 40}}, 800, 500},
		{"horizontal line", [][2]float64{{3, 4}, {30, 4}}, 800, 500},
		{"only NaN", [][2]float64{{math.NaN(), 1}, {2, math.Inf(1)}}, 800, 500},
		{"viewport smaller than padding", [][2]float64{{0, 0}, {10, 10}}, 80, 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, Identity(), Fit(tt.pts, tt.width, tt.height, 50))
		})
	}
}

func TestFitIgnoresNonFinitePoints(t *testing.T) {
	pts := [][2]float64{{0, 0}, {math.NaN(), 5}, {10, 10}, {math.Inf(-1), 0}}
	assert.Equal(t, Fit([][2]float64{{0, 0}, {10, 10}}, 800, 500, 50), Fit(pts, 800, 500, 50))
}

func TestTrackPathSkipsNonFinite(t *testing.T) {
	ref := samples(0, 0, math.NaN(), 1, 10, 10)
	path := TrackPath(ref, Identity(), 100)
	require.Len(t, path, 2)
	assert.Equal(t, Point{X: 0, Y: 100}, path[0])
	assert.Equal(t, Point{X: 10, Y: 90}, path[1])
}

func TestWriteSVG(t *testing.T) {
	path := []Point{{X: 10, Y: 10}, {X: 100, Y: 10}, {X: 100, Y: 80}}
	var b bytes.Buffer
	err := WriteSVG(&b, path, 200, 100, SvgStyle{
		Background: color.RGBA{0x15, 0x15, 0x1e, 0xff},
		TrackColor: color.RGBA{0x38, 0x38, 0x3f, 0xff},
		TrackWidth: 5,
	})
	require.NoError(t, err)
	out := b.String()
	assert.True(t, strings.HasPrefix(out, "<?xml"))
	assert.Contains(t, out, "<svg")
	assert.Contains(t, out, "<path")
}
