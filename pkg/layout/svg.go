package layout

import (
	"encoding/xml"
	"image/color"
	"io"

	"github.com/llgcode/draw2d/draw2dkit"
	"github.com/llgcode/draw2d/draw2dsvg"
	"github.com/pkg/errors"
)

type SvgStyle struct {
	Background   color.Color
	TrackColor   color.Color
	TrackWidth   float64
	CloseCircuit bool
}

func buildSvg(path []Point, width, height float64, style SvgStyle) *draw2dsvg.Svg {
	dest := draw2dsvg.NewSvg()
	gc := draw2dsvg.NewGraphicContext(dest)

	if style.Background != nil {
		gc.SetFillColor(style.Background)
		draw2dkit.Rectangle(gc, 0, 0, width, height)
		gc.Fill()
	}
	if len(path) == 0 {
		return dest
	}

	gc.SetStrokeColor(style.TrackColor)
	gc.SetLineWidth(style.TrackWidth)
	gc.BeginPath()
	gc.MoveTo(path[0].X, path[0].Y)
	for _, p := range path[1:] {
		gc.LineTo(p.X, p.Y)
	}
	if style.CloseCircuit {
		gc.Close()
	}
	gc.Stroke()
	return dest
}

// WriteSVG writes the static track path as an SVG document.
func WriteSVG(w io.Writer, path []Point, width, height float64, style SvgStyle) error {
	dest := buildSvg(path, width, height, style)
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return errors.Wrap(err, "writing svg header")
	}
	encoder := xml.NewEncoder(w)
	encoder.Indent("", "\t")
	return errors.Wrap(encoder.Encode(dest), "encoding svg")
}

func SaveSVG(filePath string, path []Point, width, height float64, style SvgStyle) error {
	return draw2dsvg.SaveToSvgFile(filePath, buildSvg(path, width, height, style))
}
