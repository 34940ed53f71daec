package render

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"github.com/llgcode/draw2d/draw2dimg"
	"github.com/llgcode/draw2d/draw2dkit"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"f1replaybot/pkg/layout"
)

// Canvas rasterizes frames on an RGBA image.
type Canvas struct {
	img  *image.RGBA
	gc   *draw2dimg.GraphicContext
	face font.Face
}

func NewCanvas(width, height int) *Canvas {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	return &Canvas{
		img:  img,
		gc:   draw2dimg.NewGraphicContext(img),
		face: basicfont.Face7x13,
	}
}

func (c *Canvas) Image() *image.RGBA {
	return c.img
}

func (c *Canvas) Size() (float64, float64) {
	b := c.img.Bounds()
	return float64(b.Dx()), float64(b.Dy())
}

func (c *Canvas) Clear() {
	draw.Draw(c.img, c.img.Bounds(), image.Transparent, image.Point{}, draw.Src)
}

func (c *Canvas) FillBackground(col color.Color) {
	w, h := c.Size()
	c.gc.BeginPath()
	c.gc.SetFillColor(col)
	draw2dkit.Rectangle(c.gc, 0, 0, w, h)
	c.gc.Fill()
}

func (c *Canvas) StrokePolyline(path []layout.Point, col color.Color, width float64) {
	if len(path) == 0 {
		return
	}
	c.gc.BeginPath()
	c.gc.SetStrokeColor(col)
	c.gc.SetLineWidth(width)
	c.gc.MoveTo(path[0].X, path[0].Y)
	for _, p := range path[1:] {
		c.gc.LineTo(p.X, p.Y)
	}
	c.gc.Stroke()
}

func (c *Canvas) FillCircle(center layout.Point, radius float64, col color.Color) {
	c.gc.BeginPath()
	c.gc.SetFillColor(col)
	draw2dkit.Circle(c.gc, center.X, center.Y, radius)
	c.gc.Fill()
}

func (c *Canvas) DrawText(at layout.Point, text string, col color.Color) {
	d := &font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(col),
		Face: c.face,
		Dot:  fixed.P(int(math.Round(at.X)), int(math.Round(at.Y))),
	}
	d.DrawString(text)
}

func (c *Canvas) EncodePNG(w io.Writer) error {
	return png.Encode(w, c.img)
}

func (c *Canvas) SavePNG(filePath string) error {
	return draw2dimg.SaveToPngFile(filePath, c.img)
}
