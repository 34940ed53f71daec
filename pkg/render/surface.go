package render

import (
	"image/color"
	"sync"

	"f1replaybot/pkg/layout"
)

// Surface is a fixed size 2-D drawing target in pixel space.
type Surface interface {
	Size() (width, height float64)
	Clear()
	FillBackground(c color.Color)
	StrokePolyline(path []layout.Point, c color.Color, width float64)
	FillCircle(center layout.Point, radius float64, c color.Color)
	DrawText(at layout.Point, text string, c color.Color)
}

type OpKind string

const (
	OpClear      OpKind = "clear"
	OpBackground OpKind = "background"
	OpPolyline   OpKind = "polyline"
	OpCircle     OpKind = "circle"
	OpText       OpKind = "text"
)

// Op is one recorded draw instruction.
type Op struct {
	Kind   OpKind         `json:"op"`
	Color  string         `json:"color,omitempty"`
	Points []layout.Point `json:"points,omitempty"`
	At     *layout.Point  `json:"at,omitempty"`
	Radius float64        `json:"radius,omitempty"`
	Width  float64        `json:"width,omitempty"`
	Text   string         `json:"text,omitempty"`
}

type Frame struct {
	Seq    int     `json:"seq"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Ops    []Op    `json:"ops"`
}

// Recorder is a Surface that keeps the instructions of the current frame
// instead of rasterizing them. Clear starts a new frame.
type Recorder struct {
	mu     sync.Mutex
	width  float64
	height float64
	seq    int
	ops    []Op
}

func NewRecorder(width, height float64) *Recorder {
	return &Recorder{width: width, height: height}
}

func (r *Recorder) Size() (float64, float64) {
	return r.width, r.height
}

func (r *Recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	r.ops = []Op{{Kind: OpClear}}
}

func (r *Recorder) FillBackground(c color.Color) {
	r.record(Op{Kind: OpBackground, Color: HexString(c)})
}

func (r *Recorder) StrokePolyline(path []layout.Point, c color.Color, width float64) {
	points := make([]layout.Point, len(path))
	copy(points, path)
	r.record(Op{Kind: OpPolyline, Color: HexString(c), Points: points, Width: width})
}

func (r *Recorder) FillCircle(center layout.Point, radius float64, c color.Color) {
	r.record(Op{Kind: OpCircle, Color: HexString(c), At: &center, Radius: radius})
}

func (r *Recorder) DrawText(at layout.Point, text string, c color.Color) {
	r.record(Op{Kind: OpText, Color: HexString(c), At: &at, Text: text})
}

func (r *Recorder) record(op Op) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, op)
}

// Frame returns a copy of the current frame.
func (r *Recorder) Frame() Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	ops := make([]Op, len(r.ops))
	copy(ops, r.ops)
	return Frame{Seq: r.seq, Width: r.width, Height: r.height, Ops: ops}
}
