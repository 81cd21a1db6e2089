// Package signature turns a captured handwritten signature into PNG bytes
// and validates PNG payloads received from clients.
package signature

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"

	"golang.org/x/image/vector"
)

var (
	// ErrEmpty means nothing was drawn: a signature is required.
	ErrEmpty = errors.New("signature required")
	// ErrInvalid means the payload is not a usable PNG signature.
	ErrInvalid = errors.New("invalid signature image")
)

// Point is a pointer sample in canvas coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Stroke is one pen-down to pen-up sequence of samples.
type Stroke []Point

// Options control rasterisation.  Zero values fall back to the defaults of
// the capture widget (600x180, 2.5px black pen on white).
type Options struct {
	Width      int
	Height     int
	PenWidth   float64
	Ink        color.Color
	Background color.Color
}

const (
	defaultWidth    = 600
	defaultHeight   = 180
	defaultPenWidth = 2.5
)

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = defaultWidth
	}
	if o.Height <= 0 {
		o.Height = defaultHeight
	}
	if o.PenWidth <= 0 {
		o.PenWidth = defaultPenWidth
	}
	if o.Ink == nil {
		o.Ink = color.Black
	}
	if o.Background == nil {
		o.Background = color.White
	}
	return o
}

// Encode rasterises strokes and returns the PNG encoding.  A stroke set
// without a single sample returns ErrEmpty instead of a blank image.
func Encode(strokes []Stroke, opts Options) ([]byte, error) {
	if countPoints(strokes) == 0 {
		return nil, ErrEmpty
	}
	o := opts.withDefaults()
	if o.Width > MaxDimension || o.Height > MaxDimension {
		return nil, ErrInvalid
	}

	dst := image.NewRGBA(image.Rect(0, 0, o.Width, o.Height))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(o.Background), image.Point{}, draw.Src)

	r := vector.NewRasterizer(o.Width, o.Height)
	r.DrawOp = draw.Over
	half := float32(o.PenWidth / 2)
	w, h := float32(o.Width), float32(o.Height)
	for _, s := range strokes {
		var prev *Point
		for i := range s {
			p := s[i]
			if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
				return nil, ErrInvalid
			}
			x, y := clamp(float32(p.X), w), clamp(float32(p.Y), h)
			dot(r, x, y, half)
			if prev != nil {
				px, py := clamp(float32(prev.X), w), clamp(float32(prev.Y), h)
				segment(r, px, py, x, y, half)
			}
			prev = &s[i]
		}
	}
	r.Draw(dst, dst.Bounds(), image.NewUniform(o.Ink), image.Point{})

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func countPoints(strokes []Stroke) int {
	n := 0
	for _, s := range strokes {
		n += len(s)
	}
	return n
}

func clamp(v, max float32) float32 {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

// Every polygon is emitted clockwise in image space so overlapping shapes
// add coverage instead of cancelling.

// dot draws an octagon of radius rad centred on (x, y).
func dot(r *vector.Rasterizer, x, y, rad float32) {
	const n = 8
	for i := 0; i < n; i++ {
		a := float64(i) * 2 * math.Pi / n
		px := x + rad*float32(math.Cos(a))
		py := y + rad*float32(math.Sin(a))
		if i == 0 {
			r.MoveTo(px, py)
		} else {
			r.LineTo(px, py)
		}
	}
	r.ClosePath()
}

// segment draws the rectangle of width 2*half around (x0,y0)-(x1,y1).
func segment(r *vector.Rasterizer, x0, y0, x1, y1, half float32) {
	dx, dy := x1-x0, y1-y0
	l := float32(math.Hypot(float64(dx), float64(dy)))
	if l == 0 {
		return
	}
	nx, ny := -dy/l*half, dx/l*half
	r.MoveTo(x0+nx, y0+ny)
	r.LineTo(x0-nx, y0-ny)
	r.LineTo(x1-nx, y1-ny)
	r.LineTo(x1+nx, y1+ny)
	r.ClosePath()
}
