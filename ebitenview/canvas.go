package ebitenview

import (
	"bytes"
	"fmt"
	"image/color"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/phanxgames/sprig"
)

// DefaultFontSize is the size of the face Canvas draws text with.
const DefaultFontSize = 14

// whitePixel is a 1x1 white image used to draw solid rectangles through a GeoM.
var whitePixel *ebiten.Image

func init() {
	whitePixel = ebiten.NewImage(1, 1)
	whitePixel.Fill(color.White)
}

// LoadFace parses TrueType data into a text/v2 face of the given size.
func LoadFace(ttf []byte, size float64) (*text.GoTextFace, error) {
	src, err := text.NewGoTextFaceSource(bytes.NewReader(ttf))
	if err != nil {
		return nil, fmt.Errorf("ebitenview: parse font: %w", err)
	}
	return &text.GoTextFace{Source: src, Size: size}, nil
}

// Canvas draws onto an ebiten image. Transform and alpha state come from the
// embedded MatrixCanvas; the drawing calls map through the current transform.
type Canvas struct {
	*sprig.MatrixCanvas

	Face   *text.GoTextFace
	target *ebiten.Image
}

// NewCanvas creates a canvas with the Go Regular face. It draws nothing until
// SetTarget is called.
func NewCanvas() (*Canvas, error) {
	face, err := LoadFace(goregular.TTF, DefaultFontSize)
	if err != nil {
		return nil, err
	}
	return &Canvas{MatrixCanvas: sprig.NewMatrixCanvas(), Face: face}, nil
}

// SetTarget sets the image subsequent calls draw into, usually the screen
// passed to ebiten.Game.Draw.
func (c *Canvas) SetTarget(img *ebiten.Image) { c.target = img }

// Target returns the current target image.
func (c *Canvas) Target() *ebiten.Image { return c.target }

// Clear resets the transform state and clears the target.
func (c *Canvas) Clear() {
	c.MatrixCanvas.Clear()
	if c.target != nil {
		c.target.Clear()
	}
}

func (c *Canvas) geoM() ebiten.GeoM {
	m := c.Transform()
	var g ebiten.GeoM
	g.SetElement(0, 0, m[0])
	g.SetElement(1, 0, m[1])
	g.SetElement(0, 1, m[2])
	g.SetElement(1, 1, m[3])
	g.SetElement(0, 2, m[4])
	g.SetElement(1, 2, m[5])
	return g
}

func (c *Canvas) color(col sprig.Color) color.RGBA {
	return col.WithAlpha(c.Alpha()).ToRGBA()
}

func (c *Canvas) point(x, y float64) (float32, float32) {
	p := sprig.TransformPoint(c.Transform(), sprig.Vec2{X: x, Y: y})
	return float32(p.X), float32(p.Y)
}

// scale is the uniform length scale of the current transform.
func (c *Canvas) scale() float64 {
	m := c.Transform()
	return math.Sqrt(math.Abs(m[0]*m[3] - m[1]*m[2]))
}

// FillRect draws a filled rectangle.
func (c *Canvas) FillRect(x, y, w, h float64, col sprig.Color) {
	c.MatrixCanvas.FillRect(x, y, w, h, col)
	if c.target == nil {
		return
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(w, h)
	op.GeoM.Translate(x, y)
	op.GeoM.Concat(c.geoM())
	op.ColorScale.ScaleWithColor(c.color(col))
	c.target.DrawImage(whitePixel, op)
}

// StrokeRect draws a rectangle outline as four transformed lines.
func (c *Canvas) StrokeRect(x, y, w, h, width float64, col sprig.Color) {
	c.MatrixCanvas.StrokeRect(x, y, w, h, width, col)
	if c.target == nil {
		return
	}
	c.segment(x, y, x+w, y, width, col)
	c.segment(x+w, y, x+w, y+h, width, col)
	c.segment(x+w, y+h, x, y+h, width, col)
	c.segment(x, y+h, x, y, width, col)
}

// FillCircle draws a filled circle.
func (c *Canvas) FillCircle(x, y, r float64, col sprig.Color) {
	c.MatrixCanvas.FillCircle(x, y, r, col)
	if c.target == nil {
		return
	}
	cx, cy := c.point(x, y)
	vector.DrawFilledCircle(c.target, cx, cy, float32(r*c.scale()), c.color(col), true)
}

// Line draws a line segment.
func (c *Canvas) Line(x0, y0, x1, y1, width float64, col sprig.Color) {
	c.MatrixCanvas.Line(x0, y0, x1, y1, width, col)
	if c.target == nil {
		return
	}
	c.segment(x0, y0, x1, y1, width, col)
}

func (c *Canvas) segment(x0, y0, x1, y1, width float64, col sprig.Color) {
	ax, ay := c.point(x0, y0)
	bx, by := c.point(x1, y1)
	vector.StrokeLine(c.target, ax, ay, bx, by, float32(width*c.scale()), c.color(col), true)
}

// Text draws s with its top-left corner at (x, y).
func (c *Canvas) Text(s string, x, y float64, col sprig.Color) {
	c.MatrixCanvas.Text(s, x, y, col)
	if c.target == nil || c.Face == nil {
		return
	}
	op := &text.DrawOptions{}
	op.GeoM.Translate(x, y)
	op.GeoM.Concat(c.geoM())
	op.ColorScale.ScaleWithColor(c.color(col))
	text.Draw(c.target, s, c.Face, op)
}

// MeasureText returns the size s would occupy in the canvas face.
func (c *Canvas) MeasureText(s string) sprig.Vec2 {
	if c.Face == nil {
		return sprig.Vec2{}
	}
	m := c.Face.Metrics()
	w, h := text.Measure(s, c.Face, m.HAscent+m.HDescent+m.HLineGap)
	return sprig.Vec2{X: w, Y: h}
}
var _ sprig.Canvas = (*Canvas)(nil)
