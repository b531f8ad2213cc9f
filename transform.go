package sprig

import "math"

// identityTransform is the identity affine matrix.
var identityTransform = [6]float64{1, 0, 0, 1, 0, 0}

// multiplyAffine multiplies two 2D affine matrices: result = parent * child.
//
//	Matrix layout: [a, b, c, d, tx, ty]
//	| a  c  tx |
//	| b  d  ty |
//	| 0  0   1 |
func multiplyAffine(p, c [6]float64) [6]float64 {
	return [6]float64{
		p[0]*c[0] + p[2]*c[1],
		p[1]*c[0] + p[3]*c[1],
		p[0]*c[2] + p[2]*c[3],
		p[1]*c[2] + p[3]*c[3],
		p[0]*c[4] + p[2]*c[5] + p[4],
		p[1]*c[4] + p[3]*c[5] + p[5],
	}
}

// invertAffine computes the inverse of a 2D affine matrix.
// Returns the identity matrix if the matrix is singular (determinant ≈ 0).
func invertAffine(m [6]float64) [6]float64 {
	det := m[0]*m[3] - m[2]*m[1]
	if det > -1e-12 && det < 1e-12 {
		return identityTransform
	}
	invDet := 1.0 / det
	a := m[3] * invDet
	b := -m[1] * invDet
	c := -m[2] * invDet
	d := m[0] * invDet
	return [6]float64{
		a, b, c, d,
		-(a*m[4] + c*m[5]),
		-(b*m[4] + d*m[5]),
	}
}

// transformPoint applies an affine matrix to a point.
func transformPoint(m [6]float64, x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

func translateAffine(x, y float64) [6]float64 { return [6]float64{1, 0, 0, 1, x, y} }

func scaleAffine(x, y float64) [6]float64 { return [6]float64{x, 0, 0, y, 0, 0} }

func rotateAffine(theta float64) [6]float64 {
	sin, cos := math.Sincos(theta)
	return [6]float64{cos, sin, -sin, cos, 0, 0}
}

// TransformPoint applies an affine matrix in [a, b, c, d, tx, ty] layout to p.
func TransformPoint(m [6]float64, p Vec2) Vec2 {
	x, y := transformPoint(m, p.X, p.Y)
	return Vec2{x, y}
}

// --- MatrixCanvas ---

// DrawOp is one recorded MatrixCanvas draw call.
type DrawOp struct {
	Op        string
	Transform [6]float64
	Alpha     float64
	X, Y      float64
	W, H      float64
	Text      string
	Color     Color
}

type canvasState struct {
	m     [6]float64
	alpha float64
}

// MatrixCanvas implements the transform and alpha state of a Canvas with a
// save/restore stack. Drawing calls are recorded when Record is true and
// otherwise discarded, which makes it the canvas of headless apps and tests.
// Image-backed canvases embed it and override the drawing calls.
type MatrixCanvas struct {
	cur   canvasState
	stack []canvasState

	Record bool
	Ops    []DrawOp
}

// NewMatrixCanvas returns a canvas with the identity transform and alpha 1.
func NewMatrixCanvas() *MatrixCanvas {
	return &MatrixCanvas{cur: canvasState{m: identityTransform, alpha: 1}}
}

// Save pushes the current transform and alpha.
func (c *MatrixCanvas) Save() { c.stack = append(c.stack, c.cur) }

// Restore pops the state pushed by the matching Save. Unbalanced restores are ignored.
func (c *MatrixCanvas) Restore() {
	if len(c.stack) == 0 {
		return
	}
	c.cur = c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]
}

// Depth returns the number of unmatched Save calls.
func (c *MatrixCanvas) Depth() int { return len(c.stack) }

// Translate post-multiplies the transform by a translation.
func (c *MatrixCanvas) Translate(x, y float64) {
	c.cur.m = multiplyAffine(c.cur.m, translateAffine(x, y))
}

// Rotate post-multiplies the transform by a rotation of theta radians.
func (c *MatrixCanvas) Rotate(theta float64) {
	c.cur.m = multiplyAffine(c.cur.m, rotateAffine(theta))
}

// Scale post-multiplies the transform by a scale.
func (c *MatrixCanvas) Scale(x, y float64) {
	c.cur.m = multiplyAffine(c.cur.m, scaleAffine(x, y))
}

// SetAlpha sets the alpha applied to subsequent drawing.
func (c *MatrixCanvas) SetAlpha(a float64) { c.cur.alpha = clamp01(a) }

// Alpha returns the current alpha.
func (c *MatrixCanvas) Alpha() float64 { return c.cur.alpha }

// Transform returns the current transform.
func (c *MatrixCanvas) Transform() [6]float64 { return c.cur.m }

// Clear resets the transform stack and drops recorded ops.
func (c *MatrixCanvas) Clear() {
	c.cur = canvasState{m: identityTransform, alpha: 1}
	c.stack = c.stack[:0]
	c.Ops = c.Ops[:0]
}

func (c *MatrixCanvas) record(op DrawOp) {
	if !c.Record {
		return
	}
	op.Transform = c.cur.m
	op.Alpha = c.cur.alpha
	c.Ops = append(c.Ops, op)
}

// FillRect records a filled rectangle.
func (c *MatrixCanvas) FillRect(x, y, w, h float64, col Color) {
	c.record(DrawOp{Op: "fillRect", X: x, Y: y, W: w, H: h, Color: col})
}

// StrokeRect records a rectangle outline.
func (c *MatrixCanvas) StrokeRect(x, y, w, h, width float64, col Color) {
	c.record(DrawOp{Op: "strokeRect", X: x, Y: y, W: w, H: h, Color: col})
}

// FillCircle records a filled circle.
func (c *MatrixCanvas) FillCircle(x, y, r float64, col Color) {
	c.record(DrawOp{Op: "fillCircle", X: x, Y: y, W: r, H: r, Color: col})
}

// Line records a line segment.
func (c *MatrixCanvas) Line(x0, y0, x1, y1, width float64, col Color) {
	c.record(DrawOp{Op: "line", X: x0, Y: y0, W: x1 - x0, H: y1 - y0, Color: col})
}

// Text records a string drawn with its top-left corner at (x, y).
func (c *MatrixCanvas) Text(s string, x, y float64, col Color) {
	c.record(DrawOp{Op: "text", X: x, Y: y, Text: s, Color: col})
}
