package sprig

import "math"

// Canvas is the 2D drawing context a Viewport exposes. Transform calls
// post-multiply the current transform; Save and Restore bracket them.
type Canvas interface {
	Save()
	Restore()
	Translate(x, y float64)
	Rotate(theta float64)
	Scale(x, y float64)
	SetAlpha(a float64)
	Alpha() float64
	Transform() [6]float64
	Clear()

	FillRect(x, y, w, h float64, c Color)
	StrokeRect(x, y, w, h, width float64, c Color)
	FillCircle(x, y, r float64, c Color)
	Line(x0, y0, x1, y1, width float64, c Color)
	Text(s string, x, y float64, c Color)
}

// Viewport is the camera and drawing-surface collaborator of the render and
// input systems.
type Viewport interface {
	Canvas() Canvas
	// Clear wipes the drawing surface before a frame.
	Clear()
	// Use applies the camera transform to the canvas. Screen-space drawing
	// only moves the origin to the viewport centre.
	Use(screenSpace bool)
	// IsInViewport reports whether a circle of radius r around the world
	// point p overlaps the visible area.
	IsInViewport(p Vec2, r float64) bool
	// ScreenToViewport maps screen pixels to viewport space (origin at the
	// viewport centre).
	ScreenToViewport(p Vec2) Vec2
	// ToLocal maps screen pixels to world space through the camera.
	ToLocal(p Vec2) Vec2
	Size() Vec2
	Camera() (pos Vec2, rotation, zoom float64)
	SetCamera(pos Vec2, rotation, zoom float64)
}

// View is the standard Viewport: a canvas of a given size looked at through
// a camera with position, rotation and zoom.
type View struct {
	canvas Canvas
	size   Vec2

	position Vec2
	rotation float64
	zoom     float64

	viewMatrix    [6]float64
	invViewMatrix [6]float64
	dirty         bool
}

var _ Viewport = (*View)(nil)

// NewView creates a View drawing into c with the given size in pixels.
func NewView(c Canvas, width, height float64) *View {
	return &View{canvas: c, size: Vec2{width, height}, zoom: 1, dirty: true}
}

// Canvas returns the drawing context.
func (v *View) Canvas() Canvas { return v.canvas }

// SetCanvas swaps the drawing context, e.g. for a new frame's target image.
func (v *View) SetCanvas(c Canvas) { v.canvas = c }

// Size returns the viewport size in pixels.
func (v *View) Size() Vec2 { return v.size }

// Resize changes the viewport size.
func (v *View) Resize(width, height float64) {
	if v.size.X == width && v.size.Y == height {
		return
	}
	v.size = Vec2{width, height}
	v.dirty = true
}

// Clear wipes the canvas.
func (v *View) Clear() { v.canvas.Clear() }

// Camera returns the camera position, rotation and zoom.
func (v *View) Camera() (Vec2, float64, float64) {
	return v.position, v.rotation, v.zoom
}

// SetCamera moves the camera. Zoom values <= 0 are treated as 1.
func (v *View) SetCamera(pos Vec2, rotation, zoom float64) {
	if zoom <= 0 {
		zoom = 1
	}
	if v.position == pos && v.rotation == rotation && v.zoom == zoom {
		return
	}
	v.position, v.rotation, v.zoom = pos, rotation, zoom
	v.dirty = true
}

// Use applies the view transform to the canvas.
func (v *View) Use(screenSpace bool) {
	c := v.canvas
	c.Translate(v.size.X/2, v.size.Y/2)
	if screenSpace {
		return
	}
	c.Scale(v.zoom, v.zoom)
	c.Rotate(-v.rotation)
	c.Translate(-v.position.X, -v.position.Y)
}

// computeViewMatrix recomputes the cached view matrix if dirty.
//
// viewMatrix = Translate(cx, cy) * Scale(zoom) * Rotate(-rotation) * Translate(-X, -Y)
// where cx, cy = viewport center.
func (v *View) computeViewMatrix() [6]float64 {
	if !v.dirty {
		return v.viewMatrix
	}
	v.dirty = false
	m := translateAffine(v.size.X/2, v.size.Y/2)
	m = multiplyAffine(m, scaleAffine(v.zoom, v.zoom))
	m = multiplyAffine(m, rotateAffine(-v.rotation))
	m = multiplyAffine(m, translateAffine(-v.position.X, -v.position.Y))
	v.viewMatrix = m
	v.invViewMatrix = invertAffine(m)
	return m
}

// WorldToScreen converts world coordinates to screen coordinates.
func (v *View) WorldToScreen(p Vec2) Vec2 {
	return TransformPoint(v.computeViewMatrix(), p)
}

// ToLocal converts screen coordinates to world coordinates.
func (v *View) ToLocal(p Vec2) Vec2 {
	v.computeViewMatrix()
	return TransformPoint(v.invViewMatrix, p)
}

// ScreenToViewport converts screen coordinates to viewport space.
func (v *View) ScreenToViewport(p Vec2) Vec2 {
	return p.Sub(v.size.Scale(0.5))
}

// VisibleBounds returns the axis-aligned bounding rect of the camera's visible
// area in world space.
func (v *View) VisibleBounds() Rect {
	v.computeViewMatrix()
	inv := v.invViewMatrix

	// Transform the four viewport corners to world space.
	x0, y0 := transformPoint(inv, 0, 0)
	x1, y1 := transformPoint(inv, v.size.X, 0)
	x2, y2 := transformPoint(inv, v.size.X, v.size.Y)
	x3, y3 := transformPoint(inv, 0, v.size.Y)

	minX := math.Min(math.Min(x0, x1), math.Min(x2, x3))
	minY := math.Min(math.Min(y0, y1), math.Min(y2, y3))
	maxX := math.Max(math.Max(x0, x1), math.Max(x2, x3))
	maxY := math.Max(math.Max(y0, y1), math.Max(y2, y3))

	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// IsInViewport reports whether the circle (p, r) touches the visible bounds.
func (v *View) IsInViewport(p Vec2, r float64) bool {
	b := v.VisibleBounds()
	cx := math.Max(b.X, math.Min(p.X, b.X+b.Width))
	cy := math.Max(b.Y, math.Min(p.Y, b.Y+b.Height))
	dx, dy := p.X-cx, p.Y-cy
	return dx*dx+dy*dy <= r*r
}
