package sprig

import (
	"math"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// scrollAnim holds active scroll-to tweens for camera X and Y.
type scrollAnim struct {
	tweenX *gween.Tween
	tweenY *gween.Tween
	doneX  bool
	doneY  bool
}

// Camera2D is a 2D node that drives a Viewport's camera. While Current, it
// pushes its global position and rotation, and its Zoom, into the viewport on
// every process tick. It runs after regular nodes so it sees their final
// positions for the frame.
type Camera2D struct {
	*Node

	// Current makes this camera drive the viewport.
	Current bool
	// Zoom is the scale factor (1.0 = no zoom, >1 = zoom in, <1 = zoom out).
	Zoom float64

	// BoundsEnabled clamps the camera position so the visible area stays
	// within Bounds.
	BoundsEnabled bool
	// Bounds is the world-space rectangle the camera is clamped to when
	// BoundsEnabled is true.
	Bounds Rect

	viewport Viewport

	followTarget *Node
	followOffset Vec2
	followLerp   float64

	scrollTween *scrollAnim
}

// CameraProcessPriority is the process priority cameras run at.
const CameraProcessPriority = -1000

// NewCamera2D creates a current camera bound to vp.
func NewCamera2D(name string, vp Viewport) *Camera2D {
	c := &Camera2D{Node: NewNode2D(name), Current: true, Zoom: 1, viewport: vp}
	c.Owner = c
	c.SetProcessPriority(CameraProcessPriority)
	c.SetProcessPriorityAsRelative(false)
	c.OnProcess = c.update
	return c
}

// Viewport returns the viewport the camera drives.
func (c *Camera2D) Viewport() Viewport { return c.viewport }

// Follow makes the camera track a target node with the given offset and lerp factor.
// A lerp of 1.0 snaps immediately; lower values give smoother following.
func (c *Camera2D) Follow(target *Node, offset Vec2, lerp float64) {
	c.followTarget = target
	c.followOffset = offset
	c.followLerp = lerp
}

// Unfollow stops tracking the current target node.
func (c *Camera2D) Unfollow() {
	c.followTarget = nil
}

// Following returns the tracked node, or nil.
func (c *Camera2D) Following() *Node { return c.followTarget }

// ScrollTo animates the camera to the given position over duration seconds.
func (c *Camera2D) ScrollTo(x, y float64, duration float32, easeFn ease.TweenFunc) {
	c.scrollTween = &scrollAnim{
		tweenX: gween.New(float32(c.Position.X), float32(x), duration, easeFn),
		tweenY: gween.New(float32(c.Position.Y), float32(y), duration, easeFn),
	}
}

// Scrolling reports whether a ScrollTo animation is running.
func (c *Camera2D) Scrolling() bool { return c.scrollTween != nil }

// SetBounds enables camera bounds clamping.
func (c *Camera2D) SetBounds(bounds Rect) {
	c.BoundsEnabled = true
	c.Bounds = bounds
}

// ClearBounds disables camera bounds clamping.
func (c *Camera2D) ClearBounds() {
	c.BoundsEnabled = false
}

// update advances follow, scroll and bounds clamping, then publishes the
// camera to the viewport.
func (c *Camera2D) update(dt float64) {
	if t := c.followTarget; t != nil {
		if t.IsDestroyed() {
			c.followTarget = nil
		} else {
			target := t.GlobalPosition().Add(c.followOffset)
			c.Position = c.Position.Add(target.Sub(c.Position).Scale(c.followLerp))
		}
	}

	if c.scrollTween != nil {
		if !c.scrollTween.doneX {
			val, done := c.scrollTween.tweenX.Update(float32(dt))
			c.Position.X = float64(val)
			c.scrollTween.doneX = done
		}
		if !c.scrollTween.doneY {
			val, done := c.scrollTween.tweenY.Update(float32(dt))
			c.Position.Y = float64(val)
			c.scrollTween.doneY = done
		}
		if c.scrollTween.doneX && c.scrollTween.doneY {
			c.scrollTween = nil
		}
	}

	if c.BoundsEnabled {
		c.clampToBounds()
	}

	if c.Current && c.viewport != nil {
		c.viewport.SetCamera(c.GlobalPosition(), c.GlobalRotation(), c.Zoom)
	}
}

// clampToBounds restricts camera position so the visible area stays within Bounds.
func (c *Camera2D) clampToBounds() {
	if c.viewport == nil || c.Zoom <= 0 {
		return
	}
	size := c.viewport.Size()
	halfW := size.X / (2 * c.Zoom)
	halfH := size.Y / (2 * c.Zoom)

	minX := c.Bounds.X + halfW
	maxX := c.Bounds.X + c.Bounds.Width - halfW
	minY := c.Bounds.Y + halfH
	maxY := c.Bounds.Y + c.Bounds.Height - halfH

	// If bounds are smaller than visible area, center the camera.
	if minX > maxX {
		c.Position.X = c.Bounds.X + c.Bounds.Width/2
	} else {
		c.Position.X = math.Max(minX, math.Min(c.Position.X, maxX))
	}
	if minY > maxY {
		c.Position.Y = c.Bounds.Y + c.Bounds.Height/2
	} else {
		c.Position.Y = math.Max(minY, math.Min(c.Position.Y, maxY))
	}
}
