package sprig

import (
	"math"
	"testing"

	"github.com/tanema/gween/ease"
)

// --- View ---

func TestViewDefaults(t *testing.T) {
	v := NewView(NewMatrixCanvas(), 800, 600)
	pos, rot, zoom := v.Camera()
	if pos != (Vec2{}) || rot != 0 || zoom != 1 {
		t.Errorf("camera = %v %v %v", pos, rot, zoom)
	}
	if v.Size() != (Vec2{800, 600}) {
		t.Errorf("Size = %v", v.Size())
	}
}

func TestViewIdentityMapsOriginToCentre(t *testing.T) {
	v := NewView(NewMatrixCanvas(), 800, 600)
	p := v.WorldToScreen(Vec2{})
	assertNear(t, "x", p.X, 400)
	assertNear(t, "y", p.Y, 300)
}

func TestViewTranslation(t *testing.T) {
	v := NewView(NewMatrixCanvas(), 800, 600)
	v.SetCamera(Vec2{100, 50}, 0, 1)
	p := v.WorldToScreen(Vec2{100, 50})
	assertNear(t, "x", p.X, 400)
	assertNear(t, "y", p.Y, 300)
}

func TestViewZoom(t *testing.T) {
	v := NewView(NewMatrixCanvas(), 800, 600)
	v.SetCamera(Vec2{}, 0, 2)
	p := v.WorldToScreen(Vec2{10, 0})
	assertNear(t, "x", p.X, 420)
}

func TestViewRotation90(t *testing.T) {
	v := NewView(NewMatrixCanvas(), 800, 600)
	v.SetCamera(Vec2{}, math.Pi/2, 1)
	p := v.WorldToScreen(Vec2{10, 0})
	assertNear(t, "x", p.X, 400)
	assertNear(t, "y", p.Y, 290)
}

func TestViewZoomNonPositiveIsOne(t *testing.T) {
	v := NewView(NewMatrixCanvas(), 10, 10)
	v.SetCamera(Vec2{}, 0, 0)
	if _, _, zoom := v.Camera(); zoom != 1 {
		t.Errorf("zoom = %v, want 1", zoom)
	}
}

func TestViewToLocalRoundTrip(t *testing.T) {
	v := NewView(NewMatrixCanvas(), 800, 600)
	v.SetCamera(Vec2{37, -12}, 0.4, 1.5)
	world := Vec2{120, 80}
	back := v.ToLocal(v.WorldToScreen(world))
	assertNear(t, "x", back.X, world.X)
	assertNear(t, "y", back.Y, world.Y)
}

func TestViewScreenToViewport(t *testing.T) {
	v := NewView(NewMatrixCanvas(), 800, 600)
	p := v.ScreenToViewport(Vec2{410, 290})
	if p != (Vec2{10, -10}) {
		t.Errorf("ScreenToViewport = %v", p)
	}
}

func TestVisibleBoundsZoom(t *testing.T) {
	v := NewView(NewMatrixCanvas(), 800, 600)
	v.SetCamera(Vec2{}, 0, 2)
	b := v.VisibleBounds()
	assertNear(t, "x", b.X, -200)
	assertNear(t, "y", b.Y, -150)
	assertNear(t, "w", b.Width, 400)
	assertNear(t, "h", b.Height, 300)
}

func TestIsInViewport(t *testing.T) {
	v := NewView(NewMatrixCanvas(), 100, 100)
	if !v.IsInViewport(Vec2{}, 0) {
		t.Error("centre should be visible")
	}
	if v.IsInViewport(Vec2{60, 0}, 5) {
		t.Error("circle fully right of the view should be culled")
	}
	if !v.IsInViewport(Vec2{60, 0}, 15) {
		t.Error("circle overlapping the edge should be visible")
	}
}

func TestViewResize(t *testing.T) {
	v := NewView(NewMatrixCanvas(), 100, 100)
	v.Resize(200, 50)
	p := v.WorldToScreen(Vec2{})
	assertNear(t, "x", p.X, 100)
	assertNear(t, "y", p.Y, 25)
}

// --- Camera2D ---

func TestCameraPublishesToViewport(t *testing.T) {
	v := NewView(NewMatrixCanvas(), 800, 600)
	cam := NewCamera2D("cam", v)
	cam.Position = Vec2{10, 20}
	cam.SetRotation(0.5)
	cam.Zoom = 2
	cam.update(1.0 / 60)

	pos, rot, zoom := v.Camera()
	if pos != (Vec2{10, 20}) || zoom != 2 {
		t.Errorf("camera = %v %v", pos, zoom)
	}
	assertNear(t, "rotation", rot, 0.5)
}

func TestCameraNotCurrentLeavesViewport(t *testing.T) {
	v := NewView(NewMatrixCanvas(), 800, 600)
	cam := NewCamera2D("cam", v)
	cam.Current = false
	cam.Position = Vec2{99, 99}
	cam.update(1)
	if pos, _, _ := v.Camera(); pos != (Vec2{}) {
		t.Errorf("viewport moved to %v", pos)
	}
}

func TestCameraFollow(t *testing.T) {
	v := NewView(NewMatrixCanvas(), 800, 600)
	cam := NewCamera2D("cam", v)
	target := NewNode2D("target")
	target.Position = Vec2{100, 200}

	cam.Follow(target, Vec2{}, 1.0)
	cam.update(1.0 / 60)
	assertNear(t, "X", cam.Position.X, 100)
	assertNear(t, "Y", cam.Position.Y, 200)

	target.Position = Vec2{200, 200}
	cam.Follow(target, Vec2{10, 0}, 0.5)
	cam.update(1.0 / 60)
	assertNear(t, "lerped X", cam.Position.X, 155)

	target.Destroy()
	cam.update(1.0 / 60)
	if cam.Following() != nil {
		t.Error("camera should drop a destroyed target")
	}
}

func TestCameraScrollTo(t *testing.T) {
	v := NewView(NewMatrixCanvas(), 800, 600)
	cam := NewCamera2D("cam", v)
	cam.ScrollTo(100, 50, 1.0, ease.Linear)
	if !cam.Scrolling() {
		t.Fatal("ScrollTo should start a scroll")
	}
	cam.update(0.5)
	assertNear(t, "mid X", cam.Position.X, 50)
	cam.update(0.6)
	assertNear(t, "end X", cam.Position.X, 100)
	assertNear(t, "end Y", cam.Position.Y, 50)
	if cam.Scrolling() {
		t.Error("scroll should finish")
	}
}

func TestCameraBounds(t *testing.T) {
	v := NewView(NewMatrixCanvas(), 100, 100)
	cam := NewCamera2D("cam", v)
	cam.SetBounds(Rect{X: 0, Y: 0, Width: 500, Height: 500})
	cam.Position = Vec2{-100, 1000}
	cam.update(0)
	assertNear(t, "X", cam.Position.X, 50)
	assertNear(t, "Y", cam.Position.Y, 450)

	cam.ClearBounds()
	cam.Position = Vec2{-100, 0}
	cam.update(0)
	assertNear(t, "unclamped X", cam.Position.X, -100)
}

func TestCameraRunsAfterRegularNodes(t *testing.T) {
	v := NewView(NewMatrixCanvas(), 100, 100)
	s := NewProcessSystem(nil)
	root := NewBase("root")
	s.AddRoot(root)
	cam := NewCamera2D("cam", v)
	mover := NewNode2D("mover")
	mover.OnProcess = func(float64) { mover.Position.X += 10 }
	cam.Follow(mover, Vec2{}, 1)
	_ = root.AddChild(cam.Node)
	_ = root.AddChild(mover)

	s.Update(1)
	if pos, _, _ := v.Camera(); pos.X != 10 {
		t.Errorf("camera X = %v, want 10 (same-tick position)", pos.X)
	}
}
