package sprig

import (
	"testing"
)

// --- Z-index ---

func TestGlobalZIndexStopsAtNonRelativeAncestor(t *testing.T) {
	grand := NewCanvasItem("grand")
	parent := NewCanvasItem("parent")
	child := NewCanvasItem("child")
	_ = grand.AddChild(parent)
	_ = parent.AddChild(child)

	grand.SetZIndex(-3)
	grand.SetZAsRelative(false)
	parent.SetZIndex(10)
	child.SetZIndex(5)

	if got := child.GlobalZIndex(); got != 12 {
		t.Errorf("GlobalZIndex = %d, want 12", got)
	}

	top := NewCanvasItem("top")
	top.SetZIndex(1000)
	_ = top.AddChild(grand)
	if got := child.GlobalZIndex(); got != 12 {
		t.Errorf("GlobalZIndex past a non-relative ancestor = %d, want 12", got)
	}
}

func TestRenderOrderFollowsGlobalZ(t *testing.T) {
	s := NewRenderSystem(nil)
	root := NewBase("root")
	s.AddRoot(root)

	grand := NewCanvasItem("grand")
	grand.SetZIndex(-3)
	grand.SetZAsRelative(false)
	parent := NewCanvasItem("parent")
	parent.SetZIndex(10)
	child := NewCanvasItem("child")
	child.SetZIndex(5)
	sibling := NewCanvasItem("sibling")
	sibling.SetZIndex(-5)
	_ = grand.AddChild(parent)
	_ = parent.AddChild(child)
	_ = parent.AddChild(sibling)
	_ = root.AddChild(grand)

	var order []string
	for _, n := range []*Node{grand, parent, child, sibling} {
		name := n.Name
		n.OnDraw = func(Viewport) { order = append(order, name) }
	}
	vp := NewView(NewMatrixCanvas(), 100, 100)
	s.Update(vp)

	// grand -3, sibling 2, parent 7, child 12
	want := []string{"grand", "sibling", "parent", "child"}
	for i := range want {
		if i >= len(order) || order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestRenderSystemResortsOnZChange(t *testing.T) {
	s := NewRenderSystem(nil)
	a := NewCanvasItem("a")
	b := NewCanvasItem("b")
	s.Add(a)
	s.Add(b)
	a.SetZIndex(1)
	if items := s.Items(); items[0] != b || items[1] != a {
		t.Errorf("items = %v, want [b a]", names(items))
	}
}

// --- Alpha ---

func TestGlobalAlpha(t *testing.T) {
	parent := NewCanvasItem("parent")
	child := NewCanvasItem("child")
	_ = parent.AddChild(child)
	parent.Alpha = 0.5
	child.Alpha = 0.5
	assertNear(t, "alpha", child.GlobalAlpha(), 0.25)

	child.AlphaAsRelative = false
	assertNear(t, "non-relative alpha", child.GlobalAlpha(), 0.5)

	child.AlphaAsRelative = true
	child.Alpha = 3
	parent.Alpha = 1
	assertNear(t, "clamped alpha", child.GlobalAlpha(), 1)
}

// --- Visibility ---

func TestIsVisibleInheritsFromAncestors(t *testing.T) {
	parent := NewCanvasItem("parent")
	child := NewCanvasItem("child")
	_ = parent.AddChild(child)
	parent.Visible = false
	if child.IsVisible() {
		t.Error("child of a hidden parent should be hidden")
	}
	child.VisibleAsRelative = false
	if !child.IsVisible() {
		t.Error("non-relative visibility should ignore the parent")
	}
}

func TestRenderSystemSkipsHidden(t *testing.T) {
	s := NewRenderSystem(nil)
	n := NewCanvasItem("n")
	drawn := false
	n.OnDraw = func(Viewport) { drawn = true }
	n.Visible = false
	s.Add(n)
	s.Update(NewView(NewMatrixCanvas(), 10, 10))
	if drawn {
		t.Error("hidden item was drawn")
	}
}

func TestRenderSystemPreAndPostRender(t *testing.T) {
	s := NewRenderSystem(nil)
	n := NewCanvasItem("n")
	var got []string
	n.PreRender.On(func(Viewport) { got = append(got, "pre") }, 0)
	n.OnDraw = func(Viewport) { got = append(got, "draw") }
	n.PostRender.On(func(Viewport) { got = append(got, "post") }, 0)
	s.Add(n)
	s.Update(NewView(NewMatrixCanvas(), 10, 10))
	if len(got) != 3 || got[0] != "pre" || got[1] != "draw" || got[2] != "post" {
		t.Errorf("got %v", got)
	}
}

func TestCanvasItemDrawsWithGlobalAlpha(t *testing.T) {
	s := NewRenderSystem(nil)
	c := NewMatrixCanvas()
	c.Record = true
	parent := NewCanvasItem("parent")
	child := NewCanvasItem("child")
	_ = parent.AddChild(child)
	parent.Alpha = 0.5
	child.OnDraw = func(vp Viewport) { vp.Canvas().FillRect(0, 0, 1, 1, ColorWhite) }
	s.Add(child)
	s.Update(NewView(c, 10, 10))
	if len(c.Ops) != 1 {
		t.Fatalf("ops = %d, want 1", len(c.Ops))
	}
	assertNear(t, "op alpha", c.Ops[0].Alpha, 0.5)
	if c.Depth() != 0 {
		t.Errorf("unbalanced save/restore, depth %d", c.Depth())
	}
}
