package sprig

import (
	"cmp"

	"go.uber.org/zap"
)

// --- Canvas attributes ---

// ZIndex returns the local z-index.
func (n *Node) ZIndex() int { return n.zIndex }

// SetZIndex sets the local z-index. Higher values draw later (on top).
func (n *Node) SetZIndex(z int) {
	if n.zIndex == z {
		return
	}
	n.zIndex = z
	n.zChanged()
}

// ZAsRelative reports whether the z-index composes with ancestors.
func (n *Node) ZAsRelative() bool { return n.zAsRelative }

// SetZAsRelative sets whether the z-index composes with ancestors.
func (n *Node) SetZAsRelative(rel bool) {
	if n.zAsRelative == rel {
		return
	}
	n.zAsRelative = rel
	n.zChanged()
}

// GlobalZIndex is the local z-index plus those of the canvas ancestors,
// nearest first, up to and including the first non-relative ancestor.
func (n *Node) GlobalZIndex() int {
	acc := n.zIndex
	if !n.zAsRelative {
		return acc
	}
	for _, a := range n.chain(CapCanvas) {
		acc += a.zIndex
		if !a.zAsRelative {
			break
		}
	}
	return acc
}

// GlobalAlpha is the local alpha multiplied by the ancestors' alpha with the
// same stop rule as GlobalZIndex, clamped to [0, 1].
func (n *Node) GlobalAlpha() float64 {
	acc := n.Alpha
	if n.AlphaAsRelative {
		for _, a := range n.chain(CapCanvas) {
			acc *= a.Alpha
			if !a.AlphaAsRelative {
				break
			}
		}
	}
	return clamp01(acc)
}

// IsVisible reports whether the node is actually drawn: it must be visible
// itself and, when VisibleAsRelative, so must every canvas ancestor.
func (n *Node) IsVisible() bool {
	if !n.Visible {
		return false
	}
	if !n.VisibleAsRelative {
		return true
	}
	for _, a := range n.chain(CapCanvas) {
		if !a.Visible {
			return false
		}
	}
	return true
}

func (n *Node) zChanged() {
	n.walk(func(d *Node) {
		if d.Has(CapCanvas) {
			d.ZIndexChanged.Emit(d)
		}
	})
}

// render draws a canvas node. 2D nodes go through the transform pipeline;
// plain canvas items draw with whatever state the canvas has.
func (n *Node) render(vp Viewport) {
	if n.Has(Cap2D) {
		n.render2D(vp)
		return
	}
	c := vp.Canvas()
	c.Save()
	defer c.Restore()
	c.SetAlpha(n.GlobalAlpha())
	n.draw(vp)
}

func (n *Node) draw(vp Viewport) {
	n.PreRender.Emit(vp)
	if n.OnDraw != nil {
		n.OnDraw(vp)
	}
	n.PostRender.Emit(vp)
}

// --- RenderSystem ---

// RenderSystem draws every visible canvas member once per Update, lowest
// global z-index first so higher values end up on top.
type RenderSystem struct {
	System
}

// NewRenderSystem creates an empty RenderSystem. A nil logger discards.
func NewRenderSystem(log *zap.Logger) *RenderSystem {
	s := &RenderSystem{System: newSystem("render", CapCanvas, log)}
	s.compare = func(a, b *Node) int {
		return cmp.Compare(a.GlobalZIndex(), b.GlobalZIndex())
	}
	s.Added.On(func(n *Node) {
		s.track(n, n.ZIndexChanged.On(s.markUnsorted, 0))
	}, 0)
	return s
}

// Update clears vp once and renders the members in z order.
func (s *RenderSystem) Update(vp Viewport) {
	vp.Clear()
	for _, n := range s.sorted() {
		if !n.IsVisible() {
			continue
		}
		s.isolate(n, "render", func() { n.render(vp) })
	}
}
