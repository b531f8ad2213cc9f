package sprig

// HitShape is a hit region in a control's local coordinates.
type HitShape interface {
	Contains(x, y float64) bool
}

// HitRect is an axis-aligned rectangular hit area in local coordinates.
type HitRect struct {
	X, Y, Width, Height float64
}

// CenteredRect returns a HitRect of the given size centred on the origin.
func CenteredRect(size Vec2) HitRect {
	return HitRect{X: -size.X / 2, Y: -size.Y / 2, Width: size.X, Height: size.Y}
}

// Contains reports whether (x, y) lies inside the rectangle.
func (r HitRect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width &&
		y >= r.Y && y <= r.Y+r.Height
}

// HitTest reports whether the local point falls inside the node's HitShape.
// Nodes without a shape never hit.
func (n *Node) HitTest(local Vec2) bool {
	return n.HitShape != nil && n.HitShape.Contains(local.X, local.Y)
}
