package sprig

import "math"

// --- Rotation ---

// Rotation returns the local rotation in radians, in (-π, π].
func (n *Node) Rotation() float64 { return n.rotation }

// SetRotation sets the local rotation, wrapping it into (-π, π].
func (n *Node) SetRotation(r float64) {
	n.rotation = NormalizeAngle(r)
}

// Rotate adds d radians to the local rotation.
func (n *Node) Rotate(d float64) {
	n.SetRotation(n.rotation + d)
}

// NormalizeAngle wraps r into (-π, π].
func NormalizeAngle(r float64) float64 {
	m := math.Mod(math.Pi-r, 2*math.Pi)
	if m < 0 {
		m += 2 * math.Pi
	}
	return math.Pi - m
}

// SetPosition sets the local position.
func (n *Node) SetPosition(x, y float64) {
	n.Position = Vec2{x, y}
}

// --- Global transform ---

// toParent maps a point in n's local space into n's parent space using the
// same operations render2D applies: scale, rotate about the pivot, translate.
func (n *Node) toParent(v Vec2) Vec2 {
	v = v.Mul(n.Scale)
	if n.rotation != 0 {
		v = v.RotateAround(n.rotation, n.PivotOffset)
	}
	return v.Add(n.Position)
}

// GlobalPosition composes the local position through the 2D ancestors,
// nearest first. Each ancestor scales, rotates about its pivot and
// translates the running position; the walk stops after the first ancestor
// whose position is not relative.
func (n *Node) GlobalPosition() Vec2 {
	acc := n.Position
	if !n.PositionAsRelative {
		return acc
	}
	for _, a := range n.chain(Cap2D) {
		acc = a.toParent(acc)
		if !a.PositionAsRelative {
			break
		}
	}
	return acc
}

// GlobalRotation sums the local rotation with the 2D ancestors' rotations
// under the same stop rule, normalized into (-π, π].
func (n *Node) GlobalRotation() float64 {
	acc := n.rotation
	if n.RotationAsRelative {
		for _, a := range n.chain(Cap2D) {
			acc += a.rotation
			if !a.RotationAsRelative {
				break
			}
		}
	}
	return NormalizeAngle(acc)
}

// GlobalScale multiplies the local scale component-wise with the 2D
// ancestors' scales under the same stop rule.
func (n *Node) GlobalScale() Vec2 {
	acc := n.Scale
	if !n.ScaleAsRelative {
		return acc
	}
	for _, a := range n.chain(Cap2D) {
		acc = acc.Mul(a.Scale)
		if !a.ScaleAsRelative {
			break
		}
	}
	return acc
}

// ToLocal converts a point in the node's drawing space (world space, or
// viewport space for ScreenSpace nodes) into the node's local space, inverting
// the transform render2D applies.
func (n *Node) ToLocal(p Vec2) Vec2 {
	v := p.Sub(n.GlobalPosition())
	if rot := n.GlobalRotation(); rot != 0 {
		v = v.Sub(n.PivotOffset).Rotate(-rot).Add(n.PivotOffset)
	}
	s := n.GlobalScale()
	if s.X != 0 {
		v.X /= s.X
	}
	if s.Y != 0 {
		v.Y /= s.Y
	}
	return v
}

// render2D is the 2D draw pipeline: cull, save, camera, translate, rotate
// about the pivot, scale, alpha, PreRender, OnDraw, PostRender, restore.
func (n *Node) render2D(vp Viewport) {
	pos := n.GlobalPosition()
	if !n.ScreenSpace && !vp.IsInViewport(pos, n.DrawDistance) {
		return
	}
	c := vp.Canvas()
	c.Save()
	defer c.Restore()

	vp.Use(n.ScreenSpace)
	c.Translate(pos.X, pos.Y)
	if rot := n.GlobalRotation(); rot != 0 {
		if px, py := n.PivotOffset.X, n.PivotOffset.Y; px != 0 || py != 0 {
			c.Translate(px, py)
			c.Rotate(rot)
			c.Translate(-px, -py)
		} else {
			c.Rotate(rot)
		}
	}
	s := n.GlobalScale()
	c.Scale(s.X, s.Y)
	c.SetAlpha(n.GlobalAlpha())
	n.draw(vp)
}
