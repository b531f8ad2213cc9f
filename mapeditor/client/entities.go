package client

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"

	"github.com/phanxgames/sprig"
	"github.com/phanxgames/sprig/mapeditor"
)

// ParseColor reads "#rgb", "#rrggbb" or "#rrggbbaa".
func ParseColor(s string) (sprig.Color, error) {
	h := strings.TrimPrefix(s, "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) == 6 {
		h += "ff"
	}
	if len(h) != 8 {
		return sprig.Color{}, fmt.Errorf("color %q: want #rgb, #rrggbb or #rrggbbaa", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return sprig.Color{}, fmt.Errorf("color %q: %w", s, err)
	}
	ch := func(shift uint) float64 { return float64(v>>shift&0xff) / 255 }
	return sprig.Color{R: ch(24), G: ch(16), B: ch(8), A: ch(0)}, nil
}

func colorOr(s string, fallback sprig.Color) sprig.Color {
	c, err := ParseColor(s)
	if err != nil {
		return fallback
	}
	return c
}

// glide eases a node's position toward the latest snapshot.
type glide struct {
	x, y     *gween.Tween
	duration float32
}

// to starts a glide from the current position. A zero duration snaps.
func (g *glide) to(n *sprig.Node, target sprig.Vec2) {
	if g.duration <= 0 {
		n.Position = target
		g.x, g.y = nil, nil
		return
	}
	g.x = gween.New(float32(n.Position.X), float32(target.X), g.duration, ease.OutQuad)
	g.y = gween.New(float32(n.Position.Y), float32(target.Y), g.duration, ease.OutQuad)
}

func (g *glide) step(n *sprig.Node, dt float64) {
	if g.x == nil {
		return
	}
	x, doneX := g.x.Update(float32(dt))
	y, doneY := g.y.Update(float32(dt))
	n.Position = sprig.Vec2{X: float64(x), Y: float64(y)}
	if doneX && doneY {
		g.x, g.y = nil, nil
	}
}

// --- Player ---

// Player is the client view of a replicated player.
type Player struct {
	*sprig.Node

	ID       string
	Username string
	Color    string
	Team     int
	HP       float64
	Size     sprig.Vec2

	// Self marks the local player.
	Self bool

	glide glide
}

func newPlayer(interp float32) *Player {
	p := &Player{Node: sprig.NewNode2D("player"), glide: glide{duration: interp}}
	p.Owner = p
	p.OnProcess = func(dt float64) { p.glide.step(p.Node, dt) }
	p.OnDraw = p.paint
	return p
}

func (p *Player) Identity() string { return p.ID }

func (p *Player) apply(d mapeditor.PlayerData) {
	p.Size = d.Size
	p.SetRotation(d.Rotation)
	p.DrawDistance = d.Size.Len()
	p.glide.to(p.Node, d.Position)
}

func (p *Player) paint(vp sprig.Viewport) {
	c := vp.Canvas()
	w, h := p.Size.X, p.Size.Y
	c.FillRect(-w/2, -h/2, w, h, colorOr(p.Color, sprig.ColorWhite))
	if p.Self {
		c.StrokeRect(-w/2, -h/2, w, h, 2, sprig.ColorWhite)
	}
	hp := max(p.HP, 0) / 100
	c.FillRect(-w/2, h/2+4, w, 4, sprig.Color{R: 0.2, G: 0.2, B: 0.2, A: 0.8})
	c.FillRect(-w/2, h/2+4, w*hp, 4, sprig.Color{R: 0.2, G: 0.9, B: 0.3, A: 1})
	c.Text(p.Username, -w/2, -h/2-18, sprig.ColorWhite)
}

// --- Bullet ---

// Bullet is the client view of a replicated bullet.
type Bullet struct {
	*sprig.Node

	ID        string
	ShooterID string
	Radius    float64
	Damage    float64

	glide glide
}

func newBullet(interp float32) *Bullet {
	b := &Bullet{Node: sprig.NewNode2D("bullet"), glide: glide{duration: interp}}
	b.Owner = b
	b.OnProcess = func(dt float64) { b.glide.step(b.Node, dt) }
	b.OnDraw = func(vp sprig.Viewport) {
		vp.Canvas().FillCircle(0, 0, b.Radius, sprig.Color{R: 1, G: 0.85, B: 0.3, A: 1})
	}
	return b
}

func (b *Bullet) Identity() string { return b.ID }

func (b *Bullet) apply(d mapeditor.BulletData) {
	b.SetRotation(d.Rotation)
	b.DrawDistance = d.Radius
	b.glide.to(b.Node, d.Position)
}

// --- Text ---

// Text is a chat message drawn where its author stood.
type Text struct {
	*sprig.Node

	ID     string
	Author string
	Text   string
}

func newText() *Text {
	t := &Text{Node: sprig.NewNode2D("text")}
	t.Owner = t
	t.DrawDistance = 200
	t.OnDraw = func(vp sprig.Viewport) {
		vp.Canvas().Text(t.Author+": "+t.Text, 0, 0, sprig.ColorWhite)
	}
	return t
}

func (t *Text) Identity() string { return t.ID }
