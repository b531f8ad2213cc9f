package server

import (
	"github.com/ByteArena/box2d"

	"github.com/phanxgames/sprig"
	"github.com/phanxgames/sprig/mapeditor"
)

const (
	maxHP          = 100.0
	friction       = 0.9
	moveAccel      = 0.5 // metres per second gained per tick at full input
	playerSizePx   = 30.0
	bulletRadiusPx = 6.0
)

func toMetres(px sprig.Vec2) sprig.Vec2 { return px.Scale(1.0 / mapeditor.PixelDensity) }

func toPixels(m sprig.Vec2) sprig.Vec2 { return m.Scale(mapeditor.PixelDensity) }

// Peer is the sending half of a session. Subscribe starts its share of the
// scene broadcasts.
type Peer interface {
	Emit(event string, v any) error
	Subscribe()
}

// --- Player ---

// Player is a connected user's physics-driven avatar.
type Player struct {
	*sprig.Node

	ID       string
	Username string
	Color    string
	Team     int
	HP       float64
	Size     sprig.Vec2

	peer Peer
	move mapeditor.ControlMove

	// Damaged fires with the damage taken; Died when HP reaches zero.
	Damaged sprig.Event[float64]
	Died    sprig.Event[*Player]
}

func newPlayer() *Player {
	p := &Player{Node: sprig.NewPhysicsItem("player")}
	p.Owner = p
	p.Physics.BodyDef.FixedRotation = true
	p.Physics.BodyDef.AllowSleep = false
	return p
}

func (p *Player) Identity() string { return p.ID }

// setShape rebuilds the fixture template for the current size. Only effective
// before the body is created.
func (p *Player) setShape() {
	half := toMetres(p.Size).Scale(0.5)
	shape := box2d.MakeB2PolygonShape()
	shape.SetAsBox(max(half.X, 0.01), max(half.Y, 0.01))
	p.Physics.FixtureDef.Shape = &shape
}

// PixelPos returns the player position in pixels.
func (p *Player) PixelPos() sprig.Vec2 { return toPixels(p.Physics.Position()) }

// Teleport moves the player to a pixel position.
func (p *Player) Teleport(px sprig.Vec2) { p.Physics.SetPosition(toMetres(px)) }

// Hit subtracts damage from HP, firing Damaged and, on reaching zero, Died.
func (p *Player) Hit(damage float64) {
	if damage <= 0 || p.HP <= 0 {
		return
	}
	p.HP = max(p.HP-damage, 0)
	p.Damaged.Emit(damage)
	if p.HP == 0 {
		p.Died.Emit(p)
	}
}

// steer applies friction and the current movement input to the velocity.
func (p *Player) steer() {
	v := p.Physics.Velocity().Scale(friction)
	if p.move.Value > 0 {
		dir := sprig.Vec2{X: 1}.Rotate(p.move.Angle)
		v = v.Add(dir.Scale(p.move.Value * moveAccel))
	}
	p.Physics.SetVelocity(v)
}

func (p *Player) export() mapeditor.PlayerData {
	return mapeditor.PlayerData{
		ID:       p.ID,
		Username: p.Username,
		Color:    p.Color,
		Team:     p.Team,
		HP:       p.HP,
		Rotation: p.Physics.Angle(),
		Position: p.PixelPos(),
		Velocity: toPixels(p.Physics.Velocity()),
		Size:     p.Size,
	}
}

// --- Bullet ---

// Bullet is a short-lived projectile. Its shooter is immune to it.
type Bullet struct {
	*sprig.Node

	ID        string
	ShooterID string
	Radius    float64
	Damage    float64

	life  float64
	spent bool
}

func newBullet() *Bullet {
	b := &Bullet{Node: sprig.NewPhysicsItem("bullet")}
	b.Owner = b
	b.Physics.BodyDef.Bullet = true
	b.Physics.BodyDef.FixedRotation = true
	b.Physics.BodyDef.AllowSleep = false
	b.Physics.FixtureDef.Density = 0.1
	b.Physics.FixtureDef.Restitution = 0.9
	return b
}

func (b *Bullet) Identity() string { return b.ID }

func (b *Bullet) setShape() {
	shape := box2d.MakeB2CircleShape()
	shape.M_radius = max(b.Radius/mapeditor.PixelDensity, 0.01)
	b.Physics.FixtureDef.Shape = &shape
}

func (b *Bullet) export() mapeditor.BulletData {
	return mapeditor.BulletData{
		ID:        b.ID,
		ShooterID: b.ShooterID,
		Radius:    b.Radius,
		Damage:    b.Damage,
		Rotation:  b.Physics.Angle(),
		Position:  toPixels(b.Physics.Position()),
		Velocity:  toPixels(b.Physics.Velocity()),
	}
}

// --- Text ---

// Text is a chat message floating where its author stood.
type Text struct {
	*sprig.Node

	ID     string
	Author string
	Text   string

	life float64
}

func newText() *Text {
	t := &Text{Node: sprig.NewNode("text")}
	t.Owner = t
	return t
}

func (t *Text) Identity() string { return t.ID }

func (t *Text) export() mapeditor.TextData {
	return mapeditor.TextData{
		ID:       t.ID,
		Author:   t.Author,
		Text:     t.Text,
		Rotation: t.Rotation(),
		Position: t.Position,
	}
}
