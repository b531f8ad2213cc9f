package client

import (
	"math"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"go.uber.org/zap"

	"github.com/phanxgames/sprig"
	"github.com/phanxgames/sprig/mapeditor"
)

const maxDraft = 120

// Sender is the outgoing half of the connection. *netsync.Client
// implements it.
type Sender interface {
	Emit(event string, v any) error
}

type keySource interface {
	Pressed(k ebiten.Key) bool
	JustPressed(k ebiten.Key) bool
	AppendChars(rs []rune) []rune
	Cursor() sprig.Vec2
}

type ebitenKeys struct{}

func (ebitenKeys) Pressed(k ebiten.Key) bool { return ebiten.IsKeyPressed(k) }
func (ebitenKeys) JustPressed(k ebiten.Key) bool { return inpututil.IsKeyJustPressed(k) }
func (ebitenKeys) AppendChars(rs []rune) []rune { return ebiten.AppendInputChars(rs) }
func (ebitenKeys) Cursor() sprig.Vec2 {
	x, y := ebiten.CursorPosition()
	return sprig.Vec2{X: float64(x), Y: float64(y)}
}

// Controls turns keyboard and HUD input into control and chat requests.
// WASD or the arrows move, Space shoots toward the cursor, Enter opens and
// sends a chat draft and Escape drops it.
type Controls struct {
	*sprig.Node

	Say   *sprig.Button
	Shoot *sprig.Button

	// Typing is true while a chat draft is open.
	Typing bool
	Draft  string

	world *World
	out   Sender
	vp    sprig.Viewport
	keys  keySource
	last  mapeditor.ControlMove
	chars []rune
	log   *zap.Logger
}

// NewControls creates the HUD and input handler for w.
func NewControls(w *World, out Sender, vp sprig.Viewport, log *zap.Logger) *Controls {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Controls{
		Node:  sprig.NewNode2D("controls"),
		Say:   sprig.NewButton("say", "Say", sprig.Vec2{X: 70, Y: 32}),
		Shoot: sprig.NewButton("shoot", "Shoot", sprig.Vec2{X: 70, Y: 32}),
		world: w,
		out:   out,
		vp:    vp,
		keys:  ebitenKeys{},
		log:   log.Named("controls"),
	}
	c.Owner = c
	c.ScreenSpace = true
	c.SetZIndex(1 << 10)
	c.Say.ScreenSpace = true
	c.Shoot.ScreenSpace = true
	c.Say.Clicked.On(func(sprig.InputEvent) { c.toggleTyping() }, 0)
	c.Shoot.Clicked.On(func(sprig.InputEvent) { c.fire() }, 0)
	c.OnProcess = c.process
	c.OnDraw = c.paint
	return c
}

// Attach adds the HUD buttons under the controls node.
func (c *Controls) Attach() error {
	if err := c.AddChild(c.Say.Node); err != nil {
		return err
	}
	return c.AddChild(c.Shoot.Node)
}

func (c *Controls) process(float64) {
	size := c.vp.Size()
	c.Shoot.Position = sprig.Vec2{X: size.X/2 - 50, Y: size.Y/2 - 30}
	c.Say.Position = sprig.Vec2{X: size.X/2 - 130, Y: size.Y/2 - 30}

	if c.Typing {
		c.edit()
		return
	}
	if c.keys.JustPressed(ebiten.KeyEnter) {
		c.Typing = true
		return
	}
	c.steer()
	if c.keys.JustPressed(ebiten.KeySpace) {
		c.fire()
	}
}

func (c *Controls) edit() {
	switch {
	case c.keys.JustPressed(ebiten.KeyEscape):
		c.Typing, c.Draft = false, ""
		return
	case c.keys.JustPressed(ebiten.KeyEnter):
		c.toggleTyping()
		return
	case c.keys.JustPressed(ebiten.KeyBackspace) && c.Draft != "":
		r := []rune(c.Draft)
		c.Draft = string(r[:len(r)-1])
	}
	c.chars = c.keys.AppendChars(c.chars[:0])
	if len(c.chars) > 0 && len(c.Draft) < maxDraft {
		c.Draft += string(c.chars)
	}
}

// toggleTyping opens a draft, or sends the open one.
func (c *Controls) toggleTyping() {
	if !c.Typing {
		c.Typing = true
		return
	}
	text := strings.TrimSpace(c.Draft)
	c.Typing, c.Draft = false, ""
	if text == "" {
		return
	}
	c.send(mapeditor.EventActionText, mapeditor.ActionText{Text: text})
}

// steer sends control:move when the held direction changes.
func (c *Controls) steer() {
	var d sprig.Vec2
	if c.keys.Pressed(ebiten.KeyA) || c.keys.Pressed(ebiten.KeyArrowLeft) {
		d.X--
	}
	if c.keys.Pressed(ebiten.KeyD) || c.keys.Pressed(ebiten.KeyArrowRight) {
		d.X++
	}
	if c.keys.Pressed(ebiten.KeyW) || c.keys.Pressed(ebiten.KeyArrowUp) {
		d.Y--
	}
	if c.keys.Pressed(ebiten.KeyS) || c.keys.Pressed(ebiten.KeyArrowDown) {
		d.Y++
	}
	m := mapeditor.ControlMove{}
	if d != (sprig.Vec2{}) {
		m = mapeditor.ControlMove{Angle: math.Atan2(d.Y, d.X), Value: 1}
	}
	if m == c.last {
		return
	}
	c.last = m
	c.send(mapeditor.EventControlMove, m)
}

// aim is the angle from the local player to the cursor.
func (c *Controls) aim() (float64, bool) {
	self, ok := c.world.Self()
	if !ok {
		return 0, false
	}
	d := c.vp.ToLocal(c.keys.Cursor()).Sub(self.Position)
	return math.Atan2(d.Y, d.X), true
}

func (c *Controls) fire() {
	angle, ok := c.aim()
	if !ok {
		return
	}
	c.send(mapeditor.EventControlShoot, mapeditor.Shoot{Angle: angle})
}

func (c *Controls) send(event string, v any) {
	if err := c.out.Emit(event, v); err != nil {
		c.log.Warn("send failed", zap.String("event", event), zap.Error(err))
	}
}

func (c *Controls) paint(vp sprig.Viewport) {
	if !c.Typing {
		return
	}
	size := vp.Size()
	cv := vp.Canvas()
	cv.FillRect(-size.X/2+8, size.Y/2-46, size.X/2, 24, sprig.Color{A: 0.6})
	cv.Text("> "+c.Draft+"_", -size.X/2+14, size.Y/2-42, sprig.ColorWhite)
}
