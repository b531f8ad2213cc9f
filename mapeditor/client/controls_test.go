package client

import (
	"context"
	"testing"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phanxgames/sprig"
	"github.com/phanxgames/sprig/mapeditor"
)

type fakeKeys struct {
	held   map[ebiten.Key]bool
	just   map[ebiten.Key]bool
	chars  []rune
	cursor sprig.Vec2
}

func (k *fakeKeys) Pressed(key ebiten.Key) bool { return k.held[key] }
func (k *fakeKeys) JustPressed(key ebiten.Key) bool { return k.just[key] }
func (k *fakeKeys) Cursor() sprig.Vec2 { return k.cursor }

func (k *fakeKeys) AppendChars(rs []rune) []rune {
	rs = append(rs, k.chars...)
	k.chars = nil
	return rs
}

// frame sets the keys for one tick; just-pressed keys are also held.
func (k *fakeKeys) frame(held []ebiten.Key, just ...ebiten.Key) {
	k.held = map[ebiten.Key]bool{}
	k.just = map[ebiten.Key]bool{}
	for _, key := range held {
		k.held[key] = true
	}
	for _, key := range just {
		k.held[key] = true
		k.just[key] = true
	}
}

type recorder struct {
	events []string
	values []any
}

func (r *recorder) Emit(event string, v any) error {
	r.events = append(r.events, event)
	r.values = append(r.values, v)
	return nil
}

func newTestControls(t *testing.T) (*Controls, *World, *fakeKeys, *recorder) {
	t.Helper()
	w := NewWorld(0, nil)
	out := &recorder{}
	vp := sprig.NewView(sprig.NewMatrixCanvas(), 200, 100)
	c := NewControls(w, out, vp, nil)
	keys := &fakeKeys{}
	keys.frame(nil)
	c.keys = keys
	require.NoError(t, c.Attach())
	return c, w, keys, out
}

func TestControlsSendMoveOnChange(t *testing.T) {
	c, _, keys, out := newTestControls(t)

	keys.frame([]ebiten.Key{ebiten.KeyD})
	c.process(0.016)
	c.process(0.016)
	keys.frame([]ebiten.Key{ebiten.KeyD, ebiten.KeyS})
	c.process(0.016)
	keys.frame(nil)
	c.process(0.016)

	require.Equal(t, []string{mapeditor.EventControlMove, mapeditor.EventControlMove, mapeditor.EventControlMove}, out.events)
	assert.Equal(t, mapeditor.ControlMove{Angle: 0, Value: 1}, out.values[0])
	assert.InDelta(t, 0.785398, out.values[1].(mapeditor.ControlMove).Angle, 1e-5)
	assert.Equal(t, mapeditor.ControlMove{}, out.values[2])
}

func TestControlsShootAtCursor(t *testing.T) {
	c, w, keys, out := newTestControls(t)
	keys.frame(nil, ebiten.KeySpace)
	c.process(0.016)
	assert.Empty(t, out.events, "no shot before the local player exists")

	_, err := w.Players.Create(context.Background(), player("me", 0))
	require.NoError(t, err)
	w.SetSelf("me")
	// Screen (100, 0) is world (0, -50): straight up from the player.
	keys.cursor = sprig.Vec2{X: 100, Y: 0}
	c.process(0.016)

	require.Equal(t, []string{mapeditor.EventControlShoot}, out.events)
	assert.InDelta(t, -1.570796, out.values[0].(mapeditor.Shoot).Angle, 1e-5)
}

func TestControlsChatDraft(t *testing.T) {
	c, _, keys, out := newTestControls(t)

	keys.frame(nil, ebiten.KeyEnter)
	c.process(0.016)
	require.True(t, c.Typing)

	keys.frame(nil)
	keys.chars = []rune("hey!")
	c.process(0.016)
	keys.frame(nil, ebiten.KeyBackspace)
	c.process(0.016)
	assert.Equal(t, "hey", c.Draft)

	keys.frame(nil, ebiten.KeyEnter)
	c.process(0.016)
	assert.False(t, c.Typing)
	require.Equal(t, []string{mapeditor.EventActionText}, out.events)
	assert.Equal(t, mapeditor.ActionText{Text: "hey"}, out.values[0])
}

func TestControlsEscapeDropsDraft(t *testing.T) {
	c, _, keys, out := newTestControls(t)
	c.toggleTyping()
	keys.chars = []rune("nope")
	c.process(0.016)
	keys.frame(nil, ebiten.KeyEscape)
	c.process(0.016)
	assert.False(t, c.Typing)
	assert.Empty(t, c.Draft)
	assert.Empty(t, out.events)
}

func TestControlsLayoutButtons(t *testing.T) {
	c, _, _, _ := newTestControls(t)
	c.process(0)
	assert.Equal(t, sprig.Vec2{X: 50, Y: 20}, c.Shoot.Position)
	assert.Equal(t, sprig.Vec2{X: -30, Y: 20}, c.Say.Position)
}
