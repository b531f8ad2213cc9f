package client

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phanxgames/sprig"
	"github.com/phanxgames/sprig/mapeditor"
)

func player(id string, x float64) mapeditor.PlayerData {
	return mapeditor.PlayerData{ID: id, Username: id, Color: "#0f0", HP: 100, Position: sprig.Vec2{X: x}, Size: sprig.Vec2{X: 30, Y: 30}}
}

func TestReconcileInitSnapshot(t *testing.T) {
	w := NewWorld(0, nil)
	ctx := context.Background()
	require.NoError(t, reconcile(ctx, w.Players, []mapeditor.PlayerData{player("a", 1), player("b", 2)}, (*Player).apply))
	stale, _ := w.Players.Get("b")

	require.NoError(t, reconcile(ctx, w.Players, []mapeditor.PlayerData{player("a", 10), player("c", 3)}, (*Player).apply))

	var ids []string
	for _, p := range w.Players.Items() {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"a", "c"}, ids)
	assert.True(t, stale.IsDestroyed(), "players missing from an init are removed")
	a, _ := w.Players.Get("a")
	assert.Equal(t, 10.0, a.Position.X)
	assert.Equal(t, 2, w.NumChildren())
}

func TestWorldHoldsManyOfEachKind(t *testing.T) {
	w := NewWorld(0, nil)
	ctx := context.Background()
	require.NoError(t, reconcile(ctx, w.Players, []mapeditor.PlayerData{player("a", 1), player("b", 2), player("c", 3)}, (*Player).apply))
	require.NoError(t, reconcile(ctx, w.Bullets, []mapeditor.BulletData{
		{ID: "a", ShooterID: "a", Radius: 6},
		{ID: "b1", ShooterID: "b", Radius: 6},
	}, nil))
	require.NoError(t, reconcile(ctx, w.Texts, []mapeditor.TextData{
		{ID: "a", Author: "a", Text: "hi"},
		{ID: "t2", Author: "b", Text: "yo"},
	}, nil))

	assert.Equal(t, 7, w.NumChildren())
	for _, name := range []string{"player:a", "player:b", "player:c", "bullet:a", "bullet:b1", "text:a", "text:t2"} {
		assert.NotNil(t, w.Get(name), name)
	}
}

func TestReusedSlotIsRenamed(t *testing.T) {
	w := NewWorld(0, nil)
	w.Players.Max = 1
	ctx := context.Background()
	a, err := w.Players.Create(ctx, player("a", 0))
	require.NoError(t, err)
	b, err := w.Players.Create(ctx, player("b", 0))
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.Same(t, b.Node, w.Get("player:b"))
	assert.Nil(t, w.Get("player:a"))
}

func TestUpdateUnknownPlayerFails(t *testing.T) {
	w := NewWorld(0, nil)
	_, err := w.Players.Create(context.Background(), player("a", 0))
	require.NoError(t, err)

	err = update(w.Players, []mapeditor.PlayerData{{ID: "a", HP: 40, Position: sprig.Vec2{Y: 5}}, {ID: "ghost"}}, (*Player).apply)
	assert.ErrorIs(t, err, sprig.ErrUnknownEntity)
	a, _ := w.Players.Get("a")
	assert.Equal(t, 40.0, a.HP)
	assert.Equal(t, 5.0, a.Position.Y)
}

func TestSelfJoined(t *testing.T) {
	w := NewWorld(0, nil)
	var joined []string
	w.SelfJoined.On(func(p *Player) { joined = append(joined, p.ID) }, 0)

	_, err := w.Players.Create(context.Background(), player("me", 0))
	require.NoError(t, err)
	assert.Empty(t, joined)

	w.SetSelf("me")
	assert.Equal(t, []string{"me"}, joined)
	self, ok := w.Self()
	require.True(t, ok)
	assert.True(t, self.Self)

	w.Players.Delete("me")
	_, err = w.Players.Create(context.Background(), player("me", 0))
	require.NoError(t, err)
	assert.Equal(t, []string{"me", "me"}, joined)
}

func TestGlideEasesToTarget(t *testing.T) {
	w := NewWorld(0.1, nil)
	p, err := w.Players.Create(context.Background(), player("a", 0))
	require.NoError(t, err)

	p.apply(player("a", 100))
	assert.Equal(t, 0.0, p.Position.X, "glide starts from the current position")
	p.glide.step(p.Node, 0.05)
	assert.Greater(t, p.Position.X, 0.0)
	assert.Less(t, p.Position.X, 100.0)
	p.glide.step(p.Node, 0.1)
	assert.InDelta(t, 100, p.Position.X, 1e-3)
}

func TestTextsAndBullets(t *testing.T) {
	w := NewWorld(0, nil)
	ctx := context.Background()
	require.NoError(t, reconcile(ctx, w.Texts, []mapeditor.TextData{{ID: "t1", Author: "a", Text: "hi", Position: sprig.Vec2{X: 4}}}, nil))
	tx, ok := w.Texts.Get("t1")
	require.True(t, ok)
	assert.Equal(t, "hi", tx.Text)
	assert.Equal(t, sprig.Vec2{X: 4}, tx.Position)

	_, err := w.Bullets.Create(ctx, mapeditor.BulletData{ID: "b1", ShooterID: "a", Radius: 6})
	require.NoError(t, err)
	assert.True(t, w.Bullets.Delete("b1"))
	assert.Equal(t, 1, w.NumChildren())
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#f00")
	require.NoError(t, err)
	assert.Equal(t, sprig.Color{R: 1, A: 1}, c)

	c, err = ParseColor("00ff0080")
	require.NoError(t, err)
	assert.Equal(t, 1.0, c.G)
	assert.InDelta(t, 0.5, c.A, 0.01)

	_, err = ParseColor("#12")
	assert.Error(t, err)
	_, err = ParseColor("#zzzzzz")
	assert.Error(t, err)
}
