package server

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phanxgames/sprig"
	"github.com/phanxgames/sprig/mapeditor"
)

type sent struct {
	event string
	v     any
}

type fakeNet struct {
	sent    []sent
	changed []string
}

func (f *fakeNet) Broadcast(event string, v any) error {
	f.sent = append(f.sent, sent{event, v})
	return nil
}

func (f *fakeNet) BroadcastChanged(event string, v any) (bool, error) {
	f.changed = append(f.changed, event)
	return true, nil
}

func (f *fakeNet) events() []string {
	var out []string
	for _, s := range f.sent {
		out = append(out, s.event)
	}
	return out
}

type fakePeer struct {
	sent []sent
	// subscribedAt is the number of frames sent before Subscribe, or -1.
	subscribedAt int
}

func newFakePeer() *fakePeer { return &fakePeer{subscribedAt: -1} }

func (f *fakePeer) Subscribe() { f.subscribedAt = len(f.sent) }

func (f *fakePeer) Emit(event string, v any) error {
	f.sent = append(f.sent, sent{event, v})
	return nil
}

func (f *fakePeer) events() []string {
	var out []string
	for _, s := range f.sent {
		out = append(out, s.event)
	}
	return out
}

func newTestScene(t *testing.T, mutate ...func(*mapeditor.ServerConfig)) (*Scene, *sprig.App, *fakeNet) {
	t.Helper()
	cfg := mapeditor.DefaultServerConfig()
	for _, fn := range mutate {
		fn(&cfg)
	}
	app := sprig.NewApp(sprig.Options{Physics: true})
	t.Cleanup(app.Close)
	net := &fakeNet{}
	s, err := NewScene(app, net, nil, cfg)
	require.NoError(t, err)
	require.NoError(t, s.Init(context.Background()))
	return s, app, net
}

func join(t *testing.T, s *Scene, id string) (*Player, *fakePeer) {
	t.Helper()
	peer := newFakePeer()
	require.NoError(t, s.Join(context.Background(), id, peer, mapeditor.SessionInit{Username: id, Color: "#fff"}))
	p, ok := s.Players.Get(id)
	require.True(t, ok)
	return p, peer
}

// --- Join / Leave ---

func TestJoinSendsWorldState(t *testing.T) {
	s, _, net := newTestScene(t)
	p, peer := join(t, s, "alice")

	assert.Equal(t, []string{
		mapeditor.EventPlayersInit,
		mapeditor.EventTextsInit,
		mapeditor.EventBulletsInit,
		mapeditor.EventMapInit,
	}, peer.events())
	players := peer.sent[0].v.([]mapeditor.PlayerData)
	require.Len(t, players, 1)
	assert.Equal(t, "alice", players[0].Username)
	assert.Equal(t, maxHP, players[0].HP)

	assert.Equal(t, []string{mapeditor.EventPlayerCreate}, net.events())
	assert.True(t, p.Physics.Live())
	assert.Equal(t, 4, peer.subscribedAt, "broadcasts start after the init frames")
}

func TestFailedJoinIsNotSubscribed(t *testing.T) {
	s, _, _ := newTestScene(t)
	join(t, s, "alice")
	peer := newFakePeer()
	require.Error(t, s.Join(context.Background(), "alice", peer, mapeditor.SessionInit{}))
	assert.Equal(t, -1, peer.subscribedAt)
	assert.Empty(t, peer.sent)
}

func TestSceneInitReadiesGroups(t *testing.T) {
	s, _, _ := newTestScene(t)
	assert.Equal(t, sprig.StateReady, s.State())
	for _, g := range []*sprig.Node{s.playersRoot, s.bulletsRoot, s.textsRoot} {
		assert.Equal(t, sprig.StateReady, g.State(), g.Name)
	}
}

func TestJoinTwiceFails(t *testing.T) {
	s, _, _ := newTestScene(t)
	join(t, s, "alice")
	err := s.Join(context.Background(), "alice", newFakePeer(), mapeditor.SessionInit{})
	assert.ErrorIs(t, err, sprig.ErrDuplicateEntity)
}

func TestLeaveDestroysPlayer(t *testing.T) {
	s, _, net := newTestScene(t)
	p, _ := join(t, s, "alice")
	s.Leave("alice")

	assert.Equal(t, 0, s.Players.Len())
	assert.True(t, p.IsDestroyed())
	assert.False(t, p.Physics.Live())
	assert.Equal(t, []string{mapeditor.EventPlayerCreate, mapeditor.EventPlayerDelete}, net.events())
}

func TestFullSceneEvictsOldestPlayer(t *testing.T) {
	s, _, net := newTestScene(t, func(c *mapeditor.ServerConfig) { c.MaxPlayers = 1 })
	a, _ := join(t, s, "alice")
	b, _ := join(t, s, "bob")

	assert.Same(t, a, b, "the evicted instance is reused")
	assert.Equal(t, "bob", b.ID)
	assert.Equal(t, "bob", b.Name)
	assert.Same(t, b.Node, s.playersRoot.Get("bob"))
	assert.Nil(t, s.playersRoot.Get("alice"))
	assert.Equal(t, 1, s.Players.Len())
	assert.Equal(t, sent{mapeditor.EventPlayerDelete, "alice"}, net.sent[1])
	assert.True(t, b.Physics.Live())
}

// --- Requests ---

func TestEditOnlyOwnPlayer(t *testing.T) {
	s, _, _ := newTestScene(t)
	join(t, s, "alice")
	join(t, s, "bob")
	red := "#f00"

	assert.ErrorIs(t, s.Edit("bob", mapeditor.PlayerEdit{ID: "alice", Color: &red}), ErrForbidden)
	assert.ErrorIs(t, s.Edit("bob", mapeditor.PlayerEdit{ID: "ghost"}), sprig.ErrUnknownEntity)

	pos := sprig.Vec2{X: 90, Y: -30}
	require.NoError(t, s.Edit("alice", mapeditor.PlayerEdit{ID: "alice", Color: &red, Position: &pos}))
	a, _ := s.Players.Get("alice")
	assert.Equal(t, red, a.Color)
	assert.InDelta(t, 90, a.PixelPos().X, 1e-9)
	assert.InDelta(t, -30, a.PixelPos().Y, 1e-9)
}

func TestSayCreatesTextThatExpires(t *testing.T) {
	s, app, net := newTestScene(t)
	join(t, s, "alice")

	assert.ErrorIs(t, s.Say(context.Background(), "alice", mapeditor.ActionText{Text: "  "}), ErrEmptyText)
	assert.ErrorIs(t, s.Say(context.Background(), "ghost", mapeditor.ActionText{Text: "hi"}), ErrNoPlayer)
	require.NoError(t, s.Say(context.Background(), "alice", mapeditor.ActionText{Text: "hi"}))

	texts := s.Texts.Snapshot()
	require.Len(t, texts, 1)
	assert.Equal(t, "alice", texts[0].Author)
	assert.Equal(t, "hi", texts[0].Text)

	for i := 0; i < 4; i++ {
		app.Step(1)
	}
	assert.Equal(t, 0, s.Texts.Len())
	assert.Contains(t, net.events(), mapeditor.EventTextDelete)
}

func TestMoveClampsAndSteers(t *testing.T) {
	s, app, _ := newTestScene(t)
	p, _ := join(t, s, "alice")
	require.NoError(t, s.Move("alice", mapeditor.ControlMove{Angle: 0, Value: 5}))
	assert.Equal(t, 1.0, p.move.Value)

	app.Step(1.0 / 60)
	assert.Greater(t, p.Physics.Velocity().X, 0.0)
}

func TestTickBroadcastsUpdates(t *testing.T) {
	s, app, net := newTestScene(t)
	join(t, s, "alice")
	app.Step(1.0 / 60)
	assert.Equal(t, []string{mapeditor.EventPlayersUpdate, mapeditor.EventBulletsUpdate}, net.changed)
}

func TestShootSpawnsBullet(t *testing.T) {
	s, _, net := newTestScene(t)
	join(t, s, "alice")
	require.NoError(t, s.Shoot(context.Background(), "alice", mapeditor.Shoot{Angle: 0}))

	bullets := s.Bullets.Snapshot()
	require.Len(t, bullets, 1)
	assert.Equal(t, "alice", bullets[0].ShooterID)
	assert.Greater(t, bullets[0].Velocity.X, 0.0)
	assert.Equal(t, mapeditor.EventBulletCreate, net.events()[1])
}

func TestManyPlayersShootAndTalk(t *testing.T) {
	s, _, _ := newTestScene(t)
	ctx := context.Background()
	ids := []string{"alice", "bob", "carol"}
	for _, id := range ids {
		join(t, s, id)
	}
	for _, id := range ids {
		require.NoError(t, s.Shoot(ctx, id, mapeditor.Shoot{Angle: 0}))
		require.NoError(t, s.Say(ctx, id, mapeditor.ActionText{Text: "hi from " + id}))
	}

	assert.Equal(t, 3, s.Players.Len())
	assert.Equal(t, 3, s.Bullets.Len())
	assert.Equal(t, 3, s.Texts.Len())
	assert.Len(t, s.playersRoot.Children(), 3)
	assert.Len(t, s.bulletsRoot.Children(), 3)
	assert.Len(t, s.textsRoot.Children(), 3)
	for _, id := range ids {
		assert.NotNil(t, s.playersRoot.Get(id), id)
	}
	for _, b := range s.Bullets.Items() {
		assert.Same(t, b.Node, s.bulletsRoot.Get(b.ID))
	}
	for _, txt := range s.Texts.Items() {
		assert.Same(t, txt.Node, s.textsRoot.Get(txt.ID))
	}
}

// --- Contacts ---

func spawnBullet(t *testing.T, s *Scene, shooter string, at sprig.Vec2, damage float64) *Bullet {
	t.Helper()
	b, err := s.Bullets.Create(context.Background(), mapeditor.BulletData{
		ID: "b-" + shooter, ShooterID: shooter, Radius: bulletRadiusPx, Damage: damage, Position: at,
	})
	require.NoError(t, err)
	return b
}

func TestBulletDamagesOtherPlayer(t *testing.T) {
	s, app, _ := newTestScene(t)
	a, _ := join(t, s, "alice")
	b, bobPeer := join(t, s, "bob")
	a.Teleport(sprig.Vec2{X: -300})
	b.Teleport(sprig.Vec2{X: 300})

	spawnBullet(t, s, "alice", b.PixelPos(), 10)
	app.Step(1.0 / 60)

	assert.Equal(t, maxHP-10, b.HP)
	assert.Equal(t, maxHP, a.HP)
	assert.Equal(t, 0, s.Bullets.Len(), "a bullet is removed after it hits")
	assert.Contains(t, bobPeer.events(), mapeditor.EventVibrate)
}

func TestShooterIsImmune(t *testing.T) {
	s, app, _ := newTestScene(t)
	a, _ := join(t, s, "alice")
	a.Teleport(sprig.Vec2{})

	spawnBullet(t, s, "alice", a.PixelPos(), 10)
	app.Step(1.0 / 60)

	assert.Equal(t, maxHP, a.HP)
	assert.Equal(t, 1, s.Bullets.Len())
}

func TestLethalHitRespawns(t *testing.T) {
	s, app, _ := newTestScene(t)
	a, _ := join(t, s, "alice")
	b, _ := join(t, s, "bob")
	a.Teleport(sprig.Vec2{X: -300})
	b.Teleport(sprig.Vec2{X: 300})

	died := 0
	b.Died.On(func(*Player) { died++ }, 0)
	spawnBullet(t, s, "alice", b.PixelPos(), maxHP*2)
	app.Step(1.0 / 60)

	assert.Equal(t, 1, died)
	assert.Equal(t, maxHP, b.HP, "HP is restored at step end")
}

// --- Resources ---

func TestResourcesWithoutStore(t *testing.T) {
	s, _, _ := newTestScene(t)
	peer := newFakePeer()
	require.NoError(t, s.ListResources(peer))
	assert.Equal(t, []mapeditor.ResourceMetadata{}, peer.sent[0].v)
	assert.ErrorIs(t, s.LoadResource(peer, mapeditor.ResourceLoad{ID: "x"}), mapeditor.ErrUnknownResource)
}
