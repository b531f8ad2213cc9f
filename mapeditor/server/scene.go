// Package server runs the authoritative map-editor scene: physics-driven
// players and bullets, chat texts, and their replication to every session.
package server

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/phanxgames/sprig"
	"github.com/phanxgames/sprig/mapeditor"
)

var (
	// ErrNoPlayer is returned for requests from a session that has not
	// completed session:init.
	ErrNoPlayer = errors.New("session has no player")
	// ErrForbidden is returned when a session edits another player.
	ErrForbidden = errors.New("cannot edit another player")
	// ErrEmptyText is returned for blank chat messages.
	ErrEmptyText = errors.New("empty text")
)

// Broadcaster sends to every connected session. *netsync.Hub implements it.
type Broadcaster interface {
	Broadcast(event string, v any) error
	BroadcastChanged(event string, v any) (bool, error)
}

// Scene is the authoritative map-editor world. Its methods run on the loop
// goroutine.
type Scene struct {
	*sprig.Node

	Players *sprig.Container[*Player, mapeditor.PlayerData]
	Bullets *sprig.Container[*Bullet, mapeditor.BulletData]
	Texts   *sprig.Container[*Text, mapeditor.TextData]

	cfg       mapeditor.ServerConfig
	app       *sprig.App
	net       Broadcaster
	resources *mapeditor.ResourceStore
	log       *zap.Logger
	rng       *rand.Rand

	playersRoot *sprig.Node
	bulletsRoot *sprig.Node
	textsRoot   *sprig.Node
}

// NewScene builds the scene and attaches it to app.Root. app must have
// physics enabled. Init the scene before its loop starts.
func NewScene(app *sprig.App, net Broadcaster, resources *mapeditor.ResourceStore, cfg mapeditor.ServerConfig) (*Scene, error) {
	if app.Physics == nil {
		return nil, errors.New("scene needs a physics-enabled app")
	}
	s := &Scene{
		Node:        sprig.NewNode("main"),
		cfg:         cfg,
		app:         app,
		net:         net,
		resources:   resources,
		log:         app.Log.Named("scene"),
		rng:         rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		playersRoot: sprig.NewBase("players"),
		bulletsRoot: sprig.NewBase("bullets"),
		textsRoot:   sprig.NewBase("texts"),
	}
	s.Owner = s
	s.OnProcess = s.process
	s.OnInit = s.initGroups

	s.Players = sprig.NewContainer(cfg.MaxPlayers, newPlayer, s.setupPlayer)
	s.Players.Export = (*Player).export
	s.Bullets = sprig.NewContainer(cfg.MaxBullets, newBullet, s.setupBullet)
	s.Bullets.Export = (*Bullet).export
	s.Texts = sprig.NewContainer(cfg.MaxTexts, newText, s.setupText)
	s.Texts.Export = (*Text).export
	s.wireReplication()

	for _, n := range []*sprig.Node{s.playersRoot, s.bulletsRoot, s.textsRoot} {
		if err := s.AddChild(n); err != nil {
			return nil, err
		}
	}
	if err := app.Root.AddChild(s.Node); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scene) initGroups(ctx context.Context) error {
	for _, n := range []*sprig.Node{s.playersRoot, s.bulletsRoot, s.textsRoot} {
		if err := n.Init(ctx); err != nil {
			return err
		}
	}
	return nil
}

// wireReplication mirrors container changes to every session.
func (s *Scene) wireReplication() {
	replicate(s.Players, s.broadcast, mapeditor.EventPlayerCreate, mapeditor.EventPlayerDelete,
		func(p *Player) {
			p.Physics.SetActive(false)
			p.peer = nil
			p.move = mapeditor.ControlMove{}
		})
	replicate(s.Bullets, s.broadcast, mapeditor.EventBulletCreate, mapeditor.EventBulletDelete,
		func(b *Bullet) { b.Physics.SetActive(false) })
	replicate(s.Texts, s.broadcast, mapeditor.EventTextCreate, mapeditor.EventTextDelete, nil)
}

type sceneItem interface {
	sprig.Entity
	Destroy()
}

// replicate broadcasts creates and deletes of c. An evicted item is parked
// with park until the container hands it out again; an explicitly deleted
// one is destroyed.
func replicate[T sceneItem, S sprig.Entity](c *sprig.Container[T, S], send func(string, any), created, deleted string, park func(T)) {
	c.Created.On(func(ev sprig.CreateEvent[T, S]) {
		send(created, c.Export(ev.Item))
	}, 0)
	c.Deleting.On(func(ev sprig.DeletingEvent[T]) {
		if !ev.Evicted {
			ev.Item.Destroy()
			return
		}
		send(deleted, ev.Item.Identity())
		if park != nil {
			park(ev.Item)
		}
	}, 0)
	c.Deleted.On(func(id string) { send(deleted, id) }, 0)
}

func (s *Scene) broadcast(event string, v any) {
	if err := s.net.Broadcast(event, v); err != nil {
		s.log.Error("broadcast failed", zap.String("event", event), zap.Error(err))
	}
}

// --- Container setup ---
//
// Each setup names the node after its entity id, renaming a reused slot, so
// siblings under a group stay distinct.

func (s *Scene) setupPlayer(ctx context.Context, p *Player, d mapeditor.PlayerData, isNew bool) error {
	p.Name = d.ID
	p.Size = d.Size
	p.move = mapeditor.ControlMove{}
	if isNew {
		p.setShape()
		p.Teleport(d.Position)
		p.Physics.SetAngle(d.Rotation)
		p.Physics.SetVelocity(toMetres(d.Velocity))
		p.PreSolve.On(func(c sprig.PreSolveContact) { s.resolveHit(p, c) }, 0)
		p.Died.On(s.respawn, 0)
		p.Damaged.On(func(dmg float64) {
			s.emitTo(p, mapeditor.EventVibrate, []int{int(dmg * 3), int(dmg)})
		}, 0)
		if err := p.Init(ctx); err != nil {
			return err
		}
		return s.playersRoot.AddChild(p.Node)
	}
	p.Physics.SetActive(true)
	p.Teleport(d.Position)
	p.Physics.SetAngle(d.Rotation)
	p.Physics.SetVelocity(toMetres(d.Velocity))
	return nil
}

func (s *Scene) setupBullet(ctx context.Context, b *Bullet, d mapeditor.BulletData, isNew bool) error {
	b.Name = d.ID
	b.life = s.cfg.BulletLifetime.Seconds()
	b.spent = false
	pos, vel := toMetres(d.Position), toMetres(d.Velocity)
	if isNew {
		b.setShape()
		b.Physics.SetPosition(pos)
		b.Physics.SetVelocity(vel)
		b.Physics.SetAngle(d.Rotation)
		if err := b.Init(ctx); err != nil {
			return err
		}
		return s.bulletsRoot.AddChild(b.Node)
	}
	b.Physics.SetActive(true)
	b.Physics.SetPosition(pos)
	b.Physics.SetVelocity(vel)
	b.Physics.SetAngle(d.Rotation)
	return nil
}

func (s *Scene) setupText(ctx context.Context, t *Text, d mapeditor.TextData, isNew bool) error {
	t.Name = d.ID
	t.life = s.cfg.TextLifetime.Seconds()
	t.Position = d.Position
	t.SetRotation(d.Rotation)
	if isNew {
		if err := t.Init(ctx); err != nil {
			return err
		}
		return s.textsRoot.AddChild(t.Node)
	}
	return nil
}

// --- Tick ---

func (s *Scene) process(dt float64) {
	for _, p := range s.Players.Items() {
		p.steer()
	}
	for _, b := range s.Bullets.Items() {
		if b.life -= dt; b.life <= 0 {
			s.Bullets.Delete(b.ID)
		}
	}
	for _, t := range s.Texts.Items() {
		if t.life -= dt; t.life <= 0 {
			s.Texts.Delete(t.ID)
		}
	}
	if _, err := s.net.BroadcastChanged(mapeditor.EventPlayersUpdate, s.Players.Snapshot()); err != nil {
		s.log.Error("players update failed", zap.Error(err))
	}
	if _, err := s.net.BroadcastChanged(mapeditor.EventBulletsUpdate, s.Bullets.Snapshot()); err != nil {
		s.log.Error("bullets update failed", zap.Error(err))
	}
}

// --- Contacts ---

// resolveHit runs for every contact a player sees. A bullet never hits its
// shooter; any other player takes its damage once, and the bullet is removed
// after the step.
func (s *Scene) resolveHit(p *Player, c sprig.PreSolveContact) {
	other := c.Other(p.Node)
	if other == nil {
		return
	}
	b, ok := other.Owner.(*Bullet)
	if !ok {
		return
	}
	if b.ShooterID == p.ID {
		c.SetEnabled(false)
		return
	}
	if b.spent {
		return
	}
	b.spent = true
	p.Hit(b.Damage)
	id := b.ID
	s.app.Physics.StepEnd.Once(func(*sprig.PhysicsSystem) { s.Bullets.Delete(id) }, 0)
}

func (s *Scene) respawn(p *Player) {
	s.emitTo(p, mapeditor.EventVibrate, []int{100, 50, 200})
	s.app.Physics.StepEnd.Once(func(*sprig.PhysicsSystem) {
		p.HP = maxHP
		p.Teleport(s.spawnPoint())
		p.Physics.SetVelocity(sprig.Vec2{})
	}, 0)
}

func (s *Scene) spawnPoint() sprig.Vec2 {
	r := s.cfg.SpawnRadius
	return sprig.Vec2{X: (s.rng.Float64()*2 - 1) * r, Y: (s.rng.Float64()*2 - 1) * r}
}

func (s *Scene) emitTo(p *Player, event string, v any) {
	if p.peer == nil {
		return
	}
	if err := p.peer.Emit(event, v); err != nil {
		s.log.Warn("send failed", zap.String("player", p.ID), zap.String("event", event), zap.Error(err))
	}
}

func (s *Scene) player(id string) (*Player, error) {
	p, ok := s.Players.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoPlayer, id)
	}
	return p, nil
}

// --- Requests ---

// Join creates the session's player, sends it the world state and then
// subscribes it to broadcasts, so no update reaches it before its init.
func (s *Scene) Join(ctx context.Context, id string, peer Peer, init mapeditor.SessionInit) error {
	name := strings.TrimSpace(init.Username)
	if name == "" {
		name = "player-" + id[:min(4, len(id))]
	}
	p, err := s.Players.Create(ctx, mapeditor.PlayerData{
		ID:       id,
		Username: name,
		Color:    init.Color,
		HP:       maxHP,
		Position: s.spawnPoint(),
		Size:     sprig.Vec2{X: playerSizePx, Y: playerSizePx},
	})
	if err != nil {
		return err
	}
	p.peer = peer
	s.log.Info("player joined", zap.String("player", id), zap.String("username", name))

	msgs := []struct {
		event string
		v     any
	}{
		{mapeditor.EventPlayersInit, s.Players.Snapshot()},
		{mapeditor.EventTextsInit, s.Texts.Snapshot()},
		{mapeditor.EventBulletsInit, s.Bullets.Snapshot()},
		{mapeditor.EventMapInit, mapeditor.MapData{Version: s.cfg.MapVersion, Resources: s.resourceList()}},
	}
	for _, m := range msgs {
		if err := peer.Emit(m.event, m.v); err != nil {
			return fmt.Errorf("send %s: %w", m.event, err)
		}
	}
	peer.Subscribe()
	return nil
}

// Leave deletes the session's player, if it still has one.
func (s *Scene) Leave(id string) {
	if s.Players.Delete(id) {
		s.log.Info("player left", zap.String("player", id))
	}
}

// Edit applies a partial edit to the editor's own player.
func (s *Scene) Edit(editorID string, e mapeditor.PlayerEdit) error {
	p, ok := s.Players.Get(e.ID)
	if !ok {
		return fmt.Errorf("edit: %w: %q", sprig.ErrUnknownEntity, e.ID)
	}
	if editorID != e.ID {
		return fmt.Errorf("%w: %s edited %s", ErrForbidden, editorID, e.ID)
	}
	if e.Color != nil {
		p.Color = *e.Color
	}
	if e.Rotation != nil {
		p.Physics.SetAngle(*e.Rotation)
	}
	if e.Position != nil {
		p.Teleport(*e.Position)
	}
	if e.Size != nil {
		p.Size = *e.Size
	}
	return nil
}

// Say places a text at the sender's position.
func (s *Scene) Say(ctx context.Context, id string, a mapeditor.ActionText) error {
	p, err := s.player(id)
	if err != nil {
		return err
	}
	text := strings.TrimSpace(a.Text)
	if text == "" {
		return ErrEmptyText
	}
	s.log.Info("say", zap.String("player", id), zap.String("text", text))
	_, err = s.Texts.Create(ctx, mapeditor.TextData{
		ID:       uuid.NewString(),
		Author:   p.Username,
		Text:     text,
		Rotation: p.Physics.Angle(),
		Position: p.PixelPos(),
	})
	return err
}

// Move sets the sender's movement input.
func (s *Scene) Move(id string, m mapeditor.ControlMove) error {
	p, err := s.player(id)
	if err != nil {
		return err
	}
	m.Value = max(0, min(1, m.Value))
	p.move = m
	return nil
}

// Shoot fires a bullet from the sender.
func (s *Scene) Shoot(ctx context.Context, id string, sh mapeditor.Shoot) error {
	p, err := s.player(id)
	if err != nil {
		return err
	}
	dir := sprig.Vec2{X: 1}.Rotate(sh.Angle)
	vel := toPixels(p.Physics.Velocity()).Add(dir.Scale(s.cfg.BulletSpeed * mapeditor.PixelDensity))
	_, err = s.Bullets.Create(ctx, mapeditor.BulletData{
		ID:        uuid.NewString(),
		ShooterID: p.ID,
		Radius:    bulletRadiusPx,
		Damage:    s.cfg.BulletDamage,
		Rotation:  sh.Angle,
		Position:  p.PixelPos(),
		Velocity:  vel,
	})
	if err != nil {
		return err
	}
	s.emitTo(p, mapeditor.EventVibrate, []int{30})
	return nil
}

// ListResources sends the resource metadata list to peer.
func (s *Scene) ListResources(peer Peer) error {
	return peer.Emit(mapeditor.EventResourceList, s.resourceList())
}

// LoadResource sends one resource file to peer.
func (s *Scene) LoadResource(peer Peer, r mapeditor.ResourceLoad) error {
	if s.resources == nil {
		return fmt.Errorf("%w: %q", mapeditor.ErrUnknownResource, r.ID)
	}
	payload, err := s.resources.Load(r.ID)
	if err != nil {
		return err
	}
	return peer.Emit(mapeditor.EventResourceData, payload)
}

func (s *Scene) resourceList() []mapeditor.ResourceMetadata {
	if s.resources == nil {
		return []mapeditor.ResourceMetadata{}
	}
	return s.resources.List()
}
