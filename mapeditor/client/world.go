// Package client mirrors the map-editor scene from server snapshots and
// sends the local player's input.
package client

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/phanxgames/sprig"
	"github.com/phanxgames/sprig/mapeditor"
	"github.com/phanxgames/sprig/netsync"
)

// World mirrors the server scene from its snapshot events. Handlers run on
// the loop goroutine.
type World struct {
	*sprig.Node

	Players *sprig.Container[*Player, mapeditor.PlayerData]
	Bullets *sprig.Container[*Bullet, mapeditor.BulletData]
	Texts   *sprig.Container[*Text, mapeditor.TextData]

	Map       mapeditor.MapData
	Resources map[string]mapeditor.ResourcePayload

	// SelfJoined fires when the local player appears.
	SelfJoined sprig.Event[*Player]
	// Vibrate carries api:vibrate patterns in milliseconds.
	Vibrate sprig.Event[[]int]

	selfID string
	log    *zap.Logger
}

// NewWorld creates an empty world. Remote entities glide to new snapshots
// over interp.
func NewWorld(interp float32, log *zap.Logger) *World {
	if log == nil {
		log = zap.NewNop()
	}
	w := &World{
		Node:      sprig.NewNode("world"),
		Resources: map[string]mapeditor.ResourcePayload{},
		log:       log.Named("world"),
	}
	w.Owner = w

	w.Players = sprig.NewContainer(0, func() *Player { return newPlayer(interp) },
		func(ctx context.Context, p *Player, d mapeditor.PlayerData, isNew bool) error {
			p.Position = d.Position
			p.apply(d)
			p.SetZIndex(1)
			p.Self = d.ID == w.selfID
			return w.attach(ctx, p.Node, "player:"+d.ID, isNew)
		})
	w.Bullets = sprig.NewContainer(0, func() *Bullet { return newBullet(interp) },
		func(ctx context.Context, b *Bullet, d mapeditor.BulletData, isNew bool) error {
			b.Position = d.Position
			b.apply(d)
			b.SetZIndex(2)
			return w.attach(ctx, b.Node, "bullet:"+d.ID, isNew)
		})
	w.Texts = sprig.NewContainer(0, newText,
		func(ctx context.Context, t *Text, d mapeditor.TextData, isNew bool) error {
			t.Position = d.Position
			t.SetRotation(d.Rotation)
			return w.attach(ctx, t.Node, "text:"+d.ID, isNew)
		})

	destroyOnDelete(w.Players)
	destroyOnDelete(w.Bullets)
	destroyOnDelete(w.Texts)
	w.Players.Created.On(func(ev sprig.CreateEvent[*Player, mapeditor.PlayerData]) {
		if ev.Item.Self {
			w.SelfJoined.Emit(ev.Item)
		}
	}, 0)
	return w
}

// attach names n after its entity, since every kind shares the world as
// parent, and adds it on first use. A reused slot is only renamed.
func (w *World) attach(ctx context.Context, n *sprig.Node, name string, isNew bool) error {
	n.Name = name
	if !isNew {
		return nil
	}
	if err := n.Init(ctx); err != nil {
		return err
	}
	return w.AddChild(n)
}

type worldItem interface {
	sprig.Entity
	Destroy()
}

func destroyOnDelete[T worldItem, S sprig.Entity](c *sprig.Container[T, S]) {
	c.Deleting.On(func(ev sprig.DeletingEvent[T]) {
		if !ev.Evicted {
			ev.Item.Destroy()
		}
	}, 0)
}

// SelfID returns the local session id, empty before the welcome.
func (w *World) SelfID() string { return w.selfID }

// SetSelf records the local session id and marks the matching player.
func (w *World) SetSelf(id string) {
	w.selfID = id
	if p, ok := w.Players.Get(id); ok && !p.Self {
		p.Self = true
		w.SelfJoined.Emit(p)
	}
}

// Self returns the local player, if it exists.
func (w *World) Self() (*Player, bool) {
	if w.selfID == "" {
		return nil, false
	}
	return w.Players.Get(w.selfID)
}

// reconcile makes c match a full snapshot: live items missing from list are
// deleted, known ones updated and the rest created.
func reconcile[T sprig.Entity, S sprig.Entity](ctx context.Context, c *sprig.Container[T, S], list []S, apply func(T, S)) error {
	keep := make(map[string]bool, len(list))
	var known, missing []S
	for _, d := range list {
		keep[d.Identity()] = true
		if _, ok := c.Get(d.Identity()); ok {
			known = append(known, d)
		} else {
			missing = append(missing, d)
		}
	}
	for _, it := range c.Items() {
		if !keep[it.Identity()] {
			c.Delete(it.Identity())
		}
	}
	errs := []error{update(c, known, apply)}
	for _, d := range missing {
		if _, err := c.Create(ctx, d); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func update[T sprig.Entity, S sprig.Entity](c *sprig.Container[T, S], list []S, apply func(T, S)) error {
	if apply == nil {
		return c.Update(list, nil)
	}
	return c.Update(list, func(item T, d S) error {
		apply(item, d)
		return nil
	})
}

// Bind routes the client's snapshot events into the world. Offing the
// returned tokens unbinds.
func (w *World) Bind(ctx context.Context, c *netsync.Client) []sprig.Token {
	r := c.Router
	applyPlayer := (*Player).apply
	applyBullet := (*Bullet).apply
	return []sprig.Token{
		c.Welcomed.On(w.SetSelf, 0),

		netsync.On(r, mapeditor.EventPlayersInit, func(_ *netsync.Session, v []mapeditor.PlayerData) error {
			return reconcile(ctx, w.Players, v, applyPlayer)
		}),
		netsync.On(r, mapeditor.EventPlayerCreate, func(_ *netsync.Session, v mapeditor.PlayerData) error {
			_, err := w.Players.Create(ctx, v)
			return err
		}),
		netsync.On(r, mapeditor.EventPlayerDelete, func(_ *netsync.Session, id string) error {
			w.Players.Delete(id)
			return nil
		}),
		netsync.On(r, mapeditor.EventPlayersUpdate, func(_ *netsync.Session, v []mapeditor.PlayerData) error {
			return update(w.Players, v, applyPlayer)
		}),

		netsync.On(r, mapeditor.EventBulletsInit, func(_ *netsync.Session, v []mapeditor.BulletData) error {
			return reconcile(ctx, w.Bullets, v, applyBullet)
		}),
		netsync.On(r, mapeditor.EventBulletCreate, func(_ *netsync.Session, v mapeditor.BulletData) error {
			_, err := w.Bullets.Create(ctx, v)
			return err
		}),
		netsync.On(r, mapeditor.EventBulletDelete, func(_ *netsync.Session, id string) error {
			w.Bullets.Delete(id)
			return nil
		}),
		netsync.On(r, mapeditor.EventBulletsUpdate, func(_ *netsync.Session, v []mapeditor.BulletData) error {
			return update(w.Bullets, v, applyBullet)
		}),

		netsync.On(r, mapeditor.EventTextsInit, func(_ *netsync.Session, v []mapeditor.TextData) error {
			return reconcile(ctx, w.Texts, v, nil)
		}),
		netsync.On(r, mapeditor.EventTextCreate, func(_ *netsync.Session, v mapeditor.TextData) error {
			_, err := w.Texts.Create(ctx, v)
			return err
		}),
		netsync.On(r, mapeditor.EventTextDelete, func(_ *netsync.Session, id string) error {
			w.Texts.Delete(id)
			return nil
		}),

		netsync.On(r, mapeditor.EventMapInit, func(_ *netsync.Session, v mapeditor.MapData) error {
			w.Map = v
			w.log.Info("map loaded", zap.String("version", v.Version), zap.Int("resources", len(v.Resources)))
			return nil
		}),
		netsync.On(r, mapeditor.EventResourceList, func(_ *netsync.Session, v []mapeditor.ResourceMetadata) error {
			w.Map.Resources = v
			return nil
		}),
		netsync.On(r, mapeditor.EventResourceData, func(_ *netsync.Session, v mapeditor.ResourcePayload) error {
			if v.Metadata.ID == "" {
				return fmt.Errorf("%w: resource without id", netsync.ErrMalformed)
			}
			w.Resources[v.Metadata.ID] = v
			return nil
		}),
		netsync.On(r, mapeditor.EventVibrate, func(_ *netsync.Session, v []int) error {
			w.Vibrate.Emit(v)
			return nil
		}),
	}
}
