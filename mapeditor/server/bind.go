package server

import (
	"context"

	"github.com/phanxgames/sprig"
	"github.com/phanxgames/sprig/mapeditor"
	"github.com/phanxgames/sprig/netsync"
)

// Bind routes the hub's client events to the scene. The hub must post to the
// scene's loop so handlers run on the loop goroutine. Offing the returned
// tokens unbinds.
func (s *Scene) Bind(ctx context.Context, hub *netsync.Hub) []sprig.Token {
	r := hub.Router
	return []sprig.Token{
		netsync.On(r, mapeditor.EventSessionInit, func(ss *netsync.Session, v mapeditor.SessionInit) error {
			return s.Join(ctx, ss.ID, ss, v)
		}),
		netsync.On(r, mapeditor.EventPlayerEdit, func(ss *netsync.Session, v mapeditor.PlayerEdit) error {
			return s.Edit(ss.ID, v)
		}),
		netsync.On(r, mapeditor.EventActionText, func(ss *netsync.Session, v mapeditor.ActionText) error {
			return s.Say(ctx, ss.ID, v)
		}),
		netsync.On(r, mapeditor.EventControlMove, func(ss *netsync.Session, v mapeditor.ControlMove) error {
			return s.Move(ss.ID, v)
		}),
		netsync.On(r, mapeditor.EventControlShoot, func(ss *netsync.Session, v mapeditor.Shoot) error {
			return s.Shoot(ctx, ss.ID, v)
		}),
		r.Handle(mapeditor.EventResourcesList, func(ss *netsync.Session, _ netsync.Envelope) error {
			return s.ListResources(ss)
		}),
		netsync.On(r, mapeditor.EventResourceLoad, func(ss *netsync.Session, v mapeditor.ResourceLoad) error {
			return s.LoadResource(ss, v)
		}),
		hub.Disconnected.On(func(ss *netsync.Session) { s.Leave(ss.ID) }, 0),
	}
}
