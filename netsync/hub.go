package netsync

import (
	"context"
	"net/http"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/phanxgames/sprig"
)

// EventWelcome is the first frame a hub sends; its payload is a Welcome.
const EventWelcome = "session:welcome"

// Welcome tells a client its session id.
type Welcome struct {
	ID string `msgpack:"id"`
}

// Poster runs functions on the goroutine that owns the scene. *sprig.MainLoop
// implements it.
type Poster interface {
	Post(fn func())
}

// PosterFunc adapts a function to Poster.
type PosterFunc func(fn func())

// Post calls f(fn).
func (f PosterFunc) Post(fn func()) { f(fn) }

// Hub accepts websocket sessions and broadcasts to them. Connected,
// Disconnected and every incoming envelope are delivered through the Poster,
// in arrival order per session.
type Hub struct {
	Router       *Router
	Connected    sprig.Event[*Session]
	Disconnected sprig.Event[*Session]

	cfg      Config
	log      *zap.Logger
	poster   Poster
	upgrader websocket.Upgrader

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.RWMutex
	sessions map[string]*Session
	order    []*Session

	// hashes is touched only by BroadcastChanged on the poster goroutine.
	hashes map[string]uint64
}

// NewHub creates a hub that posts session traffic to p.
func NewHub(p Poster, cfg Config, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("hub")
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		Router: NewRouter(log),
		cfg:    cfg.WithDefaults(),
		log:    log,
		poster: p,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*Session),
		hashes:   make(map[string]uint64),
	}
}

// ServeHTTP upgrades the request and serves the session until it closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.ctx.Err() != nil {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("upgrade failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
		return
	}
	s := newSession(uuid.NewString(), conn, h.cfg, h.log)
	h.wg.Add(1)
	defer h.wg.Done()

	h.add(s)
	h.log.Info("session connected", zap.String("session", s.ID), zap.String("remote", r.RemoteAddr))
	if err := s.Emit(EventWelcome, Welcome{ID: s.ID}); err != nil {
		h.log.Warn("welcome failed", zap.String("session", s.ID), zap.Error(err))
	}
	h.poster.Post(func() { h.Connected.Emit(s) })

	err = s.serve(h.ctx, func(env Envelope) {
		h.poster.Post(func() { _ = h.Router.Dispatch(s, env) })
	})

	h.remove(s)
	if err != nil {
		h.log.Info("session disconnected", zap.String("session", s.ID), zap.Error(err))
	} else {
		h.log.Info("session disconnected", zap.String("session", s.ID))
	}
	h.poster.Post(func() { h.Disconnected.Emit(s) })
}

func (h *Hub) add(s *Session) {
	h.mu.Lock()
	h.sessions[s.ID] = s
	h.order = append(h.order, s)
	h.mu.Unlock()
}

func (h *Hub) remove(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, s.ID)
	for i, o := range h.order {
		if o == s {
			h.order = append(h.order[:i:i], h.order[i+1:]...)
			break
		}
	}
}

// Session returns a connected session by id.
func (h *Hub) Session(id string) (*Session, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.sessions[id]
	return s, ok
}

// Sessions returns the connected sessions in connection order.
func (h *Hub) Sessions() []*Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Session, len(h.order))
	copy(out, h.order)
	return out
}

// subscribers returns the sessions that receive broadcasts.
func (h *Hub) subscribers() []*Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Session, 0, len(h.order))
	for _, s := range h.order {
		if s.Subscribed() {
			out = append(out, s)
		}
	}
	return out
}

// Len returns the number of connected sessions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.order)
}

// Broadcast sends a reliable frame to every subscribed session.
func (h *Hub) Broadcast(event string, v any) error {
	b, err := Encode(event, v)
	if err != nil {
		return err
	}
	for _, s := range h.subscribers() {
		if err := s.enqueue(b); err != nil {
			h.log.Debug("broadcast skipped session", zap.String("session", s.ID), zap.Error(err))
		}
	}
	return nil
}

// BroadcastChanged sends a volatile frame to every subscribed session, but
// only if its encoding differs from the last one sent under the same event
// name. Reports whether it was sent.
func (h *Hub) BroadcastChanged(event string, v any) (bool, error) {
	b, err := Encode(event, v)
	if err != nil {
		return false, err
	}
	sum := xxhash.Sum64(b)
	if prev, ok := h.hashes[event]; ok && prev == sum {
		return false, nil
	}
	h.hashes[event] = sum
	for _, s := range h.subscribers() {
		s.offer(b)
	}
	return true, nil
}

// ResetChanged forgets the last BroadcastChanged payloads so the next call
// for every event is sent.
func (h *Hub) ResetChanged() {
	clear(h.hashes)
}

// Close closes every session and waits for their handlers to return. New
// connections are refused.
func (h *Hub) Close() {
	h.cancel()
	for _, s := range h.Sessions() {
		s.Close()
	}
	h.wg.Wait()
}
