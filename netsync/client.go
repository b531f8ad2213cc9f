package netsync

import (
	"context"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/phanxgames/sprig"
)

// Client is the dialing side of a Hub connection.
type Client struct {
	Router *Router
	// Welcomed fires on the poster goroutine once the hub has assigned the
	// session id.
	Welcomed sprig.Event[string]

	session *Session
	poster  Poster
	log     *zap.Logger

	mu sync.Mutex
	id string
}

// Dial connects to a hub at url. Incoming envelopes are dispatched through
// p once Run is called.
func Dial(ctx context.Context, url string, p Poster, cfg Config, log *zap.Logger) (*Client, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("client")
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("netsync: dial %s: %w", url, err)
	}
	c := &Client{
		Router:  NewRouter(log),
		session: newSession("server", conn, cfg.WithDefaults(), log),
		poster:  p,
		log:     log,
	}
	c.Router.Handle(EventWelcome, func(_ *Session, env Envelope) error {
		var w Welcome
		if err := env.Bind(&w); err != nil {
			return err
		}
		c.mu.Lock()
		c.id = w.ID
		c.mu.Unlock()
		c.Welcomed.Emit(w.ID)
		return nil
	})
	return c, nil
}

// ID returns the session id assigned by the hub, or "" before the welcome.
func (c *Client) ID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}

// Session returns the connection to the hub.
func (c *Client) Session() *Session { return c.session }

// Emit sends a reliable frame to the hub.
func (c *Client) Emit(event string, v any) error { return c.session.Emit(event, v) }

// EmitVolatile sends a droppable frame to the hub.
func (c *Client) EmitVolatile(event string, v any) error { return c.session.EmitVolatile(event, v) }

// Run serves the connection until it closes or ctx ends.
func (c *Client) Run(ctx context.Context) error {
	return c.session.serve(ctx, func(env Envelope) {
		c.poster.Post(func() { _ = c.Router.Dispatch(c.session, env) })
	})
}

// Close closes the connection; Run returns shortly after.
func (c *Client) Close() { c.session.Close() }
