package netsync

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Config tunes session queues and socket timeouts. Zero fields take the
// defaults below.
type Config struct {
	// SendBuffer is the number of frames queued per session.
	SendBuffer int `yaml:"send_buffer"`
	// SendTimeout is how long a reliable send waits on a full queue before
	// the session is closed as a slow consumer.
	SendTimeout time.Duration `yaml:"send_timeout"`
	// WriteWait bounds a single socket write.
	WriteWait time.Duration `yaml:"write_wait"`
	// PingInterval is how often the writer pings an idle peer. The read
	// deadline is extended by twice this on every frame or pong.
	PingInterval time.Duration `yaml:"ping_interval"`
	// ReadLimit caps the size of an incoming frame.
	ReadLimit int64 `yaml:"read_limit"`
}

const (
	defaultSendBuffer   = 256
	defaultSendTimeout  = 50 * time.Millisecond
	defaultWriteWait    = 5 * time.Second
	defaultPingInterval = 20 * time.Second
	defaultReadLimit    = 1 << 20
)

// WithDefaults returns c with zero fields replaced by defaults.
func (c Config) WithDefaults() Config {
	if c.SendBuffer <= 0 {
		c.SendBuffer = defaultSendBuffer
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = defaultSendTimeout
	}
	if c.WriteWait <= 0 {
		c.WriteWait = defaultWriteWait
	}
	if c.PingInterval <= 0 {
		c.PingInterval = defaultPingInterval
	}
	if c.ReadLimit <= 0 {
		c.ReadLimit = defaultReadLimit
	}
	return c
}

// Session is one websocket peer. Sends are queued and written by a dedicated
// goroutine, so Emit is safe from any goroutine.
type Session struct {
	ID string

	conn *websocket.Conn
	cfg  Config
	log  *zap.Logger

	send       chan []byte
	done       chan struct{}
	closeOnce  sync.Once
	dropped    atomic.Uint64
	subscribed atomic.Bool
}

func newSession(id string, conn *websocket.Conn, cfg Config, log *zap.Logger) *Session {
	return &Session{
		ID:   id,
		conn: conn,
		cfg:  cfg,
		log:  log.With(zap.String("session", id)),
		send: make(chan []byte, cfg.SendBuffer),
		done: make(chan struct{}),
	}
}

// Subscribe makes the session receive hub broadcasts. Until then only
// frames sent to it directly are delivered, so a joining peer can be sent
// its initial state before any update.
func (s *Session) Subscribe() { s.subscribed.Store(true) }

// Subscribed reports whether Subscribe was called.
func (s *Session) Subscribed() bool { return s.subscribed.Load() }

// Done is closed when the session closes.
func (s *Session) Done() <-chan struct{} { return s.done }

// Dropped returns the number of volatile frames dropped on a full queue.
func (s *Session) Dropped() uint64 { return s.dropped.Load() }

// Emit queues a reliable frame.
func (s *Session) Emit(event string, v any) error {
	b, err := Encode(event, v)
	if err != nil {
		return err
	}
	return s.enqueue(b)
}

// EmitVolatile queues a frame unless the queue is full, in which case the
// frame is dropped.
func (s *Session) EmitVolatile(event string, v any) error {
	b, err := Encode(event, v)
	if err != nil {
		return err
	}
	s.offer(b)
	return nil
}

func (s *Session) enqueue(b []byte) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	select {
	case s.send <- b:
		return nil
	default:
	}
	t := time.NewTimer(s.cfg.SendTimeout)
	defer t.Stop()
	select {
	case s.send <- b:
		return nil
	case <-s.done:
		return ErrClosed
	case <-t.C:
		s.log.Warn("closing slow consumer", zap.Int("queued", len(s.send)))
		s.Close()
		return ErrSlowConsumer
	}
}

func (s *Session) offer(b []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.send <- b:
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

// Close closes the connection. Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		if s.conn != nil {
			_ = s.conn.Close()
		}
	})
}

// serve runs the reader and writer until either fails or ctx ends, then
// closes the session. Decoded frames are passed to handle in arrival order.
func (s *Session) serve(ctx context.Context, handle func(Envelope)) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.readPump(handle) })
	g.Go(s.writePump)
	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-s.done:
		}
		s.Close()
		return nil
	})
	err := g.Wait()
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return nil
	}
	select {
	case <-s.done:
		// Errors after a local Close are the socket shutting down.
		return nil
	default:
		return err
	}
}

func (s *Session) readPump(handle func(Envelope)) error {
	defer s.Close()
	s.conn.SetReadLimit(s.cfg.ReadLimit)
	deadline := 2 * s.cfg.PingInterval
	_ = s.conn.SetReadDeadline(time.Now().Add(deadline))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(deadline))
	})
	for {
		typ, b, err := s.conn.ReadMessage()
		if err != nil {
			return err
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(deadline))
		if typ != websocket.BinaryMessage {
			continue
		}
		env, err := Decode(b)
		if err != nil {
			s.log.Error("dropping frame", zap.Error(err))
			continue
		}
		handle(env)
	}
}

func (s *Session) writePump() error {
	ping := time.NewTicker(s.cfg.PingInterval)
	defer ping.Stop()
	for {
		select {
		case <-s.done:
			return nil
		case b := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait))
			if err := s.conn.WriteMessage(websocket.BinaryMessage, b); err != nil {
				return err
			}
		case <-ping.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.cfg.WriteWait)); err != nil {
				return err
			}
		}
	}
}
