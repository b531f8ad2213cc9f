package netsync

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/phanxgames/sprig"
)

// Handler processes one incoming envelope.
type Handler func(s *Session, env Envelope) error

// HandlerError describes a failed dispatch.
type HandlerError struct {
	Session *Session
	Event   string
	Err     error
}

func (e HandlerError) Error() string { return fmt.Sprintf("%s: %v", e.Event, e.Err) }

func (e HandlerError) Unwrap() error { return e.Err }

// Router maps event names to handlers. Dispatch is meant to run on the loop
// goroutine; it is not safe for concurrent use.
type Router struct {
	// Failed fires for every handler error, after it is logged.
	Failed sprig.Event[HandlerError]

	handlers sprig.Dispatcher
	log      *zap.Logger
}

// NewRouter creates an empty router.
func NewRouter(log *zap.Logger) *Router {
	if log == nil {
		log = zap.NewNop()
	}
	return &Router{log: log}
}

// Handle registers h for event. Several handlers may share an event; they
// run in registration order.
func (r *Router) Handle(event string, h Handler) sprig.Token {
	return r.handlers.On(event, func(args ...any) {
		s, _ := args[0].(*Session)
		env, _ := args[1].(Envelope)
		if err := h(s, env); err != nil {
			r.fail(s, env.Event, err)
		}
	}, 0)
}

// On registers a handler whose payload is decoded into T first. A payload
// that does not decode is reported like a handler error.
func On[T any](r *Router, event string, fn func(s *Session, v T) error) sprig.Token {
	return r.Handle(event, func(s *Session, env Envelope) error {
		var v T
		if err := env.Bind(&v); err != nil {
			return err
		}
		return fn(s, v)
	})
}

// Dispatch runs the handlers registered for env.Event.
func (r *Router) Dispatch(s *Session, env Envelope) error {
	if r.handlers.Len(env.Event) == 0 {
		err := fmt.Errorf("%w: %s", ErrUnhandled, env.Event)
		r.fail(s, env.Event, err)
		return err
	}
	r.handlers.Emit(env.Event, s, env)
	return nil
}

func (r *Router) fail(s *Session, event string, err error) {
	he := HandlerError{Session: s, Event: event, Err: err}
	fields := []zap.Field{zap.String("event", event), zap.Error(err)}
	if s != nil {
		fields = append(fields, zap.String("session", s.ID))
	}
	r.log.Error("event handler failed", fields...)
	r.Failed.Emit(he)
}
