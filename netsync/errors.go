package netsync

import "errors"

var (
	// ErrMalformed reports a frame or payload that does not decode.
	ErrMalformed = errors.New("netsync: malformed message")
	// ErrClosed is returned when sending on a closed session.
	ErrClosed = errors.New("netsync: session closed")
	// ErrSlowConsumer is returned by a reliable send that timed out; the
	// session is closed.
	ErrSlowConsumer = errors.New("netsync: slow consumer")
	// ErrUnhandled reports an event no handler is registered for.
	ErrUnhandled = errors.New("netsync: unhandled event")
)
