// Package netsync carries named events between a sprig server and its
// clients over websockets.
//
// Every frame is a msgpack Envelope: an event name and a msgpack-encoded
// payload. Sends are either reliable (Emit: queued, and a session that cannot
// keep up is closed rather than silently skipped) or volatile (EmitVolatile:
// dropped when the session's queue is full, for per-tick state that the next
// tick supersedes).
//
// Network goroutines never touch the scene. Incoming envelopes and connection
// events are handed to a Poster, normally the app's sprig.MainLoop, and the
// Router dispatches them on the loop goroutine.
package netsync
