package sprig

import (
	"context"
	"sort"
)

// Token identifies a registered handler. Off detaches it; calling Off more
// than once is a no-op.
type Token struct {
	id  uint64
	off func(id uint64)
}

// Off detaches the handler the token was issued for.
func (t Token) Off() {
	if t.off != nil {
		t.off(t.id)
	}
}

type listener[T any] struct {
	id       uint64
	priority int
	once     bool
	fired    bool
	fn       func(T)
	async    func(context.Context, T) error
}

func (l *listener[T]) call(ctx context.Context, v T) error {
	if l.async != nil {
		return l.async(ctx, v)
	}
	l.fn(v)
	return nil
}

// Event is a typed, priority-ordered publish/subscribe channel. Handlers run
// in descending priority order, ties in registration order. The zero value is
// ready to use. An Event is not safe for concurrent use; drive it from the
// goroutine that owns the scene (normally the MainLoop).
//
// The handler list is copy-on-write: a dispatch iterates the list as it was
// when the dispatch began, so handlers added or removed by a handler only take
// part in later dispatches.
type Event[T any] struct {
	listeners []*listener[T]
	nextID    uint64
}

// On registers fn and returns a token that detaches it.
func (e *Event[T]) On(fn func(T), priority int) Token {
	return e.insert(&listener[T]{priority: priority, fn: fn})
}

// Once registers fn to run on the next dispatch only.
func (e *Event[T]) Once(fn func(T), priority int) Token {
	return e.insert(&listener[T]{priority: priority, fn: fn, once: true})
}

// OnAsync registers a handler whose completion AwaitEmit waits for and whose
// error AwaitEmit reports.
func (e *Event[T]) OnAsync(fn func(context.Context, T) error, priority int) Token {
	return e.insert(&listener[T]{priority: priority, async: fn})
}

// Off detaches the handler identified by t. Unknown tokens are ignored.
func (e *Event[T]) Off(t Token) {
	e.remove(t.id)
}

// Len returns the number of registered handlers.
func (e *Event[T]) Len() int {
	return len(e.listeners)
}

// Emit invokes every handler with v. Errors returned by async handlers are
// discarded; use AwaitEmit to observe them.
func (e *Event[T]) Emit(v T) {
	if len(e.listeners) == 0 {
		return
	}
	ctx := context.Background()
	for _, l := range e.listeners {
		if !e.take(l) {
			continue
		}
		_ = l.call(ctx, v)
	}
}

// AwaitEmit invokes every handler with v, waits for each to finish and
// returns the first error. Every handler runs even when an earlier one fails.
func (e *Event[T]) AwaitEmit(ctx context.Context, v T) error {
	var first error
	for _, l := range e.listeners {
		if !e.take(l) {
			continue
		}
		if err := l.call(ctx, v); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// emitIsolated is Emit with every handler run under recover. A panicking
// handler is reported and the dispatch continues with the next one.
func (e *Event[T]) emitIsolated(v T, report func(r any)) {
	ctx := context.Background()
	for _, l := range e.listeners {
		if !e.take(l) {
			continue
		}
		func() {
			defer func() {
				if r := recover(); r != nil {
					report(r)
				}
			}()
			_ = l.call(ctx, v)
		}()
	}
}

// take reports whether l should run in the current dispatch, consuming
// once-handlers so a re-entrant dispatch cannot fire them again.
func (e *Event[T]) take(l *listener[T]) bool {
	if !l.once {
		return true
	}
	if l.fired {
		return false
	}
	l.fired = true
	e.remove(l.id)
	return true
}

func (e *Event[T]) insert(l *listener[T]) Token {
	e.nextID++
	l.id = e.nextID
	idx := sort.Search(len(e.listeners), func(i int) bool {
		return e.listeners[i].priority < l.priority
	})
	ls := make([]*listener[T], 0, len(e.listeners)+1)
	ls = append(ls, e.listeners[:idx]...)
	ls = append(ls, l)
	ls = append(ls, e.listeners[idx:]...)
	e.listeners = ls
	return Token{id: l.id, off: e.remove}
}

func (e *Event[T]) remove(id uint64) {
	for i, l := range e.listeners {
		if l.id != id {
			continue
		}
		ls := make([]*listener[T], 0, len(e.listeners)-1)
		ls = append(ls, e.listeners[:i]...)
		ls = append(ls, e.listeners[i+1:]...)
		e.listeners = ls
		return
	}
}

// --- Named events ---

// Dispatcher is a name-keyed registry of untyped events, for boundaries where
// the event set is only known at runtime (transport routing, app messages).
// The zero value is ready to use.
type Dispatcher struct {
	events map[string]*Event[[]any]
}

func (d *Dispatcher) event(name string, create bool) *Event[[]any] {
	if ev, ok := d.events[name]; ok || !create {
		return ev
	}
	if d.events == nil {
		d.events = make(map[string]*Event[[]any])
	}
	ev := &Event[[]any]{}
	d.events[name] = ev
	return ev
}

// On registers fn for the named event.
func (d *Dispatcher) On(name string, fn func(args ...any), priority int) Token {
	return d.event(name, true).On(func(args []any) { fn(args...) }, priority)
}

// Once registers fn for the next dispatch of the named event.
func (d *Dispatcher) Once(name string, fn func(args ...any), priority int) Token {
	return d.event(name, true).Once(func(args []any) { fn(args...) }, priority)
}

// OnAsync registers an async handler for the named event.
func (d *Dispatcher) OnAsync(name string, fn func(ctx context.Context, args ...any) error, priority int) Token {
	return d.event(name, true).OnAsync(func(ctx context.Context, args []any) error {
		return fn(ctx, args...)
	}, priority)
}

// Off detaches a handler of the named event. Unknown names and tokens are ignored.
func (d *Dispatcher) Off(name string, t Token) {
	if ev := d.event(name, false); ev != nil {
		ev.Off(t)
	}
}

// Emit dispatches the named event.
func (d *Dispatcher) Emit(name string, args ...any) {
	if ev := d.event(name, false); ev != nil {
		ev.Emit(args)
	}
}

// AwaitEmit dispatches the named event and waits for every handler.
func (d *Dispatcher) AwaitEmit(ctx context.Context, name string, args ...any) error {
	if ev := d.event(name, false); ev != nil {
		return ev.AwaitEmit(ctx, args)
	}
	return nil
}

// Len returns the number of handlers registered for name.
func (d *Dispatcher) Len(name string) int {
	if ev := d.event(name, false); ev != nil {
		return ev.Len()
	}
	return 0
}
