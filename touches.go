package sprig

import (
	"slices"
	"time"
)

const (
	defaultDragDeadZone     = 4.0 // pixels
	defaultMultiClickWindow = 300 * time.Millisecond
)

// Touch is one tracked pointer. Pointer 0 is the mouse; touch screens use
// further ids. Positions are in screen pixels.
type Touch struct {
	ID    int
	Pos   Vec2
	Start Vec2
	Delta Vec2
	Down  bool
	// ClickCount is 1 for a single click, 2 for a double click and so on.
	// Valid during Click and DblClick.
	ClickCount int
}

type clickRecord struct {
	at    time.Time
	pos   Vec2
	count int
}

// syntheticTouch is a queued injected event.
type syntheticTouch struct {
	id      int
	pos     Vec2
	pressed bool
}

// Touches tracks pointers and turns press/move/release into the
// press/move/up/click/dblclick lifecycle, counting multi-clicks. Platform
// trackers feed it raw state; tests and automation can inject events.
type Touches struct {
	Press    Event[*Touch]
	Move     Event[*Touch]
	Up       Event[*Touch]
	Click    Event[*Touch]
	DblClick Event[*Touch]

	// DeadZone is how far a pointer may travel between press and release
	// and still click.
	DeadZone float64
	// MultiClickWindow is the longest gap between clicks that still counts
	// them together.
	MultiClickWindow time.Duration

	now       func() time.Time
	touches   map[int]*Touch
	lastClick map[int]clickRecord
	queue     []syntheticTouch
}

// NewTouches creates an empty tracker.
func NewTouches() *Touches {
	return &Touches{
		DeadZone:         defaultDragDeadZone,
		MultiClickWindow: defaultMultiClickWindow,
		now:              time.Now,
		touches:          make(map[int]*Touch),
		lastClick:        make(map[int]clickRecord),
	}
}

// Get returns the tracked touch with the given id.
func (t *Touches) Get(id int) (*Touch, bool) {
	tc, ok := t.touches[id]
	return tc, ok
}

// IsDown reports whether pointer id is pressed.
func (t *Touches) IsDown(id int) bool {
	tc, ok := t.touches[id]
	return ok && tc.Down
}

// Active returns the pressed touches ordered by id.
func (t *Touches) Active() []*Touch {
	var out []*Touch
	for _, tc := range t.touches {
		if tc.Down {
			out = append(out, tc)
		}
	}
	slices.SortFunc(out, func(a, b *Touch) int { return a.ID - b.ID })
	return out
}

func (t *Touches) touch(id int) *Touch {
	tc, ok := t.touches[id]
	if !ok {
		tc = &Touch{ID: id}
		t.touches[id] = tc
	}
	return tc
}

// PressAt records pointer id going down at p.
func (t *Touches) PressAt(id int, p Vec2) {
	tc := t.touch(id)
	if tc.Down {
		t.MoveTo(id, p)
		return
	}
	tc.Delta = p.Sub(tc.Pos)
	tc.Pos, tc.Start, tc.Down = p, p, true
	tc.ClickCount = 0
	t.Press.Emit(tc)
}

// MoveTo records pointer id at p. Emits Move only when the position changed.
func (t *Touches) MoveTo(id int, p Vec2) {
	tc := t.touch(id)
	if tc.Pos == p {
		return
	}
	tc.Delta = p.Sub(tc.Pos)
	tc.Pos = p
	t.Move.Emit(tc)
}

// ReleaseAt records pointer id going up at p, then emits Click (and DblClick
// on the second click) if the pointer stayed within DeadZone of its press.
func (t *Touches) ReleaseAt(id int, p Vec2) {
	tc, ok := t.touches[id]
	if !ok || !tc.Down {
		return
	}
	if tc.Pos != p {
		t.MoveTo(id, p)
	}
	tc.Down = false
	t.Up.Emit(tc)

	if p.Sub(tc.Start).Len() > t.DeadZone {
		delete(t.lastClick, id)
		return
	}
	now := t.now()
	count := 1
	if last, ok := t.lastClick[id]; ok &&
		now.Sub(last.at) <= t.MultiClickWindow &&
		p.Sub(last.pos).Len() <= t.DeadZone {
		count = last.count + 1
	}
	t.lastClick[id] = clickRecord{at: now, pos: p, count: count}
	tc.ClickCount = count
	t.Click.Emit(tc)
	if count == 2 {
		t.DblClick.Emit(tc)
	}
}

// Forget drops a pointer that disappeared without a release (a cancelled
// touch). No events fire.
func (t *Touches) Forget(id int) {
	delete(t.touches, id)
	delete(t.lastClick, id)
}

// --- Injection ---

// InjectPress queues a press of pointer 0 at the given screen coordinates.
// Queued events are consumed one per Poll.
func (t *Touches) InjectPress(x, y float64) {
	t.queue = append(t.queue, syntheticTouch{pos: Vec2{x, y}, pressed: true})
}

// InjectMove queues a move with the pointer held down. Use this between
// InjectPress and InjectRelease to simulate a drag.
func (t *Touches) InjectMove(x, y float64) {
	t.queue = append(t.queue, syntheticTouch{pos: Vec2{x, y}, pressed: true})
}

// InjectRelease queues a release at the given screen coordinates.
func (t *Touches) InjectRelease(x, y float64) {
	t.queue = append(t.queue, syntheticTouch{pos: Vec2{x, y}})
}

// InjectClick queues a press followed by a release at the same screen
// coordinates. Consumes two polls.
func (t *Touches) InjectClick(x, y float64) {
	t.InjectPress(x, y)
	t.InjectRelease(x, y)
}

// InjectDrag queues a full drag sequence: press at from, linearly
// interpolated moves over frames-2 polls, and release at to. Minimum frames
// is 2 (press + release).
func (t *Touches) InjectDrag(from, to Vec2, frames int) {
	if frames < 2 {
		frames = 2
	}
	t.InjectPress(from.X, from.Y)
	steps := frames - 2
	for i := 1; i <= steps; i++ {
		f := float64(i) / float64(steps+1)
		p := from.Add(to.Sub(from).Scale(f))
		t.InjectMove(p.X, p.Y)
	}
	t.InjectRelease(to.X, to.Y)
}

// Pending returns the number of queued injected events.
func (t *Touches) Pending() int { return len(t.queue) }

// Poll applies one queued injected event. Returns true if an event was
// consumed, in which case real input should be skipped for the frame.
func (t *Touches) Poll() bool {
	if len(t.queue) == 0 {
		return false
	}
	evt := t.queue[0]
	copy(t.queue, t.queue[1:])
	t.queue = t.queue[:len(t.queue)-1]

	switch {
	case evt.pressed && !t.IsDown(evt.id):
		t.PressAt(evt.id, evt.pos)
	case evt.pressed:
		t.MoveTo(evt.id, evt.pos)
	default:
		t.ReleaseAt(evt.id, evt.pos)
	}
	return true
}
