package sprig

import (
	"cmp"

	"go.uber.org/zap"
)

// InputEvent is a pointer event as seen by one control.
type InputEvent struct {
	Touch *Touch
	// Pos is the pointer in viewport space (origin at the viewport centre).
	Pos Vec2
	// World is the pointer in world space.
	World Vec2
	// Local is the pointer relative to the receiving control's global
	// position, rotation and scale. Zero for system-wide events.
	Local Vec2
	// Count is the click count reported by the touch tracker.
	Count    int
	Viewport Viewport
}

// ControllersSystem forwards every pointer event from a Touches tracker to
// all of its control members, lowest z first, each with the pointer in its
// own local space. It does no hit filtering; each control tests its own
// region.
type ControllersSystem struct {
	System

	// System-wide events, fired before the members are visited.
	InputPress    Event[InputEvent]
	InputMove     Event[InputEvent]
	InputUp       Event[InputEvent]
	InputClick    Event[InputEvent]
	InputDblClick Event[InputEvent]

	touches *Touches
	vp      Viewport
	tokens  []Token
}

// NewControllersSystem subscribes to t and maps its events through vp.
func NewControllersSystem(t *Touches, vp Viewport, log *zap.Logger) *ControllersSystem {
	s := &ControllersSystem{System: newSystem("controllers", CapControl, log), touches: t, vp: vp}
	s.compare = func(a, b *Node) int {
		return cmp.Compare(a.GlobalZIndex(), b.GlobalZIndex())
	}
	s.Added.On(func(n *Node) {
		s.track(n, n.ZIndexChanged.On(s.markUnsorted, 0))
	}, 0)
	s.tokens = []Token{
		t.Press.On(func(tc *Touch) {
			s.dispatch(tc, &s.InputPress, func(n *Node) *Event[InputEvent] { return &n.InputPress })
		}, 0),
		t.Move.On(func(tc *Touch) {
			s.dispatch(tc, &s.InputMove, func(n *Node) *Event[InputEvent] { return &n.InputMove })
		}, 0),
		t.Up.On(func(tc *Touch) {
			s.dispatch(tc, &s.InputUp, func(n *Node) *Event[InputEvent] { return &n.InputUp })
		}, 0),
		t.Click.On(func(tc *Touch) {
			s.dispatch(tc, &s.InputClick, func(n *Node) *Event[InputEvent] { return &n.InputClick })
		}, 0),
		t.DblClick.On(func(tc *Touch) {
			s.dispatch(tc, &s.InputDblClick, func(n *Node) *Event[InputEvent] { return &n.InputDblClick })
		}, 0),
	}
	return s
}

// Touches returns the tracker the system listens to.
func (s *ControllersSystem) Touches() *Touches { return s.touches }

func (s *ControllersSystem) dispatch(tc *Touch, system *Event[InputEvent], member func(*Node) *Event[InputEvent]) {
	ev := InputEvent{
		Touch:    tc,
		Pos:      s.vp.ScreenToViewport(tc.Pos),
		World:    s.vp.ToLocal(tc.Pos),
		Count:    tc.ClickCount,
		Viewport: s.vp,
	}
	system.Emit(ev)
	for _, n := range s.sorted() {
		local := ev
		if n.ScreenSpace {
			local.Local = n.ToLocal(ev.Pos)
		} else {
			local.Local = n.ToLocal(ev.World)
		}
		s.isolate(n, "input", func() { member(n).Emit(local) })
	}
}

// Update runs every member's OnInput hook.
func (s *ControllersSystem) Update(dt float64) {
	for _, n := range s.sorted() {
		if n.OnInput == nil {
			continue
		}
		s.isolate(n, "input", func() { n.OnInput(s.touches, s.vp, dt) })
	}
}

// Close detaches the system from its Touches tracker.
func (s *ControllersSystem) Close() {
	for _, t := range s.tokens {
		t.Off()
	}
	s.tokens = nil
}
