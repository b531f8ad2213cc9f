package ebitenview

import (
	"github.com/hajimehoshi/ebiten/v2"

	"github.com/phanxgames/sprig"
)

// maxPointers is the mouse plus nine touch slots.
const maxPointers = 10

// inputSource is the slice of ebiten's input API the tracker reads.
type inputSource interface {
	CursorPosition() (int, int)
	MousePressed() bool
	AppendTouchIDs(ids []ebiten.TouchID) []ebiten.TouchID
	TouchPosition(id ebiten.TouchID) (int, int)
}

type ebitenInput struct{}

func (ebitenInput) CursorPosition() (int, int) { return ebiten.CursorPosition() }

func (ebitenInput) MousePressed() bool {
	return ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) ||
		ebiten.IsMouseButtonPressed(ebiten.MouseButtonRight)
}

func (ebitenInput) AppendTouchIDs(ids []ebiten.TouchID) []ebiten.TouchID {
	return ebiten.AppendTouchIDs(ids)
}

func (ebitenInput) TouchPosition(id ebiten.TouchID) (int, int) { return ebiten.TouchPosition(id) }

// Tracker feeds ebiten's mouse and touch state into a sprig.Touches once per
// frame. The mouse is pointer 0; touches occupy slots 1-9 for as long as
// ebiten reports them.
type Tracker struct {
	Touches *sprig.Touches

	src       inputSource
	prevIDs   []ebiten.TouchID
	touchMap  [maxPointers]ebiten.TouchID
	touchUsed [maxPointers]bool
	last      [maxPointers]sprig.Vec2
}

// NewTracker creates a tracker reading ebiten input into t.
func NewTracker(t *sprig.Touches) *Tracker {
	return &Tracker{Touches: t, src: ebitenInput{}}
}

// Update polls input for one frame. A queued injected event takes the place
// of real input for the frame it is applied.
func (tr *Tracker) Update() {
	if tr.Touches.Poll() {
		return
	}
	tr.processMouse()
	tr.processTouches()
}

func (tr *Tracker) processMouse() {
	x, y := tr.src.CursorPosition()
	tr.feed(0, sprig.Vec2{X: float64(x), Y: float64(y)}, tr.src.MousePressed())
}

func (tr *Tracker) processTouches() {
	ids := tr.src.AppendTouchIDs(tr.prevIDs[:0])
	tr.prevIDs = ids

	var active [maxPointers]bool
	for _, tid := range ids {
		slot := tr.touchSlot(tid)
		if slot < 0 {
			continue
		}
		active[slot] = true
		x, y := tr.src.TouchPosition(tid)
		tr.feed(slot, sprig.Vec2{X: float64(x), Y: float64(y)}, true)
	}

	for i := 1; i < maxPointers; i++ {
		if tr.touchUsed[i] && !active[i] {
			tr.feed(i, tr.last[i], false)
			tr.touchUsed[i] = false
			tr.touchMap[i] = 0
		}
	}
}

// feed applies one pointer sample, emitting only transitions and moves.
func (tr *Tracker) feed(id int, p sprig.Vec2, pressed bool) {
	tr.last[id] = p
	down := tr.Touches.IsDown(id)
	switch {
	case pressed && !down:
		tr.Touches.PressAt(id, p)
	case !pressed && down:
		tr.Touches.ReleaseAt(id, p)
	default:
		tr.Touches.MoveTo(id, p)
	}
}

// touchSlot maps a touch id to a slot in 1-9, allocating one on first sight.
// Returns -1 when every slot is taken.
func (tr *Tracker) touchSlot(tid ebiten.TouchID) int {
	for i := 1; i < maxPointers; i++ {
		if tr.touchUsed[i] && tr.touchMap[i] == tid {
			return i
		}
	}
	for i := 1; i < maxPointers; i++ {
		if !tr.touchUsed[i] {
			tr.touchUsed[i] = true
			tr.touchMap[i] = tid
			return i
		}
	}
	return -1
}
