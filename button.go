package sprig

// Button is a rectangular control centred on its position. It raises
// Pressed when a press lands inside it and Clicked on a single click inside
// it. Hidden buttons ignore input.
type Button struct {
	*Node

	Label        string
	Size         Vec2
	Color        Color
	PressedColor Color
	TextColor    Color

	Pressed Event[InputEvent]
	Clicked Event[InputEvent]

	down bool
}

// NewButton creates a button with a default grey look.
func NewButton(name, label string, size Vec2) *Button {
	b := &Button{
		Node:         NewControl(name),
		Label:        label,
		Color:        Color{0.25, 0.25, 0.3, 0.9},
		PressedColor: Color{0.4, 0.4, 0.5, 0.9},
		TextColor:    ColorWhite,
	}
	b.Owner = b
	b.SetSize(size)
	b.InputPress.On(b.onPress, 0)
	b.InputUp.On(func(InputEvent) { b.down = false }, 0)
	b.InputClick.On(b.onClick, 0)
	b.OnDraw = b.paint
	return b
}

// SetSize resizes the button and its hit region.
func (b *Button) SetSize(size Vec2) {
	b.Size = size
	b.HitShape = CenteredRect(size)
	b.DrawDistance = size.Len() / 2
}

// IsDown reports whether a press that started inside the button is held.
func (b *Button) IsDown() bool { return b.down }

func (b *Button) onPress(ev InputEvent) {
	if !b.IsVisible() || !b.HitTest(ev.Local) {
		return
	}
	b.down = true
	b.Pressed.Emit(ev)
}

func (b *Button) onClick(ev InputEvent) {
	if ev.Count != 1 || !b.IsVisible() || !b.HitTest(ev.Local) {
		return
	}
	b.Clicked.Emit(ev)
}

func (b *Button) paint(vp Viewport) {
	c := vp.Canvas()
	fill := b.Color
	if b.down {
		fill = b.PressedColor
	}
	c.FillRect(-b.Size.X/2, -b.Size.Y/2, b.Size.X, b.Size.Y, fill)
	c.StrokeRect(-b.Size.X/2, -b.Size.Y/2, b.Size.X, b.Size.Y, 1, b.TextColor)
	if b.Label != "" {
		c.Text(b.Label, -b.Size.X/2+6, -6, b.TextColor)
	}
}
