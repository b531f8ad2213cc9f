package ebitenview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phanxgames/sprig"
)

func TestCanvasWithoutTargetRecords(t *testing.T) {
	c, err := NewCanvas()
	require.NoError(t, err)
	c.Record = true

	c.Translate(10, 0)
	c.FillRect(0, 0, 4, 4, sprig.ColorWhite)
	c.Text("hi", 1, 2, sprig.ColorBlack)
	require.Len(t, c.Ops, 2)
	assert.Equal(t, "fillRect", c.Ops[0].Op)
	assert.Equal(t, 10.0, c.Ops[0].Transform[4])
	assert.Equal(t, "hi", c.Ops[1].Text)

	c.Clear()
	assert.Empty(t, c.Ops)
	assert.Equal(t, [6]float64{1, 0, 0, 1, 0, 0}, c.Transform())
}

func TestCanvasMeasureText(t *testing.T) {
	c, err := NewCanvas()
	require.NoError(t, err)
	short := c.MeasureText("a")
	long := c.MeasureText("a much longer label")
	assert.Greater(t, short.X, 0.0)
	assert.Greater(t, long.X, short.X)
}

func TestCanvasGeoMMatchesTransform(t *testing.T) {
	c, err := NewCanvas()
	require.NoError(t, err)
	c.Translate(5, 7)
	c.Rotate(0.5)
	c.Scale(2, 3)

	g := c.geoM()
	x, y := g.Apply(1, 1)
	want := sprig.TransformPoint(c.Transform(), sprig.Vec2{X: 1, Y: 1})
	assert.InDelta(t, want.X, x, 1e-9)
	assert.InDelta(t, want.Y, y, 1e-9)
}

func TestLoadFaceRejectsGarbage(t *testing.T) {
	_, err := LoadFace([]byte("not a font"), 12)
	assert.Error(t, err)
}
