package netsync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type point struct {
	X, Y float64
	Tag  string `msgpack:"tag"`
}

func TestEnvelopeRoundTrip(t *testing.T) {
	b, err := Encode("move", point{X: 1.5, Y: -2, Tag: "p1"})
	require.NoError(t, err)

	env, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, "move", env.Event)

	var p point
	require.NoError(t, env.Bind(&p))
	assert.Equal(t, point{X: 1.5, Y: -2, Tag: "p1"}, p)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode([]byte{0xc1, 0x00})
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestDecodeRejectsMissingEvent(t *testing.T) {
	b, err := Encode("", 1)
	require.NoError(t, err)
	_, err = Decode(b)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestBindTypeMismatch(t *testing.T) {
	b, err := Encode("move", "not a point")
	require.NoError(t, err)
	env, err := Decode(b)
	require.NoError(t, err)
	var p point
	assert.ErrorIs(t, env.Bind(&p), ErrMalformed)
}

func TestNilPayloadBindsToZero(t *testing.T) {
	b, err := Encode("resources:list", nil)
	require.NoError(t, err)
	env, err := Decode(b)
	require.NoError(t, err)
	var v struct{}
	assert.NoError(t, env.Bind(&v))
}

func TestMissingPayloadResetsTarget(t *testing.T) {
	env := Envelope{Event: "resources:list"}
	p := point{X: 3, Y: 4, Tag: "stale"}
	require.NoError(t, env.Bind(&p))
	assert.Equal(t, point{}, p)

	b, err := Encode("resources:list", nil)
	require.NoError(t, err)
	env, err = Decode(b)
	require.NoError(t, err)
	p = point{X: 1}
	require.NoError(t, env.Bind(&p))
	assert.Equal(t, point{}, p)
}
