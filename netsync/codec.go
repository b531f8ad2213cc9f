package netsync

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

// Envelope is one wire frame: an event name and its encoded payload.
type Envelope struct {
	Event string             `msgpack:"e"`
	Data  msgpack.RawMessage `msgpack:"d"`
}

// Encode packs v under the event name.
func Encode(event string, v any) ([]byte, error) {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("netsync: encode %s: %w", event, err)
	}
	b, err := msgpack.Marshal(&Envelope{Event: event, Data: data})
	if err != nil {
		return nil, fmt.Errorf("netsync: encode %s: %w", event, err)
	}
	return b, nil
}

// Decode unpacks a frame. The payload stays encoded until Bind.
func Decode(b []byte) (Envelope, error) {
	var env Envelope
	if err := msgpack.Unmarshal(b, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Event == "" {
		return Envelope{}, fmt.Errorf("%w: missing event name", ErrMalformed)
	}
	return env, nil
}

// Bind decodes the payload into v. A missing payload decodes as nil,
// which leaves v at its zero value.
func (e Envelope) Bind(v any) error {
	data := []byte(e.Data)
	if len(data) == 0 {
		data = []byte{msgpcode.Nil}
	}
	if err := msgpack.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, e.Event, err)
	}
	return nil
}
