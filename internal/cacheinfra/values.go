package cacheinfra

import "github.com/vmihailenco/msgpack/v5"

// Tombstone is stored in place of a value to record that the source was
// asked for a key and had nothing for it.
type Tombstone struct{}

// IsTombstone reports whether v is a negative entry.
func IsTombstone(v any) bool {
	switch v.(type) {
	case Tombstone, *Tombstone:
		return true
	}
	return false
}

// Encoded is a value read back from a tier that stores bytes. The typed
// layer decodes it into the value type it expects.
type Encoded []byte

// DecodeInto unmarshals the payload into dst, which must be a pointer.
func (e Encoded) DecodeInto(dst any) error {
	return msgpack.Unmarshal(e, dst)
}

// envelope is the on-wire record for byte oriented tiers.
type envelope struct {
	Negative bool               `msgpack:"n,omitempty"`
	Value    msgpack.RawMessage `msgpack:"v,omitempty"`
}

func encodeValue(v any) ([]byte, error) {
	if IsTombstone(v) {
		return msgpack.Marshal(envelope{Negative: true})
	}

	if enc, ok := v.(Encoded); ok {
		return msgpack.Marshal(envelope{Value: msgpack.RawMessage(enc)})
	}

	payload, err := msgpack.Marshal(v)
	if err != nil {
		return nil, err
	}
	return msgpack.Marshal(envelope{Value: payload})
}

func decodeValue(data []byte) (any, error) {
	var env envelope
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	if env.Negative {
		return Tombstone{}, nil
	}
	return Encoded(env.Value), nil
}
