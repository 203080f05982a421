// Package codec provides the argument codecs used to carry method
// arguments inside job payloads.
package codec

import (
	"errors"
	"fmt"
)

// ErrUnknownCodec is returned by Get for names with no registered codec.
var ErrUnknownCodec = errors.New("codec: unknown codec")

// Codec defines the serialization contract for method arguments.
type Codec interface {
	// Marshal serializes v to bytes.
	Marshal(v any) ([]byte, error)

	// Unmarshal deserializes data into v, which must be a pointer.
	Unmarshal(data []byte, v any) error

	// Name returns the codec identifier (e.g., "json", "msgpack").
	Name() string
}

// Codec name constants stored in job envelopes.
const (
	NameJSON    = "json"
	NameMsgpack = "msgpack"
)

// Shared codec instances.
var (
	JSON    Codec = jsonCodec{}
	Msgpack Codec = msgpackCodec{}
)

// Get returns a codec by name. The empty name selects JSON.
func Get(name string) (Codec, error) {
	switch name {
	case NameJSON, "":
		return JSON, nil
	case NameMsgpack:
		return Msgpack, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
}
