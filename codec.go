package slot

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"
)

// Wire format: every encoded value is `*` + one-character type tag +
// payload. The sentinel is asserted on decode; an unknown tag is an
// explicit error, never a silent passthrough.
const wireSentinel = '*'

const (
	wireString = 's'
	wireInt    = 'i'
	wireDouble = 'd'
	wireBool   = 'b'
	wireTime   = 't'
	wireJSON   = 'j'
)

type codec struct {
	wireTag byte
	encode  func(any) (string, error)
	decode  func(string) (any, error)
}

// CodecRegistry maps type tags to encode/decode pairs for broadcast
// (location) serialization. It is an explicitly-constructed object owned
// by a Tree — there is no package-level registry. Built-in codecs for
// string, int, float64, bool and time.Time are pre-registered; every
// other type needs RegisterCodec or encoding fails with CodecMissing.
type CodecRegistry struct {
	mu    sync.RWMutex
	byTag map[TypeTag]codec
}

// NewCodecRegistry creates a registry with the built-in codecs.
func NewCodecRegistry() *CodecRegistry {
	r := &CodecRegistry{byTag: make(map[TypeTag]codec)}

	r.byTag[TagFor[string]()] = codec{
		wireTag: wireString,
		encode:  func(v any) (string, error) { return v.(string), nil },
		decode:  func(s string) (any, error) { return s, nil },
	}
	r.byTag[TagFor[int]()] = codec{
		wireTag: wireInt,
		encode:  func(v any) (string, error) { return strconv.Itoa(v.(int)), nil },
		decode: func(s string) (any, error) {
			return strconv.Atoi(s)
		},
	}
	r.byTag[TagFor[float64]()] = codec{
		wireTag: wireDouble,
		encode: func(v any) (string, error) {
			return strconv.FormatFloat(v.(float64), 'g', -1, 64), nil
		},
		decode: func(s string) (any, error) {
			return strconv.ParseFloat(s, 64)
		},
	}
	r.byTag[TagFor[bool]()] = codec{
		wireTag: wireBool,
		encode: func(v any) (string, error) {
			if v.(bool) {
				return "y", nil
			}
			return "n", nil
		},
		decode: func(s string) (any, error) {
			switch s {
			case "y":
				return true, nil
			case "n":
				return false, nil
			}
			return nil, fmt.Errorf("bool payload must be y or n, got %q", s)
		},
	}
	r.byTag[TagFor[time.Time]()] = codec{
		wireTag: wireTime,
		encode: func(v any) (string, error) {
			return v.(time.Time).Format(time.RFC3339Nano), nil
		},
		decode: func(s string) (any, error) {
			return time.Parse(time.RFC3339Nano, s)
		},
	}

	return r
}

// RegisterCodec registers an encode/decode pair for T. Custom values
// travel under the generic JSON wire tag with the pair's output as
// payload. (Package-level because Go methods cannot take type
// parameters.)
func RegisterCodec[T any](r *CodecRegistry, encode func(T) (string, error), decode func(string) (T, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byTag[TagFor[T]()] = codec{
		wireTag: wireJSON,
		encode: func(v any) (string, error) {
			typed, err := SafeTypeAssertion[T](v)
			if err != nil {
				return "", err
			}
			return encode(typed)
		},
		decode: func(s string) (any, error) {
			return decode(s)
		},
	}
}

// RegisterJSONCodec registers a codec for T backed by encoding/json.
func RegisterJSONCodec[T any](r *CodecRegistry) {
	RegisterCodec(r,
		func(v T) (string, error) {
			b, err := json.Marshal(v)
			if err != nil {
				return "", err
			}
			return string(b), nil
		},
		func(s string) (T, error) {
			var v T
			err := json.Unmarshal([]byte(s), &v)
			return v, err
		},
	)
}

func (r *CodecRegistry) lookup(tag TypeTag) (codec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byTag[tag]
	return c, ok
}

// Encode serializes a value of the tagged type into the wire format.
func (r *CodecRegistry) Encode(tag TypeTag, v any) (string, error) {
	c, ok := r.lookup(tag)
	if !ok {
		return "", &CodecMissingError{Tag: tag}
	}

	payload, err := c.encode(v)
	if err != nil {
		return "", err
	}
	return string([]byte{wireSentinel, c.wireTag}) + payload, nil
}

// Decode parses a wire value back into the tagged type. A missing `*`
// sentinel or an unknown type character is a *DecodeError.
func (r *CodecRegistry) Decode(tag TypeTag, wire string) (any, error) {
	c, ok := r.lookup(tag)
	if !ok {
		return nil, &CodecMissingError{Tag: tag}
	}

	if len(wire) < 2 || wire[0] != wireSentinel {
		return nil, &DecodeError{Wire: wire, Cause: fmt.Errorf("missing %q sentinel", string(wireSentinel))}
	}

	switch wire[1] {
	case wireString, wireInt, wireDouble, wireBool, wireTime, wireJSON:
	default:
		return nil, &DecodeError{Wire: wire, Cause: fmt.Errorf("unknown type tag %q", string(wire[1]))}
	}

	if wire[1] != c.wireTag {
		return nil, &DecodeError{Wire: wire, Cause: fmt.Errorf("wire tag %q does not match codec for %s", string(wire[1]), tag)}
	}

	v, err := c.decode(wire[2:])
	if err != nil {
		return nil, &DecodeError{Wire: wire, Cause: err}
	}
	return v, nil
}
