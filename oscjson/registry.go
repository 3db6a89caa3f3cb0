package oscjson

import (
	"fmt"
	"math"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/chabad360/oscwire/osc"
)

// Codec converts the arguments of one type tag to and from JSON.
type Codec struct {
	// Marshal returns a value json-iterator encodes as the JSON form of v.
	Marshal func(v interface{}) (interface{}, error)
	// Unmarshal decodes the JSON form of one argument.
	Unmarshal func(raw jsoniter.RawMessage) (interface{}, error)
}

// Registry maps type tag characters to their JSON codecs. Which Go type has
// which tag is decided by the binary osc.Registry; tags without a JSON codec
// fall back to the base64 string of their binary encoding.
type Registry struct {
	mu   sync.RWMutex
	tags [256]*Codec
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// NewDefaultRegistry returns a registry holding the JSON forms of the
// built-in argument types.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	registerJSONCodecs(r)
	return r
}

var defaultRegistry = NewDefaultRegistry()

// DefaultRegistry returns the registry used by Marshal and Unmarshal.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Register binds tag to c, replacing any earlier codec.
func (r *Registry) Register(tag osc.TypeTag, c Codec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tags[tag] = &c
}

// Register binds tag in r to typed conversion functions.
func Register[T any](r *Registry, tag osc.TypeTag, marshal func(T) (interface{}, error), unmarshal func(jsoniter.RawMessage) (T, error)) {
	r.Register(tag, Codec{
		Marshal: func(v interface{}) (interface{}, error) {
			t, ok := v.(T)
			if !ok {
				return nil, fmt.Errorf("oscjson: tag %q cannot marshal %T", tag, v)
			}
			return marshal(t)
		},
		Unmarshal: func(raw jsoniter.RawMessage) (interface{}, error) {
			return unmarshal(raw)
		},
	})
}

// Clone returns a copy of r that can be modified independently.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return &Registry{tags: r.tags}
}

func (r *Registry) codec(tag osc.TypeTag) *Codec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tags[tag]
}

func registerJSONCodecs(r *Registry) {
	Register(r, osc.TypeInt32, same[int32], decodeAs[int32])
	Register(r, osc.TypeInt64, same[int64], decodeAs[int64])
	Register(r, osc.TypeFloat32, func(v float32) (interface{}, error) {
		return floatValue(float64(v)), nil
	}, func(raw jsoniter.RawMessage) (float32, error) {
		f, err := decodeFloat(raw)
		return float32(f), err
	})
	Register(r, osc.TypeFloat64, func(v float64) (interface{}, error) {
		return floatValue(v), nil
	}, decodeFloat)
	Register(r, osc.TypeString, same[string], decodeAs[string])
	Register(r, osc.TypeSymbol, func(v osc.Symbol) (interface{}, error) {
		return string(v), nil
	}, func(raw jsoniter.RawMessage) (osc.Symbol, error) {
		s, err := decodeAs[string](raw)
		return osc.Symbol(s), err
	})
	Register(r, osc.TypeBlob, same[[]byte], func(raw jsoniter.RawMessage) ([]byte, error) {
		v, err := decodeAs[[]byte](raw)
		if v == nil && err == nil {
			v = []byte{}
		}
		return v, err
	})
	Register(r, osc.TypeChar, func(v osc.Char) (interface{}, error) {
		return string(rune(v)), nil
	}, decodeChar)
	Register(r, osc.TypeColor, func(v osc.Color) (interface{}, error) {
		return []int{int(v.R()), int(v.G()), int(v.B()), int(v.A())}, nil
	}, func(raw jsoniter.RawMessage) (osc.Color, error) {
		c, err := decodeQuad(raw)
		return osc.NewColor(c[0], c[1], c[2], c[3]), err
	})
	Register(r, osc.TypeMidi, func(v osc.MidiMessage) (interface{}, error) {
		return []int{int(v.PortID()), int(v.Status()), int(v.Data1()), int(v.Data2())}, nil
	}, func(raw jsoniter.RawMessage) (osc.MidiMessage, error) {
		m, err := decodeQuad(raw)
		return osc.NewMidiMessage(m[0], m[1], m[2], m[3]), err
	})
	Register(r, osc.TypeTimeTag, func(v osc.Timetag) (interface{}, error) {
		return v.TimeTag(), nil
	}, func(raw jsoniter.RawMessage) (osc.Timetag, error) {
		v, err := decodeAs[uint64](raw)
		return osc.Timetag(v), err
	})
	Register(r, osc.TypeGUID, func(v uuid.UUID) (interface{}, error) {
		return v.String(), nil
	}, func(raw jsoniter.RawMessage) (uuid.UUID, error) {
		s, err := decodeAs[string](raw)
		if err != nil {
			return uuid.Nil, err
		}
		id, err := uuid.Parse(s)
		return id, wrap(err)
	})
	Register(r, osc.TypeVersion, func(v osc.Version) (interface{}, error) {
		return v.String(), nil
	}, func(raw jsoniter.RawMessage) (osc.Version, error) {
		s, err := decodeAs[string](raw)
		if err != nil {
			return osc.Version{}, err
		}
		ver, err := osc.ParseVersion(s)
		return ver, wrap(err)
	})

	// Payloadless tags keep a slot in the args array; the tag alone decides
	// the value.
	r.Register(osc.TypeTrue, constant(true, true))
	r.Register(osc.TypeFalse, constant(false, false))
	r.Register(osc.TypeNil, constant(nil, nil))
	r.Register(osc.TypeInfinitum, constant("Infinity", float32(math.Inf(1))))
}

func same[T any](v T) (interface{}, error) { return v, nil }

func decodeAs[T any](raw jsoniter.RawMessage) (T, error) {
	var v T
	err := json.Unmarshal(raw, &v)
	return v, wrap(err)
}

func constant(text, value interface{}) Codec {
	return Codec{
		Marshal:   func(interface{}) (interface{}, error) { return text, nil },
		Unmarshal: func(jsoniter.RawMessage) (interface{}, error) { return value, nil },
	}
}

func floatValue(f float64) interface{} {
	switch {
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case math.IsNaN(f):
		return "NaN"
	}
	return f
}

func decodeFloat(raw jsoniter.RawMessage) (float64, error) {
	if len(raw) > 0 && raw[0] == '"' {
		s, err := decodeAs[string](raw)
		if err != nil {
			return 0, err
		}
		switch s {
		case "Infinity":
			return math.Inf(1), nil
		case "-Infinity":
			return math.Inf(-1), nil
		case "NaN":
			return math.NaN(), nil
		}
		return 0, fmt.Errorf("%w: %q is not a number", osc.ErrMalformed, s)
	}
	return decodeAs[float64](raw)
}

func decodeChar(raw jsoniter.RawMessage) (osc.Char, error) {
	s, err := decodeAs[string](raw)
	if err != nil {
		return 0, err
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("%w: char %q is not a single character", osc.ErrMalformed, s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return osc.Char(r), nil
}

func decodeQuad(raw jsoniter.RawMessage) ([4]uint8, error) {
	var out [4]uint8
	v, err := decodeAs[[]int](raw)
	if err != nil {
		return out, err
	}
	if len(v) != 4 {
		return out, fmt.Errorf("%w: want 4 bytes, got %d values", osc.ErrMalformed, len(v))
	}
	for i, n := range v {
		if n < 0 || n > math.MaxUint8 {
			return out, fmt.Errorf("%w: byte %d out of range: %d", osc.ErrMalformed, i, n)
		}
		out[i] = uint8(n)
	}
	return out, nil
}

func wrap(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", osc.ErrMalformed, err)
}
