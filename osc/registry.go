package osc

import (
	"reflect"
	"sync"
)

// Registry maps type tag characters and Go types to codecs.
//
// Lookups are safe for concurrent use. Registration is expected to happen at
// start-up, before decode traffic begins; later registrations for the same
// tag or type replace earlier ones.
type Registry struct {
	mu    sync.RWMutex
	tags  [256]Codec
	types map[reflect.Type]Codec
}

var defaultRegistry = NewDefaultRegistry()

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[reflect.Type]Codec)}
}

// NewDefaultRegistry returns a registry holding the binary codecs for every
// built-in argument type.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	registerBinaryCodecs(r)
	return r
}

// DefaultRegistry returns the process-wide registry used by the default Coder.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Register binds tag and typ to c. Either may be omitted (TypeInvalid or a
// nil typ) for codecs that only decode a tag or only encode a type.
func (r *Registry) Register(tag TypeTag, typ reflect.Type, c Codec) {
	if c == nil {
		invariant("Register: nil codec for tag %q", byte(tag))
	}
	if tag == TypeArrayStart || tag == TypeArrayEnd || tag == typeTagPrefix {
		invariant("Register: tag %q is reserved", byte(tag))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if tag != TypeInvalid {
		r.tags[tag] = c
	}
	if typ != nil {
		r.types[typ] = c
	}
}

// Register binds tag and the Go type T to c in r.
func Register[T any](r *Registry, tag TypeTag, c Codec) {
	r.Register(tag, reflect.TypeFor[T](), c)
}

// Clone returns a copy of r that can be modified independently.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c := &Registry{tags: r.tags, types: make(map[reflect.Type]Codec, len(r.types))}
	for k, v := range r.types {
		c.types[k] = v
	}
	return c
}

// CodecForTag returns the codec decoding tag.
func (r *Registry) CodecForTag(tag TypeTag) (Codec, error) {
	r.mu.RLock()
	c := r.tags[tag]
	r.mu.RUnlock()

	if c == nil {
		return nil, &UnknownTagError{Tag: byte(tag)}
	}
	return c, nil
}

// CodecForType returns the codec encoding values of type t.
func (r *Registry) CodecForType(t reflect.Type) (Codec, error) {
	r.mu.RLock()
	c := r.types[t]
	r.mu.RUnlock()

	if c == nil {
		return nil, &UnknownTypeError{Type: t}
	}
	return c, nil
}

// CodecForValue returns the codec encoding v. A nil v uses the codec
// registered for TypeNil.
func (r *Registry) CodecForValue(v interface{}) (Codec, error) {
	if v == nil {
		return r.CodecForTag(TypeNil)
	}
	return r.CodecForType(reflect.TypeOf(v))
}

// TagFor returns the type tag v is written with, using the default format.
func (r *Registry) TagFor(v interface{}) (TypeTag, error) {
	c, err := r.CodecForValue(v)
	if err != nil {
		return TypeInvalid, err
	}
	return c.Tag(v, defaultFormat), nil
}

// appendTags appends the tag characters for args to dst, expanding arrays
// into their bracketed element tags.
func (r *Registry) appendTags(dst []byte, args []interface{}, f *Format) ([]byte, error) {
	for _, arg := range args {
		if arr, ok := arg.([]interface{}); ok {
			dst = append(dst, byte(TypeArrayStart))
			for _, elem := range arr {
				if _, nested := elem.([]interface{}); nested {
					return nil, ErrNestedArray
				}
				c, err := r.CodecForValue(elem)
				if err != nil {
					return nil, err
				}
				dst = append(dst, byte(c.Tag(elem, f)))
			}
			dst = append(dst, byte(TypeArrayEnd))
			continue
		}

		c, err := r.CodecForValue(arg)
		if err != nil {
			return nil, err
		}
		dst = append(dst, byte(c.Tag(arg, f)))
	}
	return dst, nil
}

// typeTags returns the full type tag string for args.
func (r *Registry) typeTags(args []interface{}, f *Format) (string, error) {
	tags := make([]byte, 1, len(args)+2)
	tags[0] = typeTagPrefix
	tags, err := r.appendTags(tags, args, f)
	if err != nil {
		return "", err
	}
	return string(tags), nil
}
