package osc

import (
	"bytes"

	"github.com/chabad360/oscwire/osc/internal/endian"
)

// Coder encodes and decodes packets with a fixed registry and wire format.
// A Coder is safe for concurrent use once constructed.
type Coder struct {
	registry    *Registry
	format      Format
	eventSuffix bool
}

// Option configures a Coder.
type Option func(*Coder)

// WithLittleEndian selects little-endian numeric payloads, for peers that do
// not follow the OSC byte order.
func WithLittleEndian(little bool) Option {
	return func(c *Coder) {
		c.format.Order = endian.For(little)
	}
}

// WithRegistry selects the codec registry.
func WithRegistry(r *Registry) Option {
	return func(c *Coder) {
		c.registry = r
	}
}

// WithEventSuffix enables the trailing 'I' type tag marking a message that
// expects no reply. Because 'I' is also Infinitum, +Inf floats are then
// written with their IEEE 754 payload.
func WithEventSuffix(enabled bool) Option {
	return func(c *Coder) {
		c.eventSuffix = enabled
		c.format.NoInfinitum = enabled
	}
}

var defaultCoder = NewCoder()

// DefaultCoder returns the big-endian coder over the default registry.
func DefaultCoder() *Coder {
	return defaultCoder
}

// NewCoder returns a coder. Without options it writes big-endian OSC 1.0
// using the default registry.
func NewCoder(opts ...Option) *Coder {
	c := &Coder{
		registry: defaultRegistry,
		format:   Format{Order: endian.Big()},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Registry returns the coder's registry.
func (c *Coder) Registry() *Registry {
	return c.registry
}

// Format returns the wire format handed to codecs.
func (c *Coder) Format() *Format {
	return &c.format
}

// Decode parses a packet from data. The data is copied, so the caller may
// reuse it. Arguments and bundle elements are decoded lazily, on first access.
func (c *Coder) Decode(data []byte) (Packet, error) {
	return c.decode(bytes.Clone(data))
}

// decode assumes data is owned by the packet tree.
func (c *Coder) decode(data []byte) (Packet, error) {
	if len(data) == 0 {
		return nil, malformed("Coder.Decode", "empty packet")
	}

	if data[0] == '#' {
		b := &Bundle{}
		if err := b.unmarshalBinary(data, c); err != nil {
			return nil, err
		}
		return b, nil
	}

	m := &Message{}
	if err := m.unmarshalBinary(data, c); err != nil {
		return nil, err
	}
	return m, nil
}

// Encode serializes p. The result length is always a multiple of 4.
func (c *Coder) Encode(p Packet) ([]byte, error) {
	buf := getBuffer()
	defer putBuffer(buf)

	if err := p.encode(buf, c); err != nil {
		return nil, err
	}
	return bytes.Clone(buf.Bytes()), nil
}

// TypeTags returns the type tag string args are written with by c.
func (c *Coder) TypeTags(args ...interface{}) (string, error) {
	return c.registry.typeTags(args, &c.format)
}

// coderOr returns c, or the default coder when c is nil.
func coderOr(c *Coder) *Coder {
	if c == nil {
		return defaultCoder
	}
	return c
}
