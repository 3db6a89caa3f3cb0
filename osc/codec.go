package osc

import (
	"bytes"

	"github.com/chabad360/oscwire/osc/internal/endian"
)

// ByteOrder is the byte order numeric payloads are read and written with.
type ByteOrder = endian.Engine

// Format carries the wire parameters a Codec needs for one encode or decode.
type Format struct {
	// Order is the byte order of numeric payloads. Nil means big-endian.
	Order ByteOrder
	// NoInfinitum disables the payload-less 'I' tag for +Inf floats; they are
	// then written with their IEEE 754 payload.
	NoInfinitum bool
}

var defaultFormat = &Format{Order: endian.Big()}

func (f *Format) order() ByteOrder {
	if f == nil || f.Order == nil {
		return endian.Big()
	}
	return f.Order
}

// Codec serializes one OSC argument type.
type Codec interface {
	// Tag returns the type tag v is written with. It is normally constant, but
	// float codecs return TypeInfinitum for +Inf.
	Tag(v interface{}, f *Format) TypeTag
	// Decode reads one value from the start of data and returns it along with
	// the number of bytes consumed.
	Decode(data []byte, f *Format) (interface{}, int, error)
	// Encode writes v to buf and returns the number of bytes written.
	Encode(buf *bytes.Buffer, v interface{}, f *Format) (int, error)
}

// CodecFuncs adapts plain functions to the Codec interface. A nil DecodeFunc
// or EncodeFunc makes that direction unsupported.
type CodecFuncs struct {
	TypeTag    TypeTag
	DecodeFunc func(data []byte, f *Format) (interface{}, int, error)
	EncodeFunc func(buf *bytes.Buffer, v interface{}, f *Format) (int, error)
}

// Tag implements Codec.
func (c CodecFuncs) Tag(interface{}, *Format) TypeTag { return c.TypeTag }

// Decode implements Codec.
func (c CodecFuncs) Decode(data []byte, f *Format) (interface{}, int, error) {
	if c.DecodeFunc == nil {
		return nil, 0, unsupported("CodecFuncs.Decode", "codec "+string(rune(c.TypeTag))+" is write-only")
	}
	return c.DecodeFunc(data, f)
}

// Encode implements Codec.
func (c CodecFuncs) Encode(buf *bytes.Buffer, v interface{}, f *Format) (int, error) {
	if c.EncodeFunc == nil {
		return 0, unsupported("CodecFuncs.Encode", "codec "+string(rune(c.TypeTag))+" is read-only")
	}
	return c.EncodeFunc(buf, v, f)
}
