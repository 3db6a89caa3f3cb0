package osc

import (
	"bytes"
	"math"

	"github.com/google/uuid"
)

// registerBinaryCodecs loads the OSC 1.0 binary codecs, plus the non-standard
// types this package supports, into r.
func registerBinaryCodecs(r *Registry) {
	Register[int32](r, TypeInt32, int32Codec{})
	Register[int64](r, TypeInt64, int64Codec{})
	Register[float32](r, TypeFloat32, float32Codec{})
	Register[float64](r, TypeFloat64, float64Codec{})
	Register[string](r, TypeString, stringCodec{})
	Register[Symbol](r, TypeSymbol, symbolCodec{})
	Register[[]byte](r, TypeBlob, blobCodec{})
	Register[Char](r, TypeChar, charCodec{})
	Register[Color](r, TypeColor, colorCodec{})
	Register[MidiMessage](r, TypeMidi, midiCodec{})
	Register[Timetag](r, TypeTimeTag, timetagCodec{})
	Register[uuid.UUID](r, TypeGUID, guidCodec{})
	Register[Version](r, TypeVersion, versionCodec{})

	Register[bool](r, TypeInvalid, boolCodec{})
	r.Register(TypeTrue, nil, constCodec{tag: TypeTrue, value: true})
	r.Register(TypeFalse, nil, constCodec{tag: TypeFalse, value: false})
	r.Register(TypeInfinitum, nil, constCodec{tag: TypeInfinitum, value: float32(math.Inf(1))})
	r.Register(TypeNil, nil, nilCodec{})
}

type int32Codec struct{}

func (int32Codec) Tag(interface{}, *Format) TypeTag { return TypeInt32 }

func (int32Codec) Decode(data []byte, f *Format) (interface{}, int, error) {
	if err := need("int32Codec.Decode", data, bit32Size); err != nil {
		return nil, 0, err
	}
	return int32(f.order().Uint32(data)), bit32Size, nil
}

func (int32Codec) Encode(buf *bytes.Buffer, v interface{}, f *Format) (int, error) {
	i, ok := v.(int32)
	if !ok {
		return 0, typeMismatch("int32Codec.Encode", v)
	}
	buf.Write(f.order().AppendUint32(buf.AvailableBuffer(), uint32(i)))
	return bit32Size, nil
}

type int64Codec struct{}

func (int64Codec) Tag(interface{}, *Format) TypeTag { return TypeInt64 }

func (int64Codec) Decode(data []byte, f *Format) (interface{}, int, error) {
	if err := need("int64Codec.Decode", data, bit64Size); err != nil {
		return nil, 0, err
	}
	return int64(f.order().Uint64(data)), bit64Size, nil
}

func (int64Codec) Encode(buf *bytes.Buffer, v interface{}, f *Format) (int, error) {
	i, ok := v.(int64)
	if !ok {
		return 0, typeMismatch("int64Codec.Encode", v)
	}
	buf.Write(f.order().AppendUint64(buf.AvailableBuffer(), uint64(i)))
	return bit64Size, nil
}

// infinitum reports whether x is written as the payload-less 'I' tag.
func infinitum(x float64, f *Format) bool {
	return math.IsInf(x, 1) && (f == nil || !f.NoInfinitum)
}

type float32Codec struct{}

func (float32Codec) Tag(v interface{}, f *Format) TypeTag {
	if x, ok := v.(float32); ok && infinitum(float64(x), f) {
		return TypeInfinitum
	}
	return TypeFloat32
}

func (float32Codec) Decode(data []byte, f *Format) (interface{}, int, error) {
	if err := need("float32Codec.Decode", data, bit32Size); err != nil {
		return nil, 0, err
	}
	return math.Float32frombits(f.order().Uint32(data)), bit32Size, nil
}

func (float32Codec) Encode(buf *bytes.Buffer, v interface{}, f *Format) (int, error) {
	x, ok := v.(float32)
	if !ok {
		return 0, typeMismatch("float32Codec.Encode", v)
	}
	if infinitum(float64(x), f) {
		return 0, nil
	}
	buf.Write(f.order().AppendUint32(buf.AvailableBuffer(), math.Float32bits(x)))
	return bit32Size, nil
}

type float64Codec struct{}

func (float64Codec) Tag(v interface{}, f *Format) TypeTag {
	if x, ok := v.(float64); ok && infinitum(x, f) {
		return TypeInfinitum
	}
	return TypeFloat64
}

func (float64Codec) Decode(data []byte, f *Format) (interface{}, int, error) {
	if err := need("float64Codec.Decode", data, bit64Size); err != nil {
		return nil, 0, err
	}
	return math.Float64frombits(f.order().Uint64(data)), bit64Size, nil
}

func (float64Codec) Encode(buf *bytes.Buffer, v interface{}, f *Format) (int, error) {
	x, ok := v.(float64)
	if !ok {
		return 0, typeMismatch("float64Codec.Encode", v)
	}
	if infinitum(x, f) {
		return 0, nil
	}
	buf.Write(f.order().AppendUint64(buf.AvailableBuffer(), math.Float64bits(x)))
	return bit64Size, nil
}

type stringCodec struct{}

func (stringCodec) Tag(interface{}, *Format) TypeTag { return TypeString }

func (stringCodec) Decode(data []byte, _ *Format) (interface{}, int, error) {
	s, n, err := parsePaddedString(data)
	if err != nil {
		return nil, 0, err
	}
	return s, n, nil
}

func (stringCodec) Encode(buf *bytes.Buffer, v interface{}, _ *Format) (int, error) {
	s, ok := v.(string)
	if !ok {
		return 0, typeMismatch("stringCodec.Encode", v)
	}
	if err := checkString("stringCodec.Encode", s); err != nil {
		return 0, err
	}
	return writePaddedString(s, buf), nil
}

type symbolCodec struct{}

func (symbolCodec) Tag(interface{}, *Format) TypeTag { return TypeSymbol }

func (symbolCodec) Decode(data []byte, _ *Format) (interface{}, int, error) {
	s, n, err := parsePaddedString(data)
	if err != nil {
		return nil, 0, err
	}
	return Symbol(s), n, nil
}

func (symbolCodec) Encode(buf *bytes.Buffer, v interface{}, _ *Format) (int, error) {
	s, ok := v.(Symbol)
	if !ok {
		return 0, typeMismatch("symbolCodec.Encode", v)
	}
	if err := checkString("symbolCodec.Encode", string(s)); err != nil {
		return 0, err
	}
	return writePaddedString(string(s), buf), nil
}

type blobCodec struct{}

func (blobCodec) Tag(interface{}, *Format) TypeTag { return TypeBlob }

func (blobCodec) Decode(data []byte, f *Format) (interface{}, int, error) {
	b, n, err := parseBlob(data, f.order())
	if err != nil {
		return nil, 0, err
	}
	return bytes.Clone(b), n, nil
}

func (blobCodec) Encode(buf *bytes.Buffer, v interface{}, f *Format) (int, error) {
	b, ok := v.([]byte)
	if !ok {
		return 0, typeMismatch("blobCodec.Encode", v)
	}
	return writeBlob(b, buf, f.order()), nil
}

type charCodec struct{}

func (charCodec) Tag(interface{}, *Format) TypeTag { return TypeChar }

func (charCodec) Decode(data []byte, f *Format) (interface{}, int, error) {
	if err := need("charCodec.Decode", data, bit32Size); err != nil {
		return nil, 0, err
	}
	return Char(int32(f.order().Uint32(data))), bit32Size, nil
}

func (charCodec) Encode(buf *bytes.Buffer, v interface{}, f *Format) (int, error) {
	c, ok := v.(Char)
	if !ok {
		return 0, typeMismatch("charCodec.Encode", v)
	}
	buf.Write(f.order().AppendUint32(buf.AvailableBuffer(), uint32(c)))
	return bit32Size, nil
}

// colorCodec writes raw R, G, B, A bytes regardless of byte order.
type colorCodec struct{}

func (colorCodec) Tag(interface{}, *Format) TypeTag { return TypeColor }

func (colorCodec) Decode(data []byte, _ *Format) (interface{}, int, error) {
	if err := need("colorCodec.Decode", data, bit32Size); err != nil {
		return nil, 0, err
	}
	return NewColor(data[0], data[1], data[2], data[3]), bit32Size, nil
}

func (colorCodec) Encode(buf *bytes.Buffer, v interface{}, _ *Format) (int, error) {
	c, ok := v.(Color)
	if !ok {
		return 0, typeMismatch("colorCodec.Encode", v)
	}
	buf.Write([]byte{c.R(), c.G(), c.B(), c.A()})
	return bit32Size, nil
}

// midiCodec writes raw port id, status, data1, data2 bytes regardless of byte order.
type midiCodec struct{}

func (midiCodec) Tag(interface{}, *Format) TypeTag { return TypeMidi }

func (midiCodec) Decode(data []byte, _ *Format) (interface{}, int, error) {
	if err := need("midiCodec.Decode", data, bit32Size); err != nil {
		return nil, 0, err
	}
	return NewMidiMessage(data[0], data[1], data[2], data[3]), bit32Size, nil
}

func (midiCodec) Encode(buf *bytes.Buffer, v interface{}, _ *Format) (int, error) {
	m, ok := v.(MidiMessage)
	if !ok {
		return 0, typeMismatch("midiCodec.Encode", v)
	}
	buf.Write([]byte{m.PortID(), m.Status(), m.Data1(), m.Data2()})
	return bit32Size, nil
}

type timetagCodec struct{}

func (timetagCodec) Tag(interface{}, *Format) TypeTag { return TypeTimeTag }

func (timetagCodec) Decode(data []byte, f *Format) (interface{}, int, error) {
	if err := need("timetagCodec.Decode", data, bit64Size); err != nil {
		return nil, 0, err
	}
	return Timetag(f.order().Uint64(data)), bit64Size, nil
}

func (timetagCodec) Encode(buf *bytes.Buffer, v interface{}, f *Format) (int, error) {
	t, ok := v.(Timetag)
	if !ok {
		return 0, typeMismatch("timetagCodec.Encode", v)
	}
	buf.Write(f.order().AppendUint64(buf.AvailableBuffer(), uint64(t)))
	return bit64Size, nil
}

// guidCodec writes a uuid.UUID as a 16-byte blob.
type guidCodec struct{}

func (guidCodec) Tag(interface{}, *Format) TypeTag { return TypeGUID }

func (guidCodec) Decode(data []byte, f *Format) (interface{}, int, error) {
	b, n, err := parseBlob(data, f.order())
	if err != nil {
		return nil, 0, err
	}
	id, err := uuid.FromBytes(b)
	if err != nil {
		return nil, 0, malformed("guidCodec.Decode", "%v", err)
	}
	return id, n, nil
}

func (guidCodec) Encode(buf *bytes.Buffer, v interface{}, f *Format) (int, error) {
	id, ok := v.(uuid.UUID)
	if !ok {
		return 0, typeMismatch("guidCodec.Encode", v)
	}
	return writeBlob(id[:], buf, f.order()), nil
}

// versionCodec writes a Version as its canonical string.
type versionCodec struct{}

func (versionCodec) Tag(interface{}, *Format) TypeTag { return TypeVersion }

func (versionCodec) Decode(data []byte, _ *Format) (interface{}, int, error) {
	s, n, err := parsePaddedString(data)
	if err != nil {
		return nil, 0, err
	}
	v, err := ParseVersion(s)
	if err != nil {
		return nil, 0, malformed("versionCodec.Decode", "%v", err)
	}
	return v, n, nil
}

func (versionCodec) Encode(buf *bytes.Buffer, v interface{}, _ *Format) (int, error) {
	ver, ok := v.(Version)
	if !ok {
		return 0, typeMismatch("versionCodec.Encode", v)
	}
	if err := checkString("versionCodec.Encode", ver.String()); err != nil {
		return 0, err
	}
	return writePaddedString(ver.String(), buf), nil
}

// boolCodec only tags and encodes: the value lives entirely in the tag, so
// reading goes through the 'T' and 'F' codecs instead.
type boolCodec struct{}

func (boolCodec) Tag(v interface{}, _ *Format) TypeTag {
	if b, _ := v.(bool); b {
		return TypeTrue
	}
	return TypeFalse
}

func (boolCodec) Decode([]byte, *Format) (interface{}, int, error) {
	return nil, 0, unsupported("boolCodec.Decode", "booleans are decoded by their tag")
}

func (boolCodec) Encode(_ *bytes.Buffer, v interface{}, _ *Format) (int, error) {
	if _, ok := v.(bool); !ok {
		return 0, typeMismatch("boolCodec.Encode", v)
	}
	return 0, nil
}

// constCodec decodes a payload-less tag to a fixed value. It is read-only.
type constCodec struct {
	tag   TypeTag
	value interface{}
}

func (c constCodec) Tag(interface{}, *Format) TypeTag { return c.tag }

func (c constCodec) Decode([]byte, *Format) (interface{}, int, error) {
	return c.value, 0, nil
}

func (c constCodec) Encode(*bytes.Buffer, interface{}, *Format) (int, error) {
	return 0, unsupported("constCodec.Encode", "tag "+c.tag.String()+" is decode-only")
}

type nilCodec struct{}

func (nilCodec) Tag(interface{}, *Format) TypeTag { return TypeNil }

func (nilCodec) Decode([]byte, *Format) (interface{}, int, error) {
	return nil, 0, nil
}

func (nilCodec) Encode(_ *bytes.Buffer, v interface{}, _ *Format) (int, error) {
	if v != nil {
		return 0, typeMismatch("nilCodec.Encode", v)
	}
	return 0, nil
}
