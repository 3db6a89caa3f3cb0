package osc

import (
	"bytes"
	"math"
)

const zero = string(byte(0))

// nulls returns a string of `i` nulls.
func nulls(i int) string {
	return string(bytes.Repeat([]byte{0}, i))
}

// wire concatenates strings, bytes and big-endian uint32 words.
func wire(parts ...interface{}) []byte {
	var b []byte
	for _, p := range parts {
		switch p := p.(type) {
		case string:
			b = append(b, p...)
		case []byte:
			b = append(b, p...)
		case uint32:
			b = append(b, byte(p>>24), byte(p>>16), byte(p>>8), byte(p))
		default:
			panic("wire: unsupported part")
		}
	}
	return b
}

type testCase struct {
	name    string
	obj     Packet
	raw     []byte
	wantErr bool
}

var messageTestCases = []testCase{
	{
		"no_args",
		NewMessage("/a"),
		wire("/a", nulls(2), ",", nulls(3)),
		false,
	},
	{
		"int32",
		NewMessage("/a", int32(1)),
		wire("/a", nulls(2), ",i", nulls(2), uint32(1)),
		false,
	},
	{
		"mixed",
		NewMessage("/test", int32(42), float32(3.25), "hi"),
		wire("/test", nulls(3), ",ifs", nulls(4), uint32(42), math.Float32bits(3.25), "hi", nulls(2)),
		false,
	},
	{
		"payloadless",
		NewMessage("/b", true, false, nil),
		wire("/b", nulls(2), ",TFN", nulls(4)),
		false,
	},
	{
		"blob",
		NewMessage("/blob", []byte{1, 2, 3}),
		wire("/blob", nulls(3), ",b", nulls(2), uint32(3), []byte{1, 2, 3}, zero),
		false,
	},
	{
		"array",
		NewMessage("/arr", int32(7), []interface{}{int32(1), float32(2), "foo"}),
		wire("/arr", nulls(4), ",i[ifs]", zero, uint32(7), uint32(1), math.Float32bits(2), "foo", zero),
		false,
	},
	{
		"int64_float64",
		NewMessage("/w", int64(-1), float64(0.5)),
		wire("/w", nulls(2), ",hd", zero, uint32(0xffffffff), uint32(0xffffffff), uint32(0x3fe00000), uint32(0)),
		false,
	},
}

var bundleTestCases = []testCase{
	{
		"empty",
		NewBundle(),
		wire("#bundle", zero, uint32(0), uint32(1)),
		false,
	},
	{
		"one_message",
		NewBundle(NewMessage("/a", int32(1))),
		wire("#bundle", zero, uint32(0), uint32(1),
			uint32(12), "/a", nulls(2), ",i", nulls(2), uint32(1)),
		false,
	},
	{
		"nested",
		func() Packet {
			b := &Bundle{Timetag: Timetag(5<<32 | 1)}
			b.Append(NewMessage("/a"))
			b.Append(&Bundle{Timetag: Timetag(6 << 32)})
			return b
		}(),
		wire("#bundle", zero, uint32(5), uint32(1),
			uint32(8), "/a", nulls(2), ",", nulls(3),
			uint32(16), "#bundle", zero, uint32(6), uint32(0)),
		false,
	},
}
