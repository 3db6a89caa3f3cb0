package osc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessage_Append(t *testing.T) {
	oscAddress := "/address"
	message := NewMessage(oscAddress)

	require.NoError(t, message.Append("string argument"))
	require.NoError(t, message.Append(int32(123456789)))
	require.NoError(t, message.Append(true))

	assert.Equal(t, 3, message.CountArguments())

	err := message.Append(int32(1), struct{}{})
	assert.ErrorIs(t, err, ErrUnknownType)
	assert.Equal(t, 3, message.CountArguments(), "a failed Append appends nothing")

	err = message.Append([]interface{}{[]interface{}{int32(1)}})
	assert.ErrorIs(t, err, ErrNestedArray)
}

func TestMessage_AppendArray(t *testing.T) {
	arr := []interface{}{int32(1), float32(2), "foo"}

	for _, tt := range []struct {
		name string
		args []interface{}
		tags string
		raw  []byte
	}{
		{
			"alone",
			[]interface{}{arr},
			",[ifs]",
			wire("/arr", nulls(4), ",[ifs]", nulls(2), uint32(1), math.Float32bits(2), "foo", zero),
		},
		{
			"after_int",
			[]interface{}{int32(9), arr},
			",i[ifs]",
			wire("/arr", nulls(4), ",i[ifs]", zero, uint32(9), uint32(1), math.Float32bits(2), "foo", zero),
		},
		{
			"before_int",
			[]interface{}{arr, int32(9)},
			",[ifs]i",
			wire("/arr", nulls(4), ",[ifs]i", zero, uint32(1), math.Float32bits(2), "foo", zero, uint32(9)),
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMessage("/arr")
			require.NoError(t, m.Append(tt.args...))

			tags, err := m.TypeTags()
			require.NoError(t, err)
			assert.Equal(t, tt.tags, tags)

			raw, err := m.MarshalBinary()
			require.NoError(t, err)
			assert.Equal(t, tt.raw, raw)

			decoded, err := NewMessageFromData(raw)
			require.NoError(t, err)
			assert.Equal(t, len(tt.args), decoded.CountArguments())
			args, err := decoded.Arguments()
			require.NoError(t, err)
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestMessage_Set(t *testing.T) {
	m := NewMessage("/a", int32(1), "b")
	require.NoError(t, m.Set(1, float32(2)))
	assert.Error(t, m.Set(2, int32(0)))
	assert.ErrorIs(t, m.Set(0, struct{}{}), ErrUnknownType)

	args, err := m.Arguments()
	require.NoError(t, err)
	assert.Equal(t, []interface{}{int32(1), float32(2)}, args)

	_, err = m.Argument(5)
	assert.Error(t, err)
}

func TestMessage_Clear(t *testing.T) {
	m := NewMessage("/a", int32(1))
	m.ClearData()
	assert.Equal(t, "/a", m.Address)
	assert.Zero(t, m.CountArguments())

	m.Clear()
	assert.Empty(t, m.Address)
}

func TestOscMessageMatch(t *testing.T) {
	tc := []struct {
		desc        string
		addr        string
		addrPattern string
		want        bool
	}{
		{
			"match everything in a part",
			"/*",
			"/a",
			true,
		},
		{
			"star stops at a part boundary",
			"/*",
			"/a/b",
			false,
		},
		{
			"don't match",
			"/a/b",
			"/a",
			false,
		},
		{
			"match alternatives",
			"/a/{foo,bar}",
			"/a/foo",
			true,
		},
		{
			"don't match if address is not part of the alternatives",
			"/a/{foo,bar}",
			"/a/bob",
			false,
		},
		{
			"character class",
			"/a/[0-9]",
			"/a/7",
			true,
		},
		{
			"negated character class",
			"/a/[!0-9]",
			"/a/7",
			false,
		},
		{
			"single character",
			"/a/?b",
			"/a/xb",
			true,
		},
	}

	for _, tt := range tc {
		msg := NewMessage(tt.addr)

		got := msg.Match(tt.addrPattern)
		assert.Equal(t, tt.want, got, "%s: msg.Match('%s')", tt.desc, tt.addrPattern)
	}
}

func TestMessage_MarshalBinary(t *testing.T) {
	for _, tt := range messageTestCases {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.obj.MarshalBinary()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.raw, got)
		})
	}
}

func TestMessage_UnmarshalBinary(t *testing.T) {
	for _, tt := range messageTestCases {
		t.Run(tt.name, func(t *testing.T) {
			m := new(Message)
			err := m.UnmarshalBinary(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, m.Equals(tt.obj.(*Message)), "UnmarshalBinary() got = %v, want %v", m, tt.obj)
		})
	}
}

func TestMessageInvalidAddress(t *testing.T) {
	for _, addr := range []string{"", "noslash", "#bundle", "/cut\x00here"} {
		t.Run(addr, func(t *testing.T) {
			_, err := NewMessage(addr, int32(1)).MarshalBinary()
			require.Error(t, err)
			assert.False(t, IsParsingError(err))

			_, err = Encode(NewBundle(NewMessage(addr)))
			assert.Error(t, err)
		})
	}

	_, err := NewMessage("noslash").MarshalBinary()
	assert.ErrorIs(t, err, ErrInvalidAddress)
	_, err = NewMessage("#bundle").MarshalBinary()
	assert.ErrorIs(t, err, ErrInvalidAddress)
	_, err = NewMessage("/cut\x00here").MarshalBinary()
	assert.ErrorIs(t, err, ErrInvalidString)
}

func TestMessageEndToEnd(t *testing.T) {
	raw, err := NewMessage("/test", int32(42), float32(3.25), "hi").MarshalBinary()
	require.NoError(t, err)
	assert.Zero(t, len(raw)%4)

	p, err := ParsePacket(raw)
	require.NoError(t, err)
	m, ok := p.(*Message)
	require.True(t, ok)

	assert.Equal(t, "/test", m.Address)
	tags, err := m.TypeTags()
	require.NoError(t, err)
	assert.Equal(t, ",ifs", tags)

	args, err := m.Arguments()
	require.NoError(t, err)
	assert.Equal(t, []interface{}{int32(42), float32(3.25), "hi"}, args)
}

func TestMessageLazyDecoding(t *testing.T) {
	raw := wire("/lazy", nulls(3), ",iz", zero, uint32(1))
	m, err := NewMessageFromData(raw)
	require.NoError(t, err, "arguments are not decoded yet")

	assert.Equal(t, "/lazy", m.Address)
	assert.Equal(t, 2, m.CountArguments())
	tags, err := m.TypeTags()
	require.NoError(t, err)
	assert.Equal(t, ",iz", tags)

	// A pending message re-encodes its raw arguments untouched.
	again, err := m.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, raw, again)

	_, err = m.Arguments()
	assert.ErrorIs(t, err, ErrUnknownTag)
	_, err = m.Arguments()
	assert.ErrorIs(t, err, ErrUnknownTag, "materialization is retried, never half done")

	assert.Contains(t, m.String(), "/lazy")
}

func TestMessageMaterializeIdempotent(t *testing.T) {
	m, err := NewMessageFromData(messageTestCases[2].raw)
	require.NoError(t, err)

	require.NoError(t, m.Materialize())
	first, err := m.Arguments()
	require.NoError(t, err)
	require.NoError(t, m.Materialize())
	second, err := m.Arguments()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestMessageEventSuffix(t *testing.T) {
	c := NewCoder(WithEventSuffix(true))

	m := NewMessage("/ev", int32(1), float32(math.Inf(1)))
	m.IsEvent = true
	raw, err := c.Encode(m)
	require.NoError(t, err)
	assert.Equal(t, wire("/ev", zero, ",ifI", nulls(4), uint32(1), math.Float32bits(float32(math.Inf(1)))), raw)

	p, err := c.Decode(raw)
	require.NoError(t, err)
	got := p.(*Message)
	assert.True(t, got.IsEvent)
	tags, err := got.TypeTags()
	require.NoError(t, err)
	assert.Equal(t, ",if", tags)
	assert.True(t, got.Equals(m))

	// Without the suffix enabled a trailing I is Infinitum.
	p, err = DefaultCoder().Decode(raw)
	require.NoError(t, err)
	plain := p.(*Message)
	assert.False(t, plain.IsEvent)
	args, err := plain.Arguments()
	require.NoError(t, err)
	require.Len(t, args, 3)
	assert.True(t, math.IsInf(float64(args[2].(float32)), 1))
}

func TestMessageLittleEndian(t *testing.T) {
	c := NewCoder(WithLittleEndian(true))

	raw, err := c.Encode(NewMessage("/le", int32(1)))
	require.NoError(t, err)
	assert.Equal(t, wire("/le", zero, ",i", nulls(2), []byte{1, 0, 0, 0}), raw)

	p, err := c.Decode(raw)
	require.NoError(t, err)
	arg, err := p.(*Message).Argument(0)
	require.NoError(t, err)
	assert.Equal(t, int32(1), arg)

	// Re-encoding with another coder decodes first.
	big, err := DefaultCoder().Encode(p)
	require.NoError(t, err)
	assert.Equal(t, wire("/le", zero, ",i", nulls(2), uint32(1)), big)
}

func TestMessageString(t *testing.T) {
	m := NewMessage("/s", int32(1), "x", []byte{1, 2}, nil, []interface{}{true, Symbol("y")})
	assert.Equal(t, "/s ,isbN[TS] 1 x blob(2) Nil [true 'y]", m.String())
}

var benchArgs []interface{}

func BenchmarkMessageMarshalBinary(b *testing.B) {
	var buf []byte
	b.ReportAllocs()
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		buf, _ = temp.MarshalBinary()
	}
	result = buf
}

func BenchmarkMessageArguments(b *testing.B) {
	b.ReportAllocs()
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		m, _ := NewMessageFromData(msg)
		benchArgs, _ = m.Arguments()
	}
}
