package main

import (
	"bytes"
	"math"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chabad360/oscwire/osc"
)

func TestParseArgument(t *testing.T) {
	tests := []struct {
		in      string
		want    interface{}
		wantErr bool
	}{
		{"i:1", int32(1), false},
		{"i:0x10", int32(16), false},
		{"i:99999999999", nil, true},
		{"h:99999999999", int64(99999999999), false},
		{"f:2.5", float32(2.5), false},
		{"d:2.5", 2.5, false},
		{"s:text", "text", false},
		{"s:", "", false},
		{"S:sym", osc.Symbol("sym"), false},
		{"c:x", osc.Char('x'), false},
		{"c:xy", nil, true},
		{"b:dead", []byte{0xde, 0xad}, false},
		{"b:xyz", nil, true},
		{"t:1", osc.Immediate, false},
		{"g:6ba7b810-9dad-11d1-80b4-00c04fd430c8", uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"), false},
		{"v:1.2.3", osc.NewVersion(1, 2, 3), false},
		{"r:1,2,3,4", osc.NewColor(1, 2, 3, 4), false},
		{"m:0,144,60,127", osc.NewMidiMessage(0, 144, 60, 127), false},
		{"r:1,2,3", nil, true},
		{"X:1", nil, true},
		{"T", true, false},
		{"F", false, false},
		{"N", nil, false},
		{"I", float32(math.Inf(1)), false},
		{"42", int32(42), false},
		{"-7", int32(-7), false},
		{"5000000000", int64(5000000000), false},
		{"1.5", float32(1.5), false},
		{"true", true, false},
		{"false", false, false},
		{"inf", "inf", false},
		{"hello", "hello", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseArgument(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseArguments(t *testing.T) {
	got, err := parseArguments([]string{"1", "[", "s:a", "T", "]", "x"})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{int32(1), []interface{}{"a", true}, "x"}, got)

	for _, words := range [][]string{
		{"[", "1"},
		{"1", "]"},
		{"[", "[", "]", "]"},
	} {
		_, err := parseArguments(words)
		assert.Error(t, err, "%q", words)
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestEncodeCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no_args", []string{"encode", "/a"}, "2f6100002c000000\n"},
		{"int", []string{"encode", "/a", "i:1"}, "2f6100002c69000000000001\n"},
		{"little_endian", []string{"--little-endian", "encode", "/a", "i:1"}, "2f6100002c69000001000000\n"},
		{"json", []string{"encode", "--json", `{"address":"/a","tags":",i","args":[1]}`}, "2f6100002c69000000000001\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestEncodeCommandErrors(t *testing.T) {
	_, err := run(t, "encode")
	assert.Error(t, err)

	_, err = run(t, "encode", "--json", `{"address":"/a"}`, "/b")
	assert.Error(t, err)

	_, err = run(t, "encode", "/a", "X:1")
	assert.Error(t, err)
}

func TestEncodeCommandUsesEnvironment(t *testing.T) {
	t.Setenv("OSC_LITTLE_ENDIAN", "true")

	out, err := run(t, "encode", "/a", "i:1")
	require.NoError(t, err)
	assert.Equal(t, "2f6100002c69000001000000\n", out)
}

func TestDecodeCommand(t *testing.T) {
	out, err := run(t, "decode", "2f610000", "2c690000 00000001")
	require.NoError(t, err)
	assert.Equal(t, "/a ,i 1\n", out)

	out, err = run(t, "decode", "--json", "2f6100002c69000000000001")
	require.NoError(t, err)
	assert.JSONEq(t, `{"address":"/a","tags":",i","args":[1],"event":false}`, out)

	_, err = run(t, "decode", "2f61")
	assert.ErrorIs(t, err, osc.ErrMalformed)

	_, err = run(t, "decode", "zz")
	assert.Error(t, err)
}

func TestSendCommand(t *testing.T) {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer conn.Close()

	_, err = run(t, "send", conn.LocalAddr().String(), "/cli", "i:7", "hello", "--delay", "1h")
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	buf := make([]byte, osc.MaxPacketSize)
	n, _, err := conn.ReadFrom(buf)
	require.NoError(t, err)

	p, err := osc.ParsePacket(buf[:n])
	require.NoError(t, err)
	b, ok := p.(*osc.Bundle)
	require.True(t, ok, "want a bundle, got %T", p)
	assert.WithinDuration(t, time.Now().Add(time.Hour), b.Timetag.Time(), time.Minute)

	msgs, err := b.Messages()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].Equals(osc.NewMessage("/cli", int32(7), "hello")))
}

func TestSendCommandUnknownTransport(t *testing.T) {
	_, err := run(t, "send", "--transport", "carrier-pigeon", "127.0.0.1:1", "/x")
	assert.Error(t, err)
}
