package osc

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chabad360/oscwire/osc/internal/endian"
)

func TestParsePaddedString(t *testing.T) {
	for _, tt := range []struct {
		buf     []byte // buffer
		want    int    // bytes needed
		want1   string // resulting string
		wantErr bool
	}{
		{[]byte{'t', 'e', 's', 't', 's', 't', 'r', 'i', 'n', 'g', 0, 0}, 12, "teststring", false},
		{[]byte{'t', 'e', 's', 't', 'e', 'r', 's', 0}, 8, "testers", false},
		{[]byte{'t', 'e', 's', 't', 's', 0, 0, 0}, 8, "tests", false},
		{[]byte{'t', 'e', 's', 0, 0, 0, 0, 0}, 4, "tes", false}, // OSC uses null terminated strings
		{[]byte{0, 0, 0, 0}, 4, "", false},
		{[]byte{'t', 'e', 's', 't'}, 0, "", true}, // if there is no null byte at the end, it doesn't work.
	} {
		got, got1, err := parsePaddedString(tt.buf)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrMalformed, tt.want1)
			continue
		}
		require.NoError(t, err, tt.want1)
		assert.Equal(t, tt.want, got1, "%s: bytes needed", tt.want1)
		assert.Equal(t, tt.want1, got)
	}
}

func TestWritePaddedString(t *testing.T) {
	for _, tt := range []struct {
		s    string
		want []byte
	}{
		{"", []byte{0, 0, 0, 0}},
		{"a", []byte{'a', 0, 0, 0}},
		{"abc", []byte{'a', 'b', 'c', 0}},
		{"abcd", []byte{'a', 'b', 'c', 'd', 0, 0, 0, 0}},
		{"testString", []byte("testString\x00\x00")},
		{"cut\x00here", []byte{'c', 'u', 't', 0}},
	} {
		buf := &bytes.Buffer{}
		n := writePaddedString(tt.s, buf)
		assert.Equal(t, len(tt.want), n, "%q", tt.s)
		assert.Equal(t, tt.want, buf.Bytes(), "%q", tt.s)
		assert.Zero(t, n%4)
	}
}

func TestPadBytesNeeded(t *testing.T) {
	for _, tt := range []struct{ in, want int }{
		{4, 0}, {3, 1}, {1, 3}, {0, 0}, {32, 0}, {63, 1}, {10, 2},
	} {
		assert.Equal(t, tt.want, padBytesNeeded(tt.in), "padBytesNeeded(%d)", tt.in)
	}
}

func TestBlobStructure(t *testing.T) {
	buf := &bytes.Buffer{}
	n := writeBlob([]byte{0x01, 0x02, 0x03}, buf, endian.Big())
	require.Equal(t, 8, n)
	assert.Equal(t, []byte{0, 0, 0, 3, 0x01, 0x02, 0x03, 0}, buf.Bytes())

	got, consumed, err := parseBlob(buf.Bytes(), endian.Big())
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, got)
	assert.Equal(t, 8, consumed)
}

func TestBlobAlignment(t *testing.T) {
	for size := 0; size < 12; size++ {
		buf := &bytes.Buffer{}
		n := writeBlob(bytes.Repeat([]byte{0xaa}, size), buf, endian.Big())
		assert.Zero(t, n%4, "blob of %d bytes", size)
		assert.Equal(t, n, buf.Len())

		got, consumed, err := parseBlob(buf.Bytes(), endian.Big())
		require.NoError(t, err)
		assert.Len(t, got, size)
		assert.Equal(t, n, consumed)
	}
}

func TestParseBlobMalformed(t *testing.T) {
	for _, buf := range [][]byte{
		{0, 0, 0},
		{0, 0, 0, 5, 1, 2, 3, 4},
		{0xff, 0xff, 0xff, 0xff},
	} {
		_, _, err := parseBlob(buf, endian.Big())
		assert.ErrorIs(t, err, ErrMalformed, "%v", buf)
	}
}

func TestBlobLittleEndian(t *testing.T) {
	buf := &bytes.Buffer{}
	writeBlob([]byte{9}, buf, endian.Little())
	assert.Equal(t, []byte{1, 0, 0, 0, 9, 0, 0, 0}, buf.Bytes())
}
