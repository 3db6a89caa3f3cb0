package osc

import (
	"bytes"
	"fmt"
	"strings"
)

////
// De/Encoding functions
////

const (
	bit32Size = 4
	bit64Size = 8
)

var padding = [bit32Size]byte{}

// parseBlob parses an OSC blob from data. The blob length is read with the
// given byte order. Padding bytes are consumed but not returned. The returned
// slice aliases data.
func parseBlob(data []byte, order ByteOrder) ([]byte, int, error) {
	if len(data) < bit32Size {
		return nil, 0, malformed("parseBlob", "need %d bytes for the blob size, have %d", bit32Size, len(data))
	}

	// First, get the length
	blobLen := int(int32(order.Uint32(data[:bit32Size])))
	data = data[bit32Size:]

	if blobLen < 0 || blobLen > len(data) {
		return nil, 0, malformed("parseBlob", "invalid blob length %d with %d bytes remaining", blobLen, len(data))
	}

	n := blobLen + padBytesNeeded(blobLen)
	if n > len(data) {
		n = len(data)
	}

	return data[:blobLen], bit32Size + n, nil
}

// writeBlob writes data as an OSC blob into b. If the length of data isn't
// 32-bit aligned, padding bytes will be added.
func writeBlob(data []byte, b *bytes.Buffer, order ByteOrder) int {
	var size [bit32Size]byte
	order.PutUint32(size[:], uint32(len(data)))
	b.Write(size[:])
	n := bit32Size

	// Write the data
	b.Write(data)
	n += len(data)

	pad := padBytesNeeded(len(data))
	b.Write(padding[:pad])

	return n + pad
}

// parsePaddedString reads a padded string from the given slice and returns
// the string and the number of bytes read, including the terminator and padding.
func parsePaddedString(data []byte) (string, int, error) {
	pos := bytes.IndexByte(data, 0)
	if pos == -1 {
		return "", 0, malformed("parsePaddedString", "missing string terminator in %d bytes", len(data))
	}

	n := pos + 1 + padBytesNeeded(pos+1)
	if n > len(data) {
		n = len(data)
	}

	return string(data[:pos]), n, nil
}

// writePaddedString writes a string with padding bytes to the buffer.
// Returns the number of written bytes, always a multiple of 4. Anything after
// an embedded NUL is dropped; encoders reject such strings with checkString.
func writePaddedString(str string, b *bytes.Buffer) int {
	if i := strings.IndexByte(str, 0); i >= 0 {
		str = str[:i]
	}

	// Write the string to the buffer
	n, _ := b.WriteString(str)
	b.WriteByte(0)
	n++

	pad := padBytesNeeded(n)
	b.Write(padding[:pad])

	return n + pad
}

// checkString reports strings that writePaddedString would cut short.
func checkString(fn, s string) error {
	if strings.IndexByte(s, 0) >= 0 {
		return fmt.Errorf("%s: %w: %q", fn, ErrInvalidString, s)
	}
	return nil
}

// checkAddress reports addresses a reader would not decode as this message.
func checkAddress(fn, addr string) error {
	if !strings.HasPrefix(addr, "/") {
		return fmt.Errorf("%s: %w: %q must start with '/'", fn, ErrInvalidAddress, addr)
	}
	return checkString(fn, addr)
}

// padBytesNeeded determines how many bytes are needed to fill up to the next 4
// byte length.
func padBytesNeeded(elementLen int) int {
	return (4 - (elementLen % 4)) % 4
}

// need checks that data holds at least n bytes for the named value.
func need(fn string, data []byte, n int) error {
	if len(data) < n {
		return malformed(fn, "need %d bytes, have %d", n, len(data))
	}
	return nil
}

// typeMismatch reports a codec being handed a value it does not encode.
func typeMismatch(fn string, v interface{}) error {
	return fmt.Errorf("%s: unexpected value of type %T", fn, v)
}
