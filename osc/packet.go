package osc

import (
	"bytes"
	"encoding"
)

// MaxPacketSize is the largest packet the UDP transport reads or writes.
const MaxPacketSize = 65507

// Packet is the interface for Message and Bundle.
type Packet interface {
	encoding.BinaryMarshaler

	// IsBundle reports whether the packet is a *Bundle.
	IsBundle() bool

	encode(buf *bytes.Buffer, c *Coder) error
	materializeAll() error
}

// ParsePacket parses an OSC packet with the default coder. The data is copied.
func ParsePacket(data []byte) (Packet, error) {
	return defaultCoder.Decode(data)
}

// parsePacket assumes that the bytes are owned by the returned packet.
func parsePacket(data []byte) (Packet, error) {
	return defaultCoder.decode(data)
}

// Encode serializes p with the default coder.
func Encode(p Packet) ([]byte, error) {
	return defaultCoder.Encode(p)
}

// Materialize fully decodes p: bundle elements recursively and every
// message's arguments. It is idempotent; on error nothing that failed is
// left half-decoded.
func Materialize(p Packet) error {
	return p.materializeAll()
}
