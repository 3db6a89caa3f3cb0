// Package endian selects the byte order used for OSC numeric payloads.
//
// OSC 1.0 mandates big-endian ("network order") encoding. Some peers in the
// wild write little-endian payloads instead; the Little engine exists to talk
// to them.
package endian

import (
	"encoding/binary"
	"unsafe"
)

// Engine combines binary.ByteOrder and binary.AppendByteOrder.
type Engine interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// Big returns the big-endian engine, the OSC default.
func Big() Engine {
	return binary.BigEndian
}

// Little returns the little-endian engine.
func Little() Engine {
	return binary.LittleEndian
}

// For returns the little-endian engine when little is true, else the big-endian one.
func For(little bool) Engine {
	if little {
		return Little()
	}
	return Big()
}

// Native returns the host's byte order.
func Native() binary.ByteOrder {
	// 0x0100: a big-endian host stores the 0x01 byte first.
	var i uint16 = 0x0100
	b := (*[2]byte)(unsafe.Pointer(&i))
	if b[0] == 0x01 {
		return binary.BigEndian
	}

	return binary.LittleEndian
}

// IsNative reports whether e matches the host byte order, i.e. whether
// values written with e need no swapping on this machine.
func IsNative(e Engine) bool {
	return Engine(binary.BigEndian) == e && Native() == binary.BigEndian ||
		Engine(binary.LittleEndian) == e && Native() == binary.LittleEndian
}
