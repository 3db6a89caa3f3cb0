package osc

import (
	"fmt"
	"strconv"
	"strings"
)

// Symbol is an OSC symbol ('S'). It is written like a string but is a
// distinct type, used for identifiers.
type Symbol string

// Char is an OSC 32-bit character ('c'), widened to an int32 on the wire.
type Char rune

// Color is a 32-bit RGBA color ('r'). The components are packed with red in
// the lowest byte; on the wire they are written as R, G, B, A.
type Color uint32

// NewColor packs the given components.
func NewColor(r, g, b, a uint8) Color {
	return Color(uint32(r) | uint32(g)<<8 | uint32(b)<<16 | uint32(a)<<24)
}

// R returns the red component.
func (c Color) R() uint8 { return uint8(c) }

// G returns the green component.
func (c Color) G() uint8 { return uint8(c >> 8) }

// B returns the blue component.
func (c Color) B() uint8 { return uint8(c >> 16) }

// A returns the alpha component.
func (c Color) A() uint8 { return uint8(c >> 24) }

func (c Color) String() string {
	return fmt.Sprintf("rgba(%d,%d,%d,%d)", c.R(), c.G(), c.B(), c.A())
}

// MidiMessage is a 4-byte MIDI message ('m'). The packed layout from the low
// byte up is data2, data1, status, port id; on the wire the bytes are written
// port id, status, data1, data2.
type MidiMessage uint32

// NewMidiMessage packs the given MIDI bytes.
func NewMidiMessage(portID, status, data1, data2 uint8) MidiMessage {
	return MidiMessage(uint32(data2) | uint32(data1)<<8 | uint32(status)<<16 | uint32(portID)<<24)
}

// PortID returns the port id byte.
func (m MidiMessage) PortID() uint8 { return uint8(m >> 24) }

// Status returns the status byte.
func (m MidiMessage) Status() uint8 { return uint8(m >> 16) }

// Data1 returns the first data byte.
func (m MidiMessage) Data1() uint8 { return uint8(m >> 8) }

// Data2 returns the second data byte.
func (m MidiMessage) Data2() uint8 { return uint8(m) }

func (m MidiMessage) String() string {
	return fmt.Sprintf("midi(%d,%#02x,%d,%d)", m.PortID(), m.Status(), m.Data1(), m.Data2())
}

// Version is a dotted version number ('v'), written as the string
// "major.minor[.build[.revision]]". Build and Revision are -1 when absent.
type Version struct {
	Major    int
	Minor    int
	Build    int
	Revision int
}

// NewVersion returns a version with the given components. At most two
// optional components (build, revision) are used.
func NewVersion(major, minor int, rest ...int) Version {
	v := Version{Major: major, Minor: minor, Build: -1, Revision: -1}
	if len(rest) > 0 {
		v.Build = rest[0]
	}
	if len(rest) > 1 {
		v.Revision = rest[1]
	}
	return v
}

// ParseVersion parses the canonical "major.minor[.build[.revision]]" form.
func ParseVersion(s string) (Version, error) {
	parts := strings.Split(s, ".")
	if len(parts) < 2 || len(parts) > 4 {
		return Version{}, fmt.Errorf("ParseVersion: invalid version %q", s)
	}

	comps := [4]int{-1, -1, -1, -1}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return Version{}, fmt.Errorf("ParseVersion: invalid component %q in %q", p, s)
		}
		comps[i] = n
	}

	return Version{Major: comps[0], Minor: comps[1], Build: comps[2], Revision: comps[3]}, nil
}

func (v Version) String() string {
	s := strconv.Itoa(v.Major) + "." + strconv.Itoa(v.Minor)
	if v.Build < 0 {
		return s
	}
	s += "." + strconv.Itoa(v.Build)
	if v.Revision < 0 {
		return s
	}
	return s + "." + strconv.Itoa(v.Revision)
}
