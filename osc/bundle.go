package osc

import (
	"bytes"
	"errors"
	"fmt"
	"time"
)

const (
	bundleTagString = "#bundle"
	// bundleHeaderSize is the padded "#bundle" string plus the time tag.
	bundleHeaderSize = 16
)

// Bundle represents an OSC bundle. It consists of the OSC-string "#bundle"
// followed by an OSC Time Tag, followed by zero or more OSC bundle/message
// elements. The OSC-timetag is a 64-bit fixed point time tag. See
// http://opensoundcontrol.org/spec-1_0.html for more information.
//
// Like Message, a decoded Bundle keeps its elements undecoded until first
// access. The zero value is an empty immediate bundle; a zero Timetag is
// written as Immediate.
type Bundle struct {
	Timetag Timetag

	elements []Packet

	pending bool
	raw     []byte
	coder   *Coder
}

// Verify that Bundle implements the Packet interface.
var _ Packet = (*Bundle)(nil)

// NewBundle returns an immediate OSC Bundle holding elems.
func NewBundle(elems ...Packet) *Bundle {
	b := &Bundle{Timetag: NewImmediateTimetag()}
	b.mustAppend(elems)
	return b
}

// NewBundleWithTime returns an OSC Bundle for the given time, holding elems.
func NewBundleWithTime(time time.Time, elems ...Packet) *Bundle {
	b := &Bundle{Timetag: NewTimetagFromTime(time)}
	b.mustAppend(elems)
	return b
}

func (b *Bundle) mustAppend(elems []Packet) {
	for _, e := range elems {
		if err := b.Append(e); err != nil {
			invariant("NewBundle: %v", err)
		}
	}
}

// NewBundleFromData returns a new OSC bundle created from the parsed data.
func NewBundleFromData(data []byte) (b *Bundle, err error) {
	b = &Bundle{}
	if err = b.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return b, nil
}

// IsBundle implements Packet.
func (b *Bundle) IsBundle() bool { return true }

// Append appends an OSC bundle or OSC message to the bundle. It panics with an
// *InvariantError if pck is a bundle scheduled before b.
func (b *Bundle) Append(pck Packet) error {
	if err := b.Materialize(); err != nil {
		return err
	}

	switch t := pck.(type) {
	default:
		return fmt.Errorf("Append: unsupported OSC packet type %T: only Bundle and Message are supported", pck)

	case *Message:
		if t == nil {
			return errors.New("Append: nil message")
		}

	case *Bundle:
		if t == nil {
			return errors.New("Append: nil bundle")
		}
		if t == b || t.contains(b) {
			invariant("Append: bundle appended to itself")
		}
		if !precedes(b.Timetag, t.Timetag) {
			invariant("Append: nested bundle time %v precedes parent time %v", t.Timetag, b.Timetag)
		}
	}

	b.elements = append(b.elements, pck)
	return nil
}

// contains reports whether target is nested somewhere inside b. Pending
// elements were decoded from bytes and cannot hold target.
func (b *Bundle) contains(target *Bundle) bool {
	for _, e := range b.elements {
		nb, ok := e.(*Bundle)
		if !ok {
			continue
		}
		if nb == target || nb.contains(target) {
			return true
		}
	}
	return false
}

// precedes reports whether a nested bundle with time tag child may live in a
// bundle with time tag parent. All tags at or below Immediate compare equal.
func precedes(parent, child Timetag) bool {
	return !child.Before(parent)
}

// Elements returns the bundle elements in document order, decoding them
// first if needed. The slice is owned by the bundle.
func (b *Bundle) Elements() ([]Packet, error) {
	if err := b.Materialize(); err != nil {
		return nil, err
	}
	return b.elements, nil
}

// Messages returns the direct child messages in document order.
func (b *Bundle) Messages() ([]*Message, error) {
	elems, err := b.Elements()
	if err != nil {
		return nil, err
	}

	var msgs []*Message
	for _, e := range elems {
		if m, ok := e.(*Message); ok {
			msgs = append(msgs, m)
		}
	}
	return msgs, nil
}

// Bundles returns the direct child bundles in document order.
func (b *Bundle) Bundles() ([]*Bundle, error) {
	elems, err := b.Elements()
	if err != nil {
		return nil, err
	}

	var bundles []*Bundle
	for _, e := range elems {
		if nb, ok := e.(*Bundle); ok {
			bundles = append(bundles, nb)
		}
	}
	return bundles, nil
}

// Materialize splits pending bundle elements into packets. Nested elements
// stay lazy; use the package level Materialize to decode the whole tree. It
// is idempotent and leaves b untouched on failure.
func (b *Bundle) Materialize() error {
	if !b.pending {
		return nil
	}

	c := coderOr(b.coder)
	data := b.raw
	var elems []Packet

	// Read until the end of the buffer
	for len(data) > 0 {
		if len(data) < bit32Size {
			return malformed("Bundle.Materialize", "%d trailing bytes", len(data))
		}

		// Read the size of the bundle element
		length := int(c.format.order().Uint32(data))
		data = data[bit32Size:]
		if length <= 0 || length > len(data) {
			return malformed("Bundle.Materialize", "invalid bundle element length: %d", length)
		}
		if length%bit32Size != 0 {
			return malformed("Bundle.Materialize", "bundle element length %d isn't padded properly", length)
		}

		p, err := c.decode(data[:length])
		if err != nil {
			return fmt.Errorf("Bundle.Materialize: element %d: %w", len(elems), err)
		}
		data = data[length:]

		if nb, ok := p.(*Bundle); ok && !precedes(b.Timetag, nb.Timetag) {
			return malformed("Bundle.Materialize", "nested bundle time %v precedes parent time %v", nb.Timetag, b.Timetag)
		}
		elems = append(elems, p)
	}

	b.elements = elems
	b.pending, b.raw = false, nil
	return nil
}

func (b *Bundle) materializeAll() error {
	if err := b.Materialize(); err != nil {
		return err
	}
	for _, e := range b.elements {
		if err := e.materializeAll(); err != nil {
			return err
		}
	}
	return nil
}

// Equals reports whether o has the same time tag and equal elements, decoding
// pending elements of both.
func (b *Bundle) Equals(o *Bundle) bool {
	if b == nil || o == nil {
		return b == o
	}
	if b.Timetag.normalize() != o.Timetag.normalize() {
		return false
	}

	a, err := b.Elements()
	if err != nil {
		return false
	}
	c, err := o.Elements()
	if err != nil {
		return false
	}
	if len(a) != len(c) {
		return false
	}
	for i := range a {
		if !PacketsEqual(a[i], c[i]) {
			return false
		}
	}
	return true
}

// PacketsEqual reports whether a and b are equal messages or equal bundles.
func PacketsEqual(a, b Packet) bool {
	switch a := a.(type) {
	case *Message:
		m, ok := b.(*Message)
		return ok && a.Equals(m)
	case *Bundle:
		nb, ok := b.(*Bundle)
		return ok && a.Equals(nb)
	}
	return a == nil && b == nil
}

// String implements the fmt.Stringer interface.
func (b *Bundle) String() string {
	if b == nil {
		return ""
	}

	strBuf := &bytes.Buffer{}
	fmt.Fprintf(strBuf, "%s %d", bundleTagString, b.Timetag.TimeTag())

	elems, err := b.Elements()
	if err != nil {
		fmt.Fprintf(strBuf, " <%v>", err)
		return strBuf.String()
	}

	strBuf.WriteString(" [")
	for i, e := range elems {
		if i > 0 {
			strBuf.WriteString(", ")
		}
		fmt.Fprint(strBuf, e)
	}
	strBuf.WriteByte(']')
	return strBuf.String()
}

// MarshalBinary implements the encoding.BinaryMarshaler interface.
func (b *Bundle) MarshalBinary() ([]byte, error) {
	return coderOr(b.coder).Encode(b)
}

// UnmarshalBinary implements the encoding.BinaryUnmarshaler interface.
func (b *Bundle) UnmarshalBinary(d []byte) error {
	return b.unmarshalBinary(bytes.Clone(d), defaultCoder)
}

// unmarshalBinary is the actual implementation, it doesn't copy, so we can use a single copy for bundles.
func (b *Bundle) unmarshalBinary(data []byte, c *Coder) error {
	if (len(data) % bit32Size) != 0 {
		return malformed("Bundle.UnmarshalBinary", "data isn't padded properly")
	}

	if len(data) < bundleHeaderSize {
		return malformed("Bundle.UnmarshalBinary", "bundle is too short")
	}

	// Read the '#bundle' OSC string
	startTag, n, err := parsePaddedString(data)
	if err != nil {
		return fmt.Errorf("Bundle.UnmarshalBinary: %w", err)
	}
	if startTag != bundleTagString {
		return malformed("Bundle.UnmarshalBinary", "invalid bundle start tag: %q", startTag)
	}
	data = data[n:]

	*b = Bundle{
		Timetag: Timetag(c.format.order().Uint64(data)),
		pending: true,
		raw:     data[bit64Size:],
		coder:   c,
	}
	return nil
}

func (b *Bundle) encode(buf *bytes.Buffer, c *Coder) error {
	order := c.format.order()

	writePaddedString(bundleTagString, buf)
	buf.Write(order.AppendUint64(buf.AvailableBuffer(), uint64(b.Timetag.normalize())))

	// Undecoded elements can be copied as-is when the wire format matches.
	if b.pending && b.coder == c {
		buf.Write(b.raw)
		return nil
	}

	if err := b.Materialize(); err != nil {
		return err
	}

	for _, e := range b.elements {
		// Reserve the size of the element, then fill it in once known.
		at := buf.Len()
		buf.Write(padding[:])

		if err := e.encode(buf, c); err != nil {
			return err
		}

		length := buf.Len() - at - bit32Size
		if length%bit32Size != 0 {
			invariant("Bundle.MarshalBinary: element length %d is not a multiple of %d", length, bit32Size)
		}
		order.PutUint32(buf.Bytes()[at:], uint32(length))
	}

	return nil
}
