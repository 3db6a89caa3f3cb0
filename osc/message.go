package osc

import (
	"bytes"
	"fmt"
	"reflect"
)

// Message represents a single OSC message. An OSC message consists of an OSC
// address pattern and zero or more arguments.
//
// A decoded Message keeps its argument bytes undecoded until they are first
// accessed, so a receiver that only routes on Address never pays for them.
// Materialization is not safe for concurrent use; call Materialize before
// sharing a decoded message between goroutines.
type Message struct {
	Address string
	// IsEvent marks a message that expects no reply. It is carried on the
	// wire only by coders with the event suffix enabled.
	IsEvent bool

	args []interface{}

	// Set while the arguments are still raw: tags is the type tag string
	// and raw the argument bytes it describes.
	pending bool
	tags    string
	raw     []byte
	coder   *Coder
}

// Verify that Messages implements the Packet interface.
var _ Packet = (*Message)(nil)

// NewMessage returns a new Message. The address parameter is the OSC address.
// Argument types are checked when the message is encoded; use Append to
// check them immediately.
func NewMessage(addr string, args ...interface{}) *Message {
	return &Message{Address: addr, args: args}
}

// NewMessageFromData returns a new OSC message parsed from data.
func NewMessageFromData(data []byte) (msg *Message, err error) {
	msg = &Message{}
	if err = msg.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return msg, nil
}

// IsBundle implements Packet.
func (m *Message) IsBundle() bool { return false }

// Clear clears the OSC address and all arguments.
func (m *Message) Clear() {
	*m = Message{}
}

// ClearData removes all arguments from the OSC Message.
func (m *Message) ClearData() {
	m.args = m.args[:0]
	m.pending, m.tags, m.raw = false, "", nil
}

// Append appends the given arguments to the arguments list. It fails without
// appending anything if any argument has no registered codec, or is an array
// nested in an array.
func (m *Message) Append(args ...interface{}) error {
	if err := m.Materialize(); err != nil {
		return err
	}

	c := coderOr(m.coder)
	if _, err := c.registry.appendTags(nil, args, &c.format); err != nil {
		return fmt.Errorf("Append: %w", err)
	}

	m.args = append(m.args, args...)
	return nil
}

// Set replaces the argument at index i.
func (m *Message) Set(i int, arg interface{}) error {
	if err := m.Materialize(); err != nil {
		return err
	}
	if i < 0 || i >= len(m.args) {
		return fmt.Errorf("Set: index %d out of range [0,%d)", i, len(m.args))
	}

	c := coderOr(m.coder)
	if _, err := c.registry.appendTags(nil, []interface{}{arg}, &c.format); err != nil {
		return fmt.Errorf("Set: %w", err)
	}

	m.args[i] = arg
	return nil
}

// Arguments returns the message arguments, decoding them first if needed.
// The slice is owned by the message.
func (m *Message) Arguments() ([]interface{}, error) {
	if err := m.Materialize(); err != nil {
		return nil, err
	}
	return m.args, nil
}

// Argument returns the argument at index i.
func (m *Message) Argument(i int) (interface{}, error) {
	args, err := m.Arguments()
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= len(args) {
		return nil, fmt.Errorf("Argument: index %d out of range [0,%d)", i, len(args))
	}
	return args[i], nil
}

// CountArguments returns the number of arguments. An array counts as one
// argument. It does not decode pending arguments.
func (m *Message) CountArguments() int {
	if !m.pending {
		return len(m.args)
	}

	n := 0
	inArray := false
	for i := 1; i < len(m.tags); i++ {
		switch TypeTag(m.tags[i]) {
		case TypeArrayStart:
			inArray = true
		case TypeArrayEnd:
			inArray = false
			n++
		default:
			if !inArray {
				n++
			}
		}
	}
	return n
}

// TypeTags returns the type tag string, without the event suffix. A decoded
// message reports the tags it was received with.
func (m *Message) TypeTags() (string, error) {
	if m == nil {
		return "", fmt.Errorf("TypeTags: message is nil")
	}
	if m.pending {
		return m.tags, nil
	}
	return coderOr(m.coder).TypeTags(m.args...)
}

// Materialize decodes pending arguments. It is idempotent, and on failure the
// message keeps its raw arguments so the error is reported again next time.
func (m *Message) Materialize() error {
	if !m.pending {
		return nil
	}

	args, err := coderOr(m.coder).decodeArguments(m.tags, m.raw)
	if err != nil {
		return fmt.Errorf("Materialize: %s: %w", m.Address, err)
	}

	m.args = args
	m.pending, m.tags, m.raw = false, "", nil
	return nil
}

func (m *Message) materializeAll() error {
	return m.Materialize()
}

// Equals returns true if the given OSC Message `o` is equal to the current OSC
// Message. It checks if the OSC address, the event flag and the arguments are
// equal, decoding pending arguments of both.
func (m *Message) Equals(o *Message) bool {
	if m == nil || o == nil {
		return m == o
	}
	if m.Address != o.Address || m.IsEvent != o.IsEvent {
		return false
	}

	a, err := m.Arguments()
	if err != nil {
		return false
	}
	b, err := o.Arguments()
	if err != nil {
		return false
	}
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !reflect.DeepEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

// Match returns true, if the OSC address pattern of the OSC Message matches the given
// address. The match is case sensitive!
func (m *Message) Match(addr string) bool {
	regexp, err := getRegEx(m.Address)
	if err != nil {
		return false
	}
	regexp.Longest()
	return regexp.FindString(addr) == addr
}

// String implements the fmt.Stringer interface.
func (m *Message) String() string {
	if m == nil {
		return ""
	}

	strBuf := getBuffer()
	defer putBuffer(strBuf)

	strBuf.WriteString(m.Address)

	args, err := m.Arguments()
	if err != nil {
		fmt.Fprintf(strBuf, " <%v>", err)
		return strBuf.String()
	}

	tags, err := m.TypeTags()
	if err != nil {
		fmt.Fprintf(strBuf, " <%v>", err)
		return strBuf.String()
	}

	strBuf.WriteByte(' ')
	strBuf.WriteString(tags)

	for _, arg := range args {
		strBuf.WriteByte(' ')
		writeArgument(strBuf, arg)
	}

	return strBuf.String()
}

func writeArgument(b *bytes.Buffer, arg interface{}) {
	switch arg := arg.(type) {
	case nil:
		b.WriteString("Nil")

	case []byte:
		fmt.Fprintf(b, "blob(%d)", len(arg))

	case Timetag:
		fmt.Fprintf(b, "%d", arg.TimeTag())

	case Symbol:
		fmt.Fprintf(b, "'%s", string(arg))

	case Char:
		fmt.Fprintf(b, "%q", rune(arg))

	case []interface{}:
		b.WriteByte('[')
		for i, elem := range arg {
			if i > 0 {
				b.WriteByte(' ')
			}
			writeArgument(b, elem)
		}
		b.WriteByte(']')

	default:
		fmt.Fprintf(b, "%v", arg)
	}
}

// MarshalBinary implements the encoding.BinaryMarshaler interface. It uses
// the coder the message was decoded with, or the default coder.
func (m *Message) MarshalBinary() ([]byte, error) {
	return coderOr(m.coder).Encode(m)
}

// UnmarshalBinary implements the encoding.BinaryUnmarshaler interface with
// the default coder. The data is copied.
func (m *Message) UnmarshalBinary(data []byte) error {
	return m.unmarshalBinary(bytes.Clone(data), defaultCoder)
}

// unmarshalBinary reads the address and type tags and keeps the rest of data
// as the pending arguments. It doesn't copy.
func (m *Message) unmarshalBinary(data []byte, c *Coder) error {
	if len(data) == 0 || data[0] != '/' {
		return malformed("Message.UnmarshalBinary", "data not a valid OSC message")
	}

	if (len(data) % bit32Size) != 0 {
		return malformed("Message.UnmarshalBinary", "data isn't padded properly")
	}

	// First, read the OSC address
	addr, n, err := parsePaddedString(data)
	if err != nil {
		return fmt.Errorf("Message.UnmarshalBinary: %w", err)
	}
	data = data[n:]

	// Messages without a type tag string carry no arguments.
	tags := string(typeTagPrefix)
	if len(data) > 0 {
		tags, n, err = parsePaddedString(data)
		if err != nil {
			return fmt.Errorf("Message.UnmarshalBinary: %w", err)
		}
		if len(tags) == 0 || tags[0] != typeTagPrefix {
			return malformed("Message.UnmarshalBinary", "unsupported type tag string %q", tags)
		}
		data = data[n:]
	}

	event := false
	if c.eventSuffix && len(tags) > 1 && TypeTag(tags[len(tags)-1]) == TypeEvent {
		event = true
		tags = tags[:len(tags)-1]
	}

	*m = Message{
		Address: addr,
		IsEvent: event,
		pending: true,
		tags:    tags,
		raw:     data,
		coder:   c,
	}
	return nil
}

func (m *Message) encode(buf *bytes.Buffer, c *Coder) error {
	if err := checkAddress("Message.MarshalBinary", m.Address); err != nil {
		return err
	}

	suffix := ""
	if m.IsEvent && c.eventSuffix {
		suffix = TypeEvent.String()
	}

	// Undecoded arguments can be copied as-is when the wire format matches.
	if m.pending && m.coder == c {
		writePaddedString(m.Address, buf)
		writePaddedString(m.tags+suffix, buf)
		buf.Write(m.raw)
		return nil
	}

	if err := m.Materialize(); err != nil {
		return err
	}

	tags, err := c.TypeTags(m.args...)
	if err != nil {
		return fmt.Errorf("Message.MarshalBinary: %s: %w", m.Address, err)
	}

	writePaddedString(m.Address, buf)
	writePaddedString(tags+suffix, buf)

	for _, arg := range m.args {
		if arr, ok := arg.([]interface{}); ok {
			for _, elem := range arr {
				if err := c.encodeValue(buf, elem); err != nil {
					return err
				}
			}
			continue
		}
		if err := c.encodeValue(buf, arg); err != nil {
			return err
		}
	}

	return nil
}

// encodeValue writes one scalar argument.
func (c *Coder) encodeValue(buf *bytes.Buffer, v interface{}) error {
	codec, err := c.registry.CodecForValue(v)
	if err != nil {
		return fmt.Errorf("encodeValue: %w", err)
	}
	if _, err := codec.Encode(buf, v, &c.format); err != nil {
		return fmt.Errorf("encodeValue: %w", err)
	}
	return nil
}

// decodeArguments walks tags against data, decoding one value per tag and
// collecting bracketed runs into []interface{} arrays.
func (c *Coder) decodeArguments(tags string, data []byte) ([]interface{}, error) {
	if len(tags) == 0 || tags[0] != typeTagPrefix {
		return nil, malformed("decodeArguments", "unsupported type tag string %q", tags)
	}

	args := make([]interface{}, 0, len(tags)-1)
	var arr []interface{}
	inArray := false

	for i := 1; i < len(tags); i++ {
		t := TypeTag(tags[i])
		switch t {
		case TypeArrayStart:
			if inArray {
				return nil, malformed("decodeArguments", "%v at tag %d", ErrNestedArray, i)
			}
			inArray = true
			arr = make([]interface{}, 0)
			continue

		case TypeArrayEnd:
			if !inArray {
				return nil, malformed("decodeArguments", "unmatched ']' at tag %d", i)
			}
			args = append(args, arr)
			inArray, arr = false, nil
			continue
		}

		codec, err := c.registry.CodecForTag(t)
		if err != nil {
			return nil, fmt.Errorf("decodeArguments: %w", err)
		}

		v, n, err := codec.Decode(data, &c.format)
		if err != nil {
			return nil, fmt.Errorf("decodeArguments: argument %d (%c): %w", i-1, t, err)
		}
		data = data[n:]

		if inArray {
			arr = append(arr, v)
		} else {
			args = append(args, v)
		}
	}

	if inArray {
		return nil, malformed("decodeArguments", "unterminated array in %q", tags)
	}

	return args, nil
}
