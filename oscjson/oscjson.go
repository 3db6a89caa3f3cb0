// Package oscjson converts OSC packets to and from a JSON text form.
//
// A message is written as
//
//	{"address":"/a","tags":",is","args":[1,"x"],"event":false}
//
// and a bundle as
//
//	{"timetag":1,"elements":[...]}
//
// Arguments follow their type tags: blobs are base64 strings, colors and
// MIDI messages arrays of four bytes, time tags integers, GUIDs and versions
// strings and Nil is null. Non-finite floats are the strings "Infinity",
// "-Infinity" and "NaN". Types registered with the binary registry but not
// with a JSON Registry are base64 strings of their binary encoding.
package oscjson

import (
	"bytes"
	"fmt"
	"math"

	jsoniter "github.com/json-iterator/go"

	"github.com/chabad360/oscwire/osc"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type message struct {
	Address string                `json:"address"`
	Tags    string                `json:"tags"`
	Args    []jsoniter.RawMessage `json:"args"`
	Event   bool                  `json:"event"`
}

type bundle struct {
	Timetag  uint64                `json:"timetag"`
	Elements []jsoniter.RawMessage `json:"elements"`
}

// envelope is decoded first to tell messages from bundles.
type envelope struct {
	Address  *string               `json:"address"`
	Tags     string                `json:"tags"`
	Args     []jsoniter.RawMessage `json:"args"`
	Event    bool                  `json:"event"`
	Timetag  *uint64               `json:"timetag"`
	Elements []jsoniter.RawMessage `json:"elements"`
}

// Coder converts packets using a binary coder, which decides the type tag of
// each argument, and a JSON registry for the argument forms.
type Coder struct {
	binary   *osc.Coder
	registry *Registry
}

// Option configures a Coder.
type Option func(*Coder)

// WithCoder selects the binary coder whose registry and format apply.
func WithCoder(c *osc.Coder) Option {
	return func(j *Coder) {
		j.binary = c
	}
}

// WithRegistry selects the JSON registry.
func WithRegistry(r *Registry) Option {
	return func(j *Coder) {
		j.registry = r
	}
}

// NewCoder returns a coder. Without options it uses osc.DefaultCoder and
// DefaultRegistry.
func NewCoder(opts ...Option) *Coder {
	c := &Coder{binary: osc.DefaultCoder(), registry: defaultRegistry}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var defaultCoder = NewCoder()

// Marshal returns the JSON form of p using the default coder.
func Marshal(p osc.Packet) ([]byte, error) {
	return defaultCoder.Marshal(p)
}

// MarshalIndent is like Marshal with indented output.
func MarshalIndent(p osc.Packet, prefix, indent string) ([]byte, error) {
	return defaultCoder.MarshalIndent(p, prefix, indent)
}

// Unmarshal parses the JSON form of a packet using the default coder.
func Unmarshal(data []byte) (osc.Packet, error) {
	return defaultCoder.Unmarshal(data)
}

// Marshal returns the JSON form of p, decoding pending arguments and
// elements first.
func (c *Coder) Marshal(p osc.Packet) ([]byte, error) {
	v, err := c.packetValue(p)
	if err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

// MarshalIndent is like Marshal with indented output.
func (c *Coder) MarshalIndent(p osc.Packet, prefix, indent string) ([]byte, error) {
	v, err := c.packetValue(p)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(v, prefix, indent)
}

func (c *Coder) packetValue(p osc.Packet) (interface{}, error) {
	switch p := p.(type) {
	case *osc.Message:
		args, err := p.Arguments()
		if err != nil {
			return nil, err
		}
		tags, err := c.binary.TypeTags(args...)
		if err != nil {
			return nil, fmt.Errorf("Marshal: %s: %w", p.Address, err)
		}

		out := message{Address: p.Address, Tags: tags, Event: p.IsEvent, Args: make([]jsoniter.RawMessage, 0, len(args))}
		for i, arg := range args {
			v, err := c.argumentValue(arg)
			if err != nil {
				return nil, fmt.Errorf("Marshal: %s: argument %d: %w", p.Address, i, err)
			}
			raw, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("Marshal: %s: argument %d: %w", p.Address, i, err)
			}
			out.Args = append(out.Args, raw)
		}
		return out, nil

	case *osc.Bundle:
		elems, err := p.Elements()
		if err != nil {
			return nil, err
		}

		out := bundle{Timetag: p.Timetag.TimeTag(), Elements: make([]jsoniter.RawMessage, 0, len(elems))}
		for _, e := range elems {
			v, err := c.packetValue(e)
			if err != nil {
				return nil, err
			}
			raw, err := json.Marshal(v)
			if err != nil {
				return nil, err
			}
			out.Elements = append(out.Elements, raw)
		}
		return out, nil
	}
	return nil, fmt.Errorf("Marshal: unsupported OSC packet type %T", p)
}

// argumentValue maps an OSC argument to the value of its JSON form.
func (c *Coder) argumentValue(arg interface{}) (interface{}, error) {
	if arr, ok := arg.([]interface{}); ok {
		out := make([]interface{}, len(arr))
		for i, elem := range arr {
			v, err := c.argumentValue(elem)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}

	bin, err := c.binary.Registry().CodecForValue(arg)
	if err != nil {
		return nil, err
	}
	tag := bin.Tag(arg, c.binary.Format())
	if jc := c.registry.codec(tag); jc != nil {
		return jc.Marshal(arg)
	}

	buf := &bytes.Buffer{}
	if _, err := bin.Encode(buf, arg, c.binary.Format()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeValue decodes one argument of tag t.
func (c *Coder) decodeValue(t osc.TypeTag, raw jsoniter.RawMessage) (interface{}, error) {
	if jc := c.registry.codec(t); jc != nil {
		return jc.Unmarshal(raw)
	}

	bin, err := c.binary.Registry().CodecForTag(t)
	if err != nil {
		return nil, err
	}
	data, err := decodeAs[[]byte](raw)
	if err != nil {
		return nil, err
	}
	v, n, err := bin.Decode(data, c.binary.Format())
	if err != nil {
		return nil, err
	}
	if n != len(data) {
		return nil, fmt.Errorf("%w: tag %q: %d trailing bytes", osc.ErrMalformed, t, len(data)-n)
	}
	return v, nil
}

// Unmarshal parses the JSON form of a packet. Arguments are decoded by the
// message's type tags; a message without tags has them inferred from the
// JSON values (integers as int32 or int64, other numbers as float64).
func (c *Coder) Unmarshal(data []byte) (osc.Packet, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("Unmarshal: %w: %v", osc.ErrMalformed, err)
	}

	switch {
	case env.Address != nil:
		return c.unmarshalMessage(message{Address: *env.Address, Tags: env.Tags, Args: env.Args, Event: env.Event})
	case env.Timetag != nil || env.Elements != nil:
		tt := osc.Immediate
		if env.Timetag != nil {
			tt = osc.Timetag(*env.Timetag)
		}
		return c.unmarshalBundle(tt, env.Elements)
	}
	return nil, fmt.Errorf("Unmarshal: %w: neither a message nor a bundle", osc.ErrMalformed)
}

func (c *Coder) unmarshalMessage(in message) (*osc.Message, error) {
	var (
		args []interface{}
		err  error
	)
	if in.Tags == "" {
		args, err = inferArguments(in.Args)
	} else {
		args, err = c.decodeArguments(in.Tags, in.Args)
	}
	if err != nil {
		return nil, fmt.Errorf("Unmarshal: %s: %w", in.Address, err)
	}

	// Every argument was decoded through a registered tag.
	msg := osc.NewMessage(in.Address, args...)
	msg.IsEvent = in.Event
	return msg, nil
}

func (c *Coder) unmarshalBundle(tt osc.Timetag, elements []jsoniter.RawMessage) (*osc.Bundle, error) {
	b := &osc.Bundle{Timetag: tt}
	for i, raw := range elements {
		p, err := c.Unmarshal(raw)
		if err != nil {
			return nil, fmt.Errorf("Unmarshal: element %d: %w", i, err)
		}
		if nb, ok := p.(*osc.Bundle); ok && nb.Timetag.Before(tt) {
			return nil, fmt.Errorf("Unmarshal: %w: nested bundle time %v precedes parent time %v", osc.ErrMalformed, nb.Timetag, tt)
		}
		if err := b.Append(p); err != nil {
			return nil, fmt.Errorf("Unmarshal: element %d: %w", i, err)
		}
	}
	return b, nil
}

// decodeArguments walks tags against args, collecting bracketed runs from
// nested JSON arrays.
func (c *Coder) decodeArguments(tags string, args []jsoniter.RawMessage) ([]interface{}, error) {
	if tags[0] != ',' {
		return nil, fmt.Errorf("%w: unsupported type tag string %q", osc.ErrMalformed, tags)
	}

	out := make([]interface{}, 0, len(args))
	next := 0
	for i := 1; i < len(tags); i++ {
		if next >= len(args) {
			return nil, fmt.Errorf("%w: tags %q describe more than %d arguments", osc.ErrMalformed, tags, len(args))
		}

		t := osc.TypeTag(tags[i])
		switch t {
		case osc.TypeArrayStart:
			end := i + 1
			for end < len(tags) && osc.TypeTag(tags[end]) != osc.TypeArrayEnd {
				if osc.TypeTag(tags[end]) == osc.TypeArrayStart {
					return nil, fmt.Errorf("%w: %v", osc.ErrMalformed, osc.ErrNestedArray)
				}
				end++
			}
			if end == len(tags) {
				return nil, fmt.Errorf("%w: unterminated array in %q", osc.ErrMalformed, tags)
			}

			var elems []jsoniter.RawMessage
			if err := json.Unmarshal(args[next], &elems); err != nil {
				return nil, fmt.Errorf("%w: argument %d: %v", osc.ErrMalformed, next, err)
			}
			if len(elems) != end-i-1 {
				return nil, fmt.Errorf("%w: argument %d: array of %d elements for tags %q", osc.ErrMalformed, next, len(elems), tags[i:end+1])
			}

			arr := make([]interface{}, len(elems))
			for j, raw := range elems {
				v, err := c.decodeValue(osc.TypeTag(tags[i+1+j]), raw)
				if err != nil {
					return nil, fmt.Errorf("argument %d[%d]: %w", next, j, err)
				}
				arr[j] = v
			}
			out = append(out, arr)
			i = end

		case osc.TypeArrayEnd:
			return nil, fmt.Errorf("%w: unmatched ']' at tag %d", osc.ErrMalformed, i)

		default:
			v, err := c.decodeValue(t, args[next])
			if err != nil {
				return nil, fmt.Errorf("argument %d: %w", next, err)
			}
			out = append(out, v)
		}
		next++
	}

	if next != len(args) {
		return nil, fmt.Errorf("%w: %d arguments for tags %q", osc.ErrMalformed, len(args), tags)
	}
	return out, nil
}

// inferArguments picks an OSC type for each JSON value.
func inferArguments(args []jsoniter.RawMessage) ([]interface{}, error) {
	out := make([]interface{}, 0, len(args))
	for i, raw := range args {
		v, err := inferValue(raw, true)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func inferValue(raw jsoniter.RawMessage, allowArray bool) (interface{}, error) {
	iter := json.BorrowIterator(raw)
	defer json.ReturnIterator(iter)

	switch iter.WhatIsNext() {
	case jsoniter.NilValue:
		return nil, nil
	case jsoniter.BoolValue:
		return iter.ReadBool(), nil
	case jsoniter.StringValue:
		return iter.ReadString(), iter.Error
	case jsoniter.NumberValue:
		n := iter.ReadNumber()
		if iter.Error != nil {
			return nil, wrap(iter.Error)
		}
		if i, err := n.Int64(); err == nil {
			if i >= math.MinInt32 && i <= math.MaxInt32 {
				return int32(i), nil
			}
			return i, nil
		}
		f, err := n.Float64()
		return f, wrap(err)
	case jsoniter.ArrayValue:
		if !allowArray {
			return nil, fmt.Errorf("%w: %v", osc.ErrMalformed, osc.ErrNestedArray)
		}
		var elems []jsoniter.RawMessage
		if err := json.Unmarshal(raw, &elems); err != nil {
			return nil, wrap(err)
		}
		arr := make([]interface{}, len(elems))
		for i, e := range elems {
			v, err := inferValue(e, false)
			if err != nil {
				return nil, err
			}
			arr[i] = v
		}
		return arr, nil
	}
	return nil, fmt.Errorf("%w: cannot infer an OSC type for %s", osc.ErrMalformed, raw)
}
