package main

import (
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/chabad360/oscwire/osc"
)

// parseArguments turns command line words into OSC arguments. A word is
// either a typed value "tag:value", one of the payloadless tags T, F, N and
// I, or a bare value whose type is inferred. The words "[" and "]" enclose
// an array.
func parseArguments(words []string) ([]interface{}, error) {
	var (
		args    []interface{}
		arr     []interface{}
		inArray bool
	)

	for i, w := range words {
		switch w {
		case "[":
			if inArray {
				return nil, fmt.Errorf("argument %d: %w", i, osc.ErrNestedArray)
			}
			inArray, arr = true, []interface{}{}
			continue
		case "]":
			if !inArray {
				return nil, fmt.Errorf("argument %d: unmatched ']'", i)
			}
			args = append(args, arr)
			inArray, arr = false, nil
			continue
		}

		v, err := parseArgument(w)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		if inArray {
			arr = append(arr, v)
		} else {
			args = append(args, v)
		}
	}

	if inArray {
		return nil, fmt.Errorf("unterminated array")
	}
	return args, nil
}

func parseArgument(w string) (interface{}, error) {
	switch w {
	case "T":
		return true, nil
	case "F":
		return false, nil
	case "N":
		return nil, nil
	case "I":
		return float32(math.Inf(1)), nil
	}

	if len(w) >= 2 && w[1] == ':' {
		return parseTyped(osc.TypeTag(w[0]), w[2:])
	}
	return inferArgument(w), nil
}

func parseTyped(tag osc.TypeTag, s string) (interface{}, error) {
	switch tag {
	case osc.TypeInt32:
		n, err := strconv.ParseInt(s, 0, 32)
		return int32(n), err
	case osc.TypeInt64:
		n, err := strconv.ParseInt(s, 0, 64)
		return n, err
	case osc.TypeFloat32:
		f, err := strconv.ParseFloat(s, 32)
		return float32(f), err
	case osc.TypeFloat64:
		return strconv.ParseFloat(s, 64)
	case osc.TypeString:
		return s, nil
	case osc.TypeSymbol:
		return osc.Symbol(s), nil
	case osc.TypeBlob:
		return hex.DecodeString(s)
	case osc.TypeChar:
		if utf8.RuneCountInString(s) != 1 {
			return nil, fmt.Errorf("char %q is not a single character", s)
		}
		r, _ := utf8.DecodeRuneInString(s)
		return osc.Char(r), nil
	case osc.TypeTimeTag:
		n, err := strconv.ParseUint(s, 0, 64)
		return osc.Timetag(n), err
	case osc.TypeGUID:
		return uuid.Parse(s)
	case osc.TypeVersion:
		return osc.ParseVersion(s)
	case osc.TypeColor, osc.TypeMidi:
		b, err := parseQuad(s)
		if err != nil {
			return nil, err
		}
		if tag == osc.TypeColor {
			return osc.NewColor(b[0], b[1], b[2], b[3]), nil
		}
		return osc.NewMidiMessage(b[0], b[1], b[2], b[3]), nil
	}
	return nil, &osc.UnknownTagError{Tag: byte(tag)}
}

// parseQuad parses four comma separated bytes.
func parseQuad(s string) ([4]uint8, error) {
	var out [4]uint8
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return out, fmt.Errorf("want 4 comma separated bytes, got %q", s)
	}
	for i, p := range parts {
		n, err := strconv.ParseUint(strings.TrimSpace(p), 0, 8)
		if err != nil {
			return out, err
		}
		out[i] = uint8(n)
	}
	return out, nil
}

// inferArgument picks int32, int64, float32, bool or string for a bare word.
func inferArgument(w string) interface{} {
	if n, err := strconv.ParseInt(w, 10, 64); err == nil {
		if n >= math.MinInt32 && n <= math.MaxInt32 {
			return int32(n)
		}
		return n
	}
	// ParseFloat also accepts words like "inf" and "nan".
	if strings.ContainsAny(w, "0123456789") {
		if f, err := strconv.ParseFloat(w, 32); err == nil {
			return float32(f)
		}
	}
	switch w {
	case "true":
		return true
	case "false":
		return false
	}
	return w
}
