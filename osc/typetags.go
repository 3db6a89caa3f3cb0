package osc

// TypeTag is a single OSC type tag character.
type TypeTag byte

const (
	TypeInt32     TypeTag = 'i'
	TypeInt64     TypeTag = 'h'
	TypeFloat32   TypeTag = 'f'
	TypeFloat64   TypeTag = 'd'
	TypeString    TypeTag = 's'
	TypeSymbol    TypeTag = 'S'
	TypeBlob      TypeTag = 'b'
	TypeChar      TypeTag = 'c'
	TypeColor     TypeTag = 'r'
	TypeMidi      TypeTag = 'm'
	TypeTimeTag   TypeTag = 't'
	TypeGUID      TypeTag = 'g'
	TypeVersion   TypeTag = 'v'
	TypeTrue      TypeTag = 'T'
	TypeFalse     TypeTag = 'F'
	TypeNil       TypeTag = 'N'
	TypeInfinitum TypeTag = 'I'

	TypeArrayStart TypeTag = '['
	TypeArrayEnd   TypeTag = ']'

	// TypeEvent marks a message that expects no reply. It is only
	// recognised as a trailing tag when the event suffix is enabled.
	TypeEvent TypeTag = 'I'

	TypeInvalid TypeTag = 0
)

func (t TypeTag) String() string {
	return string(rune(t))
}

// typeTagPrefix starts every type tag string.
const typeTagPrefix = ','

// ToTypeTag returns the OSC TypeTag for the given argument using the
// default registry. Returns TypeInvalid if the argument type is unsupported.
func ToTypeTag(arg interface{}) TypeTag {
	tt, err := defaultRegistry.TagFor(arg)
	if err != nil {
		return TypeInvalid
	}
	return tt
}

// GetTypeTag returns the OSC type tag string for the given arguments,
// including the leading ',' and any array brackets.
func GetTypeTag(args ...interface{}) (string, error) {
	return defaultRegistry.typeTags(args, defaultFormat)
}
