package osc

import (
	"encoding/binary"
	"time"
)

const (
	// Immediate is the reserved time tag meaning "process as soon as possible".
	Immediate Timetag = 1

	secondsFrom1900To1970 = 2208988800
	fracPerSecond         = 1 << 32

	// eraSplit is the top bit of the seconds field. Seconds with it clear
	// belong to NTP era 1, which starts on 2036-02-07.
	eraSplit = 1 << 31
	eraSize  = 1 << 32

	maxTimetag Timetag = 1<<63 - 1
)

var (
	// earliest and latest bound the times a time tag can carry: era 0 from
	// 1968-01-20 up to era 1 before 2104-02-26.
	earliest = time.Unix(eraSplit-secondsFrom1900To1970, 0).UTC()
	latest   = time.Unix(eraSize+eraSplit-secondsFrom1900To1970, 0).UTC()
)

// Timetag represents an OSC Time Tag.
// An OSC Time Tag is defined as follows:
// Time tags are represented by a 64 bit fixed point number. The first 32 bits
// specify the number of seconds since midnight on January 1, 1900, and the
// last 32 bits specify fractional parts of a second to a precision of about
// 200 picoseconds. This is the representation used by Internet NTP timestamps.
type Timetag uint64

// NewTimetag returns the immediate time tag.
func NewTimetag() Timetag {
	return Immediate
}

// NewImmediateTimetag returns the immediate time tag.
func NewImmediateTimetag() Timetag {
	return Immediate
}

// NewTimetagFromTime returns a new OSC time tag object from a time.Time.
// Times before 1968-01-20 map to Immediate, times after 2104-02-26 to the
// last representable time tag.
func NewTimetagFromTime(timeStamp time.Time) Timetag {
	return timeToTimetag(timeStamp)
}

// Time returns the time. Immediate (and zero) map to the zero time.Time.
func (t Timetag) Time() time.Time {
	return timetagToTime(t)
}

// IsImmediate reports whether t is the immediate sentinel.
func (t Timetag) IsImmediate() bool {
	return t <= Immediate
}

// Before reports whether t is earlier than u, reading the seconds of both in
// their NTP era. All tags at or below Immediate compare equal and earliest.
func (t Timetag) Before(u Timetag) bool {
	if u.IsImmediate() {
		return false
	}
	if t.IsImmediate() {
		return true
	}
	ts, us := t.seconds(), u.seconds()
	if ts != us {
		return ts < us
	}
	return t.FractionalSecond() < u.FractionalSecond()
}

// normalize maps every tag at or below Immediate to Immediate.
func (t Timetag) normalize() Timetag {
	if t.IsImmediate() {
		return Immediate
	}
	return t
}

// seconds returns the seconds since 1900 with the era applied.
func (t Timetag) seconds() int64 {
	secs := int64(t.SecondsSinceEpoch())
	if secs < eraSplit {
		secs += eraSize
	}
	return secs
}

// FractionalSecond returns the last 32 bits of the OSC time tag. Specifies the
// fractional part of a second.
func (t Timetag) FractionalSecond() uint32 {
	return uint32(t)
}

// SecondsSinceEpoch returns the first 32 bits (the number of seconds since the
// midnight 1900) from the OSC time tag.
func (t Timetag) SecondsSinceEpoch() uint32 {
	return uint32(t >> 32)
}

// TimeTag returns the time tag value
func (t Timetag) TimeTag() uint64 {
	return uint64(t)
}

// MarshalBinary converts the OSC time tag to a big-endian byte array.
func (t Timetag) MarshalBinary() ([]byte, error) {
	b := make([]byte, bit64Size)
	binary.BigEndian.PutUint64(b, uint64(t))
	return b, nil
}

// UnmarshalBinary reads a big-endian time tag.
func (t *Timetag) UnmarshalBinary(b []byte) error {
	if err := need("Timetag.UnmarshalBinary", b, bit64Size); err != nil {
		return err
	}
	*t = Timetag(binary.BigEndian.Uint64(b))
	return nil
}

// SetTime sets the value of the OSC time tag.
func (t *Timetag) SetTime(time time.Time) {
	*t = timeToTimetag(time)
}

// ExpiresIn calculates the duration until the current time is the same as
// the value of the time tag. It returns zero if the value of the time tag is
// in the past.
func (t Timetag) ExpiresIn() time.Duration {
	if t.IsImmediate() {
		return 0
	}

	if d := time.Until(timetagToTime(t)); d > 0 {
		return d
	}
	return 0
}

func (t Timetag) String() string {
	if t.IsImmediate() {
		return "immediate"
	}
	return t.Time().Format(time.RFC3339Nano)
}

// timeToTimetag converts the given time to an OSC time tag, rounded to the
// millisecond.
//
// The time tag value consisting of 63 zero bits followed by a one in the least
// significant bit is a special case meaning "immediately."
func timeToTimetag(t time.Time) Timetag {
	t = t.Round(time.Millisecond)
	if t.Before(earliest) {
		return Immediate
	}
	if !t.Before(latest) {
		return maxTimetag
	}

	secs := uint64(t.Unix()+secondsFrom1900To1970) % eraSize
	ms := uint64(t.Nanosecond() / int(time.Millisecond))

	tag := Timetag(secs<<32 | ms*fracPerSecond/1000)
	if tag.IsImmediate() {
		// The first instant of era 1 collides with the sentinel.
		tag = Immediate + 1
	}
	return tag
}

// timetagToTime converts the given timetag to a time object, rounded to the
// millisecond.
func timetagToTime(timetag Timetag) time.Time {
	if timetag.IsImmediate() {
		return time.Time{}
	}

	secs := timetag.seconds() - secondsFrom1900To1970
	ms := (uint64(uint32(timetag))*1000 + fracPerSecond/2) >> 32
	if ms == 1000 {
		secs++
		ms = 0
	}

	return time.Unix(secs, int64(ms)*int64(time.Millisecond)).UTC()
}
