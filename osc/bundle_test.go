package osc

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBundle_MarshalBinary(t *testing.T) {
	for _, tt := range bundleTestCases {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.obj.MarshalBinary()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.raw, got)
		})
	}
}

func TestBundle_UnmarshalBinary(t *testing.T) {
	for _, tt := range bundleTestCases {
		t.Run(tt.name, func(t *testing.T) {
			b := new(Bundle)
			err := b.UnmarshalBinary(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, b.Equals(tt.obj.(*Bundle)), "UnmarshalBinary() got = %v, want %v", b, tt.obj)
		})
	}
}

func TestBundleNestingInvariant(t *testing.T) {
	base := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	times := []Timetag{
		Immediate,
		NewTimetagFromTime(base),
		NewTimetagFromTime(base.Add(time.Millisecond)),
		NewTimetagFromTime(base.Add(time.Hour)),
	}

	for _, parent := range times {
		for _, child := range times {
			p := &Bundle{Timetag: parent}
			c := &Bundle{Timetag: child}

			if child < parent {
				assert.Panics(t, func() { _ = p.Append(c) }, "parent %v child %v", parent, child)
				elems, err := p.Elements()
				require.NoError(t, err)
				assert.Empty(t, elems)
				continue
			}
			assert.NotPanics(t, func() { require.NoError(t, p.Append(c)) }, "parent %v child %v", parent, child)
		}
	}
}

func TestBundleNestingInvariantError(t *testing.T) {
	p := NewBundleWithTime(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))
	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(error)
		require.True(t, ok)
		var ie *InvariantError
		assert.True(t, errors.As(err, &ie))
	}()
	_ = p.Append(NewBundle())
}

func TestBundleAppendErrors(t *testing.T) {
	b := NewBundle()
	assert.Error(t, b.Append(nil))
	assert.Error(t, b.Append((*Message)(nil)))
	assert.Error(t, b.Append((*Bundle)(nil)))
	assert.Panics(t, func() { _ = b.Append(b) })
}

func TestBundleAppendCycle(t *testing.T) {
	a, b, c := NewBundle(), NewBundle(), NewBundle()
	require.NoError(t, a.Append(b))
	require.NoError(t, b.Append(c))

	assert.Panics(t, func() { _ = b.Append(a) })
	assert.Panics(t, func() { _ = c.Append(a) })

	elems, err := c.Elements()
	require.NoError(t, err)
	assert.Empty(t, elems)

	// Sharing a bundle between siblings is not a cycle.
	assert.NotPanics(t, func() { require.NoError(t, a.Append(c)) })
	_, err = a.MarshalBinary()
	require.NoError(t, err)
}

func TestBundleZeroTimetag(t *testing.T) {
	got, err := (&Bundle{}).MarshalBinary()
	require.NoError(t, err)
	want, err := NewBundle().MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	assert.True(t, (&Bundle{}).Equals(NewBundle()))
}

func TestBundleNestingAcrossEras(t *testing.T) {
	parent := NewBundleWithTime(time.Date(2035, 1, 1, 0, 0, 0, 0, time.UTC))
	child := NewBundleWithTime(time.Date(2040, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.NotPanics(t, func() { require.NoError(t, parent.Append(child)) })

	early := NewBundleWithTime(time.Date(2035, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.Panics(t, func() { _ = child.Append(early) })

	data, err := parent.MarshalBinary()
	require.NoError(t, err)
	p, err := ParsePacket(data)
	require.NoError(t, err)
	require.NoError(t, Materialize(p))
	assert.True(t, p.(*Bundle).Equals(parent))
}

func TestBundleAccessors(t *testing.T) {
	m1 := NewMessage("/one")
	nested := NewBundle(NewMessage("/three"))
	m2 := NewMessage("/two")
	b := NewBundle(m1, nested, m2)

	elems, err := b.Elements()
	require.NoError(t, err)
	assert.Equal(t, []Packet{m1, nested, m2}, elems)

	msgs, err := b.Messages()
	require.NoError(t, err)
	assert.Equal(t, []*Message{m1, m2}, msgs)

	bundles, err := b.Bundles()
	require.NoError(t, err)
	assert.Equal(t, []*Bundle{nested}, bundles)

	assert.True(t, b.IsBundle())
	assert.False(t, m1.IsBundle())
}

func TestBundleRoundTrip(t *testing.T) {
	at := time.Date(2030, 6, 1, 12, 0, 0, 250*int(time.Millisecond), time.UTC)
	b := NewBundleWithTime(at,
		NewMessage("/a", int32(1), "x"),
		NewBundleWithTime(at.Add(time.Second), NewMessage("/b", true)),
		NewMessage("/c"),
	)

	raw, err := b.MarshalBinary()
	require.NoError(t, err)
	assert.Zero(t, len(raw)%4)

	p, err := ParsePacket(raw)
	require.NoError(t, err)
	require.NoError(t, Materialize(p))
	got := p.(*Bundle)
	assert.True(t, got.Equals(b))
	assert.True(t, got.Timetag.Time().Equal(at))

	bundles, err := got.Bundles()
	require.NoError(t, err)
	require.Len(t, bundles, 1)
	assert.True(t, bundles[0].Timetag.Time().Equal(at.Add(time.Second)))

	// Pending bundles re-encode untouched.
	p, err = ParsePacket(raw)
	require.NoError(t, err)
	again, err := Encode(p)
	require.NoError(t, err)
	assert.Equal(t, raw, again)
}

func TestBundleLittleEndian(t *testing.T) {
	c := NewCoder(WithLittleEndian(true))
	raw, err := c.Encode(NewBundle(NewMessage("/a")))
	require.NoError(t, err)
	assert.Equal(t, wire("#bundle", zero, []byte{1, 0, 0, 0, 0, 0, 0, 0}, []byte{8, 0, 0, 0}, "/a", nulls(2), ",", nulls(3)), raw)

	p, err := c.Decode(raw)
	require.NoError(t, err)
	require.NoError(t, Materialize(p))
	msgs, err := p.(*Bundle).Messages()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "/a", msgs[0].Address)
}

func TestBundleString(t *testing.T) {
	b := NewBundle(NewMessage("/a", int32(1)))
	assert.Equal(t, "#bundle 1 [/a ,i 1]", b.String())
}
