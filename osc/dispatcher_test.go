package osc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chabad360/oscwire/scheduler"
)

func TestDispatcher_AddMethodFunc(t *testing.T) {
	type args struct {
		addr   string
		method MethodFunc
	}
	tests := []struct {
		name    string
		methods map[string]Method
		args    args
		wantErr bool
	}{
		{"valid", nil, args{"/address/test", func(_ *Message) {}}, false},
		{"invalid", nil, args{"/address*/test", func(_ *Message) {}}, true},
		{"no_slash", nil, args{"address/test", func(_ *Message) {}}, true},
		{"nil", nil, args{"/address/test", nil}, true},
		{"already_exists", map[string]Method{"/address/test": MethodFunc(func(_ *Message) {})}, args{"/address/test", func(_ *Message) {}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &Dispatcher{
				methods: tt.methods,
			}
			var m Method
			if tt.args.method != nil {
				m = tt.args.method
			}
			err := d.AddMethod(tt.args.addr, m)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// newTestDispatcher returns a dispatcher whose methods each add a distinct
// bit to the first argument.
func newTestDispatcher() *Dispatcher {
	d := &Dispatcher{}
	for addr, bit := range map[string]int32{
		"/osc":     1,
		"/os":      2,
		"/osv":     4,
		"/osabc":   8,
		"/osc123":  16,
		"/osc1b3":  32,
		"/oscz":    64,
		"/osc/z":   128,
		"/osc/23f": 256,
	} {
		if err := d.AddMethodFunc(addr, func(msg *Message) {
			v, _ := msg.Argument(0)
			msg.Set(0, v.(int32)+bit)
		}); err != nil {
			panic(err)
		}
	}
	return d
}

func TestDispatcher_Dispatch(t *testing.T) {
	tests := []struct {
		name   string
		addr   string
		expect int32
	}{
		{"single", "/osc", 1},
		{"c_or_not", "/os{c,}", 3},
		{"single_any", "/os{?,}", 7},
		{"single_must", "/os{c,v}", 5},
		{"match_in_part", "/osc{?,}z", 64},
		{"match_multiple_parts", "/osc/?", 128},
		{"char_class", "/osc1[a-z]3", 32},
		{"star", "/osc/*", 384},
		{"none", "/nothing", 0},
	}
	d := newTestDispatcher()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := NewMessage(tt.addr, int32(0))
			d.Dispatch(msg)
			got, err := msg.Argument(0)
			require.NoError(t, err)
			assert.Equal(t, tt.expect, got)
		})
	}
}

func TestDispatcherRecoversPanic(t *testing.T) {
	d := &Dispatcher{}
	require.NoError(t, d.AddMethodFunc("/boom", func(*Message) { panic("boom") }))

	assert.NotPanics(t, func() {
		assert.Equal(t, 1, d.Dispatch(NewMessage("/boom")))
	})

	d.RemoveMethod("/boom")
	assert.Zero(t, d.Dispatch(NewMessage("/boom")))
}

func TestDispatcherAttach(t *testing.T) {
	v := scheduler.NewVirtual(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))
	s := NewStream(v)

	var got []string
	d := &Dispatcher{}
	require.NoError(t, d.AddMethodFunc("/light/1", func(m *Message) { got = append(got, m.Address) }))
	require.NoError(t, d.AddMethodFunc("/light/2", func(m *Message) { got = append(got, m.Address) }))
	cancel := d.Attach(s)

	s.Forward(NewBundle(NewMessage("/light/*"), NewMessage("/light/2")))
	v.RunPending()
	assert.Len(t, got, 3)

	cancel()
	s.Forward(NewMessage("/light/1"))
	v.RunPending()
	assert.Len(t, got, 3)
}
