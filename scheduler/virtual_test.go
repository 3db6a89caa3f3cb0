package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chabad360/oscwire/osc"
)

var (
	_ osc.Scheduler = (*Virtual)(nil)
	_ osc.Scheduler = (*Loop)(nil)
)

var start = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

func TestVirtualScheduleFIFO(t *testing.T) {
	v := NewVirtual(start)

	var got []int
	for i := 0; i < 5; i++ {
		v.Schedule(func() { got = append(got, i) })
	}
	assert.Empty(t, got, "nothing runs before RunPending")
	assert.Equal(t, 5, v.Pending())

	assert.Equal(t, 5, v.RunPending())
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
	assert.Zero(t, v.Pending())
}

func TestVirtualRunsActionsScheduledWhileRunning(t *testing.T) {
	v := NewVirtual(start)

	var got []string
	v.Schedule(func() {
		got = append(got, "a")
		v.Schedule(func() { got = append(got, "c") })
	})
	v.Schedule(func() { got = append(got, "b") })

	assert.Equal(t, 3, v.RunPending())
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestVirtualAdvance(t *testing.T) {
	v := NewVirtual(start)

	var got []string
	var at []time.Time
	record := func(name string) func() {
		return func() {
			got = append(got, name)
			at = append(at, v.Now())
		}
	}

	v.ScheduleAfter(30*time.Millisecond, record("late"))
	v.ScheduleAfter(10*time.Millisecond, record("early"))
	v.ScheduleAfter(10*time.Millisecond, record("early-tie"))
	v.ScheduleAfter(0, record("now"))

	next, ok := v.Next()
	require.True(t, ok)
	assert.Equal(t, start.Add(10*time.Millisecond), next)

	assert.Equal(t, 1, v.Advance(5*time.Millisecond))
	assert.Equal(t, []string{"now"}, got)
	assert.Equal(t, start.Add(5*time.Millisecond), v.Now())

	assert.Equal(t, 2, v.Advance(5*time.Millisecond))
	assert.Equal(t, []string{"now", "early", "early-tie"}, got)

	assert.Equal(t, 1, v.Advance(time.Second))
	assert.Equal(t, []string{"now", "early", "early-tie", "late"}, got)
	assert.Equal(t, []time.Time{
		start,
		start.Add(10 * time.Millisecond),
		start.Add(10 * time.Millisecond),
		start.Add(30 * time.Millisecond),
	}, at)
	assert.Equal(t, start.Add(1010*time.Millisecond), v.Now())

	_, ok = v.Next()
	assert.False(t, ok)
}

func TestVirtualAdvanceChainsTimers(t *testing.T) {
	v := NewVirtual(start)

	var fired time.Time
	v.ScheduleAfter(time.Second, func() {
		v.ScheduleAfter(time.Second, func() { fired = v.Now() })
	})

	v.Advance(1500 * time.Millisecond)
	assert.True(t, fired.IsZero())

	v.Advance(time.Second)
	assert.Equal(t, start.Add(2*time.Second), fired)
}
