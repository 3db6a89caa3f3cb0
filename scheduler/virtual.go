package scheduler

import (
	"container/heap"
	"sync"
	"time"
)

// Virtual is a scheduler driven by a manual clock. Nothing runs until
// RunPending or Advance is called, on the calling goroutine.
type Virtual struct {
	mu    sync.Mutex
	now   time.Time
	seq   uint64
	asap  []func()
	timed timerHeap
}

// NewVirtual returns a virtual scheduler whose clock reads start.
func NewVirtual(start time.Time) *Virtual {
	return &Virtual{now: start}
}

// Now returns the virtual clock.
func (v *Virtual) Now() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.now
}

// Schedule queues action to run on the next RunPending or Advance.
func (v *Virtual) Schedule(action func()) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.asap = append(v.asap, action)
}

// ScheduleAfter queues action to run once the clock has advanced by delay.
func (v *Virtual) ScheduleAfter(delay time.Duration, action func()) {
	if delay <= 0 {
		v.Schedule(action)
		return
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.seq++
	heap.Push(&v.timed, &timer{at: v.now.Add(delay), seq: v.seq, action: action})
}

// Pending returns the number of queued actions, due or not.
func (v *Virtual) Pending() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.asap) + len(v.timed)
}

// Next returns the time of the earliest delayed action.
func (v *Virtual) Next() (time.Time, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.timed) == 0 {
		return time.Time{}, false
	}
	return v.timed[0].at, true
}

// RunPending runs queued actions and due delayed actions, including those
// they schedule, until none are left. It returns how many ran.
func (v *Virtual) RunPending() int {
	n := 0
	for {
		v.mu.Lock()
		var action func()
		switch {
		case len(v.asap) > 0:
			action = v.asap[0]
			v.asap[0] = nil
			v.asap = v.asap[1:]
		case len(v.timed) > 0 && !v.timed[0].at.After(v.now):
			action = heap.Pop(&v.timed).(*timer).action
		}
		v.mu.Unlock()

		if action == nil {
			return n
		}
		action()
		n++
	}
}

// Advance moves the clock forward by d, running every action that comes due
// at its due time: delayed actions run in due time order, ties in the order
// they were scheduled. It returns how many actions ran.
func (v *Virtual) Advance(d time.Duration) int {
	v.mu.Lock()
	target := v.now.Add(d)
	v.mu.Unlock()

	n := 0
	for {
		n += v.RunPending()

		v.mu.Lock()
		if len(v.timed) == 0 || v.timed[0].at.After(target) {
			v.now = target
			v.mu.Unlock()
			break
		}
		t := heap.Pop(&v.timed).(*timer)
		if t.at.After(v.now) {
			v.now = t.at
		}
		v.mu.Unlock()

		t.action()
		n++
	}

	return n + v.RunPending()
}

type timer struct {
	at     time.Time
	seq    uint64
	action func()
}

// timerHeap orders timers by due time, then by scheduling order.
type timerHeap []*timer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].at.Equal(h[j].at) {
		return h[i].seq < h[j].seq
	}
	return h[i].at.Before(h[j].at)
}

func (h timerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *timerHeap) Push(x any) { *h = append(*h, x.(*timer)) }

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return t
}
