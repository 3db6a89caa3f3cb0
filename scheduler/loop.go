package scheduler

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Loop is a single goroutine event loop. Actions run one at a time in FIFO
// order; delayed actions join the queue when their timer fires.
type Loop struct {
	log *zap.Logger

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []func()
	timers map[*time.Timer]struct{}
	closed bool

	done chan struct{}
}

// NewLoop starts a loop. A nil log discards panics recovered from actions.
func NewLoop(log *zap.Logger) *Loop {
	if log == nil {
		log = zap.NewNop()
	}
	l := &Loop{
		log:    log,
		timers: make(map[*time.Timer]struct{}),
		done:   make(chan struct{}),
	}
	l.cond = sync.NewCond(&l.mu)
	go l.run()
	return l
}

// Now returns the wall clock time.
func (l *Loop) Now() time.Time {
	return time.Now()
}

// Schedule queues action. It is dropped if the loop is closed.
func (l *Loop) Schedule(action func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.queue = append(l.queue, action)
	l.cond.Signal()
}

// ScheduleAfter queues action once delay has elapsed.
func (l *Loop) ScheduleAfter(delay time.Duration, action func()) {
	if delay <= 0 {
		l.Schedule(action)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}

	// The timer callback takes mu, so it cannot run before t is tracked.
	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		l.mu.Lock()
		delete(l.timers, t)
		l.mu.Unlock()
		l.Schedule(action)
	})
	l.timers[t] = struct{}{}
}

// Flush blocks until every action queued before the call has run. It must not
// be called from an action.
func (l *Loop) Flush() {
	ran := make(chan struct{})
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.queue = append(l.queue, func() { close(ran) })
	l.cond.Signal()
	l.mu.Unlock()

	select {
	case <-ran:
	case <-l.done:
	}
}

// Close stops pending timers, discards queued actions and waits for the
// running action to return. It must not be called from an action.
func (l *Loop) Close() {
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		for t := range l.timers {
			t.Stop()
		}
		l.timers = nil
		l.queue = nil
		l.cond.Broadcast()
	}
	l.mu.Unlock()

	<-l.done
}

func (l *Loop) run() {
	defer close(l.done)

	for {
		l.mu.Lock()
		for len(l.queue) == 0 && !l.closed {
			l.cond.Wait()
		}
		if l.closed {
			l.mu.Unlock()
			return
		}
		action := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.mu.Unlock()

		l.call(action)
	}
}

func (l *Loop) call(action func()) {
	defer func() {
		if err := recover(); err != nil {
			buf := make([]byte, 4096)
			buf = buf[:runtime.Stack(buf, false)]
			l.log.Error("scheduler: panic in action",
				zap.String("panic", fmt.Sprint(err)),
				zap.ByteString("stack", buf))
		}
	}()
	action()
}
