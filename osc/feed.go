package osc

import (
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/zap"
)

// Feed is a broadcast channel of T. Emissions are delivered synchronously, in
// subscription order, on the goroutine that emits them. The zero value is not
// usable; feeds are created by a Stream.
type Feed[T any] struct {
	name string
	log  *zap.Logger

	mu     sync.Mutex
	subs   []*subscriber[T]
	closed bool

	once sync.Once
	done chan struct{}
}

type subscriber[T any] struct {
	next func(T)
	done func()
}

func newFeed[T any](name string, log *zap.Logger) *Feed[T] {
	return &Feed[T]{name: name, log: log, done: make(chan struct{})}
}

// Subscribe registers next to receive every later emission and done to be
// called once when the feed completes. Either may be nil. Subscribing to a
// completed feed calls done immediately. The returned cancel removes the
// subscription without calling done.
func (f *Feed[T]) Subscribe(next func(T), done func()) (cancel func()) {
	s := &subscriber[T]{next: next, done: done}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		if done != nil {
			done()
		}
		return func() {}
	}
	f.subs = append(f.subs, s)
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		for i, sub := range f.subs {
			if sub == s {
				f.subs = append(f.subs[:i:i], f.subs[i+1:]...)
				return
			}
		}
	}
}

// Done returns a channel that is closed when the feed completes.
func (f *Feed[T]) Done() <-chan struct{} {
	return f.done
}

// emit delivers v to every subscriber. It reports false if the feed is
// closed and v was dropped.
func (f *Feed[T]) emit(v T) bool {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return false
	}
	subs := f.subs
	f.mu.Unlock()

	for _, s := range subs {
		if s.next != nil {
			f.deliver(s, v)
		}
	}
	return true
}

// deliver runs one subscriber, so that a panicking subscriber neither stops
// the scheduler nor starves the subscribers after it.
func (f *Feed[T]) deliver(s *subscriber[T], v T) {
	defer func() {
		if err := recover(); err != nil {
			buf := make([]byte, 4096)
			buf = buf[:runtime.Stack(buf, false)]
			f.log.Error("osc: panic in feed subscriber",
				zap.String("feed", f.name),
				zap.String("panic", fmt.Sprint(err)),
				zap.ByteString("stack", buf))
		}
	}()
	s.next(v)
}

// close completes the feed: every subscriber's done runs exactly once and
// later emissions are dropped. It is idempotent.
func (f *Feed[T]) close() {
	f.once.Do(func() {
		f.mu.Lock()
		f.closed = true
		subs := f.subs
		f.subs = nil
		f.mu.Unlock()

		for _, s := range subs {
			if s.done != nil {
				s.done()
			}
		}
		close(f.done)
	})
}
