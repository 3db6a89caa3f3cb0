package osc

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Scheduler runs forwarding actions. Actions passed to Schedule run as soon as
// possible, in the order they were scheduled.
type Scheduler interface {
	Now() time.Time
	Schedule(action func())
	ScheduleAfter(delay time.Duration, action func())
}

// Feed names, also used as metric labels.
const (
	feedPacket  = "packet"
	feedMessage = "message"
	feedBundle  = "bundle"
)

// Stream unpacks received packets into three feeds:
//
//   - Packets: every top-level packet, and every message in a bundle.
//   - Messages: every message, at any depth, once its enclosing bundles
//     are due.
//   - Bundles: top-level bundles only.
//
// Nested bundles with a time tag are delivered after the delay between that
// time and the scheduler's clock when their parent is unpacked.
type Stream struct {
	sched    Scheduler
	coder    *Coder
	suppress bool
	log      *zap.Logger
	metrics  *Metrics

	packets  *Feed[Packet]
	messages *Feed[*Message]
	bundles  *Feed[*Bundle]

	closed    atomic.Bool
	closeOnce sync.Once
}

// StreamOption configures a Stream.
type StreamOption func(*Stream)

// WithSuppressParsingErrors makes Receive drop packets that fail to decode
// instead of returning the error.
func WithSuppressParsingErrors(suppress bool) StreamOption {
	return func(s *Stream) {
		s.suppress = suppress
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) StreamOption {
	return func(s *Stream) {
		s.log = l
	}
}

// WithMetrics sets the metrics the stream records to.
func WithMetrics(m *Metrics) StreamOption {
	return func(s *Stream) {
		s.metrics = m
	}
}

// WithCoder sets the coder Receive decodes with.
func WithCoder(c *Coder) StreamOption {
	return func(s *Stream) {
		s.coder = c
	}
}

// NewStream returns a stream forwarding on sched.
func NewStream(sched Scheduler, opts ...StreamOption) *Stream {
	s := &Stream{sched: sched}
	for _, opt := range opts {
		opt(s)
	}
	s.coder = coderOr(s.coder)
	s.log = loggerOr(s.log)

	s.packets = newFeed[Packet](feedPacket, s.log)
	s.messages = newFeed[*Message](feedMessage, s.log)
	s.bundles = newFeed[*Bundle](feedBundle, s.log)
	return s
}

// Packets returns the packet feed.
func (s *Stream) Packets() *Feed[Packet] { return s.packets }

// Messages returns the message feed.
func (s *Stream) Messages() *Feed[*Message] { return s.messages }

// Bundles returns the bundle feed.
func (s *Stream) Bundles() *Feed[*Bundle] { return s.bundles }

// Coder returns the coder Receive decodes with.
func (s *Stream) Coder() *Coder { return s.coder }

// Logger returns the stream's logger.
func (s *Stream) Logger() *zap.Logger { return s.log }

// Receive decodes one complete packet, fully materializes it and forwards it.
// A packet that fails to decode is dropped, and the error returned unless
// parsing errors are suppressed.
func (s *Stream) Receive(data []byte) error {
	if s.closed.Load() {
		return ErrStreamClosed
	}

	p, err := s.coder.Decode(data)
	return s.receive(p, err, zap.Int("size", len(data)))
}

// ReceiveDecoded is Receive for a packet decoded by other means, such as its
// JSON form. A non-nil decodeErr is handled like a failed binary decode.
func (s *Stream) ReceiveDecoded(p Packet, decodeErr error) error {
	if s.closed.Load() {
		return ErrStreamClosed
	}
	if decodeErr == nil && p == nil {
		decodeErr = malformed("Stream.ReceiveDecoded", "nil packet")
	}
	return s.receive(p, decodeErr)
}

func (s *Stream) receive(p Packet, err error, fields ...zap.Field) error {
	if err == nil {
		err = Materialize(p)
	}
	if err != nil {
		s.metrics.parseError(s.suppress)
		if s.suppress {
			s.log.Debug("osc: dropped malformed packet", append(fields, zap.Error(err))...)
			return nil
		}
		return err
	}

	s.metrics.packetReceived(p)
	s.Forward(p)
	return nil
}

// Forward schedules the delivery of p and, for a bundle, of its contents.
// Packets that are not fully decoded are materialized as they are unpacked;
// a bundle whose elements fail to decode is logged and its contents dropped.
func (s *Stream) Forward(p Packet) {
	if s.closed.Load() {
		return
	}

	s.emit(feedPacket, func() bool { return s.packets.emit(p) })

	switch p := p.(type) {
	case *Message:
		s.emit(feedMessage, func() bool { return s.messages.emit(p) })
	case *Bundle:
		s.forwardBundle(p, true)
	}
}

func (s *Stream) forwardBundle(b *Bundle, emitSelf bool) {
	if s.closed.Load() {
		return
	}

	if emitSelf {
		s.emit(feedBundle, func() bool { return s.bundles.emit(b) })
	}

	elems, err := b.Elements()
	if err != nil {
		s.log.Warn("osc: dropped undecodable bundle contents", zap.Uint64("timetag", b.Timetag.TimeTag()), zap.Error(err))
		return
	}

	for _, e := range elems {
		if m, ok := e.(*Message); ok {
			s.emit(feedMessage, func() bool { return s.messages.emit(m) })
			s.emit(feedPacket, func() bool { return s.packets.emit(m) })
		}
	}

	for _, e := range elems {
		nested, ok := e.(*Bundle)
		if !ok {
			continue
		}

		if nested.Timetag.IsImmediate() {
			s.sched.Schedule(func() { s.forwardBundle(nested, false) })
			continue
		}

		delay := nested.Timetag.Time().Sub(s.sched.Now())
		if delay < 0 {
			delay = 0
		}
		s.metrics.delayScheduled(delay)
		s.sched.ScheduleAfter(delay, func() { s.forwardBundle(nested, false) })
	}
}

// emit schedules one feed emission.
func (s *Stream) emit(feed string, fn func() bool) {
	s.sched.Schedule(func() {
		if fn() {
			s.metrics.eventForwarded(feed)
		}
	})
}

// Close stops forwarding and completes the three feeds. Delayed deliveries
// that come due afterwards are dropped. It is idempotent.
func (s *Stream) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.packets.close()
		s.messages.close()
		s.bundles.close()
	})
}
