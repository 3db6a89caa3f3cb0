package osc

import (
	"errors"
	"net"
	"time"

	"go.uber.org/zap"
)

// Server represents an OSC server. The server listens on Address and Port for
// incoming OSC packets and bundles, and hands every datagram to Stream.
type Server struct {
	Addr        string
	Stream      *Stream
	ReadTimeout time.Duration
	// Logger receives read and decode errors. Nil uses the stream's logger.
	Logger *zap.Logger
}

// ListenAndServe retrieves incoming OSC packets and forwards the retrieved OSC packets.
func (s *Server) ListenAndServe() error {
	if s.Stream == nil {
		return errors.New("ListenAndServe: server has no stream")
	}

	ln, err := net.ListenPacket("udp", s.Addr)
	if err != nil {
		return err
	}
	defer ln.Close()

	return s.Serve(ln)
}

// Serve retrieves incoming OSC packets from the given connection and forwards retrieved OSC packets.
// Malformed packets are logged and skipped. Serve returns nil once c is closed
// or the stream is closed, and the read error otherwise.
func (s *Server) Serve(c net.PacketConn) error {
	if s.Stream == nil {
		return errors.New("Serve: server has no stream")
	}
	log := s.logger()

	var tempDelay time.Duration
	for {
		data, addr, err := s.readFromConnection(c)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				if tempDelay == 0 {
					tempDelay = 5 * time.Millisecond
				} else {
					tempDelay *= 2
				}
				if max := 1 * time.Second; tempDelay > max {
					tempDelay = max
				}
				time.Sleep(tempDelay)
				continue
			}
			log.Error("osc: udp read failed", zap.Error(err))
			return err
		}
		tempDelay = 0

		if err := s.Stream.Receive(data); err != nil {
			if errors.Is(err, ErrStreamClosed) {
				return nil
			}
			log.Warn("osc: dropped packet", zap.Stringer("from", addr), zap.Error(err))
		}
	}
}

// ReceivePacket listens for incoming OSC packets and returns the packet if one is received.
// It decodes with the stream's coder, or the default one.
func (s *Server) ReceivePacket(c net.PacketConn) (Packet, net.Addr, error) {
	data, a, err := s.readFromConnection(c)
	if err != nil {
		return nil, a, err
	}

	coder := defaultCoder
	if s.Stream != nil {
		coder = s.Stream.Coder()
	}
	p, err := coder.decode(data)
	return p, a, err
}

// readFromConnection retrieves one datagram. The returned bytes are a copy.
func (s *Server) readFromConnection(c net.PacketConn) ([]byte, net.Addr, error) {
	if s.ReadTimeout != 0 {
		if err := c.SetReadDeadline(time.Now().Add(s.ReadTimeout)); err != nil {
			return nil, nil, err
		}
	}

	b := datagramPool.Get().(*[]byte)
	defer datagramPool.Put(b)

	n, a, err := c.ReadFrom(*b)
	if err != nil {
		return nil, a, err
	}
	bb := make([]byte, n)
	copy(bb, *b)

	return bb, a, nil
}

func (s *Server) logger() *zap.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return s.Stream.Logger()
}
