package osc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
)

// frameHeaderSize is the length prefix of a stream frame.
const frameHeaderSize = 4

// DefaultMaxFrameSize bounds frames read when no limit is configured.
const DefaultMaxFrameSize = 1 << 20

// WriteFrame writes data to w as one frame: a 4-byte big-endian length
// followed by the data, in a single Write.
func WriteFrame(w io.Writer, data []byte) error {
	frame := make([]byte, frameHeaderSize, frameHeaderSize+len(data))
	binary.BigEndian.PutUint32(frame, uint32(len(data)))
	frame = append(frame, data...)

	_, err := w.Write(frame)
	return err
}

// ReadFrame reads one frame from r. Frames longer than max bytes are an
// error; max <= 0 means DefaultMaxFrameSize. A clean end of stream before
// the header is io.EOF.
func ReadFrame(r io.Reader, max int) ([]byte, error) {
	if max <= 0 {
		max = DefaultMaxFrameSize
	}

	var header [frameHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}

	length := binary.BigEndian.Uint32(header[:])
	if uint64(length) > uint64(max) {
		return nil, fmt.Errorf("ReadFrame: frame of %d bytes exceeds %d", length, max)
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("ReadFrame: %w", err)
	}
	return data, nil
}

// TCPServer accepts stream connections carrying length-prefixed packets and
// hands every frame to Stream.
type TCPServer struct {
	Addr         string
	Stream       *Stream
	ReadTimeout  time.Duration
	MaxFrameSize int
	// Logger receives connection and decode errors. Nil uses the stream's logger.
	Logger *zap.Logger

	mu     sync.Mutex
	ln     net.Listener
	conns  map[net.Conn]struct{}
	closed bool
	wg     sync.WaitGroup
}

// ListenAndServe listens on Addr and serves connections until Close.
func (s *TCPServer) ListenAndServe() error {
	if s.Stream == nil {
		return errors.New("ListenAndServe: server has no stream")
	}

	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln, one goroutine per connection. It returns
// nil after Close, and the accept error otherwise.
func (s *TCPServer) Serve(ln net.Listener) error {
	if s.Stream == nil {
		return errors.New("Serve: server has no stream")
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		ln.Close()
		return nil
	}
	s.ln = ln
	if s.conns == nil {
		s.conns = make(map[net.Conn]struct{})
	}
	s.mu.Unlock()
	defer ln.Close()

	log := s.logger()

	var tempDelay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.isClosed() || errors.Is(err, net.ErrClosed) {
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
			log.Error("osc: tcp accept failed", zap.Error(err))
			return err
		}
		tempDelay = 0

		if !s.track(conn) {
			conn.Close()
			return nil
		}
		s.wg.Add(1)
		go s.serveConn(conn, log)
	}
}

func (s *TCPServer) serveConn(conn net.Conn, log *zap.Logger) {
	defer s.wg.Done()
	defer s.untrack(conn)
	defer conn.Close()

	remote := conn.RemoteAddr().String()
	for {
		if s.ReadTimeout != 0 {
			if err := conn.SetReadDeadline(time.Now().Add(s.ReadTimeout)); err != nil {
				log.Warn("osc: tcp set deadline failed", zap.String("from", remote), zap.Error(err))
				return
			}
		}

		data, err := ReadFrame(conn, s.MaxFrameSize)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				log.Warn("osc: tcp read failed", zap.String("from", remote), zap.Error(err))
			}
			return
		}

		if err := s.Stream.Receive(data); err != nil {
			if errors.Is(err, ErrStreamClosed) {
				return
			}
			log.Warn("osc: dropped packet", zap.String("from", remote), zap.Error(err))
		}
	}
}

// Close stops accepting, closes every open connection and waits for their
// read loops to finish.
func (s *TCPServer) Close() error {
	s.mu.Lock()
	s.closed = true
	var err error
	if s.ln != nil {
		err = s.ln.Close()
	}
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	if errors.Is(err, net.ErrClosed) {
		err = nil
	}
	return err
}

func (s *TCPServer) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *TCPServer) untrack(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
}

func (s *TCPServer) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *TCPServer) logger() *zap.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return s.Stream.Logger()
}

// TCPClient sends length-prefixed packets over one stream connection. It is
// safe for concurrent use.
type TCPClient struct {
	mu    sync.Mutex
	conn  net.Conn
	coder *Coder
}

// DialTCP connects to a TCPServer. The options configure the coder packets
// are encoded with.
func DialTCP(addr string, opts ...Option) (*TCPClient, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &TCPClient{conn: conn, coder: NewCoder(opts...)}, nil
}

// Send writes packet as one frame.
func (c *TCPClient) Send(packet Packet) error {
	data, err := c.coder.Encode(packet)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return WriteFrame(c.conn, data)
}

// Close closes the connection.
func (c *TCPClient) Close() error {
	return c.conn.Close()
}
