// Package wstransport carries OSC packets over WebSocket connections.
//
// Each binary frame holds one encoded packet. Text frames hold the JSON form
// of a packet, see package oscjson.
package wstransport

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/chabad360/oscwire/osc"
	"github.com/chabad360/oscwire/oscjson"
)

// DefaultMaxMessageSize bounds incoming frames when no limit is configured.
const DefaultMaxMessageSize = 1 << 20

const closeGracePeriod = time.Second

// Handler upgrades HTTP requests to WebSocket connections and hands every
// frame it reads to Stream.
type Handler struct {
	Stream   *osc.Stream
	Upgrader websocket.Upgrader
	// MaxMessageSize limits the size of one frame. Zero means
	// DefaultMaxMessageSize.
	MaxMessageSize int64
	// Logger receives connection and decode errors. Nil uses the stream's logger.
	Logger *zap.Logger

	mu     sync.Mutex
	conns  map[*websocket.Conn]struct{}
	closed bool
	wg     sync.WaitGroup

	once sync.Once
	json *oscjson.Coder
}

// NewHandler returns a handler feeding s that accepts any origin.
func NewHandler(s *osc.Stream) *Handler {
	return &Handler{
		Stream: s,
		Upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP implements http.Handler. It reads frames until the peer goes
// away or the handler is closed.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Stream == nil {
		http.Error(w, "no stream", http.StatusInternalServerError)
		return
	}
	if h.isClosed() {
		http.Error(w, "closed", http.StatusServiceUnavailable)
		return
	}
	log := h.logger().With(zap.String("from", r.RemoteAddr))

	conn, err := h.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug("osc: websocket upgrade failed", zap.Error(err))
		return
	}
	if !h.track(conn) {
		conn.Close()
		return
	}
	defer h.untrack(conn)
	defer conn.Close()

	limit := h.MaxMessageSize
	if limit <= 0 {
		limit = DefaultMaxMessageSize
	}
	conn.SetReadLimit(limit)

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && !h.isClosed() {
				log.Warn("osc: websocket read failed", zap.Error(err))
			}
			return
		}

		switch kind {
		case websocket.BinaryMessage:
			err = h.Stream.Receive(data)
		case websocket.TextMessage:
			err = h.receiveJSON(data)
		default:
			continue
		}
		if err != nil {
			if errors.Is(err, osc.ErrStreamClosed) {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "stream closed"),
					time.Now().Add(closeGracePeriod))
				return
			}
			log.Warn("osc: dropped packet", zap.Error(err))
		}
	}
}

func (h *Handler) receiveJSON(data []byte) error {
	return h.Stream.ReceiveDecoded(h.text().Unmarshal(data))
}

// text returns the JSON coder matching the stream's binary coder.
func (h *Handler) text() *oscjson.Coder {
	h.once.Do(func() {
		h.json = oscjson.NewCoder(oscjson.WithCoder(h.Stream.Coder()))
	})
	return h.json
}

// Close closes every open connection and waits for their read loops to
// finish. Later upgrades are refused.
func (h *Handler) Close() error {
	h.mu.Lock()
	h.closed = true
	for conn := range h.conns {
		conn.Close()
	}
	h.mu.Unlock()

	h.wg.Wait()
	return nil
}

func (h *Handler) track(conn *websocket.Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	if h.conns == nil {
		h.conns = make(map[*websocket.Conn]struct{})
	}
	h.conns[conn] = struct{}{}
	h.wg.Add(1)
	return true
}

func (h *Handler) untrack(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
	h.wg.Done()
}

func (h *Handler) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

func (h *Handler) logger() *zap.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return h.Stream.Logger()
}

// Client sends packets over one WebSocket connection. It is safe for
// concurrent use.
type Client struct {
	mu    sync.Mutex
	conn  *websocket.Conn
	coder *osc.Coder
}

// Dial connects to the WebSocket endpoint at url. The options configure the
// coder packets are encoded with.
func Dial(ctx context.Context, url string, opts ...osc.Option) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn, coder: osc.NewCoder(opts...)}, nil
}

// Send writes packet as one binary frame.
func (c *Client) Send(packet osc.Packet) error {
	data, err := c.coder.Encode(packet)
	if err != nil {
		return err
	}
	return c.write(websocket.BinaryMessage, data)
}

// SendJSON writes the JSON form of packet as one text frame.
func (c *Client) SendJSON(packet osc.Packet) error {
	data, err := oscjson.NewCoder(oscjson.WithCoder(c.coder)).Marshal(packet)
	if err != nil {
		return err
	}
	return c.write(websocket.TextMessage, data)
}

func (c *Client) write(kind int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(kind, data)
}

// Close sends a close frame and closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	err := c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(closeGracePeriod))
	c.mu.Unlock()

	if cerr := c.conn.Close(); err == nil {
		err = cerr
	}
	return err
}
