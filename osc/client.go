package osc

import (
	"fmt"
	"net"
)

// Client enables you to send OSC Packets to a specified server.
type Client struct {
	conn  *net.UDPConn
	coder *Coder
}

// Dial creates a new OSC Client with a connection to the specified server.
// The options configure the coder packets are encoded with.
func Dial(addr string, opts ...Option) (*Client, error) {
	a, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}

	conn, err := net.DialUDP("udp", nil, a)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn, coder: NewCoder(opts...)}, nil
}

// Send sends an OSC Packet to the server as a single datagram.
func (c *Client) Send(packet Packet) error {
	data, err := c.coder.Encode(packet)
	if err != nil {
		return err
	}
	if len(data) > MaxPacketSize {
		return fmt.Errorf("Send: packet of %d bytes exceeds %d", len(data), MaxPacketSize)
	}

	_, err = c.conn.Write(data)
	return err
}

// LocalAddr returns the local address of the connection.
func (c *Client) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// Close closes the connection to the server.
func (c *Client) Close() error {
	return c.conn.Close()
}
