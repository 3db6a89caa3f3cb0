package osc

import (
	"bytes"
	"sync"
)

// initialBufferSize covers typical control messages without growing.
const initialBufferSize = 512

var (
	bufPool = sync.Pool{
		New: func() interface{} {
			return bytes.NewBuffer(make([]byte, 0, initialBufferSize))
		},
	}
	// datagramPool holds read buffers large enough for any UDP packet.
	datagramPool = sync.Pool{
		New: func() interface{} {
			b := make([]byte, MaxPacketSize)
			return &b
		},
	}
)

func getBuffer() *bytes.Buffer {
	buf := bufPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// putBuffer returns buf to the pool unless it grew past MaxPacketSize.
func putBuffer(buf *bytes.Buffer) {
	if buf.Cap() > MaxPacketSize {
		return
	}
	bufPool.Put(buf)
}
