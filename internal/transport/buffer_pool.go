package transport

import (
	"sync"

	"github.com/resolvkit/resolvkit/internal/protocol"
)

// bufferPool holds receive buffers sized for EDNS(0)-advertised UDP
// payloads, avoiding a fresh allocation on every receive.
var bufferPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, protocol.MaxUDPPayloadEDNS)
		return &buf
	},
}

// GetBuffer returns a pointer to a pooled receive buffer.
//
// Caller MUST call PutBuffer() to return the buffer (use defer).
func GetBuffer() *[]byte {
	return bufferPool.Get().(*[]byte)
}

// PutBuffer returns a buffer to the pool for reuse. The buffer must not
// be used after this call.
func PutBuffer(bufPtr *[]byte) {
	buf := *bufPtr
	for i := range buf {
		buf[i] = 0
	}
	bufferPool.Put(bufPtr)
}
