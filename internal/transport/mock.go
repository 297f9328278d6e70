package transport

import (
	"context"
	"net"
	"sync"

	"github.com/resolvkit/resolvkit/internal/errors"
)

// MockTransport is a test double for Transport, recording every Send()
// call and serving pre-queued responses from Receive(), so the
// transaction engine can be tested without real sockets.
type MockTransport struct {
	mu        sync.Mutex
	sendCalls []SendCall
	responses []QueuedResponse
	closed    bool
}

// SendCall records a single Send() invocation.
type SendCall struct {
	Packet []byte
	Dest   net.Addr
}

// QueuedResponse is a canned Receive() result, consumed FIFO. When no
// response is queued, Receive blocks until ctx is done, simulating a
// server that never answers.
type QueuedResponse struct {
	Packet []byte
	From   net.Addr
	Err    error
}

// NewMockTransport creates an empty mock transport.
func NewMockTransport() *MockTransport {
	return &MockTransport{
		sendCalls: make([]SendCall, 0),
	}
}

// QueueResponse appends a response to be returned by a future Receive().
func (m *MockTransport) QueueResponse(r QueuedResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, r)
}

// Send records the call for later verification via SendCalls.
func (m *MockTransport) Send(_ context.Context, packet []byte, dest net.Addr) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sendCalls = append(m.sendCalls, SendCall{
		Packet: append([]byte(nil), packet...), // copy to avoid aliasing
		Dest:   dest,
	})

	return nil
}

// Receive returns the next queued response, or blocks until ctx is done
// if none is queued.
func (m *MockTransport) Receive(ctx context.Context) ([]byte, net.Addr, error) {
	m.mu.Lock()
	if len(m.responses) > 0 {
		next := m.responses[0]
		m.responses = m.responses[1:]
		m.mu.Unlock()
		return next.Packet, next.From, next.Err
	}
	m.mu.Unlock()

	<-ctx.Done()
	return nil, nil, &errors.NetworkError{Operation: "receive response", Err: ctx.Err(), Details: "no queued response and context ended"}
}

// Close marks the transport as closed.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}

// SendCalls returns a copy of every recorded Send() call.
func (m *MockTransport) SendCalls() []SendCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([]SendCall, len(m.sendCalls))
	copy(calls, m.sendCalls)
	return calls
}

var _ Transport = (*MockTransport)(nil)
