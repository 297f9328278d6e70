package transport

import (
	"context"
	"fmt"
	"net"
	"syscall"

	"github.com/resolvkit/resolvkit/internal/errors"
)

// UDPTransport sends and receives unicast DNS messages over a single UDP
// socket bound to an ephemeral local port.
type UDPTransport struct {
	conn *net.UDPConn
}

// NewUDPTransport opens an unused local UDP port, with SO_REUSEADDR/
// SO_RCVBUF tuned via the platform-specific control function so a burst
// of EDNS(0)-sized responses doesn't overflow the kernel buffer.
func NewUDPTransport() (*UDPTransport, error) {
	return NewUDPTransportWithControl(PlatformControl)
}

// NewUDPTransportWithControl is NewUDPTransport with a caller-supplied
// socket control function in place of PlatformControl, for callers that
// need their own SO_REUSEADDR/SO_REUSEPORT/SO_RCVBUF tuning (e.g. a
// co-located test harness binding the same port range).
func NewUDPTransportWithControl(control func(network, address string, c syscall.RawConn) error) (*UDPTransport, error) {
	lc := net.ListenConfig{Control: control}
	pc, err := lc.ListenPacket(context.Background(), "udp", ":0")
	if err != nil {
		return nil, &errors.NetworkError{
			Operation: "create socket",
			Err:       err,
			Details:   "failed to bind unicast UDP socket",
		}
	}

	conn, ok := pc.(*net.UDPConn)
	if !ok {
		_ = pc.Close()
		return nil, &errors.NetworkError{
			Operation: "create socket",
			Err:       fmt.Errorf("unexpected PacketConn type %T", pc),
		}
	}

	return &UDPTransport{conn: conn}, nil
}

// Send transmits packet to dest, respecting ctx cancellation.
func (t *UDPTransport) Send(ctx context.Context, packet []byte, dest net.Addr) error {
	select {
	case <-ctx.Done():
		return &errors.NetworkError{Operation: "send query", Err: ctx.Err(), Details: "context canceled before send"}
	default:
	}

	n, err := t.conn.WriteTo(packet, dest)
	if err != nil {
		return &errors.NetworkError{
			Operation: "send query",
			Err:       err,
			Details:   fmt.Sprintf("failed to send %d bytes to %s", len(packet), dest),
		}
	}
	if n != len(packet) {
		return &errors.NetworkError{
			Operation: "send query",
			Err:       fmt.Errorf("partial write: %d/%d bytes", n, len(packet)),
		}
	}

	return nil
}

// Receive waits for one incoming packet, honoring ctx's deadline.
func (t *UDPTransport) Receive(ctx context.Context) ([]byte, net.Addr, error) {
	select {
	case <-ctx.Done():
		return nil, nil, &errors.NetworkError{Operation: "receive response", Err: ctx.Err(), Details: "context canceled before receive"}
	default:
	}

	if deadline, ok := ctx.Deadline(); ok {
		if err := t.conn.SetReadDeadline(deadline); err != nil {
			return nil, nil, &errors.NetworkError{Operation: "set read timeout", Err: err}
		}
	}

	bufPtr := GetBuffer()
	defer PutBuffer(bufPtr)
	buffer := *bufPtr

	n, srcAddr, err := t.conn.ReadFrom(buffer)
	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return nil, nil, &errors.NetworkError{Operation: "receive response", Err: err, Details: "timeout"}
		}
		return nil, nil, &errors.NetworkError{Operation: "receive response", Err: err, Details: "failed to read from socket"}
	}

	result := make([]byte, n)
	copy(result, buffer[:n])
	return result, srcAddr, nil
}

// LocalAddr returns the socket's bound local address.
func (t *UDPTransport) LocalAddr() net.Addr {
	return t.conn.LocalAddr()
}

// SyscallConn exposes the underlying socket's raw descriptor for use
// with the select-based multiplexed wait in WaitReadable.
func (t *UDPTransport) SyscallConn() (syscall.RawConn, error) {
	return t.conn.SyscallConn()
}

// Close releases the socket.
func (t *UDPTransport) Close() error {
	if t.conn == nil {
		return nil
	}
	if err := t.conn.Close(); err != nil {
		return &errors.NetworkError{Operation: "close socket", Err: err, Details: "failed to close UDP connection"}
	}
	return nil
}

var _ Transport = (*UDPTransport)(nil)
