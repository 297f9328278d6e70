package transport

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"

	"github.com/resolvkit/resolvkit/internal/errors"
)

// TCPTransport sends and receives a single DNS message over TCP using
// the 2-byte big-endian length prefix required by RFC 1035 §4.2.2, for
// use when a UDP response comes back truncated (TC bit set) or a query
// is simply too large to risk over UDP.
type TCPTransport struct {
	conn net.Conn
}

// DialTCP opens a TCP connection to dest. The connection is one-shot:
// Send then Receive then Close, matching how a truncated-UDP retry is
// driven by the transaction engine.
func DialTCP(ctx context.Context, dest net.Addr) (*TCPTransport, error) {
	dialer := net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", dest.String())
	if err != nil {
		return nil, &errors.NetworkError{
			Operation: "dial TCP",
			Err:       err,
			Details:   fmt.Sprintf("failed to connect to %s", dest),
		}
	}
	return &TCPTransport{conn: conn}, nil
}

// Send writes packet prefixed with its 2-byte length.
func (t *TCPTransport) Send(ctx context.Context, packet []byte, _ net.Addr) error {
	if len(packet) > 0xFFFF {
		return &errors.ValidationError{Field: "packet", Value: len(packet), Message: "message too large for TCP length prefix"}
	}

	if deadline, ok := ctx.Deadline(); ok {
		if err := t.conn.SetWriteDeadline(deadline); err != nil {
			return &errors.NetworkError{Operation: "set write deadline", Err: err}
		}
	}

	var prefix [2]byte
	binary.BigEndian.PutUint16(prefix[:], uint16(len(packet)))

	if _, err := t.conn.Write(prefix[:]); err != nil {
		return &errors.NetworkError{Operation: "send TCP length prefix", Err: err}
	}
	if _, err := t.conn.Write(packet); err != nil {
		return &errors.NetworkError{Operation: "send TCP message", Err: err}
	}
	return nil
}

// Receive reads one length-prefixed message.
func (t *TCPTransport) Receive(ctx context.Context) ([]byte, net.Addr, error) {
	if deadline, ok := ctx.Deadline(); ok {
		if err := t.conn.SetReadDeadline(deadline); err != nil {
			return nil, nil, &errors.NetworkError{Operation: "set read deadline", Err: err}
		}
	}

	var prefix [2]byte
	if _, err := io.ReadFull(t.conn, prefix[:]); err != nil {
		return nil, nil, &errors.NetworkError{Operation: "read TCP length prefix", Err: err}
	}

	length := binary.BigEndian.Uint16(prefix[:])
	msg := make([]byte, length)
	if _, err := io.ReadFull(t.conn, msg); err != nil {
		return nil, nil, &errors.NetworkError{Operation: "read TCP message", Err: err}
	}

	return msg, t.conn.RemoteAddr(), nil
}

// Close releases the connection.
func (t *TCPTransport) Close() error {
	if t.conn == nil {
		return nil
	}
	if err := t.conn.Close(); err != nil {
		return &errors.NetworkError{Operation: "close TCP connection", Err: err}
	}
	return nil
}

var _ Transport = (*TCPTransport)(nil)
