// Package transport sends and receives DNS messages over UDP and TCP
// unicast sockets to a configured name server.
package transport

import (
	"context"
	"net"
)

// rcvBufSize is the socket receive buffer size requested on platforms
// that support tuning it explicitly.
const rcvBufSize = 65536

// Transport sends a single query packet and waits for a single response
// packet from one name server. A Transport is not expected to be safe
// for concurrent use by multiple goroutines issuing different queries.
type Transport interface {
	// Send transmits packet to dest.
	Send(ctx context.Context, packet []byte, dest net.Addr) error

	// Receive waits for one incoming packet, honoring ctx's deadline.
	Receive(ctx context.Context) ([]byte, net.Addr, error)

	// Close releases the underlying socket.
	Close() error
}
