//go:build windows

package transport

import (
	"context"

	"github.com/resolvkit/resolvkit/internal/errors"
)

// WaitReadable is not implemented on Windows, which has no equivalent to
// golang.org/x/sys/unix.Select exposed through this package's socket
// abstraction. Callers on Windows must poll transports individually with
// their own read deadlines instead of multiplexing a single wait.
func WaitReadable(_ context.Context, _ []*UDPTransport) (int, error) {
	return -1, &errors.ProtocolError{
		Code:      errors.CodeFdSet,
		Operation: "wait readable",
		Message:   "multiplexed select is not supported on windows",
	}
}
