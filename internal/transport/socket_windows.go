//go:build windows

package transport

import (
	"fmt"
	"syscall"

	"golang.org/x/sys/windows"
)

// setSocketOptions configures platform-specific socket options for
// Windows, which has no SO_RCVBUF-independent SO_REUSEPORT and where
// SO_REUSEADDR carries different semantics than POSIX; we only need the
// receive buffer bump here.
func setSocketOptions(fd uintptr) error {
	if err := windows.SetsockoptInt(windows.Handle(fd), windows.SOL_SOCKET, windows.SO_RCVBUF, rcvBufSize); err != nil {
		return fmt.Errorf("failed to set SO_RCVBUF: %w", err)
	}
	return nil
}

// getKernelVersion returns empty string on Windows (not applicable).
func getKernelVersion() string {
	return ""
}

func platformControl(_, _ string, c syscall.RawConn) error {
	var sockoptErr error
	err := c.Control(func(fd uintptr) {
		sockoptErr = setSocketOptions(fd)
	})
	if err != nil {
		return fmt.Errorf("raw conn control failed: %w", err)
	}
	return sockoptErr
}

// PlatformControl is passed to net.ListenConfig.Control when constructing
// the UDP/TCP sockets this package owns.
func PlatformControl(network, address string, c syscall.RawConn) error {
	return platformControl(network, address, c)
}
