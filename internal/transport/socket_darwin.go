//go:build darwin

package transport

import (
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"
)

// setSocketOptions configures platform-specific socket options for macOS.
func setSocketOptions(fd uintptr) error {
	if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return fmt.Errorf("failed to set SO_REUSEADDR: %w", err)
	}

	if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, rcvBufSize); err != nil {
		return fmt.Errorf("failed to set SO_RCVBUF: %w", err)
	}

	return nil
}

// getKernelVersion returns empty string on macOS; Darwin versioning
// doesn't map to anything this package's callers act on.
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
