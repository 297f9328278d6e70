//go:build linux

package transport

import (
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"
)

// setSocketOptions configures platform-specific socket options for Linux.
// SO_REUSEADDR lets a rapid succession of short-lived query sockets rebind
// a local port still draining through TIME_WAIT. SO_RCVBUF is raised so a
// burst of EDNS(0)-sized UDP responses from a slow-to-drain server doesn't
// overflow the kernel socket buffer.
func setSocketOptions(fd uintptr) error {
	if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return fmt.Errorf("failed to set SO_REUSEADDR: %w", err)
	}

	if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, rcvBufSize); err != nil {
		return fmt.Errorf("failed to set SO_RCVBUF: %w", err)
	}

	return nil
}

// getKernelVersion returns the Linux kernel version string for logging.
// Format: "3.10.0-1160.el7.x86_64"
func getKernelVersion() string {
	var uname unix.Utsname
	if err := unix.Uname(&uname); err != nil {
		return "unknown"
	}

	release := make([]byte, 0, len(uname.Release))
	for _, b := range uname.Release {
		if b == 0 {
			break
		}
		release = append(release, byte(b))
	}

	return string(release)
}

// Control function for net.ListenConfig on Linux.
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
