//go:build !windows

package transport

import (
	"context"
	"time"

	"golang.org/x/sys/unix"

	"github.com/resolvkit/resolvkit/internal/errors"
)

// WaitReadable blocks until at least one of the given UDP transports has
// a readable socket, the deadline carried by ctx elapses, or ctx is
// canceled. It returns the index into conns of a transport now readable,
// or -1 on timeout. It can multiplex a wait across several sockets, such
// as separate IPv4 and IPv6 ones; the transaction engine does not call
// it, as it waits on its single socket with Receive.
func WaitReadable(ctx context.Context, conns []*UDPTransport) (int, error) {
	if len(conns) == 0 {
		return -1, &errors.ProtocolError{Code: errors.CodeFdSet, Operation: "wait readable", Message: "no sockets to wait on"}
	}

	var fdset unix.FdSet
	fds := make([]int, len(conns))
	maxFd := 0

	for i, c := range conns {
		raw, err := c.SyscallConn()
		if err != nil {
			return -1, &errors.ProtocolError{Code: errors.CodeFdSet, Operation: "wait readable", Message: err.Error()}
		}
		var fd int
		ctrlErr := raw.Control(func(sysfd uintptr) {
			fd = int(sysfd)
		})
		if ctrlErr != nil {
			return -1, &errors.ProtocolError{Code: errors.CodeFdSet, Operation: "wait readable", Message: ctrlErr.Error()}
		}
		fds[i] = fd
		setFd(&fdset, fd)
		if fd > maxFd {
			maxFd = fd
		}
	}

	var timeout *unix.Timeval
	if deadline, ok := ctx.Deadline(); ok {
		d := time.Until(deadline)
		if d < 0 {
			d = 0
		}
		tv := unix.NsecToTimeval(d.Nanoseconds())
		timeout = &tv
	}

	n, err := unix.Select(maxFd+1, &fdset, nil, nil, timeout)
	if err != nil {
		return -1, &errors.ProtocolError{Code: errors.CodeFdSet, Operation: "select", Message: err.Error()}
	}
	if n == 0 {
		return -1, nil
	}

	for i, fd := range fds {
		if isFdSet(&fdset, fd) {
			return i, nil
		}
	}

	return -1, &errors.ProtocolError{Code: errors.CodeFdSet, Operation: "select", Message: "select reported readiness but no tracked descriptor matched"}
}

// setFd and isFdSet manipulate unix.FdSet's fixed-size bitmap directly,
// since its word width (int64 on Linux, int32 on Darwin) differs by
// GOOS and it exposes no portable Set/IsSet helpers. The total bit count
// behind FdSet is always FD_SETSIZE (1024), so the word width can be
// derived from len(Bits) instead of hardcoding it per platform.
func setFd(set *unix.FdSet, fd int) {
	wordBits := (1024 / len(set.Bits))
	word, bit := fd/wordBits, uint(fd%wordBits)
	set.Bits[word] |= 1 << bit
}

func isFdSet(set *unix.FdSet, fd int) bool {
	wordBits := (1024 / len(set.Bits))
	word, bit := fd/wordBits, uint(fd%wordBits)
	return set.Bits[word]&(1<<bit) != 0
}
