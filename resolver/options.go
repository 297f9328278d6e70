package resolver

import (
	"syscall"
	"time"

	"github.com/resolvkit/resolvkit/internal/errors"
)

// Option is a functional option for configuring a Handle at construction.
//
// Example:
//
//	h, err := resolver.New(
//	    resolver.WithNameserver("1.1.1.1"),
//	    resolver.WithTimeout(5*time.Second),
//	)
type Option func(*Handle) error

// WithNameserver replaces the handle's name-server table with a single
// explicit server on the default DNS port (53). Omit this option to fall
// back to parsing /etc/resolv.conf, and ultimately to loopback, per
// nsconfig's default chain.
func WithNameserver(host string) Option {
	return func(h *Handle) error {
		return h.table.SetNameserver(host)
	}
}

// WithNameserverPort is WithNameserver with an explicit port instead of
// the default 53.
func WithNameserverPort(host, port string) Option {
	return func(h *Handle) error {
		return h.table.SetNameserverPort(host, port)
	}
}

// WithTimeout overrides the per-event-step wait duration used by the
// transaction engine's retry schedule. The default matches the engine's
// built-in Script timings (2s/2s/4s); setting this scales all three
// steps by the ratio of timeout to the default first-step wait.
func WithTimeout(timeout time.Duration) Option {
	return func(h *Handle) error {
		if timeout <= 0 {
			return &errors.ValidationError{Field: "timeout", Value: timeout, Message: "timeout must be positive"}
		}
		h.timeout = timeout
		return nil
	}
}

// WithRetryBudget caps how many of the transaction engine's Ask steps a
// single Result call will attempt before giving up, instead of running
// the full fixed script. A budget of 0 (the default) means "run the
// whole script".
func WithRetryBudget(n int) Option {
	return func(h *Handle) error {
		if n < 0 {
			return &errors.ValidationError{Field: "retryBudget", Value: n, Message: "retry budget cannot be negative"}
		}
		h.retryBudget = n
		return nil
	}
}

// WithLogger wires a structured logger for the handle's diagnostic
// output (a warning when a query's Result fails). The default is a no-op
// logger.
func WithLogger(logger Logger) Option {
	return func(h *Handle) error {
		if logger == nil {
			return &errors.ValidationError{Field: "logger", Value: nil, Message: "logger cannot be nil"}
		}
		h.logger = logger
		return nil
	}
}

// WithIDNA enables (or, passed false, explicitly disables — it is off
// by default) RFC 5891 IDNA normalization of query names before wire
// encoding, so callers can pass Unicode domain names directly.
func WithIDNA(enabled bool) Option {
	return func(h *Handle) error {
		h.idna = enabled
		return nil
	}
}

// WithSocketControl overrides the platform socket-options hook applied
// to the handle's own UDP socket at construction (by default,
// transport.PlatformControl's SO_REUSEADDR/SO_RCVBUF tuning). Use this
// when a caller needs SO_REUSEPORT or other semantics of their own —
// for example a test harness binding several handles to the same port
// range.
func WithSocketControl(control func(network, address string, c syscall.RawConn) error) Option {
	return func(h *Handle) error {
		if control == nil {
			return &errors.ValidationError{Field: "socketControl", Value: nil, Message: "control function cannot be nil"}
		}
		h.socketControl = control
		return nil
	}
}

// WithRecursionDesired sets the RD bit sent with every query. Default:
// true (recursive resolution against the configured servers).
func WithRecursionDesired(desired bool) Option {
	return func(h *Handle) error {
		h.recursionDesired = desired
		return nil
	}
}
