// Package validate checks an inbound DNS response against the
// transaction that supposedly provoked it, before the transaction engine
// treats the response as the answer to any in-flight query.
package validate

import (
	"bytes"
	"net"

	"github.com/resolvkit/resolvkit/internal/errors"
	"github.com/resolvkit/resolvkit/internal/nsconfig"
	"github.com/resolvkit/resolvkit/internal/wire"
)

// Result carries the outcome of a successful validation: which configured
// server answered, so the caller can update that server's EDNS/UDP-size
// state and mark the transaction done.
type Result struct {
	ServerIndex int
}

// Response checks that msg is a well-formed answer to the query built for
// questionID against the given server table, received from src. It
// recomputes server matching from scratch on every call rather than
// caching which server last answered, since a prior transaction's answer
// says nothing about this one.
//
// The checks, in order: the source address must belong to a server this
// transaction actually asked; the transaction ID (after undoing that
// server's IDMask) must match questionID; the QR bit must be set; the
// question section echoed back must byte-for-byte match questionBytes.
// The RA (recursion available) bit is deliberately not checked — plenty
// of authoritative-only servers never set it on answers this resolver is
// otherwise happy to use.
func Response(msg []byte, questionID uint16, questionBytes []byte, src *net.UDPAddr, table *nsconfig.Table) (Result, error) {
	idx, srv := matchServer(src, table)
	if srv == nil {
		return Result{}, &errors.ProtocolError{
			Code:      errors.CodeNsInvalid,
			Operation: "validate response",
			Message:   "response from unasked server " + src.String(),
		}
	}
	if !srv.Asked {
		return Result{}, &errors.ProtocolError{
			Code:      errors.CodeNsInvalid,
			Operation: "validate response",
			Message:   "response from server not asked this transaction: " + src.String(),
		}
	}

	header, err := wire.ParseHeader(msg)
	if err != nil {
		return Result{}, err
	}

	gotID := header.ID ^ srv.IDMask
	if gotID != questionID {
		return Result{}, &errors.ProtocolError{
			Code:      errors.CodeNsInvalid,
			Operation: "validate response",
			Message:   "transaction ID mismatch",
		}
	}

	if !header.IsResponse() {
		return Result{}, &errors.ProtocolError{
			Code:      errors.CodeNotResponse,
			Operation: "validate response",
			Message:   "QR bit not set",
		}
	}

	if header.QDCount < 1 {
		return Result{}, &errors.ProtocolError{
			Code:      errors.CodeQuestionWrong,
			Operation: "validate response",
			Message:   "no question section in response",
		}
	}

	if len(questionBytes) < 12 || len(msg) < len(questionBytes) || !bytes.Equal(msg[12:len(questionBytes)], questionBytes[12:]) {
		return Result{}, &errors.ProtocolError{
			Code:      errors.CodeQuestionWrong,
			Operation: "validate response",
			Message:   "echoed question does not match",
		}
	}

	return Result{ServerIndex: idx}, nil
}

// Truncated reports whether msg's TC bit is set. The caller uses this to
// retry over TCP rather than treating the response as final — truncation
// is not itself a validation failure.
func Truncated(msg []byte) (bool, error) {
	header, err := wire.ParseHeader(msg)
	if err != nil {
		return false, err
	}
	return header.IsTruncated(), nil
}

func matchServer(src *net.UDPAddr, table *nsconfig.Table) (int, *nsconfig.Server) {
	for i, srv := range table.Servers() {
		if srv.Addr.IP.Equal(src.IP) && srv.Addr.Port == src.Port {
			return i, srv
		}
	}
	return -1, nil
}
