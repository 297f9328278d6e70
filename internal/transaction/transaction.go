// Package transaction drives a single query through the resolver's fixed
// retry schedule across the configured name servers, validating each
// response and falling back to TCP when a UDP answer comes back
// truncated.
package transaction

import (
	"context"
	"crypto/rand"
	"math/big"
	"net"
	"time"

	"github.com/resolvkit/resolvkit/internal/errors"
	"github.com/resolvkit/resolvkit/internal/join"
	"github.com/resolvkit/resolvkit/internal/nsconfig"
	"github.com/resolvkit/resolvkit/internal/protocol"
	"github.com/resolvkit/resolvkit/internal/transport"
	"github.com/resolvkit/resolvkit/internal/validate"
	"github.com/resolvkit/resolvkit/internal/wire"
)

// ScriptStep is one ASK or WAIT event in the transaction engine's retry
// schedule.
type ScriptStep struct {
	Ask     int
	Timeout time.Duration
}

// Script is the resolver's fixed ASK/WAIT event schedule: ask the first
// server, wait 2s; ask the second, wait 2s; re-ask the first, wait 4s;
// give up. A server index beyond the table's length is skipped.
var Script = []ScriptStep{
	{Ask: 0, Timeout: 2 * time.Second},
	{Ask: 1, Timeout: 2 * time.Second},
	{Ask: 0, Timeout: 4 * time.Second},
}

// Engine drives queries against a name-server table over a shared
// transport, dialing TCP only when a UDP response is truncated. UDP is
// held as the transport.Transport interface so tests can substitute
// transport.MockTransport in place of a real socket.
type Engine struct {
	Table *nsconfig.Table
	UDP   transport.Transport
	IDNA  bool

	// Script overrides the package-level Script for this engine, if
	// non-nil. A Handle's WithTimeout/WithRetryBudget options build one
	// of these rather than mutating the shared package default.
	Script []ScriptStep
}

func (e *Engine) script() []ScriptStep {
	if e.Script != nil {
		return e.Script
	}
	return Script
}

// New constructs an Engine with its own UDP socket. The caller owns the
// socket's lifetime and must Close it (via the returned Engine.UDP) when
// the resolver handle is closed.
func New(table *nsconfig.Table) (*Engine, error) {
	udp, err := transport.NewUDPTransport()
	if err != nil {
		return nil, err
	}
	return &Engine{Table: table, UDP: udp}, nil
}

// Query runs name/qtype/qclass through the retry schedule and returns the
// first validated response message.
func (e *Engine) Query(ctx context.Context, name string, qtype, qclass uint16, recursionDesired bool) (*wire.Message, error) {
	if e.Table == nil || e.Table.Len() == 0 {
		return nil, &errors.ProtocolError{Code: errors.CodeConfig, Operation: "query", Message: "no name servers configured"}
	}

	questionID, err := randomUint16()
	if err != nil {
		return nil, &errors.ProtocolError{Code: errors.CodeSystem, Operation: "query", Message: err.Error()}
	}

	servers := e.Table.Servers()
	for _, s := range servers {
		s.Asked = false
	}
	var lastErr error

	for _, entry := range e.script() {
		if entry.Ask >= len(servers) {
			continue
		}
		srv := servers[entry.Ask]

		omitOPT := srv.EDNS == protocol.EDNSBad
		query, questionLen, err := wire.BuildQuery(questionID, name, qtype, qclass, recursionDesired, omitOPT, wire.EncodeOptions{IDNA: e.IDNA})
		if err != nil {
			return nil, err
		}

		wireID := questionID ^ srv.IDMask
		query[0] = byte(wireID >> 8)
		query[1] = byte(wireID)

		if len(query) > int(srv.UDPSize) {
			return nil, &errors.ProtocolError{Code: errors.CodeSizeLimitExceeded, Operation: "query", Message: "query exceeds the server's UDP payload limit"}
		}

		srv.Asked = true
		if err := e.UDP.Send(ctx, query, srv.Addr); err != nil {
			return nil, err
		}

		waitCtx, cancel := context.WithTimeout(ctx, entry.Timeout)
		msg, err := e.waitForValidResponse(waitCtx, query, questionID, questionLen, servers)
		cancel()
		if err == nil {
			return msg, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}

	if lastErr != nil {
		if _, ok := lastErr.(*errors.ProtocolError); ok {
			return nil, lastErr
		}
	}
	return nil, &errors.ProtocolError{Code: errors.CodeTimeout, Operation: "query", Message: "no valid response within the retry schedule"}
}

// waitForValidResponse keeps reading from the engine's UDP socket until a
// response validates against questionID/questionBytes, the wait deadline
// elapses, a reply fails validation for a reason other than NsInvalid, or
// an unrecoverable RCODE arrives. A truncated response triggers an
// immediate TCP retry to the server that sent it; the TCP answer is
// validated the same way and then handled like a UDP one.
func (e *Engine) waitForValidResponse(ctx context.Context, query []byte, questionID uint16, questionLen int, servers []*nsconfig.Server) (*wire.Message, error) {
	questionBytes := query[:questionLen]

	for {
		raw, src, err := e.UDP.Receive(ctx)
		if err != nil {
			return nil, err
		}

		udpAddr, ok := src.(*net.UDPAddr)
		if !ok {
			continue
		}

		result, verr := validate.Response(raw, questionID, questionBytes, udpAddr, e.Table)
		if verr != nil {
			if pe, ok := verr.(*errors.ProtocolError); ok && pe.Code != errors.CodeNsInvalid {
				return nil, verr // an asked server sent a bad reply; end this step
			}
			continue // not a match for this transaction; keep listening
		}

		srv := servers[result.ServerIndex]

		if truncated, terr := validate.Truncated(raw); terr == nil && truncated {
			tcpRaw, err := e.retryOverTCP(ctx, srv, query)
			if err != nil {
				continue
			}
			if _, verr := validate.Response(tcpRaw, questionID, questionBytes, udpAddr, e.Table); verr != nil {
				return nil, verr
			}
			raw = tcpRaw
		}

		msg, perr := wire.ParseMessage(raw)
		if perr != nil {
			continue
		}

		if outcome := classifyRCode(msg.RCode()); outcome != nil {
			if outcome.demoteEDNS {
				srv.EDNS = protocol.EDNSBad
			}
			return nil, outcome.err
		}

		for _, add := range msg.Additionals {
			if opt, ok := add.AsOPT(); ok {
				srv.EDNS = protocol.EDNSOK
				if opt.UDPSize > srv.UDPSize {
					srv.UDPSize = opt.UDPSize
				}
			}
		}

		join.Glue([][]wire.ResourceRecord{msg.Answers, msg.Authorities}, msg.Additionals)

		return msg, nil
	}
}

type rcodeOutcome struct {
	demoteEDNS bool
	err        error
}

// classifyRCode maps a response RCODE onto an accept/fail decision.
// NOERROR and NXDOMAIN are both usable answers (a negative one, for
// NXDOMAIN) and map to nil, meaning "accept this message"; so does any
// RCODE not listed below. FORMERR, SERVFAIL, REFUSED, NOTIMP and BADVERS
// are terminal for this read: the caller demotes EDNS state where
// indicated and the error propagates up as this attempt's result, letting
// the engine's retry schedule decide whether to try again or give up.
func classifyRCode(rcode uint16) *rcodeOutcome {
	switch rcode {
	case protocol.RCodeNoError, protocol.RCodeNXDomain:
		return nil
	case protocol.RCodeFormErr:
		return &rcodeOutcome{err: &errors.ProtocolError{Code: errors.CodeFormat, Operation: "query", Message: "server reported FORMERR"}}
	case protocol.RCodeServFail:
		return &rcodeOutcome{err: &errors.ProtocolError{Code: errors.CodeServer, Operation: "query", Message: "server reported SERVFAIL"}}
	case protocol.RCodeRefused:
		return &rcodeOutcome{err: &errors.ProtocolError{Code: errors.CodeRefused, Operation: "query", Message: "server reported REFUSED"}}
	case protocol.RCodeNotImp:
		return &rcodeOutcome{demoteEDNS: true, err: &errors.ProtocolError{Code: errors.CodeNotImplemented, Operation: "query", Message: "server reported NOTIMP"}}
	case protocol.RCodeBadVers:
		return &rcodeOutcome{demoteEDNS: true, err: &errors.ProtocolError{Code: errors.CodeNotImplemented, Operation: "query", Message: "server reported BADVERS"}}
	default:
		return nil
	}
}

func (e *Engine) retryOverTCP(ctx context.Context, srv *nsconfig.Server, query []byte) ([]byte, error) {
	tcp, err := transport.DialTCP(ctx, srv.Addr)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tcp.Close() }()

	if err := tcp.Send(ctx, query, srv.Addr); err != nil {
		return nil, err
	}

	raw, _, err := tcp.Receive(ctx)
	if err != nil {
		return nil, err
	}

	return raw, nil
}

func randomUint16() (uint16, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1<<16))
	if err != nil {
		return 0, err
	}
	return uint16(n.Uint64()), nil
}
