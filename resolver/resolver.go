package resolver

import (
	"context"
	"sync"
	"syscall"
	"time"

	"github.com/resolvkit/resolvkit/internal/errors"
	"github.com/resolvkit/resolvkit/internal/nsconfig"
	"github.com/resolvkit/resolvkit/internal/protocol"
	"github.com/resolvkit/resolvkit/internal/transaction"
	"github.com/resolvkit/resolvkit/internal/transport"
)

// defaultFirstStepTimeout is the engine's built-in first-step wait
// (transaction.Script[0].Timeout); WithTimeout scales the whole script
// relative to this so the 2x/2x/4x shape is preserved.
const defaultFirstStepTimeout = 2 * time.Second

// Handle is one resolver instance: a bounded name-server table, its own
// UDP socket, and the outstanding-query state for a single in-flight
// transaction. A Handle is not safe for concurrent use by multiple
// goroutines; callers needing concurrent queries open multiple handles.
type Handle struct {
	table  nsconfig.Table
	engine *transaction.Engine
	logger Logger

	idna             bool
	recursionDesired bool
	timeout          time.Duration
	retryBudget      int
	socketControl    func(network, address string, c syscall.RawConn) error

	mu      sync.Mutex
	pending *pendingQuery
}

type pendingQuery struct {
	name   string
	qtype  uint16
	qclass uint16
}

// New builds a Handle. With no options, the name-server table falls
// back to /etc/resolv.conf and then to loopback (127.0.0.1:53), per
// nsconfig's default chain, and the handle's own UDP socket is opened
// eagerly.
func New(opts ...Option) (*Handle, error) {
	h := &Handle{
		logger:           noopLogger{},
		recursionDesired: true,
	}

	if err := h.table.LoadDefault(); err != nil {
		return nil, err
	}

	for _, opt := range opts {
		if err := opt(h); err != nil {
			return nil, err
		}
	}

	udp, err := newUDPTransport(h.socketControl)
	if err != nil {
		return nil, err
	}

	h.engine = &transaction.Engine{Table: &h.table, UDP: udp, IDNA: h.idna}
	h.engine.Script = buildScript(h.timeout, h.retryBudget)

	return h, nil
}

func newUDPTransport(control func(network, address string, c syscall.RawConn) error) (*transport.UDPTransport, error) {
	if control != nil {
		return transport.NewUDPTransportWithControl(control)
	}
	return transport.NewUDPTransport()
}

// buildScript derives the engine's retry schedule from WithTimeout (a
// uniform scale of transaction.Script's 2s/2s/4s shape) and
// WithRetryBudget (how many leading steps to keep). With neither option
// set it returns nil, meaning "use transaction.Script unmodified".
func buildScript(timeout time.Duration, retryBudget int) []transaction.ScriptStep {
	if timeout <= 0 && retryBudget <= 0 {
		return nil
	}

	script := make([]transaction.ScriptStep, len(transaction.Script))
	copy(script, transaction.Script)

	if timeout > 0 {
		scale := float64(timeout) / float64(defaultFirstStepTimeout)
		for i := range script {
			script[i].Timeout = time.Duration(float64(script[i].Timeout) * scale)
		}
	}

	if retryBudget > 0 && retryBudget < len(script) {
		script = script[:retryBudget]
	}

	return script
}

// SetNameserver replaces the handle's name-server table with a single
// explicit server on the default DNS port. It is an error to call this
// with a query outstanding (Query called, Result not yet consumed).
func (h *Handle) SetNameserver(host string) error {
	return h.SetNameserverPort(host, protocol.DefaultPort)
}

// SetNameserverPort is SetNameserver with an explicit port.
func (h *Handle) SetNameserverPort(host, port string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.pending != nil {
		return &errors.ProtocolError{Code: errors.CodeState, Operation: "set nameserver", Message: "a query is outstanding on this handle"}
	}
	return h.table.SetNameserverPort(host, port)
}

// Query validates name/recordType/class and stages them as the handle's
// outstanding query; call Result to actually run the transaction and
// fetch the answer. A second Query before the prior Result is consumed
// is a State error.
func (h *Handle) Query(_ context.Context, name string, recordType RecordType) error {
	return h.QueryClass(name, recordType, ClassIN)
}

// QueryClass is Query with an explicit query class.
func (h *Handle) QueryClass(name string, recordType RecordType, class DNSClass) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.pending != nil {
		return &errors.ProtocolError{Code: errors.CodeState, Operation: "query", Message: "a query is already outstanding; call Result before starting another"}
	}

	if err := protocol.ValidateRecordType(uint16(recordType)); err != nil {
		return err
	}
	if err := protocol.ValidateClass(uint16(class)); err != nil {
		return err
	}

	h.pending = &pendingQuery{name: name, qtype: uint16(recordType), qclass: uint16(class)}
	return nil
}

// Result drives the transaction engine's retry schedule for the
// outstanding query and returns the first validated response. Calling
// Result with no outstanding Query is a NoQuery error.
func (h *Handle) Result(ctx context.Context) (*Result, error) {
	h.mu.Lock()
	pending := h.pending
	h.mu.Unlock()

	if pending == nil {
		return nil, &errors.ProtocolError{Code: errors.CodeNoQuery, Operation: "result", Message: "Result called with no outstanding Query"}
	}

	msg, err := h.engine.Query(ctx, pending.name, pending.qtype, pending.qclass, h.recursionDesired)

	h.mu.Lock()
	h.pending = nil
	h.mu.Unlock()

	if err != nil {
		h.logger.Warnf("query %s failed: %v", pending.name, err)
		return nil, err
	}

	return newResult(msg), nil
}

// Close releases the handle's socket. It does not reset a pending query;
// a Handle should not be used again after Close.
func (h *Handle) Close() error {
	return h.engine.UDP.Close()
}
