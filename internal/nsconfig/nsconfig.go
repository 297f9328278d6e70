// Package nsconfig resolves a user-supplied address, an explicit server
// list, or a resolv.conf-style file into the bounded name-server table a
// handle queries against, and tracks the per-server transaction state
// (ID-XOR mask, negotiated UDP size, EDNS capability) that table carries
// across a resolver's lifetime.
package nsconfig

import (
	"bufio"
	"crypto/rand"
	"fmt"
	"math/big"
	"net"
	"os"
	"strings"

	"github.com/resolvkit/resolvkit/internal/errors"
	"github.com/resolvkit/resolvkit/internal/protocol"
)

// ResolvConfPath is the default resolver configuration file consulted
// when no explicit name server is configured.
const ResolvConfPath = "/etc/resolv.conf"

// Server is one configured name-server endpoint and its per-server
// transaction state.
type Server struct {
	// Addr is the resolved, numeric socket address (UDP) for this server.
	Addr *net.UDPAddr

	// IDMask is XORed with every outgoing transaction ID sent to this
	// server and with every incoming ID before comparison, so a
	// misdirected or replayed response from an unrelated transaction on
	// the wire can't accidentally validate (see internal/validate).
	IDMask uint16

	// UDPSize is this server's negotiated UDP payload size: starts at
	// protocol.MaxUDPPayloadBasic and is raised once a well-formed OPT
	// response from it advertises a larger size (the transaction engine
	// records this onto the Server that answered).
	UDPSize uint16

	// EDNS tracks whether this server is known to handle EDNS(0) OPT
	// records: Unknown until asked, OK once a good OPT response is seen,
	// Bad after a NOTIMP/BADVERS response demotes it.
	EDNS protocol.EDNSState

	// Asked is set when this server is sent a query in the current
	// transaction, and is what the response validator checks a reply's
	// source address against.
	Asked bool
}

// Table is the bounded (at most protocol.MaxNameservers) array of
// configured servers a handle queries against.
type Table struct {
	servers []*Server
}

// Servers returns the configured server list.
func (t *Table) Servers() []*Server {
	return t.servers
}

// Len returns the number of configured servers.
func (t *Table) Len() int {
	return len(t.servers)
}

// Reset clears the table back to empty.
func (t *Table) Reset() {
	t.servers = nil
}

// SetNameserver replaces the table with a single explicit server on the
// default port.
func (t *Table) SetNameserver(host string) error {
	return t.SetNameserverPort(host, protocol.DefaultPort)
}

// SetNameserverPort replaces the table with a single explicit server on
// the given port. The address is resolved numerically only — no DNS
// lookup is performed, since that would make configuring a resolver
// circular.
func (t *Table) SetNameserverPort(host, port string) error {
	t.Reset()
	srv, err := newServer(host, port)
	if err != nil {
		return err
	}
	t.servers = append(t.servers, srv)
	return nil
}

// LoadDefault populates the table from /etc/resolv.conf, falling back to
// loopback if the file is absent or yields no usable entries. Mirrors the
// reference resolver's fallback chain: explicit config wins, then the
// resolver config file, then loopback as a last resort.
func (t *Table) LoadDefault() error {
	t.Reset()

	if err := t.parseResolvConf(ResolvConfPath); err != nil {
		return err
	}

	if len(t.servers) == 0 {
		srv, err := newServer("127.0.0.1", protocol.DefaultPort)
		if err != nil {
			return err
		}
		t.servers = append(t.servers, srv)
	}

	return nil
}

// parseResolvConf reads "nameserver <addr>" lines from a resolv.conf-style
// file. A missing file is not an error — the caller falls back to
// loopback. Lines beyond the table's bound are skipped, not rejected.
func (t *Table) parseResolvConf(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return &errors.ProtocolError{
			Code:      errors.CodeSystem,
			Operation: "open resolv.conf",
			Message:   err.Error(),
		}
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		if fields[0] != "nameserver" || len(fields) < 2 {
			continue
		}
		if len(t.servers) >= protocol.MaxNameservers {
			continue
		}
		srv, err := newServer(fields[1], protocol.DefaultPort)
		if err != nil {
			continue // a malformed resolv.conf entry is skipped, not fatal
		}
		t.servers = append(t.servers, srv)
	}

	return scanner.Err()
}

func newServer(host, port string) (*Server, error) {
	if net.ParseIP(host) == nil {
		return nil, &errors.ProtocolError{
			Code:      errors.CodeConfig,
			Operation: "resolve name server address",
			Message:   fmt.Sprintf("%s is not a numeric address", host),
		}
	}

	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, port))
	if err != nil {
		return nil, &errors.ProtocolError{
			Code:      errors.CodeConfig,
			Operation: "resolve name server address",
			Message:   fmt.Sprintf("%s:%s: %v", host, port, err),
		}
	}

	mask, err := randomUint16()
	if err != nil {
		return nil, &errors.ProtocolError{
			Code:      errors.CodeSystem,
			Operation: "seed name server ID mask",
			Message:   err.Error(),
		}
	}

	return &Server{
		Addr:    addr,
		IDMask:  mask,
		UDPSize: protocol.MaxUDPPayloadBasic,
		EDNS:    protocol.EDNSUnknown,
	}, nil
}

func randomUint16() (uint16, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1<<16))
	if err != nil {
		return 0, err
	}
	return uint16(n.Uint64()), nil
}
