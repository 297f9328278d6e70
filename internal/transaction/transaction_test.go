package transaction_test

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/resolvkit/resolvkit/internal/errors"
	"github.com/resolvkit/resolvkit/internal/nsconfig"
	"github.com/resolvkit/resolvkit/internal/protocol"
	"github.com/resolvkit/resolvkit/internal/transaction"
	"github.com/resolvkit/resolvkit/internal/transport"
	"github.com/resolvkit/resolvkit/internal/wire"
)

func newSingleServerTable(t *testing.T) *nsconfig.Table {
	t.Helper()
	var tbl nsconfig.Table
	require.NoError(t, tbl.SetNameserver("192.0.2.53"))
	return &tbl
}

func buildAnswer(t *testing.T, sentQuery []byte, questionLen int, rcode uint16, addr [4]byte) []byte {
	t.Helper()
	resp := append([]byte{}, sentQuery[:questionLen]...)
	// The wire ID byte pair is already the XOR-masked ID the engine sent;
	// a real server echoes it back unchanged, so the copy above is enough.

	flags := protocol.FlagQR | rcode
	resp[2] = byte(flags >> 8)
	resp[3] = byte(flags)

	resp[6], resp[7] = 0, 1   // ANCOUNT = 1
	resp[10], resp[11] = 0, 0 // ARCOUNT = 0: questionLen excludes any OPT the query carried

	name, err := wire.EncodeName("example.com", wire.EncodeOptions{})
	require.NoError(t, err)
	rr := append([]byte{}, name...)
	rr = append(rr, byte(protocol.RecordTypeA>>8), byte(protocol.RecordTypeA))
	rr = append(rr, byte(protocol.ClassIN>>8), byte(protocol.ClassIN))
	rr = append(rr, 0, 0, 0, 60) // TTL
	rr = append(rr, 0, 4)        // RDLENGTH
	rr = append(rr, addr[:]...)

	resp = append(resp, rr...)
	return resp
}

func TestEngine_Query_AcceptsValidResponse(t *testing.T) {
	tbl := newSingleServerTable(t)
	mock := transport.NewMockTransport()
	engine := &transaction.Engine{Table: tbl, UDP: mock}

	done := make(chan struct{})
	go func() {
		defer close(done)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		msg, err := engine.Query(ctx, "example.com", uint16(protocol.RecordTypeA), uint16(protocol.ClassIN), true)
		require.NoError(t, err)
		require.Len(t, msg.Answers, 1)
		addr, ok := msg.Answers[0].AsA()
		require.True(t, ok)
		require.Equal(t, [4]byte{192, 0, 2, 1}, addr)
	}()

	// Wait for the engine's first Send, then queue a matching response.
	require.Eventually(t, func() bool { return len(mock.SendCalls()) >= 1 }, 2*time.Second, 5*time.Millisecond)
	sent := mock.SendCalls()[0]
	resp := buildAnswer(t, sent.Packet, findQuestionLen(sent.Packet), protocol.RCodeNoError, [4]byte{192, 0, 2, 1})
	mock.QueueResponse(transport.QueuedResponse{Packet: resp, From: sent.Dest})

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Query did not complete in time")
	}
}

func TestEngine_Query_NoServersConfigured(t *testing.T) {
	var tbl nsconfig.Table
	engine := &transaction.Engine{Table: &tbl, UDP: transport.NewMockTransport()}

	_, err := engine.Query(context.Background(), "example.com", uint16(protocol.RecordTypeA), uint16(protocol.ClassIN), true)
	require.Error(t, err)
}

// buildTruncatedResponse echoes sentQuery's header+question back with the
// TC bit set and no answer, as if the server's UDP answer didn't fit.
func buildTruncatedResponse(t *testing.T, sentQuery []byte, questionLen int) []byte {
	t.Helper()
	resp := append([]byte{}, sentQuery[:questionLen]...)
	flags := protocol.FlagQR | protocol.FlagTC
	resp[2] = byte(flags >> 8)
	resp[3] = byte(flags)
	resp[6], resp[7] = 0, 0 // ANCOUNT = 0
	return resp
}

// buildRCodeResponse echoes sentQuery's header+question back carrying
// rcode in the header's base RCODE field, with no answer section.
func buildRCodeResponse(t *testing.T, sentQuery []byte, questionLen int, rcode uint16) []byte {
	t.Helper()
	resp := append([]byte{}, sentQuery[:questionLen]...)
	flags := protocol.FlagQR | rcode
	resp[2] = byte(flags >> 8)
	resp[3] = byte(flags)
	resp[6], resp[7] = 0, 0 // ANCOUNT = 0
	// ARCOUNT = 0: no OPT record follows the question.
	resp[10], resp[11] = 0, 0
	return resp
}

// appendOPTAdditional appends a minimal OPT pseudo-record carrying
// extRCode in its reinterpreted TTL field, and bumps ARCOUNT to 1.
func appendOPTAdditional(t *testing.T, msg []byte, extRCode uint8) []byte {
	t.Helper()
	out := append([]byte{}, msg...)
	out[10], out[11] = 0, 1 // ARCOUNT = 1

	out = append(out, 0) // root name
	out = append(out, byte(protocol.RecordTypeOPT>>8), byte(protocol.RecordTypeOPT))
	out = append(out, byte(protocol.MaxUDPPayloadEDNS>>8), byte(protocol.MaxUDPPayloadEDNS)) // CLASS carries UDP size
	out = append(out, extRCode, 0, 0, 0)                                                     // TTL: ext-rcode, version, flags
	out = append(out, 0, 0)                                                                  // RDLENGTH = 0
	return out
}

func TestEngine_Query_TruncatedUDPFallsBackToTCP(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	_, port, err := net.SplitHostPort(listener.Addr().String())
	require.NoError(t, err)

	var tbl nsconfig.Table
	require.NoError(t, tbl.SetNameserverPort("127.0.0.1", port))
	mock := transport.NewMockTransport()
	engine := &transaction.Engine{Table: &tbl, UDP: mock}

	done := make(chan struct{})
	var msg *wire.Message
	var qerr error
	go func() {
		defer close(done)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		msg, qerr = engine.Query(ctx, "example.com", uint16(protocol.RecordTypeA), uint16(protocol.ClassIN), true)
	}()

	require.Eventually(t, func() bool { return len(mock.SendCalls()) >= 1 }, 2*time.Second, 5*time.Millisecond)
	sent := mock.SendCalls()[0]
	questionLen := findQuestionLen(sent.Packet)
	truncated := buildTruncatedResponse(t, sent.Packet, questionLen)
	mock.QueueResponse(transport.QueuedResponse{Packet: truncated, From: sent.Dest})

	conn, err := listener.Accept()
	require.NoError(t, err)
	defer conn.Close()

	var prefix [2]byte
	_, err = io.ReadFull(conn, prefix[:])
	require.NoError(t, err)
	length := binary.BigEndian.Uint16(prefix[:])
	tcpQuery := make([]byte, length)
	_, err = io.ReadFull(conn, tcpQuery)
	require.NoError(t, err)

	answer := buildAnswer(t, tcpQuery, findQuestionLen(tcpQuery), protocol.RCodeNoError, [4]byte{192, 0, 2, 9})
	var answerPrefix [2]byte
	binary.BigEndian.PutUint16(answerPrefix[:], uint16(len(answer)))
	_, err = conn.Write(answerPrefix[:])
	require.NoError(t, err)
	_, err = conn.Write(answer)
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Query did not complete in time")
	}

	require.NoError(t, qerr)
	require.Len(t, msg.Answers, 1)
	addr, ok := msg.Answers[0].AsA()
	require.True(t, ok)
	require.Equal(t, [4]byte{192, 0, 2, 9}, addr)
}

func TestEngine_Query_NotImpDemotesEDNSAndSurfacesError(t *testing.T) {
	var tbl nsconfig.Table
	require.NoError(t, tbl.SetNameserver("192.0.2.53"))
	mock := transport.NewMockTransport()
	engine := &transaction.Engine{
		Table:  &tbl,
		UDP:    mock,
		Script: []transaction.ScriptStep{{Ask: 0, Timeout: 200 * time.Millisecond}},
	}

	done := make(chan struct{})
	var qerr error
	go func() {
		defer close(done)
		_, qerr = engine.Query(context.Background(), "example.com", uint16(protocol.RecordTypeA), uint16(protocol.ClassIN), true)
	}()

	require.Eventually(t, func() bool { return len(mock.SendCalls()) >= 1 }, 2*time.Second, 5*time.Millisecond)
	sent := mock.SendCalls()[0]
	require.Greater(t, len(sent.Packet), findQuestionLen(sent.Packet), "first query should carry an OPT record")

	resp := buildRCodeResponse(t, sent.Packet, findQuestionLen(sent.Packet), protocol.RCodeNotImp)
	mock.QueueResponse(transport.QueuedResponse{Packet: resp, From: sent.Dest})

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Query did not complete in time")
	}

	require.Error(t, qerr)
	var protoErr *errors.ProtocolError
	require.ErrorAs(t, qerr, &protoErr)
	require.Equal(t, errors.CodeNotImplemented, protoErr.Code)
	require.Equal(t, protocol.EDNSBad, tbl.Servers()[0].EDNS)
}

func TestEngine_Query_BadVersExtendedRCodeDemotesEDNS(t *testing.T) {
	var tbl nsconfig.Table
	require.NoError(t, tbl.SetNameserver("192.0.2.53"))
	mock := transport.NewMockTransport()
	engine := &transaction.Engine{
		Table:  &tbl,
		UDP:    mock,
		Script: []transaction.ScriptStep{{Ask: 0, Timeout: 200 * time.Millisecond}},
	}

	done := make(chan struct{})
	var qerr error
	go func() {
		defer close(done)
		_, qerr = engine.Query(context.Background(), "example.com", uint16(protocol.RecordTypeA), uint16(protocol.ClassIN), true)
	}()

	require.Eventually(t, func() bool { return len(mock.SendCalls()) >= 1 }, 2*time.Second, 5*time.Millisecond)
	sent := mock.SendCalls()[0]

	// BADVERS is 16, which doesn't fit the header's 4-bit RCODE field: it
	// can only be observed via the OPT extended RCODE byte (ext=1, base=0).
	base := buildRCodeResponse(t, sent.Packet, findQuestionLen(sent.Packet), protocol.RCodeNoError)
	resp := appendOPTAdditional(t, base, 1)
	mock.QueueResponse(transport.QueuedResponse{Packet: resp, From: sent.Dest})

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Query did not complete in time")
	}

	require.Error(t, qerr)
	var protoErr *errors.ProtocolError
	require.ErrorAs(t, qerr, &protoErr)
	require.Equal(t, errors.CodeNotImplemented, protoErr.Code)
	require.Equal(t, protocol.EDNSBad, tbl.Servers()[0].EDNS)
}

func TestEngine_Query_IgnoresResponseFromUnaskedServer(t *testing.T) {
	tbl := newSingleServerTable(t)
	mock := transport.NewMockTransport()
	engine := &transaction.Engine{Table: tbl, UDP: mock}

	done := make(chan struct{})
	var msg *wire.Message
	var qerr error
	go func() {
		defer close(done)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		msg, qerr = engine.Query(ctx, "example.com", uint16(protocol.RecordTypeA), uint16(protocol.ClassIN), true)
	}()

	require.Eventually(t, func() bool { return len(mock.SendCalls()) >= 1 }, 2*time.Second, 5*time.Millisecond)
	sent := mock.SendCalls()[0]
	questionLen := findQuestionLen(sent.Packet)

	// A stray response from an address this transaction never asked is
	// not NsInvalid-fatal: it's silently skipped, and the real answer
	// that follows is still accepted.
	stray := buildAnswer(t, sent.Packet, questionLen, protocol.RCodeNoError, [4]byte{203, 0, 113, 1})
	mock.QueueResponse(transport.QueuedResponse{Packet: stray, From: &net.UDPAddr{IP: net.ParseIP("198.51.100.9"), Port: 53}})

	resp := buildAnswer(t, sent.Packet, questionLen, protocol.RCodeNoError, [4]byte{192, 0, 2, 1})
	mock.QueueResponse(transport.QueuedResponse{Packet: resp, From: sent.Dest})

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Query did not complete in time")
	}

	require.NoError(t, qerr)
	require.Len(t, msg.Answers, 1)
	addr, ok := msg.Answers[0].AsA()
	require.True(t, ok)
	require.Equal(t, [4]byte{192, 0, 2, 1}, addr)
}

// findQuestionLen recomputes the header+question length of a built query
// by parsing its question back out, for use constructing a matching
// response in a test without threading questionLen through the mock.
func findQuestionLen(query []byte) int {
	_, next, err := wire.ParseQuestion(query, 12)
	if err != nil {
		return len(query)
	}
	return next
}
