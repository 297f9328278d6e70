package transport_test

import (
	"context"
	"net"
	"testing"

	"github.com/resolvkit/resolvkit/internal/transport"
)

func TestMockTransport_ImplementsTransportInterface(_ *testing.T) {
	var _ transport.Transport = (*transport.MockTransport)(nil)
}

func TestMockTransport_Send_RecordsCalls(t *testing.T) {
	mock := transport.NewMockTransport()
	defer func() { _ = mock.Close() }()

	ctx := context.Background()
	packet1 := []byte{0x01, 0x02}
	packet2 := []byte{0x03, 0x04}
	addr1 := &net.UDPAddr{IP: net.ParseIP("192.0.2.53"), Port: 53}
	addr2 := &net.UDPAddr{IP: net.ParseIP("192.0.2.54"), Port: 53}

	if err := mock.Send(ctx, packet1, addr1); err != nil {
		t.Fatalf("Send(packet1) failed: %v", err)
	}
	if err := mock.Send(ctx, packet2, addr2); err != nil {
		t.Fatalf("Send(packet2) failed: %v", err)
	}

	calls := mock.SendCalls()
	if len(calls) != 2 {
		t.Fatalf("Expected 2 Send() calls, got %d", len(calls))
	}
	if string(calls[0].Packet) != string(packet1) {
		t.Errorf("First call packet mismatch: got %v, want %v", calls[0].Packet, packet1)
	}
	if calls[0].Dest.String() != addr1.String() {
		t.Errorf("First call addr mismatch: got %v, want %v", calls[0].Dest, addr1)
	}
	if string(calls[1].Packet) != string(packet2) {
		t.Errorf("Second call packet mismatch: got %v, want %v", calls[1].Packet, packet2)
	}
	if calls[1].Dest.String() != addr2.String() {
		t.Errorf("Second call addr mismatch: got %v, want %v", calls[1].Dest, addr2)
	}
}

func TestMockTransport_Receive_ReturnsQueuedResponse(t *testing.T) {
	mock := transport.NewMockTransport()
	defer func() { _ = mock.Close() }()

	from := &net.UDPAddr{IP: net.ParseIP("192.0.2.53"), Port: 53}
	mock.QueueResponse(transport.QueuedResponse{Packet: []byte{1, 2, 3}, From: from})

	packet, src, err := mock.Receive(context.Background())
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if string(packet) != string([]byte{1, 2, 3}) {
		t.Errorf("packet = %v", packet)
	}
	if src.String() != from.String() {
		t.Errorf("src = %v, want %v", src, from)
	}
}

func TestMockTransport_Receive_BlocksUntilContextDone(t *testing.T) {
	mock := transport.NewMockTransport()
	defer func() { _ = mock.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := mock.Receive(ctx); err == nil {
		t.Fatal("expected error when context is already done with no queued response")
	}
}
