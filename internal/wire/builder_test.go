package wire

import (
	"testing"

	"github.com/resolvkit/resolvkit/internal/protocol"
)

func TestBuildQuery_WithOPT(t *testing.T) {
	query, qlen, err := BuildQuery(0x1234, "example.com", uint16(protocol.RecordTypeA), uint16(protocol.ClassIN), true, false, EncodeOptions{})
	if err != nil {
		t.Fatalf("BuildQuery: %v", err)
	}

	header, err := ParseHeader(query)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	if header.ID != 0x1234 {
		t.Errorf("ID = %x, want 0x1234", header.ID)
	}
	if header.Flags&protocol.FlagRD == 0 {
		t.Errorf("RD bit not set")
	}
	if header.ARCount != 1 {
		t.Errorf("ARCount = %d, want 1 (OPT record)", header.ARCount)
	}

	msg, err := ParseMessage(query)
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}
	if len(msg.Additionals) != 1 {
		t.Fatalf("expected 1 additional (OPT), got %d", len(msg.Additionals))
	}
	opt, ok := msg.Additionals[0].AsOPT()
	if !ok {
		t.Fatal("expected OPT record")
	}
	if opt.UDPSize != protocol.MaxUDPPayloadEDNS {
		t.Errorf("UDPSize = %d, want %d", opt.UDPSize, protocol.MaxUDPPayloadEDNS)
	}

	if qlen >= len(query) {
		t.Errorf("questionLen %d should be less than full query length %d when OPT is present", qlen, len(query))
	}
}

func TestBuildQuery_OmitOPT(t *testing.T) {
	query, qlen, err := BuildQuery(1, "example.com", uint16(protocol.RecordTypeA), uint16(protocol.ClassIN), true, true, EncodeOptions{})
	if err != nil {
		t.Fatalf("BuildQuery: %v", err)
	}

	header, err := ParseHeader(query)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	if header.ARCount != 0 {
		t.Errorf("ARCount = %d, want 0 when OPT omitted", header.ARCount)
	}
	if qlen != len(query) {
		t.Errorf("questionLen %d should equal full query length %d when OPT omitted", qlen, len(query))
	}
}
