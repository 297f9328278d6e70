package wire

import (
	"encoding/binary"
	"testing"

	"github.com/resolvkit/resolvkit/internal/protocol"
)

func u16(v uint16) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, v)
	return b
}

func u32(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

// buildRR assembles name+type+class+ttl+rdlength+rdata for a single RR.
func buildRR(t *testing.T, name string, rtype protocol.RecordType, class protocol.DNSClass, ttl uint32, rdata []byte) []byte {
	t.Helper()
	encName, err := EncodeName(name, EncodeOptions{})
	if err != nil {
		t.Fatalf("EncodeName: %v", err)
	}
	rr := append([]byte{}, encName...)
	rr = append(rr, u16(uint16(rtype))...)
	rr = append(rr, u16(uint16(class))...)
	rr = append(rr, u32(ttl)...)
	rr = append(rr, u16(uint16(len(rdata)))...)
	rr = append(rr, rdata...)
	return rr
}

func TestParseResourceRecord_A(t *testing.T) {
	msg := buildRR(t, "host.example", protocol.RecordTypeA, protocol.ClassIN, 300, []byte{192, 0, 2, 1})
	rr, next, err := ParseResourceRecord(msg, 0)
	if err != nil {
		t.Fatalf("ParseResourceRecord: %v", err)
	}
	if next != len(msg) {
		t.Errorf("next = %d, want %d", next, len(msg))
	}
	addr, ok := rr.AsA()
	if !ok {
		t.Fatalf("expected A record data")
	}
	if addr != [4]byte{192, 0, 2, 1} {
		t.Errorf("addr = %v", addr)
	}
}

func TestParseResourceRecord_A_WrongClass(t *testing.T) {
	msg := buildRR(t, "host.example", protocol.RecordTypeA, protocol.ClassCH, 300, []byte{192, 0, 2, 1})
	if _, _, err := ParseResourceRecord(msg, 0); err == nil {
		t.Fatal("expected class error for A record with non-IN class")
	}
}

func TestParseResourceRecord_CNAME(t *testing.T) {
	target, err := EncodeName("target.example", EncodeOptions{})
	if err != nil {
		t.Fatalf("EncodeName: %v", err)
	}
	msg := buildRR(t, "alias.example", protocol.RecordTypeCNAME, protocol.ClassIN, 60, target)
	rr, _, err := ParseResourceRecord(msg, 0)
	if err != nil {
		t.Fatalf("ParseResourceRecord: %v", err)
	}
	nd, ok := rr.AsName()
	if !ok || nd.Name != "target.example" {
		t.Errorf("got %+v, ok=%v", nd, ok)
	}
}

func TestParseResourceRecord_MXWithCompressedExchange(t *testing.T) {
	// Build a message where the MX exchange name is a pointer back to the
	// owner name's bytes, exercising cross-record compression resolution.
	ownerEnc, err := EncodeName("example.com", EncodeOptions{})
	if err != nil {
		t.Fatalf("EncodeName: %v", err)
	}

	msg := append([]byte{}, ownerEnc...)
	msg = append(msg, u16(uint16(protocol.RecordTypeMX))...)
	msg = append(msg, u16(uint16(protocol.ClassIN))...)
	msg = append(msg, u32(300)...)
	rdata := append(u16(10), 0xC0, 0x00) // preference=10, pointer to offset 0
	msg = append(msg, u16(uint16(len(rdata)))...)
	msg = append(msg, rdata...)

	rr, _, err := ParseResourceRecord(msg, 0)
	if err != nil {
		t.Fatalf("ParseResourceRecord: %v", err)
	}
	mx, ok := rr.AsMX()
	if !ok {
		t.Fatal("expected MX data")
	}
	if mx.Preference != 10 || mx.Exchange != "example.com" {
		t.Errorf("got %+v", mx)
	}
}

func TestParseResourceRecord_TXT(t *testing.T) {
	rdata := append([]byte{}, 5, 'h', 'e', 'l', 'l', 'o')
	rdata = append(rdata, 3, 'f', 'o', 'o')
	msg := buildRR(t, "txt.example", protocol.RecordTypeTXT, protocol.ClassIN, 60, rdata)

	rr, _, err := ParseResourceRecord(msg, 0)
	if err != nil {
		t.Fatalf("ParseResourceRecord: %v", err)
	}
	txt, ok := rr.AsTXT()
	if !ok || len(txt.Strings) != 2 || txt.Strings[0] != "hello" || txt.Strings[1] != "foo" {
		t.Errorf("got %+v", txt)
	}
}

func TestParseResourceRecord_OPT(t *testing.T) {
	msg := []byte{0} // root name
	msg = append(msg, u16(uint16(protocol.RecordTypeOPT))...)
	msg = append(msg, u16(4096)...) // CLASS = advertised UDP size
	// TTL: ext-rcode=1, version=0, flags=0
	msg = append(msg, 1, 0, 0, 0)
	option := append(u16(protocol.EDNSOptNSID), u16(0)...)
	msg = append(msg, u16(uint16(len(option)))...)
	msg = append(msg, option...)

	rr, _, err := ParseResourceRecord(msg, 0)
	if err != nil {
		t.Fatalf("ParseResourceRecord: %v", err)
	}
	opt, ok := rr.AsOPT()
	if !ok {
		t.Fatal("expected OPT data")
	}
	if opt.UDPSize != 4096 {
		t.Errorf("UDPSize = %d, want 4096", opt.UDPSize)
	}
	if opt.ExtendedRCode != 1 {
		t.Errorf("ExtendedRCode = %d, want 1", opt.ExtendedRCode)
	}
	if len(opt.Options) != 1 || opt.Options[0].Code != protocol.EDNSOptNSID {
		t.Errorf("Options = %+v", opt.Options)
	}
	if rr.TTL != 0 || rr.Class != protocol.ClassIN {
		t.Errorf("display fields not reset: ttl=%d class=%d", rr.TTL, rr.Class)
	}
}

func TestSortMX_StableWithinOwnerName(t *testing.T) {
	rrs := []ResourceRecord{
		{Name: "a.example", Data: MXData{Preference: 20, Exchange: "mx2.example"}},
		{Name: "a.example", Data: MXData{Preference: 10, Exchange: "mx1.example"}},
		{Name: "b.example", Data: MXData{Preference: 5, Exchange: "mx3.example"}},
		{Name: "a.example", Type: protocol.RecordTypeA, Data: [4]byte{1, 2, 3, 4}},
	}

	SortMX(rrs)

	got0, _ := rrs[0].AsMX()
	got1, _ := rrs[1].AsMX()
	if got0.Preference != 10 || got1.Preference != 20 {
		t.Errorf("MX records for a.example not sorted: %+v, %+v", got0, got1)
	}
	if rrs[2].Name != "b.example" {
		t.Errorf("unrelated owner name reordered: %+v", rrs[2])
	}
	if rrs[3].Name != "a.example" || rrs[3].Type != protocol.RecordTypeA {
		t.Errorf("non-MX record within same owner name reordered: %+v", rrs[3])
	}
}

func TestSortMX_Idempotent(t *testing.T) {
	rrs := []ResourceRecord{
		{Name: "a.example", Data: MXData{Preference: 20}},
		{Name: "a.example", Data: MXData{Preference: 10}},
	}
	SortMX(rrs)
	firstPass := []uint16{rrs[0].Data.(MXData).Preference, rrs[1].Data.(MXData).Preference}
	SortMX(rrs)
	secondPass := []uint16{rrs[0].Data.(MXData).Preference, rrs[1].Data.(MXData).Preference}
	if firstPass[0] != secondPass[0] || firstPass[1] != secondPass[1] {
		t.Errorf("second sort changed order: %v -> %v", firstPass, secondPass)
	}
}
