package wire

import "github.com/resolvkit/resolvkit/internal/protocol"

// Header is the 12-byte DNS message header per RFC 1035 §4.1.1.
//
//	                                1  1  1  1  1  1
//	  0  1  2  3  4  5  6  7  8  9  0  1  2  3  4  5
//	+--+--+--+--+--+--+--+--+--+--+--+--+--+--+--+--+
//	|                      ID                       |
//	+--+--+--+--+--+--+--+--+--+--+--+--+--+--+--+--+
//	|QR|   Opcode  |AA|TC|RD|RA|   Z    |   RCODE   |
//	+--+--+--+--+--+--+--+--+--+--+--+--+--+--+--+--+
//	|                    QDCOUNT                    |
//	+--+--+--+--+--+--+--+--+--+--+--+--+--+--+--+--+
//	|                    ANCOUNT                    |
//	+--+--+--+--+--+--+--+--+--+--+--+--+--+--+--+--+
//	|                    NSCOUNT                    |
//	+--+--+--+--+--+--+--+--+--+--+--+--+--+--+--+--+
//	|                    ARCOUNT                    |
//	+--+--+--+--+--+--+--+--+--+--+--+--+--+--+--+--+
type Header struct {
	ID      uint16
	Flags   uint16
	QDCount uint16
	ANCount uint16
	NSCount uint16
	ARCount uint16
}

// IsQuery reports whether the QR bit is clear.
func (h Header) IsQuery() bool { return !protocol.IsResponse(h.Flags) }

// IsResponse reports whether the QR bit is set.
func (h Header) IsResponse() bool { return protocol.IsResponse(h.Flags) }

// RCode extracts the base (non-extended) RCODE.
func (h Header) RCode() uint16 { return protocol.RCode(h.Flags) }

// IsTruncated reports whether the TC bit is set.
func (h Header) IsTruncated() bool { return protocol.IsTruncated(h.Flags) }

// Question is a single question-section entry per RFC 1035 §4.1.2.
type Question struct {
	Name  string
	Type  uint16
	Class uint16
}

// EDNSOption is a single EDNS(0) option tuple per RFC 6891 §6.1.2:
// CODE, LENGTH, and DATA.
type EDNSOption struct {
	Code uint16
	Data []byte
}

// NameData carries a single decoded name, used for the RDATA of every
// name-only record type (CNAME, NS, PTR, MB, MD, MF, MG, MR).
type NameData struct {
	Name string
}

// HINFOData is the RDATA of an HINFO record per RFC 1035 §3.3.2.
type HINFOData struct {
	CPU string
	OS  string
}

// MXData is the RDATA of an MX record per RFC 1035 §3.3.9.
type MXData struct {
	Preference uint16
	Exchange   string
}

// SOAData is the RDATA of an SOA record per RFC 1035 §3.3.13.
type SOAData struct {
	MName   string
	RName   string
	Serial  uint32
	Refresh uint32
	Retry   uint32
	Expire  uint32
	Minimum uint32
}

// TXTData is the RDATA of a TXT record per RFC 1035 §3.3.14: one or more
// character-strings.
type TXTData struct {
	Strings []string
}

// SRVData is the RDATA of an SRV record per RFC 2782.
type SRVData struct {
	Priority uint16
	Weight   uint16
	Port     uint16
	Target   string
}

// OPTData is the RDATA (and reinterpreted common fields) of an OPT
// pseudo-record per RFC 6891 §6.1.
type OPTData struct {
	UDPSize      uint16
	ExtendedRCode uint8
	Version      uint8
	Flags        uint16
	Options      []EDNSOption
}

// OpaqueData carries the raw RDATA bytes of a record type this resolver
// does not decode further.
type OpaqueData struct {
	Raw []byte
}

// ResourceRecord is a single parsed resource record: a common header plus
// a tagged RDATA payload. Addresses accumulates A/AAAA glue records
// joined in from the additional section (see internal/join).
type ResourceRecord struct {
	Name      string
	Type      protocol.RecordType
	Class     protocol.DNSClass
	TTL       uint32
	Data      any
	Addresses []ResourceRecord
}

// AsName returns the RDATA of a name-only record (CNAME/NS/PTR/MB/MD/MF/MG/MR).
func (r *ResourceRecord) AsName() (NameData, bool) {
	d, ok := r.Data.(NameData)
	return d, ok
}

// AsHINFO returns the RDATA of an HINFO record.
func (r *ResourceRecord) AsHINFO() (HINFOData, bool) {
	d, ok := r.Data.(HINFOData)
	return d, ok
}

// AsMX returns the RDATA of an MX record.
func (r *ResourceRecord) AsMX() (MXData, bool) {
	d, ok := r.Data.(MXData)
	return d, ok
}

// AsSOA returns the RDATA of an SOA record.
func (r *ResourceRecord) AsSOA() (SOAData, bool) {
	d, ok := r.Data.(SOAData)
	return d, ok
}

// AsTXT returns the RDATA of a TXT record.
func (r *ResourceRecord) AsTXT() (TXTData, bool) {
	d, ok := r.Data.(TXTData)
	return d, ok
}

// AsA returns the RDATA of an A record (4-byte IPv4 address).
func (r *ResourceRecord) AsA() ([4]byte, bool) {
	d, ok := r.Data.([4]byte)
	return d, ok
}

// AsAAAA returns the RDATA of an AAAA record (16-byte IPv6 address).
func (r *ResourceRecord) AsAAAA() ([16]byte, bool) {
	d, ok := r.Data.([16]byte)
	return d, ok
}

// AsSRV returns the RDATA of an SRV record.
func (r *ResourceRecord) AsSRV() (SRVData, bool) {
	d, ok := r.Data.(SRVData)
	return d, ok
}

// AsOPT returns the RDATA of an OPT pseudo-record.
func (r *ResourceRecord) AsOPT() (OPTData, bool) {
	d, ok := r.Data.(OPTData)
	return d, ok
}

// Message is a fully parsed DNS message: header plus its four sections.
type Message struct {
	Header      Header
	Questions   []Question
	Answers     []ResourceRecord
	Authorities []ResourceRecord
	Additionals []ResourceRecord
}

// RCode returns the message's response code. If the additional section
// carries an OPT pseudo-record, its 8-bit ExtendedRCode is combined with
// the header's 4-bit base RCODE per RFC 6891 §6.1.3 (ext<<4 | base),
// yielding the full 12-bit code space needed to observe RCODEs like
// BADVERS (16) that don't fit in the header's 4 bits alone. Without an
// OPT record, the extended bits are assumed zero and this is just the
// header's base RCODE.
func (m *Message) RCode() uint16 {
	base := m.Header.RCode()
	for _, add := range m.Additionals {
		if opt, ok := add.AsOPT(); ok {
			return uint16(opt.ExtendedRCode)<<4 | base
		}
	}
	return base
}
