package wire

import (
	"encoding/binary"

	"github.com/resolvkit/resolvkit/internal/protocol"
)

// BuildQuery constructs a DNS query message: a 12-byte header, one
// question, and (unless omitOPT is set) a synthetic OPT pseudo-record
// advertising this resolver's UDP payload size and a single NSID option,
// per RFC 6891 §6.1.
//
// id is the caller-supplied transaction ID (already whatever value the
// caller wants on the wire — per-server XOR obfuscation, if any, is the
// transaction engine's concern, not the codec's). recursionDesired sets
// the RD bit. omitOPT produces a query with ARCOUNT=0 and no trailing
// OPT record, for name servers whose EDNS support is known to be bad.
//
// Returns the full wire message and the length of the header+question
// prefix (before any OPT record), so callers can byte-compare just the
// echoed question in a response regardless of whether OPT was sent.
func BuildQuery(id uint16, name string, qtype, qclass uint16, recursionDesired bool, omitOPT bool, encOpts EncodeOptions) (query []byte, questionLen int, err error) {
	encodedName, err := EncodeName(name, encOpts)
	if err != nil {
		return nil, 0, err
	}

	arcount := uint16(0)
	if !omitOPT {
		arcount = 1
	}

	header := make([]byte, 12)
	binary.BigEndian.PutUint16(header[0:2], id)
	binary.BigEndian.PutUint16(header[2:4], buildFlags(recursionDesired))
	binary.BigEndian.PutUint16(header[4:6], 1) // QDCOUNT
	binary.BigEndian.PutUint16(header[6:8], 0) // ANCOUNT
	binary.BigEndian.PutUint16(header[8:10], 0) // NSCOUNT
	binary.BigEndian.PutUint16(header[10:12], arcount)

	question := make([]byte, 0, len(encodedName)+4)
	question = append(question, encodedName...)
	question = appendUint16(question, qtype)
	question = appendUint16(question, qclass)

	query = make([]byte, 0, len(header)+len(question)+16)
	query = append(query, header...)
	query = append(query, question...)
	questionLen = len(query)

	if !omitOPT {
		query = append(query, buildOPTRecord()...)
	}

	return query, questionLen, nil
}

func buildFlags(recursionDesired bool) uint16 {
	var flags uint16
	if recursionDesired {
		flags |= protocol.FlagRD
	}
	return flags
}

// buildOPTRecord constructs the synthetic OPT pseudo-record appended to
// every query sent to a server whose EDNS support isn't known-bad: owner
// name root, TYPE=OPT, CLASS carries the advertised UDP payload size, TTL
// carries extended-RCODE(0)/version(0)/flags(0), and a single zero-length
// NSID option.
func buildOPTRecord() []byte {
	rec := make([]byte, 0, 11+4)
	rec = append(rec, 0) // root name
	rec = appendUint16(rec, uint16(protocol.RecordTypeOPT))
	rec = appendUint16(rec, protocol.MaxUDPPayloadEDNS)
	rec = append(rec, 0, 0, 0, 0) // TTL: ext-rcode, version, flags all zero

	option := make([]byte, 0, 4)
	option = appendUint16(option, protocol.EDNSOptNSID)
	option = appendUint16(option, 0) // zero-length option data

	rec = appendUint16(rec, uint16(len(option)))
	rec = append(rec, option...)

	return rec
}

func appendUint16(b []byte, v uint16) []byte {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	return append(b, tmp[:]...)
}
