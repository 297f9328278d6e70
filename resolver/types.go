package resolver

import (
	"github.com/resolvkit/resolvkit/internal/protocol"
	"github.com/resolvkit/resolvkit/internal/wire"
)

// RecordType and DNSClass are aliased straight from the wire-format
// constants rather than re-declared, so a caller comparing a Result
// record's Type against resolver.RecordTypeMX is comparing the same
// underlying value the codec produced it from.
type (
	RecordType = protocol.RecordType
	DNSClass   = protocol.DNSClass
)

// Queryable record types. OPT is deliberately absent: it is a pseudo
// record synthesized by the codec, never one a caller asks for.
const (
	RecordTypeA     = protocol.RecordTypeA
	RecordTypeNS    = protocol.RecordTypeNS
	RecordTypeCNAME = protocol.RecordTypeCNAME
	RecordTypeSOA   = protocol.RecordTypeSOA
	RecordTypePTR   = protocol.RecordTypePTR
	RecordTypeHINFO = protocol.RecordTypeHINFO
	RecordTypeMX    = protocol.RecordTypeMX
	RecordTypeTXT   = protocol.RecordTypeTXT
	RecordTypeSRV   = protocol.RecordTypeSRV
	RecordTypeAAAA  = protocol.RecordTypeAAAA
	RecordTypeANY   = protocol.RecordTypeANY
)

const (
	ClassIN  = protocol.ClassIN
	ClassCH  = protocol.ClassCH
	ClassANY = protocol.ClassANY
)

// ResourceRecord is a parsed resource record: owner name, type, class,
// TTL, a tagged RDATA payload reachable through its AsA/AsMX/AsSOA/...
// accessors, and any A/AAAA glue joined in from the additional section.
type ResourceRecord = wire.ResourceRecord

// Result is the outcome of a completed query: the response RCODE and
// its three resource record sections. An RCODE of NXDOMAIN still
// produces a usable (typically answer-empty) Result rather than an
// error; the transaction engine only returns an error for RCODEs that
// mean the query itself could not be serviced (FORMERR, SERVFAIL,
// REFUSED, NOTIMP, BADVERS).
type Result struct {
	RCode       uint16
	Answers     []ResourceRecord
	Authorities []ResourceRecord
	Additionals []ResourceRecord
}

func newResult(msg *wire.Message) *Result {
	return &Result{
		RCode:       msg.RCode(),
		Answers:     msg.Answers,
		Authorities: msg.Authorities,
		Additionals: msg.Additionals,
	}
}
