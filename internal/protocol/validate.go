package protocol

import (
	"fmt"

	"github.com/resolvkit/resolvkit/internal/errors"
)

// IsResponse reports whether the QR bit is set in a header flags field.
func IsResponse(flags uint16) bool {
	return flags&FlagQR != 0
}

// IsTruncated reports whether the TC bit is set in a header flags field.
func IsTruncated(flags uint16) bool {
	return flags&FlagTC != 0
}

// Opcode extracts the 4-bit OPCODE from a header flags field.
func Opcode(flags uint16) uint16 {
	return (flags >> 11) & 0x0F
}

// RCode extracts the 4-bit base RCODE from a header flags field. The
// extended RCODE bits carried in an OPT record's TTL field are folded in
// separately by the record codec (see internal/wire).
func RCode(flags uint16) uint16 {
	return flags & 0x000F
}

// ValidateRecordType rejects query types this resolver cannot ask for.
// OPT (41) is deliberately excluded: it is a pseudo-record synthesized by
// the codec, never a type a caller queries for directly.
func ValidateRecordType(recordType uint16) error {
	rt := RecordType(recordType)
	if rt == RecordTypeOPT || !rt.IsQueryable() {
		return &errors.ValidationError{
			Field:   "recordType",
			Value:   recordType,
			Message: fmt.Sprintf("unsupported or unqueryable record type %d", recordType),
		}
	}
	return nil
}

// ValidateClass rejects query classes this resolver cannot ask for.
func ValidateClass(class uint16) error {
	c := DNSClass(class)
	if !c.IsQueryable() {
		return &errors.ValidationError{
			Field:   "class",
			Value:   class,
			Message: fmt.Sprintf("unsupported query class %d", class),
		}
	}
	return nil
}
