package wire

import (
	"fmt"

	"github.com/resolvkit/resolvkit/internal/errors"
)

// ParseCharString reads one <character-string> per RFC 1035 §3.3: a single
// length byte followed by that many octets. Returns the string and the
// offset immediately after it.
func ParseCharString(msg []byte, offset int) (string, int, error) {
	if offset < 0 || offset >= len(msg) {
		return "", offset, &errors.WireFormatError{
			Operation: "parse character-string",
			Offset:    offset,
			Message:   "offset out of bounds",
		}
	}

	length := int(msg[offset])
	start := offset + 1
	end := start + length

	if end > len(msg) {
		return "", offset, &errors.WireFormatError{
			Operation: "parse character-string",
			Offset:    offset,
			Message:   fmt.Sprintf("truncated character-string: expected %d bytes, only %d available", length, len(msg)-start),
		}
	}

	return string(msg[start:end]), end, nil
}

// EncodeCharString encodes s as a <character-string> per RFC 1035 §3.3.
func EncodeCharString(s string) ([]byte, error) {
	if len(s) > 255 {
		return nil, &errors.ValidationError{
			Field:   "character-string",
			Value:   s,
			Message: "character-string exceeds maximum length 255 bytes",
		}
	}

	out := make([]byte, 0, len(s)+1)
	out = append(out, byte(len(s)))
	out = append(out, []byte(s)...)
	return out, nil
}
