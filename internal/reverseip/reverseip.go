// Package reverseip builds the in-addr.arpa / ip6.arpa query name for a
// PTR lookup of a numeric IP address.
package reverseip

import (
	"fmt"
	"net"
	"strings"

	"github.com/resolvkit/resolvkit/internal/errors"
)

// DefaultV4Suffix is the standard reverse DNS zone for IPv4 addresses.
const DefaultV4Suffix = "in-addr.arpa"

// DefaultV6Suffix is the standard reverse DNS zone for IPv6 addresses.
const DefaultV6Suffix = "ip6.arpa"

// Name builds the PTR query name for ip using the standard suffix for its
// address family.
func Name(ip net.IP) (string, error) {
	if v4 := ip.To4(); v4 != nil {
		return reverseV4(v4, DefaultV4Suffix), nil
	}
	if v16 := ip.To16(); v16 != nil {
		return reverseV6(v16, DefaultV6Suffix), nil
	}
	return "", &errors.ValidationError{Field: "ip", Value: ip.String(), Message: "not a valid IPv4 or IPv6 address"}
}

// NameWithSuffix builds the PTR query name for ip under an explicit zone
// suffix, letting a caller query a privately delegated reverse zone
// instead of the public in-addr.arpa/ip6.arpa hierarchy.
func NameWithSuffix(ip net.IP, suffix string) (string, error) {
	if v4 := ip.To4(); v4 != nil {
		return reverseV4(v4, suffix), nil
	}
	if v16 := ip.To16(); v16 != nil {
		return reverseV6(v16, suffix), nil
	}
	return "", &errors.ValidationError{Field: "ip", Value: ip.String(), Message: "not a valid IPv4 or IPv6 address"}
}

// reverseV4 reverses the four dotted octets: 192.0.2.1 becomes
// "1.2.0.192.<suffix>".
func reverseV4(v4 net.IP, suffix string) string {
	return fmt.Sprintf("%d.%d.%d.%d.%s", v4[3], v4[2], v4[1], v4[0], suffix)
}

// reverseV6 reverses all 32 nibbles of a 128-bit address: each hex digit
// becomes its own label, in reverse, per RFC 3596 §2.5.
func reverseV6(v16 net.IP, suffix string) string {
	const hexDigits = "0123456789abcdef"
	labels := make([]string, 0, 32)
	for i := len(v16) - 1; i >= 0; i-- {
		b := v16[i]
		labels = append(labels, string(hexDigits[b&0x0f]), string(hexDigits[b>>4]))
	}
	return strings.Join(labels, ".") + "." + suffix
}
