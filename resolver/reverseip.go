package resolver

import (
	"net"

	"github.com/resolvkit/resolvkit/internal/reverseip"
)

// ReverseIP builds the PTR query name for ip: the dotted-octet reversal
// under in-addr.arpa for IPv4, or the 32-nibble reversal under ip6.arpa
// for IPv6. It performs no I/O — callers pass the result to Query as the
// name with RecordTypePTR.
func ReverseIP(ip net.IP) (string, error) {
	return reverseip.Name(ip)
}

// ReverseIPWithSuffix is ReverseIP with a caller-supplied zone suffix, for
// privately delegated reverse zones that don't live under the standard
// in-addr.arpa/ip6.arpa trees.
func ReverseIPWithSuffix(ip net.IP, suffix string) (string, error) {
	return reverseip.NameWithSuffix(ip, suffix)
}
