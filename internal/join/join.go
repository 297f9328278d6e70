// Package join attaches additional-section glue (A/AAAA records) onto
// the answer records that reference the name those glue records describe
// — CNAME and NS targets, PTR targets, MX exchanges, SOA mnames, and SRV
// targets — so a caller walking the answer section doesn't need a second
// lookup for addresses the server already sent.
package join

import "github.com/resolvkit/resolvkit/internal/wire"

// Glue matches every A/AAAA record in additionals against the name each
// record in sections references, and appends matches onto that record's
// Addresses field. Records whose data type carries no referenceable name
// (TXT, HINFO, raw A/AAAA themselves, unrecognized types) are skipped,
// not treated as an error — an unglueable record still has every field a
// caller asked for, it simply has no Addresses to attach.
func Glue(sections [][]wire.ResourceRecord, additionals []wire.ResourceRecord) {
	index := buildAddressIndex(additionals)
	if len(index) == 0 {
		return
	}

	for _, section := range sections {
		for i := range section {
			name, ok := referencedName(section[i])
			if !ok {
				continue
			}
			if addrs, found := index[name]; found {
				section[i].Addresses = append(section[i].Addresses, addrs...)
			}
		}
	}
}

// buildAddressIndex groups every A/AAAA additional record by owner name.
func buildAddressIndex(additionals []wire.ResourceRecord) map[string][]wire.ResourceRecord {
	index := make(map[string][]wire.ResourceRecord)
	for _, rr := range additionals {
		if _, ok := rr.AsA(); ok {
			index[rr.Name] = append(index[rr.Name], rr)
			continue
		}
		if _, ok := rr.AsAAAA(); ok {
			index[rr.Name] = append(index[rr.Name], rr)
		}
	}
	return index
}

// referencedName extracts the name a record's RDATA points at, if any.
func referencedName(rr wire.ResourceRecord) (string, bool) {
	if nd, ok := rr.AsName(); ok {
		return nd.Name, true
	}
	if mx, ok := rr.AsMX(); ok {
		return mx.Exchange, true
	}
	if soa, ok := rr.AsSOA(); ok {
		return soa.MName, true
	}
	if srv, ok := rr.AsSRV(); ok {
		return srv.Target, true
	}
	return "", false
}
