package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/resolvkit/resolvkit/internal/errors"
	"github.com/resolvkit/resolvkit/internal/protocol"
)

// ParseHeader parses the 12-byte DNS message header per RFC 1035 §4.1.1.
func ParseHeader(msg []byte) (Header, error) {
	if len(msg) < 12 {
		return Header{}, &errors.WireFormatError{
			Operation: "parse header",
			Offset:    0,
			Message:   fmt.Sprintf("message too short for header: %d bytes, expected at least 12", len(msg)),
		}
	}

	return Header{
		ID:      binary.BigEndian.Uint16(msg[0:2]),
		Flags:   binary.BigEndian.Uint16(msg[2:4]),
		QDCount: binary.BigEndian.Uint16(msg[4:6]),
		ANCount: binary.BigEndian.Uint16(msg[6:8]),
		NSCount: binary.BigEndian.Uint16(msg[8:10]),
		ARCount: binary.BigEndian.Uint16(msg[10:12]),
	}, nil
}

// ParseQuestion parses a question-section entry per RFC 1035 §4.1.2.
func ParseQuestion(msg []byte, offset int) (Question, int, error) {
	name, newOffset, err := ParseName(msg, offset)
	if err != nil {
		return Question{}, offset, err
	}

	if newOffset+4 > len(msg) {
		return Question{}, offset, &errors.WireFormatError{
			Operation: "parse question",
			Offset:    newOffset,
			Message:   "truncated question: not enough bytes for QTYPE and QCLASS",
		}
	}

	qtype := binary.BigEndian.Uint16(msg[newOffset : newOffset+2])
	qclass := binary.BigEndian.Uint16(msg[newOffset+2 : newOffset+4])

	return Question{Name: name, Type: qtype, Class: qclass}, newOffset + 4, nil
}

// ParseResourceRecord parses one resource record (common header + RDATA)
// per RFC 1035 §3.2.1/§4.1.3, dispatching RDATA decoding by TYPE per §4.4
// of the design. Names embedded in RDATA (CNAME target, MX exchange, SOA
// names, SRV target, ...) are parsed at their absolute offset in msg so
// compression pointers resolve against the whole message, not a copied
// RDATA slice.
func ParseResourceRecord(msg []byte, offset int) (ResourceRecord, int, error) {
	name, pos, err := ParseName(msg, offset)
	if err != nil {
		return ResourceRecord{}, offset, err
	}

	if pos+10 > len(msg) {
		return ResourceRecord{}, offset, &errors.WireFormatError{
			Operation: "parse resource record",
			Offset:    pos,
			Message:   "truncated record: not enough bytes for fixed fields",
		}
	}

	rtype := protocol.RecordType(binary.BigEndian.Uint16(msg[pos : pos+2]))
	class := protocol.DNSClass(binary.BigEndian.Uint16(msg[pos+2 : pos+4]))
	ttl := binary.BigEndian.Uint32(msg[pos+4 : pos+8])
	rdlength := binary.BigEndian.Uint16(msg[pos+8 : pos+10])
	pos += 10

	if pos+int(rdlength) > len(msg) {
		return ResourceRecord{}, offset, &errors.WireFormatError{
			Operation: "parse resource record",
			Offset:    pos,
			Message:   fmt.Sprintf("truncated RDATA: expected %d bytes, only %d available", rdlength, len(msg)-pos),
		}
	}
	rdataEnd := pos + int(rdlength)

	rr := ResourceRecord{Name: name, Type: rtype, Class: class, TTL: ttl}

	data, err := parseRDATA(msg, pos, rdataEnd, rtype, class, &rr)
	if err != nil {
		return ResourceRecord{}, offset, err
	}
	rr.Data = data

	return rr, rdataEnd, nil
}

func parseRDATA(msg []byte, start, end int, rtype protocol.RecordType, class protocol.DNSClass, rr *ResourceRecord) (any, error) {
	switch rtype {
	case protocol.RecordTypeCNAME, protocol.RecordTypeNS, protocol.RecordTypePTR,
		protocol.RecordTypeMB, protocol.RecordTypeMD, protocol.RecordTypeMF,
		protocol.RecordTypeMG, protocol.RecordTypeMR:
		target, _, err := ParseName(msg, start)
		if err != nil {
			return nil, err
		}
		return NameData{Name: target}, nil

	case protocol.RecordTypeHINFO:
		cpu, next, err := ParseCharString(msg, start)
		if err != nil {
			return nil, err
		}
		os, _, err := ParseCharString(msg, next)
		if err != nil {
			return nil, err
		}
		return HINFOData{CPU: cpu, OS: os}, nil

	case protocol.RecordTypeMX:
		if start+2 > end {
			return nil, &errors.WireFormatError{Operation: "parse MX record", Offset: start, Message: "truncated preference field"}
		}
		pref := binary.BigEndian.Uint16(msg[start : start+2])
		exchange, _, err := ParseName(msg, start+2)
		if err != nil {
			return nil, err
		}
		return MXData{Preference: pref, Exchange: exchange}, nil

	case protocol.RecordTypeSOA:
		mname, next, err := ParseName(msg, start)
		if err != nil {
			return nil, err
		}
		rname, next2, err := ParseName(msg, next)
		if err != nil {
			return nil, err
		}
		if next2+20 > end {
			return nil, &errors.WireFormatError{Operation: "parse SOA record", Offset: next2, Message: "truncated serial/refresh/retry/expire/minimum fields"}
		}
		return SOAData{
			MName:   mname,
			RName:   rname,
			Serial:  binary.BigEndian.Uint32(msg[next2 : next2+4]),
			Refresh: binary.BigEndian.Uint32(msg[next2+4 : next2+8]),
			Retry:   binary.BigEndian.Uint32(msg[next2+8 : next2+12]),
			Expire:  binary.BigEndian.Uint32(msg[next2+12 : next2+16]),
			Minimum: binary.BigEndian.Uint32(msg[next2+16 : next2+20]),
		}, nil

	case protocol.RecordTypeTXT:
		var strs []string
		pos := start
		for pos < end {
			s, next, err := ParseCharString(msg, pos)
			if err != nil {
				return nil, err
			}
			strs = append(strs, s)
			pos = next
		}
		return TXTData{Strings: strs}, nil

	case protocol.RecordTypeA:
		if class != protocol.ClassIN {
			return nil, &errors.ValidationError{Field: "class", Value: class, Message: "A record requires class IN"}
		}
		if end-start != 4 {
			return nil, &errors.WireFormatError{Operation: "parse A record", Offset: start, Message: fmt.Sprintf("invalid A record length: %d bytes, expected 4", end-start)}
		}
		var addr [4]byte
		copy(addr[:], msg[start:end])
		return addr, nil

	case protocol.RecordTypeAAAA: // RFC 3596
		if class != protocol.ClassIN {
			return nil, &errors.ValidationError{Field: "class", Value: class, Message: "AAAA record requires class IN"}
		}
		if end-start != 16 {
			return nil, &errors.WireFormatError{Operation: "parse AAAA record", Offset: start, Message: fmt.Sprintf("invalid AAAA record length: %d bytes, expected 16", end-start)}
		}
		var addr [16]byte
		copy(addr[:], msg[start:end])
		return addr, nil

	case protocol.RecordTypeSRV:
		if start+6 > end {
			return nil, &errors.WireFormatError{Operation: "parse SRV record", Offset: start, Message: "truncated priority/weight/port fields"}
		}
		priority := binary.BigEndian.Uint16(msg[start : start+2])
		weight := binary.BigEndian.Uint16(msg[start+2 : start+4])
		port := binary.BigEndian.Uint16(msg[start+4 : start+6])
		target, _, err := ParseName(msg, start+6)
		if err != nil {
			return nil, err
		}
		return SRVData{Priority: priority, Weight: weight, Port: port, Target: target}, nil

	case protocol.RecordTypeOPT:
		opt := OPTData{UDPSize: uint16(class)}
		// TTL was already read into rr.TTL by the caller; reinterpret it here
		// per RFC 6891 §6.1.3 and reset the display fields to their
		// conventional values.
		ttl := rr.TTL
		opt.ExtendedRCode = uint8(ttl >> 24)
		opt.Version = uint8(ttl >> 16)
		opt.Flags = uint16(ttl)
		rr.TTL = 0
		rr.Class = protocol.ClassIN

		pos := start
		for pos < end {
			if pos+4 > end {
				return nil, &errors.WireFormatError{Operation: "parse OPT options", Offset: pos, Message: "truncated option header"}
			}
			code := binary.BigEndian.Uint16(msg[pos : pos+2])
			length := binary.BigEndian.Uint16(msg[pos+2 : pos+4])
			pos += 4
			if pos+int(length) > end {
				return nil, &errors.WireFormatError{Operation: "parse OPT options", Offset: pos, Message: "truncated option data"}
			}
			data := make([]byte, length)
			copy(data, msg[pos:pos+int(length)])
			opt.Options = append(opt.Options, EDNSOption{Code: code, Data: data})
			pos += int(length)
		}
		return opt, nil

	default:
		raw := make([]byte, end-start)
		copy(raw, msg[start:end])
		return OpaqueData{Raw: raw}, nil
	}
}

// SortMX stably reorders rrs so that, among records sharing the same owner
// name, MX records are ascending by Preference. Records of other types
// keep their positions, and MX records of a different owner name are left
// in their original relative order. This mirrors the reference resolver's
// same-owner MX sort (an O(n^2) insertion pass; n is bounded by a single
// response message).
func SortMX(rrs []ResourceRecord) {
	for i := 1; i < len(rrs); i++ {
		if _, ok := rrs[i].AsMX(); !ok {
			continue
		}
		cur := i
		for j := i - 1; j >= 0; j-- {
			a, aok := rrs[j].AsMX()
			if !aok || rrs[j].Name != rrs[cur].Name {
				continue
			}
			b, _ := rrs[cur].AsMX()
			if a.Preference <= b.Preference {
				break
			}
			rrs[j], rrs[cur] = rrs[cur], rrs[j]
			cur = j
		}
	}
}
