package wire

// ParseMessage parses a complete DNS message per RFC 1035 §4.1: header,
// question section, then answer/authority/additional resource records,
// each built on top of ParseResourceRecord so RDATA names resolve
// compression pointers against the whole buffer.
func ParseMessage(msg []byte) (*Message, error) {
	header, err := ParseHeader(msg)
	if err != nil {
		return nil, err
	}

	offset := 12

	questions := make([]Question, 0, header.QDCount)
	for i := uint16(0); i < header.QDCount; i++ {
		q, next, err := ParseQuestion(msg, offset)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
		offset = next
	}

	answers, offset, err := parseRRSection(msg, offset, header.ANCount)
	if err != nil {
		return nil, err
	}

	authorities, offset, err := parseRRSection(msg, offset, header.NSCount)
	if err != nil {
		return nil, err
	}

	additionals, _, err := parseRRSection(msg, offset, header.ARCount)
	if err != nil {
		return nil, err
	}

	SortMX(answers)

	return &Message{
		Header:      header,
		Questions:   questions,
		Answers:     answers,
		Authorities: authorities,
		Additionals: additionals,
	}, nil
}

func parseRRSection(msg []byte, offset int, count uint16) ([]ResourceRecord, int, error) {
	rrs := make([]ResourceRecord, 0, count)
	for i := uint16(0); i < count; i++ {
		rr, next, err := ParseResourceRecord(msg, offset)
		if err != nil {
			return nil, offset, err
		}
		rrs = append(rrs, rr)
		offset = next
	}
	return rrs, offset, nil
}
