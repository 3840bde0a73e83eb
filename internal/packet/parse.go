package packet

// Parse identifies layers by inspecting the version nibble (IPv4 vs
// IPv6) and protocol numbers, returning a Packet with populated layer
// descriptors. When the decoded L4 layer is an ICMP time-exceeded or
// unreachable message, the quoted 28+ bytes of the original datagram are
// parsed as a nested Packet in Inner, for probe correlation (spec.md
// §4.1, §4.2).
func Parse(buf []byte) (*Packet, error) {
	if len(buf) < 1 {
		return nil, ErrShortBuffer
	}

	version := buf[0] >> 4
	switch version {
	case 4:
		return parseIPv4(buf)
	case 6:
		return parseIPv6(buf)
	default:
		return nil, ErrUnknownProtocol
	}
}

func parseIPv4(buf []byte) (*Packet, error) {
	if len(buf) < 20 {
		return nil, ErrShortBuffer
	}
	ihl := int(buf[0]&0x0f) * 4
	if ihl < 20 || len(buf) < ihl {
		return nil, ErrShortBuffer
	}
	protoNum := buf[9]
	proto, ok := protocolNumberToName[protoNum]
	if !ok || proto == "icmpv6" {
		return nil, ErrUnknownProtocol
	}

	layers := []Layer{{Proto: "ipv4", Offset: 0, Length: ihl, Fields: templates["ipv4"].fields}}
	return finishParse(buf, layers, ihl, proto)
}

// ParseICMPPayload decodes a buffer that starts directly at the ICMP
// header with no IP header in front of it — what golang.org/x/net/icmp's
// PacketConn.ReadFrom hands back on most platforms, since the kernel
// strips the IP header for raw ICMP reads even when IP_HDRINCL governs
// sends. icmpProto must be "icmpv4" or "icmpv6".
func ParseICMPPayload(icmpProto string, buf []byte) (*Packet, error) {
	if icmpProto != "icmpv4" && icmpProto != "icmpv6" {
		return nil, ErrUnknownProtocol
	}
	return finishParse(buf, nil, 0, icmpProto)
}

func parseIPv6(buf []byte) (*Packet, error) {
	if len(buf) < 40 {
		return nil, ErrShortBuffer
	}
	protoNum := buf[6]
	proto, ok := protocolNumberToName[protoNum]
	if !ok || proto == "icmpv4" {
		return nil, ErrUnknownProtocol
	}

	layers := []Layer{{Proto: "ipv6", Offset: 0, Length: 40, Fields: templates["ipv6"].fields}}
	return finishParse(buf, layers, 40, proto)
}

// finishParse decodes the L4 layer starting at ipHeaderLen, appends a
// trailing payload layer for any remaining bytes, and — for ICMP
// time-exceeded/unreachable messages — recursively parses the quoted
// inner datagram.
func finishParse(buf []byte, layers []Layer, l4Offset int, l4Proto string) (*Packet, error) {
	tmpl, ok := templates[l4Proto]
	if !ok {
		return nil, ErrUnknownProtocol
	}
	if len(buf) < l4Offset+tmpl.length {
		return nil, ErrShortBuffer
	}
	layers = append(layers, Layer{Proto: l4Proto, Offset: l4Offset, Length: tmpl.length, Fields: tmpl.fields})

	trailingOffset := l4Offset + tmpl.length
	if trailingOffset < len(buf) {
		layers = append(layers, Layer{Proto: "payload", Offset: trailingOffset, Length: len(buf) - trailingOffset})
	}

	p := &Packet{Buf: buf, Layers: layers}

	if l4Proto == "icmpv4" || l4Proto == "icmpv6" {
		icmpType := buf[l4Offset]
		isError := (l4Proto == "icmpv4" && (icmpType == 3 || icmpType == 11)) ||
			(l4Proto == "icmpv6" && (icmpType == 1 || icmpType == 3))
		if isError && trailingOffset < len(buf) {
			// RFC 792/4443: the quoted original datagram follows a
			// 4-byte "unused"/"length" field in the ICMP error body.
			quoted := buf[trailingOffset:]
			if len(quoted) >= 4 {
				quoted = quoted[4:]
			}
			if inner, err := Parse(quoted); err == nil {
				p.Inner = inner
			}
		}
	}

	return p, nil
}
