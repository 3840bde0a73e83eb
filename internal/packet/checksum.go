package packet

import (
	"encoding/binary"
	"net"
)

// sum16 computes the raw (unfolded) one's-complement sum of 16-bit words
// over data, padding a trailing odd byte with a zero low byte, per
// RFC 1071. Grounded on the teacher's internal/probe/checksum.go.
func sum16(data []byte) uint32 {
	var sum uint32
	n := len(data)
	for i := 0; i+1 < n; i += 2 {
		sum += uint32(data[i])<<8 | uint32(data[i+1])
	}
	if n%2 == 1 {
		sum += uint32(data[n-1]) << 8
	}
	return sum
}

// foldSum reduces a 32-bit accumulator to 16 bits by repeatedly folding
// the carry back in.
func foldSum(sum uint32) uint16 {
	for sum > 0xffff {
		sum = (sum >> 16) + (sum & 0xffff)
	}
	return uint16(sum)
}

// checksumRFC1071 is the standard Internet checksum: fold the sum, then
// take the one's complement.
func checksumRFC1071(data []byte) uint16 {
	return ^foldSum(sum16(data))
}

func ipv4PseudoHeader(src, dst net.IP, length int, proto uint8) []byte {
	h := make([]byte, 12)
	copy(h[0:4], src.To4())
	copy(h[4:8], dst.To4())
	h[8] = 0
	h[9] = proto
	binary.BigEndian.PutUint16(h[10:12], uint16(length))
	return h
}

func ipv6PseudoHeader(src, dst net.IP, length int, nextHeader uint8) []byte {
	h := make([]byte, 40)
	copy(h[0:16], src.To16())
	copy(h[16:32], dst.To16())
	binary.BigEndian.PutUint32(h[32:36], uint32(length))
	h[39] = nextHeader
	return h
}

// pseudoHeader builds the IPv4 or IPv6 pseudo-header for the L4 checksum,
// reading src/dst out of the packet's IP layer.
func (p *Packet) pseudoHeader(ipProto string, l4Proto string, l4Len int) ([]byte, error) {
	srcAny, err := p.GetField(ipProto, "src_ip")
	if err != nil {
		return nil, err
	}
	dstAny, err := p.GetField(ipProto, "dst_ip")
	if err != nil {
		return nil, err
	}
	src := srcAny.(net.IP)
	dst := dstAny.(net.IP)
	protoNum := ipProtocolNumber[l4Proto]

	if ipProto == "ipv4" {
		return ipv4PseudoHeader(src, dst, l4Len, protoNum), nil
	}
	return ipv6PseudoHeader(src, dst, l4Len, protoNum), nil
}

// AppendPayload grows the packet's buffer by n bytes and records them as
// a trailing "payload" layer, preserving the invariant that layer
// lengths sum to the packet length. Returns the payload region for the
// caller to fill in (e.g. a timestamp, or the checksum-crafting suffix).
func (p *Packet) AppendPayload(n int) []byte {
	offset := len(p.Buf)
	p.Buf = append(p.Buf, make([]byte, n)...)
	p.Layers = append(p.Layers, Layer{Proto: "payload", Offset: offset, Length: n})
	return p.Buf[offset : offset+n]
}

// ipAndL4Layers locates the IP layer and the L4 layer stacked directly on
// top of it.
func (p *Packet) ipAndL4Layers() (ip Layer, l4 Layer, ok bool) {
	for i, l := range p.Layers {
		if l.Proto == "ipv4" || l.Proto == "ipv6" {
			if i+1 < len(p.Layers) {
				return l, p.Layers[i+1], true
			}
			return Layer{}, Layer{}, false
		}
	}
	return Layer{}, Layer{}, false
}

// FinalizeChecksums recomputes the L4 checksum using the IPv4/IPv6
// pseudo-header (spec.md §4.1). When craftUDPChecksum is non-nil and the
// L4 layer is UDP, the packet must already carry a trailing payload layer
// (see AppendPayload) at least 2 bytes long; its last two bytes are
// overwritten so the resulting checksum equals *craftUDPChecksum exactly —
// the Paris traceroute trick that lets the checksum field double as a
// per-probe tag that survives ICMP quoting.
func (p *Packet) FinalizeChecksums(craftUDPChecksum *uint16) error {
	ipLayer, l4Layer, ok := p.ipAndL4Layers()
	if !ok {
		return ErrUnknownProtocol
	}

	checksumField, ok := l4Layer.FieldSpec("checksum")
	if !ok {
		return ErrUnknownField
	}

	l4Region := p.Buf[l4Layer.Offset:]
	l4Region[checksumField.Offset] = 0
	l4Region[checksumField.Offset+1] = 0

	switch l4Layer.Proto {
	case "icmpv4":
		sum := checksumRFC1071(l4Region)
		binary.BigEndian.PutUint16(l4Region[checksumField.Offset:checksumField.Offset+2], sum)
		return nil

	case "icmpv6":
		pseudo, err := p.pseudoHeader(ipLayer.Proto, l4Layer.Proto, len(l4Region))
		if err != nil {
			return err
		}
		sum := checksumRFC1071(append(pseudo, l4Region...))
		binary.BigEndian.PutUint16(l4Region[checksumField.Offset:checksumField.Offset+2], sum)
		return nil

	case "tcp":
		pseudo, err := p.pseudoHeader(ipLayer.Proto, l4Layer.Proto, len(l4Region))
		if err != nil {
			return err
		}
		sum := checksumRFC1071(append(pseudo, l4Region...))
		binary.BigEndian.PutUint16(l4Region[checksumField.Offset:checksumField.Offset+2], sum)
		return nil

	case "udp":
		pseudo, err := p.pseudoHeader(ipLayer.Proto, l4Layer.Proto, len(l4Region))
		if err != nil {
			return err
		}

		if craftUDPChecksum == nil {
			sum := checksumRFC1071(append(pseudo, l4Region...))
			binary.BigEndian.PutUint16(l4Region[checksumField.Offset:checksumField.Offset+2], sum)
			return nil
		}

		const udpHeaderLen = 8
		payload := l4Region[udpHeaderLen:]
		if len(payload) < 2 {
			return ErrShortBuffer
		}
		suffixOffset := len(payload) - 2
		payload[suffixOffset] = 0
		payload[suffixOffset+1] = 0

		base := foldSum(sum16(pseudo) + sum16(l4Region))
		target := ^(*craftUDPChecksum)
		// Solve for the 16-bit suffix w such that folding (base + w)
		// yields `target`: one's-complement subtraction is addition of
		// the complement.
		w := foldSum(uint32(target) + uint32(^base))
		binary.BigEndian.PutUint16(payload[suffixOffset:suffixOffset+2], w)

		sum := checksumRFC1071(append(pseudo, l4Region...))
		if sum == 0 && *craftUDPChecksum == 0xFFFF {
			// One's-complement has two representations of zero, 0x0000 and
			// 0xFFFF; foldSum can land on either. 0x0000 in the UDP checksum
			// field means "no checksum", so the all-ones form is the only one
			// that can carry a crafted target of 0xFFFF.
			sum = 0xFFFF
		}
		binary.BigEndian.PutUint16(l4Region[checksumField.Offset:checksumField.Offset+2], sum)
		return nil
	}

	return ErrUnknownProtocol
}
