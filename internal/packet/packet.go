// Package packet implements the layered IP/{ICMP,UDP,TCP} codec: compose
// a wire buffer from named layers, set individual fields with correct
// byte order, recompute checksums (including the Paris-trick crafted UDP
// checksum), and parse an incoming buffer symmetrically — including the
// quoted inner datagram inside an ICMP error. Grounded on the teacher's
// internal/probe/icmp_packet.go byte-offset marshaling, generalized to
// arbitrary declared layers per spec.md §4.1.
package packet

import (
	"encoding/binary"
	"net"
)

// Packet is a contiguous byte buffer plus an ordered list of protocol
// layer descriptors. Invariant: sum of layer lengths equals len(Buf);
// offsets are monotonic (spec.md §3).
type Packet struct {
	Buf    []byte
	Layers []Layer

	// Inner holds the quoted IP+L4 header parsed out of an ICMP
	// time-exceeded/unreachable payload, when this Packet was produced
	// by Parse on such a message. nil otherwise.
	Inner *Packet
}

// Compose allocates a buffer sized to the sum of the named layers'
// lengths, seeds each layer's default header bytes, links them
// contiguously, and fills in each IP layer's protocol/next_header field
// from the layer stacked on top of it.
func Compose(protos ...string) (*Packet, error) {
	if len(protos) == 0 {
		return nil, ErrUnknownProtocol
	}

	layers := make([]Layer, 0, len(protos))
	total := 0
	for i, proto := range protos {
		tmpl, ok := templates[proto]
		if !ok {
			return nil, ErrUnknownProtocol
		}
		if i > 0 {
			below := templates[protos[i-1]]
			if !below.validAbove[proto] {
				return nil, ErrBadLayering
			}
		}
		layers = append(layers, Layer{
			Proto:  proto,
			Offset: total,
			Length: tmpl.length,
			Fields: tmpl.fields,
		})
		total += tmpl.length
	}

	buf := make([]byte, total)
	for i, l := range layers {
		tmpl := templates[l.Proto]
		tmpl.initBytes(buf[l.Offset : l.Offset+l.Length])

		// An IP layer's protocol number is determined by what sits on
		// top of it, not by the layer itself.
		if i+1 < len(layers) {
			if num, ok := ipProtocolNumber[layers[i+1].Proto]; ok {
				switch l.Proto {
				case "ipv4":
					buf[l.Offset+9] = num
				case "ipv6":
					buf[l.Offset+6] = num
				}
			}
		}
	}

	return &Packet{Buf: buf, Layers: layers}, nil
}

// layer returns the named layer and its byte region.
func (p *Packet) layer(proto string) (Layer, []byte, bool) {
	for _, l := range p.Layers {
		if l.Proto == proto {
			return l, p.Buf[l.Offset : l.Offset+l.Length], true
		}
	}
	return Layer{}, nil, false
}

// SetField writes value at the named field's declared offset within
// layer, converting host->network byte order for u16/u32. ipv4/ipv6
// fields are copied verbatim; u4 updates only its nibble; u8/u16/u32 are
// exact; string is unsupported (spec.md §4.1).
func (p *Packet) SetField(proto, name string, value any) error {
	l, region, ok := p.layer(proto)
	if !ok {
		return ErrUnknownProtocol
	}
	f, ok := l.FieldSpec(name)
	if !ok {
		return ErrUnknownField
	}

	switch f.Type {
	case WireString:
		return ErrUnsupportedFieldType

	case WireU8:
		v, ok := value.(uint8)
		if !ok {
			return ErrFieldTypeMismatch
		}
		region[f.Offset] = v

	case WireU16:
		v, ok := value.(uint16)
		if !ok {
			return ErrFieldTypeMismatch
		}
		binary.BigEndian.PutUint16(region[f.Offset:f.Offset+2], v)

	case WireU32:
		v, ok := value.(uint32)
		if !ok {
			return ErrFieldTypeMismatch
		}
		binary.BigEndian.PutUint32(region[f.Offset:f.Offset+4], v)

	case WireU4:
		v, ok := value.(uint8)
		if !ok {
			return ErrFieldTypeMismatch
		}
		v &= 0x0f
		cur := region[f.Offset]
		if f.Nibble == NibbleHigh {
			region[f.Offset] = (v << 4) | (cur & 0x0f)
		} else {
			region[f.Offset] = (cur & 0xf0) | v
		}

	case WireIPv4:
		v, ok := value.(net.IP)
		if !ok {
			return ErrFieldTypeMismatch
		}
		v4 := v.To4()
		if v4 == nil {
			return ErrFieldTypeMismatch
		}
		copy(region[f.Offset:f.Offset+4], v4)

	case WireIPv6:
		v, ok := value.(net.IP)
		if !ok {
			return ErrFieldTypeMismatch
		}
		v6 := v.To16()
		if v6 == nil {
			return ErrFieldTypeMismatch
		}
		copy(region[f.Offset:f.Offset+16], v6)
	}

	return nil
}

// GetField reads a field back out, inverse of SetField, used by Parse and
// by correlation to extract TTL/ports/flow ids from a decoded Packet.
func (p *Packet) GetField(proto, name string) (any, error) {
	l, region, ok := p.layer(proto)
	if !ok {
		return nil, ErrUnknownProtocol
	}
	f, ok := l.FieldSpec(name)
	if !ok {
		return nil, ErrUnknownField
	}

	switch f.Type {
	case WireString:
		return nil, ErrUnsupportedFieldType
	case WireU8:
		return region[f.Offset], nil
	case WireU16:
		return binary.BigEndian.Uint16(region[f.Offset : f.Offset+2]), nil
	case WireU32:
		return binary.BigEndian.Uint32(region[f.Offset : f.Offset+4]), nil
	case WireU4:
		if f.Nibble == NibbleHigh {
			return (region[f.Offset] >> 4) & 0x0f, nil
		}
		return region[f.Offset] & 0x0f, nil
	case WireIPv4:
		out := make(net.IP, 4)
		copy(out, region[f.Offset:f.Offset+4])
		return out, nil
	case WireIPv6:
		out := make(net.IP, 16)
		copy(out, region[f.Offset:f.Offset+16])
		return out, nil
	}
	return nil, ErrUnknownField
}

// Len returns the total packet length, the sum of its layers' lengths.
func (p *Packet) Len() int {
	return len(p.Buf)
}
