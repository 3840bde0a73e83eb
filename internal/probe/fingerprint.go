package probe

import "github.com/netreach/paris-traceroute/internal/packet"

// Fingerprint is the correlation key spec.md §4.2 describes: for UDP/TCP
// probes it is the L4 checksum together with source/destination ports;
// for ICMP echo probes it is the ICMP identifier+sequence. It is a plain
// comparable struct so it can be used directly as an in-flight-table map
// key (spec.md's "packet fingerprint").
type Fingerprint struct {
	Proto    string
	SrcPort  uint16
	DstPort  uint16
	Checksum uint16
	ICMPID   uint16
	ICMPSeq  uint16
}

// fingerprintOf extracts a Fingerprint from a decoded packet's L4 layer,
// used both when building an outbound probe (to know what to expect back)
// and when parsing an inbound ICMP-quoted inner packet (to look the
// original probe up).
func fingerprintOf(pkt *packet.Packet) (Fingerprint, error) {
	for _, l := range pkt.Layers {
		switch l.Proto {
		case "udp", "tcp":
			srcAny, err := pkt.GetField(l.Proto, "src_port")
			if err != nil {
				return Fingerprint{}, err
			}
			dstAny, err := pkt.GetField(l.Proto, "dst_port")
			if err != nil {
				return Fingerprint{}, err
			}
			csAny, err := pkt.GetField(l.Proto, "checksum")
			if err != nil {
				return Fingerprint{}, err
			}
			return Fingerprint{
				Proto:    l.Proto,
				SrcPort:  srcAny.(uint16),
				DstPort:  dstAny.(uint16),
				Checksum: csAny.(uint16),
			}, nil

		case "icmpv4", "icmpv6":
			idAny, err := pkt.GetField(l.Proto, "identifier")
			if err != nil {
				return Fingerprint{}, err
			}
			seqAny, err := pkt.GetField(l.Proto, "sequence")
			if err != nil {
				return Fingerprint{}, err
			}
			return Fingerprint{
				Proto:   l.Proto,
				ICMPID:  idAny.(uint16),
				ICMPSeq: seqAny.(uint16),
			}, nil
		}
	}
	return Fingerprint{}, packet.ErrUnknownProtocol
}
