package probe

import (
	"time"

	"github.com/netreach/paris-traceroute/internal/address"
	"github.com/netreach/paris-traceroute/internal/packet"
)

// Reply is a received datagram matched back to the Probe that caused it
// (spec.md §3 "Reply", §4.2 correlation). For an ICMP time-exceeded or
// destination-unreachable message the Fingerprint is extracted from the
// quoted inner packet; for an ICMP echo reply it is extracted from the
// reply itself.
type Reply struct {
	Packet    *packet.Packet
	From      address.Address
	IPv6      bool
	ICMPType  uint8
	ICMPCode  uint8
	Fingerprint Fingerprint
	RecvTime  time.Time

	// TimeExceeded is true for an intermediate-hop ICMP time-exceeded
	// message; false for a destination-reached ICMP
	// unreachable/echo-reply/TCP-reset/UDP-port-unreachable terminal reply.
	TimeExceeded bool
}

// ParseReply decodes a raw datagram received off a raw ICMP socket (or, for
// a TCP/UDP terminal reply, off a matching transport socket) and resolves
// the Fingerprint needed to look the original Probe up in the in-flight
// table.
func ParseReply(buf []byte, from address.Address, recvTime time.Time) (*Reply, error) {
	pkt, err := packet.Parse(buf)
	if err != nil {
		return nil, err
	}
	r, err := FromPacket(pkt, from)
	if err != nil {
		return nil, err
	}
	r.RecvTime = recvTime
	return r, nil
}

// FromPacket builds a Reply from an already-decoded packet, used when the
// receive socket hands back bytes starting at the ICMP header rather than
// a full IP datagram (golang.org/x/net/icmp's PacketConn.ReadFrom on most
// platforms — see internal/netio/socket.go).
func FromPacket(pkt *packet.Packet, from address.Address) (*Reply, error) {
	r := &Reply{
		Packet: pkt,
		From:   from,
		IPv6:   from.IsIPv6(),
	}

	for _, l := range pkt.Layers {
		if l.Proto != "icmpv4" && l.Proto != "icmpv6" {
			continue
		}
		typeAny, err := pkt.GetField(l.Proto, "type")
		if err != nil {
			return nil, err
		}
		codeAny, err := pkt.GetField(l.Proto, "code")
		if err != nil {
			return nil, err
		}
		r.ICMPType = typeAny.(uint8)
		r.ICMPCode = codeAny.(uint8)
		r.TimeExceeded = (l.Proto == "icmpv4" && r.ICMPType == 11) ||
			(l.Proto == "icmpv6" && r.ICMPType == 3)

		if pkt.Inner != nil {
			fp, err := fingerprintOf(pkt.Inner)
			if err != nil {
				return nil, err
			}
			r.Fingerprint = fp
		} else {
			fp, err := fingerprintOf(pkt)
			if err != nil {
				return nil, err
			}
			r.Fingerprint = fp
		}
		return r, nil
	}

	// Non-ICMP reply: a TCP RST or a UDP datagram read directly off a
	// connected socket. The packet's own L4 layer carries the fingerprint.
	fp, err := fingerprintOf(pkt)
	if err != nil {
		return nil, err
	}
	r.Fingerprint = fp
	return r, nil
}
