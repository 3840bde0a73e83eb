// Package probe implements the logical Probe/Reply objects and the
// packet-crafting layer that builds them: a Probe wraps a packet.Packet
// plus send/receive metadata, flow identifier, and a correlation tag
// recoverable from the quoted IP+L4 header inside an ICMP error
// (spec.md §3, §4.1). Grounded on the teacher's internal/probe package
// (paris.go, icmp.go, udp.go, tcp.go connection/TTL plumbing), rewritten
// around the shared packet codec instead of one ad-hoc byte layout per
// method.
package probe

import (
	"time"

	"github.com/netreach/paris-traceroute/internal/address"
	"github.com/netreach/paris-traceroute/internal/packet"
)

// Method names the L4 protocol a probe is built from.
type Method string

const (
	MethodICMP Method = "icmp"
	MethodUDP  Method = "udp"
	MethodTCP  Method = "tcp"
)

// Flow is the subset of packet fields a router hashes to pick an ECMP
// next-hop (spec.md GLOSSARY "Flow identifier"). Probes sharing a Flow
// take the same path through a load-balanced segment.
type Flow struct {
	SrcPort uint16
	DstPort uint16
}

// Probe owns a packet.Packet plus the metadata spec.md §3 describes: send
// timestamp (set when transmitted), receive timestamp (unset unless this
// Probe is itself a reply envelope), flow identifier, and the opaque
// Fingerprint used to correlate with ICMP-quoted copies.
type Probe struct {
	Packet   *packet.Packet
	Method   Method
	IPv6     bool
	TTL      uint8
	Flow     Flow
	Tag      uint16 // per-probe nonce: ICMP sequence, or the crafted UDP checksum
	Fingerprint Fingerprint

	// InstanceID names the algorithm instance that owns this probe, set
	// by the algorithm runtime when the probe is handed to Network I/O
	// (internal/algorithm). Zero value is meaningful only before Send.
	InstanceID int

	SendTime time.Time
	RecvTime time.Time
}

// Params describes what Build needs to construct one outbound probe.
type Params struct {
	Method Method
	IPv6   bool
	Src    address.Address
	Dst    address.Address
	TTL    uint8
	Flow   Flow
	Tag    uint16 // ICMP sequence number, or the target UDP checksum
}

// Build composes a wire packet for Params and returns the owning Probe,
// its Fingerprint already computed so Network I/O can register it in the
// in-flight table before sending.
func Build(p Params) (*Probe, error) {
	ipProto := "ipv4"
	icmpProto := "icmpv4"
	if p.IPv6 {
		ipProto = "ipv6"
		icmpProto = "icmpv6"
	}

	var protos []string
	switch p.Method {
	case MethodICMP:
		protos = []string{ipProto, icmpProto}
	case MethodUDP:
		protos = []string{ipProto, "udp"}
	case MethodTCP:
		protos = []string{ipProto, "tcp"}
	default:
		return nil, packet.ErrUnknownProtocol
	}

	pkt, err := packet.Compose(protos...)
	if err != nil {
		return nil, err
	}

	if err := pkt.SetField(ipProto, "src_ip", p.Src.IP()); err != nil {
		return nil, err
	}
	if err := pkt.SetField(ipProto, "dst_ip", p.Dst.IP()); err != nil {
		return nil, err
	}
	if p.IPv6 {
		if err := pkt.SetField(ipProto, "hop_limit", p.TTL); err != nil {
			return nil, err
		}
	} else {
		if err := pkt.SetField(ipProto, "ttl", p.TTL); err != nil {
			return nil, err
		}
	}

	switch p.Method {
	case MethodICMP:
		if err := pkt.SetField(icmpProto, "identifier", p.Flow.SrcPort); err != nil {
			return nil, err
		}
		if err := pkt.SetField(icmpProto, "sequence", p.Tag); err != nil {
			return nil, err
		}
		payload := pkt.AppendPayload(8)
		putTimestamp(payload)
		if err := pkt.FinalizeChecksums(nil); err != nil {
			return nil, err
		}

	case MethodUDP:
		if err := pkt.SetField("udp", "src_port", p.Flow.SrcPort); err != nil {
			return nil, err
		}
		if err := pkt.SetField("udp", "dst_port", p.Flow.DstPort); err != nil {
			return nil, err
		}
		pkt.AppendPayload(2) // the checksum-crafting suffix (spec.md §4.1)
		target := p.Tag
		if err := pkt.FinalizeChecksums(&target); err != nil {
			return nil, err
		}

	case MethodTCP:
		if err := pkt.SetField("tcp", "src_port", p.Flow.SrcPort); err != nil {
			return nil, err
		}
		if err := pkt.SetField("tcp", "dst_port", p.Flow.DstPort); err != nil {
			return nil, err
		}
		// The tag goes into the sequence number, which in turn varies the
		// TCP checksum; the fingerprint is that checksum plus the ports.
		if err := pkt.SetField("tcp", "seq", uint32(p.Tag)<<16|uint32(p.Tag)); err != nil {
			return nil, err
		}
		if err := pkt.FinalizeChecksums(nil); err != nil {
			return nil, err
		}
	}

	fp, err := fingerprintOf(pkt)
	if err != nil {
		return nil, err
	}

	return &Probe{
		Packet:      pkt,
		Method:      p.Method,
		IPv6:        p.IPv6,
		TTL:         p.TTL,
		Flow:        p.Flow,
		Tag:         p.Tag,
		Fingerprint: fp,
	}, nil
}

func putTimestamp(dst []byte) {
	now := time.Now().UnixNano()
	for i := 7; i >= 0; i-- {
		dst[i] = byte(now)
		now >>= 8
	}
}
