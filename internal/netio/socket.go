package netio

import (
	"net"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"

	"github.com/netreach/paris-traceroute/internal/address"
	"github.com/netreach/paris-traceroute/internal/packet"
	"github.com/netreach/paris-traceroute/internal/probe"
)

// Sockets owns the raw send connection and the ICMPv4/ICMPv6 receive
// listeners for one traceroute run. Grounded on the teacher's
// internal/probe/icmp.go (icmp.ListenPacket dual-stack setup,
// unprivileged-mode fallback) and udp.go (per-probe TTL control),
// generalized to transmit the fully-crafted packet.Packet this module's
// codec already produced instead of letting net.Conn build the header.
type Sockets struct {
	raw4 *ipv4.RawConn
	raw6 net.PacketConn
	pc6  *ipv6.PacketConn

	recv4 *icmp.PacketConn
	recv6 *icmp.PacketConn
}

// Open binds the send and receive sockets this run needs. needIPv4/needIPv6
// select which families to open; a process tracing only one family need
// not hold privileged sockets for the other.
func Open(needIPv4, needIPv6 bool) (*Sockets, error) {
	s := &Sockets{}

	if needIPv4 {
		pc, err := net.ListenPacket("ip4:udp", "0.0.0.0")
		if err != nil {
			pc, err = net.ListenPacket("ip4:1", "0.0.0.0")
		}
		if err != nil {
			s.Close()
			return nil, err
		}
		rc, err := ipv4.NewRawConn(pc)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.raw4 = rc

		recv4, err := icmp.ListenPacket("ip4:icmp", "0.0.0.0")
		if err != nil {
			recv4, err = icmp.ListenPacket("udp4", "0.0.0.0")
		}
		if err != nil {
			s.Close()
			return nil, err
		}
		s.recv4 = recv4
		enableRecvOptions(s.recv4)
	}

	if needIPv6 {
		raw6, err := net.ListenPacket("ip6:udp", "::")
		if err != nil {
			raw6, err = net.ListenPacket("ip6:58", "::")
		}
		if err != nil {
			s.Close()
			return nil, err
		}
		s.raw6 = raw6
		s.pc6 = ipv6.NewPacketConn(raw6)

		recv6, err := icmp.ListenPacket("ip6:ipv6-icmp", "::")
		if err != nil {
			recv6, err = icmp.ListenPacket("udp6", "::")
		}
		if err != nil {
			s.Close()
			return nil, err
		}
		s.recv6 = recv6
		enableRecvOptions(s.recv6)
	}

	return s, nil
}

// Close tears down whichever sockets were opened.
func (s *Sockets) Close() error {
	var first error
	record := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}
	if s.raw4 != nil {
		record(s.raw4.Close())
	}
	if s.raw6 != nil {
		record(s.raw6.Close())
	}
	if s.recv4 != nil {
		record(s.recv4.Close())
	}
	if s.recv6 != nil {
		record(s.recv6.Close())
	}
	return first
}

// Transmit implements Transmitter. IPv4 probes carry their own
// fully-crafted 20-byte header (spec.md §4.1), written verbatim via the
// raw IP_HDRINCL-backed connection; IPv6 has no header-include
// equivalent, so only the L4 region is written and the hop limit travels
// as a per-packet control message instead.
func (s *Sockets) Transmit(p *probe.Probe, dst address.Address) error {
	if p.IPv6 {
		return s.transmitIPv6(p, dst)
	}
	return s.transmitIPv4(p, dst)
}

func (s *Sockets) transmitIPv4(p *probe.Probe, dst address.Address) error {
	hdr, err := ipv4.ParseHeader(p.Packet.Buf[:20])
	if err != nil {
		return err
	}
	hdr.Dst = dst.IP()
	return s.raw4.WriteTo(hdr, p.Packet.Buf[20:], nil)
}

func (s *Sockets) transmitIPv6(p *probe.Probe, dst address.Address) error {
	hlAny, err := p.Packet.GetField("ipv6", "hop_limit")
	if err != nil {
		return err
	}
	cm := &ipv6.ControlMessage{HopLimit: int(hlAny.(uint8))}
	_, err = s.pc6.WriteTo(p.Packet.Buf[40:], cm, &net.IPAddr{IP: dst.IP()})
	return err
}

// ReadLoop blocks reading from the given ICMP family's socket, decoding
// each datagram into a Reply and handing it to deliver, until the socket
// is closed. Run as a background goroutine per family; it never touches
// Conn's fields directly, only the channel deliver wraps.
func (s *Sockets) ReadLoop(ipv6Family bool, deliver func(Incoming), wake func()) {
	conn := s.recv4
	proto := "icmpv4"
	if ipv6Family {
		conn = s.recv6
		proto = "icmpv6"
	}
	if conn == nil {
		return
	}

	buf := make([]byte, 2048)
	for {
		n, peer, err := conn.ReadFrom(buf)
		if err != nil {
			deliver(Incoming{Err: err})
			wake()
			return
		}

		pkt, err := packet.ParseICMPPayload(proto, buf[:n])
		if err != nil {
			continue
		}
		from, err := address.FromIP(extractIP(peer))
		if err != nil {
			continue
		}
		reply, err := probe.FromPacket(pkt, from)
		if err != nil {
			continue
		}
		reply.RecvTime = time.Now()
		deliver(Incoming{Reply: reply})
		wake()
	}
}

func extractIP(addr net.Addr) net.IP {
	switch a := addr.(type) {
	case *net.IPAddr:
		return a.IP
	case *net.UDPAddr:
		return a.IP
	default:
		return nil
	}
}
