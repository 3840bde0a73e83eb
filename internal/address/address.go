// Package address provides the tagged-union IPv4/IPv6 address type shared
// across the packet codec, probe correlation, and MDA lattice.
package address

import (
	"errors"
	"net"
)

// Family distinguishes the two address kinds an Address may carry.
type Family uint8

const (
	// FamilyIPv4 tags an Address holding 4 octets.
	FamilyIPv4 Family = iota
	// FamilyIPv6 tags an Address holding 16 octets.
	FamilyIPv6
)

// ErrInvalidAddress is returned when constructing an Address from bytes or
// text fails because the length or syntax does not match either family.
var ErrInvalidAddress = errors.New("address: invalid address")

// Address is an immutable tagged union of {IPv4 octets, IPv6 octets}. Once
// constructed it never changes; copies are cheap value copies.
type Address struct {
	family Family
	octets [16]byte
}

// FromIP builds an Address from a net.IP, picking the tag from the
// 4-in-16 representation net.IP uses internally.
func FromIP(ip net.IP) (Address, error) {
	if v4 := ip.To4(); v4 != nil {
		var a Address
		a.family = FamilyIPv4
		copy(a.octets[:4], v4)
		return a, nil
	}
	if v6 := ip.To16(); v6 != nil {
		var a Address
		a.family = FamilyIPv6
		copy(a.octets[:], v6)
		return a, nil
	}
	return Address{}, ErrInvalidAddress
}

// FromString parses dotted-decimal or colon-hex text into an Address.
func FromString(s string) (Address, error) {
	ip := net.ParseIP(s)
	if ip == nil {
		return Address{}, ErrInvalidAddress
	}
	return FromIP(ip)
}

// Family reports which tag this Address carries.
func (a Address) Family() Family {
	return a.family
}

// IsIPv4 reports whether this Address holds 4 octets.
func (a Address) IsIPv4() bool {
	return a.family == FamilyIPv4
}

// IsIPv6 reports whether this Address holds 16 octets.
func (a Address) IsIPv6() bool {
	return a.family == FamilyIPv6
}

// Bytes returns the wire-order octets: 4 bytes for IPv4, 16 for IPv6.
func (a Address) Bytes() []byte {
	if a.family == FamilyIPv4 {
		out := make([]byte, 4)
		copy(out, a.octets[:4])
		return out
	}
	out := make([]byte, 16)
	copy(out, a.octets[:])
	return out
}

// IP returns the net.IP view of this Address, for use with the standard
// library's socket APIs.
func (a Address) IP() net.IP {
	if a.family == FamilyIPv4 {
		return net.IP(a.octets[:4])
	}
	return net.IP(a.octets[:])
}

// Equal reports whether two Addresses carry the same family and octets.
func (a Address) Equal(b Address) bool {
	return a.family == b.family && a.octets == b.octets
}

// String renders the address in its usual text form. This is the one
// external-collaborator seam spec.md leaves unimplemented ("formatted to
// text by an external collaborator") that carries no DNS lookup, so it is
// implemented directly here rather than left as an interface.
func (a Address) String() string {
	return a.IP().String()
}

// Zero reports whether every octet is zero: true for the unset zero value,
// and also for 0.0.0.0 and ::.
func (a Address) Zero() bool {
	return a.octets == [16]byte{}
}
