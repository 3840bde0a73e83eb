package packet

// WireType names the on-the-wire encoding of a declared field, per
// spec.md §4.1: "ipv4, ipv6, u8, u16 (big-endian), u32 (big-endian), u4
// (packed half-octet), string". All multibyte wire fields are
// big-endian; caller-facing Go values are host-endian.
type WireType uint8

const (
	WireIPv4 WireType = iota
	WireIPv6
	WireU8
	WireU16
	WireU32
	WireU4
	WireString
)

// Nibble selects which half-octet a u4 field occupies.
type Nibble uint8

const (
	// NibbleHigh is the most-significant 4 bits of the byte at Offset.
	NibbleHigh Nibble = iota
	// NibbleLow is the least-significant 4 bits of the byte at Offset.
	NibbleLow
)

// FieldSpec is the `(name, wire type, offset, size)` tuple spec.md
// attaches to every declared field of a layer. Offset is relative to the
// start of the layer's own buffer region; Size is redundant with Type for
// fixed-width types but kept for ipv4/ipv6/string where it matters.
type FieldSpec struct {
	Name   string
	Type   WireType
	Offset int
	Size   int
	Nibble Nibble // only meaningful when Type == WireU4
}
