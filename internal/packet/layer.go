package packet

// Layer describes one protocol layer inside a composed Packet: its
// protocol name, its byte region within the packet buffer, and the
// fields declared for that protocol (spec.md §3 "Packet").
type Layer struct {
	Proto  string
	Offset int
	Length int
	Fields []FieldSpec
}

// FieldSpec looks up a field by name within this layer.
func (l *Layer) FieldSpec(name string) (FieldSpec, bool) {
	for _, f := range l.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// layerTemplate is the registry entry used by Compose to allocate a new
// layer's region and seed its default header bytes.
type layerTemplate struct {
	length    int
	fields    []FieldSpec
	initBytes func(buf []byte) // seeds version nibble / protocol numbers
	// validAbove lists the protocol names that may sit directly on top
	// of this one (e.g. ipv4 may carry icmpv4/udp/tcp).
	validAbove map[string]bool
}

var templates = map[string]layerTemplate{
	"ipv4": {
		length: 20,
		fields: []FieldSpec{
			{Name: "version", Type: WireU4, Offset: 0, Nibble: NibbleHigh},
			{Name: "ihl", Type: WireU4, Offset: 0, Nibble: NibbleLow},
			{Name: "tos", Type: WireU8, Offset: 1, Size: 1},
			{Name: "total_length", Type: WireU16, Offset: 2, Size: 2},
			{Name: "id", Type: WireU16, Offset: 4, Size: 2},
			{Name: "flags_frag_offset", Type: WireU16, Offset: 6, Size: 2},
			{Name: "ttl", Type: WireU8, Offset: 8, Size: 1},
			{Name: "protocol", Type: WireU8, Offset: 9, Size: 1},
			{Name: "checksum", Type: WireU16, Offset: 10, Size: 2},
			{Name: "src_ip", Type: WireIPv4, Offset: 12, Size: 4},
			{Name: "dst_ip", Type: WireIPv4, Offset: 16, Size: 4},
		},
		initBytes: func(buf []byte) {
			buf[0] = 0x45 // version 4, IHL 5 (20-byte header, no options)
			buf[8] = 64   // default TTL
		},
		validAbove: map[string]bool{"icmpv4": true, "udp": true, "tcp": true},
	},
	"ipv6": {
		length: 40,
		fields: []FieldSpec{
			{Name: "version", Type: WireU4, Offset: 0, Nibble: NibbleHigh},
			{Name: "payload_length", Type: WireU16, Offset: 4, Size: 2},
			{Name: "next_header", Type: WireU8, Offset: 6, Size: 1},
			{Name: "hop_limit", Type: WireU8, Offset: 7, Size: 1},
			{Name: "src_ip", Type: WireIPv6, Offset: 8, Size: 16},
			{Name: "dst_ip", Type: WireIPv6, Offset: 24, Size: 16},
		},
		initBytes: func(buf []byte) {
			buf[0] = 0x60 // version 6
			buf[7] = 64   // default hop limit
		},
		validAbove: map[string]bool{"icmpv6": true, "udp": true, "tcp": true},
	},
	"icmpv4": {
		length: 8,
		fields: []FieldSpec{
			{Name: "type", Type: WireU8, Offset: 0, Size: 1},
			{Name: "code", Type: WireU8, Offset: 1, Size: 1},
			{Name: "checksum", Type: WireU16, Offset: 2, Size: 2},
			{Name: "identifier", Type: WireU16, Offset: 4, Size: 2},
			{Name: "sequence", Type: WireU16, Offset: 6, Size: 2},
		},
		initBytes:  func(buf []byte) { buf[0] = 8 }, // echo request
		validAbove: map[string]bool{},
	},
	"icmpv6": {
		length: 8,
		fields: []FieldSpec{
			{Name: "type", Type: WireU8, Offset: 0, Size: 1},
			{Name: "code", Type: WireU8, Offset: 1, Size: 1},
			{Name: "checksum", Type: WireU16, Offset: 2, Size: 2},
			{Name: "identifier", Type: WireU16, Offset: 4, Size: 2},
			{Name: "sequence", Type: WireU16, Offset: 6, Size: 2},
		},
		initBytes:  func(buf []byte) { buf[0] = 128 }, // echo request
		validAbove: map[string]bool{},
	},
	"udp": {
		length: 8,
		fields: []FieldSpec{
			{Name: "src_port", Type: WireU16, Offset: 0, Size: 2},
			{Name: "dst_port", Type: WireU16, Offset: 2, Size: 2},
			{Name: "length", Type: WireU16, Offset: 4, Size: 2},
			{Name: "checksum", Type: WireU16, Offset: 6, Size: 2},
		},
		initBytes:  func(buf []byte) {},
		validAbove: map[string]bool{},
	},
	"tcp": {
		length: 20,
		fields: []FieldSpec{
			{Name: "src_port", Type: WireU16, Offset: 0, Size: 2},
			{Name: "dst_port", Type: WireU16, Offset: 2, Size: 2},
			{Name: "seq", Type: WireU32, Offset: 4, Size: 4},
			{Name: "ack", Type: WireU32, Offset: 8, Size: 4},
			{Name: "data_offset", Type: WireU4, Offset: 12, Nibble: NibbleHigh},
			{Name: "flags", Type: WireU8, Offset: 13, Size: 1},
			{Name: "window", Type: WireU16, Offset: 14, Size: 2},
			{Name: "checksum", Type: WireU16, Offset: 16, Size: 2},
			{Name: "urgent_pointer", Type: WireU16, Offset: 18, Size: 2},
		},
		initBytes: func(buf []byte) {
			buf[12] = 0x50 // data offset = 5 words (20 bytes, no options)
			buf[13] = 0x02 // SYN
		},
		validAbove: map[string]bool{},
	},
}

// ipProtocolNumber maps an L4 protocol name to its IPv4/IPv6 "protocol"/
// "next_header" field value, used both by Compose (to fill the IP layer's
// protocol field) and by Parse (to decide which L4 template to decode).
var ipProtocolNumber = map[string]uint8{
	"icmpv4": 1,
	"tcp":    6,
	"udp":    17,
	"icmpv6": 58,
}

var protocolNumberToName = map[uint8]string{
	1:  "icmpv4",
	6:  "tcp",
	17: "udp",
	58: "icmpv6",
}
