package packet

import "errors"

// Codec errors, per spec.md §7.
var (
	// ErrBadLayering is returned by Compose when two adjacent layers are
	// not a valid IP/L4 pairing (e.g. tcp directly above udp).
	ErrBadLayering = errors.New("packet: incompatible adjacent layers")

	// ErrUnsupportedFieldType is returned by SetField for the "string"
	// wire type, which the codec does not support writing.
	ErrUnsupportedFieldType = errors.New("packet: unsupported field type")

	// ErrUnknownField is returned when a layer/field name pair does not
	// exist in the layer's template.
	ErrUnknownField = errors.New("packet: unknown field")

	// ErrUnknownProtocol is returned by Compose and Parse for a protocol
	// name with no registered template.
	ErrUnknownProtocol = errors.New("packet: unknown protocol")

	// ErrShortBuffer is returned by Parse when the buffer is too small to
	// contain the layer it is trying to decode.
	ErrShortBuffer = errors.New("packet: buffer too short")

	// ErrFieldTypeMismatch is returned by SetField when value's Go type
	// does not match the field's declared wire type.
	ErrFieldTypeMismatch = errors.New("packet: value does not match field wire type")
)
