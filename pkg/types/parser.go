package types

import (
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
)

// ParseField reads one serialized field of the given type from r.
func ParseField(r io.Reader, fieldType Type) (Field, error) {
	switch fieldType {
	case IntType:
		return parseIntField(r)
	case StringType:
		return parseStringField(r)
	default:
		return nil, fmt.Errorf("unsupported field type: %v", fieldType)
	}
}

func parseIntField(r io.Reader) (*IntField, error) {
	bytes := make([]byte, 4)
	if _, err := io.ReadFull(r, bytes); err != nil {
		return nil, err
	}
	return NewIntField(int32(binary.BigEndian.Uint32(bytes))), nil // #nosec G115
}

// parseStringField reads a length-prefixed string followed by padding up to
// StringMaxSize.
func parseStringField(r io.Reader) (*StringField, error) {
	buf := make([]byte, 4+StringMaxSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}

	length := int(binary.BigEndian.Uint32(buf[:4]))
	if length > StringMaxSize {
		return nil, fmt.Errorf("string length %d exceeds maximum %d", length, StringMaxSize)
	}

	return NewStringField(string(buf[4 : 4+length])), nil
}

// ParseText converts a textual value (for example a CLI argument) into a
// field of the requested type.
func ParseText(s string, fieldType Type) (Field, error) {
	switch fieldType {
	case IntType:
		v, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid int value %q: %w", s, err)
		}
		return NewIntField(int32(v)), nil
	case StringType:
		return NewStringField(s), nil
	default:
		return nil, fmt.Errorf("unsupported field type: %v", fieldType)
	}
}
