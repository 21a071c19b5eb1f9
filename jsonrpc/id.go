package jsonrpc

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ID represents a request ID as it appeared on the wire.
//
// The zero value is an absent ID, which is omitted from encoded messages
// (use the `omitzero` tag option). A JSON null is kept as an explicit null,
// and any string or number is echoed back byte for byte.
type ID struct {
	raw json.RawMessage
}

var nullID = json.RawMessage("null")

// NullID returns an ID that encodes as JSON null.
func NullID() ID {
	return ID{raw: nullID}
}

// NewID creates an ID from a string or number. A nil value yields NullID.
func NewID(id interface{}) (ID, error) {
	switch v := id.(type) {
	case ID:
		return v, nil
	case nil:
		return NullID(), nil
	case string, int, int32, int64, float32, float64, json.Number:
		raw, err := json.Marshal(v)
		if err != nil {
			return ID{}, err
		}
		return ID{raw: raw}, nil
	default:
		return ID{}, fmt.Errorf("id must be string or number, got %T", id)
	}
}

// IsZero reports whether the ID was absent.
func (id ID) IsZero() bool {
	return id.raw == nil
}

// IsNull reports whether the ID was an explicit JSON null.
func (id ID) IsNull() bool {
	return bytes.Equal(id.raw, nullID)
}

// Value returns the decoded ID: a string, a float64, or nil.
func (id ID) Value() interface{} {
	if id.IsZero() || id.IsNull() {
		return nil
	}
	var v interface{}
	if err := json.Unmarshal(id.raw, &v); err != nil {
		return nil
	}
	return v
}

// OrNull returns the ID, or NullID if it was absent.
func (id ID) OrNull() ID {
	if id.IsZero() {
		return NullID()
	}
	return id
}

// Equal compares two IDs by their wire representation.
func (id ID) Equal(other ID) bool {
	return bytes.Equal(id.raw, other.raw)
}

var _ fmt.GoStringer = ID{}

// GoString implements fmt.GoStringer
func (id ID) GoString() string {
	if id.IsZero() {
		return "<absent>"
	}
	return string(id.raw)
}

var _ json.Marshaler = ID{}

func (id ID) MarshalJSON() ([]byte, error) {
	if id.IsZero() {
		return nullID, nil
	}
	return id.raw, nil
}

var _ json.Unmarshaler = &ID{}

// UnmarshalJSON implements json.Unmarshaler
func (id *ID) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch raw.(type) {
	case string, float64, nil:
		var buf bytes.Buffer
		if err := json.Compact(&buf, data); err != nil {
			return err
		}
		id.raw = buf.Bytes()
		return nil
	default:
		return fmt.Errorf("id must be string, number or null, got %T", raw)
	}
}
