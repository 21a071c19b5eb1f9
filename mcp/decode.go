package mcp

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mattt/mcpdemo/jsonrpc"
)

// DecodeError reports why a payload could not be turned into a Request.
type DecodeError struct {
	// Syntax is true when the payload was not valid JSON at all.
	Syntax bool

	// ID is always NullID: a payload that fails to decode has no usable id.
	ID jsonrpc.ID

	Err error
}

func (e *DecodeError) Error() string {
	if e.Syntax {
		return fmt.Sprintf("invalid JSON: %v", e.Err)
	}
	return fmt.Sprintf("malformed request: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Decode parses a single JSON payload and resolves its dialect.
// A payload whose "jsonrpc" member is the string "2.0" is a *JSONRPCRequest;
// any other object is an *EnvelopeRequest. Members of an unexpected JSON type
// are kept and left to the dispatcher, so only invalid JSON and values other
// than objects fail, with a *DecodeError.
func Decode(data []byte) (Request, error) {
	if !json.Valid(data) {
		var raw json.RawMessage
		err := json.Unmarshal(data, &raw)
		return nil, &DecodeError{Syntax: true, ID: jsonrpc.NullID(), Err: err}
	}

	fields, err := members(data)
	if err != nil {
		return nil, &DecodeError{ID: jsonrpc.NullID(), Err: err}
	}

	if isJSONRPC(fields) {
		req := &JSONRPCRequest{}
		req.decodeMembers(fields)
		return req, nil
	}

	req := &EnvelopeRequest{}
	req.decodeMembers(fields)
	return req, nil
}

// members splits a JSON object into its raw members.
func members(data []byte) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return nil, errors.New("request must be a JSON object")
	}
	return fields, nil
}

func isJSONRPC(fields map[string]json.RawMessage) bool {
	version, ok := stringMember(fields, "jsonrpc")
	return ok && version == jsonrpc.Version
}

// stringMember returns a member that should be a JSON string. A value of any
// other type is returned as its compact JSON text with ok false; that text
// never equals a method name, so it dispatches as unknown. An absent member
// is "" with ok true.
func stringMember(fields map[string]json.RawMessage, name string) (value string, ok bool) {
	raw, present := fields[name]
	if !present {
		return "", true
	}
	if err := json.Unmarshal(raw, &value); err == nil {
		return value, true
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw), false
	}
	return buf.String(), false
}

// versionMember returns mcp_version. A falsy value (null, false, 0 or "")
// counts as absent and yields "".
func versionMember(fields map[string]json.RawMessage) string {
	raw, present := fields["mcp_version"]
	if !present || falsy(raw) {
		return ""
	}
	value, _ := stringMember(fields, "mcp_version")
	return value
}

func falsy(raw json.RawMessage) bool {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch v := v.(type) {
	case nil:
		return true
	case bool:
		return !v
	case float64:
		return v == 0
	case string:
		return v == ""
	default:
		return false
	}
}

// idMember returns the request id. An absent id stays absent; an id that is
// not a string, number or null is answered as null.
func idMember(fields map[string]json.RawMessage) jsonrpc.ID {
	raw, present := fields["id"]
	if !present {
		return jsonrpc.ID{}
	}
	var id jsonrpc.ID
	if err := id.UnmarshalJSON(raw); err != nil {
		return jsonrpc.NullID()
	}
	return id
}
