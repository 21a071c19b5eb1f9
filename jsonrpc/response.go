package jsonrpc

import "encoding/json"

// Result represents the result payload of a successful call
type Result interface{}

// Response represents a JSON-RPC response object.
//
// Exactly one of Result and Error is encoded: a response without an Error
// always carries a "result" member, even when Result is nil.
type Response struct {
	Version string `json:"jsonrpc"`
	Result  Result `json:"result,omitempty"`
	Error   *Error `json:"error,omitempty"`
	ID      ID     `json:"id,omitzero"`
}

// NewResponse creates a new Response object
func NewResponse(id ID, result Result, err *Error) Response {
	return Response{
		Version: Version,
		ID:      id,
		Result:  result,
		Error:   err,
	}
}

// Failed reports whether the response carries an error.
func (r Response) Failed() bool {
	return r.Error != nil
}

var _ json.Marshaler = Response{}

func (r Response) MarshalJSON() ([]byte, error) {
	version := r.Version
	if version == "" {
		version = Version
	}

	if r.Error != nil {
		return json.Marshal(struct {
			Version string `json:"jsonrpc"`
			ID      ID     `json:"id,omitzero"`
			Error   *Error `json:"error"`
		}{version, r.ID, r.Error})
	}

	return json.Marshal(struct {
		Version string `json:"jsonrpc"`
		ID      ID     `json:"id,omitzero"`
		Result  Result `json:"result"`
	}{version, r.ID, r.Result})
}
