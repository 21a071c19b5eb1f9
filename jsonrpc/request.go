package jsonrpc

import "encoding/json"

// Version is the only JSON-RPC protocol version this package speaks.
const Version = "2.0"

// Request represents a JSON-RPC request object
type Request struct {
	Version string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      ID              `json:"id,omitzero"`
}
