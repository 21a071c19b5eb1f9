package mcp

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/mattt/mcpdemo/jsonrpc"
	"github.com/mattt/mcpdemo/tools"
)

// Version is the custom envelope protocol version served by this package.
const Version = "0.1.0"

// Envelope methods
const (
	MethodDiscover = "discover"
	MethodExecute  = "execute"
)

// JSON-RPC methods
const (
	MethodInitialize = "initialize"
	MethodShutdown   = "shutdown"
)

// ErrorCode is the machine-readable code of an envelope error.
type ErrorCode string

const (
	// The request line or body was not valid JSON.
	ErrInvalidRequest ErrorCode = "InvalidRequest"

	// The request named an mcp_version other than Version.
	ErrVersionMismatch ErrorCode = "VersionMismatch"

	// The envelope method is not discover or execute.
	ErrMethodNotFound ErrorCode = "MethodNotFound"

	// No registered tool has the requested name.
	ErrToolNotFound ErrorCode = "ToolNotFound"

	// The tool failed, including when it rejected its inputs.
	ErrToolExecution ErrorCode = "ToolExecutionError"

	// HTTP transport only: the body could not be read or parsed.
	ErrBadRequest ErrorCode = "BadRequest"

	// Something unexpected went wrong while processing a request.
	ErrInternalServer ErrorCode = "InternalServerError"
)

// Error is the error object of an envelope response.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

var _ error = &Error{}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewError creates an envelope error with a formatted message.
func NewError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Request is a decoded request in one of the two dialects:
// *JSONRPCRequest or *EnvelopeRequest.
type Request interface {
	RequestID() jsonrpc.ID
	RequestMethod() string
	dialect() string
}

// Response is the reply to a Request, in the same dialect.
type Response interface {
	json.Marshaler
	Failed() bool
}

// JSONRPCRequest is a request whose "jsonrpc" member is "2.0".
type JSONRPCRequest struct {
	jsonrpc.Request
}

func (r *JSONRPCRequest) RequestID() jsonrpc.ID { return r.ID }
func (r *JSONRPCRequest) RequestMethod() string { return r.Method }
func (r *JSONRPCRequest) dialect() string       { return "jsonrpc" }

var _ json.Unmarshaler = &JSONRPCRequest{}

// UnmarshalJSON accepts any object. A method that is not a string is kept as
// its JSON text and dispatches as an unknown method.
func (r *JSONRPCRequest) UnmarshalJSON(data []byte) error {
	fields, err := members(data)
	if err != nil {
		return err
	}
	r.decodeMembers(fields)
	return nil
}

func (r *JSONRPCRequest) decodeMembers(fields map[string]json.RawMessage) {
	r.Version, _ = stringMember(fields, "jsonrpc")
	r.Method, _ = stringMember(fields, "method")
	r.Params = fields["params"]
	r.ID = idMember(fields)
}

// EnvelopeRequest is a request in the custom envelope dialect.
type EnvelopeRequest struct {
	MCPVersion string          `json:"mcp_version,omitempty"`
	ID         jsonrpc.ID      `json:"id,omitzero"`
	Method     string          `json:"method"`
	ToolName   string          `json:"toolName,omitempty"`
	Inputs     json.RawMessage `json:"inputs,omitempty"`

	// toolNameNotString is set when the decoded toolName was not a JSON
	// string. No tool matches such a name.
	toolNameNotString bool
}

func (r *EnvelopeRequest) RequestID() jsonrpc.ID { return r.ID }
func (r *EnvelopeRequest) RequestMethod() string { return r.Method }
func (r *EnvelopeRequest) dialect() string       { return "envelope" }

var _ json.Unmarshaler = &EnvelopeRequest{}

// UnmarshalJSON accepts any object. Members of the wrong JSON type are kept
// as their JSON text: a non-string method is an unknown method, a non-string
// toolName matches no tool and a truthy non-string mcp_version mismatches.
func (r *EnvelopeRequest) UnmarshalJSON(data []byte) error {
	fields, err := members(data)
	if err != nil {
		return err
	}
	r.decodeMembers(fields)
	return nil
}

func (r *EnvelopeRequest) decodeMembers(fields map[string]json.RawMessage) {
	var ok bool
	r.MCPVersion = versionMember(fields)
	r.ID = idMember(fields)
	r.Method, _ = stringMember(fields, "method")
	r.ToolName, ok = stringMember(fields, "toolName")
	r.toolNameNotString = !ok
	r.Inputs = fields["inputs"]
}

// DecodeInputs returns the execute inputs as an object. Missing inputs and
// values other than an object yield nil, which tools reject as invalid input.
// An object that cannot be decoded, such as one holding a number beyond
// float64 range, is an error wrapping tools.ErrInvalidInput.
func (r *EnvelopeRequest) DecodeInputs() (map[string]any, error) {
	trimmed := bytes.TrimSpace(r.Inputs)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, nil
	}
	var inputs map[string]any
	if err := json.Unmarshal(trimmed, &inputs); err != nil {
		return nil, fmt.Errorf("%w: %v", tools.ErrInvalidInput, err)
	}
	return inputs, nil
}

// EnvelopeResponse is a response in the custom envelope dialect.
type EnvelopeResponse struct {
	MCPVersion string     `json:"mcp_version,omitempty"`
	ID         jsonrpc.ID `json:"id,omitzero"`
	Result     any        `json:"result,omitempty"`
	Error      *Error     `json:"error,omitempty"`
}

// NewEnvelopeResult creates a successful envelope response.
func NewEnvelopeResult(id jsonrpc.ID, result any) *EnvelopeResponse {
	return &EnvelopeResponse{MCPVersion: Version, ID: id, Result: result}
}

// NewEnvelopeError creates a failed envelope response.
func NewEnvelopeError(id jsonrpc.ID, err *Error) *EnvelopeResponse {
	return &EnvelopeResponse{MCPVersion: Version, ID: id, Error: err}
}

// Failed reports whether the response carries an error.
func (r *EnvelopeResponse) Failed() bool {
	return r.Error != nil
}

var _ json.Marshaler = &EnvelopeResponse{}

func (r *EnvelopeResponse) MarshalJSON() ([]byte, error) {
	if r.Error != nil {
		return json.Marshal(struct {
			MCPVersion string     `json:"mcp_version,omitempty"`
			ID         jsonrpc.ID `json:"id,omitzero"`
			Error      *Error     `json:"error"`
		}{r.MCPVersion, r.ID, r.Error})
	}
	return json.Marshal(struct {
		MCPVersion string     `json:"mcp_version,omitempty"`
		ID         jsonrpc.ID `json:"id,omitzero"`
		Result     any        `json:"result"`
	}{r.MCPVersion, r.ID, r.Result})
}

// TransportError is the body the HTTP transport sends when a request never
// reached the dispatcher.
type TransportError struct {
	Error *Error `json:"error"`
}

var _ Response = jsonrpc.Response{}
var _ Response = &EnvelopeResponse{}
