package mcp

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattt/mcpdemo/tools"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		dialect string
		method  string
		id      string
	}{
		{
			name:    "JSON-RPC",
			input:   `{"jsonrpc": "2.0", "id": 1, "method": "initialize"}`,
			dialect: "jsonrpc",
			method:  "initialize",
			id:      "1",
		},
		{
			name:    "envelope",
			input:   `{"mcp_version": "0.1.0", "id": "abc", "method": "discover"}`,
			dialect: "envelope",
			method:  "discover",
			id:      `"abc"`,
		},
		{
			name:    "other jsonrpc version is envelope",
			input:   `{"jsonrpc": "1.0", "id": 2, "method": "discover"}`,
			dialect: "envelope",
			method:  "discover",
			id:      "2",
		},
		{
			name:    "non-string jsonrpc is envelope",
			input:   `{"jsonrpc": 2.0, "method": "discover"}`,
			dialect: "envelope",
			method:  "discover",
			id:      "<absent>",
		},
		{
			name:    "null id",
			input:   `{"id": null, "method": "discover"}`,
			dialect: "envelope",
			method:  "discover",
			id:      "null",
		},
		{
			name:    "unknown members are ignored",
			input:   `{"method": "execute", "toolName": "addNumbers", "extra": true}`,
			dialect: "envelope",
			method:  "execute",
			id:      "<absent>",
		},
		{
			name:    "numeric method",
			input:   `{"id": "x-1", "method": 7}`,
			dialect: "envelope",
			method:  "7",
			id:      `"x-1"`,
		},
		{
			name:    "object method",
			input:   `{"id": 3, "method": {"name": "discover"}}`,
			dialect: "envelope",
			method:  `{"name":"discover"}`,
			id:      "3",
		},
		{
			name:    "JSON-RPC array method",
			input:   `{"jsonrpc": "2.0", "id": 4, "method": []}`,
			dialect: "jsonrpc",
			method:  "[]",
			id:      "4",
		},
		{
			name:    "object id is answered as null",
			input:   `{"id": {"a": 1}, "method": "discover"}`,
			dialect: "envelope",
			method:  "discover",
			id:      "null",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := Decode([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.dialect, req.dialect())
			assert.Equal(t, tt.method, req.RequestMethod())
			assert.Equal(t, tt.id, req.RequestID().GoString())
		})
	}
}

func TestDecode_Version(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`{"method": "discover"}`, ""},
		{`{"mcp_version": "0.1.0", "method": "discover"}`, "0.1.0"},
		{`{"mcp_version": "", "method": "discover"}`, ""},
		{`{"mcp_version": null, "method": "discover"}`, ""},
		{`{"mcp_version": false, "method": "discover"}`, ""},
		{`{"mcp_version": 0, "method": "discover"}`, ""},
		{`{"mcp_version": 1, "method": "discover"}`, "1"},
		{`{"mcp_version": 0.1, "method": "discover"}`, "0.1"},
		{`{"mcp_version": true, "method": "discover"}`, "true"},
		{`{"mcp_version": ["0.1.0"], "method": "discover"}`, `["0.1.0"]`},
	}

	for _, tt := range tests {
		req, err := Decode([]byte(tt.input))
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.expected, req.(*EnvelopeRequest).MCPVersion, tt.input)
	}
}

func TestDecode_ToolName(t *testing.T) {
	req, err := Decode([]byte(`{"method": "execute", "toolName": "addNumbers"}`))
	require.NoError(t, err)
	assert.False(t, req.(*EnvelopeRequest).toolNameNotString)

	req, err = Decode([]byte(`{"method": "execute", "toolName": 7}`))
	require.NoError(t, err)
	assert.True(t, req.(*EnvelopeRequest).toolNameNotString)
	assert.Equal(t, "7", req.(*EnvelopeRequest).ToolName)
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		syntax bool
	}{
		{"not JSON", `not json`, true},
		{"truncated", `{"id": 1, "method": `, true},
		{"empty", ``, true},
		{"array", `[{"method": "discover"}]`, false},
		{"string", `"discover"`, false},
		{"number", `42`, false},
		{"null", `null`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := Decode([]byte(tt.input))
			require.Error(t, err)
			assert.Nil(t, req)

			var derr *DecodeError
			require.True(t, errors.As(err, &derr))
			assert.Equal(t, tt.syntax, derr.Syntax)
			assert.True(t, derr.ID.IsNull())
		})
	}
}

func TestEnvelopeRequest_UnmarshalJSON(t *testing.T) {
	var req EnvelopeRequest
	require.NoError(t, json.Unmarshal([]byte(`{"mcp_version": 2, "id": 7, "method": 1, "toolName": "addNumbers"}`), &req))
	assert.Equal(t, "2", req.MCPVersion)
	assert.Equal(t, "1", req.Method)
	assert.Equal(t, "addNumbers", req.ToolName)
	assert.Equal(t, float64(7), req.ID.Value())

	assert.Error(t, json.Unmarshal([]byte(`[1]`), &req))
}

func TestEnvelopeRequest_DecodeInputs(t *testing.T) {
	tests := []struct {
		input    string
		expected map[string]any
		wantErr  bool
	}{
		{input: `{"method": "execute", "inputs": {"a": 1}}`, expected: map[string]any{"a": float64(1)}},
		{input: `{"method": "execute", "inputs": {}}`, expected: map[string]any{}},
		{input: `{"method": "execute"}`},
		{input: `{"method": "execute", "inputs": null}`},
		{input: `{"method": "execute", "inputs": [1]}`},
		{input: `{"method": "execute", "inputs": "a"}`},
		{input: `{"method": "execute", "inputs": {"number1": 1e400}}`, wantErr: true},
	}

	for _, tt := range tests {
		req, err := Decode([]byte(tt.input))
		require.NoError(t, err)

		inputs, err := req.(*EnvelopeRequest).DecodeInputs()
		if tt.wantErr {
			assert.ErrorIs(t, err, tools.ErrInvalidInput, tt.input)
			continue
		}
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.expected, inputs, tt.input)
	}
}
