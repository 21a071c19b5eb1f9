package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattt/mcpdemo/jsonrpc"
)

type mockServer struct {
	handleFunc func(Request) Response
}

func (m *mockServer) Handle(_ context.Context, req Request) Response {
	return m.handleFunc(req)
}

func TestStdioTransport_Run(t *testing.T) {
	okResponse := func(req Request) Response {
		return NewEnvelopeResult(req.RequestID(), "success")
	}

	tests := []struct {
		name        string
		input       string
		handle      func(Request) Response
		expectedOut string
	}{
		{
			name:        "successful request",
			input:       `{"mcp_version": "0.1.0", "method": "discover", "id": "a"}`,
			handle:      okResponse,
			expectedOut: `{"mcp_version":"0.1.0","id":"a","result":"success"}` + "\n",
		},
		{
			name:        "invalid JSON request",
			input:       `{"mcp_version": "0.1.0" method: invalid}`,
			handle:      okResponse,
			expectedOut: `{"mcp_version":"0.1.0","id":null,"error":{"code":"InvalidRequest","message":"request must be valid JSON"}}` + "\n",
		},
		{
			name:        "empty line is invalid JSON",
			input:       "\n",
			handle:      okResponse,
			expectedOut: `{"mcp_version":"0.1.0","id":null,"error":{"code":"InvalidRequest","message":"request must be valid JSON"}}` + "\n",
		},
		{
			name:        "valid JSON that is not a request",
			input:       `[1, 2, 3]`,
			handle:      okResponse,
			expectedOut: `{"mcp_version":"0.1.0","id":null,"error":{"code":"InternalServerError","message":"internal error while processing request"}}` + "\n",
		},
		{
			name:        "mistyped method still reaches the handler",
			input:       `{"id": "x-1", "method": 7}`,
			handle:      okResponse,
			expectedOut: `{"mcp_version":"0.1.0","id":"x-1","result":"success"}` + "\n",
		},
		{
			name: "unencodable response",
			input: `{"method": "discover", "id": "inf"}
{"method": "discover", "id": 2}`,
			handle: func(req Request) Response {
				if req.RequestID().Value() == "inf" {
					return NewEnvelopeResult(req.RequestID(), math.Inf(1))
				}
				return NewEnvelopeResult(req.RequestID(), "success")
			},
			expectedOut: `{"mcp_version":"0.1.0","id":"inf","error":{"code":"InternalServerError","message":"internal error while processing request"}}
{"mcp_version":"0.1.0","id":2,"result":"success"}
`,
		},
		{
			name:  "panicking handler",
			input: `{"jsonrpc": "2.0", "method": "initialize", "id": 9}`,
			handle: func(Request) Response {
				panic("boom")
			},
			expectedOut: `{"mcp_version":"0.1.0","id":9,"error":{"code":"InternalServerError","message":"internal error while processing request"}}` + "\n",
		},
		{
			name: "multiple requests answered in order",
			input: `{"method": "discover", "id": 1}
not json
{"method": "discover", "id": 2}`,
			handle: okResponse,
			expectedOut: `{"mcp_version":"0.1.0","id":1,"result":"success"}
{"mcp_version":"0.1.0","id":null,"error":{"code":"InvalidRequest","message":"request must be valid JSON"}}
{"mcp_version":"0.1.0","id":2,"result":"success"}
`,
		},
		{
			name:   "empty input",
			input:  "",
			handle: okResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockServer{handleFunc: tt.handle}

			// Ensure input ends with newline
			input := tt.input
			if input != "" && !strings.HasSuffix(input, "\n") {
				input += "\n"
			}

			out := &bytes.Buffer{}
			transport := NewStdioTransport(mock, strings.NewReader(input), out, nil)
			err := transport.Run(context.Background())

			require.NoError(t, err)
			assert.Equal(t, tt.expectedOut, out.String())
		})
	}
}

func TestStdioTransport_CancelWhileWaiting(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	server, err := NewServer()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- NewStdioTransport(server, pr, io.Discard, nil).Run(ctx)
	}()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("transport did not stop after cancellation")
	}
}

func TestStdioTransport_Integration(t *testing.T) {
	server, err := NewServer()
	require.NoError(t, err)

	input := strings.Join([]string{
		`{"jsonrpc": "2.0", "id": "initialize-request", "method": "initialize", "params": {}}`,
		`{"mcp_version": "0.1.0", "id": "discovery-request", "method": "discover"}`,
		`{"mcp_version": "0.1.0", "id": "translation-request", "method": "execute", "toolName": "translateText", "inputs": {"text": "hello world", "targetLanguage": "zh"}}`,
		`{"mcp_version": "0.1.0", "id": "addition-request", "method": "execute", "toolName": "addNumbers", "inputs": {"number1": 42, "number2": 58}}`,
		`{oops`,
		`{"jsonrpc": "2.0", "id": "shutdown-request", "method": "shutdown", "params": {}}`,
	}, "\n") + "\n"

	out := &bytes.Buffer{}
	transport := NewStdioTransport(server, strings.NewReader(input), out, nil)
	require.NoError(t, transport.Run(context.Background()))

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	require.Len(t, lines, 6)

	var initResp jsonrpc.Response
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &initResp))
	assert.Equal(t, "2.0", initResp.Version)
	assert.Equal(t, "initialize-request", initResp.ID.Value())
	assert.Equal(t, map[string]interface{}{"capabilities": map[string]interface{}{}}, initResp.Result)

	var discoverResp EnvelopeResponse
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &discoverResp))
	assert.Nil(t, discoverResp.Error)
	assert.Contains(t, lines[1], `"translateText"`)
	assert.Contains(t, lines[1], `"addNumbers"`)

	assert.JSONEq(t, `{"mcp_version":"0.1.0","id":"translation-request","result":{"translatedText":"hello world (translated to zh)"}}`, lines[2])
	assert.JSONEq(t, `{"mcp_version":"0.1.0","id":"addition-request","result":{"sum":100}}`, lines[3])
	assert.JSONEq(t, `{"mcp_version":"0.1.0","id":null,"error":{"code":"InvalidRequest","message":"request must be valid JSON"}}`, lines[4])
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":"shutdown-request","result":null}`, lines[5])
}

func TestStdioTransport_KeepsServingAfterBadRequests(t *testing.T) {
	server, err := NewServer()
	require.NoError(t, err)

	input := strings.Join([]string{
		`{"mcp_version": "0.1.0", "id": "big", "method": "execute", "toolName": "addNumbers", "inputs": {"number1": 1e308, "number2": 1e308}}`,
		`{"mcp_version": 1, "id": "a", "method": "discover"}`,
		`{"jsonrpc": "2.0", "id": 1, "method": 5}`,
		`{"id": "x", "method": "execute", "toolName": 7, "inputs": {}}`,
		`{"id": "2", "method": "discover"}`,
	}, "\n") + "\n"

	out := &bytes.Buffer{}
	require.NoError(t, NewStdioTransport(server, strings.NewReader(input), out, nil).Run(context.Background()))

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	require.Len(t, lines, 5)

	codes := make([]interface{}, 0, len(lines))
	for _, line := range lines[:4] {
		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &resp))
		codes = append(codes, resp["error"].(map[string]interface{})["code"])
	}
	assert.Equal(t, []interface{}{"ToolExecutionError", "VersionMismatch", float64(-32601), "ToolNotFound"}, codes)
	assert.Contains(t, lines[2], `"jsonrpc":"2.0"`)
	assert.Contains(t, lines[4], `"toolsets"`)
}
