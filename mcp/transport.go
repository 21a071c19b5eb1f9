package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"

	"github.com/mattt/mcpdemo/jsonrpc"
)

const maxLineSize = 1024 * 1024

// StdioTransport handles the communication between stdin/stdout and a Handler
type StdioTransport struct {
	handler Handler
	scanner *bufio.Scanner
	writer  *json.Encoder
	bufOut  *bufio.Writer
	logger  *slog.Logger
}

// NewStdioTransport creates a new stdio transport
func NewStdioTransport(handler Handler, in io.Reader, out io.Writer, logger *slog.Logger) *StdioTransport {
	scanner := bufio.NewScanner(in)
	// Set a reasonable max size for each line
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, maxLineSize)

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	bufOut := bufio.NewWriter(out)
	writer := json.NewEncoder(bufOut)
	writer.SetEscapeHTML(false)

	return &StdioTransport{
		handler: handler,
		scanner: scanner,
		writer:  writer,
		bufOut:  bufOut,
		logger:  logger,
	}
}

// Run reads one request per line and writes one response per line, in order.
// It returns nil when the input is exhausted, or the context's error if it
// is cancelled first.
func (t *StdioTransport) Run(ctx context.Context) error {
	t.logger.Info("MCP service listening on stdin")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan []byte)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		for t.scanner.Scan() {
			line := append([]byte(nil), t.scanner.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				scanErr <- ctx.Err()
				return
			}
		}
		scanErr <- t.scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				if err := <-scanErr; err != nil {
					if ctxErr := ctx.Err(); ctxErr != nil {
						return ctxErr
					}
					return fmt.Errorf("scanner error: %w", err)
				}
				t.logger.Info("stdin closed")
				return nil
			}
			if err := t.handleLine(ctx, line); err != nil {
				return err
			}
		}
	}
}

func (t *StdioTransport) handleLine(ctx context.Context, line []byte) error {
	t.logger.Debug("received line", "line", string(line))

	var response Response
	id := jsonrpc.NullID()
	request, err := Decode(line)
	if err != nil {
		response = decodeErrorResponse(err)
		t.logger.Error("failed to decode request", "error", err)
	} else {
		id = request.RequestID().OrNull()
		response = t.dispatch(ctx, request)
	}

	// Encode writes nothing when marshaling fails, so the fallback is the
	// only line sent for this request.
	if err := t.writer.Encode(response); err != nil {
		t.logger.Error("error encoding response", "error", err)
		fallback := NewEnvelopeError(id, NewError(ErrInternalServer, "internal error while processing request"))
		if err := t.writer.Encode(fallback); err != nil {
			return fmt.Errorf("error encoding response: %w", err)
		}
	}
	if err := t.bufOut.Flush(); err != nil {
		return fmt.Errorf("error writing response: %w", err)
	}
	return nil
}

// dispatch calls the handler, answering with an InternalServerError envelope
// if it panics.
func (t *StdioTransport) dispatch(ctx context.Context, request Request) (response Response) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("error handling request", "panic", r, "stack", string(debug.Stack()))
			response = NewEnvelopeError(request.RequestID().OrNull(),
				NewError(ErrInternalServer, "internal error while processing request"))
		}
	}()
	return t.handler.Handle(ctx, request)
}

// decodeErrorResponse maps a Decode failure to the envelope sent back on a
// stream transport.
func decodeErrorResponse(err error) *EnvelopeResponse {
	var derr *DecodeError
	if !errors.As(err, &derr) {
		return NewEnvelopeError(jsonrpc.NullID(), NewError(ErrInternalServer, "internal error while processing request"))
	}
	if derr.Syntax {
		return NewEnvelopeError(derr.ID, NewError(ErrInvalidRequest, "request must be valid JSON"))
	}
	return NewEnvelopeError(derr.ID, NewError(ErrInternalServer, "internal error while processing request"))
}
