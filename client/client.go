// Package client calls an MCP demo service over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/mattt/mcpdemo/jsonrpc"
	"github.com/mattt/mcpdemo/mcp"
)

// DefaultURL is the endpoint of a service started with the default HTTP settings.
const DefaultURL = "http://localhost:3000/mcp"

const userAgent = "mcpdemo-client/" + mcp.Version

// Client sends envelope requests to a service's /mcp endpoint.
type Client struct {
	url        string
	retry      *retryablehttp.Client
	headers    http.Header
	httpClient *http.Client
	logger     *slog.Logger
	counter    atomic.Uint64
}

// Option configures a Client
type Option func(*Client) error

// WithRetries sets the maximum number of retries for failed requests.
func WithRetries(retries int) Option {
	return func(c *Client) error {
		if retries < 0 {
			return fmt.Errorf("retries cannot be negative: %d", retries)
		}
		c.retry.RetryMax = retries
		return nil
	}
}

// WithRetryWait bounds the backoff between retries.
func WithRetryWait(min, max time.Duration) Option {
	return func(c *Client) error {
		if min > max {
			return fmt.Errorf("minimum retry wait %s exceeds maximum %s", min, max)
		}
		c.retry.RetryWaitMin = min
		c.retry.RetryWaitMax = max
		return nil
	}
}

// WithTimeout sets the timeout of each HTTP attempt.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) error {
		c.retry.HTTPClient.Timeout = timeout
		return nil
	}
}

// WithHeaders adds headers to every request.
func WithHeaders(headers http.Header) Option {
	return func(c *Client) error {
		for key, values := range headers {
			for _, value := range values {
				c.headers.Add(key, value)
			}
		}
		return nil
	}
}

// WithLogger sets the logger for the client
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		c.logger = logger
		return nil
	}
}

// New creates a client for the service at url.
func New(url string, opts ...Option) (*Client, error) {
	if url == "" {
		return nil, fmt.Errorf("url cannot be empty")
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 30 * time.Second
	retryClient.HTTPClient.Timeout = 60 * time.Second
	retryClient.CheckRetry = checkRetry

	c := &Client{
		url:     url,
		retry:   retryClient,
		headers: http.Header{"User-Agent": []string{userAgent}},
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	retryClient.Logger = c.logger
	retryClient.HTTPClient.Transport = &headerTransport{
		Base:    retryClient.HTTPClient.Transport,
		Headers: c.headers,
	}
	c.httpClient = retryClient.StandardClient()

	return c, nil
}

// checkRetry follows the default policy, except that a 500 carrying a JSON
// error body is the service's own answer and is not retried.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if err == nil && resp != nil && resp.StatusCode == http.StatusInternalServerError {
		mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
		if mediaType == "application/json" {
			return false, nil
		}
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

// StatusError is returned when the service rejects a request before
// dispatching it.
type StatusError struct {
	StatusCode int
	Err        *mcp.Error
}

func (e *StatusError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Err)
}

// Discover lists the service's toolsets.
func (c *Client) Discover(ctx context.Context) (*mcp.EnvelopeResponse, error) {
	return c.Do(ctx, &mcp.EnvelopeRequest{Method: mcp.MethodDiscover})
}

// Execute runs the named tool with inputs.
func (c *Client) Execute(ctx context.Context, toolName string, inputs map[string]any) (*mcp.EnvelopeResponse, error) {
	raw, err := json.Marshal(inputs)
	if err != nil {
		return nil, fmt.Errorf("error encoding inputs: %w", err)
	}
	return c.Do(ctx, &mcp.EnvelopeRequest{
		Method:   mcp.MethodExecute,
		ToolName: toolName,
		Inputs:   raw,
	})
}

// Do sends req and decodes the envelope response. A response carrying an
// in-band error is returned without an error; check Failed.
// The version and id are filled in when req leaves them unset.
func (c *Client) Do(ctx context.Context, req *mcp.EnvelopeRequest) (*mcp.EnvelopeResponse, error) {
	if req.MCPVersion == "" {
		req.MCPVersion = mcp.Version
	}
	if req.ID.IsZero() {
		id, err := jsonrpc.NewID(c.nextID(req.Method))
		if err != nil {
			return nil, err
		}
		req.ID = id
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("error encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	c.logger.Debug("sending request", "url", c.url, "method", req.Method, "id", req.ID.GoString())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var transportErr mcp.TransportError
		_ = json.Unmarshal(data, &transportErr)
		return nil, &StatusError{StatusCode: resp.StatusCode, Err: transportErr.Error}
	}

	var response mcp.EnvelopeResponse
	if err := json.Unmarshal(data, &response); err != nil {
		return nil, fmt.Errorf("error decoding response: %w", err)
	}

	if !response.ID.Equal(req.ID) {
		c.logger.Warn("response id does not match request", "request_id", req.ID.GoString(), "response_id", response.ID.GoString())
	}
	c.logger.Debug("received response", "id", response.ID.GoString(), "failed", response.Failed())
	return &response, nil
}

func (c *Client) nextID(method string) string {
	return fmt.Sprintf("%s-%d-%d", method, time.Now().UnixMilli(), c.counter.Add(1))
}
