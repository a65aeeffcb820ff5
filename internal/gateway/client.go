// Package gateway is the HTTP client for the external pricing service that
// matches part numbers and returns offers.
//
// The client makes exactly one request per call: there are no retries, and no
// timeout unless one is configured.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/JonMunkholm/bomquote/internal/core"
	"github.com/JonMunkholm/bomquote/internal/logging"
)

// maxResponseSize bounds how much of a response body is read.
const maxResponseSize = 64 << 20

var (
	// ErrMalformedResponse is returned when the body is not JSON or its
	// data field is not an array of rows.
	ErrMalformedResponse = errors.New("malformed pricing response")

	// ErrUnreachable wraps transport failures.
	ErrUnreachable = errors.New("pricing service unreachable")
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Message    string
}

// ErrorCode keeps the service's own message out of wizard phrase matching.
func (e *StatusError) ErrorCode() string { return "GW004" }

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("pricing service returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("pricing service returned status %d: %s", e.StatusCode, e.Message)
}

// Client calls the pricing service.
type Client struct {
	endpoint string
	http     *http.Client
}

// New creates a client for endpoint. A zero timeout waits for the service
// indefinitely.
func New(endpoint string, timeout time.Duration) *Client {
	return NewWithHTTPClient(endpoint, &http.Client{Timeout: timeout})
}

// NewWithHTTPClient creates a client using hc for transport.
func NewWithHTTPClient(endpoint string, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{endpoint: endpoint, http: hc}
}

// Endpoint returns the URL requests are posted to.
func (c *Client) Endpoint() string { return c.endpoint }

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

// Process posts {mapping, data, mode} and decodes {data: [...], error?}.
func (c *Client) Process(ctx context.Context, req core.ProcessRequest) (*core.Result, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrUnreachable, err)
	}

	logging.FromContext(ctx).Debug("pricing service responded",
		"status", resp.StatusCode,
		"bytes", len(raw),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := env.Error
		if decodeErr != nil || msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, decodeErr)
	}

	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || data[0] != '[' {
		return nil, fmt.Errorf("%w: data is not an array", ErrMalformedResponse)
	}

	var rows []core.ResultRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	return &core.Result{Data: rows, Error: env.Error, ReceivedAt: time.Now()}, nil
}
