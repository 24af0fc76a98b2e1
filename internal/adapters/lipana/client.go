package lipana

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/kevin07696/stkpush-service/internal/domain/ports"
	"github.com/kevin07696/stkpush-service/pkg/resilience"
)

// Client talks to the Lipana REST API. It implements ports.PushGateway and
// ports.StatusFetcher.
type Client struct {
	config     Config
	httpClient ports.HTTPClient
	breaker    *resilience.CircuitBreaker
	logger     ports.Logger
}

var (
	_ ports.PushGateway   = (*Client)(nil)
	_ ports.StatusFetcher = (*Client)(nil)
)

// NewClient creates a Lipana client with dependency injection. breaker guards
// the transaction list endpoint; nil disables it.
func NewClient(config Config, httpClient ports.HTTPClient, breaker *resilience.CircuitBreaker, logger ports.Logger) *Client {
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	return &Client{
		config:     config,
		httpClient: httpClient,
		breaker:    breaker,
		logger:     logger,
	}
}

// StatusError is returned when the API answers with a non-2xx status
type StatusError struct {
	Body       []byte
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("lipana returned HTTP %d", e.StatusCode)
}

// do sends one request and returns the status code and body
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte) (int, []byte, error) {
	endpoint := c.config.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set(apiKeyHeader, c.config.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

// isTimeout reports whether err, or ctx, ran out of time
func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isSuccess(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
