package network

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bitfsorg/presto-go/internal/log"
)

// maxErrorBody bounds how much of a failed response body is kept.
const maxErrorBody = 64 << 10

// APIClient is a JSON client for the invoice service. Every request carries
// JSON accept and content-type headers; non-2xx responses are returned as
// *APIError with the body verbatim.
type APIClient struct {
	baseURL string
	client  *http.Client
}

// NewAPIClient creates a client rooted at cfg.URL.
func NewAPIClient(cfg APIConfig) *APIClient {
	return &APIClient{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
				MaxIdleConnsPerHost: 10,
			},
		},
	}
}

// Get issues a GET request for path and decodes the response into result.
func (c *APIClient) Get(ctx context.Context, path string, result any) error {
	return c.Do(ctx, http.MethodGet, path, nil, result)
}

// Post issues a POST request with body encoded as JSON and decodes the
// response into result.
func (c *APIClient) Post(ctx context.Context, path string, body, result any) error {
	if body == nil {
		body = struct{}{}
	}
	return c.Do(ctx, http.MethodPost, path, body, result)
}

// Do sends a request to the service. A nil body sends no payload; a nil
// result discards the response.
//
// Do returns ErrConnectionFailed if the HTTP request fails, *APIError for a
// non-2xx status, and ErrInvalidResponse if a 2xx body cannot be decoded.
func (c *APIClient) Do(ctx context.Context, method, path string, body, result any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("network: marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("network: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	log.Network.Debug().Str("method", method).Str("path", path).Msg("api request")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		log.Network.Debug().Int("status", resp.StatusCode).Str("path", path).Msg("api request failed")
		return &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if result == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("%w: decode response: %w", ErrInvalidResponse, err)
	}
	return nil
}
