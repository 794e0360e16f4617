package network

import (
	"errors"
	"fmt"
)

var (
	// ErrConnectionFailed indicates the client could not reach the service.
	ErrConnectionFailed = errors.New("network: connection failed")

	// ErrRequestFailed indicates the service answered with a non-2xx status.
	ErrRequestFailed = errors.New("network: request failed")

	// ErrInvalidResponse indicates the service returned a malformed or unexpected response.
	ErrInvalidResponse = errors.New("network: invalid response")

	// ErrInvoiceNotFound indicates an invoice ID was empty or unknown.
	ErrInvoiceNotFound = errors.New("network: invoice not found")
)

// APIError carries a non-2xx response from the invoice service. Body is
// the response body exactly as received.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("network: HTTP %d: %s", e.StatusCode, e.Body)
}

// Unwrap lets errors.Is match ErrRequestFailed.
func (e *APIError) Unwrap() error {
	return ErrRequestFailed
}
