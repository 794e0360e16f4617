package network

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// InvoiceService creates and loads payment invoices.
type InvoiceService interface {
	// CreateInvoice registers a new invoice with the service.
	CreateInvoice(ctx context.Context, req InvoiceRequest) (*Invoice, error)

	// LoadInvoice fetches an existing invoice by ID.
	LoadInvoice(ctx context.Context, id string) (*Invoice, error)
}

// InvoiceRequest describes the invoice to create. Either Satoshis with
// Script, or Outputs with Description, is expected.
type InvoiceRequest struct {
	Satoshis      uint64          `json:"satoshis,omitempty"`
	Outputs       []InvoiceOutput `json:"outputs,omitempty"`
	Script        string          `json:"script,omitempty"`
	Description   string          `json:"description,omitempty"`
	Currency      string          `json:"currency,omitempty"`
	AppIdentifier string          `json:"app_identifier,omitempty"`
}

// InvoiceOutput is one requested output, script in hex.
type InvoiceOutput struct {
	Satoshis uint64 `json:"satoshis"`
	Script   string `json:"script"`
}

// Invoice is an invoice as returned by the service. Raw holds the full
// data object, including fields not mapped here.
type Invoice struct {
	ID          string          `json:"id"`
	InvoiceURL  string          `json:"invoice_url"`
	Status      string          `json:"status,omitempty"`
	Satoshis    uint64          `json:"satoshis,omitempty"`
	Description string          `json:"description,omitempty"`
	Raw         json.RawMessage `json:"-"`
}

type invoiceEnvelope struct {
	Invoice InvoiceRequest `json:"invoice"`
}

type invoiceResponse struct {
	Data json.RawMessage `json:"data"`
}

// InvoiceClient implements InvoiceService over the HTTP API.
type InvoiceClient struct {
	api *APIClient
}

// NewInvoiceClient creates an InvoiceClient for the given configuration.
func NewInvoiceClient(cfg APIConfig) *InvoiceClient {
	return &InvoiceClient{api: NewAPIClient(cfg)}
}

// CreateInvoice posts the request to /invoices.
func (c *InvoiceClient) CreateInvoice(ctx context.Context, req InvoiceRequest) (*Invoice, error) {
	var resp invoiceResponse
	if err := c.api.Post(ctx, "/invoices", invoiceEnvelope{Invoice: req}, &resp); err != nil {
		return nil, err
	}
	return decodeInvoice(resp)
}

// LoadInvoice fetches /invoices/{id}.
func (c *InvoiceClient) LoadInvoice(ctx context.Context, id string) (*Invoice, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty invoice ID", ErrInvoiceNotFound)
	}
	var resp invoiceResponse
	if err := c.api.Get(ctx, "/invoices/"+url.PathEscape(id), &resp); err != nil {
		return nil, err
	}
	return decodeInvoice(resp)
}

func decodeInvoice(resp invoiceResponse) (*Invoice, error) {
	if len(resp.Data) == 0 || string(resp.Data) == "null" {
		return nil, fmt.Errorf("%w: missing data", ErrInvalidResponse)
	}
	var inv Invoice
	if err := json.Unmarshal(resp.Data, &inv); err != nil {
		return nil, fmt.Errorf("%w: invoice: %w", ErrInvalidResponse, err)
	}
	if inv.ID == "" {
		return nil, fmt.Errorf("%w: invoice has no id", ErrInvalidResponse)
	}
	inv.Raw = resp.Data
	return &inv, nil
}
