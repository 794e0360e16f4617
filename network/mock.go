package network

import "context"

// MockInvoiceService is a test double for InvoiceService.
// All function fields must be set before the corresponding method is called.
type MockInvoiceService struct {
	CreateInvoiceFn func(ctx context.Context, req InvoiceRequest) (*Invoice, error)
	LoadInvoiceFn   func(ctx context.Context, id string) (*Invoice, error)
}

func (m *MockInvoiceService) CreateInvoice(ctx context.Context, req InvoiceRequest) (*Invoice, error) {
	return m.CreateInvoiceFn(ctx, req)
}
func (m *MockInvoiceService) LoadInvoice(ctx context.Context, id string) (*Invoice, error) {
	return m.LoadInvoiceFn(ctx, id)
}
