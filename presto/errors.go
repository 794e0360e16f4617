package presto

import (
	"errors"

	"github.com/bitfsorg/presto-go/tx"
)

var (
	// ErrInvalidKey indicates a malformed signing key.
	ErrInvalidKey = errors.New("presto: invalid private key")

	// ErrUnsupportedOutput indicates a non-P2PKH output on a session without
	// a signing key.
	ErrUnsupportedOutput = errors.New("presto: output requires a signing key")

	// ErrNotMounted indicates a push attempted before Mount.
	ErrNotMounted = errors.New("presto: session is not mounted")

	// ErrNoInvoiceService indicates an invoice call on a session without an
	// invoice service.
	ErrNoInvoiceService = errors.New("presto: no invoice service configured")

	// ErrPaymentFailed wraps a failure reported by the payment UI.
	ErrPaymentFailed = errors.New("presto: payment failed")

	// ErrRatesWithForge indicates Options.Rates set alongside Options.Forge,
	// whose rates are fixed at construction.
	ErrRatesWithForge = errors.New("presto: rates cannot be applied to an existing forge")

	// ErrInvalidNetwork indicates an unknown network name.
	ErrInvalidNetwork = errors.New("presto: invalid network")
)

// Forge errors surfaced unchanged by the session.
var (
	ErrInsufficientFunds = tx.ErrInsufficientFunds
	ErrInvalidInput      = tx.ErrInvalidInput
	ErrInvalidOutput     = tx.ErrInvalidOutput
)
