package presto

import (
	"time"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"

	"github.com/bitfsorg/presto-go/internal/metrics"
	"github.com/bitfsorg/presto-go/network"
	"github.com/bitfsorg/presto-go/tx"
)

// DefaultInvoiceTimeout bounds a single invoice service call.
const DefaultInvoiceTimeout = 30 * time.Second

// Options configure a Session. Zero fields take the value from
// DefaultOptions.
type Options struct {
	// Key is a WIF private key. PrivKey takes precedence when both are set.
	// Either one selects proxypay mode.
	Key     string
	PrivKey *ec.PrivateKey

	// Inputs and Outputs are descriptor literals accepted by
	// tx.Forge.AddInput and tx.Forge.AddOutput.
	Inputs  []any
	Outputs []any

	// Forge is an existing forge to wrap. Inputs and Outputs are added to it.
	Forge *tx.Forge

	// ChangeAddress receives change in proxypay mode. Defaults to the key's
	// address.
	ChangeAddress string

	// Rates apply when a new forge is created. Setting both Rates and Forge
	// is an error; configure the forge's rates with tx.NewForgeWithRates.
	Rates *tx.Rates

	// Invoice metadata.
	Description   string
	Currency      string
	AppIdentifier string

	// Debug enables debug logging for the session only.
	Debug bool

	// Network selects address encoding and the default origin.
	Network string

	// Origin is the only origin whose UI messages are accepted.
	Origin string

	Invoices       network.InvoiceService
	InvoiceTimeout time.Duration
	Metrics        *metrics.Metrics

	// Listeners are subscribed before any invoice request starts.
	Listeners map[string]Listener
}

// DefaultOptions returns the mainnet defaults.
func DefaultOptions() Options {
	return Options{
		Network:        "mainnet",
		Origin:         network.DefaultOrigin,
		InvoiceTimeout: DefaultInvoiceTimeout,
	}
}

// withDefaults merges opts over DefaultOptions. An unset origin follows the
// network preset.
func withDefaults(opts Options) Options {
	def := DefaultOptions()
	if opts.Network == "" {
		opts.Network = def.Network
	}
	if opts.Origin == "" {
		if preset, ok := network.NetworkPresets[opts.Network]; ok && preset.Origin != "" {
			opts.Origin = preset.Origin
		} else {
			opts.Origin = def.Origin
		}
	}
	if opts.InvoiceTimeout <= 0 {
		opts.InvoiceTimeout = def.InvoiceTimeout
	}
	return opts
}
