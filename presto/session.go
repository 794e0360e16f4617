// Package presto coordinates a transaction forge, a funding state machine
// and an embedded payment UI into a single payment session.
package presto

import (
	"context"
	"errors"
	"fmt"
	"sync"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/rs/zerolog"

	"github.com/bitfsorg/presto-go/embed"
	"github.com/bitfsorg/presto-go/internal/log"
	"github.com/bitfsorg/presto-go/internal/metrics"
	"github.com/bitfsorg/presto-go/network"
	"github.com/bitfsorg/presto-go/tx"
	"github.com/bitfsorg/presto-go/wallet"
)

// Mode selects who settles the payment.
type Mode int

const (
	// ModeSimple has no signing key. Every output must be P2PKH and the UI
	// settles the whole payment.
	ModeSimple Mode = iota
	// ModeProxypay holds a key and co-signs once the UI supplies inputs.
	ModeProxypay
)

func (m Mode) String() string {
	switch m {
	case ModeSimple:
		return "simple"
	case ModeProxypay:
		return "proxypay"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Session is a single payment: one forge, an optional signing key, an
// invoice and a one-way funded flag.
//
// All methods are safe for concurrent use. Listeners run on the goroutine
// that caused the event, after the session lock is released.
type Session struct {
	opts    Options
	mode    Mode
	key     *ec.PrivateKey
	address *script.Address
	log     zerolog.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	forge   *tx.Forge
	invoice *network.Invoice
	funded  bool
	mount   *embed.Embed

	// mountSub is the EventInvoice listener of the current mount.
	mountSub uint64

	events emitter
}

// New constructs a session. Descriptor and key errors are returned
// synchronously; nothing is sent over the network.
func New(opts Options) (*Session, error) {
	opts = withDefaults(opts)

	s := &Session{
		opts:    opts,
		log:     log.Session,
		metrics: opts.Metrics,
	}
	if opts.Debug {
		s.log = s.log.Level(zerolog.DebugLevel)
	}

	net, err := wallet.GetNetwork(opts.Network)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidNetwork, err)
	}

	if opts.Forge != nil && opts.Rates != nil {
		return nil, ErrRatesWithForge
	}
	s.forge = opts.Forge
	if s.forge == nil {
		if opts.Rates != nil {
			if s.forge, err = tx.NewForgeWithRates(*opts.Rates); err != nil {
				return nil, err
			}
		} else {
			s.forge = tx.NewForge()
		}
	}
	if len(opts.Outputs) > 0 {
		if err := s.forge.AddOutput(opts.Outputs); err != nil {
			return nil, err
		}
	}
	if len(opts.Inputs) > 0 {
		if err := s.forge.AddInput(opts.Inputs); err != nil {
			return nil, err
		}
	}

	s.key, err = wallet.ResolveKey(opts.PrivKey, opts.Key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}

	if s.key == nil {
		s.mode = ModeSimple
		for i, out := range s.forge.Outputs() {
			if !tx.IsPubKeyHashScript(out.LockingScript) {
				return nil, fmt.Errorf("%w: output %d is not P2PKH", ErrUnsupportedOutput, i)
			}
		}
	} else {
		s.mode = ModeProxypay
		if s.address, err = wallet.Address(s.key, net); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
		}
		change := opts.ChangeAddress
		if change == "" {
			change = s.address.AddressString
		}
		if err := s.forge.SetChangeAddress(change); err != nil {
			return nil, fmt.Errorf("presto: change address: %w", err)
		}
	}

	s.funded = s.amountDueLocked() == 0

	for name, fn := range opts.Listeners {
		s.events.add(name, fn, false)
	}

	s.log.Debug().
		Str("mode", s.mode.String()).
		Str("address", s.Address()).
		Int("inputs", len(s.forge.Inputs())).
		Int("outputs", len(s.forge.Outputs())).
		Uint64("amount", s.amountLocked()).
		Msg("session created")

	return s, nil
}

// Create constructs a session and requests a new invoice in the background.
// EventInvoice is replayed to late subscribers; pass Options.Listeners to
// observe an EventError from this request.
func Create(ctx context.Context, opts Options) (*Session, error) {
	s, err := New(opts)
	if err != nil {
		return nil, err
	}
	go func() { _, _ = s.CreateInvoice(ctx) }()
	return s, nil
}

// Load constructs a session and loads invoice id in the background. Results
// are delivered as in Create.
func Load(ctx context.Context, id string, opts Options) (*Session, error) {
	s, err := New(opts)
	if err != nil {
		return nil, err
	}
	go func() { _, _ = s.LoadInvoice(ctx, id) }()
	return s, nil
}

// Mode reports whether the session is simple or proxypay.
func (s *Session) Mode() Mode {
	return s.mode
}

// Address returns the funding address, or "" in simple mode.
func (s *Session) Address() string {
	if s.address == nil {
		return ""
	}
	return s.address.AddressString
}

// Script returns the P2PKH funding script, or nil in simple mode.
func (s *Session) Script() *script.Script {
	if s.address == nil {
		return nil
	}
	ls, err := tx.AddressScript(s.address.AddressString)
	if err != nil {
		return nil
	}
	return ls
}

// Forge returns the underlying forge. Callers must not mutate it while the
// session is handling UI messages.
func (s *Session) Forge() *tx.Forge {
	return s.forge
}

// Invoice returns the current invoice, or nil before one is loaded.
func (s *Session) Invoice() *network.Invoice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.invoice
}

// Funded reports whether the amount due has reached zero. It never resets.
func (s *Session) Funded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.funded
}

// Amount is the output total plus the estimated fee, never less than
// tx.MinAmount. Until funded, the fee assumes one funding input.
func (s *Session) Amount() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.amountLocked()
}

// AmountDue is Amount minus the input total, floored at zero.
func (s *Session) AmountDue() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.amountDueLocked()
}

func (s *Session) amountLocked() uint64 {
	amount := s.forge.OutputSum() + s.forge.EstimateFee(nil, !s.funded)
	return max(amount, tx.MinAmount)
}

func (s *Session) amountDueLocked() uint64 {
	amount, have := s.amountLocked(), s.forge.InputSum()
	if have >= amount {
		return 0
	}
	return amount - have
}

// AddInput adds input descriptors and emits EventFunded if this call drives
// the amount due to zero for the first time.
func (s *Session) AddInput(v any) error {
	s.mu.Lock()
	err := s.forge.AddInput(v)
	fired := s.checkFundedLocked()
	have := s.forge.InputSum()
	s.mu.Unlock()

	if fired {
		s.emitFunded(have)
	}
	return err
}

// AddOutput adds output descriptors. In simple mode only P2PKH outputs are
// accepted.
func (s *Session) AddOutput(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode == ModeSimple {
		check := tx.NewForge()
		if err := check.AddOutput(v); err != nil {
			return err
		}
		for i, out := range check.Outputs() {
			if !tx.IsPubKeyHashScript(out.LockingScript) {
				return fmt.Errorf("%w: output %d is not P2PKH", ErrUnsupportedOutput, i)
			}
		}
	}
	return s.forge.AddOutput(v)
}

// checkFundedLocked flips the funded flag on the first zero-due
// observation and reports whether it did.
func (s *Session) checkFundedLocked() bool {
	if s.funded || s.amountDueLocked() > 0 {
		return false
	}
	s.funded = true
	return true
}

func (s *Session) emitFunded(inputSum uint64) {
	s.metrics.Funded()
	s.log.Info().Uint64("input_sum", inputSum).Msg("session funded")
	s.events.emit(Event{Name: EventFunded})
}

// invoiceRequest describes the session's payment to the invoice service.
func (s *Session) invoiceRequest() network.InvoiceRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	req := network.InvoiceRequest{
		Description:   s.opts.Description,
		Currency:      s.opts.Currency,
		AppIdentifier: s.opts.AppIdentifier,
	}
	if s.mode == ModeProxypay {
		req.Satoshis = s.amountDueLocked()
		if ls := s.Script(); ls != nil {
			req.Script = tx.EncodeHex(ls)
		}
		return req
	}
	for _, out := range s.forge.Outputs() {
		req.Outputs = append(req.Outputs, network.InvoiceOutput{
			Satoshis: out.Satoshis,
			Script:   tx.EncodeHex(out.LockingScript),
		})
	}
	return req
}

// CreateInvoice requests a new invoice for the session. The result is also
// delivered as EventInvoice or EventError.
func (s *Session) CreateInvoice(ctx context.Context) (*network.Invoice, error) {
	return s.fetchInvoice(ctx, "create", func(ctx context.Context, svc network.InvoiceService) (*network.Invoice, error) {
		return svc.CreateInvoice(ctx, s.invoiceRequest())
	})
}

// LoadInvoice loads an existing invoice. The result is also delivered as
// EventInvoice or EventError.
func (s *Session) LoadInvoice(ctx context.Context, id string) (*network.Invoice, error) {
	return s.fetchInvoice(ctx, "load", func(ctx context.Context, svc network.InvoiceService) (*network.Invoice, error) {
		return svc.LoadInvoice(ctx, id)
	})
}

func (s *Session) fetchInvoice(ctx context.Context, op string,
	call func(context.Context, network.InvoiceService) (*network.Invoice, error)) (*network.Invoice, error) {

	svc := s.opts.Invoices
	if svc == nil {
		err := ErrNoInvoiceService
		s.metrics.InvoiceFailed()
		s.events.emit(Event{Name: EventError, Err: err})
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.InvoiceTimeout)
	defer cancel()

	inv, err := call(ctx, svc)
	if err != nil {
		err = fmt.Errorf("presto: %s invoice: %w", op, err)
		s.metrics.InvoiceFailed()
		s.log.Warn().Err(err).Msg("invoice request failed")
		s.events.emit(Event{Name: EventError, Err: err})
		return nil, err
	}

	s.mu.Lock()
	s.invoice = inv
	s.mu.Unlock()

	s.metrics.InvoiceCreated()
	s.log.Debug().Str("op", op).Str("invoice", inv.ID).Str("url", inv.InvoiceURL).Msg("invoice ready")
	s.events.retain(Event{Name: EventInvoice, Invoice: inv})
	return inv, nil
}

// signParams fills in the session key when params carries none.
func (s *Session) signParams(params tx.SignParams) tx.SignParams {
	if params.Key == nil {
		params.Key = s.key
	}
	return params
}

// SignTx signs every input of the forge's transaction.
func (s *Session) SignTx(params tx.SignParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.forge.Sign(s.signParams(params))
}

// SignTxIn signs input index of the forge's transaction.
func (s *Session) SignTxIn(index int, params tx.SignParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.forge.SignInput(index, s.signParams(params))
}

// PushTx sends the signed transaction to the mounted UI. It fails without
// side effects while an amount is still due.
func (s *Session) PushTx() error {
	s.mu.Lock()
	if due := s.amountDueLocked(); due > 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %d satoshis due", ErrInsufficientFunds, due)
	}
	m := s.mount
	if m == nil {
		s.mu.Unlock()
		return ErrNotMounted
	}
	if !s.forge.Built() {
		if err := s.forge.Sign(s.signParams(tx.SignParams{})); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	rawtx := s.forge.Hex()
	s.mu.Unlock()

	if err := m.Channel.Send(embed.EventTxPush, embed.TxPushPayload{RawTx: rawtx}); err != nil {
		return fmt.Errorf("presto: push tx: %w", err)
	}
	s.metrics.Pushed()
	s.log.Debug().Str("rawtx", rawtx).Msg("tx pushed")
	return nil
}

// Mount attaches the session to an embedded UI: inbound messages are
// routed to HandleMessage, the handshake and UI configuration are sent, and
// the host loads the invoice URL whenever an invoice arrives. Mounting again
// detaches and closes the previous channel.
func (s *Session) Mount(m *embed.Embed) error {
	if m == nil || m.Channel == nil {
		return fmt.Errorf("%w: no channel", ErrNotMounted)
	}
	if m.Host == nil {
		m.Host = embed.NopHost{}
	}

	s.mu.Lock()
	prev, prevSub := s.mount, s.mountSub
	s.mount, s.mountSub = m, 0
	s.mu.Unlock()

	if prev != nil {
		s.events.removeID(EventInvoice, prevSub)
		if prev.Channel != m.Channel {
			if err := prev.Channel.Close(); err != nil {
				s.log.Debug().Err(err).Msg("close replaced channel")
			}
		}
	}

	m.Channel.OnMessage(s.HandleMessage)
	if err := m.Channel.Send(embed.EventHandshake, nil); err != nil {
		return fmt.Errorf("presto: handshake: %w", err)
	}
	if err := m.Channel.Send(embed.EventConfigure, m.UI); err != nil {
		return fmt.Errorf("presto: configure: %w", err)
	}

	// Replays the current invoice, if any.
	id := s.events.add(EventInvoice, func(ev Event) {
		if err := m.Host.Load(ev.Invoice.InvoiceURL); err != nil {
			s.log.Warn().Err(err).Msg("host load failed")
		}
	}, false)

	s.mu.Lock()
	current := s.mount == m
	if current {
		s.mountSub = id
	}
	s.mu.Unlock()
	if !current {
		s.events.removeID(EventInvoice, id)
	}
	return nil
}

func (s *Session) mounted() *embed.Embed {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mount
}

// isDuplicate reports whether err only rejects an already known input.
func isDuplicate(err error) bool {
	return errors.Is(err, tx.ErrDuplicateInput)
}
