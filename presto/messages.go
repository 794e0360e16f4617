package presto

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bitfsorg/presto-go/embed"
	"github.com/bitfsorg/presto-go/tx"
)

// InvoiceStatusComplete is the invoice.status value reporting settlement.
const InvoiceStatusComplete = "complete"

// HandleMessage applies one inbound UI message. Messages from any origin
// other than Options.Origin are dropped. Failures are reported as
// EventError, never returned.
func (s *Session) HandleMessage(msg embed.Message) {
	if msg.Origin != s.opts.Origin {
		s.log.Debug().Str("origin", msg.Origin).Str("event", msg.Event).Msg("message from foreign origin dropped")
		return
	}

	var err error
	switch msg.Event {
	case embed.EventInvoiceStatus:
		err = s.handleInvoiceStatus(msg)
	case embed.EventTxSuccess:
		err = s.handleTxSuccess(msg)
	case embed.EventTxFailure, embed.EventTxError:
		err = s.handleTxFailure(msg)
	case embed.EventWalletOpen:
		err = s.handleWalletOpen(msg)
	case embed.EventResize:
		err = s.handleResize(msg)
	default:
		s.log.Debug().Str("event", msg.Event).Msg("unhandled message")
		return
	}
	s.metrics.Message(msg.Event)

	if err != nil {
		s.log.Warn().Err(err).Str("event", msg.Event).Msg("message failed")
		s.events.emit(Event{Name: EventError, Err: err})
	}
}

func (s *Session) handleInvoiceStatus(msg embed.Message) error {
	var p embed.InvoiceStatusPayload
	if err := msg.Decode(&p); err != nil {
		return err
	}

	if s.mode == ModeSimple {
		if !strings.EqualFold(p.Status, InvoiceStatusComplete) {
			return nil
		}
		for _, t := range p.Txns {
			s.events.emit(Event{Name: EventSuccess, TxID: t.TxID, RawTx: t.RawTx})
		}
		return nil
	}

	inputs := make([]*tx.Input, 0, len(p.UTXOs))
	for i, raw := range p.UTXOs {
		var params tx.InputParams
		if err := json.Unmarshal(raw, &params); err != nil {
			return fmt.Errorf("%w: utxo %d: %w", ErrInvalidInput, i, err)
		}
		in, err := params.Resolve()
		if err != nil {
			return fmt.Errorf("utxo %d: %w", i, err)
		}
		inputs = append(inputs, in)
	}

	s.mu.Lock()
	added := 0
	var addErr error
	for _, in := range inputs {
		err := s.forge.AddInput(in)
		if isDuplicate(err) {
			s.log.Debug().Str("outpoint", in.Outpoint()).Msg("known utxo skipped")
			continue
		}
		if err != nil {
			addErr = err
			break
		}
		added++
	}
	fired := s.checkFundedLocked()
	have := s.forge.InputSum()
	s.mu.Unlock()

	s.log.Debug().Str("status", p.Status).Int("added", added).Msg("invoice status")
	if fired {
		s.emitFunded(have)
	}
	return addErr
}

func (s *Session) handleTxSuccess(msg embed.Message) error {
	var p embed.TxSuccessPayload
	if err := msg.Decode(&p); err != nil {
		return err
	}

	s.mu.Lock()
	var rawtx string
	if s.forge.Built() {
		rawtx = s.forge.Hex()
	}
	s.mu.Unlock()

	s.events.emit(Event{Name: EventSuccess, TxID: p.TxID, RawTx: rawtx})
	return nil
}

func (s *Session) handleTxFailure(msg embed.Message) error {
	var p embed.TxFailurePayload
	if err := msg.Decode(&p); err != nil {
		return err
	}
	reason := p.Reason()
	if reason == "" {
		reason = msg.Event
	}
	return fmt.Errorf("%w: %s", ErrPaymentFailed, reason)
}

func (s *Session) handleWalletOpen(msg embed.Message) error {
	var p embed.WalletOpenPayload
	if err := msg.Decode(&p); err != nil {
		return err
	}
	m := s.mounted()
	if m == nil {
		return nil
	}
	return m.Host.Navigate(p.URL)
}

func (s *Session) handleResize(msg embed.Message) error {
	var p embed.ResizePayload
	if err := msg.Decode(&p); err != nil {
		return err
	}
	m := s.mounted()
	if m == nil {
		return nil
	}
	return m.Host.Resize(p.Height)
}
