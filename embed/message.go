// Package embed defines the message contract between a payment session and
// the payment UI it embeds, and the channels that carry it.
package embed

import (
	"encoding/json"
	"fmt"
)

// Events sent from the session to the UI.
const (
	EventHandshake = "handshake"
	EventConfigure = "configure"
	EventTxPush    = "tx.push"
)

// Events sent from the UI to the session.
const (
	EventInvoiceStatus = "invoice.status"
	EventTxSuccess     = "tx.success"
	EventTxFailure     = "tx.failure"
	EventTxError       = "tx.error"
	EventWalletOpen    = "wallet.open"
	EventResize        = "resize"
)

// Message is one event crossing the channel. Origin is set by the
// receiving channel to the sender's origin and is never serialized.
type Message struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Origin  string          `json:"-"`
}

// NewMessage encodes payload into a Message. A nil payload is omitted.
func NewMessage(event string, payload any) (Message, error) {
	msg := Message{Event: event}
	if payload == nil {
		return msg, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("%w: %s payload: %w", ErrInvalidMessage, event, err)
	}
	msg.Payload = b
	return msg, nil
}

// Decode unmarshals the payload into v. An empty payload leaves v untouched.
func (m Message) Decode(v any) error {
	if len(m.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("%w: %s payload: %w", ErrInvalidMessage, m.Event, err)
	}
	return nil
}

// TxPushPayload is the payload of EventTxPush.
type TxPushPayload struct {
	RawTx string `json:"rawtx"`
}

// InvoiceStatusPayload is the payload of EventInvoiceStatus. UTXOs are input
// descriptors in literal form; Txns are settled transactions.
type InvoiceStatusPayload struct {
	Status string            `json:"status"`
	UTXOs  []json.RawMessage `json:"utxos,omitempty"`
	Txns   []SettledTx       `json:"txns,omitempty"`
}

// SettledTx identifies a transaction the UI settled on the payer's behalf.
type SettledTx struct {
	TxID  string `json:"txid"`
	RawTx string `json:"rawtx"`
}

// TxSuccessPayload is the payload of EventTxSuccess.
type TxSuccessPayload struct {
	TxID string `json:"txid"`
}

// TxFailurePayload is the payload of EventTxFailure and EventTxError.
type TxFailurePayload struct {
	ResultDescription string `json:"resultDescription,omitempty"`
	Error             string `json:"error,omitempty"`
}

// Reason returns the most specific failure text in the payload.
func (p TxFailurePayload) Reason() string {
	if p.ResultDescription != "" {
		return p.ResultDescription
	}
	return p.Error
}

// WalletOpenPayload is the payload of EventWalletOpen.
type WalletOpenPayload struct {
	URL string `json:"url"`
}

// ResizePayload is the payload of EventResize.
type ResizePayload struct {
	Height int `json:"height"`
}
