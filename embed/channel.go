package embed

import (
	"sync"
)

// Channel is a bidirectional message channel to the embedded UI.
type Channel interface {
	// Send encodes payload and delivers it to the other side.
	Send(event string, payload any) error

	// OnMessage sets the handler for inbound messages. Messages that arrive
	// before a handler is set are held and delivered to it in order.
	OnMessage(fn func(Message))

	// Close releases the channel. Further sends fail with ErrChannelClosed.
	Close() error
}

// dispatcher hands inbound messages to the current handler, buffering them
// until one is set.
type dispatcher struct {
	mu      sync.Mutex
	handler func(Message)
	pending []Message
}

func (d *dispatcher) setHandler(fn func(Message)) {
	d.mu.Lock()
	d.handler = fn
	pending := d.pending
	d.pending = nil
	d.mu.Unlock()

	if fn == nil {
		return
	}
	for _, msg := range pending {
		fn(msg)
	}
}

func (d *dispatcher) dispatch(msg Message) {
	d.mu.Lock()
	h := d.handler
	if h == nil {
		d.pending = append(d.pending, msg)
		d.mu.Unlock()
		return
	}
	d.mu.Unlock()
	h(msg)
}

// PipeEnd is one end of an in-process channel created by NewPipe. Delivery
// is synchronous: Send returns after the peer's handler has run.
type PipeEnd struct {
	origin string
	peer   *PipeEnd
	dispatcher

	closeMu sync.Mutex
	closed  bool
}

// NewPipe returns two connected channel ends. Messages sent from a arrive at
// b with Origin set to originA, and vice versa.
func NewPipe(originA, originB string) (a, b *PipeEnd) {
	a = &PipeEnd{origin: originA}
	b = &PipeEnd{origin: originB}
	a.peer, b.peer = b, a
	return a, b
}

// Send delivers the message to the peer's handler.
func (p *PipeEnd) Send(event string, payload any) error {
	if p.isClosed() || p.peer.isClosed() {
		return ErrChannelClosed
	}
	msg, err := NewMessage(event, payload)
	if err != nil {
		return err
	}
	msg.Origin = p.origin
	p.peer.dispatch(msg)
	return nil
}

// OnMessage sets the inbound handler.
func (p *PipeEnd) OnMessage(fn func(Message)) {
	p.setHandler(fn)
}

// Close closes this end. The peer's sends fail from then on.
func (p *PipeEnd) Close() error {
	p.closeMu.Lock()
	defer p.closeMu.Unlock()
	p.closed = true
	return nil
}

func (p *PipeEnd) isClosed() bool {
	p.closeMu.Lock()
	defer p.closeMu.Unlock()
	return p.closed
}
