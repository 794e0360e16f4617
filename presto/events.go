package presto

import (
	"sync"

	"github.com/bitfsorg/presto-go/network"
)

// Session events.
const (
	EventInvoice = "invoice"
	EventFunded  = "funded"
	EventSuccess = "success"
	EventError   = "error"
)

// Event is delivered to listeners. Only the fields relevant to Name are set.
type Event struct {
	Name    string
	Invoice *network.Invoice
	TxID    string
	RawTx   string
	Err     error
}

// Listener receives session events.
type Listener func(Event)

type subscription struct {
	id   uint64
	fn   Listener
	once bool
}

// emitter is an ordered listener registry keyed by event name. Retained
// events are replayed to listeners that subscribe after they fired.
type emitter struct {
	mu       sync.Mutex
	nextID   uint64
	subs     map[string][]subscription
	retained map[string]Event
}

// add subscribes fn and returns its id. If an event of that name is
// retained, fn receives it before add returns; a once listener is then
// consumed by the replay.
func (e *emitter) add(name string, fn Listener, once bool) uint64 {
	if fn == nil {
		return 0
	}
	e.mu.Lock()
	if e.subs == nil {
		e.subs = make(map[string][]subscription)
	}
	e.nextID++
	id := e.nextID
	last, replay := e.retained[name]
	if !replay || !once {
		e.subs[name] = append(e.subs[name], subscription{id: id, fn: fn, once: once})
	}
	e.mu.Unlock()

	if replay {
		fn(last)
	}
	return id
}

func (e *emitter) remove(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.subs, name)
}

func (e *emitter) removeID(name string, id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	subs := e.subs[name]
	for i, s := range subs {
		if s.id == id {
			e.subs[name] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// emit runs the listeners for ev.Name in subscription order. Listeners run
// outside the registry lock and may subscribe or emit themselves.
func (e *emitter) emit(ev Event) {
	e.dispatch(ev, false)
}

// retain emits ev and keeps it as the latest event of its name.
func (e *emitter) retain(ev Event) {
	e.dispatch(ev, true)
}

func (e *emitter) dispatch(ev Event, retain bool) {
	e.mu.Lock()
	if retain {
		if e.retained == nil {
			e.retained = make(map[string]Event)
		}
		e.retained[ev.Name] = ev
	}
	subs := e.subs[ev.Name]
	var keep []subscription
	for _, s := range subs {
		if !s.once {
			keep = append(keep, s)
		}
	}
	if len(keep) != len(subs) {
		e.subs[ev.Name] = keep
	}
	e.mu.Unlock()

	for _, s := range subs {
		s.fn(ev)
	}
}

// On subscribes fn to the named event. A listener subscribing to
// EventInvoice after an invoice arrived receives the current invoice
// immediately.
func (s *Session) On(event string, fn Listener) {
	s.events.add(event, fn, false)
}

// Once subscribes fn to the next occurrence of the named event.
func (s *Session) Once(event string, fn Listener) {
	s.events.add(event, fn, true)
}

// Off removes every listener of the named event.
func (s *Session) Off(event string) {
	s.events.remove(event)
}
