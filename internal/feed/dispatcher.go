package feed

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Listener receives feed events. Listeners are invoked synchronously from the
// connection's read goroutine, so events of one connection arrive in order.
type Listener func(Event)

// Subscription identifies a registered listener for removal.
type Subscription uint64

// dispatcher routes events to registered listeners. A panicking listener is
// recovered and logged individually so it never blocks the others.
type dispatcher struct {
	mu        sync.RWMutex
	nextID    Subscription
	listeners map[EventType][]subscriber
}

type subscriber struct {
	id Subscription
	fn Listener
}

func newDispatcher() *dispatcher {
	return &dispatcher{listeners: make(map[EventType][]subscriber)}
}

// on registers a listener for one event type and returns its subscription handle.
func (d *dispatcher) on(typ EventType, fn Listener) Subscription {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextID++
	id := d.nextID
	d.listeners[typ] = append(d.listeners[typ], subscriber{id: id, fn: fn})
	return id
}

// off removes a previously registered listener.
func (d *dispatcher) off(typ EventType, id Subscription) {
	d.mu.Lock()
	defer d.mu.Unlock()

	subs := d.listeners[typ]
	for i, s := range subs {
		if s.id == id {
			d.listeners[typ] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

// clear drops all listeners.
func (d *dispatcher) clear() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.listeners = make(map[EventType][]subscriber)
}

// emit delivers the event to every listener registered for its type.
func (d *dispatcher) emit(ev Event) {
	d.mu.RLock()
	subs := make([]subscriber, len(d.listeners[ev.Type()]))
	copy(subs, d.listeners[ev.Type()])
	d.mu.RUnlock()

	for _, s := range subs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Error().
						Interface("panic", r).
						Str("event_type", string(ev.Type())).
						Msg("Feed listener panicked")
				}
			}()
			s.fn(ev)
		}()
	}
}
