package collide

const (
	CONTACT_ENTER EventType = iota
	CONTACT_STAY
	CONTACT_EXIT
)

type EventType uint8

// Event interface - all events implement this
type Event interface {
	Type() EventType
}

// ContactEnterEvent fires on the first step two proxies touch.
type ContactEnterEvent struct {
	A *Proxy
	B *Proxy
}

func (e ContactEnterEvent) Type() EventType { return CONTACT_ENTER }

// ContactStayEvent fires on every subsequent step the contact persists.
type ContactStayEvent struct {
	A *Proxy
	B *Proxy
}

func (e ContactStayEvent) Type() EventType { return CONTACT_STAY }

// ContactExitEvent fires when a touching pair separates or one of its
// proxies is removed.
type ContactExitEvent struct {
	A *Proxy
	B *Proxy
}

func (e ContactExitEvent) Type() EventType { return CONTACT_EXIT }

// EventListener - callback for events
type EventListener func(event Event)

// Events buffers contact events during a step and delivers them to the
// subscribed listeners at flush, after all manifolds are final.
type Events struct {
	// Listeners by event type
	listeners map[EventType][]EventListener

	// Event buffer to send at flush
	buffer []Event
}

func NewEvents() Events {
	return Events{
		listeners: make(map[EventType][]EventListener),
		buffer:    make([]Event, 0, 256),
	}
}

// Subscribe adds a listener for an event type
func (e *Events) Subscribe(eventType EventType, listener EventListener) {
	e.listeners[eventType] = append(e.listeners[eventType], listener)
}

func (e *Events) emitEnter(a, b *Proxy) {
	e.buffer = append(e.buffer, ContactEnterEvent{A: a, B: b})
}

func (e *Events) emitStay(a, b *Proxy) {
	e.buffer = append(e.buffer, ContactStayEvent{A: a, B: b})
}

func (e *Events) emitExit(a, b *Proxy) {
	e.buffer = append(e.buffer, ContactExitEvent{A: a, B: b})
}

// flush sends all buffered events and clears the buffer
func (e *Events) flush() {
	for _, event := range e.buffer {
		if listeners, ok := e.listeners[event.Type()]; ok {
			for _, listener := range listeners {
				listener(event)
			}
		}
	}
	e.buffer = e.buffer[:0]
}
