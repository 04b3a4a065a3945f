package mindwave

import "sync"

// Listener receives session events; any field may be nil
// Handlers run in subscription order, one event at a time, in the order the
// events were raised. Delivery happens on the goroutine that raised the
// event unless another goroutine is already delivering, in which case that
// goroutine delivers it next
//
//	hub.Subscribe(mindwave.Listener{
//		OnRecord: func(r mindwave.Record) { ... },
//	})
type Listener struct {
	OnConnect    func()
	OnDisconnect func()
	OnTimeout    func()
	OnRecord     func(Record)
	OnRawEEG     func(int)
	OnBlink      func(int)
}

// Subscription removes its listener from the hub
type Subscription struct {
	hub *EventHub
	id  uint64
}

// Unsubscribe detaches the listener; safe to call more than once
func (s Subscription) Unsubscribe() {
	if s.hub != nil {
		s.hub.remove(s.id)
	}
}

type entry struct {
	id       uint64
	listener Listener
}

// EventHub is an ordered observer registry for session events
// Delivery snapshots the subscriber list, so handlers may subscribe or
// unsubscribe while an event is being delivered
type EventHub struct {
	mu      sync.RWMutex
	entries []entry
	nextID  uint64

	// Pending events, drained by at most one goroutine
	qmu      sync.Mutex
	queue    []event
	draining bool
}

// NewEventHub creates an empty hub
func NewEventHub() *EventHub {
	return &EventHub{}
}

// Subscribe appends a listener and returns its handle
func (h *EventHub) Subscribe(l Listener) Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	h.entries = append(h.entries, entry{id: h.nextID, listener: l})
	return Subscription{hub: h, id: h.nextID}
}

func (h *EventHub) remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i, e := range h.entries {
		if e.id == id {
			h.entries = append(h.entries[:i:i], h.entries[i+1:]...)
			return
		}
	}
}

// Len returns the subscriber count
func (h *EventHub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

func (h *EventHub) snapshot() []entry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.entries
}

// eventKind tags a queued event
type eventKind uint8

const (
	eventConnect eventKind = iota
	eventDisconnect
	eventTimeout
	eventRecord
	eventRawEEG
	eventBlink
)

type event struct {
	kind   eventKind
	value  int
	record Record
}

// post queues ev without delivering it
// Callers that post under their own lock get delivery in lock order
func (h *EventHub) post(ev event) {
	h.qmu.Lock()
	h.queue = append(h.queue, ev)
	h.qmu.Unlock()
}

// flush delivers queued events in order
// Only one goroutine drains at a time; a flush that finds another drainer
// returns at once and its events are delivered by that drainer, after the
// handler currently running. This keeps re-entrant emits from a handler safe
func (h *EventHub) flush() {
	h.qmu.Lock()
	if h.draining {
		h.qmu.Unlock()
		return
	}
	h.draining = true
	h.qmu.Unlock()

	// A panicking handler releases the drain; remaining events go out on
	// the next flush
	finished := false
	defer func() {
		if !finished {
			h.qmu.Lock()
			h.draining = false
			h.qmu.Unlock()
		}
	}()

	for {
		h.qmu.Lock()
		if len(h.queue) == 0 {
			h.draining = false
			h.qmu.Unlock()
			finished = true
			return
		}
		ev := h.queue[0]
		h.queue[0] = event{}
		h.queue = h.queue[1:]
		h.qmu.Unlock()

		h.deliver(ev)
	}
}

func (h *EventHub) deliver(ev event) {
	for _, e := range h.snapshot() {
		l := e.listener
		switch ev.kind {
		case eventConnect:
			if l.OnConnect != nil {
				l.OnConnect()
			}
		case eventDisconnect:
			if l.OnDisconnect != nil {
				l.OnDisconnect()
			}
		case eventTimeout:
			if l.OnTimeout != nil {
				l.OnTimeout()
			}
		case eventRecord:
			if l.OnRecord != nil {
				l.OnRecord(ev.record)
			}
		case eventRawEEG:
			if l.OnRawEEG != nil {
				l.OnRawEEG(ev.value)
			}
		case eventBlink:
			if l.OnBlink != nil {
				l.OnBlink(ev.value)
			}
		}
	}
}

func (h *EventHub) emit(ev event) {
	h.post(ev)
	h.flush()
}

// EmitConnect notifies OnConnect handlers
func (h *EventHub) EmitConnect() {
	h.emit(event{kind: eventConnect})
}

// EmitDisconnect notifies OnDisconnect handlers
func (h *EventHub) EmitDisconnect() {
	h.emit(event{kind: eventDisconnect})
}

// EmitTimeout notifies OnTimeout handlers
func (h *EventHub) EmitTimeout() {
	h.emit(event{kind: eventTimeout})
}

// EmitRecord notifies OnRecord handlers
func (h *EventHub) EmitRecord(r Record) {
	h.emit(event{kind: eventRecord, record: r})
}

// EmitRawEEG notifies OnRawEEG handlers
func (h *EventHub) EmitRawEEG(v int) {
	h.emit(event{kind: eventRawEEG, value: v})
}

// EmitBlink notifies OnBlink handlers
func (h *EventHub) EmitBlink(v int) {
	h.emit(event{kind: eventBlink, value: v})
}
