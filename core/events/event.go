package events

import (
	"sync"

	"quarkdapp/core/types"
)

// Event represents a structured state change emitted by the contract.
type Event interface {
	EventType() string
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, brokers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Record wraps a *types.Event so it satisfies Event.
type Record struct {
	Evt *types.Event
}

// EventType implements Event.
func (r Record) EventType() string {
	if r.Evt == nil {
		return ""
	}
	return r.Evt.Type
}

// Event returns the underlying payload.
func (r Record) Event() *types.Event { return r.Evt }

// Buffer holds events emitted during a single operation until the operation
// commits. Flush forwards them in order; Reset drops them.
type Buffer struct {
	pending []Event
}

// Emit implements Emitter.
func (b *Buffer) Emit(evt Event) {
	if evt == nil {
		return
	}
	b.pending = append(b.pending, evt)
}

// Len reports the number of pending events.
func (b *Buffer) Len() int { return len(b.pending) }

// Flush forwards all pending events to the target and clears the buffer.
func (b *Buffer) Flush(target Emitter) {
	if target != nil {
		for _, evt := range b.pending {
			target.Emit(evt)
		}
	}
	b.pending = nil
}

// Reset drops all pending events.
func (b *Buffer) Reset() { b.pending = nil }

// Recorder keeps every emitted event in memory. It backs the event query
// endpoint and tests.
type Recorder struct {
	mu     sync.RWMutex
	events []Event
	limit  int
}

// NewRecorder returns a recorder keeping at most limit events (0 = unbounded).
func NewRecorder(limit int) *Recorder {
	return &Recorder{limit: limit}
}

// Emit implements Emitter.
func (r *Recorder) Emit(evt Event) {
	if evt == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	if r.limit > 0 && len(r.events) > r.limit {
		r.events = append([]Event(nil), r.events[len(r.events)-r.limit:]...)
	}
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Event(nil), r.events...)
}

// Types returns the recorded event types in emission order.
func (r *Recorder) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.events))
	for _, evt := range r.events {
		out = append(out, evt.EventType())
	}
	return out
}

// Fanout emits every event to each of its targets.
type Fanout []Emitter

// Emit implements Emitter.
func (f Fanout) Emit(evt Event) {
	for _, target := range f {
		if target != nil {
			target.Emit(evt)
		}
	}
}
