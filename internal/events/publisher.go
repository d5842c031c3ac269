package events

import (
	"context"
	"sync"
)

// Publisher delivers ledger events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, e *LedgerEvent) error
}

// Handler processes one consumed event. A returned error requeues it.
type Handler func(ctx context.Context, e *LedgerEvent) error

// Recorder is an in-process Publisher that keeps every event. It backs
// tests and local runs without a broker.
type Recorder struct {
	mu     sync.Mutex
	events []LedgerEvent
	err    error
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

// FailWith makes every subsequent Publish return err.
func (r *Recorder) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *Recorder) Publish(_ context.Context, e *LedgerEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, *e)
	return nil
}

// Events returns a copy of the recorded events in publish order.
func (r *Recorder) Events() []LedgerEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]LedgerEvent(nil), r.events...)
}

// Kinds returns the kinds of the recorded events in publish order.
func (r *Recorder) Kinds() []Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Kind, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}
