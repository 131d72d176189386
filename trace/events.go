// Package trace is the ambient event-tracing layer for a schedule or
// experiment run: block transitions, solver calls, cost-price
// convergence, diagnostics.
package trace

import (
	"sync"
	"time"
)

// Event name constants, namespaced by the subsystem they come from.
const (
	BlockBegin       = "block/begin"
	BlockComplete    = "block/complete"
	SolverInvoked    = "solver/invoked"
	SolverComplete   = "solver/completed"
	CostPriceRound   = "costprice/round"
	CostPriceDone    = "costprice/converged"
	ExperimentRun    = "experiment/run"
	ExperimentDone   = "experiment/completed"
	ErrorDiagnostic  = "error/diagnostic"
)

// Event is one traced occurrence during a run.
type Event struct {
	Name    string
	Start   time.Time
	End     time.Time
	Latency time.Duration
	Data    map[string]interface{}
}

// Handler processes events as they occur.
type Handler func(event Event)

// Collector accumulates events and forwards them to an optional
// handler.
type Collector struct {
	mu      sync.Mutex
	enabled bool
	handler Handler
	events  []Event
}

// NewCollector creates a Collector. A nil handler disables tracing
// while still accumulating events for later inspection.
func NewCollector(handler Handler) *Collector {
	return &Collector{enabled: handler != nil, handler: handler, events: make([]Event, 0, 64)}
}

// Emit records event and forwards it to the handler, if any. A nil
// Collector is a no-op, so components wired with an optional tracer
// don't need to nil-check it at every call site.
func (c *Collector) Emit(name string, data map[string]interface{}) {
	if c == nil {
		return
	}
	ev := Event{Name: name, Data: data}
	c.mu.Lock()
	c.events = append(c.events, ev)
	handler := c.handler
	enabled := c.enabled
	c.mu.Unlock()
	if enabled {
		handler(ev)
	}
}

// Span times a named block of work and emits its start/end pair. A
// nil Collector returns a no-op closer.
func (c *Collector) Span(name string, data map[string]interface{}) func() {
	if c == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		ev := Event{Name: name, Start: start, End: time.Now(), Data: data}
		ev.Latency = ev.End.Sub(ev.Start)
		c.mu.Lock()
		c.events = append(c.events, ev)
		handler := c.handler
		enabled := c.enabled
		c.mu.Unlock()
		if enabled {
			handler(ev)
		}
	}
}

// Events returns a snapshot of every event recorded so far.
func (c *Collector) Events() []Event {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}
