// Package eventbus is the publish/subscribe channel between a running
// interpreter and its host. Each interpreter gets its own Bus; there is no
// process-wide instance.
package eventbus

import (
	"errors"
	"sync"
)

// Event names exchanged between interpreter and host.
const (
	// SpawnInput asks the host for input. Payload: {"id","prompt"}.
	SpawnInput = "spawn_input"
	// ProvideInput delivers input from the host. Payload: {"id","value"}.
	ProvideInput = "provide_input"
	// BreakExec asks the interpreter to stop.
	BreakExec = "break_exec"
	// ProcessLogs carries a batch of output records.
	ProcessLogs = "process_logs"
	// ExecFinished reports that a run ended. Payload: {"run","status","elapsed_ms"}.
	ExecFinished = "exec_finished"
)

// ErrNoCallback is returned when no callback is registered under an id.
var ErrNoCallback = errors.New("Callback não encontrado")

// Event is a named message with a string payload (usually JSON).
type Event struct {
	Name    string
	Payload string
}

// Listener handles emitted events.
type Listener func(Event)

// Callback converts raw host text into the value handed back to a waiter.
type Callback func(payload string) string

// Bus is safe for concurrent use. Listeners run on the emitting goroutine,
// outside the bus lock, so they may call back into the bus.
type Bus struct {
	mu        sync.Mutex
	nextID    uint64
	listeners map[string]map[uint64]Listener
	callbacks map[string]Callback
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{
		listeners: make(map[string]map[uint64]Listener),
		callbacks: make(map[string]Callback),
	}
}

// Listen subscribes fn to event and returns a handle for Unlisten.
func (b *Bus) Listen(event string, fn Listener) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	if b.listeners[event] == nil {
		b.listeners[event] = make(map[uint64]Listener)
	}
	b.listeners[event][id] = fn
	return id
}

// Unlisten removes a subscription. Unknown handles are ignored.
func (b *Bus) Unlisten(event string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.listeners[event], id)
	if len(b.listeners[event]) == 0 {
		delete(b.listeners, event)
	}
}

// Emit delivers an event to every current listener of name. The order in
// which listeners run is unspecified.
func (b *Bus) Emit(name, payload string) {
	b.mu.Lock()
	fns := make([]Listener, 0, len(b.listeners[name]))
	for _, fn := range b.listeners[name] {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	ev := Event{Name: name, Payload: payload}
	for _, fn := range fns {
		fn(ev)
	}
}

// Listeners returns the number of subscriptions to event.
func (b *Bus) Listeners(event string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners[event])
}

// RegisterCallback stores cb under id, replacing any previous one.
func (b *Bus) RegisterCallback(id string, cb Callback) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.callbacks[id] = cb
}

// ResolveCallback removes the callback stored under id and applies it to
// payload.
func (b *Bus) ResolveCallback(id, payload string) (string, error) {
	b.mu.Lock()
	cb, ok := b.callbacks[id]
	delete(b.callbacks, id)
	b.mu.Unlock()
	if !ok {
		return "", ErrNoCallback
	}
	return cb(payload), nil
}

// HasCallback reports whether a callback is stored under id.
func (b *Bus) HasCallback(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.callbacks[id]
	return ok
}

// RemoveCallback drops the callback stored under id, if any.
func (b *Bus) RemoveCallback(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.callbacks, id)
}
