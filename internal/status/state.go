package status

import (
	"fmt"
	"slices"
	"sync"

	"github.com/matheus3301/schoolchat/internal/bus"
)

// State is the realtime link state shown in the status bar.
type State string

const (
	Disconnected State = "DISCONNECTED"
	Connecting   State = "CONNECTING"
	Connected    State = "CONNECTED"
	Reconnecting State = "RECONNECTING"
	Degraded     State = "DEGRADED"
	Closed       State = "CLOSED"
)

// validTransitions defines allowed state transitions. Closed is terminal.
var validTransitions = map[State][]State{
	Disconnected: {Connecting, Closed},
	Connecting:   {Connected, Reconnecting, Degraded, Closed},
	Connected:    {Reconnecting, Closed},
	Reconnecting: {Connecting, Degraded, Closed},
	Degraded:     {Connecting, Closed},
}

// Machine tracks and enforces realtime link state transitions.
type Machine struct {
	mu      sync.RWMutex
	current State
	bus     *bus.Bus
}

// NewMachine creates a new state machine starting in Disconnected state.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{
		current: Disconnected,
		bus:     b,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Transition attempts to move to a new state. Returns error if transition is invalid.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !slices.Contains(validTransitions[m.current], to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	m.bus.Emit(bus.KindRealtimeStatus, Change{From: from, To: to})
	return nil
}

// Change is the payload for status change events.
type Change struct {
	From State
	To   State
}
