package status

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/ggaspari/clack/internal/bus"
)

// State represents the push transport connection state.
type State string

const (
	Disconnected State = "DISCONNECTED"
	Connecting   State = "CONNECTING"
	Live         State = "LIVE"
)

// validTransitions defines allowed state transitions. Any socket error
// or close drops LIVE back to DISCONNECTED; a failed dial drops
// CONNECTING back to DISCONNECTED.
var validTransitions = map[State][]State{
	Disconnected: {Connecting},
	Connecting:   {Live, Disconnected},
	Live:         {Disconnected},
}

// Machine tracks and enforces transport state transitions.
type Machine struct {
	mu      sync.RWMutex
	current State
	bus     *bus.Bus
}

// NewMachine creates a state machine starting in Disconnected.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{current: Disconnected, bus: b}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Transition attempts to move to a new state. Returns an error if the
// transition is invalid.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !slices.Contains(validTransitions[m.current], to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	if m.bus != nil {
		m.bus.Publish(bus.Event{
			Kind:      "transport.state_changed",
			Timestamp: time.Now(),
			Payload:   StatusChange{From: from, To: to},
		})
	}
	return nil
}

// StatusChange is the payload for transport state change events.
type StatusChange struct {
	From State
	To   State
}
