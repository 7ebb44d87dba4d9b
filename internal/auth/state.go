package auth

import (
	"fmt"
	"slices"
	"sync"

	"github.com/matheus3301/pingme/internal/bus"
)

// State is the identity session state.
type State string

const (
	SignedOut State = "SIGNED_OUT"
	Loading   State = "LOADING"
	SignedIn  State = "SIGNED_IN"
)

// validTransitions defines allowed state transitions. Loading is entered
// once at startup and again for every sign-in attempt.
var validTransitions = map[State][]State{
	Loading:   {SignedIn, SignedOut},
	SignedOut: {Loading},
	SignedIn:  {SignedOut},
}

// Machine tracks and enforces session state transitions.
type Machine struct {
	mu      sync.RWMutex
	current State
	bus     *bus.Bus
}

// NewMachine creates a new state machine starting in Loading state.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{
		current: Loading,
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
	m.bus.Emit(bus.KindAuthStateChanged, StateChange{From: from, To: to})
	return nil
}

// StateChange is the payload for auth.state_changed events.
type StateChange struct {
	From State
	To   State
}
