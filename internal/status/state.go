// Package status tracks the daemon's session state.
package status

import (
	"fmt"
	"slices"
	"sync"

	"github.com/matheus3301/drv/internal/bus"
)

// State is a daemon session state.
type State string

const (
	Booting   State = "BOOTING"
	SignedOut State = "SIGNED_OUT"
	SigningIn State = "SIGNING_IN"
	Online    State = "ONLINE"
	Error     State = "ERROR"
)

var validTransitions = map[State][]State{
	Booting:   {SignedOut, Error},
	SignedOut: {SigningIn, Error},
	SigningIn: {Online, SignedOut, Error},
	Online:    {SignedOut, Error},
	Error:     {Booting},
}

// Machine enforces the transition table and announces every change on
// the bus.
type Machine struct {
	mu      sync.RWMutex
	current State
	bus     *bus.Bus
}

// NewMachine returns a machine in Booting.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{
		current: Booting,
		bus:     b,
	}
}

func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// CanTransition reports whether to is reachable from the current state.
func (m *Machine) CanTransition(to State) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Contains(validTransitions[m.current], to)
}

// Transition moves to the given state or returns an error naming the
// illegal edge.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	if !slices.Contains(validTransitions[m.current], to) {
		from := m.current
		m.mu.Unlock()
		return fmt.Errorf("invalid transition from %s to %s", from, to)
	}
	from := m.current
	m.current = to
	m.mu.Unlock()

	if m.bus != nil {
		m.bus.Emit(bus.KindStatusChanged, StatusChange{From: from, To: to})
	}
	return nil
}

// Healthy reports the current state and whether it is anything but Error.
func (m *Machine) Healthy() (string, bool) {
	s := m.Current()
	return string(s), s != Error
}

// StatusChange is the payload of bus.KindStatusChanged.
type StatusChange struct {
	From State
	To   State
}
