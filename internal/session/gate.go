package session

import (
	"sync"

	"github.com/matheus3301/drv/internal/bus"
	"github.com/matheus3301/drv/internal/domain"
)

// IdentityChange is the payload of bus.KindIdentityChanged.
type IdentityChange struct {
	Present  bool
	DriverID domain.ID
}

// Gate holds the signed-in driver identity. Its absence suspends all
// polling.
type Gate struct {
	mu       sync.RWMutex
	identity domain.Identity
	present  bool
	bus      *bus.Bus
}

// NewGate creates an empty gate. Changes are announced on b when non-nil.
func NewGate(b *bus.Bus) *Gate {
	return &Gate{bus: b}
}

// Current returns the identity, if any.
func (g *Gate) Current() (domain.Identity, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.identity, g.present
}

// Set installs id as the signed-in driver.
func (g *Gate) Set(id domain.Identity) {
	g.mu.Lock()
	changed := !g.present || g.identity.DriverID != id.DriverID
	g.identity = id
	g.present = true
	g.mu.Unlock()

	if changed {
		g.announce(IdentityChange{Present: true, DriverID: id.DriverID})
	}
}

// Clear signs the driver out.
func (g *Gate) Clear() {
	g.mu.Lock()
	was := g.present
	g.identity = domain.Identity{}
	g.present = false
	g.mu.Unlock()

	if was {
		g.announce(IdentityChange{})
	}
}

func (g *Gate) announce(change IdentityChange) {
	if g.bus != nil {
		g.bus.Emit(bus.KindIdentityChanged, change)
	}
}
