package session

import (
	"testing"
	"time"

	"github.com/matheus3301/drv/internal/bus"
	"github.com/matheus3301/drv/internal/domain"
)

func TestGateSetClear(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe(bus.KindIdentityChanged, 8)
	defer unsub()
	g := NewGate(b)

	if _, ok := g.Current(); ok {
		t.Fatal("new gate should be empty")
	}

	g.Set(domain.Identity{DriverID: "17", Name: "Sam"})
	id, ok := g.Current()
	if !ok || id.DriverID != "17" {
		t.Fatalf("Current = %+v, %v", id, ok)
	}
	change := next(t, ch)
	if !change.Present || change.DriverID != "17" {
		t.Errorf("change = %+v", change)
	}

	// Same driver again is not a change.
	g.Set(domain.Identity{DriverID: "17", Name: "Sam"})
	g.Clear()
	if change := next(t, ch); change.Present {
		t.Errorf("expected sign-out change, got %+v", change)
	}
	if _, ok := g.Current(); ok {
		t.Error("identity should be cleared")
	}

	g.Clear()
	select {
	case evt := <-ch:
		t.Errorf("second Clear published %+v", evt)
	case <-time.After(30 * time.Millisecond):
	}
}

func next(t *testing.T, ch <-chan bus.Event) IdentityChange {
	t.Helper()
	select {
	case evt := <-ch:
		return evt.Payload.(IdentityChange)
	case <-time.After(time.Second):
		t.Fatal("no identity change published")
		return IdentityChange{}
	}
}
