// Package notifications keeps the driver's notification list in sync.
package notifications

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/matheus3301/drv/internal/bus"
	"github.com/matheus3301/drv/internal/domain"
	"github.com/matheus3301/drv/internal/failure"
	"github.com/matheus3301/drv/internal/poll"
)

// Transport is the backend surface the engine needs.
type Transport interface {
	FetchNotifications(ctx context.Context, driverID domain.ID) ([]domain.Notification, error)
}

// Identity yields the signed-in driver.
type Identity interface {
	Current() (domain.Identity, bool)
}

// View is a snapshot of the notification list.
type View struct {
	Items  []domain.Notification `json:"items"`
	Loaded bool                  `json:"loaded"`
}

// Engine owns the notification list. Fetch failures are logged only.
type Engine struct {
	transport Transport
	identity  Identity
	bus       *bus.Bus
	logger    *zap.Logger

	mu      sync.RWMutex
	items   []domain.Notification
	loaded  bool
	started uint64
	applied uint64
}

// New creates an engine with an empty list.
func New(t Transport, id Identity, b *bus.Bus, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{transport: t, identity: id, bus: b, logger: logger.Named("notifications")}
}

// Snapshot returns the current view.
func (e *Engine) Snapshot() View {
	e.mu.RLock()
	defer e.mu.RUnlock()
	items := make([]domain.Notification, len(e.items))
	copy(items, e.items)
	return View{Items: items, Loaded: e.loaded}
}

// Fetch is the poll function for the notification list.
func (e *Engine) Fetch(ctx context.Context) (poll.Commit, error) {
	id, ok := e.identity.Current()
	if !ok {
		return nil, nil
	}
	e.mu.Lock()
	e.started++
	seq := e.started
	e.mu.Unlock()

	list, err := e.transport.FetchNotifications(ctx, id.DriverID)
	if err != nil {
		return nil, failure.New(failure.Transport, "fetch notifications", err)
	}
	return func() { e.replace(seq, id.DriverID, list) }, nil
}

// Refresh replaces the list. On failure the previous list stays.
func (e *Engine) Refresh(ctx context.Context) error {
	commit, err := e.Fetch(ctx)
	if err != nil {
		e.ReportError(err)
		return err
	}
	if commit != nil {
		commit()
	}
	return nil
}

// ReportError logs a fetch failure. Notification failures are not
// surfaced to the driver.
func (e *Engine) ReportError(err error) {
	e.logger.Debug("notification refresh failed", zap.Error(err))
}

func (e *Engine) replace(seq uint64, driverID domain.ID, list []domain.Notification) {
	if cur, ok := e.identity.Current(); !ok || cur.DriverID != driverID {
		return
	}
	e.mu.Lock()
	if seq < e.applied {
		e.mu.Unlock()
		return
	}
	e.applied = seq
	if list == nil {
		list = []domain.Notification{}
	}
	e.items = list
	e.loaded = true
	e.mu.Unlock()

	if e.bus != nil {
		e.bus.Emit(bus.KindNotesUpdated, len(list))
	}
}

// Reset drops the list, used when the driver signs out.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.items = nil
	e.loaded = false
	e.started++
	e.applied = e.started
	e.mu.Unlock()

	if e.bus != nil {
		e.bus.Emit(bus.KindNotesUpdated, 0)
	}
}
