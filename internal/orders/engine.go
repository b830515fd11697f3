// Package orders keeps the driver's order list in sync with the backend and
// drives status transitions.
package orders

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matheus3301/drv/internal/bus"
	"github.com/matheus3301/drv/internal/domain"
	"github.com/matheus3301/drv/internal/failure"
	"github.com/matheus3301/drv/internal/lifecycle"
	"github.com/matheus3301/drv/internal/poll"
)

// Transport is the backend surface the engine needs.
type Transport interface {
	FetchOrders(ctx context.Context, driverID domain.ID) ([]domain.Order, error)
	SubmitStatus(ctx context.Context, orderID domain.ID, next string, driverID domain.ID) (domain.Result, error)
}

// Identity yields the signed-in driver.
type Identity interface {
	Current() (domain.Identity, bool)
}

// Recorder journals driver-initiated mutations.
type Recorder interface {
	RecordAction(ctx context.Context, a domain.Activity) error
}

// Observer counts transition outcomes.
type Observer interface {
	Transition(outcome string)
}

// Item is one row of the order view.
type Item struct {
	Order     domain.Order `json:"order"`
	Busy      bool         `json:"busy"`
	Action    string       `json:"action,omitempty"`
	NextState string       `json:"next_status,omitempty"`
}

// View is a snapshot of the order list.
type View struct {
	Items  []Item `json:"items"`
	Loaded bool   `json:"loaded"`
}

// Find returns the item for id.
func (v View) Find(id domain.ID) (Item, bool) {
	for _, it := range v.Items {
		if it.Order.ID == id {
			return it, true
		}
	}
	return Item{}, false
}

// UpdatingChange is the payload of bus.KindOrderUpdating.
type UpdatingChange struct {
	OrderID domain.ID
	Busy    bool
}

// Config holds the engine's collaborators. Transport and Identity are
// required.
type Config struct {
	Transport Transport
	Identity  Identity
	Bus       *bus.Bus
	Alerts    *failure.Raiser
	Recorder  Recorder
	Observer  Observer
	Logger    *zap.Logger
}

// Engine owns the order list and the per-order busy marks.
type Engine struct {
	transport Transport
	identity  Identity
	bus       *bus.Bus
	alerts    *failure.Raiser
	recorder  Recorder
	observer  Observer
	logger    *zap.Logger

	mu       sync.RWMutex
	refresh  func(context.Context) error
	orders   []domain.Order
	loaded   bool
	updating map[domain.ID]bool
	started  uint64 // sequence of the most recently started fetch
	applied  uint64 // sequence of the most recently committed fetch
}

// New creates an engine with an empty list.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	alerts := cfg.Alerts
	if alerts == nil {
		alerts = failure.NewRaiser(cfg.Bus, logger)
	}
	return &Engine{
		transport: cfg.Transport,
		identity:  cfg.Identity,
		bus:       cfg.Bus,
		alerts:    alerts,
		recorder:  cfg.Recorder,
		observer:  cfg.Observer,
		logger:    logger.Named("orders"),
		updating:  make(map[domain.ID]bool),
	}
}

// Snapshot returns the current view.
func (e *Engine) Snapshot() View {
	e.mu.RLock()
	defer e.mu.RUnlock()

	view := View{Loaded: e.loaded, Items: make([]Item, 0, len(e.orders))}
	for _, o := range e.orders {
		it := Item{Order: o, Busy: e.updating[o.ID]}
		if action, ok := lifecycle.NextAction(o.DriverStatus); ok {
			it.Action = action.Label
			it.NextState = action.Next
		}
		view.Items = append(view.Items, it)
	}
	return view
}

// Updating reports whether a transition for id is in flight.
func (e *Engine) Updating(id domain.ID) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.updating[id]
}

// Fetch is the poll function for the order list.
func (e *Engine) Fetch(ctx context.Context) (poll.Commit, error) {
	id, ok := e.identity.Current()
	if !ok {
		return nil, nil
	}

	e.mu.Lock()
	e.started++
	seq := e.started
	e.mu.Unlock()

	list, err := e.transport.FetchOrders(ctx, id.DriverID)
	if err != nil {
		return nil, wrap("fetch orders", err)
	}
	return func() { e.replace(seq, id.DriverID, list) }, nil
}

// Refresh fetches the list for the current identity and replaces the local
// copy. On failure the previous list stays and an alert is raised.
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

// SetRefresher routes the refresh that follows an accepted transition
// through fn, normally the order subscription's Refresh so it cannot overlap
// a poll fetch. A nil fn restores the direct Refresh.
func (e *Engine) SetRefresher(fn func(context.Context) error) {
	e.mu.Lock()
	e.refresh = fn
	e.mu.Unlock()
}

func (e *Engine) refreshAfterMutation(ctx context.Context) error {
	e.mu.RLock()
	fn := e.refresh
	e.mu.RUnlock()
	if fn == nil {
		return e.Refresh(ctx)
	}
	return fn(ctx)
}

// ReportError surfaces a fetch failure to the driver.
func (e *Engine) ReportError(err error) {
	e.logger.Debug("order refresh failed", zap.Error(err))
	e.alerts.Raise(err)
}

// replace installs list unless a later-started fetch already committed or
// the driver changed while the fetch was out.
func (e *Engine) replace(seq uint64, driverID domain.ID, list []domain.Order) {
	if cur, ok := e.identity.Current(); !ok || cur.DriverID != driverID {
		e.logger.Debug("dropping orders for previous identity")
		return
	}

	e.mu.Lock()
	if seq < e.applied {
		e.mu.Unlock()
		e.logger.Debug("dropping stale order list", zap.Uint64("seq", seq), zap.Uint64("applied", e.applied))
		return
	}
	e.applied = seq
	if list == nil {
		list = []domain.Order{}
	}
	e.orders = list
	e.loaded = true
	e.mu.Unlock()

	e.emit(bus.KindOrdersUpdated, len(list))
}

// RequestTransition advances orderID from fromStatus to the next lifecycle
// status. Terminal or unknown statuses, a missing identity and an order that
// already has a transition in flight are silently ignored.
func (e *Engine) RequestTransition(ctx context.Context, orderID domain.ID, fromStatus string) error {
	action, ok := lifecycle.NextAction(fromStatus)
	if !ok {
		return nil
	}
	id, ok := e.identity.Current()
	if !ok {
		return nil
	}

	e.mu.Lock()
	if e.updating[orderID] {
		e.mu.Unlock()
		e.logger.Debug("transition already in flight", zap.String("order_id", orderID.String()))
		return nil
	}
	e.updating[orderID] = true
	e.mu.Unlock()
	e.emit(bus.KindOrderUpdating, UpdatingChange{OrderID: orderID, Busy: true})

	log := e.logger.With(
		zap.String("order_id", orderID.String()),
		zap.String("from", fromStatus),
		zap.String("to", action.Next),
	)

	res, err := e.transport.SubmitStatus(ctx, orderID, action.Next, id.DriverID)
	if err != nil {
		err = wrap("update status", err)
	} else if !res.Success {
		err = failure.Rejectedf("update status", "backend refused %q: %s", action.Next, orDefault(res.Message, "success=false"))
	}
	e.record(ctx, orderID, action.Next, err)

	if err != nil {
		e.clearUpdating(orderID)
		log.Warn("status transition failed", zap.Error(err))
		e.alerts.Raise(err)
		return err
	}

	log.Info("status transition accepted")
	// A failed refresh already raised its own alert; the transition stands.
	if err := e.refreshAfterMutation(ctx); err != nil {
		log.Debug("refresh after transition failed", zap.Error(err))
	}
	e.clearUpdating(orderID)
	e.emit(bus.KindOrdersScrollTop, orderID)
	return nil
}

// Reset drops all state, used when the driver signs out.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.orders = nil
	e.loaded = false
	e.started++
	e.applied = e.started
	e.mu.Unlock()
	e.emit(bus.KindOrdersUpdated, 0)
}

func (e *Engine) clearUpdating(orderID domain.ID) {
	e.mu.Lock()
	delete(e.updating, orderID)
	e.mu.Unlock()
	e.emit(bus.KindOrderUpdating, UpdatingChange{OrderID: orderID, Busy: false})
}

func (e *Engine) record(ctx context.Context, orderID domain.ID, next string, err error) {
	outcome := failure.Outcome(err)
	if e.observer != nil {
		e.observer.Transition(outcome)
	}
	if e.recorder == nil {
		return
	}
	a := domain.Activity{
		ID:       uuid.NewString(),
		Kind:     domain.ActivityStatus,
		OrderID:  orderID,
		Detail:   next,
		Outcome:  outcome,
		Occurred: time.Now(),
	}
	if err != nil {
		a.Error = err.Error()
	}
	if rerr := e.recorder.RecordAction(context.WithoutCancel(ctx), a); rerr != nil {
		e.logger.Warn("journal write failed", zap.Error(rerr))
	}
}

func (e *Engine) emit(kind string, payload any) {
	if e.bus != nil {
		e.bus.Emit(kind, payload)
	}
}

// wrap classifies unclassified transport errors.
func wrap(op string, err error) error {
	var fe *failure.Error
	if errors.As(err, &fe) {
		return err
	}
	return failure.New(failure.Transport, op, err)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
