// Package chat keeps per-order chat histories in sync and sends driver
// messages.
package chat

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matheus3301/drv/internal/bus"
	"github.com/matheus3301/drv/internal/domain"
	"github.com/matheus3301/drv/internal/failure"
	"github.com/matheus3301/drv/internal/poll"
)

// Transport is the backend surface the engine needs.
type Transport interface {
	FetchMessages(ctx context.Context, orderID domain.ID) ([]domain.ChatMessage, error)
	SendMessage(ctx context.Context, orderID domain.ID, msg domain.OutgoingMessage) (domain.Result, error)
}

// Identity yields the signed-in driver.
type Identity interface {
	Current() (domain.Identity, bool)
}

// Recorder journals driver-initiated mutations.
type Recorder interface {
	RecordAction(ctx context.Context, a domain.Activity) error
}

// Observer counts send outcomes.
type Observer interface {
	ChatSend(outcome string)
}

var locationPattern = regexp.MustCompile(`^-?\d{1,3}(\.\d+)?,\s*-?\d{1,3}(\.\d+)?$`)

// Classify reports whether text is a shared "lat,lng" location.
func Classify(text string) domain.MessageKind {
	if locationPattern.MatchString(strings.TrimSpace(text)) {
		return domain.KindLocation
	}
	return domain.KindPlain
}

// Entry is a message with its display key.
type Entry struct {
	Key     string             `json:"key"`
	Message domain.ChatMessage `json:"message"`
}

// View is a snapshot of one order's chat.
type View struct {
	OrderID       domain.ID `json:"order_id"`
	Entries       []Entry   `json:"entries"`
	Draft         string    `json:"draft"`
	ComposeFailed bool      `json:"compose_failed"`
	Loaded        bool      `json:"loaded"`
}

// Grew is the payload of bus.KindChatGrew.
type Grew struct {
	OrderID domain.ID
	Size    int
}

type thread struct {
	messages      []domain.ChatMessage
	loaded        bool
	applied       uint64
	draft         string
	composeFailed bool
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

// Engine owns chat histories, drafts and compose-error flags per order.
type Engine struct {
	transport Transport
	identity  Identity
	bus       *bus.Bus
	alerts    *failure.Raiser
	recorder  Recorder
	observer  Observer
	logger    *zap.Logger

	mu      sync.RWMutex
	refresh func(context.Context, domain.ID) error
	threads map[domain.ID]*thread
	seq     uint64
	floor   uint64 // fetches started at or before floor are never committed
}

// New creates an engine with no threads.
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
		logger:    logger.Named("chat"),
		threads:   make(map[domain.ID]*thread),
	}
}

// Snapshot returns the chat view for orderID.
func (e *Engine) Snapshot(orderID domain.ID) View {
	e.mu.RLock()
	defer e.mu.RUnlock()

	view := View{OrderID: orderID, Entries: []Entry{}}
	th, ok := e.threads[orderID]
	if !ok {
		return view
	}
	view.Draft = th.draft
	view.ComposeFailed = th.composeFailed
	view.Loaded = th.loaded
	view.Entries = make([]Entry, len(th.messages))
	for i, m := range th.messages {
		view.Entries[i] = Entry{Key: m.Key(i), Message: m}
	}
	return view
}

// FetchFunc returns the poll function for orderID's history.
func (e *Engine) FetchFunc(orderID domain.ID) poll.FetchFunc {
	return func(ctx context.Context) (poll.Commit, error) {
		return e.fetch(ctx, orderID)
	}
}

func (e *Engine) fetch(ctx context.Context, orderID domain.ID) (poll.Commit, error) {
	e.mu.Lock()
	e.seq++
	seq := e.seq
	e.mu.Unlock()

	msgs, err := e.transport.FetchMessages(ctx, orderID)
	if err != nil {
		return nil, failure.New(failure.Transport, "fetch chat", err)
	}
	for i := range msgs {
		msgs[i].Kind = Classify(msgs[i].Text)
	}
	return func() { e.replace(orderID, seq, msgs) }, nil
}

// SetRefresher routes the refresh that follows a sent message through fn,
// normally the order's chat subscription so it cannot overlap a poll fetch.
// A nil fn restores the direct Refresh.
func (e *Engine) SetRefresher(fn func(context.Context, domain.ID) error) {
	e.mu.Lock()
	e.refresh = fn
	e.mu.Unlock()
}

func (e *Engine) refreshAfterSend(ctx context.Context, orderID domain.ID) error {
	e.mu.RLock()
	fn := e.refresh
	e.mu.RUnlock()
	if fn == nil {
		return e.Refresh(ctx, orderID)
	}
	return fn(ctx, orderID)
}

// Refresh replaces orderID's history. Failures keep the previous history
// and are only logged.
func (e *Engine) Refresh(ctx context.Context, orderID domain.ID) error {
	commit, err := e.fetch(ctx, orderID)
	if err != nil {
		e.ReportError(orderID, err)
		return err
	}
	commit()
	return nil
}

// ReportError logs a history fetch failure. Chat polling failures are not
// surfaced to the driver.
func (e *Engine) ReportError(orderID domain.ID, err error) {
	e.logger.Debug("chat refresh failed", zap.String("order_id", orderID.String()), zap.Error(err))
}

func (e *Engine) replace(orderID domain.ID, seq uint64, msgs []domain.ChatMessage) {
	e.mu.Lock()
	if seq <= e.floor {
		e.mu.Unlock()
		return
	}
	th := e.thread(orderID)
	if seq < th.applied {
		e.mu.Unlock()
		return
	}
	th.applied = seq
	if msgs == nil {
		msgs = []domain.ChatMessage{}
	}
	grew := len(msgs) != len(th.messages)
	th.messages = msgs
	th.loaded = true
	e.mu.Unlock()

	e.emit(bus.KindChatUpdated, orderID)
	if grew {
		e.emit(bus.KindChatGrew, Grew{OrderID: orderID, Size: len(msgs)})
	}
}

// SetDraft stores the composer text for orderID.
func (e *Engine) SetDraft(orderID domain.ID, text string) {
	e.mu.Lock()
	e.thread(orderID).draft = text
	e.mu.Unlock()
}

// Send submits text to orderID's chat. Blank text and a missing identity
// are silent no-ops. On success the draft and compose-error flag are
// cleared and the history is refreshed; on failure the draft is kept and
// the compose-error flag set.
func (e *Engine) Send(ctx context.Context, orderID domain.ID, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	id, ok := e.identity.Current()
	if !ok {
		return nil
	}

	msg := domain.OutgoingMessage{Author: id.DriverID, Text: text, Kind: Classify(text)}
	res, err := e.transport.SendMessage(ctx, orderID, msg)
	var fe *failure.Error
	switch {
	case err != nil && !errors.As(err, &fe):
		err = failure.New(failure.Transport, "send message", err)
	case err == nil && !res.Success:
		reason := res.Message
		if reason == "" {
			reason = "success=false"
		}
		err = failure.Rejectedf("send message", "backend refused message: %s", reason)
	}
	e.record(ctx, orderID, msg, err)

	if err != nil {
		e.mu.Lock()
		th := e.thread(orderID)
		th.composeFailed = true
		if th.draft == "" {
			th.draft = text
		}
		e.mu.Unlock()
		e.logger.Warn("chat send failed", zap.String("order_id", orderID.String()), zap.Error(err))
		e.alerts.Raise(err)
		e.emit(bus.KindChatUpdated, orderID)
		return err
	}

	e.mu.Lock()
	th := e.thread(orderID)
	th.draft = ""
	th.composeFailed = false
	e.mu.Unlock()

	// Refresh failures are only logged; the message was accepted.
	if err := e.refreshAfterSend(ctx, orderID); err != nil {
		e.logger.Debug("refresh after send failed", zap.String("order_id", orderID.String()), zap.Error(err))
	}
	return nil
}

// Forget drops orderID's thread once nobody is watching it.
func (e *Engine) Forget(orderID domain.ID) {
	e.mu.Lock()
	delete(e.threads, orderID)
	e.mu.Unlock()
}

// Reset drops every thread, used when the driver signs out.
func (e *Engine) Reset() {
	e.mu.Lock()
	ids := make([]domain.ID, 0, len(e.threads))
	for id := range e.threads {
		ids = append(ids, id)
	}
	e.threads = make(map[domain.ID]*thread)
	e.floor = e.seq
	e.mu.Unlock()

	for _, id := range ids {
		e.emit(bus.KindChatUpdated, id)
	}
}

// thread returns orderID's thread, creating it. Callers hold e.mu.
func (e *Engine) thread(orderID domain.ID) *thread {
	th, ok := e.threads[orderID]
	if !ok {
		th = &thread{}
		e.threads[orderID] = th
	}
	return th
}

func (e *Engine) record(ctx context.Context, orderID domain.ID, msg domain.OutgoingMessage, err error) {
	outcome := failure.Outcome(err)
	if e.observer != nil {
		e.observer.ChatSend(outcome)
	}
	if e.recorder == nil {
		return
	}
	a := domain.Activity{
		ID:       uuid.NewString(),
		Kind:     domain.ActivityChat,
		OrderID:  orderID,
		Detail:   string(msg.Kind),
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
