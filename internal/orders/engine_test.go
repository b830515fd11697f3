package orders

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matheus3301/drv/internal/bus"
	"github.com/matheus3301/drv/internal/domain"
	"github.com/matheus3301/drv/internal/failure"
	"github.com/matheus3301/drv/internal/lifecycle"
	"github.com/matheus3301/drv/internal/session"
)

type submitCall struct {
	OrderID  domain.ID
	Next     string
	DriverID domain.ID
}

// mockTransport records calls. Fetches return lists in order; a fetch
// whose gate channel is set blocks until it is closed.
type mockTransport struct {
	mu        sync.Mutex
	lists     [][]domain.Order
	fetchErr  error
	fetches   int
	gates     map[int]chan struct{}
	submits   []submitCall
	result    domain.Result
	submitErr error
	onSubmit  func()
}

func (m *mockTransport) FetchOrders(ctx context.Context, driverID domain.ID) ([]domain.Order, error) {
	m.mu.Lock()
	n := m.fetches
	m.fetches++
	gate := m.gates[n]
	err := m.fetchErr
	var list []domain.Order
	if n < len(m.lists) {
		list = m.lists[n]
	} else if len(m.lists) > 0 {
		list = m.lists[len(m.lists)-1]
	}
	m.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return list, err
}

func (m *mockTransport) SubmitStatus(ctx context.Context, orderID domain.ID, next string, driverID domain.ID) (domain.Result, error) {
	m.mu.Lock()
	m.submits = append(m.submits, submitCall{orderID, next, driverID})
	hook := m.onSubmit
	m.mu.Unlock()
	if hook != nil {
		hook()
	}
	return m.result, m.submitErr
}

func (m *mockTransport) submitCalls() []submitCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]submitCall(nil), m.submits...)
}

func (m *mockTransport) fetchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetches
}

type recorder struct {
	mu      sync.Mutex
	actions []domain.Activity
}

func (r *recorder) RecordAction(_ context.Context, a domain.Activity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, a)
	return nil
}

func order(id domain.ID, status string) domain.Order {
	return domain.Order{ID: id, DriverStatus: status}
}

func signedIn(t *testing.T, b *bus.Bus) *session.Gate {
	t.Helper()
	g := session.NewGate(b)
	g.Set(domain.Identity{DriverID: "d-9"})
	return g
}

func TestRefreshReplacesList(t *testing.T) {
	tr := &mockTransport{lists: [][]domain.Order{
		{order("1", lifecycle.PickMe), order("2", lifecycle.Dropped)},
		{order("2", lifecycle.Dropped)},
	}}
	e := New(Config{Transport: tr, Identity: signedIn(t, nil)})

	require.NoError(t, e.Refresh(context.Background()))
	view := e.Snapshot()
	require.True(t, view.Loaded)
	require.Len(t, view.Items, 2)
	assert.Equal(t, "Mark as Accepted", view.Items[0].Action)
	assert.Empty(t, view.Items[1].Action, "terminal order has no action")

	require.NoError(t, e.Refresh(context.Background()))
	view = e.Snapshot()
	require.Len(t, view.Items, 1, "omitted order is removed")
	assert.Equal(t, domain.ID("2"), view.Items[0].Order.ID)
}

func TestRefreshWithoutIdentityIsSilent(t *testing.T) {
	tr := &mockTransport{}
	e := New(Config{Transport: tr, Identity: session.NewGate(nil)})

	require.NoError(t, e.Refresh(context.Background()))
	assert.Zero(t, tr.fetchCount())
	assert.False(t, e.Snapshot().Loaded)
}

func TestRefreshFailureKeepsListAndAlerts(t *testing.T) {
	b := bus.New()
	alerts, unsub := b.Subscribe(failure.AlertKind, 4)
	defer unsub()

	tr := &mockTransport{lists: [][]domain.Order{{order("1", lifecycle.Coming)}}}
	e := New(Config{Transport: tr, Identity: signedIn(t, b), Bus: b})
	require.NoError(t, e.Refresh(context.Background()))

	tr.fetchErr = errors.New("connection reset")
	err := e.Refresh(context.Background())
	require.Error(t, err)
	assert.Equal(t, failure.Transport, failure.KindOf(err))

	view := e.Snapshot()
	require.Len(t, view.Items, 1)
	assert.Equal(t, lifecycle.Coming, view.Items[0].Order.DriverStatus)

	select {
	case evt := <-alerts:
		assert.Equal(t, failure.Transport, evt.Payload.(failure.Alert).Kind)
	case <-time.After(time.Second):
		t.Fatal("no alert raised")
	}
}

func TestTransitionSubmitsNextWithDriverID(t *testing.T) {
	b := bus.New()
	events, unsub := b.Subscribe("order.", 16)
	defer unsub()

	tr := &mockTransport{
		lists:  [][]domain.Order{{order("7", lifecycle.Coming)}},
		result: domain.Result{Success: true},
	}
	rec := &recorder{}
	e := New(Config{Transport: tr, Identity: signedIn(t, b), Bus: b, Recorder: rec})

	require.NoError(t, e.RequestTransition(context.Background(), "7", lifecycle.Accepted))

	assert.Equal(t, []submitCall{{"7", lifecycle.Coming, "d-9"}}, tr.submitCalls())
	assert.Equal(t, 1, tr.fetchCount(), "success triggers a refresh")
	assert.False(t, e.Updating("7"))

	var kinds []string
	for len(events) > 0 {
		kinds = append(kinds, (<-events).Kind)
	}
	assert.Equal(t, []string{
		bus.KindOrderUpdating,
		bus.KindOrdersUpdated,
		bus.KindOrderUpdating,
		bus.KindOrdersScrollTop,
	}, kinds)

	require.Len(t, rec.actions, 1)
	assert.Equal(t, "ok", rec.actions[0].Outcome)
	assert.Equal(t, lifecycle.Coming, rec.actions[0].Detail)
}

func TestTransitionRefreshFailureStillClearsMark(t *testing.T) {
	b := bus.New()
	alerts, unsub := b.Subscribe(failure.AlertKind, 4)
	defer unsub()

	refreshing := make(chan struct{})
	tr := &mockTransport{
		result:   domain.Result{Success: true},
		fetchErr: errors.New("connection reset"),
		gates:    map[int]chan struct{}{0: refreshing},
	}
	e := New(Config{Transport: tr, Identity: signedIn(t, b), Bus: b})

	done := make(chan error, 1)
	go func() { done <- e.RequestTransition(context.Background(), "7", lifecycle.Accepted) }()

	require.Eventually(t, func() bool { return tr.fetchCount() == 1 }, time.Second, 5*time.Millisecond)
	assert.True(t, e.Updating("7"), "mark holds while the refresh is out")
	close(refreshing)

	select {
	case err := <-done:
		require.NoError(t, err, "the transition itself was accepted")
	case <-time.After(time.Second):
		t.Fatal("transition did not return")
	}
	assert.False(t, e.Updating("7"))
	assert.Equal(t, 1, tr.fetchCount())

	select {
	case evt := <-alerts:
		assert.Equal(t, failure.Transport, evt.Payload.(failure.Alert).Kind)
	case <-time.After(time.Second):
		t.Fatal("no alert raised")
	}
}

func TestTransitionRefreshGoesThroughRefresher(t *testing.T) {
	tr := &mockTransport{result: domain.Result{Success: true}}
	e := New(Config{Transport: tr, Identity: signedIn(t, nil)})

	var calls int
	e.SetRefresher(func(context.Context) error {
		calls++
		assert.True(t, e.Updating("7"))
		return errors.New("subscription stopped")
	})

	require.NoError(t, e.RequestTransition(context.Background(), "7", lifecycle.Accepted))
	assert.Equal(t, 1, calls)
	assert.Zero(t, tr.fetchCount(), "no direct fetch beside the refresher")
	assert.False(t, e.Updating("7"))

	e.SetRefresher(nil)
	require.NoError(t, e.RequestTransition(context.Background(), "7", lifecycle.Accepted))
	assert.Equal(t, 1, tr.fetchCount())
}

func TestTransitionNoopForTerminalAndUnknown(t *testing.T) {
	tr := &mockTransport{result: domain.Result{Success: true}}
	e := New(Config{Transport: tr, Identity: signedIn(t, nil)})

	require.NoError(t, e.RequestTransition(context.Background(), "1", lifecycle.Dropped))
	require.NoError(t, e.RequestTransition(context.Background(), "1", "On hold"))
	assert.Empty(t, tr.submitCalls())
	assert.Zero(t, tr.fetchCount())
}

func TestTransitionWithoutIdentityIsSilent(t *testing.T) {
	tr := &mockTransport{result: domain.Result{Success: true}}
	e := New(Config{Transport: tr, Identity: session.NewGate(nil)})

	require.NoError(t, e.RequestTransition(context.Background(), "1", lifecycle.PickMe))
	assert.Empty(t, tr.submitCalls())
}

func TestTransitionRejectedKeepsStatus(t *testing.T) {
	b := bus.New()
	alerts, unsub := b.Subscribe(failure.AlertKind, 4)
	defer unsub()

	tr := &mockTransport{
		lists:  [][]domain.Order{{order("3", lifecycle.Traveling)}},
		result: domain.Result{Success: false},
	}
	e := New(Config{Transport: tr, Identity: signedIn(t, b), Bus: b})
	require.NoError(t, e.Refresh(context.Background()))

	err := e.RequestTransition(context.Background(), "3", lifecycle.Traveling)
	require.Error(t, err)
	assert.Equal(t, failure.Rejected, failure.KindOf(err))
	assert.False(t, e.Updating("3"))
	assert.Equal(t, 1, tr.fetchCount(), "no refresh after a rejection")
	assert.Equal(t, lifecycle.Traveling, e.Snapshot().Items[0].Order.DriverStatus)

	select {
	case evt := <-alerts:
		assert.Equal(t, failure.Rejected, evt.Payload.(failure.Alert).Kind)
	case <-time.After(time.Second):
		t.Fatal("no alert raised")
	}
}

func TestTransitionTransportErrorIsDistinct(t *testing.T) {
	tr := &mockTransport{submitErr: errors.New("no route to host")}
	e := New(Config{Transport: tr, Identity: signedIn(t, nil)})

	err := e.RequestTransition(context.Background(), "3", lifecycle.PickMe)
	require.Error(t, err)
	assert.Equal(t, failure.Transport, failure.KindOf(err))
	assert.False(t, e.Updating("3"))
}

func TestSecondTransitionWhileUpdatingIsIgnored(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	tr := &mockTransport{
		lists:  [][]domain.Order{{order("5", lifecycle.Accepted)}},
		result: domain.Result{Success: true},
	}
	tr.onSubmit = func() {
		entered <- struct{}{}
		<-release
	}
	e := New(Config{Transport: tr, Identity: signedIn(t, nil)})

	done := make(chan error, 1)
	go func() { done <- e.RequestTransition(context.Background(), "5", lifecycle.Accepted) }()
	<-entered
	require.True(t, e.Updating("5"))

	require.NoError(t, e.RequestTransition(context.Background(), "5", lifecycle.Accepted))
	assert.Len(t, tr.submitCalls(), 1)

	close(release)
	require.NoError(t, <-done)
	assert.Len(t, tr.submitCalls(), 1)
}

func TestRefreshDoesNotClearBusyMark(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	tr := &mockTransport{
		lists:  [][]domain.Order{{order("5", lifecycle.Accepted)}},
		result: domain.Result{Success: true},
	}
	tr.onSubmit = func() {
		entered <- struct{}{}
		<-release
	}
	e := New(Config{Transport: tr, Identity: signedIn(t, nil)})

	done := make(chan error, 1)
	go func() { done <- e.RequestTransition(context.Background(), "5", lifecycle.Accepted) }()
	<-entered

	// A poll lands while the submission is out.
	require.NoError(t, e.Refresh(context.Background()))
	item, ok := e.Snapshot().Find("5")
	require.True(t, ok)
	assert.True(t, item.Busy)

	close(release)
	require.NoError(t, <-done)
	item, _ = e.Snapshot().Find("5")
	assert.False(t, item.Busy)
}

func TestSlowPollCannotOverwriteNewerRefresh(t *testing.T) {
	gate := make(chan struct{})
	tr := &mockTransport{
		lists: [][]domain.Order{
			{order("1", lifecycle.PickMe)},
			{order("1", lifecycle.Accepted)},
		},
		gates: map[int]chan struct{}{0: gate},
	}
	e := New(Config{Transport: tr, Identity: signedIn(t, nil)})

	type outcome struct {
		commit func()
		err    error
	}
	slow := make(chan outcome, 1)
	go func() {
		c, err := e.Fetch(context.Background())
		slow <- outcome{c, err}
	}()
	require.Eventually(t, func() bool { return tr.fetchCount() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, e.Refresh(context.Background()))
	close(gate)
	res := <-slow
	require.NoError(t, res.err)
	res.commit()

	item, ok := e.Snapshot().Find("1")
	require.True(t, ok)
	assert.Equal(t, lifecycle.Accepted, item.Order.DriverStatus)
}

func TestResetDropsListAndInFlightResults(t *testing.T) {
	gate := make(chan struct{})
	tr := &mockTransport{
		lists: [][]domain.Order{{order("1", lifecycle.PickMe)}},
		gates: map[int]chan struct{}{1: gate},
	}
	e := New(Config{Transport: tr, Identity: signedIn(t, nil)})
	require.NoError(t, e.Refresh(context.Background()))

	slow := make(chan func(), 1)
	go func() {
		c, _ := e.Fetch(context.Background())
		slow <- c
	}()
	require.Eventually(t, func() bool { return tr.fetchCount() == 2 }, time.Second, time.Millisecond)

	e.Reset()
	close(gate)
	(<-slow)()

	view := e.Snapshot()
	assert.False(t, view.Loaded)
	assert.Empty(t, view.Items)
}
