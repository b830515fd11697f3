package chat

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
	"github.com/matheus3301/drv/internal/session"
)

type sendCall struct {
	OrderID domain.ID
	Msg     domain.OutgoingMessage
}

type mockTransport struct {
	mu       sync.Mutex
	history  map[domain.ID][]domain.ChatMessage
	fetchErr error
	fetches  int
	sends    []sendCall
	result   domain.Result
	sendErr  error
}

func newMockTransport() *mockTransport {
	return &mockTransport{history: make(map[domain.ID][]domain.ChatMessage)}
}

func (m *mockTransport) FetchMessages(_ context.Context, orderID domain.ID) ([]domain.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches++
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	return append([]domain.ChatMessage(nil), m.history[orderID]...), nil
}

func (m *mockTransport) SendMessage(_ context.Context, orderID domain.ID, msg domain.OutgoingMessage) (domain.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sends = append(m.sends, sendCall{orderID, msg})
	if m.sendErr == nil && m.result.Success {
		m.history[orderID] = append(m.history[orderID], domain.ChatMessage{
			Author: domain.SelfAuthor, Text: msg.Text, CreatedAt: "2026-03-01 10:00:00",
		})
	}
	return m.result, m.sendErr
}

func (m *mockTransport) sendCalls() []sendCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sendCall(nil), m.sends...)
}

func gate(t *testing.T) *session.Gate {
	t.Helper()
	g := session.NewGate(nil)
	g.Set(domain.Identity{DriverID: "d-1"})
	return g
}

func TestClassify(t *testing.T) {
	tests := []struct {
		text string
		want domain.MessageKind
	}{
		{"25.2048,55.2708", domain.KindLocation},
		{"  25.2048, 55.2708  ", domain.KindLocation},
		{"-33.8688,151.2093", domain.KindLocation},
		{"25,55", domain.KindLocation},
		{"hello", domain.KindPlain},
		{"25.2048;55.2708", domain.KindPlain},
		{"1234.5,55.1", domain.KindPlain},
		{"at 25.2,55.2", domain.KindPlain},
		{"", domain.KindPlain},
	}
	for _, tt := range tests {
		if got := Classify(tt.text); got != tt.want {
			t.Errorf("Classify(%q) = %s, want %s", tt.text, got, tt.want)
		}
	}
}

func TestRefreshKeepsBackendOrderAndKeys(t *testing.T) {
	tr := newMockTransport()
	tr.history["4"] = []domain.ChatMessage{
		{Author: "Customer", Text: "where are you?", CreatedAt: "t2"},
		{Author: "self", Text: "25.1,55.3", CreatedAt: "t1"},
	}
	e := New(Config{Transport: tr, Identity: gate(t)})

	require.NoError(t, e.Refresh(context.Background(), "4"))
	view := e.Snapshot("4")
	require.True(t, view.Loaded)
	require.Len(t, view.Entries, 2)
	assert.Equal(t, "t2-0", view.Entries[0].Key)
	assert.Equal(t, "t1-1", view.Entries[1].Key)
	assert.Equal(t, domain.KindPlain, view.Entries[0].Message.Kind)
	assert.Equal(t, domain.KindLocation, view.Entries[1].Message.Kind)
	assert.True(t, view.Entries[1].Message.FromSelf())
}

func TestRefreshFailureKeepsHistoryWithoutAlert(t *testing.T) {
	b := bus.New()
	alerts, unsub := b.Subscribe(failure.AlertKind, 4)
	defer unsub()

	tr := newMockTransport()
	tr.history["4"] = []domain.ChatMessage{{Author: "Customer", Text: "hi", CreatedAt: "t1"}}
	e := New(Config{Transport: tr, Identity: gate(t), Bus: b})
	require.NoError(t, e.Refresh(context.Background(), "4"))

	tr.fetchErr = errors.New("timeout")
	require.Error(t, e.Refresh(context.Background(), "4"))
	assert.Len(t, e.Snapshot("4").Entries, 1)

	select {
	case evt := <-alerts:
		t.Fatalf("chat refresh failure raised alert %+v", evt)
	case <-time.After(30 * time.Millisecond):
	}
}

func TestSendBlankIsLocalNoop(t *testing.T) {
	tr := newMockTransport()
	e := New(Config{Transport: tr, Identity: gate(t)})

	require.NoError(t, e.Send(context.Background(), "4", "   \n\t"))
	assert.Empty(t, tr.sendCalls())
	assert.Zero(t, tr.fetches)
}

func TestSendWithoutIdentityIsSilent(t *testing.T) {
	tr := newMockTransport()
	e := New(Config{Transport: tr, Identity: session.NewGate(nil)})

	require.NoError(t, e.Send(context.Background(), "4", "hello"))
	assert.Empty(t, tr.sendCalls())
}

func TestSendSuccessClearsDraftAndRefreshes(t *testing.T) {
	b := bus.New()
	events, unsub := b.Subscribe("chat.", 8)
	defer unsub()

	tr := newMockTransport()
	tr.result = domain.Result{Success: true}
	e := New(Config{Transport: tr, Identity: gate(t), Bus: b})
	e.SetDraft("4", "  25.2048, 55.2708 ")

	require.NoError(t, e.Send(context.Background(), "4", "  25.2048, 55.2708 "))

	calls := tr.sendCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, domain.OutgoingMessage{Author: "d-1", Text: "25.2048, 55.2708", Kind: domain.KindLocation}, calls[0].Msg)

	view := e.Snapshot("4")
	assert.Empty(t, view.Draft)
	assert.False(t, view.ComposeFailed)
	require.Len(t, view.Entries, 1, "history comes from the refresh, not a local append")

	var grew int
	for len(events) > 0 {
		if (<-events).Kind == bus.KindChatGrew {
			grew++
		}
	}
	assert.Equal(t, 1, grew)
}

func TestSendRejectedKeepsDraftAndFlags(t *testing.T) {
	b := bus.New()
	alerts, unsub := b.Subscribe(failure.AlertKind, 4)
	defer unsub()

	tr := newMockTransport()
	tr.result = domain.Result{Success: false}
	e := New(Config{Transport: tr, Identity: gate(t), Bus: b})
	e.SetDraft("4", "on my way")

	err := e.Send(context.Background(), "4", "on my way")
	require.Error(t, err)
	assert.Equal(t, failure.Rejected, failure.KindOf(err))

	view := e.Snapshot("4")
	assert.Equal(t, "on my way", view.Draft)
	assert.True(t, view.ComposeFailed)
	assert.Empty(t, view.Entries, "nothing appended speculatively")
	assert.Zero(t, tr.fetches)

	select {
	case evt := <-alerts:
		assert.Equal(t, failure.Rejected, evt.Payload.(failure.Alert).Kind)
	case <-time.After(time.Second):
		t.Fatal("no alert raised")
	}
}

func TestSendTransportErrorThenRetry(t *testing.T) {
	tr := newMockTransport()
	tr.sendErr = errors.New("network down")
	e := New(Config{Transport: tr, Identity: gate(t)})

	err := e.Send(context.Background(), "4", "hello")
	require.Error(t, err)
	assert.Equal(t, failure.Transport, failure.KindOf(err))
	assert.Equal(t, "hello", e.Snapshot("4").Draft)

	tr.mu.Lock()
	tr.sendErr = nil
	tr.result = domain.Result{Success: true}
	tr.mu.Unlock()

	require.NoError(t, e.Send(context.Background(), "4", e.Snapshot("4").Draft))
	view := e.Snapshot("4")
	assert.Empty(t, view.Draft)
	assert.False(t, view.ComposeFailed)
	assert.Len(t, view.Entries, 1)
}

func TestSendSucceedsWhenRefreshFails(t *testing.T) {
	b := bus.New()
	alerts, unsub := b.Subscribe(failure.AlertKind, 4)
	defer unsub()

	tr := newMockTransport()
	tr.result = domain.Result{Success: true}
	tr.fetchErr = errors.New("timeout")
	e := New(Config{Transport: tr, Identity: gate(t), Bus: b})
	e.SetDraft("4", "at the gate")

	require.NoError(t, e.Send(context.Background(), "4", "at the gate"))
	assert.Equal(t, 1, tr.fetches)

	view := e.Snapshot("4")
	assert.Empty(t, view.Draft)
	assert.False(t, view.ComposeFailed)
	assert.Empty(t, view.Entries)

	select {
	case evt := <-alerts:
		t.Fatalf("refresh failure after a sent message raised alert %+v", evt)
	case <-time.After(30 * time.Millisecond):
	}
}

func TestSendRefreshGoesThroughRefresher(t *testing.T) {
	tr := newMockTransport()
	tr.result = domain.Result{Success: true}
	e := New(Config{Transport: tr, Identity: gate(t)})

	var refreshed []domain.ID
	e.SetRefresher(func(_ context.Context, orderID domain.ID) error {
		refreshed = append(refreshed, orderID)
		return nil
	})

	require.NoError(t, e.Send(context.Background(), "4", "hello"))
	assert.Equal(t, []domain.ID{"4"}, refreshed)
	assert.Zero(t, tr.fetches)
}

func TestGrewOnlyWhenLengthChanges(t *testing.T) {
	b := bus.New()
	events, unsub := b.Subscribe(bus.KindChatGrew, 8)
	defer unsub()

	tr := newMockTransport()
	tr.history["4"] = []domain.ChatMessage{{Author: "Customer", Text: "hi", CreatedAt: "t1"}}
	e := New(Config{Transport: tr, Identity: gate(t), Bus: b})

	require.NoError(t, e.Refresh(context.Background(), "4"))
	require.NoError(t, e.Refresh(context.Background(), "4"))
	assert.Len(t, events, 1)

	tr.mu.Lock()
	tr.history["4"] = append(tr.history["4"], domain.ChatMessage{Author: "Customer", Text: "?", CreatedAt: "t2"})
	tr.mu.Unlock()
	require.NoError(t, e.Refresh(context.Background(), "4"))
	assert.Len(t, events, 2)
}

func TestDraftsArePerOrder(t *testing.T) {
	e := New(Config{Transport: newMockTransport(), Identity: gate(t)})
	e.SetDraft("1", "first")
	e.SetDraft("2", "second")

	assert.Equal(t, "first", e.Snapshot("1").Draft)
	assert.Equal(t, "second", e.Snapshot("2").Draft)

	e.Forget("1")
	assert.Empty(t, e.Snapshot("1").Draft)
	e.Reset()
	assert.Empty(t, e.Snapshot("2").Draft)
}

func TestResetDiscardsInFlightFetch(t *testing.T) {
	tr := newMockTransport()
	tr.history["4"] = []domain.ChatMessage{{Author: "Customer", Text: "hi", CreatedAt: "t1"}}
	e := New(Config{Transport: tr, Identity: gate(t)})

	commit, err := e.FetchFunc("4")(context.Background())
	require.NoError(t, err)
	e.Reset()
	commit()

	assert.False(t, e.Snapshot("4").Loaded)
}
