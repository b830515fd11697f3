package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matheus3301/drv/internal/domain"
	"github.com/matheus3301/drv/internal/failure"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	c, err := NewClient(ClientConfig{BaseURL: server.URL + "/api", ChatBaseURL: server.URL + "/api/driver/"})
	require.NoError(t, err)
	return c
}

func TestNewClientValidatesURLs(t *testing.T) {
	_, err := NewClient(ClientConfig{ChatBaseURL: "https://x"})
	assert.Error(t, err)
	_, err = NewClient(ClientConfig{BaseURL: "ftp://x", ChatBaseURL: "https://x"})
	assert.Error(t, err)
	_, err = NewClient(ClientConfig{BaseURL: "https://x/api/", ChatBaseURL: "https://y"})
	assert.NoError(t, err)
}

func TestLogin(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/driverLogin", r.URL.Path)
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["password"] != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"success":false,"message":"Invalid credentials"}`)
			return
		}
		_, _ = io.WriteString(w, `{"success":true,"user":{"id":31,"name":"Usma"}}`)
	})

	id, err := c.Login(context.Background(), "usma@tadhem.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, domain.Identity{DriverID: "31", Name: "Usma"}, id)

	_, err = c.Login(context.Background(), "usma@tadhem.com", "wrong")
	require.Error(t, err)
	assert.Equal(t, failure.Rejected, failure.KindOf(err))
	assert.Contains(t, err.Error(), "Invalid credentials")
}

func TestFetchOrdersMapsFields(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/driverOrders", r.URL.Path)
		assert.Equal(t, "31", r.URL.Query().Get("user_id"))
		_, _ = io.WriteString(w, `{"orders":[{
			"id": 501, "driver_status": "Pick me", "staff_name": "Aisha",
			"time_slot_value": "10:00-12:00", "latitude": 25.2, "longitude": "55.3",
			"address": "Marina", "staff_phone": "+971500000000", "staff_whatsapp": "+971500000001",
			"city": "Dubai", "district": "JBR", "buildingName": "Tower 2", "flatVilla": "1204", "street": "The Walk"
		}]}`)
	})

	orders, err := c.FetchOrders(context.Background(), "31")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, domain.Order{
		ID: "501", DriverStatus: "Pick me", CustomerName: "Aisha", TimeSlot: "10:00-12:00",
		Address: "Marina", City: "Dubai", District: "JBR", Building: "Tower 2", FlatVilla: "1204",
		Street: "The Walk", Phone: "+971500000000", WhatsApp: "+971500000001",
		Latitude: "25.2", Longitude: "55.3",
	}, orders[0])
}

func TestFetchOrdersNullIsEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"orders":null}`)
	})
	orders, err := c.FetchOrders(context.Background(), "31")
	require.NoError(t, err)
	assert.NotNil(t, orders)
	assert.Empty(t, orders)
}

func TestFetchClassifiesTransportFailures(t *testing.T) {
	tests := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = io.WriteString(w, "<html>bad gateway</html>")
		},
		"malformed json": func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"orders":[`)
		},
		"empty body": func(w http.ResponseWriter, r *http.Request) {},
		"json error status": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, `{"orders":[]}`)
		},
	}
	for name, handler := range tests {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, handler)
			_, err := c.FetchOrders(context.Background(), "31")
			require.Error(t, err)
			assert.Equal(t, failure.Transport, failure.KindOf(err))
		})
	}
}

func TestNetworkErrorIsTransport(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	c, err := NewClient(ClientConfig{BaseURL: url, ChatBaseURL: url})
	require.NoError(t, err)
	_, err = c.FetchNotifications(context.Background(), "31")
	require.Error(t, err)
	assert.Equal(t, failure.Transport, failure.KindOf(err))
}

func TestSubmitStatusAlwaysSendsDriverID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/driverOrderStatusUpdate/501", r.URL.Path)
		assert.Equal(t, "Arrived for pick", r.URL.Query().Get("status"))
		assert.Equal(t, "31", r.URL.Query().Get("user_id"))
		_, _ = io.WriteString(w, `{"success":false,"message":"order reassigned"}`)
	})

	res, err := c.SubmitStatus(context.Background(), "501", "Arrived for pick", "31")
	require.NoError(t, err)
	assert.Equal(t, domain.Result{Success: false, Message: "order reassigned"}, res)
}

func TestSubmitStatusWithoutVerdictIsAccepted(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"message":"updated"}`)
	})
	res, err := c.SubmitStatus(context.Background(), "501", "Coming", "31")
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestChatRoundTrip(t *testing.T) {
	var posted chatRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/driver/order/501/chats", r.URL.Path)
		switch r.Method {
		case http.MethodGet:
			_, _ = io.WriteString(w, `[
				{"user":"Aisha","text":"Gate 3","created_at":"2026-03-01T10:00:00Z"},
				{"user":"self","text":"25.1,55.2","created_at":"2026-03-01T10:01:00Z","type":"Location"}
			]`)
		case http.MethodPost:
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&posted))
			_, _ = io.WriteString(w, `{"success":true}`)
		}
	})

	msgs, err := c.FetchMessages(context.Background(), "501")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "Aisha", msgs[0].Author)
	assert.True(t, msgs[1].FromSelf())

	res, err := c.SendMessage(context.Background(), "501", domain.OutgoingMessage{
		Author: "31", Text: "25.1,55.2", Kind: domain.KindLocation,
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, chatRequest{UserID: "31", Text: "25.1,55.2", Type: "Location"}, posted)

	_, err = c.SendMessage(context.Background(), "501", domain.OutgoingMessage{Author: "31", Text: "hi", Kind: domain.KindPlain})
	require.NoError(t, err)
	assert.Equal(t, "", posted.Type)
}

func TestSendMessageWithoutVerdictIsRefused(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{}`)
	})
	res, err := c.SendMessage(context.Background(), "501", domain.OutgoingMessage{Author: "31", Text: "hi"})
	require.NoError(t, err)
	assert.False(t, res.Success)
}

func TestFetchNotifications(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/notification", r.URL.Path)
		assert.Equal(t, "31", r.URL.Query().Get("user_id"))
		_, _ = io.WriteString(w, `{"notifications":[{"id":9,"title":"Shift","body":"Starts at 8","created_at":"2026-03-01"}]}`)
	})

	notes, err := c.FetchNotifications(context.Background(), "31")
	require.NoError(t, err)
	assert.Equal(t, []domain.Notification{{ID: "9", Title: "Shift", Body: "Starts at 8", CreatedAt: "2026-03-01"}}, notes)
}
