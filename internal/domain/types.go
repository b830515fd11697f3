// Package domain holds the value types shared by the sync engines, the
// backend transport and the daemon API.
package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// ID is an opaque backend identifier. The backend emits ids as JSON
// numbers or strings; both decode to the same textual form.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode id %s: %w", data, err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Identity is the authenticated driver.
type Identity struct {
	DriverID ID     `json:"driver_id"`
	Name     string `json:"name,omitempty"`
}

// Order is a delivery assignment as reported by the backend. DriverStatus
// is kept verbatim, including values outside the known lifecycle.
type Order struct {
	ID           ID     `json:"id"`
	DriverStatus string `json:"driver_status"`
	CustomerName string `json:"customer_name,omitempty"`
	TimeSlot     string `json:"time_slot,omitempty"`
	Address      string `json:"address,omitempty"`
	City         string `json:"city,omitempty"`
	District     string `json:"district,omitempty"`
	Building     string `json:"building,omitempty"`
	FlatVilla    string `json:"flat_villa,omitempty"`
	Street       string `json:"street,omitempty"`
	Phone        string `json:"phone,omitempty"`
	WhatsApp     string `json:"whatsapp,omitempty"`
	Latitude     string `json:"latitude,omitempty"`
	Longitude    string `json:"longitude,omitempty"`
}

// HasLocation reports whether the order carries map coordinates.
func (o Order) HasLocation() bool {
	return o.Latitude != "" && o.Longitude != ""
}

// MessageKind distinguishes plain chat text from shared coordinates.
type MessageKind string

const (
	KindPlain    MessageKind = "plain"
	KindLocation MessageKind = "location"
)

// SelfAuthor marks messages written by the signed-in driver.
const SelfAuthor = "self"

// ChatMessage is one entry of an order's chat history.
type ChatMessage struct {
	Author    string      `json:"author"`
	Text      string      `json:"text"`
	Kind      MessageKind `json:"kind"`
	CreatedAt string      `json:"created_at"`
}

// FromSelf reports whether the driver wrote the message.
func (m ChatMessage) FromSelf() bool { return m.Author == SelfAuthor }

// Key returns the display key for the message at position index.
func (m ChatMessage) Key(index int) string {
	return fmt.Sprintf("%s-%d", m.CreatedAt, index)
}

// OutgoingMessage is a chat message submitted by the driver.
type OutgoingMessage struct {
	Author ID
	Text   string
	Kind   MessageKind
}

// Notification is a read-only notice for the driver.
type Notification struct {
	ID        ID     `json:"id"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	CreatedAt string `json:"created_at"`
}

// Result is the backend's business outcome for a mutation.
type Result struct {
	Success bool
	Message string
}

// Activity is one driver-initiated mutation and its outcome.
type Activity struct {
	ID       string    `json:"id"`
	Kind     string    `json:"kind"`
	OrderID  ID        `json:"order_id"`
	Detail   string    `json:"detail"`
	Outcome  string    `json:"outcome"`
	Error    string    `json:"error,omitempty"`
	Occurred time.Time `json:"occurred"`
}

// Activity kinds.
const (
	ActivityStatus = "status"
	ActivityChat   = "chat"
)
