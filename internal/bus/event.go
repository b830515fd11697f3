package bus

import "time"

// Event kinds published by the daemon. Subscribers filter on prefixes such
// as "order." or "session.".
const (
	KindStatusChanged   = "session.status_changed"
	KindIdentityChanged = "session.identity_changed"
	KindOrdersUpdated   = "order.list_updated"
	KindOrderUpdating   = "order.updating"
	KindOrdersScrollTop = "order.scroll_top"
	KindChatUpdated     = "chat.updated"
	KindChatGrew        = "chat.grew"
	KindNotesUpdated    = "notification.list_updated"
)

// Event is a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}
