package api

import "github.com/matheus3301/drv/internal/domain"

// Watcher marks views visible while a watch stream is open.
type Watcher interface {
	WatchOrders() (release func())
	WatchNotifications() (release func())
	WatchChat(orderID domain.ID) (release func())
}

// Identity yields the signed-in driver.
type Identity interface {
	Current() (domain.Identity, bool)
}
