package events

import (
	"fmt"
	"time"
)

// Event names carried on the logical channels.
const (
	EventNewOrder     = "new-order"
	EventUpdateOrder  = "update-order"
	EventStatusUpdate = "status-update"
)

// RestaurantChannel is consumed by the back-office dashboard of one tenant.
func RestaurantChannel(slug string) string {
	return "restaurant-" + slug
}

// OrderChannel is consumed by the customer tracking page of one order.
func OrderChannel(orderID uint) string {
	return fmt.Sprintf("order-%d", orderID)
}

// Message is the wire envelope delivered to websocket subscribers and
// relayed through redis between instances.
type Message struct {
	Channel string      `json:"channel"`
	Event   string      `json:"event"`
	Data    interface{} `json:"data"`
	Origin  string      `json:"origin,omitempty"`
}

// StatusUpdate is the payload on order channels: just enough for the
// tracking page to reconcile, with UpdatedAt as the last-write-wins key.
type StatusUpdate struct {
	OrderID   uint      `json:"order_id"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}
