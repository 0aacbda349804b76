// Package tracker implements the client side of status synchronization: one
// reconciler shared by the polling and push-subscription consumers, so both
// refresh strategies apply updates through the same last-write-wins rule.
package tracker

import (
	"sync"
	"time"
)

// OrderSnapshot is the per-order state a consumer keeps locally.
type OrderSnapshot struct {
	OrderID   uint      `json:"order_id"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Reconciler merges order updates from any source (poll results, push
// events) into local state. For each order id the more recently updated
// record wins, so replays and duplicates are harmless.
type Reconciler struct {
	mu     sync.RWMutex
	orders map[uint]OrderSnapshot
}

func NewReconciler() *Reconciler {
	return &Reconciler{orders: make(map[uint]OrderSnapshot)}
}

// Apply merges one snapshot and reports whether local state changed. A
// snapshot older than (or identical to) the one already held is dropped.
func (r *Reconciler) Apply(snap OrderSnapshot) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.orders[snap.OrderID]
	if ok && !snap.UpdatedAt.After(current.UpdatedAt) {
		return false
	}
	r.orders[snap.OrderID] = snap
	return true
}

// ApplyAll merges a poll result and returns how many orders changed.
func (r *Reconciler) ApplyAll(snaps []OrderSnapshot) int {
	changed := 0
	for _, snap := range snaps {
		if r.Apply(snap) {
			changed++
		}
	}
	return changed
}

// Get returns the held snapshot for an order id.
func (r *Reconciler) Get(orderID uint) (OrderSnapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snap, ok := r.orders[orderID]
	return snap, ok
}

// Snapshot returns a copy of all held orders.
func (r *Reconciler) Snapshot() []OrderSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]OrderSnapshot, 0, len(r.orders))
	for _, snap := range r.orders {
		out = append(out, snap)
	}
	return out
}

// HasActive reports whether any held order is still in a non-terminal
// status. The poller shortens its interval while this is true.
func (r *Reconciler) HasActive(terminal func(status string) bool) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, snap := range r.orders {
		if !terminal(snap.Status) {
			return true
		}
	}
	return false
}
