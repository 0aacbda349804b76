package models

import (
	"fmt"
	"time"
)

// Order status wire values.
const (
	OrderStatusPending          = "PENDING"
	OrderStatusPaymentConfirmed = "PAYMENT_CONFIRMED"
	OrderStatusInPreparation    = "IN_PREPARATION"
	OrderStatusFinished         = "FINISHED"
	OrderStatusPaymentFailed    = "PAYMENT_FAILED"
)

// Consumption method wire values. DINE_IN is consumed on premises (no
// address), TAKEAWAY is delivered (address required). The labels are kept
// as-is for wire compatibility even though they read oddly.
const (
	ConsumptionDineIn   = "DINE_IN"
	ConsumptionTakeaway = "TAKEAWAY"
)

// transitions is the authoritative order state machine. PAYMENT_FAILED and
// FINISHED are terminal; nothing ever re-enters PENDING.
var transitions = map[string][]string{
	OrderStatusPending:          {OrderStatusPaymentConfirmed, OrderStatusPaymentFailed},
	OrderStatusPaymentConfirmed: {OrderStatusInPreparation},
	OrderStatusInPreparation:    {OrderStatusFinished},
	OrderStatusFinished:         {},
	OrderStatusPaymentFailed:    {},
}

// ValidStatus reports whether s is one of the known order statuses.
func ValidStatus(s string) bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// TerminalStatus reports whether no transition is defined out of s.
func TerminalStatus(s string) bool {
	next, ok := transitions[s]
	return ok && len(next) == 0
}

// ValidConsumptionMethod reports whether m is a known consumption method.
func ValidConsumptionMethod(m string) bool {
	return m == ConsumptionDineIn || m == ConsumptionTakeaway
}

type Order struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	RestaurantID      uint       `gorm:"not null;index" json:"restaurant_id"`
	Restaurant        Restaurant `gorm:"foreignKey:RestaurantID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	CustomerName      string     `gorm:"type:varchar(255);not null" json:"customer_name"`
	CustomerCPF       string     `gorm:"type:varchar(11);not null;index" json:"customer_cpf"`
	CustomerPhone     string     `gorm:"type:varchar(20)" json:"customer_phone"`
	ConsumptionMethod string     `gorm:"type:varchar(20);not null" json:"consumption_method"`
	DeliveryAddress   string     `gorm:"type:varchar(255)" json:"delivery_address,omitempty"`
	DeliveryReference string     `gorm:"type:varchar(255)" json:"delivery_reference,omitempty"`
	// Total is computed once at intake from the snapshotted line prices and
	// never re-derived from live product prices.
	Total     float64   `gorm:"type:decimal(10,2);not null;default:0.00" json:"total"`
	Status    string    `gorm:"type:varchar(20);not null;default:'PENDING'" json:"status"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`

	Items []OrderProduct `gorm:"foreignKey:OrderID" json:"items"`
}

// ChannelName returns the pub/sub channel the customer tracking page for
// this order listens on.
func (o *Order) ChannelName() string {
	return fmt.Sprintf("order-%d", o.ID)
}
