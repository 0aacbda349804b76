package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/dfalbuq/cardapio-api/cache"
	"github.com/dfalbuq/cardapio-api/events"
	"github.com/dfalbuq/cardapio-api/models"
	"github.com/dfalbuq/cardapio-api/utils"
)

// StatusService is the single write path for order status changes. Webhook,
// staff action and the order monitor all go through Transition, so the
// transition table, the cache invalidation and the fan-out live in one
// place.
type StatusService struct {
	db    *gorm.DB
	bus   *events.Bus
	cache *cache.Cache
	log   *logrus.Logger
}

func NewStatusService(db *gorm.DB, bus *events.Bus, c *cache.Cache, log *logrus.Logger) *StatusService {
	return &StatusService{db: db, bus: bus, cache: c, log: log}
}

// Transition moves an order to the target status if the state machine allows
// it from the order's current status. The UPDATE is conditional on the
// expected source status, so a duplicate webhook delivery (or a concurrent
// writer that got there first) matches zero rows and becomes a no-op instead
// of a double transition.
//
// Returns the refreshed order and whether a row actually changed. Reaching
// the target status via another writer is reported as applied=false with a
// nil error; an illegal transition returns a ValidationError.
func (ss *StatusService) Transition(orderID uint, to string) (*models.Order, bool, error) {
	if !models.ValidStatus(to) {
		return nil, false, utils.NewValidationError("unknown order status %q", to)
	}

	var order models.Order
	if err := ss.db.Preload("Items").Preload("Restaurant").First(&order, orderID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, false, utils.NewNotFoundError("order %d not found", orderID)
		}
		return nil, false, err
	}

	if order.Status == to {
		// Replayed event; already there.
		return &order, false, nil
	}

	if !models.CanTransition(order.Status, to) {
		return &order, false, utils.NewValidationError(
			"order %d cannot move from %s to %s", orderID, order.Status, to)
	}

	res := ss.db.Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, order.Status).
		Update("status", to)
	if res.Error != nil {
		return &order, false, res.Error
	}
	if res.RowsAffected == 0 {
		// Lost the race to another writer; the winner already fanned out.
		ss.log.Infof("status: order %d transition %s -> %s skipped, row changed underneath", orderID, order.Status, to)
		ss.db.Preload("Items").Preload("Restaurant").First(&order, orderID)
		return &order, false, nil
	}

	if err := ss.db.Preload("Items").Preload("Restaurant").First(&order, orderID).Error; err != nil {
		return nil, false, err
	}

	ss.log.Infof("status: order %d moved to %s", order.ID, order.Status)
	ss.FanOut(&order, events.EventUpdateOrder)
	return &order, true, nil
}

// FanOut publishes one event to the restaurant channel (full order for the
// dashboard) and one to the order channel (id + status + timestamp for the
// tracking page), and drops the cached views the change staled. Best-effort
// relative to the status update itself.
func (ss *StatusService) FanOut(order *models.Order, restaurantEvent string) {
	ss.bus.Publish(events.RestaurantChannel(order.Restaurant.Slug), restaurantEvent, order)
	ss.bus.Publish(order.ChannelName(), events.EventStatusUpdate, events.StatusUpdate{
		OrderID:   order.ID,
		Status:    order.Status,
		UpdatedAt: order.UpdatedAt,
	})

	ss.cache.Invalidate(context.Background(),
		cache.CustomerOrdersKey(order.CustomerCPF),
		cache.StorefrontKey(order.Restaurant.Slug),
	)
}

// ExpirePending fails every PENDING order created before the cutoff. Used by
// the order monitor; each expiry goes through the normal transition path so
// consumers hear about it.
func (ss *StatusService) ExpirePending(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	var stale []models.Order
	if err := ss.db.
		Where("status = ? AND created_at < ?", models.OrderStatusPending, cutoff).
		Find(&stale).Error; err != nil {
		ss.log.Errorf("status: scan stale pending orders: %v", err)
		return 0
	}

	expired := 0
	for _, order := range stale {
		if _, applied, err := ss.Transition(order.ID, models.OrderStatusPaymentFailed); err != nil {
			ss.log.Errorf("status: expire order %d: %v", order.ID, err)
		} else if applied {
			expired++
		}
	}
	if expired > 0 {
		ss.log.Infof("status: expired %d stale pending orders", expired)
	}
	return expired
}
