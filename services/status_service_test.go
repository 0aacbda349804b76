package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dfalbuq/cardapio-api/cache"
	"github.com/dfalbuq/cardapio-api/events"
	"github.com/dfalbuq/cardapio-api/models"
	"github.com/dfalbuq/cardapio-api/utils"
)

func setupStatusService(t *testing.T) (*StatusService, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_pragma=foreign_keys(1)"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	assert.NoError(t, err)

	err = db.AutoMigrate(&models.Restaurant{}, &models.MenuCategory{}, &models.Product{}, &models.Order{}, &models.OrderProduct{})
	assert.NoError(t, err)

	// Fresh tables per test; the shared-cache DSN keeps state across opens.
	db.Exec("DELETE FROM order_products")
	db.Exec("DELETE FROM orders")
	db.Exec("DELETE FROM restaurants")

	log := testLogger()
	bus := events.NewBus(events.NewHub(log), nil, log)
	c := cache.New(nil, time.Minute, log)
	return NewStatusService(db, bus, c, log), db
}

func seedOrder(t *testing.T, db *gorm.DB, status string) *models.Order {
	t.Helper()

	restaurant := models.Restaurant{Slug: "cantina", Name: "Cantina da Praca"}
	assert.NoError(t, db.Create(&restaurant).Error)

	order := models.Order{
		RestaurantID:      restaurant.ID,
		CustomerName:      "Ana Souza",
		CustomerCPF:       "11144477735",
		ConsumptionMethod: models.ConsumptionDineIn,
		Total:             25.50,
		Status:            status,
	}
	assert.NoError(t, db.Create(&order).Error)
	return &order
}

func TestTransitionHappyPath(t *testing.T) {
	ss, db := setupStatusService(t)
	order := seedOrder(t, db, models.OrderStatusPending)

	updated, applied, err := ss.Transition(order.ID, models.OrderStatusPaymentConfirmed)
	assert.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, models.OrderStatusPaymentConfirmed, updated.Status)

	var stored models.Order
	assert.NoError(t, db.First(&stored, order.ID).Error)
	assert.Equal(t, models.OrderStatusPaymentConfirmed, stored.Status)
}

func TestTransitionDuplicateIsNoop(t *testing.T) {
	ss, db := setupStatusService(t)
	order := seedOrder(t, db, models.OrderStatusPaymentConfirmed)

	updated, applied, err := ss.Transition(order.ID, models.OrderStatusPaymentConfirmed)
	assert.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, models.OrderStatusPaymentConfirmed, updated.Status)
}

func TestTransitionRejectsIllegalMove(t *testing.T) {
	ss, db := setupStatusService(t)
	order := seedOrder(t, db, models.OrderStatusFinished)

	_, applied, err := ss.Transition(order.ID, models.OrderStatusPaymentConfirmed)
	assert.False(t, applied)
	assert.Error(t, err)

	var appErr *utils.AppError
	assert.ErrorAs(t, err, &appErr)
	assert.Equal(t, 400, appErr.Code)

	// Row is untouched.
	var stored models.Order
	assert.NoError(t, db.First(&stored, order.ID).Error)
	assert.Equal(t, models.OrderStatusFinished, stored.Status)
}

func TestTransitionUnknownStatus(t *testing.T) {
	ss, db := setupStatusService(t)
	order := seedOrder(t, db, models.OrderStatusPending)

	_, _, err := ss.Transition(order.ID, "SHIPPED")
	assert.Error(t, err)

	var stored models.Order
	assert.NoError(t, db.First(&stored, order.ID).Error)
	assert.Equal(t, models.OrderStatusPending, stored.Status)
}

func TestTransitionOrderNotFound(t *testing.T) {
	ss, _ := setupStatusService(t)

	_, _, err := ss.Transition(99999, models.OrderStatusPaymentConfirmed)
	var appErr *utils.AppError
	assert.ErrorAs(t, err, &appErr)
	assert.Equal(t, 404, appErr.Code)
}

func TestExpirePending(t *testing.T) {
	ss, db := setupStatusService(t)

	stale := seedOrder(t, db, models.OrderStatusPending)
	db.Model(stale).Update("created_at", time.Now().Add(-time.Hour))

	fresh := models.Order{
		RestaurantID:      stale.RestaurantID,
		CustomerName:      "Bruno Lima",
		CustomerCPF:       "52998224725",
		ConsumptionMethod: models.ConsumptionDineIn,
		Status:            models.OrderStatusPending,
	}
	assert.NoError(t, db.Create(&fresh).Error)

	confirmed := models.Order{
		RestaurantID:      stale.RestaurantID,
		CustomerName:      "Carla Dias",
		CustomerCPF:       "11144477735",
		ConsumptionMethod: models.ConsumptionTakeaway,
		DeliveryAddress:   "Rua das Flores 10",
		Status:            models.OrderStatusPaymentConfirmed,
	}
	assert.NoError(t, db.Create(&confirmed).Error)
	db.Model(&confirmed).Update("created_at", time.Now().Add(-time.Hour))

	assert.Equal(t, 1, ss.ExpirePending(30*time.Minute))

	var got models.Order
	db.First(&got, stale.ID)
	assert.Equal(t, models.OrderStatusPaymentFailed, got.Status)

	db.First(&got, fresh.ID)
	assert.Equal(t, models.OrderStatusPending, got.Status)

	db.First(&got, confirmed.ID)
	assert.Equal(t, models.OrderStatusPaymentConfirmed, got.Status)
}
