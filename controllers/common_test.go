package controllers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/dfalbuq/cardapio-api/cache"
	"github.com/dfalbuq/cardapio-api/events"
	"github.com/dfalbuq/cardapio-api/models"
	"github.com/dfalbuq/cardapio-api/services"
	"github.com/dfalbuq/cardapio-api/utils"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	utils.InitLogger()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	err = db.AutoMigrate(
		&models.Restaurant{}, &models.User{}, &models.MenuCategory{},
		&models.Product{}, &models.Order{}, &models.OrderProduct{},
	)
	assert.NoError(t, err)

	// The shared-cache DSN keeps rows across opens; start each test clean.
	for _, table := range []string{"order_products", "orders", "products", "menu_categories", "users", "restaurants"} {
		db.Exec("DELETE FROM " + table)
	}
	return db
}

func testServices(db *gorm.DB) (*services.StatusService, *cache.Cache, *events.Bus) {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	bus := events.NewBus(events.NewHub(log), nil, log)
	c := cache.New(nil, time.Minute, log)
	return services.NewStatusService(db, bus, c, log), c, bus
}

// seedMenu creates one restaurant with a category and two active products
// (10.00 and 5.50).
func seedMenu(t *testing.T, db *gorm.DB) (models.Restaurant, []models.Product) {
	t.Helper()

	restaurant := models.Restaurant{Slug: "cantina", Name: "Cantina da Praca", IsActive: true, IsOpen: true}
	assert.NoError(t, db.Create(&restaurant).Error)

	category := models.MenuCategory{RestaurantID: restaurant.ID, Name: "Pratos", IsActive: true}
	assert.NoError(t, db.Create(&category).Error)

	products := []models.Product{
		{RestaurantID: restaurant.ID, CategoryID: category.ID, Name: "Feijoada", Price: 10.00, IsActive: true},
		{RestaurantID: restaurant.ID, CategoryID: category.ID, Name: "Suco de laranja", Price: 5.50, IsActive: true},
	}
	assert.NoError(t, db.Create(&products).Error)
	return restaurant, products
}

// asStaff fakes the auth middleware for routes that read the caller's
// identity from the context.
func asStaff(restaurantID, userID uint, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("restaurant_id", restaurantID)
		c.Set("user_id", userID)
		c.Set("role", role)
		c.Next()
	}
}

func doJSON(t *testing.T, router *gin.Engine, method, url string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Buffer
	if payload != nil {
		raw, err := json.Marshal(payload)
		assert.NoError(t, err)
		body = bytes.NewBuffer(raw)
	} else {
		body = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, url, body)
	assert.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}
