package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/dfalbuq/cardapio-api/cache"
	"github.com/dfalbuq/cardapio-api/config"
	"github.com/dfalbuq/cardapio-api/events"
	"github.com/dfalbuq/cardapio-api/models"
	"github.com/dfalbuq/cardapio-api/router"
	"github.com/dfalbuq/cardapio-api/services"
	"github.com/dfalbuq/cardapio-api/utils"
)

func TestMain(m *testing.M) {
	utils.InitLogger()
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// TestEndToEndIntegration walks the whole customer journey:
// 1. Register a restaurant + admin, login for a token
// 2. Build the menu (category + products)
// 3. Customer places an order on the public storefront
// 4. Open a checkout session against a fake provider
// 5. Provider webhook confirms the payment
// 6. Staff moves the order through preparation to finished
// 7. Customer polling sees the final status
func TestEndToEndIntegration(t *testing.T) {
	db := setupIntegrationDB()

	provider := fakeProvider(t)
	defer provider.Close()

	r, gateway := buildIntegrationRouter(db, provider.URL)

	token := registerAndLogin(t, r)
	productIDs := buildMenu(t, r, token)
	orderID := placeOrder(t, r, productIDs)
	openCheckout(t, r, orderID, productIDs)
	confirmPayment(t, r, gateway, orderID)
	prepareAndFinish(t, r, token, orderID)
	checkFinalStatus(t, r, orderID)
}

func setupIntegrationDB() *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		log.Fatalf("failed to open in-memory sqlite: %v", err)
	}

	err = db.AutoMigrate(
		&models.Restaurant{},
		&models.User{},
		&models.MenuCategory{},
		&models.Product{},
		&models.Order{},
		&models.OrderProduct{},
	)
	if err != nil {
		log.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func buildIntegrationRouter(db *gorm.DB, gatewayURL string) (*gin.Engine, *services.GatewayService) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	bus := events.NewBus(events.NewHub(logger), nil, logger)
	c := cache.New(nil, time.Minute, logger)
	status := services.NewStatusService(db, bus, c, logger)
	gateway := services.NewGatewayService(config.GatewayConfig{
		APIKey:        "sk_test_123",
		WebhookSecret: "whsec_test",
		BaseURL:       gatewayURL,
	}, logger)
	journal := services.NewWebhookJournal(nil, "", logger)

	r := router.SetupRouter(router.Deps{
		DB:      db,
		Bus:     bus,
		Cache:   c,
		Gateway: gateway,
		Status:  status,
		Journal: journal,
		BaseURL: "http://localhost:8080",
	})
	return r, gateway
}

func fakeProvider(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		json.NewEncoder(w).Encode(services.SessionResponse{
			SessionID:  "cs_test_e2e",
			PaymentURL: "https://pay.example.com/s/cs_test_e2e",
		})
	}))
}

func request(t *testing.T, r *gin.Engine, method, url, token string, payload interface{}) *httptest.ResponseRecorder {
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
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func bodyData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data, _ := resp["data"].(map[string]interface{})
	return data
}

func registerAndLogin(t *testing.T, r *gin.Engine) string {
	w := request(t, r, "POST", "/register", "", map[string]interface{}{
		"restaurant_name": "Cantina da Praca",
		"slug":            "cantina",
		"name":            "Dono",
		"email":           "dono@cantina.com",
		"password":        "super-secret",
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = request(t, r, "POST", "/login", "", map[string]interface{}{
		"email":    "dono@cantina.com",
		"password": "super-secret",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	token, ok := bodyData(t, w)["token"].(string)
	assert.True(t, ok)
	return token
}

func buildMenu(t *testing.T, r *gin.Engine, token string) []uint {
	w := request(t, r, "POST", "/admin/categories", token, map[string]interface{}{
		"name": "Pratos",
	})
	assert.Equal(t, http.StatusCreated, w.Code)
	catID := uint(bodyData(t, w)["id"].(float64))

	ids := make([]uint, 0, 2)
	for _, p := range []struct {
		name  string
		price float64
	}{
		{"Feijoada", 10.00},
		{"Suco de laranja", 5.50},
	} {
		w = request(t, r, "POST", "/admin/products", token, map[string]interface{}{
			"category_id": catID,
			"name":        p.name,
			"price":       p.price,
		})
		assert.Equal(t, http.StatusCreated, w.Code)
		ids = append(ids, uint(bodyData(t, w)["id"].(float64)))
	}

	// The public storefront now carries the menu.
	w = request(t, r, "GET", "/r/cantina", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	return ids
}

func placeOrder(t *testing.T, r *gin.Engine, productIDs []uint) uint {
	w := request(t, r, "POST", "/r/cantina/orders", "", map[string]interface{}{
		"customer_name":      "Ana Souza",
		"customer_cpf":       "111.444.777-35",
		"consumption_method": "DINE_IN",
		"products": []map[string]interface{}{
			{"id": productIDs[0], "quantity": 2},
			{"id": productIDs[1], "quantity": 1},
		},
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	data := bodyData(t, w)
	assert.Equal(t, 25.50, data["total"])
	assert.Equal(t, "PENDING", data["status"])
	return uint(data["id"].(float64))
}

func openCheckout(t *testing.T, r *gin.Engine, orderID uint, productIDs []uint) {
	w := request(t, r, "POST", "/checkout", "", map[string]interface{}{
		"order_id":           orderID,
		"slug":               "cantina",
		"cpf":                "111.444.777-35",
		"consumption_method": "DINE_IN",
		"products": []map[string]interface{}{
			{"id": productIDs[0], "quantity": 2},
			{"id": productIDs[1], "quantity": 1},
		},
	})
	assert.Equal(t, http.StatusOK, w.Code)

	data := bodyData(t, w)
	assert.Equal(t, "cs_test_e2e", data["session_id"])
	assert.NotEmpty(t, data["payment_url"])
}

func confirmPayment(t *testing.T, r *gin.Engine, gateway *services.GatewayService, orderID uint) {
	raw, err := json.Marshal(map[string]interface{}{
		"id":   "evt_e2e",
		"type": services.EventCheckoutCompleted,
		"data": map[string]interface{}{
			"session_id": "cs_test_e2e",
			"metadata":   map[string]string{"order_id": fmt.Sprint(orderID)},
		},
	})
	assert.NoError(t, err)

	req, err := http.NewRequest("POST", "/payments/webhook", bytes.NewReader(raw))
	assert.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(services.SignatureHeader, gateway.SignPayload(raw))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// The customer's polling endpoint reflects the webhook.
	w2 := request(t, r, "GET", fmt.Sprintf("/orders/%d", orderID), "", nil)
	assert.Equal(t, http.StatusOK, w2.Code)
	assert.Equal(t, "PAYMENT_CONFIRMED", bodyData(t, w2)["status"])
	assert.Contains(t, w2.Header().Get("Cache-Control"), "no-store")
}

func prepareAndFinish(t *testing.T, r *gin.Engine, token string, orderID uint) {
	url := fmt.Sprintf("/admin/orders/%d/status", orderID)

	for _, status := range []string{"IN_PREPARATION", "FINISHED"} {
		w := request(t, r, "PATCH", url, token, map[string]interface{}{"status": status})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, status, bodyData(t, w)["status"])
	}

	// No transition leaves FINISHED.
	w := request(t, r, "PATCH", url, token, map[string]interface{}{"status": "IN_PREPARATION"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func checkFinalStatus(t *testing.T, r *gin.Engine, orderID uint) {
	w := request(t, r, "GET", "/orders?cpf=11144477735", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	orders := resp["data"].([]interface{})
	assert.Len(t, orders, 1)

	order := orders[0].(map[string]interface{})
	assert.Equal(t, float64(orderID), order["id"])
	assert.Equal(t, "FINISHED", order["status"])
	assert.Equal(t, 25.50, order["total"])
}
