package services

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/dfalbuq/cardapio-api/config"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testGateway(baseURL string) *GatewayService {
	return NewGatewayService(config.GatewayConfig{
		APIKey:        "sk_test_123",
		WebhookSecret: "whsec_test",
		BaseURL:       baseURL,
	}, testLogger())
}

func TestValidateConfigFailsFast(t *testing.T) {
	gs := NewGatewayService(config.GatewayConfig{}, testLogger())
	assert.Error(t, gs.ValidateConfig())

	gs = NewGatewayService(config.GatewayConfig{APIKey: "sk", WebhookSecret: "ws"}, testLogger())
	assert.Error(t, gs.ValidateConfig())

	gs = testGateway("https://pay.example.com")
	assert.NoError(t, gs.ValidateConfig())
}

func TestCreateSession(t *testing.T) {
	var captured SessionRequest
	var authHeader, idemKey string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		authHeader = r.Header.Get("Authorization")
		idemKey = r.Header.Get("Idempotency-Key")

		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &captured))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(SessionResponse{
			SessionID:  "cs_test_42",
			PaymentURL: "https://pay.example.com/s/cs_test_42",
		})
	}))
	defer server.Close()

	gs := testGateway(server.URL)
	session, err := gs.CreateSession(SessionRequest{
		Amount: 25.50,
		LineItems: []SessionLineItem{
			{Name: "Feijoada", UnitPrice: 10.00, Quantity: 2},
			{Name: "Suco de laranja", UnitPrice: 5.50, Quantity: 1},
		},
		Metadata:   map[string]string{"order_id": "7"},
		SuccessURL: "https://shop.example.com/r/cantina/orders/7",
		CancelURL:  "https://shop.example.com/r/cantina/orders/7",
	})

	assert.NoError(t, err)
	assert.Equal(t, "cs_test_42", session.SessionID)
	assert.Equal(t, "https://pay.example.com/s/cs_test_42", session.PaymentURL)

	assert.Equal(t, "Bearer sk_test_123", authHeader)
	assert.NotEmpty(t, idemKey)
	assert.Equal(t, idemKey, captured.ReferenceID)
	assert.Equal(t, "7", captured.Metadata["order_id"])
	assert.Len(t, captured.LineItems, 2)
}

func TestCreateSessionRequiresLineItems(t *testing.T) {
	gs := testGateway("https://pay.example.com")
	_, err := gs.CreateSession(SessionRequest{Amount: 10})
	assert.Error(t, err)
}

func TestCreateSessionMissingCredentials(t *testing.T) {
	gs := NewGatewayService(config.GatewayConfig{}, testLogger())
	_, err := gs.CreateSession(SessionRequest{
		Amount:    10,
		LineItems: []SessionLineItem{{Name: "x", UnitPrice: 10, Quantity: 1}},
	})
	assert.Error(t, err)
}

func TestCreateSessionProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	gs := testGateway(server.URL)
	_, err := gs.CreateSession(SessionRequest{
		Amount:    10,
		LineItems: []SessionLineItem{{Name: "x", UnitPrice: 10, Quantity: 1}},
	})
	assert.Error(t, err)
}

func TestValidateSignature(t *testing.T) {
	gs := testGateway("https://pay.example.com")
	body := []byte(`{"type":"checkout.session.completed"}`)

	assert.True(t, gs.ValidateSignature(body, gs.SignPayload(body)))
	assert.False(t, gs.ValidateSignature(body, "deadbeef"))
	assert.False(t, gs.ValidateSignature(body, ""))
	assert.False(t, gs.ValidateSignature([]byte("tampered"), gs.SignPayload(body)))

	// Secret mismatch between signer and verifier.
	other := NewGatewayService(config.GatewayConfig{
		APIKey: "sk", WebhookSecret: "different", BaseURL: "https://pay.example.com",
	}, testLogger())
	assert.False(t, gs.ValidateSignature(body, other.SignPayload(body)))
}
