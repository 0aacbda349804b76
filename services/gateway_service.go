package services

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dfalbuq/cardapio-api/config"
)

// Gateway webhook event types.
const (
	EventCheckoutCompleted = "checkout.session.completed"
	EventChargeFailed      = "charge.failed"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw webhook body.
const SignatureHeader = "X-Gateway-Signature"

// GatewayService talks to the hosted-checkout payment provider. It is
// constructed once in main and injected into the checkout controller.
type GatewayService struct {
	config     config.GatewayConfig
	httpClient *http.Client
	log        *logrus.Logger
}

func NewGatewayService(cfg config.GatewayConfig, log *logrus.Logger) *GatewayService {
	return &GatewayService{
		config: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
}

// ValidateConfig fails fast when provider credentials are missing, before
// any external call is attempted.
func (gs *GatewayService) ValidateConfig() error {
	if gs.config.APIKey == "" {
		return fmt.Errorf("GATEWAY_API_KEY is not set")
	}
	if gs.config.WebhookSecret == "" {
		return fmt.Errorf("GATEWAY_WEBHOOK_SECRET is not set")
	}
	if gs.config.BaseURL == "" {
		return fmt.Errorf("GATEWAY_BASE_URL is not set")
	}
	return nil
}

// SessionLineItem is one display line on the hosted checkout page. Prices
// are the server-trusted unit prices, never client input.
type SessionLineItem struct {
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int     `json:"quantity"`
	ImageURL  string  `json:"image_url,omitempty"`
}

// SessionRequest is the provider payload for creating a hosted session.
type SessionRequest struct {
	ReferenceID string            `json:"reference_id"`
	Amount      float64           `json:"amount"`
	LineItems   []SessionLineItem `json:"line_items"`
	Metadata    map[string]string `json:"metadata"`
	SuccessURL  string            `json:"success_url"`
	CancelURL   string            `json:"cancel_url"`
}

// SessionResponse is the provider's answer: an opaque session id plus the
// hosted page URL the customer is redirected to.
type SessionResponse struct {
	SessionID  string `json:"session_id"`
	PaymentURL string `json:"payment_url"`
	ExpiresAt  string `json:"expires_at,omitempty"`
}

// CreateSession opens a hosted checkout session. The order id travels in the
// session metadata so the webhook can correlate the asynchronous result back
// to the order row.
func (gs *GatewayService) CreateSession(req SessionRequest) (*SessionResponse, error) {
	if err := gs.ValidateConfig(); err != nil {
		return nil, err
	}
	if len(req.LineItems) == 0 {
		return nil, fmt.Errorf("checkout session requires at least one line item")
	}
	if req.ReferenceID == "" {
		req.ReferenceID = uuid.New().String()
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	url := gs.config.BaseURL + "/v1/checkout/sessions"
	httpReq, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+gs.config.APIKey)
	httpReq.Header.Set("Idempotency-Key", req.ReferenceID)

	resp, err := gs.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		gs.log.Errorf("gateway: create session %s: status %d body %s", req.ReferenceID, resp.StatusCode, string(body))
		return nil, fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	var session SessionResponse
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("gateway response decode: %w", err)
	}
	if session.SessionID == "" {
		return nil, fmt.Errorf("gateway response missing session_id")
	}

	gs.log.Infof("gateway: session %s created for reference %s", session.SessionID, req.ReferenceID)
	return &session, nil
}

// ValidateSignature verifies the HMAC-SHA256 of the raw webhook body against
// the shared secret. Nothing is processed on a body that fails this check.
func (gs *GatewayService) ValidateSignature(body []byte, signature string) bool {
	if gs.config.WebhookSecret == "" || signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(gs.config.WebhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}

// SignPayload computes the signature the provider would attach to body.
// Exercised by the webhook tests.
func (gs *GatewayService) SignPayload(body []byte) string {
	mac := hmac.New(sha256.New, []byte(gs.config.WebhookSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
