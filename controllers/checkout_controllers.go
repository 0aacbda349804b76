package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/dfalbuq/cardapio-api/models"
	"github.com/dfalbuq/cardapio-api/services"
	"github.com/dfalbuq/cardapio-api/utils"
)

type CheckoutController struct {
	DB      *gorm.DB
	Gateway *services.GatewayService
	Status  *services.StatusService
	Journal *services.WebhookJournal
	BaseURL string
}

func NewCheckoutController(db *gorm.DB, gateway *services.GatewayService, status *services.StatusService, journal *services.WebhookJournal, baseURL string) *CheckoutController {
	return &CheckoutController{
		DB:      db,
		Gateway: gateway,
		Status:  status,
		Journal: journal,
		BaseURL: baseURL,
	}
}

type checkoutReq struct {
	OrderID           uint           `json:"order_id" binding:"required"`
	Products          []orderItemReq `json:"products" binding:"required"`
	Slug              string         `json:"slug" binding:"required"`
	ConsumptionMethod string         `json:"consumption_method" binding:"required"`
	CPF               string         `json:"cpf" binding:"required"`
}

// CreateCheckoutSession -> opens the hosted payment session for a persisted
// order. Unit prices are re-fetched from the database; the client-supplied
// list only tells us what to display, never what to charge.
func (cc *CheckoutController) CreateCheckoutSession(c *gin.Context) {
	var req checkoutReq
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if len(req.Products) == 0 {
		utils.RespondAppError(c, utils.NewValidationError("checkout requires at least one product"))
		return
	}

	// Provider credentials are checked before any external call.
	if err := cc.Gateway.ValidateConfig(); err != nil {
		utils.RespondAppError(c, utils.NewExternalServiceError("payment gateway not configured", err))
		return
	}

	var order models.Order
	if err := cc.DB.Preload("Restaurant").First(&order, req.OrderID).Error; err != nil {
		utils.RespondAppError(c, utils.NewNotFoundError("order %d not found", req.OrderID))
		return
	}
	if order.Restaurant.Slug != req.Slug {
		utils.RespondAppError(c, utils.NewValidationError("order %d does not belong to restaurant %q", req.OrderID, req.Slug))
		return
	}

	ids := make([]uint, 0, len(req.Products))
	for _, item := range req.Products {
		ids = append(ids, item.ProductID)
	}

	var products []models.Product
	if err := cc.DB.Where("restaurant_id = ? AND id IN ?", order.RestaurantID, ids).
		Find(&products).Error; err != nil {
		utils.RespondAppError(c, utils.NewInternalError(err))
		return
	}
	byID := make(map[uint]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	var total float64
	lineItems := make([]services.SessionLineItem, 0, len(req.Products))
	for _, item := range req.Products {
		product, ok := byID[item.ProductID]
		if !ok {
			utils.RespondAppError(c, utils.NewValidationError("product %d not found", item.ProductID))
			return
		}
		if item.Quantity <= 0 {
			utils.RespondAppError(c, utils.NewValidationError("product %d has invalid quantity %d", item.ProductID, item.Quantity))
			return
		}
		total += product.Price * float64(item.Quantity)
		lineItems = append(lineItems, services.SessionLineItem{
			Name:      product.Name,
			UnitPrice: product.Price,
			Quantity:  item.Quantity,
			ImageURL:  product.ImageURL,
		})
	}

	// Success and cancellation land on the same status page; it recovers the
	// true order state either way.
	statusURL := fmt.Sprintf("%s/r/%s/orders/%d?cpf=%s",
		cc.BaseURL, req.Slug, order.ID, utils.NormalizeCPF(req.CPF))

	session, err := cc.Gateway.CreateSession(services.SessionRequest{
		Amount:    total,
		LineItems: lineItems,
		Metadata: map[string]string{
			"order_id": strconv.FormatUint(uint64(order.ID), 10),
		},
		SuccessURL: statusURL,
		CancelURL:  statusURL,
	})
	if err != nil {
		utils.ErrorLogger.Printf("Checkout session for order #%d failed: %v", order.ID, err)
		utils.RespondAppError(c, utils.NewExternalServiceError("failed to create checkout session", err))
		return
	}

	utils.InfoLogger.Printf("Checkout session %s created for order #%d", session.SessionID, order.ID)
	utils.RespondJSON(c, http.StatusOK, "Checkout session created", gin.H{
		"session_id":  session.SessionID,
		"payment_url": session.PaymentURL,
	})
}

// webhookEvent is the provider's callback envelope. The order id travels in
// the session metadata set at session creation.
type webhookEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		SessionID string            `json:"session_id"`
		Metadata  map[string]string `json:"metadata"`
	} `json:"data"`
}

// HandlePaymentWebhook -> the asynchronous payment result. The raw body is
// verified against the shared secret before anything is parsed or touched;
// an unverified payload is rejected outright.
//
// Unknown event types and events whose order cannot be identified are
// acknowledged with 200 so the provider stops retrying deliveries we can do
// nothing with.
func (cc *CheckoutController) HandlePaymentWebhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	signature := c.GetHeader(services.SignatureHeader)
	if !cc.Gateway.ValidateSignature(body, signature) {
		utils.ErrorLogger.Printf("Webhook rejected: bad signature from %s", c.ClientIP())
		utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("invalid webhook signature"))
		return
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("malformed webhook payload"))
		return
	}

	var target string
	switch event.Type {
	case services.EventCheckoutCompleted:
		target = models.OrderStatusPaymentConfirmed
	case services.EventChargeFailed:
		target = models.OrderStatusPaymentFailed
	default:
		utils.InfoLogger.Printf("Webhook event %q ignored", event.Type)
		utils.RespondJSON(c, http.StatusOK, "Event ignored", nil)
		return
	}

	orderIDRaw, ok := event.Data.Metadata["order_id"]
	if !ok || orderIDRaw == "" {
		// No order to act on and the provider would retry a non-2xx forever.
		utils.ErrorLogger.Printf("Webhook %s (%s) has no order_id metadata", event.ID, event.Type)
		cc.Journal.Record(c.Request.Context(), services.JournalEntry{
			EventType: event.Type,
			SessionID: event.Data.SessionID,
			Outcome:   "unidentified",
		})
		utils.RespondJSON(c, http.StatusOK, "Event acknowledged", nil)
		return
	}

	orderID, err := strconv.ParseUint(orderIDRaw, 10, 32)
	if err != nil {
		utils.ErrorLogger.Printf("Webhook %s has malformed order_id %q", event.ID, orderIDRaw)
		cc.Journal.Record(c.Request.Context(), services.JournalEntry{
			EventType: event.Type,
			SessionID: event.Data.SessionID,
			Outcome:   "unidentified",
		})
		utils.RespondJSON(c, http.StatusOK, "Event acknowledged", nil)
		return
	}

	outcome := "applied"
	_, applied, err := cc.Status.Transition(uint(orderID), target)
	if err != nil {
		// Terminal or otherwise ineligible orders leave the event without a
		// recovery action; a delivery failure would only trigger retries.
		utils.ErrorLogger.Printf("Webhook %s for order %d not applied: %v", event.Type, orderID, err)
		outcome = "rejected"
	} else if !applied {
		outcome = "duplicate"
	}

	cc.Journal.Record(c.Request.Context(), services.JournalEntry{
		EventType: event.Type,
		OrderID:   uint(orderID),
		SessionID: event.Data.SessionID,
		Outcome:   outcome,
	})

	utils.RespondJSON(c, http.StatusOK, "Event processed", gin.H{"outcome": outcome})
}
