package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/dfalbuq/cardapio-api/cache"
	"github.com/dfalbuq/cardapio-api/events"
	"github.com/dfalbuq/cardapio-api/models"
	"github.com/dfalbuq/cardapio-api/services"
	"github.com/dfalbuq/cardapio-api/utils"
)

type OrderController struct {
	DB     *gorm.DB
	Status *services.StatusService
	Cache  *cache.Cache
}

func NewOrderController(db *gorm.DB, status *services.StatusService, c *cache.Cache) *OrderController {
	return &OrderController{DB: db, Status: status, Cache: c}
}

type orderItemReq struct {
	ProductID uint `json:"id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required"`
}

type createOrderReq struct {
	CustomerName      string         `json:"customer_name" binding:"required"`
	CustomerCPF       string         `json:"customer_cpf" binding:"required"`
	CustomerPhone     string         `json:"customer_phone"`
	ConsumptionMethod string         `json:"consumption_method" binding:"required"`
	DeliveryAddress   string         `json:"delivery_address"`
	DeliveryReference string         `json:"delivery_reference"`
	Products          []orderItemReq `json:"products" binding:"required"`
}

// CreateOrder -> order intake. Snapshots product prices into line items and
// persists order + lines in one transaction; on any failure nothing is kept.
func (oc *OrderController) CreateOrder(c *gin.Context) {
	slug := c.Param("slug")

	var req createOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	cpf := utils.NormalizeCPF(req.CustomerCPF)
	if !utils.ValidCPF(cpf) {
		utils.RespondAppError(c, utils.NewValidationError("invalid CPF"))
		return
	}
	if !models.ValidConsumptionMethod(req.ConsumptionMethod) {
		utils.RespondAppError(c, utils.NewValidationError("invalid consumption method %q", req.ConsumptionMethod))
		return
	}
	// TAKEAWAY is the delivery method; it cannot ship without an address.
	if req.ConsumptionMethod == models.ConsumptionTakeaway && req.DeliveryAddress == "" {
		utils.RespondAppError(c, utils.NewValidationError("delivery orders require a delivery address"))
		return
	}
	if len(req.Products) == 0 {
		utils.RespondAppError(c, utils.NewValidationError("order requires at least one product"))
		return
	}
	for _, item := range req.Products {
		if item.Quantity <= 0 {
			utils.RespondAppError(c, utils.NewValidationError("product %d has invalid quantity %d", item.ProductID, item.Quantity))
			return
		}
	}

	var restaurant models.Restaurant
	if err := oc.DB.Where("slug = ? AND is_active = ?", slug, true).First(&restaurant).Error; err != nil {
		utils.RespondAppError(c, utils.NewNotFoundError("restaurant %q not found", slug))
		return
	}

	ids := make([]uint, 0, len(req.Products))
	for _, item := range req.Products {
		ids = append(ids, item.ProductID)
	}

	var products []models.Product
	if err := oc.DB.
		Where("restaurant_id = ? AND is_active = ? AND id IN ?", restaurant.ID, true, ids).
		Find(&products).Error; err != nil {
		utils.RespondAppError(c, utils.NewInternalError(err))
		return
	}

	byID := make(map[uint]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	var missing []uint
	for _, item := range req.Products {
		if _, ok := byID[item.ProductID]; !ok {
			missing = append(missing, item.ProductID)
		}
	}
	if len(missing) > 0 {
		utils.RespondAppError(c, utils.NewValidationError("products not found: %v", missing))
		return
	}

	// Snapshot current prices; the total never gets re-derived from live
	// product prices afterwards.
	var total float64
	lines := make([]models.OrderProduct, 0, len(req.Products))
	for _, item := range req.Products {
		product := byID[item.ProductID]
		total += product.Price * float64(item.Quantity)
		lines = append(lines, models.OrderProduct{
			ProductID: product.ID,
			Quantity:  item.Quantity,
			Price:     product.Price,
		})
	}

	order := models.Order{
		RestaurantID:      restaurant.ID,
		CustomerName:      req.CustomerName,
		CustomerCPF:       cpf,
		CustomerPhone:     req.CustomerPhone,
		ConsumptionMethod: req.ConsumptionMethod,
		DeliveryAddress:   req.DeliveryAddress,
		DeliveryReference: req.DeliveryReference,
		Total:             total,
		Status:            models.OrderStatusPending,
	}

	err := oc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&order).Error; err != nil {
			return err
		}
		for i := range lines {
			lines[i].OrderID = order.ID
		}
		if err := tx.Create(&lines).Error; err != nil {
			return err
		}
		return tx.Preload("Items.Product").First(&order, order.ID).Error
	})
	if err != nil {
		utils.RespondAppError(c, utils.NewInternalError(err))
		return
	}

	oc.Cache.Invalidate(c.Request.Context(), cache.CustomerOrdersKey(cpf))

	order.Restaurant = restaurant
	oc.Status.FanOut(&order, events.EventNewOrder)

	utils.InfoLogger.Printf("Order #%d created for %s (total %.2f)", order.ID, restaurant.Slug, order.Total)
	utils.RespondJSON(c, http.StatusCreated, "Order created", order)
}

// GetOrderByID -> current snapshot of one order, used by the customer
// tracking page's polling strategy. Served with no-cache headers.
func (oc *OrderController) GetOrderByID(c *gin.Context) {
	idStr := c.Param("order_id")
	id, _ := strconv.Atoi(idStr)

	var order models.Order
	if err := oc.DB.Preload("Items.Product").First(&order, id).Error; err != nil {
		utils.RespondAppError(c, utils.NewNotFoundError("order %d not found", id))
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Order detail", order)
}

// GetOrdersByCPF -> customer order history, cached under the normalized CPF
// until the next order creation or status change invalidates it.
func (oc *OrderController) GetOrdersByCPF(c *gin.Context) {
	cpf := utils.NormalizeCPF(c.Query("cpf"))
	if !utils.ValidCPF(cpf) {
		utils.RespondAppError(c, utils.NewValidationError("invalid CPF"))
		return
	}

	key := cache.CustomerOrdersKey(cpf)

	var cached []models.Order
	if oc.Cache.GetJSON(c.Request.Context(), key, &cached) {
		utils.RespondJSON(c, http.StatusOK, "Customer orders", cached)
		return
	}

	var orders []models.Order
	if err := oc.DB.Preload("Items.Product").
		Where("customer_cpf = ?", cpf).
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		utils.RespondAppError(c, utils.NewInternalError(err))
		return
	}

	oc.Cache.SetJSON(c.Request.Context(), key, orders)
	utils.RespondJSON(c, http.StatusOK, "Customer orders", orders)
}

// ListOrders -> admin polling endpoint for the caller's restaurant, with an
// optional last_update watermark so the dashboard only merges what changed.
func (oc *OrderController) ListOrders(c *gin.Context) {
	restaurantID := c.GetUint("restaurant_id")

	query := oc.DB.Preload("Items.Product").
		Where("restaurant_id = ?", restaurantID)

	if lastUpdate := c.Query("last_update"); lastUpdate != "" {
		since, err := time.Parse(time.RFC3339, lastUpdate)
		if err != nil {
			utils.RespondAppError(c, utils.NewValidationError("last_update must be RFC3339"))
			return
		}
		query = query.Where("updated_at > ?", since)
	}

	if status := c.Query("status"); status != "" {
		if !models.ValidStatus(status) {
			utils.RespondAppError(c, utils.NewValidationError("unknown order status %q", status))
			return
		}
		query = query.Where("status = ?", status)
	}

	var orders []models.Order
	if err := query.Order("updated_at DESC").Find(&orders).Error; err != nil {
		utils.RespondAppError(c, utils.NewInternalError(err))
		return
	}

	utils.RespondJSON(c, http.StatusOK, "List of orders", orders)
}

// UpdateOrderStatus -> staff moves an order forward (PAYMENT_CONFIRMED ->
// IN_PREPARATION -> FINISHED). Payment transitions belong to the webhook and
// are rejected here.
func (oc *OrderController) UpdateOrderStatus(c *gin.Context) {
	restaurantID := c.GetUint("restaurant_id")
	idStr := c.Param("order_id")
	id, _ := strconv.Atoi(idStr)

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if req.Status != models.OrderStatusInPreparation && req.Status != models.OrderStatusFinished {
		utils.RespondAppError(c, utils.NewValidationError("staff may only set IN_PREPARATION or FINISHED"))
		return
	}

	var order models.Order
	if err := oc.DB.First(&order, id).Error; err != nil {
		utils.RespondAppError(c, utils.NewNotFoundError("order %d not found", id))
		return
	}
	if order.RestaurantID != restaurantID {
		utils.RespondAppError(c, utils.NewAuthorizationError("order belongs to another restaurant"))
		return
	}

	updated, applied, err := oc.Status.Transition(order.ID, req.Status)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	if !applied {
		utils.RespondJSON(c, http.StatusOK, "Order already up to date", updated)
		return
	}

	utils.InfoLogger.Printf("Order #%d set to %s by %s#%d", updated.ID, updated.Status, c.GetString("role"), c.GetUint("user_id"))
	utils.RespondJSON(c, http.StatusOK, "Order updated", updated)
}
