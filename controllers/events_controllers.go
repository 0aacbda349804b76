package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"gorm.io/gorm"

	"github.com/dfalbuq/cardapio-api/events"
	"github.com/dfalbuq/cardapio-api/models"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type EventsController struct {
	DB  *gorm.DB
	Hub *events.Hub
}

func NewEventsController(db *gorm.DB, hub *events.Hub) *EventsController {
	return &EventsController{DB: db, Hub: hub}
}

// AdminSocket -> back-office subscription to the caller's restaurant
// channel. Runs behind WebSocketAuthMiddleware.
func (ec *EventsController) AdminSocket(c *gin.Context) {
	restaurantID := c.GetUint("restaurant_id")

	var restaurant models.Restaurant
	if err := ec.DB.First(&restaurant, restaurantID).Error; err != nil {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	ec.Hub.Register(ws, events.RestaurantChannel(restaurant.Slug))

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}

	ec.Hub.Unregister(ws)
}

// OrderSocket -> customer tracking subscription to one order channel. The
// order id is public knowledge for whoever placed it; the payload carries
// only id, status and timestamp.
func (ec *EventsController) OrderSocket(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("order_id"))
	if err != nil {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	var order models.Order
	if err := ec.DB.First(&order, id).Error; err != nil {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	ec.Hub.Register(ws, order.ChannelName())

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}

	ec.Hub.Unregister(ws)
}
