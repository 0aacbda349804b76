package router

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/dfalbuq/cardapio-api/cache"
	"github.com/dfalbuq/cardapio-api/controllers"
	"github.com/dfalbuq/cardapio-api/events"
	"github.com/dfalbuq/cardapio-api/middlewares"
	"github.com/dfalbuq/cardapio-api/services"
)

// Deps carries the explicitly constructed clients the handlers need. Built
// once in main and threaded through instead of package-level singletons.
type Deps struct {
	DB      *gorm.DB
	Bus     *events.Bus
	Cache   *cache.Cache
	Gateway *services.GatewayService
	Status  *services.StatusService
	Journal *services.WebhookJournal
	BaseURL string
}

func SetupRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares())
	r.Use(middlewares.LoggerMiddleware())

	userCtrl := controllers.NewUserController(deps.DB)
	restaurantCtrl := controllers.NewRestaurantController(deps.DB, deps.Cache)
	categoryCtrl := controllers.NewMenuCategoryController(deps.DB, deps.Cache)
	productCtrl := controllers.NewProductController(deps.DB, deps.Cache)
	orderCtrl := controllers.NewOrderController(deps.DB, deps.Status, deps.Cache)
	checkoutCtrl := controllers.NewCheckoutController(deps.DB, deps.Gateway, deps.Status, deps.Journal, deps.BaseURL)
	adminCtrl := controllers.NewAdminController(deps.DB)
	eventsCtrl := controllers.NewEventsController(deps.DB, deps.Bus.Hub())

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	public := r.Group("/")
	public.Use(middlewares.NewStrictRateLimiter())
	{
		public.POST("/register", userCtrl.Register)
		public.POST("/login", userCtrl.Login)
	}

	// Storefront and ordering per restaurant slug
	r.GET("/r/:slug", restaurantCtrl.GetStorefront)
	r.GET("/r/:slug/menu", restaurantCtrl.GetMenu)
	r.POST("/r/:slug/orders", orderCtrl.CreateOrder)

	// Customer-side status consumers: polled snapshots are uncacheable
	polling := r.Group("/")
	polling.Use(middlewares.NoCache())
	{
		polling.GET("/orders/:order_id", orderCtrl.GetOrderByID)
		polling.GET("/orders", orderCtrl.GetOrdersByCPF)
	}

	// Checkout and the asynchronous payment result
	r.POST("/checkout", checkoutCtrl.CreateCheckoutSession)
	r.POST("/payments/webhook", checkoutCtrl.HandlePaymentWebhook)

	// Customer tracking page push subscription
	r.GET("/ws/orders/:order_id", eventsCtrl.OrderSocket)

	// ----------------------------------------------------------------
	//                      AUTHENTICATED ROUTES
	// ----------------------------------------------------------------
	auth := r.Group("/admin")
	auth.Use(middlewares.AuthMiddleware())
	auth.Use(middlewares.RequireStaff())

	auth.GET("/profile", userCtrl.GetProfile)
	auth.GET("/restaurant", restaurantCtrl.GetRestaurant)

	// ORDERS (any back-office role); the list doubles as the dashboard's
	// polling endpoint
	ordersGroup := auth.Group("/orders")
	ordersGroup.Use(middlewares.NoCache())
	{
		ordersGroup.GET("", orderCtrl.ListOrders)
		ordersGroup.GET("/:order_id", orderCtrl.GetOrderByID)
		ordersGroup.PATCH("/:order_id/status", orderCtrl.UpdateOrderStatus)
	}

	// MENU MANAGEMENT (admin/manager)
	manage := auth.Group("/")
	manage.Use(middlewares.RequireManager())
	{
		manage.PATCH("/restaurant", restaurantCtrl.UpdateRestaurant)

		manage.GET("/categories", categoryCtrl.GetAllCategories)
		manage.POST("/categories", categoryCtrl.CreateCategory)
		manage.PATCH("/categories/:cat_id", categoryCtrl.UpdateCategory)
		manage.DELETE("/categories/:cat_id", categoryCtrl.DeleteCategory)

		manage.GET("/products", productCtrl.GetAllProducts)
		manage.POST("/products", productCtrl.CreateProduct)
		manage.GET("/products/:product_id", productCtrl.GetProductByID)
		manage.PATCH("/products/:product_id", productCtrl.UpdateProduct)
		manage.DELETE("/products/:product_id", productCtrl.DeleteProduct)

		manage.GET("/users", userCtrl.GetAllUsers)
		manage.POST("/users", userCtrl.CreateUser)

		manage.GET("/dashboard/stats", adminCtrl.GetDashboardStats)
		manage.GET("/reports/sales", adminCtrl.GetSalesReport)
		manage.GET("/reports/export", adminCtrl.ExportSalesCSV)
		manage.GET("/reports/export-pdf", adminCtrl.ExportSalesPDF)
	}

	// Back-office websocket; token arrives as a query parameter
	wsGroup := r.Group("/ws")
	wsGroup.Use(middlewares.WebSocketAuthMiddleware())
	{
		wsGroup.GET("/admin", eventsCtrl.AdminSocket)
	}

	return r
}
