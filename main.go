package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/dfalbuq/cardapio-api/cache"
	"github.com/dfalbuq/cardapio-api/config"
	"github.com/dfalbuq/cardapio-api/events"
	"github.com/dfalbuq/cardapio-api/middlewares"
	"github.com/dfalbuq/cardapio-api/models"
	"github.com/dfalbuq/cardapio-api/router"
	"github.com/dfalbuq/cardapio-api/services"
	"github.com/dfalbuq/cardapio-api/utils"
)

func main() {
	utils.InitLogger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := config.InitDB(cfg.DB)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	autoMigrate(db)

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		// Redis only backs the cache and the cross-instance relay; the app
		// still serves from the database without it.
		utils.ErrorLogger.Printf("Redis unreachable, running without cache/relay: %v", err)
		rdb = nil
	}

	hub := events.NewHub(utils.InfoLogger)
	bus := events.NewBus(hub, rdb, utils.ErrorLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go bus.Run(ctx)

	appCache := cache.New(rdb, 5*time.Minute, utils.ErrorLogger)
	gateway := services.NewGatewayService(cfg.Gateway, utils.InfoLogger)
	if err := gateway.ValidateConfig(); err != nil {
		utils.ErrorLogger.Printf("Payment gateway not fully configured: %v", err)
	}

	journal := services.NewWebhookJournal(cfg.Kafka.Brokers, cfg.Kafka.Topic, utils.ErrorLogger)
	defer journal.Close()

	statusSvc := services.NewStatusService(db, bus, appCache, utils.InfoLogger)

	monitor := services.NewOrderMonitor(statusSvc, utils.InfoLogger)
	monitor.Start()
	defer monitor.Stop()

	rateLimiter := middlewares.NewRateLimiter(50, 1)

	r := router.SetupRouter(router.Deps{
		DB:      db,
		Bus:     bus,
		Cache:   appCache,
		Gateway: gateway,
		Status:  statusSvc,
		Journal: journal,
		BaseURL: cfg.Server.BaseURL,
	})
	r.Use(rateLimiter.RateLimit())

	r.SetTrustedProxies([]string{"127.0.0.1", "localhost"})

	utils.InfoLogger.Printf("Listening on port %s", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		utils.ErrorLogger.Fatal(err)
	}
}

func autoMigrate(db *gorm.DB) {
	err := db.AutoMigrate(
		&models.Restaurant{},
		&models.User{},
		&models.MenuCategory{},
		&models.Product{},
		&models.Order{},
		&models.OrderProduct{},
	)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to AutoMigrate: %v", err)
	}
	utils.InfoLogger.Println("AutoMigrate completed.")
}
