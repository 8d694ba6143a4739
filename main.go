package main

import (
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/pooria159/grosha-backend/carts"
	"github.com/pooria159/grosha-backend/checkout"
	"github.com/pooria159/grosha-backend/config"
	"github.com/pooria159/grosha-backend/consumers"
	"github.com/pooria159/grosha-backend/controllers"
	"github.com/pooria159/grosha-backend/database"
	"github.com/pooria159/grosha-backend/discounts"
	"github.com/pooria159/grosha-backend/idempotency"
	"github.com/pooria159/grosha-backend/middlewares"
	"github.com/pooria159/grosha-backend/orders"
	"github.com/pooria159/grosha-backend/rabbitmq"
	"github.com/pooria159/grosha-backend/store"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg := config.LoadConfig()

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Database initialization failed: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Schema migration failed: %v", err)
	}

	rmq, err := rabbitmq.NewRabbitMQ(cfg)
	if err != nil {
		log.Fatalf("RabbitMQ initialization failed: %v", err)
	}
	defer rmq.Close()

	if err := rmq.SetupQueues(); err != nil {
		log.Fatalf("Failed to setup RabbitMQ queues: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer rdb.Close()

	mysqlStore := store.New(db)

	resolver := discounts.NewResolver(mysqlStore, logger)
	manager := discounts.NewManager(mysqlStore, logger)
	checkoutService := checkout.NewService(mysqlStore, resolver, cfg.StrictDiscounts, logger)
	ordersService := orders.NewService(mysqlStore, logger)
	cartsService := carts.NewService(mysqlStore, logger)
	guard := idempotency.NewGuard(rdb, cfg.IdempotencyTTL)

	consumer := consumers.NewOrderConsumer(ordersService, logger)
	go consumer.Start(rmq.Channel, cfg)

	checkoutController := controllers.NewCheckoutController(checkoutService, guard, rmq, cfg, logger)
	orderController := controllers.NewOrderController(ordersService, rmq, logger)
	discountController := controllers.NewDiscountController(resolver, manager, logger)
	cartController := controllers.NewCartController(cartsService, logger)

	r := gin.Default()
	r.Use(middlewares.PrometheusMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authGroup := r.Group("/api")
	authGroup.Use(middlewares.AuthMiddleware(cfg))
	{
		authGroup.POST("/orders/checkout", checkoutController.Checkout)
		authGroup.GET("/orders", orderController.List)
		authGroup.GET("/orders/seller", orderController.SellerOrders)
		authGroup.GET("/orders/:id", orderController.Details)
		authGroup.PATCH("/orders/:id/update-status", orderController.UpdateStatus)

		authGroup.POST("/discounts/apply", discountController.Apply)
		authGroup.GET("/discounts", discountController.List)
		authGroup.GET("/discounts/active", discountController.Active)
		authGroup.POST("/discounts", discountController.Create)
		authGroup.PUT("/discounts/:id", discountController.Update)
		authGroup.DELETE("/discounts/:id", discountController.Deactivate)

		authGroup.GET("/cart", cartController.Detail)
		authGroup.GET("/cart/checkout-items", cartController.CheckoutItems)
		authGroup.POST("/cart/items", cartController.AddItem)
		authGroup.PUT("/cart/items/:id", cartController.UpdateItem)
		authGroup.DELETE("/cart/items/:id", cartController.RemoveItem)
		authGroup.DELETE("/cart", cartController.Clear)
	}

	r.POST("/dead-letter", orderController.HandleDeadLetter)

	addr := ":" + cfg.Port
	log.Printf("Marketplace service starting on %s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
