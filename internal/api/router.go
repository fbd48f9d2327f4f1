package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sebastianpd1/next-ecommerce-backend/internal/api/handlers"
	"github.com/sebastianpd1/next-ecommerce-backend/internal/api/middleware"
	"github.com/sebastianpd1/next-ecommerce-backend/internal/config"
	"github.com/sebastianpd1/next-ecommerce-backend/internal/mercadopago"
	"github.com/sebastianpd1/next-ecommerce-backend/internal/repository"
	"github.com/sebastianpd1/next-ecommerce-backend/internal/service"
)

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, repos *repository.Repositories, mpClient *mercadopago.Client, logger *zap.Logger) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware(logger))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	intake := service.NewOrderService(repos, logger)
	stock := service.NewStockService(repos, logger)
	reconciler := service.NewReconcileService(repos, mpClient, stock, logger)

	requireKey := middleware.RequireAPIKey(cfg.API, logger)

	api := router.Group("/api")
	{
		// Webhooks carry no x-api-key; the signature is the credential.
		api.POST("/webhooks/mercadopago", handlers.HandlePaymentWebhook(cfg, reconciler, logger))

		api.POST("/orders", requireKey, handlers.HandleCreateOrder(intake, logger))
		api.GET("/orders", requireKey, handlers.HandleListOrders(repos, logger))
		api.GET("/orders/:id", handlers.HandleGetOrder(repos, logger))
		api.GET("/public/tracking", handlers.HandleTracking(repos, logger))

		api.POST("/pay/mercadopago/preference", requireKey, handlers.HandleCreatePreference(cfg, repos, mpClient, logger))

		api.GET("/products", handlers.HandleListProducts(repos, logger))
		api.GET("/products/:id", handlers.HandleGetProduct(repos, logger))
		api.POST("/products", requireKey, handlers.HandleUpsertProducts(repos, logger))
		api.DELETE("/products", requireKey, handlers.HandleDeleteProduct(repos, logger))

		api.GET("/printers", handlers.HandleListPrinters(repos, logger))
		api.POST("/printers", requireKey, handlers.HandleUpsertPrinters(repos, logger))
		api.DELETE("/printers", requireKey, handlers.HandleDeletePrinter(repos, logger))

		api.GET("/slider", handlers.HandleListSliders(repos, logger))
		api.POST("/slider", requireKey, handlers.HandleUpsertSliders(repos, logger))
		api.DELETE("/slider", requireKey, handlers.HandleDeleteSlider(repos, logger))

		api.GET("/announcements", handlers.HandleListAnnouncements(repos, logger))
		api.POST("/announcements", requireKey, handlers.HandleUpsertAnnouncements(repos, logger))
		api.DELETE("/announcements", requireKey, handlers.HandleDeleteAnnouncement(repos, logger))
	}

	return router
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		status := c.Writer.Status()
		logger.Info("HTTP request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", status),
		)
	}
}
