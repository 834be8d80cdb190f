package routes

import (
	"net/http"

	"gift-storefront-api/internal/auth"
	"gift-storefront-api/internal/handlers"
	"gift-storefront-api/internal/middleware"
	"gift-storefront-api/internal/proxy"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Options holds what the router is built from.
type Options struct {
	Handler *handlers.Handler
	Auth    *auth.Authenticator
	Proxy   *proxy.Proxy
	Logger  zerolog.Logger
}

func SetupRoutes(opts Options) *gin.Engine {
	h := opts.Handler

	ginRouter := gin.New()
	ginRouter.Use(gin.Recovery(), middleware.AccessLog(opts.Logger), middleware.CORS())

	// Health check endpoint
	ginRouter.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Gift storefront API is running",
		})
	})
	ginRouter.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := ginRouter.Group("/api")
	api.GET("/proxy", opts.Proxy.Handle)

	// Storefront routes, keyed by the browser session
	shop := api.Group("")
	shop.Use(middleware.Session())
	{
		shop.GET("/products", h.ListProducts)
		shop.GET("/products/:id", h.GetProduct)
		shop.GET("/products/:id/reviews", h.ListReviews)
		shop.POST("/products/:id/reviews", h.CreateReview)
		shop.PUT("/reviews/:id", h.UpdateReview)

		shop.GET("/categories", h.ListCategories)
		shop.GET("/banners", h.ListBanners)
		shop.GET("/packaging", h.ListPackaging)
		shop.GET("/services", h.ListServices)

		shop.GET("/likes", h.ListLikes)
		shop.POST("/likes/:productId", h.ToggleLike)

		shop.POST("/orders", h.CreateOrder)
		shop.GET("/orders", h.ListMyOrders)
		shop.GET("/orders/:id", h.GetOrder)

		shop.GET("/bundle", h.GetBundle)
		shop.DELETE("/bundle", h.ClearBundle)
		shop.POST("/bundle/items", h.AddBundleItem)
		shop.PATCH("/bundle/items/:productId", h.UpdateBundleItem)
		shop.DELETE("/bundle/items/:productId", h.RemoveBundleItem)
		shop.PUT("/bundle/step", h.SetBundleStep)
		shop.POST("/bundle/checkout", h.CheckoutBundle)

		shop.GET("/ws", h.WebSocket)
	}

	api.POST("/admin/login", h.AdminLogin)

	// Admin routes (authentication required)
	admin := api.Group("/admin")
	admin.Use(middleware.AdminAuth(opts.Auth))
	{
		admin.POST("/products", h.CreateProduct)
		admin.POST("/products/parse", h.ParseMarketplaceProduct)
		admin.POST("/products/import", h.ImportProduct)
		admin.POST("/products/sync-prices", h.SyncPrices)
		admin.PUT("/products/:id", h.UpdateProduct)
		admin.DELETE("/products/:id", h.DeleteProduct)

		admin.POST("/categories", h.CreateCategory)
		admin.DELETE("/categories/:id", h.DeleteCategory)

		admin.GET("/banners", h.AdminListBanners)
		admin.POST("/banners", h.CreateBanner)
		admin.PUT("/banners/:id", h.UpdateBanner)
		admin.DELETE("/banners/:id", h.DeleteBanner)

		admin.GET("/packaging", h.AdminListPackaging)
		admin.POST("/packaging", h.CreatePackaging)
		admin.DELETE("/packaging/:id", h.DeletePackaging)

		admin.GET("/services", h.AdminListServices)
		admin.POST("/services", h.CreateService)
		admin.DELETE("/services/:id", h.DeleteService)

		admin.GET("/orders", h.AdminListOrders)
		admin.PATCH("/orders/:id/status", h.UpdateOrderStatus)

		admin.GET("/reviews", h.AdminListReviews)
		admin.PATCH("/reviews/:id", h.ModerateReview)

		admin.POST("/uploads", h.UploadImage)
		admin.POST("/cache/clear", h.ClearCache)
		admin.GET("/cache/stats", h.CacheStats)
	}

	return ginRouter
}
