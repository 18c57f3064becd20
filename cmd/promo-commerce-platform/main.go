package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/adityamenon-dev/promo-commerce-platform/internal/api/handlers"
	"github.com/adityamenon-dev/promo-commerce-platform/internal/api/middleware"
	"github.com/adityamenon-dev/promo-commerce-platform/internal/cache"
	"github.com/adityamenon-dev/promo-commerce-platform/internal/config"
	"github.com/adityamenon-dev/promo-commerce-platform/internal/health"
	"github.com/adityamenon-dev/promo-commerce-platform/internal/metrics"
	repository "github.com/adityamenon-dev/promo-commerce-platform/internal/repositories"
	service "github.com/adityamenon-dev/promo-commerce-platform/internal/services"
	"github.com/adityamenon-dev/promo-commerce-platform/pkg/sendgrid"
	"github.com/adityamenon-dev/promo-commerce-platform/pkg/stripe"
)

func main() {
	// Logger setup
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load config
	cfg := config.MustLoad()

	// Database setup
	repos, err := repository.New(cfg)
	if err != nil {
		slog.Error("❌ Error accessing the database", "error", err.Error())
		os.Exit(1)
	}

	defer func() {
		if err := repos.Close(); err != nil {
			slog.Error("⚠️ Error closing database connection", slog.String("error", err.Error()))
		} else {
			slog.Info("✅ Database connection closed")
		}
	}()

	// Redis setup
	redisClient, err := repository.NewRedisClient(cfg)
	if err != nil {
		slog.Error("❌ Error accessing the redis instance", "error", err.Error())
		os.Exit(1)
	}

	rateLimitRepo := repository.NewRateLimitRepo(redisClient, cfg)
	productCache := cache.NewRedisCache(redisClient, &cfg.Cache)

	jwtKey := []byte(cfg.Security.JWTKey)
	stripeGateway := stripe.NewStripeGateway(cfg.Stripe.APIKey, cfg.Stripe.WebhookSecret)
	sendGridClient := sendgrid.NewEmailService(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail, cfg.SendGrid.FromName)

	productService := service.NewProductService(repos.Product, productCache, cfg.Cache.ProductTTL)
	productHandler := handlers.NewProductHandler(productService)
	bundleService := service.NewBundleService(repos.Bundle, productService)
	bundleHandler := handlers.NewBundleHandler(bundleService)
	flashSaleService := service.NewFlashSaleService(repos.FlashSale, productService, cfg.Reservation)
	flashSaleHandler := handlers.NewFlashSaleHandler(flashSaleService)
	cartService := service.NewCartService(repos.Cart, productService, flashSaleService, bundleService)
	cartHandler := handlers.NewCartHandler(cartService)
	loyaltyService := service.NewLoyaltyService(repos.Loyalty, cfg.Loyalty)
	loyaltyHandler := handlers.NewLoyaltyHandler(loyaltyService)
	notificationService := service.NewNotificationService(repos.Notification, sendGridClient)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	orderService := service.NewOrderService(repos.Order, cartService, productService, bundleService,
		flashSaleService, loyaltyService, notificationService, stripeGateway, cfg.Stripe)
	orderHandler := handlers.NewOrderHandler(orderService)
	paymentHandler := handlers.NewPaymentHandler(orderService, stripeGateway)
	authMiddleware := middleware.NewAuthMiddleware(jwtKey)
	checkoutRateLimit := middleware.CheckoutRateLimit(rateLimitRepo)

	healthHandler, err := health.NewHealthHandler(cfg)
	if err != nil {
		slog.Error("❌ Error building health checks", "error", err.Error())
		os.Exit(1)
	}

	slog.Info("storage initialized", slog.String("env", cfg.Env), slog.String("version", "1.0.0"))

	// Setup router
	routerMux := http.NewServeMux()
	routerMux.HandleFunc("POST /api/v1/products", authMiddleware.Authenticate(productHandler.CreateProduct()))
	routerMux.HandleFunc("GET /api/v1/products/{id}", productHandler.GetProduct())
	routerMux.HandleFunc("PUT /api/v1/products/{id}", authMiddleware.Authenticate(productHandler.UpdateProduct()))
	routerMux.HandleFunc("GET /api/v1/products", productHandler.ListProducts())

	routerMux.HandleFunc("GET /api/v1/cart", authMiddleware.Authenticate(cartHandler.GetCart()))
	routerMux.HandleFunc("POST /api/v1/cart/items", authMiddleware.Authenticate(cartHandler.AddItem()))
	routerMux.HandleFunc("POST /api/v1/cart/bundles", authMiddleware.Authenticate(cartHandler.AddBundle()))
	routerMux.HandleFunc("PUT /api/v1/cart/items", authMiddleware.Authenticate(cartHandler.UpdateQuantity()))
	routerMux.HandleFunc("DELETE /api/v1/cart/items/{lineId}", authMiddleware.Authenticate(cartHandler.RemoveItem()))
	routerMux.HandleFunc("POST /api/v1/cart/items/{lineId}/save-for-later", authMiddleware.Authenticate(cartHandler.ToggleSavedForLater()))
	routerMux.HandleFunc("POST /api/v1/cart/coupon", authMiddleware.Authenticate(cartHandler.ApplyCoupon()))
	routerMux.HandleFunc("DELETE /api/v1/cart/coupon", authMiddleware.Authenticate(cartHandler.RemoveCoupon()))
	routerMux.HandleFunc("DELETE /api/v1/cart", authMiddleware.Authenticate(cartHandler.ClearCart()))

	routerMux.HandleFunc("POST /api/v1/bundles", authMiddleware.Authenticate(bundleHandler.CreateBundle()))
	routerMux.HandleFunc("GET /api/v1/bundles/{id}", bundleHandler.GetBundle())
	routerMux.HandleFunc("GET /api/v1/bundles", bundleHandler.ListBundles())
	routerMux.HandleFunc("PUT /api/v1/bundles/{id}/price", authMiddleware.Authenticate(bundleHandler.UpdateBundlePrice()))

	routerMux.HandleFunc("POST /api/v1/flash-sales", authMiddleware.Authenticate(flashSaleHandler.CreateFlashSale()))
	routerMux.HandleFunc("GET /api/v1/flash-sales/{id}", flashSaleHandler.GetFlashSale())
	routerMux.HandleFunc("GET /api/v1/flash-sales", flashSaleHandler.ListFlashSales())
	routerMux.HandleFunc("GET /api/v1/flash-sales/{id}/countdown", flashSaleHandler.Countdown())
	routerMux.HandleFunc("POST /api/v1/flash-sales/{id}/reserve", authMiddleware.Authenticate(flashSaleHandler.ReserveStock()))
	routerMux.HandleFunc("POST /api/v1/flash-sales/{id}/release", authMiddleware.Authenticate(flashSaleHandler.ReleaseStock()))
	routerMux.HandleFunc("POST /api/v1/flash-sales/{id}/pause", authMiddleware.Authenticate(flashSaleHandler.Pause()))
	routerMux.HandleFunc("POST /api/v1/flash-sales/{id}/resume", authMiddleware.Authenticate(flashSaleHandler.Resume()))
	routerMux.HandleFunc("POST /api/v1/flash-sales/{id}/end", authMiddleware.Authenticate(flashSaleHandler.ForceEnd()))

	routerMux.HandleFunc("GET /api/v1/loyalty/status", authMiddleware.Authenticate(loyaltyHandler.GetStatus()))
	routerMux.HandleFunc("GET /api/v1/loyalty/history", authMiddleware.Authenticate(loyaltyHandler.GetHistory()))
	routerMux.HandleFunc("GET /api/v1/loyalty/rewards", loyaltyHandler.ListRewards())
	routerMux.HandleFunc("POST /api/v1/loyalty/redeem", authMiddleware.Authenticate(loyaltyHandler.Redeem()))
	routerMux.HandleFunc("POST /api/v1/loyalty/preview-discount", authMiddleware.Authenticate(loyaltyHandler.PreviewDiscount()))

	routerMux.HandleFunc("POST /api/v1/orders/checkout",
		authMiddleware.Authenticate(checkoutRateLimit(orderHandler.Checkout())))
	routerMux.HandleFunc("GET /api/v1/orders/{id}", authMiddleware.Authenticate(orderHandler.GetOrder()))
	routerMux.HandleFunc("GET /api/v1/orders", authMiddleware.Authenticate(orderHandler.ListOrders()))
	routerMux.HandleFunc("POST /api/v1/orders/{id}/pay", authMiddleware.Authenticate(orderHandler.ConfirmPayment()))
	routerMux.HandleFunc("POST /api/v1/orders/{id}/cancel", authMiddleware.Authenticate(orderHandler.CancelOrder()))
	routerMux.HandleFunc("PATCH /api/v1/orders/{id}/status", authMiddleware.Authenticate(orderHandler.UpdateStatus()))

	routerMux.HandleFunc("POST /api/v1/payments/webhook", paymentHandler.HandleStripeWebhook())
	routerMux.HandleFunc("GET /api/v1/notifications", authMiddleware.Authenticate(notificationHandler.ListNotifications()))

	routerMux.Handle("GET /metrics", metrics.Handler())
	routerMux.Handle("GET /health", healthHandler.Handler())

	// Middleware chaining
	var handler http.Handler = routerMux
	handler = metrics.Middleware(handler)
	handler = middleware.Logging(handler)

	// Setup http server
	server := http.Server{
		Addr:    cfg.Addr,
		Handler: handler,
	}

	slog.Info("🚀 Server is starting...", slog.String("address", cfg.Addr))

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("❌ Failed to start server", slog.Any("error", err.Error()))
		}
	}()

	<-done

	slog.Warn("🛑 Shutdown signal received. Preparing to stop the server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("⚠️ Server shutdown encountered an issue", slog.String("error", err.Error()))
	} else {
		slog.Info("✅ Server shut down gracefully. All connections closed.")
	}
}
