package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/zuritech/duka-api/internal/api"
	"github.com/zuritech/duka-api/internal/assist"
	"github.com/zuritech/duka-api/internal/audit"
	"github.com/zuritech/duka-api/internal/cache"
	"github.com/zuritech/duka-api/internal/cart"
	"github.com/zuritech/duka-api/internal/checkout"
	"github.com/zuritech/duka-api/internal/db"
	"github.com/zuritech/duka-api/internal/metrics"
	"github.com/zuritech/duka-api/internal/middleware"
	"github.com/zuritech/duka-api/internal/repository"
	"github.com/zuritech/duka-api/internal/services"
	"github.com/zuritech/duka-api/pkg/config"
	"github.com/zuritech/duka-api/pkg/token"
)

func main() {
	// Load configuration
	cfg := config.LoadConfig()

	// Initialize OpenTelemetry metrics
	ctx := context.Background()
	appMetrics, meterProvider, err := metrics.InitMetrics(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize metrics: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down meter provider: %v", err)
		}
	}()

	// Initialize database
	database, err := db.NewDB(cfg.GetDSN(), cfg.OTELServiceName)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	// Initialize schema
	schemaSQL, err := os.ReadFile("schema.sql")
	if err != nil {
		log.Printf("Warning: Could not read schema.sql: %v", err)
		log.Println("Assuming database schema already exists")
	} else {
		if err := database.InitSchema(ctx, string(schemaSQL)); err != nil {
			log.Printf("Warning: Could not initialize schema: %v", err)
			log.Println("Assuming database schema already exists")
		}
	}

	// Product cache: Redis when configured, in-process otherwise
	productCache := cache.NewMemoryCache()
	if cfg.RedisAddr != "" {
		if rc, err := cache.NewRedisCache(cfg.RedisAddr); err != nil {
			log.Printf("Warning: Redis unavailable at %s, using in-memory cache: %v", cfg.RedisAddr, err)
		} else {
			productCache = rc
		}
	}

	// Audit trail: no-op unless MONGO_URI is set
	recorder, err := audit.NewRecorder(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Printf("Warning: audit store unavailable, continuing without it: %v", err)
		recorder = &audit.Recorder{}
	}
	defer recorder.Close(ctx)

	// Repositories
	productRepo := repository.NewProductRepository(database, appMetrics)
	dealRepo := repository.NewDealRepository(database, appMetrics)
	orderRepo := repository.NewOrderRepository(database, appMetrics)
	listingRepo := repository.NewListingRepository(database, appMetrics)
	offerRepo := repository.NewOfferRepository(database, appMetrics)
	userRepo := repository.NewUserRepository(database, appMetrics)
	cartRepo := repository.NewCartRepository(database, appMetrics)

	// Stateful stores
	cartStore := cart.NewStore(cartRepo)
	sessions := checkout.NewManager()

	// Auth
	issuer := token.NewIssuer(cfg.JWTSecret, time.Duration(cfg.JWTTTLHours)*time.Hour)
	auth := middleware.NewAuthenticator(issuer)

	// Shopping assistant
	assistClient := assist.NewClient(cfg.AssistEndpoint, cfg.AssistAPIKey, cfg.AssistModel)

	// Services
	catalogService := services.NewCatalogService(productRepo, dealRepo, productCache, appMetrics)
	orderService := services.NewOrderService(orderRepo, userRepo, cartStore, sessions, recorder, appMetrics, cfg.WhatsAppPhone, cfg.TillNumber)
	marketService := services.NewMarketplaceService(listingRepo, offerRepo, recorder, appMetrics, cfg.WhatsAppPhone, cfg.StoreEmail)
	userService := services.NewUserService(userRepo, issuer, recorder)

	// Initialize app
	app := api.NewApp(cfg, database, appMetrics, auth,
		catalogService, orderService, marketService, userService,
		cartStore, cartRepo, sessions, assistClient)

	// Setup router
	router := mux.NewRouter()
	app.SetupRoutes(router)

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on port %s", cfg.AppPort)
		log.Printf("OTLP endpoint: %s", cfg.OTELExporterOTLPEndpoint)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
