package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/mstgnz/paygate/handler"
	"github.com/mstgnz/paygate/infra/config"
	"github.com/mstgnz/paygate/infra/conn"
	"github.com/mstgnz/paygate/infra/logger"
	"github.com/mstgnz/paygate/infra/middle"
	"github.com/mstgnz/paygate/infra/opensearch"
	"github.com/mstgnz/paygate/infra/response"
	"github.com/mstgnz/paygate/infra/validate"
	"github.com/mstgnz/paygate/order"
	"github.com/mstgnz/paygate/provider"
	"github.com/mstgnz/paygate/router"
	v1 "github.com/mstgnz/paygate/router/v1"
	"github.com/mstgnz/paygate/validation"
)

func main() {
	// Load Env
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}
	validate.CustomValidate()

	appCfg := config.GetAppConfig()

	osClient, err := opensearch.NewClient(appCfg)
	if err != nil {
		log.Printf("Failed to initialize OpenSearch client: %v", err)
	}
	audit := opensearch.NewLogger(osClient)

	var sink logger.EventSink
	if audit.IsEnabled() {
		sink = audit
	}
	logger.InitGlobalLogger(sink)

	payments, err := config.LoadPayments()
	if err != nil {
		logger.Fatal("Invalid payment configuration", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := conn.Open(ctx, payments.Tokens.DBDriver, payments.Tokens.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to open database", err)
	}
	defer db.Close()

	orders := order.NewStore(db)
	ledger := order.NewLedger(orders)
	if err := ledger.Migrate(ctx); err != nil {
		logger.Fatal("Failed to migrate order tables", err)
	}

	tokenStore, err := openTokenStore(ctx, payments.Tokens, db)
	if err != nil {
		logger.Fatal("Failed to open validation token store", err)
	}
	tokens := validation.NewService(tokenStore, payments.Tokens.TTL, payments.Tokens.FailOpen)

	factory := provider.NewFactory(payments)
	for gateway, configured := range factory.GetConfigurationStatus() {
		logger.Info("Gateway loaded", logger.LogContext{
			Gateway: string(gateway),
			Fields:  map[string]any{"configured": configured},
		})
	}

	r := chi.NewRouter()

	// Basic Middleware
	r.Use(middleware.RealIP)
	r.Use(middle.RequestLoggingMiddleware())
	r.Use(middle.PanicRecoveryMiddleware())
	r.Use(middleware.Timeout(60 * time.Second))

	// Security Middleware
	rateLimiter := middle.NewRateLimiter(appCfg.RateLimit)
	defer rateLimiter.Stop()
	r.Use(middle.SecurityHeadersMiddleware())
	r.Use(middle.RateLimitMiddleware(rateLimiter))
	r.Use(middle.RequestValidationMiddleware())

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{payments.BaseURL},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", middle.RequestIDHeader},
		ExposedHeaders: []string{middle.RequestIDHeader},
		MaxAge:         300, // Preflight cache time (second)
	}))

	health := handler.NewHealthHandler(db, factory, audit)
	r.Get("/health", health.CheckHealth)

	router.Routes(r, v1.Handlers{
		Payment: handler.NewPaymentHandler(factory, ledger, orders, audit, config.App().Validator),
		Gateway: handler.NewGatewayHandler(factory),
		Order:   handler.NewOrderHandler(tokens, orders, payments.BaseURL),
		Logs:    handler.NewLogsHandler(audit),
	}, appCfg.APIKey)

	// Not Found
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotFound, "Not Found", nil)
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", appCfg.Port),
		Handler:           r,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed", err)
		}
	}()

	logger.Info(fmt.Sprintf("API is running on %s", appCfg.Port))

	// Block until a signal is received
	<-ctx.Done()

	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", err)
	}
	if err := tokens.Close(); err != nil {
		logger.Warn("Failed to close validation token store", logger.LogContext{Fields: map[string]any{"error": err.Error()}})
	}
}

// openTokenStore prefers Redis and otherwise shares the order database
func openTokenStore(ctx context.Context, cfg config.TokenStore, db *sql.DB) (validation.Store, error) {
	if cfg.RedisURL != "" {
		return validation.OpenRedisStore(ctx, cfg.RedisURL)
	}
	store := validation.NewSQLStore(db)
	if err := store.Migrate(ctx); err != nil {
		return nil, err
	}
	return store, nil
}
