package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/mstgnz/coursepay/handler"
	"github.com/mstgnz/coursepay/infra/config"
	"github.com/mstgnz/coursepay/infra/logger"
	"github.com/mstgnz/coursepay/infra/metrics"
	"github.com/mstgnz/coursepay/infra/middle"
	"github.com/mstgnz/coursepay/infra/opensearch"
	"github.com/mstgnz/coursepay/infra/validate"
	"github.com/mstgnz/coursepay/provider"
	"github.com/mstgnz/coursepay/provider/cashfree"
	"github.com/mstgnz/coursepay/provider/events"
	"github.com/mstgnz/coursepay/provider/phonepe"
	"github.com/mstgnz/coursepay/provider/razorpay"
	"github.com/mstgnz/coursepay/router"
)

func main() {
	// .env is optional, real deployments pass the environment directly
	_ = godotenv.Load(".env")

	cfg := config.GetAppConfig()
	gateways := config.LoadGatewayConfig()

	openSearchLogger := initOpenSearch(cfg)
	logger.InitGlobalLogger(cfg, openSearchLogger)

	missing := gateways.Validate()
	for name, keys := range missing {
		logger.Warn("Payment gateway is not fully configured", logger.LogContext{
			Gateway: name,
			Fields:  map[string]any{"missing": keys},
		})
	}

	metrics.MustRegister()
	validator := validate.CustomValidate()

	urls := provider.CallbackURLs{Frontend: cfg.FrontendURL, Backend: cfg.BackendURL}
	registry := provider.NewRegistry(
		razorpay.NewProvider(gateways.Razorpay),
		phonepe.NewProvider(gateways.PhonePe, urls, cfg.GatewayTimeout),
		cashfree.NewProvider(gateways.Cashfree, urls, cfg.GatewayTimeout),
	)

	var indexer events.Indexer
	if openSearchLogger != nil {
		indexer = openSearchLogger
	}

	paymentService := provider.NewPaymentService(registry,
		provider.WithEventSink(events.NewRecorder(indexer)),
		provider.WithUpstreamTimeout(cfg.GatewayTimeout),
	)

	rateLimiter := middle.NewRateLimiter(cfg.RateLimit, cfg.RateBurst)
	defer rateLimiter.Stop()

	r := chi.NewRouter()

	// Basic Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middle.RequestLoggingMiddleware())
	r.Use(middle.PanicRecoveryMiddleware())

	// Security Middleware
	r.Use(middle.SecurityHeadersMiddleware())
	r.Use(middle.RequestValidationMiddleware())

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Origin", "X-Requested-With"},
		ExposedHeaders:   []string{"Content-Length", "X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300, // Preflight cache time (second)
	}))

	router.Routes(r, router.Handlers{
		Payment:     handler.NewPaymentHandler(paymentService, validator, cfg.IsProduction()),
		Health:      handler.NewHealthHandler(paymentService, missing),
		Metrics:     metrics.Handler(),
		RateLimiter: rateLimiter,
	})

	// Create a context that listens for interrupt and terminate signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           r,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server stopped", err)
		}
	}()

	logger.Info("API is running", logger.LogContext{Fields: map[string]any{
		"port":        cfg.Port,
		"environment": cfg.Environment,
		"gateways":    paymentService.Gateways(),
	}})

	// Block until a signal is received
	<-ctx.Done()

	logger.Info("Shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", err)
	}
}

func initOpenSearch(cfg *config.AppConfig) *opensearch.Logger {
	if !cfg.EnableOpenSearch {
		return nil
	}

	client, err := opensearch.NewClient(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "OpenSearch disabled: %v\n", err)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.SetupIndices(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "OpenSearch disabled: %v\n", err)
		return nil
	}
	return opensearch.NewLogger(client)
}
