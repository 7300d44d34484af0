// Package main is the entry point for the relay server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/chatbridge-io/linerelay/internal/config"
	"github.com/chatbridge-io/linerelay/internal/events"
	"github.com/chatbridge-io/linerelay/internal/handler"
	"github.com/chatbridge-io/linerelay/internal/line"
	"github.com/chatbridge-io/linerelay/internal/llm"
	"github.com/chatbridge-io/linerelay/internal/middleware"
	"github.com/chatbridge-io/linerelay/internal/pipeline"
	"github.com/chatbridge-io/linerelay/internal/store"
	"github.com/chatbridge-io/linerelay/pkg/logger"
	"github.com/chatbridge-io/linerelay/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting relay server")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "linerelay", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Connect to Postgres
	convStore, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", zap.Error(err))
		os.Exit(1)
	}
	defer convStore.Close()

	// Initialize completion client
	apiKey := cfg.OpenAIAPIKey
	if llm.Provider(cfg.CompletionProvider) == llm.ProviderAnthropic {
		apiKey = cfg.AnthropicAPIKey
	}
	llmClient, err := llm.New(llm.Provider(cfg.CompletionProvider), llm.Options{
		APIKey:  apiKey,
		Model:   cfg.CompletionModel,
		Timeout: cfg.CompletionTimeout,
	})
	if err != nil {
		log.Error("failed to create completion client", zap.Error(err))
		os.Exit(1)
	}

	// Initialize reply client
	replyClient := line.NewReplyClient(cfg.LineChannelAccessToken)

	// Optionally connect the exchange publisher
	var publisher pipeline.ExchangePublisher
	var connChecker handler.ConnChecker
	if cfg.NATSURL != "" {
		pub, err := events.Connect(ctx, cfg.NATSURL, cfg.NATSToken, log)
		if err != nil {
			log.Error("failed to connect to NATS", zap.Error(err))
			os.Exit(1)
		}
		defer pub.Close()
		if err := pub.EnsureStream(ctx); err != nil {
			log.Error("failed to ensure stream", zap.Error(err))
			os.Exit(1)
		}
		publisher = pub
		connChecker = pub
	}

	// Initialize pipeline and handlers
	p := pipeline.New(llmClient, convStore, replyClient, publisher, log)
	webhookHandler := handler.NewWebhookHandler(p, convStore, log)
	healthHandler := handler.NewHealthHandler(cfg.AppURL, convStore, connChecker)

	// Create router
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(chimiddleware.Recoverer)

	r.Get("/", healthHandler.Root)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.With(middleware.LineSignature(cfg.LineChannelSecret)).
		Post(cfg.WebhookPath, webhookHandler.Receive)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
