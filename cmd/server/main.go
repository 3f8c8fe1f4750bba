// Command main is the entry point for the WebForum API server.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"webforum/internal/auth"
	"webforum/internal/bootstrap"
	"webforum/internal/config"
	"webforum/internal/middleware"
	"webforum/internal/observability"
	"webforum/internal/server"
	"webforum/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := middleware.ConfigureLogger(os.Stdout, cfg.IsProduction())
	observability.SetGlobalLogger(logger)

	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "webforum-api",
		ServiceVersion: "1.0.0",
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSampleRatio,
	})
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}

	rt, err := bootstrap.InitRuntime(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}

	tokens, err := auth.NewTokenIssuer(cfg.TokenConfig())
	if err != nil {
		log.Fatalf("Failed to configure tokens: %v", err)
	}

	srv := server.NewServer(cfg, server.Deps{
		Posts:    service.NewPostService(rt.Posts, rt.Users, rt.Tags, cfg.PostsCacheTTL()),
		Identity: service.NewIdentityService(rt.Users, tokens),
		Tokens:   tokens,
		DB:       rt.DB,
		Redis:    rt.Redis,
		Prom:     middleware.InitMetrics("webforum-api"),
	})

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("server shutdown error", "error", err)
		}
		rt.Close()
		if err := shutdownTracing(ctx); err != nil {
			logger.Error("tracing shutdown error", "error", err)
		}
	}()

	if err := srv.Start(); err != nil {
		log.Fatal(err)
	}
}
