// Copyright 2026 The Rentora Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rentora/rentora/internal/audit"
	"github.com/rentora/rentora/internal/billing"
	"github.com/rentora/rentora/internal/config"
	"github.com/rentora/rentora/internal/observability/logger"
	"github.com/rentora/rentora/internal/observability/metrics"
	"github.com/rentora/rentora/internal/observability/tracing"
	"github.com/rentora/rentora/internal/resolver"
	"github.com/rentora/rentora/internal/store/postgres"
	"github.com/rentora/rentora/internal/subscription"
	"github.com/rentora/rentora/internal/tenant"
	"github.com/rentora/rentora/internal/tenantcache"
	transportHTTP "github.com/rentora/rentora/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.InitLogger(logger.Config{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
	})
	slog.Info("starting rentora tenant control plane")

	registry := postgres.NewRegistry(cfg.Registry.URL)

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := registry.Migrate(context.Background()); err != nil {
			fmt.Printf("Migration failed: %v\n", err)
			os.Exit(1)
		}
		slog.Info("registry schema applied")
		os.Exit(0)
	}

	ctx := context.Background()

	tracer, err := tracing.New(ctx, tracing.Config{
		Enabled:        cfg.Observability.OTELEnabled,
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
		SamplingRate:   1.0,
	})
	if err != nil {
		slog.Error("failed to initialize tracer", logger.Error(err))
	}
	defer tracer.Shutdown(ctx)

	meter, err := metrics.New(ctx, metrics.Config{
		Enabled: cfg.Observability.OTELEnabled,
	}, cfg.Observability.ServiceName)
	if err != nil {
		slog.Error("failed to initialize meter", logger.Error(err))
	}

	resolutions, err := meter.CreateCounter("tenant_resolutions_total", "Tenant resolution outcomes")
	if err != nil {
		slog.Error("failed to create resolution counter", logger.Error(err))
	}

	// Repositories over the registry database
	tenantRepo := postgres.NewTenantRepository(registry)
	merchantRepo := postgres.NewMerchantRepository(registry)
	subscriptionRepo := postgres.NewSubscriptionRepository(registry)

	auditLogger := audit.NewSlogLogger()

	// Connection cache, gate, resolver
	cache := tenantcache.New(tenantRepo, tenantcache.DefaultConnector(cfg.Tenant.PoolMaxConns, cfg.Tenant.PoolMinConns))
	gate := subscription.NewGate(merchantRepo, subscriptionRepo, nil)
	res := resolver.New(cache, gate, cfg.Server.BaseDomain, resolutions)

	tenantService := tenant.NewService(tenantRepo, cache, auditLogger)
	billingService := billing.NewService(subscriptionRepo, tenantRepo, auditLogger)

	handler := transportHTTP.NewHandler(
		tenantService,
		tenantRepo,
		subscriptionRepo,
		cache,
		res,
		billingService,
		auditLogger,
		cfg.Admin.JWTSecret,
		cfg.Billing.StripeWebhookSecret,
	)

	rateLimiter := transportHTTP.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	router := transportHTTP.NewRouter(handler, rateLimiter)

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		slog.Info("http server listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("http server failed", logger.Error(err))
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown failed", logger.Error(err))
	}

	// Drain cached tenant pools before exit
	if err := cache.Clear(shutdownCtx); err != nil {
		slog.Error("failed to drain tenant cache", logger.Error(err))
	}

	slog.Info("shutdown complete")
}
