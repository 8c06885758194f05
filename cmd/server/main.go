package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/leukaemiamedtech/hiascdi/internal/broker"
	entityhandler "github.com/leukaemiamedtech/hiascdi/internal/entities/handler"
	entityservice "github.com/leukaemiamedtech/hiascdi/internal/entities/service"
	entitystore "github.com/leukaemiamedtech/hiascdi/internal/entities/store"
	"github.com/leukaemiamedtech/hiascdi/internal/platform/config"
	"github.com/leukaemiamedtech/hiascdi/internal/platform/httpserver"
	"github.com/leukaemiamedtech/hiascdi/internal/platform/logger"
	"github.com/leukaemiamedtech/hiascdi/internal/platform/metrics"
	"github.com/leukaemiamedtech/hiascdi/internal/platform/middleware"
	platformmongo "github.com/leukaemiamedtech/hiascdi/internal/platform/mongo"
	"github.com/leukaemiamedtech/hiascdi/internal/subscriptions"
	"github.com/leukaemiamedtech/hiascdi/internal/telemetry"
	"github.com/leukaemiamedtech/hiascdi/internal/types"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the internal packages.
func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.New()

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer startupCancel()

	mongoClient, err := platformmongo.New(startupCtx, cfg)
	if err != nil {
		log.Error("mongo connection failed", "error", err.Error())
		os.Exit(1)
	}
	if err := mongoClient.EnsureIndexes(startupCtx); err != nil {
		log.Error("index creation failed", "error", err.Error())
		os.Exit(1)
	}

	m := metrics.New()

	entitySvc := entityservice.New(entitystore.NewMongo(mongoClient), log, m, cfg.APIVersion)
	typeSvc := types.NewService(types.NewMongoStore(mongoClient), log, cfg.APIVersion)
	subscriptionSvc := subscriptions.NewService(subscriptions.NewMongoStore(mongoClient), log, cfg.APIVersion)

	negotiator := broker.NewNegotiator(cfg.ContentTypes, log)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.Latency(m))

	// Prometheus scrapes stay outside content negotiation.
	router.Handle("/metrics", promhttp.Handler())

	router.Route("/"+cfg.APIVersion, func(r chi.Router) {
		r.Use(negotiator.Middleware)
		broker.NewDiscovery(cfg.APIVersion, log).Register(r)
		entityhandler.New(entitySvc, log).Register(r)
		types.NewHandler(typeSvc, log).Register(r)
		subscriptions.NewHandler(subscriptionSvc, log).Register(r)
	})

	srv := httpserver.New(cfg.Addr, router)

	monitorCtx, monitorCancel := context.WithCancel(context.Background())
	defer monitorCancel()
	monitor := telemetry.NewMonitor(cfg.TelemetryInterval, telemetry.NewLogPublisher(log), log)
	go monitor.Run(monitorCtx)

	log.Info("starting hiascdi broker", "addr", cfg.Addr, "api_version", cfg.APIVersion)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err.Error())
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	monitorCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err.Error())
	}
	if err := mongoClient.Close(ctx); err != nil {
		log.Error("mongo disconnect failed", "error", err.Error())
	}
}
