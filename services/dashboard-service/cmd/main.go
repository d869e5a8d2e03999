package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/grigta/covid-tracker/pkg/cache"
	"github.com/grigta/covid-tracker/pkg/config"
	"github.com/grigta/covid-tracker/pkg/logger"
	"github.com/grigta/covid-tracker/pkg/messaging"
	dashconfig "github.com/grigta/covid-tracker/services/dashboard-service/internal/config"
	"github.com/grigta/covid-tracker/services/dashboard-service/internal/handlers"
	"github.com/grigta/covid-tracker/services/dashboard-service/internal/models"
	"github.com/grigta/covid-tracker/services/dashboard-service/internal/service"
)

func main() {
	cfg, err := config.LoadConfig(config.GetEnv("CONFIG_DIR", "./configs"))
	if err != nil {
		logger.Fatal("Failed to load config", logger.Err(err))
	}

	log := logger.ForService("dashboard-service", cfg.App.LogLevel, cfg.App.LogFormat)
	logger.SetDefault(log)

	dashCfg, err := dashconfig.LoadConfig(config.GetEnv("DASHBOARD_CONFIG_PATH", "./configs/dashboard_config.yaml"))
	if err != nil {
		log.WithError(err).Fatal("Failed to load dashboard config")
	}

	client := service.NewDiseaseClient(dashCfg.Upstream.BaseURL, dashCfg.Upstream.Timeout, dashCfg.Upstream.UserAgent, log)

	var (
		store     service.SnapshotStore
		factories []service.ListenerFactory
	)

	if dashCfg.Features.PersistSnapshots && cfg.Redis.Enabled() {
		redisCache, err := cache.NewRedisCache(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB, "covid:")
		if err != nil {
			log.WithError(err).Fatal("Failed to connect to Redis")
		}
		defer redisCache.Close()

		snapshots := service.NewRedisSnapshotStore(redisCache, dashCfg.Sessions.TTL, log)
		store = snapshots
		factories = append(factories, snapshots.Listener)
	}

	if dashCfg.Features.PublishEvents && cfg.RabbitMQ.Enabled() {
		rabbitmq, err := messaging.NewRabbitMQ(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			log.WithError(err).Fatal("Failed to connect to RabbitMQ")
		}
		defer rabbitmq.Close()

		events := service.NewEventPublisher(rabbitmq, cfg.RabbitMQ.Exchange, log)
		factories = append(factories, events.Listener)
	}

	defaults := service.MapDefaults{
		Center:      models.LatLng{Lat: dashCfg.Map.DefaultLat, Lng: dashCfg.Map.DefaultLng},
		Zoom:        dashCfg.Map.DefaultZoom,
		CountryZoom: dashCfg.Map.CountryZoom,
	}
	sessions := service.NewSessionRegistry(client, defaults, dashCfg.Sessions.TTL, store, log, factories...)

	handler := handlers.NewDashboardHandler(sessions, client, handlers.Options{
		TileURL:     dashCfg.Map.TileURL,
		HistoryDays: dashCfg.Upstream.HistoryDays,
		CookieName:  dashCfg.Sessions.CookieName,
		CookieTTL:   dashCfg.Sessions.TTL,
	}, log)

	router, stopMiddleware, err := handlers.SetupRouter(handler, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to set up router")
	}
	defer stopMiddleware()

	// No WriteTimeout: the state stream is long-lived.
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("Starting dashboard service",
			logger.Field{Key: "port", Value: cfg.App.Port},
			logger.Field{Key: "upstream", Value: dashCfg.Upstream.BaseURL},
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down dashboard service...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}

	log.Info("Server exited")
}
