package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ridehub/internal/config"
	handlers "ridehub/internal/handlers/shared"
	"ridehub/internal/middleware"
	"ridehub/internal/services"
	"ridehub/pkg/cache"
	"ridehub/pkg/events"
	"ridehub/pkg/logger"
	"ridehub/pkg/presence"
	"ridehub/pkg/websocket"
	"ridehub/routes"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := logger.NewLogger(&logger.Config{
		Level:   logger.LogLevel(cfg.App.LogLevel),
		Format:  cfg.App.LogFormat,
		Output:  cfg.App.LogOutput,
		Caller:  cfg.App.Debug,
		AppName: cfg.App.Name,
		Version: cfg.App.Version,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	if cfg.App.IsProduction() || !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var redisCache *cache.RedisCache
	if cfg.RedisRequired() {
		redisCache, err = cache.NewRedisCache(ctx, &cache.RedisConfig{
			Addr:         cfg.Redis.Addr(),
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to connect to Redis")
		}
		defer redisCache.Close()
	}

	repos, err := openRepositories(ctx, cfg, redisCache, appLogger)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to open store")
	}
	defer repos.close()

	// Presence
	registry := presence.NewRegistry(appLogger)
	if cfg.Presence.RedisEnabled {
		instanceID := cfg.Presence.InstanceID
		if instanceID == "" {
			instanceID = uuid.NewString()
		}
		directory := presence.NewRedisDirectory(redisCache.Client(), instanceID, cfg.Presence.EntryTTL, appLogger)
		if err := registry.UseDirectory(ctx, directory); err != nil {
			appLogger.WithError(err).Fatal("Failed to start presence directory")
		}
		go registry.KeepAlive(ctx, cfg.Presence.EntryTTL/3)
		appLogger.WithField("instance_id", instanceID).Info("Presence shared through Redis")
	}

	hub := websocket.NewHub(registry, websocket.Config{
		ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
		WriteBufferSize: cfg.WebSocket.WriteBufferSize,
		PingInterval:    cfg.WebSocket.PingInterval,
		PongTimeout:     cfg.WebSocket.PongTimeout,
		WriteTimeout:    cfg.WebSocket.WriteTimeout,
		MaxMessageSize:  cfg.WebSocket.MaxMessageSize,
		SendBufferSize:  cfg.WebSocket.SendBufferSize,
		AllowedOrigins:  cfg.WebSocket.AllowedOrigins,
	}, appLogger)
	go hub.Run(ctx)

	// Ride event stream
	publisher := events.NewNoopPublisher()
	if cfg.Kafka.Enabled {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.RideTopic, cfg.Kafka.WriteTimeout)
		appLogger.WithField("topic", cfg.Kafka.RideTopic).Info("Publishing ride events to Kafka")
	}

	// Services
	rideService := services.NewRideService(cfg.Ride, repos.rides, repos.riders, repos.drivers,
		repos.ignoredRides, repos.transactions, registry, publisher, appLogger)
	profileService := services.NewProfileService(cfg.Ride, repos.users, repos.riders, repos.drivers, appLogger)

	// Initialize Gin router
	router := gin.New()
	if err := router.SetTrustedProxies(cfg.Security.TrustedProxies); err != nil {
		appLogger.WithError(err).Fatal("Invalid trusted proxies")
	}
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware(cfg.Security.CORSAllowedOrigins))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware(appLogger))
	if cfg.App.MetricsEnabled {
		router.Use(middleware.MetricsMiddleware())
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	v1 := router.Group("/api/v1")
	{
		routes.SetupRideRoutes(v1, handlers.NewRideHandler(rideService), cfg.Security.JWTSecret)
		routes.SetupProfileRoutes(v1, handlers.NewProfileHandler(profileService), cfg.Security.JWTSecret)
	}

	router.GET(cfg.WebSocket.Path, websocket.NewHandler(hub, cfg.Security.JWTSecret).HandleWebSocket)

	// Health check
	router.GET("/health", func(c *gin.Context) {
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status, code := "healthy", http.StatusOK
		if err := repos.ping(pingCtx); err != nil {
			status, code = "unhealthy", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":      status,
			"version":     cfg.App.Version,
			"connections": hub.ClientCount(),
			"presence":    registry.Count(),
		})
	})

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.App.Host, cfg.App.Port),
		Handler: router,
	}

	go func() {
		appLogger.WithField("addr", server.Addr).Info("Starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.WithError(err).Fatal("Server failed")
		}
	}()

	<-ctx.Done()
	appLogger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Server shutdown failed")
	}

	<-hub.Done()
	if err := registry.Close(); err != nil {
		appLogger.WithError(err).Warn("Failed to close presence registry")
	}
	if err := publisher.Close(); err != nil {
		appLogger.WithError(err).Warn("Failed to close event publisher")
	}
}
