package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"schoolattend/internal/attendance"
	"schoolattend/internal/auth"
	"schoolattend/internal/config"
	"schoolattend/internal/httpapi"
	"schoolattend/internal/httpmiddleware"
	"schoolattend/internal/leave"
	"schoolattend/internal/logger"
	"schoolattend/internal/notification"
	"schoolattend/internal/queue"
	"schoolattend/internal/realtime"
	"schoolattend/internal/store"
	"schoolattend/internal/user"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	// Set Gin mode based on environment
	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatal().Err(err).Msg("http server failed")
	}
}

func runHTTP(cfg config.App) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := store.Migrate(ctx, db.Client); err != nil {
		return err
	}

	redisClient := store.NewRedis(cfg.RedisAddr)

	var bus queue.Queue
	if cfg.QueueBackend == "memory" {
		bus = queue.NewInMemory(64)
	} else {
		bus = queue.NewRedisQueue(redisClient.Client, "schoolattend:events")
	}

	users := user.NewRepository(db.Client)
	attRepo := attendance.NewRepository(db.Client)
	leaveRepo := leave.NewRepository(db.Client)
	notes := notification.NewRepository(db.Client)

	authSvc := auth.NewService(users, cfg.JWTSigningKey, cfg.JWTIssuer, cfg.TokenTTL)
	attSvc := attendance.NewService(attRepo, users, bus)
	leaveSvc := leave.NewService(leaveRepo, users, notes)

	hub := realtime.NewHub(cfg.JWTSigningKey, cfg.JWTIssuer)
	go func() {
		if err := hub.Run(ctx, bus); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("realtime hub stopped")
		}
	}()

	r := gin.New()

	// Recovery middleware
	r.Use(gin.Recovery())

	// Custom logger
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))

	// CORS middleware
	r.Use(httpmiddleware.CORS())

	// Security headers
	r.Use(httpmiddleware.SecurityHeaders())

	// Rate limiting
	r.Use(httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db.Healthy(c.Request.Context())
		status := healthStatus(dbHealthy, redisHealthy, cfg.QueueBackend)
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	api := httpapi.New(authSvc, users, attSvc, leaveSvc, notes, hub, cfg.JWTSigningKey, cfg.JWTIssuer)
	api.Routes(r)

	// Graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")
	cancel()

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced shutdown")
	}

	log.Info().Msg("server exited")
	return nil
}

// healthStatus reports serving health. Redis only gates the status when it
// carries the event bus; with the in-memory backend it is informational.
func healthStatus(dbOK, redisOK bool, queueBackend string) int {
	if !dbOK {
		return http.StatusServiceUnavailable
	}
	if queueBackend != "memory" && !redisOK {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}
