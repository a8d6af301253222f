package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/chachabrian/railparcel-backend/internal/config"
	"github.com/chachabrian/railparcel-backend/internal/database"
	"github.com/chachabrian/railparcel-backend/internal/handlers"
	"github.com/chachabrian/railparcel-backend/internal/middleware"
	"github.com/chachabrian/railparcel-backend/internal/services"
	"github.com/chachabrian/railparcel-backend/pkg/logger"
	"github.com/chachabrian/railparcel-backend/pkg/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 30 * time.Second

func runServer(ctx context.Context, cfg *config.Config) error {
	db, err := database.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	hub := services.NewHub()
	go hub.Run(hubCtx)

	notifier := services.MultiNotifier{hub}
	var limiter *services.RateLimiter
	if cfg.Redis.URL != "" {
		client, err := services.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			logger.Warn("redis unavailable, OTP rate limiting and event publishing disabled", "error", err)
		} else {
			defer client.Close()
			limiter = services.NewRateLimiter(client, cfg.OTP.RateLimit, cfg.OTP.RateWindow)
			notifier = append(notifier, services.NewRedisPublisher(client))
		}
	}

	storage, err := services.NewStorage(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	channels := services.Channels(cfg.Email)
	if len(channels) == 0 {
		logger.Warn("no email channel configured, OTP codes will only be logged")
	}

	tokens := utils.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL)
	deps := handlers.Deps{
		DB:          db,
		AuthHeader:  cfg.Auth.Header,
		PhoneRegion: cfg.OTP.PhoneRegion,
		Auth: services.NewAuthService(db, tokens,
			services.NewDeliveryChain(cfg.Email.DeliveryTimeout, channels...),
			cfg.OTP,
			services.WithRateLimiter(limiter),
		),
		Parcels:  services.NewParcelService(db, storage, notifier),
		Messages: services.NewMessageService(db, notifier),
		Stations: services.NewStationService(db, cfg.OTP.PhoneRegion),
		Hub:      hub,
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      newRouter(cfg, deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Server.Port, "db_driver", cfg.Database.Driver, "s3", cfg.Storage.UseS3())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server exited")
	return nil
}

func newRouter(cfg *config.Config, deps handlers.Deps) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.RequestLogger())
	r.MaxMultipartMemory = 8 << 20

	corsConfig := cors.DefaultConfig()
	if len(cfg.Server.CORSOrigins) == 1 && cfg.Server.CORSOrigins[0] == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.Server.CORSOrigins
	}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", cfg.Auth.Header, middleware.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{middleware.RequestIDHeader}
	r.Use(cors.New(corsConfig))

	if !cfg.Storage.UseS3() {
		r.Static("/uploads", cfg.Storage.UploadDir)
	}

	handlers.RegisterRoutes(r, deps)
	return r
}
