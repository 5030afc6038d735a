package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/acadgrid/timetable-api/api/swagger"
	"github.com/acadgrid/timetable-api/internal/handler"
	"github.com/acadgrid/timetable-api/internal/middleware"
	"github.com/acadgrid/timetable-api/internal/models"
	"github.com/acadgrid/timetable-api/internal/repository"
	"github.com/acadgrid/timetable-api/internal/service"
	"github.com/acadgrid/timetable-api/pkg/cache"
	"github.com/acadgrid/timetable-api/pkg/config"
	"github.com/acadgrid/timetable-api/pkg/database"
	"github.com/acadgrid/timetable-api/pkg/logger"
	corsmiddleware "github.com/acadgrid/timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/acadgrid/timetable-api/pkg/middleware/requestid"
)

// @title AcadGrid Timetable API
// @version 1.0.0
// @description Constraint based timetable generation, conflict analysis, and what-if simulation
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	var mirror service.RunMirror
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to redis", "error", err)
		}
		defer redisClient.Close()
		mirror = repository.NewRunCache(redisClient, cfg.Runs.CacheTTL)
	}

	validate := validator.New()
	metrics := service.NewMetricsService()
	httpMetrics := middleware.NewHTTPMetrics(metrics.Registerer())

	snapshots := repository.NewSnapshotRepository(db)
	users := repository.NewUserRepository(db)

	timetableSvc := service.NewTimetableService(snapshots, mirror, validate, logr, metrics, cfg.Engine, cfg.Runs)
	authSvc := service.NewAuthService(users, validate, logr, cfg.JWT)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	timetableSvc.Start(ctx)
	defer timetableSvc.Stop()

	timetableHandler := handler.NewTimetableHandler(timetableSvc, logr)
	authHandler := handler.NewAuthHandler(authSvc, logr)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(httpMetrics.Handler())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	timetable := api.Group("/timetable", middleware.JWTAuth(authSvc))
	{
		// Viewers may read runs and exports; generation and analysis need
		// scheduler rights.
		timetable.GET("/runs/:id", timetableHandler.GetRun)
		timetable.GET("/runs/:id/export", timetableHandler.Export)

		scheduling := timetable.Group("", middleware.RequireRoles(models.RoleScheduler))
		scheduling.POST("/generate", timetableHandler.Generate)
		scheduling.POST("/generate/async", timetableHandler.GenerateAsync)
		scheduling.POST("/conflicts/detect", timetableHandler.DetectConflicts)
		scheduling.POST("/runs/:id/resolutions", timetableHandler.SuggestResolutions)
		scheduling.POST("/simulate", timetableHandler.Simulate)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
