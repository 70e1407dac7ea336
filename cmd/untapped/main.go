package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/untapped/api/swagger"
	"github.com/noah-isme/untapped/internal/app"
	"github.com/noah-isme/untapped/internal/handler"
	internalmiddleware "github.com/noah-isme/untapped/internal/middleware"
	"github.com/noah-isme/untapped/internal/untis"
	"github.com/noah-isme/untapped/pkg/config"
	"github.com/noah-isme/untapped/pkg/logger"
	corsmiddleware "github.com/noah-isme/untapped/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/untapped/pkg/middleware/requestid"
)

// @title Untapped bridge API
// @version 0.1.0
// @description Local bridge between the timetable web view and WebUntis
// @BasePath /api/v1
// @schemes http

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

	ctx := context.Background()
	a, err := app.New(ctx, cfg, logr)
	if err != nil {
		logr.Fatal("failed to wire services", zap.Error(err))
	}
	defer a.Close() //nolint:errcheck
	a.StartBackground(ctx)

	if cfg.Untis.User != "" && cfg.Untis.Password != "" {
		if _, err := a.Sessions.Login(ctx, untis.Credentials{}, false); err != nil {
			logr.Warn("initial login failed, waiting for the UI", zap.Error(err))
		}
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(a.Metrics))

	handler.Register(r, cfg.APIPrefix, handler.Handlers{
		Session:   handler.NewSessionHandler(a.Sessions, a.Validator),
		Reference: handler.NewReferenceHandler(a.Refs),
		Teacher:   handler.NewTeacherHandler(a.Teachers, a.Validator),
		Timetable: handler.NewTimetableHandler(a.Timetable, a.Exports, a.Validator),
		Settings:  handler.NewSettingsHandler(a.Config),
		Metrics:   handler.NewMetricsHandler(a.Metrics, a.Sessions),
	}, internalmiddleware.RequireSession(a.Sessions))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	logr.Sugar().Infow("bridge starting", "addr", addr, "env", cfg.Env, "school", cfg.Untis.School)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("bridge failed", "error", err)
	}
}
