package app

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/untapped/internal/repository"
	"github.com/noah-isme/untapped/internal/service"
	"github.com/noah-isme/untapped/internal/untis"
	"github.com/noah-isme/untapped/pkg/cache"
	"github.com/noah-isme/untapped/pkg/config"
	"github.com/noah-isme/untapped/pkg/settings"
	"github.com/noah-isme/untapped/pkg/storage"
)

// App holds the wired services shared by the bridge server and the CLI.
type App struct {
	Validator *validator.Validate
	Settings  *settings.Store
	Metrics   *service.MetricsService
	Sessions  *service.SessionService
	Refs      *service.ReferenceService
	Teachers  *service.TeacherDirectory
	Timetable *service.TimetableService
	Exports   *service.ExportService
	Config    *service.SettingsService
	Prefetch  *service.PrefetchService

	redis *redis.Client
}

// New wires the services for cfg and warms the teacher directory from the
// configured memo.
func New(ctx context.Context, cfg *config.Config, logr *zap.Logger) (*App, error) {
	validate := validator.New()

	store, err := settings.Open(cfg.Settings.Path)
	if err != nil {
		return nil, fmt.Errorf("open settings: %w", err)
	}
	exportDir, err := storage.NewLocalStorage(cfg.Export.Dir)
	if err != nil {
		return nil, err
	}

	a := &App{Validator: validate, Settings: store, Metrics: service.NewMetricsService()}

	memo, err := a.teacherMemo(ctx, cfg, logr)
	if err != nil {
		return nil, err
	}

	factory := service.UntisGatewayFactory(
		untis.WithTimeout(cfg.Untis.Timeout),
		untis.WithLogger(logr.Named("untis")),
		untis.WithValidator(validate),
	)
	defaults := untis.Credentials{
		Server:    cfg.Untis.Server,
		School:    cfg.Untis.School,
		User:      cfg.Untis.User,
		Password:  cfg.Untis.Password,
		UserAgent: cfg.Untis.UserAgent,
	}
	a.Sessions = service.NewSessionService(factory, defaults, logr.Named("session"))
	a.Refs = service.NewReferenceService(a.Sessions, a.Metrics, logr.Named("reference"))
	a.Teachers = service.NewTeacherDirectory(a.Sessions, memo, a.Metrics, logr.Named("teachers"))
	a.Timetable = service.NewTimetableService(a.Sessions, a.Refs, a.Teachers, validate, logr.Named("timetable"))
	a.Exports = service.NewExportService(a.Timetable, exportDir, logr.Named("export"))
	a.Config = service.NewSettingsService(store, logr.Named("settings"))

	a.Sessions.OnReset(a.Refs.Reset)
	a.Sessions.OnReset(func() {
		if err := a.Teachers.Reset(context.Background(), false); err != nil {
			logr.Warn("teacher directory reset failed", zap.Error(err))
		}
		if _, err := a.Teachers.Warm(context.Background()); err != nil {
			logr.Warn("teacher memo reload failed", zap.Error(err))
		}
	})

	if cfg.Prefetch.Workers > 0 {
		a.Prefetch = service.NewPrefetchService(a.Refs, a.Teachers, cfg.Prefetch.Workers, logr.Named("prefetch"))
		a.Sessions.OnLogin(a.Prefetch.Schedule)
	}

	n, err := a.Teachers.Warm(ctx)
	if err != nil {
		logr.Warn("teacher memo unavailable", zap.Error(err))
	} else if n > 0 {
		logr.Info("remembered teachers loaded", zap.Int("count", n))
	}
	return a, nil
}

// StartBackground launches the prefetch workers when enabled.
func (a *App) StartBackground(ctx context.Context) {
	if a.Prefetch != nil {
		a.Prefetch.Start(ctx)
	}
}

// Close stops background work and releases external connections.
func (a *App) Close() error {
	if a.Prefetch != nil {
		a.Prefetch.Stop()
	}
	if a.redis != nil {
		return a.redis.Close()
	}
	return nil
}

func (a *App) teacherMemo(ctx context.Context, cfg *config.Config, logr *zap.Logger) (service.TeacherMemo, error) {
	switch cfg.Memo.Backend {
	case config.MemoNone:
		return nil, nil
	case config.MemoRedis:
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		a.redis = client
		return repository.NewRedisTeacherMemo(client, cfg.Memo.RedisKey, cfg.Memo.RedisTTL, logr.Named("memo")), nil
	case config.MemoSettings, "":
		return repository.NewSettingsTeacherMemo(a.Settings, service.TeachersSettingKey), nil
	}
	return nil, fmt.Errorf("unknown teacher memo backend %q", cfg.Memo.Backend)
}
