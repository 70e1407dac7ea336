package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Teacher memo backends.
const (
	MemoSettings = "settings"
	MemoRedis    = "redis"
	MemoNone     = "none"
)

type Config struct {
	Env       string
	Host      string
	Port      int
	APIPrefix string

	Untis    UntisConfig
	Redis    RedisConfig
	CORS     CORSConfig
	Log      LogConfig
	Settings SettingsConfig
	Export   ExportConfig
	Memo     MemoConfig
	Prefetch PrefetchConfig
}

// UntisConfig describes the remote timetable service and the account used against it.
type UntisConfig struct {
	Server    string
	School    string
	User      string
	Password  string
	UserAgent string
	Timeout   time.Duration
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SettingsConfig locates the flat JSON settings file shared with the web view.
type SettingsConfig struct {
	Path string
}

// ExportConfig configures where rendered timetables are written.
type ExportConfig struct {
	Dir string
}

// MemoConfig selects where resolved teachers are remembered between runs.
type MemoConfig struct {
	Backend  string
	RedisKey string
	RedisTTL time.Duration
}

// PrefetchConfig sizes the background loader started after login. Zero workers disables it.
type PrefetchConfig struct {
	Workers int
}

// Load reads configuration from .env, the environment and defaults.
func Load() (*Config, error) {
	return LoadWith(viper.New())
}

// LoadWith reads configuration into v, which callers may have bound to
// command line flags beforehand.
func LoadWith(v *viper.Viper) (*Config, error) {
	_ = godotenv.Load()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Host = v.GetString("HOST")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Untis = UntisConfig{
		Server:    v.GetString("UNTIS_SERVER"),
		School:    v.GetString("UNTIS_SCHOOL"),
		User:      v.GetString("UNTIS_USER"),
		Password:  v.GetString("UNTIS_PASSWORD"),
		UserAgent: v.GetString("UNTIS_USERAGENT"),
		Timeout:   parseDuration(v.GetString("UNTIS_TIMEOUT"), 30*time.Second),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Settings = SettingsConfig{Path: expandHome(v.GetString("SETTINGS_PATH"))}
	cfg.Export = ExportConfig{Dir: expandHome(v.GetString("EXPORT_DIR"))}

	cfg.Memo = MemoConfig{
		Backend:  strings.ToLower(v.GetString("TEACHER_MEMO")),
		RedisKey: v.GetString("TEACHER_MEMO_REDIS_KEY"),
		RedisTTL: parseDuration(v.GetString("TEACHER_MEMO_REDIS_TTL"), 0),
	}

	cfg.Prefetch = PrefetchConfig{Workers: v.GetInt("PREFETCH_WORKERS")}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("HOST", "127.0.0.1")
	v.SetDefault("PORT", 8765)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("UNTIS_SERVER", "arche.webuntis.com")
	v.SetDefault("UNTIS_SCHOOL", "ap-hogeschool-antwerpen")
	v.SetDefault("UNTIS_USER", "")
	v.SetDefault("UNTIS_PASSWORD", "")
	v.SetDefault("UNTIS_USERAGENT", "untapped")
	v.SetDefault("UNTIS_TIMEOUT", "30s")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	v.SetDefault("SETTINGS_PATH", "~/.untapped/config.json")
	v.SetDefault("EXPORT_DIR", "./exports")

	v.SetDefault("TEACHER_MEMO", MemoSettings)
	v.SetDefault("TEACHER_MEMO_REDIS_KEY", "untapped:teachers")
	v.SetDefault("TEACHER_MEMO_REDIS_TTL", "")

	v.SetDefault("PREFETCH_WORKERS", 2)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}
