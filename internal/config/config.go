package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/text/currency"
)

type Driver string

const (
	DriverFile     Driver = "file"
	DriverPostgres Driver = "postgres"
	DriverRedis    Driver = "redis"
	DriverMemory   Driver = "memory"
)

var drivers = []Driver{DriverFile, DriverPostgres, DriverRedis, DriverMemory}

type Config struct {
	APIBaseURL     string
	Storage        StorageConfig
	Profile        string
	RequestTimeout time.Duration
	Currency       currency.Unit
	LogLevel       slog.Level
	MetricsAddr    string
	RedirectDelay  time.Duration
}

type StorageConfig struct {
	Driver      Driver
	Path        string
	DatabaseURL string
	RedisURL    string
}

// Load reads .env files when present, then the environment.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("godotenv.Load: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from lookup, applying defaults for unset values.
func FromEnv(lookup func(string) string) (Config, error) {
	get := func(key, def string) string {
		if v := lookup(key); v != "" {
			return v
		}
		return def
	}

	cfg := Config{
		APIBaseURL:  get("API_BASE_URL", "http://localhost:8000/api"),
		Profile:     get("PROFILE", "default"),
		MetricsAddr: lookup("METRICS_ADDR"),
		Storage: StorageConfig{
			Driver:      Driver(get("STORAGE_DRIVER", string(DriverFile))),
			Path:        get("STORAGE_PATH", defaultStoragePath()),
			DatabaseURL: lookup("DATABASE_URL"),
			RedisURL:    get("REDIS_URL", "redis://localhost:6379/0"),
		},
	}

	var errs []error

	if !slices.Contains(drivers, cfg.Storage.Driver) {
		errs = append(errs, fmt.Errorf("STORAGE_DRIVER %q is not one of %v", cfg.Storage.Driver, drivers))
	}
	if cfg.Storage.Driver == DriverPostgres && cfg.Storage.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required for the postgres driver"))
	}

	var err error
	if cfg.RequestTimeout, err = duration(get("REQUEST_TIMEOUT", "15s")); err != nil {
		errs = append(errs, fmt.Errorf("REQUEST_TIMEOUT: %w", err))
	}
	if cfg.RedirectDelay, err = duration(get("REDIRECT_DELAY", "2s")); err != nil {
		errs = append(errs, fmt.Errorf("REDIRECT_DELAY: %w", err))
	}
	if cfg.Currency, err = currency.ParseISO(get("CURRENCY", "NPR")); err != nil {
		errs = append(errs, fmt.Errorf("CURRENCY: %w", err))
	}
	if err = cfg.LogLevel.UnmarshalText([]byte(get("LOG_LEVEL", "INFO"))); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}

	return cfg, errors.Join(errs...)
}

func duration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", d)
	}
	return d, nil
}

func defaultStoragePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "storefront.json"
	}
	return filepath.Join(dir, "storefront", "storage.json")
}
