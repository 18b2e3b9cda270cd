// Package config loads the runtime configuration of the qrstyle command from
// environment variables. A .env file, when present, is read first; variables
// already set in the environment take precedence over it.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/esimov/qrstyle/asset"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	AssetRootKey      = "QRSTYLE_ASSET_ROOT"
	HTTPTimeoutKey    = "QRSTYLE_HTTP_TIMEOUT"
	MaxAssetBytesKey  = "QRSTYLE_MAX_ASSET_BYTES"
	CacheSizeKey      = "QRSTYLE_CACHE_SIZE"
	WorkersKey        = "QRSTYLE_WORKERS"
	BestEffortLogoKey = "QRSTYLE_BEST_EFFORT_LOGO"
	JPEGQualityKey    = "QRSTYLE_JPEG_QUALITY"

	// Read by the logger package.
	LogEnvKey   = "LOG_ENV"
	LogLevelKey = "LOG_LEVEL"
)

// Config holds the settings shared by every render of a run.
type Config struct {
	// AssetRoot confines local logo references to a directory. Empty allows any path.
	AssetRoot      string
	HTTPTimeout    time.Duration
	MaxAssetBytes  int64
	CacheSize      int
	Workers        int
	BestEffortLogo bool
	JPEGQuality    int
}

// LoadEnv reads the given .env files (".env" when none is given) into the
// process environment. It fails when a file cannot be read.
func LoadEnv(files ...string) error {
	return godotenv.Load(files...)
}

// Load reads the configuration from the environment. Malformed values are
// reported as warnings and replaced by their defaults.
func Load(logger *zap.Logger) (*Config, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg := &Config{
		AssetRoot:      getEnv(AssetRootKey, ""),
		HTTPTimeout:    parseDuration(logger, HTTPTimeoutKey, "10s", 10*time.Second),
		MaxAssetBytes:  int64(parseInt(logger, MaxAssetBytesKey, strconv.Itoa(asset.DefaultMaxBytes), asset.DefaultMaxBytes)),
		CacheSize:      parseInt(logger, CacheSizeKey, strconv.Itoa(asset.DefaultCacheSize), asset.DefaultCacheSize),
		Workers:        parseInt(logger, WorkersKey, strconv.Itoa(runtime.NumCPU()), runtime.NumCPU()),
		BestEffortLogo: parseBool(getEnv(BestEffortLogoKey, "false")),
		JPEGQuality:    parseInt(logger, JPEGQualityKey, "100", 100),
	}

	if cfg.AssetRoot != "" {
		fi, err := os.Stat(cfg.AssetRoot)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", AssetRootKey, err)
		}
		if !fi.IsDir() {
			return nil, fmt.Errorf("invalid %s: %s is not a directory", AssetRootKey, cfg.AssetRoot)
		}
	}
	if cfg.MaxAssetBytes <= 0 {
		return nil, fmt.Errorf("%s must be positive, got %d", MaxAssetBytesKey, cfg.MaxAssetBytes)
	}
	if cfg.CacheSize <= 0 {
		return nil, fmt.Errorf("%s must be positive, got %d", CacheSizeKey, cfg.CacheSize)
	}
	if cfg.JPEGQuality < 1 || cfg.JPEGQuality > 100 {
		return nil, fmt.Errorf("%s must be between 1 and 100, got %d", JPEGQualityKey, cfg.JPEGQuality)
	}

	logger.Debug("configuration loaded",
		zap.String("asset_root", cfg.AssetRoot),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Int64("max_asset_bytes", cfg.MaxAssetBytes),
		zap.Int("cache_size", cfg.CacheSize),
		zap.Int("workers", cfg.Workers),
		zap.Bool("best_effort_logo", cfg.BestEffortLogo),
	)
	return cfg, nil
}

// Store returns the asset store described by the configuration, with a
// read-through cache in front of it.
func (c *Config) Store() *asset.Cache {
	return asset.NewCache(&asset.Router{
		HTTP: &asset.HTTPStore{
			Client:   asset.NewHTTPStore(c.HTTPTimeout).Client,
			MaxBytes: c.MaxAssetBytes,
		},
		File: &asset.FileStore{Root: c.AssetRoot, MaxBytes: c.MaxAssetBytes},
		Data: asset.DataStore{},
	}, c.CacheSize)
}

// getEnv retrieves the value of the environment variable for the given key.
// If the variable is not set or empty, it returns the provided defaultValue.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(logger *zap.Logger, key, defaultValue string, fallback int) int {
	v := getEnv(key, defaultValue)
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		logger.Warn(fmt.Sprintf("Invalid %s, using default", key),
			zap.String("value", v),
			zap.Int("default", fallback),
			zap.Error(err))
		return fallback
	}
	return i
}

// parseDuration falls back to the default for malformed or non-positive durations.
func parseDuration(logger *zap.Logger, key, defaultValue string, fallback time.Duration) time.Duration {
	v := getEnv(key, defaultValue)
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		logger.Warn(fmt.Sprintf("Invalid %s, using default", key),
			zap.String("value", v),
			zap.Duration("default", fallback),
			zap.Error(err))
		return fallback
	}
	if d <= 0 {
		return fallback
	}
	return d
}

func parseBool(value string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	return v == "true" || v == "1" || v == "yes"
}
