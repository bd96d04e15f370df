package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"
)

// Config du daemon. Priorité: valeurs par défaut < fichier TOML < variables SCREENCRAFT_*.
// Les durées s'écrivent en chaînes Go ("30s", "10m"); "0" désactive.
type Config struct {
	Addr     string `toml:"addr"`
	DBPath   string `toml:"db_path"`
	LogLevel string `toml:"log_level"`

	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	CacheTTLRaw   string `toml:"cache_ttl"`

	RateLimitRPS   float64 `toml:"rate_limit_rps"`
	RateLimitBurst int     `toml:"rate_limit_burst"`

	ReconcileIntervalRaw string `toml:"reconcile_interval"`
	MaxPageSize          int    `toml:"max_page_size"`

	CacheTTL          time.Duration `toml:"-"`
	ReconcileInterval time.Duration `toml:"-"`
}

func builtin() Config {
	return Config{
		Addr:                 "127.0.0.1:4000",
		DBPath:               "screencraft.db",
		LogLevel:             "info",
		CacheTTLRaw:          "30s",
		RateLimitRPS:         0,
		ReconcileIntervalRaw: "10m",
		MaxPageSize:          100,
	}
}

// Default renvoie la configuration par défaut surchargée par l'environnement.
func Default() Config {
	cfg := builtin()
	applyEnv(&cfg)
	_ = cfg.normalize()
	return cfg
}

// Load lit le fichier TOML path s'il existe (path vide = aucun fichier).
// Le booléen indique si un fichier a été lu.
func Load(path string) (Config, bool, error) {
	cfg := builtin()

	exists := false
	if path = strings.TrimSpace(path); path != "" {
		file, err := os.Open(path)
		switch {
		case err == nil:
			defer file.Close()
			if err := toml.NewDecoder(file).DisallowUnknownFields().Decode(&cfg); err != nil {
				return Config{}, false, fmt.Errorf("parse config %s: %w", path, err)
			}
			exists = true
		case errors.Is(err, fs.ErrNotExist):
		default:
			return Config{}, false, fmt.Errorf("open config: %w", err)
		}
	}

	applyEnv(&cfg)
	if err := cfg.normalize(); err != nil {
		return Config{}, false, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, false, err
	}
	return cfg, exists, nil
}

func applyEnv(cfg *Config) {
	cfg.Addr = envOr("SCREENCRAFT_ADDR", cfg.Addr)
	cfg.DBPath = envOr("SCREENCRAFT_DB_PATH", cfg.DBPath)
	cfg.LogLevel = envOr("SCREENCRAFT_LOG_LEVEL", cfg.LogLevel)
	cfg.RedisAddr = envOr("SCREENCRAFT_REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = envOr("SCREENCRAFT_REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = envInt("SCREENCRAFT_REDIS_DB", cfg.RedisDB)
	cfg.CacheTTLRaw = envOr("SCREENCRAFT_CACHE_TTL", cfg.CacheTTLRaw)
	cfg.RateLimitRPS = envFloat("SCREENCRAFT_RATE_LIMIT_RPS", cfg.RateLimitRPS)
	cfg.RateLimitBurst = envInt("SCREENCRAFT_RATE_LIMIT_BURST", cfg.RateLimitBurst)
	cfg.ReconcileIntervalRaw = envOr("SCREENCRAFT_RECONCILE_INTERVAL", cfg.ReconcileIntervalRaw)
	cfg.MaxPageSize = envInt("SCREENCRAFT_MAX_PAGE_SIZE", cfg.MaxPageSize)
}

func (c *Config) normalize() error {
	c.Addr = strings.TrimSpace(c.Addr)
	c.DBPath = strings.TrimSpace(c.DBPath)
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.RedisAddr = strings.TrimSpace(c.RedisAddr)

	var err error
	if c.CacheTTL, err = parseDuration(c.CacheTTLRaw); err != nil {
		return fmt.Errorf("cache_ttl: %w", err)
	}
	if c.ReconcileInterval, err = parseDuration(c.ReconcileIntervalRaw); err != nil {
		return fmt.Errorf("reconcile_interval: %w", err)
	}
	return nil
}

// Validate vérifie que la configuration est utilisable.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.New("addr must not be empty")
	}
	if c.DBPath == "" {
		return errors.New("db_path must not be empty")
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if c.RedisDB < 0 {
		return errors.New("redis_db must be >= 0")
	}
	if c.CacheTTL < 0 || c.ReconcileInterval < 0 {
		return errors.New("durations must be >= 0")
	}
	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		return errors.New("rate limit must be >= 0")
	}
	if c.MaxPageSize < 1 {
		return errors.New("max_page_size must be >= 1")
	}
	return nil
}

func parseDuration(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "0" {
		return 0, nil
	}
	return time.ParseDuration(raw)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return def
}
