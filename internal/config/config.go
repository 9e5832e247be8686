package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config keeps runtime settings for the planner.
type Config struct {
	TelegramToken string        `yaml:"telegram_token"`
	DatabaseURL   string        `yaml:"database_url"`
	HTTPAddr      string        `yaml:"http_addr"`
	JWTSecret     string        `yaml:"jwt_secret"`
	Timezone      string        `yaml:"timezone"`
	HorizonDays   int           `yaml:"horizon_days"`
	SweepAt       string        `yaml:"sweep_at"`
	SweepInterval time.Duration `yaml:"-"`
	SweepHours    int           `yaml:"sweep_interval_hours"`
	Log           LogConfig     `yaml:"log"`
}

// LogConfig selects log level, format environment and an optional file.
type LogConfig struct {
	Level       string `yaml:"level"`
	Environment string `yaml:"environment"`
	File        string `yaml:"file"`
}

const (
	defaultDatabaseURL = "shared_planner.db"
	defaultHTTPAddr    = ":8080"
	defaultHorizonDays = 14
	defaultSweepAt     = "00:05"
)

// Load reads an optional YAML file named by CONFIG_FILE, then applies
// environment variables on top, then fills sane defaults.
func Load() (Config, error) {
	var cfg Config

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		fileCfg, err := loadFile(path)
		if err != nil {
			return cfg, err
		}
		cfg = fileCfg
	}

	overrideString(&cfg.TelegramToken, "TELEGRAM_TOKEN")
	overrideString(&cfg.DatabaseURL, "DATABASE_URL")
	overrideString(&cfg.HTTPAddr, "HTTP_ADDR")
	overrideString(&cfg.JWTSecret, "JWT_SECRET")
	overrideString(&cfg.Timezone, "TIMEZONE")
	overrideString(&cfg.SweepAt, "SWEEP_AT")
	overrideString(&cfg.Log.Level, "LOG_LEVEL")
	overrideString(&cfg.Log.Environment, "ENV")
	overrideString(&cfg.Log.File, "LOG_FILE")

	if raw := strings.TrimSpace(os.Getenv("HORIZON_DAYS")); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days < 1 {
			return cfg, fmt.Errorf("HORIZON_DAYS must be a positive integer, got %q", raw)
		}
		cfg.HorizonDays = days
	}
	if raw := strings.TrimSpace(os.Getenv("SWEEP_INTERVAL_HOURS")); raw != "" {
		cfg.SweepHours = parseHours(raw)
	}

	applyDefaults(&cfg)

	if _, err := cfg.Location(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Location resolves the fixed timezone used for "today" and hourly triggers.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// RequireJWTSecret is checked by commands that serve authenticated requests.
func (c Config) RequireJWTSecret() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	return nil
}

func loadFile(path string) (Config, error) {
	var cfg Config
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = defaultDatabaseURL
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = defaultHTTPAddr
	}
	if cfg.HorizonDays <= 0 {
		cfg.HorizonDays = defaultHorizonDays
	}
	if cfg.SweepAt == "" {
		cfg.SweepAt = defaultSweepAt
	}
	if cfg.SweepHours > 0 {
		cfg.SweepInterval = time.Duration(cfg.SweepHours) * time.Hour
	}
}

func overrideString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func parseHours(raw string) int {
	hours, err := strconv.Atoi(raw)
	if err != nil || hours <= 0 {
		return 0
	}
	return hours
}
