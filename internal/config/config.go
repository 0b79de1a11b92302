// Package config загружает конфигурацию сервера: значения по умолчанию,
// поверх них YAML-файл (флаг -config), поверх него переменные окружения.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Имена переменных окружения
const (
	envListenAddr = "LEDGERKEEPER_LISTEN_ADDR"
	envDBPath     = "LEDGERKEEPER_DB_PATH"
	envJWTSecret  = "LEDGERKEEPER_JWT_SECRET"
	envLogLevel   = "LEDGERKEEPER_LOG_LEVEL"
	envRateLimit  = "LEDGERKEEPER_RATE_LIMIT"
)

// Config holds the server configuration.
type Config struct {
	ListenAddr      string        `yaml:"listen_addr"`
	DBPath          string        `yaml:"db_path"`
	JWTSecret       string        `yaml:"jwt_secret"`
	LogLevel        string        `yaml:"log_level"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl"`
	SyncTimeout     time.Duration `yaml:"sync_timeout"` // верхняя граница раунда, чтобы зависшая транзакция не голодила checkpoint
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	RateWindow      time.Duration `yaml:"rate_window"`
	RateLimit       int           `yaml:"rate_limit"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		ListenAddr:      ":8080",
		DBPath:          "ledgerkeeper.db",
		LogLevel:        "info",
		AccessTokenTTL:  15 * time.Minute,
		SyncTimeout:     30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		RateWindow:      time.Minute,
		RateLimit:       60,
	}
}

// Load собирает конфигурацию: defaults → YAML (если path не пуст) → env.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnv(cfg)

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt secret is required (set %s or jwt_secret in config)", envJWTSecret)
	}

	return cfg, nil
}

// applyEnv накладывает переменные окружения поверх cfg
func applyEnv(cfg *Config) {
	if v := os.Getenv(envListenAddr); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv(envDBPath); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(envJWTSecret); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv(envLogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv(envRateLimit); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RateLimit = n
		}
	}
}
