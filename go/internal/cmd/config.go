package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/openmat/scorecast/go/internal/session"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	API struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"api"`
	NATS struct {
		URL string `yaml:"url"`
	} `yaml:"nats"`
	Session struct {
		RequiredAssessorSlots    int `yaml:"required_assessor_slots"`
		DefaultDurationSec       int `yaml:"default_duration_sec"`
		TickIntervalMs           int `yaml:"tick_interval_ms"`
		CompletionGraceSec       int `yaml:"completion_grace_sec"`
		HistoryCap               int `yaml:"history_cap"`
		SnapshotRetryIntervalSec int `yaml:"snapshot_retry_interval_sec"`
	} `yaml:"session"`
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func loadConfig(path string) (*Config, error) {
	config := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// Environment variables override file values.
	config.Server.Port = getEnv("PORT", orDefault(config.Server.Port, "8080"))
	config.API.BaseURL = getEnv("SCORE_API_URL", orDefault(config.API.BaseURL, "http://localhost:3000"))
	config.NATS.URL = getEnv("NATS_URL", orDefault(config.NATS.URL, "nats://localhost:4222"))
	config.Session.RequiredAssessorSlots = getEnvAsInt("REQUIRED_ASSESSOR_SLOTS", orDefaultInt(config.Session.RequiredAssessorSlots, 5))
	config.Session.DefaultDurationSec = getEnvAsInt("DEFAULT_DURATION_SEC", orDefaultInt(config.Session.DefaultDurationSec, 120))
	config.Session.TickIntervalMs = getEnvAsInt("TICK_INTERVAL_MS", orDefaultInt(config.Session.TickIntervalMs, 500))
	config.Session.CompletionGraceSec = getEnvAsInt("COMPLETION_GRACE_SEC", orDefaultInt(config.Session.CompletionGraceSec, 5))
	config.Session.HistoryCap = getEnvAsInt("HISTORY_CAP", orDefaultInt(config.Session.HistoryCap, 100))
	config.Session.SnapshotRetryIntervalSec = getEnvAsInt("SNAPSHOT_RETRY_INTERVAL_SEC", orDefaultInt(config.Session.SnapshotRetryIntervalSec, 2))

	return config, nil
}

func orDefault(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

func orDefaultInt(value, fallback int) int {
	if value != 0 {
		return value
	}
	return fallback
}

func (c *Config) sessionConfig() session.Config {
	return session.Config{
		RequiredAssessorSlots:  c.Session.RequiredAssessorSlots,
		DefaultDurationSeconds: c.Session.DefaultDurationSec,
		TickInterval:           time.Duration(c.Session.TickIntervalMs) * time.Millisecond,
		CompletionGrace:        time.Duration(c.Session.CompletionGraceSec) * time.Second,
		HistoryCap:             c.Session.HistoryCap,
		SnapshotRetryInterval:  time.Duration(c.Session.SnapshotRetryIntervalSec) * time.Second,
	}
}
