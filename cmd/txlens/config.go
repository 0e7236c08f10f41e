package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
)

// Config holds all txlens server configuration.
// Priority: env vars > settings.json > defaults.
type Config struct {
	ListenAddr    string `json:"listen_addr"`
	DBPath        string `json:"db_path"`
	LogLevel      string `json:"log_level"`
	Network       string `json:"network"`
	SpeedMs       int    `json:"speed_ms"`
	RetentionCron string `json:"retention_cron"`
	RetentionDays int    `json:"retention_days"`
}

func defaultConfig() Config {
	return Config{
		ListenAddr:    ":4200",
		DBPath:        filepath.Join(txlensDir(), "txlens.db"),
		LogLevel:      "info",
		Network:       "mainnet",
		SpeedMs:       1000,
		RetentionCron: "0 3 * * *",
		RetentionDays: 30,
	}
}

func txlensDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".txlens"
	}
	return filepath.Join(home, ".txlens")
}

func settingsPath() string {
	return filepath.Join(txlensDir(), "settings.json")
}

func loadConfig() Config {
	cfg := defaultConfig()

	// Layer 2: settings.json (ignore if missing).
	if data, err := os.ReadFile(settingsPath()); err == nil {
		_ = json.Unmarshal(data, &cfg)
	}

	// Layer 3: env vars override.
	if v := os.Getenv("TXLENS_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("TXLENS_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("TXLENS_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("TXLENS_NETWORK"); v != "" {
		cfg.Network = v
	}
	if v := os.Getenv("TXLENS_SPEED_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.SpeedMs = n
		}
	}
	if v := os.Getenv("TXLENS_RETENTION_CRON"); v != "" {
		cfg.RetentionCron = v
	}
	if v := os.Getenv("TXLENS_RETENTION_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RetentionDays = n
		}
	}

	return cfg
}
