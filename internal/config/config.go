package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the settings of the extstats CLI.
type Config struct {
	// Statistics endpoint root, e.g. https://stats.example.com
	BaseURL string

	LogLevel string
	LogFile  string

	// Chart image size in points.
	ChartWidthPt  int
	ChartHeightPt int
}

// Load reads configuration from environment variables and an optional .env file.
// A missing .env file is fine; an unreadable one is an error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load .env: %w", err)
		}
		slog.Debug("no .env file found")
	}

	cfg := &Config{
		BaseURL:       getEnvOrDefault("EXTSTATS_BASE_URL", "http://localhost:8080"),
		LogLevel:      strings.ToLower(getEnvOrDefault("EXTSTATS_LOG_LEVEL", "info")),
		LogFile:       getEnvOrDefault("EXTSTATS_LOG_FILE", "logs/extstats.log"),
		ChartWidthPt:  getEnvIntOrDefault("EXTSTATS_CHART_WIDTH_PT", 576),
		ChartHeightPt: getEnvIntOrDefault("EXTSTATS_CHART_HEIGHT_PT", 288),
	}
	if cfg.ChartWidthPt < 72 {
		cfg.ChartWidthPt = 72
	}
	if cfg.ChartHeightPt < 72 {
		cfg.ChartHeightPt = 72
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
