package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	for _, key := range []string{"EXTSTATS_BASE_URL", "EXTSTATS_LOG_LEVEL", "EXTSTATS_LOG_FILE", "EXTSTATS_CHART_WIDTH_PT", "EXTSTATS_CHART_HEIGHT_PT"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BaseURL != "http://localhost:8080" || cfg.LogLevel != "info" || cfg.LogFile != "logs/extstats.log" {
		t.Errorf("Load() = %+v", cfg)
	}
	if cfg.ChartWidthPt != 576 || cfg.ChartHeightPt != 288 {
		t.Errorf("chart size = %dx%d; want 576x288", cfg.ChartWidthPt, cfg.ChartHeightPt)
	}
}

func TestLoadFromEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("EXTSTATS_BASE_URL", "https://stats.example.com")
	t.Setenv("EXTSTATS_LOG_LEVEL", "DEBUG")
	t.Setenv("EXTSTATS_CHART_WIDTH_PT", "10")
	t.Setenv("EXTSTATS_CHART_HEIGHT_PT", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BaseURL != "https://stats.example.com" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q; want debug", cfg.LogLevel)
	}
	if cfg.ChartWidthPt != 72 {
		t.Errorf("ChartWidthPt = %d; want clamped to 72", cfg.ChartWidthPt)
	}
	if cfg.ChartHeightPt != 288 {
		t.Errorf("ChartHeightPt = %d; want default 288", cfg.ChartHeightPt)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("EXTSTATS_BASE_URL", "")
	// godotenv does not override variables that are already set, so unset it.
	os.Unsetenv("EXTSTATS_BASE_URL")

	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("EXTSTATS_BASE_URL=https://dotenv.example.com\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BaseURL != "https://dotenv.example.com" {
		t.Errorf("BaseURL = %q; want value from .env", cfg.BaseURL)
	}
}

func TestLoadUnreadableDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	if err := os.Mkdir(filepath.Join(dir, ".env"), 0o755); err != nil {
		t.Fatalf("mkdir .env: %v", err)
	}

	if _, err := Load(); err == nil {
		t.Fatal("Load() returned nil error for unreadable .env")
	}
}

// chdir changes the working directory for the duration of the test, like
// testing.T.Chdir (Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd() error = %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir(%q) error = %v", dir, err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatalf("Chdir(%q) error = %v", old, err)
		}
	})
}
