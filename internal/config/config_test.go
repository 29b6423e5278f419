package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "LISTEN_ADDR", "DATABASE_PATH", "SESSION_SECRET", "GIN_MODE",
		"TRACKER_MUTATION_COOLDOWN", "TRACKER_SESSION_TTL", "PETAL_SPRING_FREQUENCY", "PETAL_FPS", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.ListenAddr != ":8080" || cfg.DatabasePath != "petallog.db" || cfg.GinMode != "release" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.MutationCooldown != 900*time.Millisecond || cfg.SessionTTL != 30*time.Minute {
		t.Fatalf("unexpected tracker defaults: %+v", cfg)
	}
	if cfg.SpringFrequency != 6 || cfg.FPS != 60 || cfg.LogLevel != slog.LevelInfo {
		t.Fatalf("unexpected petal defaults: %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("LISTEN_ADDR", "")
	t.Setenv("TRACKER_MUTATION_COOLDOWN", "1.5s")
	t.Setenv("TRACKER_SESSION_TTL", "not-a-duration")
	t.Setenv("PETAL_SPRING_FREQUENCY", "8.5")
	t.Setenv("PETAL_FPS", "-1")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := Load()
	if cfg.ListenAddr != ":9000" {
		t.Fatalf("listen addr should follow port, got %s", cfg.ListenAddr)
	}
	if cfg.MutationCooldown != 1500*time.Millisecond {
		t.Fatalf("unexpected cooldown %v", cfg.MutationCooldown)
	}
	if cfg.SessionTTL != 30*time.Minute {
		t.Fatalf("invalid duration should fall back, got %v", cfg.SessionTTL)
	}
	if cfg.SpringFrequency != 8.5 || cfg.FPS != 60 {
		t.Fatalf("unexpected petal config: %+v", cfg)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Fatalf("unexpected log level %v", cfg.LogLevel)
	}
}
