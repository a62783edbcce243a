package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("LOG_FILE", "")
	t.Setenv("SHUTDOWN_GRACE_SECS", "")

	cfg := Load()
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want %q", cfg.Port, "8080")
	}
	if cfg.DatabaseURL != "" {
		t.Errorf("DatabaseURL = %q, want empty", cfg.DatabaseURL)
	}
	if cfg.LogFile != "" {
		t.Errorf("LogFile = %q, want empty", cfg.LogFile)
	}
	if cfg.ShutdownGraceSecs != 5 {
		t.Errorf("ShutdownGraceSecs = %d, want 5", cfg.ShutdownGraceSecs)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("DATABASE_URL", "postgres://localhost/duel")
	t.Setenv("LOG_FILE", "/tmp/duel.log")
	t.Setenv("SHUTDOWN_GRACE_SECS", "30")

	cfg := Load()
	if cfg.Port != "9999" {
		t.Errorf("Port = %q, want %q", cfg.Port, "9999")
	}
	if cfg.DatabaseURL != "postgres://localhost/duel" {
		t.Errorf("DatabaseURL = %q, want %q", cfg.DatabaseURL, "postgres://localhost/duel")
	}
	if cfg.LogFile != "/tmp/duel.log" {
		t.Errorf("LogFile = %q, want %q", cfg.LogFile, "/tmp/duel.log")
	}
	if cfg.ShutdownGraceSecs != 30 {
		t.Errorf("ShutdownGraceSecs = %d, want 30", cfg.ShutdownGraceSecs)
	}
}

func TestLoadBadIntFallsBack(t *testing.T) {
	t.Setenv("SHUTDOWN_GRACE_SECS", "soon")

	cfg := Load()
	if cfg.ShutdownGraceSecs != 5 {
		t.Errorf("ShutdownGraceSecs = %d, want fallback 5", cfg.ShutdownGraceSecs)
	}
}
