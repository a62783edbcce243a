package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port              string
	DatabaseURL       string
	LogFile           string // empty means stdout only
	ShutdownGraceSecs int
}

// Load reads configuration from a .env file (if present) and the
// environment. Missing values fall back to defaults; DATABASE_URL unset
// means the server runs on in-memory storage.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:              getEnv("PORT", "8080"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		LogFile:           os.Getenv("LOG_FILE"),
		ShutdownGraceSecs: getEnvInt("SHUTDOWN_GRACE_SECS", 5),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
