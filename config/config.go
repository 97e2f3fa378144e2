package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// HTTP
	ListenAddr string

	// Market data
	Symbol      string
	FeedBaseURL string

	// Session storage: "sqlite", "redis" or "memory"
	StoreBackend  string
	SQLitePath    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Settlement: "local" or "remote"
	SettleMode  string
	SettleURL   string
	SettleToken string
	SettleUser  string

	// Settlement backend (settleserver only)
	PostgresDSN string

	// Timers
	RefreshInterval time.Duration
	SimTickInterval time.Duration
}

// Load reads configuration from environment variables with sensible
// defaults. A .env file in the working directory is honored when
// present.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		log.Println("[config] loaded .env")
	}

	return &Config{
		ListenAddr: getEnv("LISTEN_ADDR", ":8080"),

		Symbol:      getEnv("SYMBOL", "BTCUSDT"),
		FeedBaseURL: getEnv("FEED_BASE_URL", "https://api.binance.com"),

		StoreBackend:  getEnv("STORE_BACKEND", "sqlite"),
		SQLitePath:    getEnv("SQLITE_PATH", "data/session.db"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		SettleMode:  getEnv("SETTLE_MODE", "local"),
		SettleURL:   getEnv("SETTLE_URL", ""),
		SettleToken: getEnv("SETTLE_TOKEN", ""),
		SettleUser:  getEnv("SETTLE_USER", "demo"),

		PostgresDSN: getEnv("POSTGRES_DSN", "postgres://localhost/settle?sslmode=disable"),

		RefreshInterval: getEnvDuration("REFRESH_INTERVAL", 12*time.Second),
		SimTickInterval: getEnvDuration("SIM_TICK_INTERVAL", 520*time.Millisecond),
	}
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid int for %s: %q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("[config] invalid duration for %s: %q, using %s", key, v, fallback)
		return fallback
	}
	return d
}
