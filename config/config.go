package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds every runtime setting, read once at startup and passed
// into constructors. Nothing else reads the environment.
type Config struct {
	Port    string
	Backend string // "postgres" or "sqlite"

	DatabaseURL string // postgres backend
	SQLitePath  string // sqlite backend

	AdminUsername     string
	AdminPassword     string // plaintext compare, used only when no hash is set
	AdminPasswordHash string // bcrypt hash, preferred
	JWTSecret         string
	SessionTTL        time.Duration

	GamesSeedFile      string
	PublishersSeedFile string
}

// Load reads the environment into a Config and validates it.
func Load() (Config, error) {
	cfg := Config{
		Port:               os.Getenv("PORT"),
		Backend:            getenvDefault("DB_BACKEND", "postgres"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		SQLitePath:         getenvDefault("SQLITE_PATH", "votes.db"),
		AdminUsername:      getenvDefault("ADMIN_USERNAME", "admin"),
		AdminPassword:      os.Getenv("ADMIN_PASSWORD"),
		AdminPasswordHash:  os.Getenv("ADMIN_PASSWORD_HASH"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		GamesSeedFile:      getenvDefault("GAMES_SEED_FILE", "games.txt"),
		PublishersSeedFile: getenvDefault("PUBLISHERS_SEED_FILE", "publishers.txt"),
	}

	if cfg.Port == "" {
		return Config{}, fmt.Errorf("PORT environment variable not set")
	}

	switch cfg.Backend {
	case "postgres":
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
	case "sqlite":
	default:
		return Config{}, fmt.Errorf("unknown DB_BACKEND %q (want postgres or sqlite)", cfg.Backend)
	}

	if cfg.AdminPassword == "" && cfg.AdminPasswordHash == "" {
		return Config{}, fmt.Errorf("ADMIN_PASSWORD or ADMIN_PASSWORD_HASH must be set")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is not set")
	}

	ttlHours := 24
	if raw := os.Getenv("SESSION_TTL_HOURS"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return Config{}, fmt.Errorf("SESSION_TTL_HOURS must be a positive integer, got %q", raw)
		}
		ttlHours = parsed
	}
	cfg.SessionTTL = time.Duration(ttlHours) * time.Hour

	return cfg, nil
}

func getenvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
