// Package config reads process configuration from the environment. A .env
// file in the working directory is loaded first when present.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Store kinds.
const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreFile     = "file"
	StoreMemory   = "memory"
)

// Config holds the settings shared by the server and the CLI.
type Config struct {
	Port        int
	Store       string
	DatabaseURL string
	DataFile    string
	AuthUser    string
	AuthPass    string
	LogLevel    string
	EventBuffer int
	AutoRent    bool
}

// Load reads the configuration.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Store:       strings.ToLower(getEnv("STORE", StoreSQLite)),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		DataFile:    getEnv("DATA_FILE", "partmanager.json"),
		AuthUser:    os.Getenv("AUTH_USER"),
		AuthPass:    os.Getenv("AUTH_PASS"),
		LogLevel:    strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}

	var err error
	if cfg.Port, err = getInt("PORT", 8080); err != nil {
		return Config{}, err
	}
	if cfg.EventBuffer, err = getInt("EVENT_BUFFER", 256); err != nil {
		return Config{}, err
	}
	if cfg.AutoRent, err = strconv.ParseBool(getEnv("AUTO_RENT", "true")); err != nil {
		return Config{}, fmt.Errorf("AUTO_RENT: %w", err)
	}

	switch cfg.Store {
	case StoreSQLite:
		if cfg.DatabaseURL == "" {
			cfg.DatabaseURL = "file:partmanager.db?_pragma=foreign_keys(1)"
		}
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
	case StoreFile, StoreMemory:
	default:
		return Config{}, fmt.Errorf("unknown STORE %q", cfg.Store)
	}
	return cfg, nil
}

// SQL reports whether the configured store is backed by a database.
func (c Config) SQL() bool {
	return c.Store == StoreSQLite || c.Store == StorePostgres
}

// Logger returns a text logger at the configured level.
func (c Config) Logger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch c.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %q", key, v)
	}
	return n, nil
}
