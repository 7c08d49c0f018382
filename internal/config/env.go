package config

import (
	"log"
	"os"
	"strconv"
	"sync"

	"github.com/joho/godotenv"
)

var envOnce sync.Once

// LoadEnvOnce loads a .env file from the current directory into the process
// environment, at most once per process. Safe to call from multiple
// packages during initialization.
func LoadEnvOnce() {
	envOnce.Do(func() {
		if _, err := os.Stat(".env"); err == nil {
			if err := godotenv.Load(".env"); err == nil {
				log.Println("environment loaded from .env")
			}
		}
	})
}

// GetEnvWithFallback returns the named environment variable, or fallback if
// unset or empty.
func GetEnvWithFallback(key, fallback string) string {
	LoadEnvOnce()
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// GetEnvInt64WithFallback returns the named environment variable parsed as
// an int64, or fallback if unset, empty, or unparsable.
func GetEnvInt64WithFallback(key string, fallback int64) int64 {
	LoadEnvOnce()
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
