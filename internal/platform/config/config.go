package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file from the current working directory and sets
// environment variables. If .env does not exist, Load returns an error but
// callers can ignore it and use system env or defaults. Pass one or more paths
// to load from specific files; with no paths, ".env" is used.
func Load(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	return godotenv.Load(paths...)
}

// GetEnv returns the value of the environment variable named by key, or fallback
// if the variable is unset or empty.
func GetEnv(key, fallback string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return fallback
}

// GetEnvInt returns the integer value of the environment variable named by key,
// or fallback if the variable is unset, empty, or not a valid integer.
func GetEnvInt(key string, fallback int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return fallback
}

// GetEnvBool returns the boolean value of the environment variable named by
// key, or fallback if the variable is unset, empty, or not a valid boolean.
func GetEnvBool(key string, fallback bool) bool {
	if s := os.Getenv(key); s != "" {
		if b, err := strconv.ParseBool(s); err == nil {
			return b
		}
	}
	return fallback
}

// Runtime holds the process settings that come only from the environment.
type Runtime struct {
	LogLevel        string
	ShutdownTimeout time.Duration
	WatchSettings   bool
}

// LoadRuntime reads LOG_LEVEL, SHUTDOWN_TIMEOUT_SECONDS and SETTINGS_WATCH.
func LoadRuntime() Runtime {
	return Runtime{
		LogLevel:        GetEnv("LOG_LEVEL", "info"),
		ShutdownTimeout: time.Duration(GetEnvInt("SHUTDOWN_TIMEOUT_SECONDS", 10)) * time.Second,
		WatchSettings:   GetEnvBool("SETTINGS_WATCH", true),
	}
}
