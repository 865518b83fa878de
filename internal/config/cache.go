package config

import (
	"os"
	"strconv"
	"time"
)

// CacheConfig controls the Redis response cache. It is applied to
// the public GET /v1/event endpoint, which every visitor hits on
// page load and which changes only when an admin edits the event.
// When Enabled is false or no Redis client is available the
// middleware is a pass-through.
type CacheConfig struct {
	Enabled      bool
	TTL          time.Duration
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads environment variables to build a
// CacheConfig. Defaults are used when variables are not set.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:      getenv("CACHE_ENABLED", "true") == "true",
		TTL:          durenv("CACHE_TTL", 60*time.Second),
		Prefix:       getenv("CACHE_PREFIX", "evcache"),
		MaxBodyBytes: intFromEnv("CACHE_MAX_BODY_BYTES", 1<<20),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intFromEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func durenv(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
