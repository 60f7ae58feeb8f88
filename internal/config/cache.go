package config

import "time"

// CacheConfig defines settings for the Redis cache in front of the schedule
// listing.  When Enabled is false or no Redis client is configured, caching is
// disabled.  TTL caps the lifetime of an entry; the listing may ask for less
// when a voyage on it is about to close for booking.
type CacheConfig struct {
    Enabled      bool
    TTL          time.Duration
    Prefix       string
    MaxBodyBytes int
}

// LoadCacheConfig reads CACHE_* variables.  Remaining seat counts go stale
// quickly, so the default TTL is five minutes.
func LoadCacheConfig() CacheConfig {
    return CacheConfig{
        Enabled:      envBool("CACHE_ENABLED", true),
        TTL:          envDur("CACHE_TTL", 5*time.Minute),
        Prefix:       envStr("CACHE_PREFIX", "schedules"),
        MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
    }
}
