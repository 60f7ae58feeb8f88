package config // package config loads application configuration from environment variables

import (
    "log"     // log reports configuration errors before the zap logger exists
    "os"      // os provides access to environment variables

    "github.com/joho/godotenv" // godotenv loads a local .env file into the environment
)

// Config holds the runtime configuration of the booking selection service.
// Database settings are required; everything else has a default.
type Config struct {
    Env        string // application environment (e.g. "dev", "prod")
    Port       string // HTTP port to listen on
    DBUser     string // database username
    DBPass     string // database password (optional)
    DBHost     string // database host address
    DBPort     string // database port number
    DBName     string // database name
    DBTimezone string // zone voyage departures are stored in (IANA name)
    JWTSecret  string // secret used to verify bearer tokens; empty treats every caller as anonymous
    BookingAPI string // base URL of the booking server receiving selection snapshots

    Selection SelectionConfig
    RateLimit RateLimitConfig
    Cache     CacheConfig
}

// Load reads a .env file when present, then builds a Config from the
// environment.  Missing required variables stop the program.
func Load() Config {
    if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
        log.Printf("config: .env not loaded: %v", err)
    }
    return Config{
        Env:        envStr("APP_ENV", "dev"),
        Port:       envStr("APP_PORT", "8080"),
        DBUser:     must("DB_USER"),
        DBPass:     os.Getenv("DB_PASS"),
        DBHost:     must("DB_HOST"),
        DBPort:     envStr("DB_PORT", "3306"),
        DBName:     must("DB_NAME"),
        DBTimezone: envStr("DB_TIMEZONE", "UTC"),
        JWTSecret:  os.Getenv("JWT_SECRET"),
        BookingAPI: envStr("BOOKING_API_BASE_URL", "http://localhost:8000"),
        Selection:  LoadSelectionConfig(),
        RateLimit:  LoadRateLimitConfig(),
        Cache:      LoadCacheConfig(),
    }
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}
