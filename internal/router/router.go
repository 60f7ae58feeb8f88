package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"  // Echo web framework
	"github.com/redis/go-redis/v9" // Redis client shared by the cache and the rate limiter

	"github.com/iliyamo/harbor-booking/internal/config"     // cache and rate limit settings
	"github.com/iliyamo/harbor-booking/internal/handler"    // HTTP handlers
	"github.com/iliyamo/harbor-booking/internal/middleware" // auth, cache and rate limit middleware
)

// RegisterRoutes registers routes that need no dependencies.  Currently it
// exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Load balancers and monitoring poll this endpoint.
	e.GET("/healthz", handler.Health)
}

// RegisterSchedules exposes the schedule card listing behind the Redis
// response cache.  rdb may be nil, which disables caching.
func RegisterSchedules(e *echo.Echo, s *handler.ScheduleHandler, cfg config.CacheConfig, rdb *redis.Client) {
	e.GET("/v1/schedules", s.List, middleware.NewScheduleCache(cfg, rdb))
}

// RegisterBooking registers the page view endpoints.  Every route reads an
// optional bearer token; only the actions endpoint is rate limited since it is
// the one driven by rapid clicking.
func RegisterBooking(e *echo.Echo, b *handler.BookingHandler, jwtSecret string, rl config.RateLimitConfig, rdb *redis.Client) {
	g := e.Group("/v1/booking/views")
	g.Use(middleware.OptionalAuth(jwtSecret))

	g.POST("", b.Open)                                                // run a search and open a page view
	g.GET("/:id", b.Get)                                              // current page state
	g.POST("/:id/actions", b.Act, middleware.NewTokenBucket(rl, rdb)) // one UI command
	g.POST("/:id/continue", b.Continue)                               // proceed to passenger info
	g.DELETE("/:id", b.Close)                                         // page unload
}
