package middleware

// identity.go holds the helpers that read what OptionalAuth stored in the
// Echo context.  Handlers and the rate limiter share them.

import "github.com/labstack/echo/v4"

// UserID returns the authenticated user id, or "" for anonymous callers.
func UserID(c echo.Context) string {
    if s, ok := c.Get(CtxUserID).(string); ok {
        return s
    }
    return ""
}

// IsAuthenticated reports whether OptionalAuth accepted a token.
func IsAuthenticated(c echo.Context) bool {
    b, _ := c.Get(CtxAuthenticated).(bool)
    return b
}

// userOrAnon is the rate limit identity of the caller.
func userOrAnon(c echo.Context) string {
    if s := UserID(c); s != "" {
        return s
    }
    return "anon"
}
