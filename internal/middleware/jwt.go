package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "fmt"     // formatting numeric subject claims
    "strings" // string utilities for prefix checking and trimming

    "github.com/golang-jwt/jwt/v5" // JWT library for parsing and validating tokens
    "github.com/labstack/echo/v4"  // Echo framework used for defining middleware and handlers
)

// Context keys set by OptionalAuth.
const (
    CtxUserID        = "user_id"
    CtxAuthenticated = "authenticated"
)

// OptionalAuth returns an Echo middleware that reads a Bearer access token
// when one is present.  Unlike a guard it never rejects the request: a valid
// token sets `user_id` and `authenticated=true`, anything else leaves the
// caller anonymous.  The booking pages are public; only the continue step
// cares whether the customer still has to log in.  An empty secret disables
// token checks entirely.
func OptionalAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            c.Set(CtxAuthenticated, false)
            auth := c.Request().Header.Get("Authorization")
            if secret == "" || !strings.HasPrefix(auth, "Bearer ") {
                return next(c)
            }
            raw := strings.TrimPrefix(auth, "Bearer ")

            // HS256 only; any other signing method is treated as no token
            tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
                if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
                    return nil, echo.ErrUnauthorized
                }
                return []byte(secret), nil
            })
            if err != nil || !tok.Valid {
                c.Logger().Debugf("[auth] ignoring invalid bearer token: %v", err)
                return next(c)
            }
            claims, ok := tok.Claims.(jwt.MapClaims)
            if !ok {
                return next(c)
            }
            if sub := subject(claims); sub != "" {
                c.Set(CtxUserID, sub)
                c.Set(CtxAuthenticated, true)
            }
            return next(c)
        }
    }
}

// subject returns the sub claim as a string.  Account service tokens carry a
// numeric subject, which decodes as float64.
func subject(claims jwt.MapClaims) string {
    switch v := claims["sub"].(type) {
    case string:
        return v
    case float64:
        return fmt.Sprintf("%.0f", v)
    }
    return ""
}
