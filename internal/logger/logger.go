// Package logger builds the application's zap logger.
package logger

import (
    "strings"

    "go.uber.org/zap"
    "go.uber.org/zap/zapcore"
)

// New returns a production JSON logger when env is "prod" or "production" and
// a colored development logger otherwise.
func New(env string) (*zap.Logger, error) {
    var cfg zap.Config
    if IsProduction(env) {
        cfg = zap.NewProductionConfig()
        cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
    } else {
        cfg = zap.NewDevelopmentConfig()
        cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
        cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
    }
    return cfg.Build()
}

// IsProduction reports whether env names a production deployment.
func IsProduction(env string) bool {
    switch strings.ToLower(strings.TrimSpace(env)) {
    case "prod", "production":
        return true
    }
    return false
}
