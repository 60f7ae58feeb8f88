package main // Entry point package

import (
	"context" // cancellation for background workers and shutdown
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"                   // Echo web framework
	echomw "github.com/labstack/echo/v4/middleware" // request logging and panic recovery
	"go.uber.org/zap"                               // structured logging

	"github.com/iliyamo/harbor-booking/internal/config"     // Internal config loader
	"github.com/iliyamo/harbor-booking/internal/database"   // MySQL connection
	"github.com/iliyamo/harbor-booking/internal/handler"    // HTTP handlers
	"github.com/iliyamo/harbor-booking/internal/logger"     // zap logger setup
	"github.com/iliyamo/harbor-booking/internal/pageview"   // live page views
	"github.com/iliyamo/harbor-booking/internal/persist"    // selection sinks
	"github.com/iliyamo/harbor-booking/internal/queue"      // selection log consumer
	"github.com/iliyamo/harbor-booking/internal/render"     // currency formatting
	"github.com/iliyamo/harbor-booking/internal/repository" // schedule queries
	"github.com/iliyamo/harbor-booking/internal/router"     // Internal router setup
	"github.com/iliyamo/harbor-booking/internal/selection"  // Persister interface
	"github.com/iliyamo/harbor-booking/internal/service"    // trip search
)

func main() {
	cfg := config.Load() // Load environment config

	log, err := logger.New(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	loc, err := time.LoadLocation(cfg.DBTimezone)
	if err != nil {
		log.Fatal("invalid DB_TIMEZONE", zap.String("tz", cfg.DBTimezone), zap.Error(err))
	}
	db, err := database.Open(database.Options{
		User: cfg.DBUser, Pass: cfg.DBPass,
		Host: cfg.DBHost, Port: cfg.DBPort,
		Name: cfg.DBName, Loc: loc,
	})
	if err != nil {
		log.Fatal("database unavailable", zap.Error(err))
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb := config.NewRedisClient(log) // nil disables cache and rate limit

	scheduleRepo := repository.NewScheduleRepo(db, loc)
	search := service.NewSearchService(scheduleRepo, repository.NewPortRepo(db), cfg.Selection.CutoffWindow, log)

	views := pageview.NewRegistry(pageview.Options{
		Currency:       render.NewCurrency(cfg.Selection.CurrencyLocale, cfg.Selection.CurrencySymbol),
		PersistDelay:   cfg.Selection.PersistDelay,
		PersistTimeout: cfg.Selection.PersistTimeout,
		IdleTTL:        cfg.Selection.ViewIdleTTL,
		Logger:         log,
	})
	go views.Run(ctx, time.Minute)

	if cfg.Selection.QueueEnabled && cfg.Selection.ConsumerLog != "" {
		go func() {
			if err := queue.StartSelectionConsumer(ctx, cfg.Selection.AMQPURL, cfg.Selection.ConsumerLog, log); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("selection consumer stopped", zap.Error(err))
			}
		}()
	}

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			log.Info("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status))
			return nil
		},
	}))

	router.RegisterRoutes(e)
	router.RegisterSchedules(e, handler.NewScheduleHandler(scheduleRepo, cfg.Selection.CutoffWindow), cfg.Cache, rdb)
	booking := handler.NewBookingHandler(search, views, newSinkFactory(cfg), log)
	router.RegisterBooking(e, booking, cfg.JWTSecret, cfg.RateLimit, rdb)

	addr := ":" + cfg.Port
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown", zap.Error(err))
	}
	views.CloseAll()
	if rdb != nil {
		_ = rdb.Close()
	}
}

// newSinkFactory sends every page view's snapshots to the booking server with
// the opening request's credentials and, when enabled, to RabbitMQ.
func newSinkFactory(cfg config.Config) handler.SinkFactory {
	client := &http.Client{Timeout: cfg.Selection.PersistTimeout}
	return func(r *http.Request, viewID, userID string) selection.Persister {
		sinks := persist.Multi{
			persist.NewHTTPPersister(cfg.BookingAPI, cfg.Selection.StorePath, client, persist.CredentialsFromRequest(r)),
		}
		if cfg.Selection.QueueEnabled {
			sinks = append(sinks, persist.NewQueuePersister(cfg.Selection.AMQPURL, viewID, userID))
		}
		return sinks
	}
}
