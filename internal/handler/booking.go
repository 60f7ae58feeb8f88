package handler

import (
    "context"
    "errors"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/harbor-booking/internal/middleware"
    "github.com/iliyamo/harbor-booking/internal/pageview"
    "github.com/iliyamo/harbor-booking/internal/selection"
    "github.com/iliyamo/harbor-booking/internal/service"
)

// Continue targets.  Anonymous customers log in first and come back to the
// passenger form.
const (
    PassengerInfoPath = "/passenger-info/"
    LoginNextPath     = "/login/?next=%2Fpassenger-info%2F"
)

// Searcher runs a trip search.
type Searcher interface {
    Search(ctx context.Context, req service.SearchRequest) (service.SearchResult, error)
}

// SinkFactory builds the snapshot persister of a new page view from the
// request that opened it.
type SinkFactory func(r *http.Request, viewID, userID string) selection.Persister

// BookingHandler serves the available trips page views: opening one from a
// search, applying the customer's clicks and the continue step.
type BookingHandler struct {
    Search       Searcher
    Views        *pageview.Registry
    Sinks        SinkFactory
    FlushTimeout time.Duration
    Log          *zap.Logger
}

// NewBookingHandler wires the handler.  A nil sink factory opens views that
// never sync.
func NewBookingHandler(search Searcher, views *pageview.Registry, sinks SinkFactory, log *zap.Logger) *BookingHandler {
    if search == nil || views == nil {
        panic("nil dependency passed to NewBookingHandler")
    }
    if log == nil {
        log = zap.NewNop()
    }
    return &BookingHandler{Search: search, Views: views, Sinks: sinks, FlushTimeout: 5 * time.Second, Log: log}
}

type openViewRequest struct {
    service.SearchRequest
    // WithSummary renders the summary panel; defaults to true.
    WithSummary *bool `json:"with_summary"`
}

// Open handles POST /v1/booking/views.  It runs the search in the body and
// returns 201 with the new page view's state.
func (h *BookingHandler) Open(c echo.Context) error {
    var req openViewRequest
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    res, err := h.Search.Search(c.Request().Context(), req.SearchRequest)
    if err != nil {
        if errors.Is(err, service.ErrInvalidSearch) {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
        }
        h.Log.Error("trip search failed", zap.Error(err))
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }

    userID := middleware.UserID(c)
    res.Meta.IsAuthenticated = middleware.IsAuthenticated(c)
    params := pageview.Params{
        UserID:      userID,
        Meta:        res.Meta,
        Cards:       res.Cards,
        WithSummary: req.WithSummary == nil || *req.WithSummary,
    }
    if h.Sinks != nil {
        r := c.Request()
        params.Sink = func(viewID string) selection.Persister { return h.Sinks(r, viewID, userID) }
    }
    v := h.Views.Create(params)
    h.Log.Info("page view opened", zap.String("view_id", v.ID), zap.Int("cards", len(res.Cards)))
    return c.JSON(http.StatusCreated, v.State())
}

// Get handles GET /v1/booking/views/:id.
func (h *BookingHandler) Get(c echo.Context) error {
    v, err := h.Views.Get(c.Param("id"))
    if err != nil {
        return viewNotFound(c)
    }
    return c.JSON(http.StatusOK, v.State())
}

// Act handles POST /v1/booking/views/:id/actions with one selection.Command
// as body and returns the updated state.  Rejected selections (a card with no
// seat options) still answer 200; only malformed commands are errors.
func (h *BookingHandler) Act(c echo.Context) error {
    v, err := h.Views.Get(c.Param("id"))
    if err != nil {
        return viewNotFound(c)
    }
    var cmd selection.Command
    if err := c.Bind(&cmd); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if err := v.Aggregator.Dispatch(cmd); err != nil {
        switch {
        case errors.Is(err, selection.ErrUnknownCard):
            return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
        case errors.Is(err, selection.ErrUnknownAction),
            errors.Is(err, selection.ErrUnknownOption),
            errors.Is(err, selection.ErrInvalidDirection):
            return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
        default:
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
        }
    }
    return c.JSON(http.StatusOK, v.State())
}

// Continue handles POST /v1/booking/views/:id/continue.  It answers 409 while
// the selection is incomplete.  Otherwise the current selection is synced
// right away and the client is told where to go next.  A failed sync does not
// block navigation.
func (h *BookingHandler) Continue(c echo.Context) error {
    v, err := h.Views.Get(c.Param("id"))
    if err != nil {
        return viewNotFound(c)
    }
    if !v.Aggregator.Ready() {
        return c.JSON(http.StatusConflict, echo.Map{"error": "please select your trips first"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), h.FlushTimeout)
    defer cancel()
    _ = v.Aggregator.Flush(ctx)

    next := PassengerInfoPath
    if !v.Aggregator.Meta().IsAuthenticated && !middleware.IsAuthenticated(c) {
        next = LoginNextPath
    }
    return c.JSON(http.StatusOK, echo.Map{"next": next, "total_price": v.Aggregator.Total()})
}

// Close handles DELETE /v1/booking/views/:id, the page unload.
func (h *BookingHandler) Close(c echo.Context) error {
    if err := h.Views.Close(c.Param("id")); err != nil {
        return viewNotFound(c)
    }
    return c.NoContent(http.StatusNoContent)
}

func viewNotFound(c echo.Context) error {
    return c.JSON(http.StatusNotFound, echo.Map{"error": pageview.ErrViewNotFound.Error()})
}
