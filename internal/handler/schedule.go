package handler

import (
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/harbor-booking/internal/model"
    "github.com/iliyamo/harbor-booking/internal/service"
)

// ScheduleHandler lists the schedule cards of one leg.  It backs the card
// grid when a client renders pages itself instead of opening a page view.
type ScheduleHandler struct {
    Cards  service.CardSource
    Cutoff time.Duration
    now    func() time.Time
}

// NewScheduleHandler panics on a nil source, like the other constructors.
func NewScheduleHandler(cards service.CardSource, cutoff time.Duration) *ScheduleHandler {
    if cards == nil {
        panic("nil card source passed to NewScheduleHandler")
    }
    return &ScheduleHandler{Cards: cards, Cutoff: cutoff, now: time.Now}
}

// List handles GET /v1/schedules?origin=&destination=&date=&passengers=&direction=.
// When a listed voyage is still bookable but will close, Cache-Control
// max-age stops at that moment so no cache serves it as bookable afterwards.
func (h *ScheduleHandler) List(c echo.Context) error {
    q, err := service.ParseScheduleQuery(c.QueryParams())
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    cards, err := h.Cards.ListCards(c.Request().Context(), q)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    now := h.now()
    service.ApplyCutoff(cards, now, h.Cutoff)
    if next, ok := service.NextCutoff(cards, now, h.Cutoff); ok {
        secs := int(next.Sub(now) / time.Second)
        c.Response().Header().Set("Cache-Control", "public, max-age="+strconv.Itoa(secs))
    }
    if cards == nil {
        cards = []model.ScheduleCard{}
    }
    return c.JSON(http.StatusOK, echo.Map{"data": cards, "total": len(cards)})
}
