// Package service holds the booking search flow that builds an available
// trips page: it validates the home form, loads both legs' schedule cards and
// closes booking on voyages that are too close to departure.
package service

import (
    "context"
    "errors"
    "fmt"
    "net/url"
    "strconv"
    "strings"
    "time"

    "go.uber.org/zap"

    "github.com/iliyamo/harbor-booking/internal/model"
    "github.com/iliyamo/harbor-booking/internal/repository"
)

// ErrInvalidSearch wraps every validation failure of a SearchRequest.
var ErrInvalidSearch = errors.New("invalid search")

// DefaultCutoff closes booking 1h30 before departure.
const DefaultCutoff = 90 * time.Minute

// CardSource loads schedule cards for one leg.
type CardSource interface {
    ListCards(ctx context.Context, q repository.ScheduleQuery) ([]model.ScheduleCard, error)
}

// PortNames resolves port ids to display names.
type PortNames interface {
    Names(ctx context.Context, ids ...uint64) (map[uint64]string, error)
}

// SearchRequest is the home page booking form.
type SearchRequest struct {
    TripType      string `json:"trip_type"`
    Origin        uint64 `json:"origin"`
    Destination   uint64 `json:"destination"`
    DepartureDate string `json:"departure_date"`
    ReturnDate    string `json:"return_date"`
    Adults        int    `json:"adults"`
    Children      int    `json:"children"`
}

// SearchResult is everything needed to render an available trips page.
type SearchResult struct {
    Meta  model.BookingMeta    `json:"meta"`
    Cards []model.ScheduleCard `json:"cards"`
}

// SearchService builds available trips pages.
type SearchService struct {
    cards  CardSource
    ports  PortNames
    cutoff time.Duration
    now    func() time.Time
    log    *zap.Logger
}

// NewSearchService wires the service.  cutoff <= 0 disables the cutoff rule.
func NewSearchService(cards CardSource, ports PortNames, cutoff time.Duration, log *zap.Logger) *SearchService {
    if log == nil {
        log = zap.NewNop()
    }
    return &SearchService{cards: cards, ports: ports, cutoff: cutoff, now: time.Now, log: log}
}

// Validate checks the form the way the home page guards it: at least one
// passenger, real dates, distinct ports and a return date for round trips.
func (r SearchRequest) Validate() error {
    if r.Adults < 0 || r.Children < 0 {
        return fmt.Errorf("%w: passenger counts cannot be negative", ErrInvalidSearch)
    }
    if r.Adults+r.Children < 1 {
        return fmt.Errorf("%w: please add at least one passenger", ErrInvalidSearch)
    }
    if r.Origin == 0 || r.Destination == 0 {
        return fmt.Errorf("%w: origin and destination are required", ErrInvalidSearch)
    }
    if r.Origin == r.Destination {
        return fmt.Errorf("%w: origin and destination must differ", ErrInvalidSearch)
    }
    dep, err := time.Parse("2006-01-02", r.DepartureDate)
    if err != nil {
        return fmt.Errorf("%w: departure_date must be YYYY-MM-DD", ErrInvalidSearch)
    }
    if model.ParseTripType(r.TripType) == model.RoundTrip {
        ret, err := time.Parse("2006-01-02", r.ReturnDate)
        if err != nil {
            return fmt.Errorf("%w: return_date must be YYYY-MM-DD for round trips", ErrInvalidSearch)
        }
        if ret.Before(dep) {
            return fmt.Errorf("%w: return_date is before departure_date", ErrInvalidSearch)
        }
    }
    return nil
}

// Search loads the outbound cards and, for round trips, the return cards on
// the swapped route, then applies the booking cutoff.
func (s *SearchService) Search(ctx context.Context, req SearchRequest) (SearchResult, error) {
    if err := req.Validate(); err != nil {
        return SearchResult{}, err
    }
    trip := model.ParseTripType(req.TripType)
    meta := model.BookingMeta{
        TripType:      trip,
        Adults:        req.Adults,
        Children:      req.Children,
        DepartureDate: req.DepartureDate,
    }
    if trip == model.RoundTrip {
        meta.ReturnDate = req.ReturnDate
    }
    meta.OriginName, meta.DestinationName = s.portNames(ctx, req.Origin, req.Destination)

    outbound, err := s.cards.ListCards(ctx, repository.ScheduleQuery{
        Direction: model.Outbound, OriginID: req.Origin, DestinationID: req.Destination,
        Date: req.DepartureDate, Passengers: meta.Passengers(),
    })
    if err != nil {
        return SearchResult{}, fmt.Errorf("outbound voyages: %w", err)
    }
    cards := outbound
    if trip == model.RoundTrip {
        back, err := s.cards.ListCards(ctx, repository.ScheduleQuery{
            Direction: model.Return, OriginID: req.Destination, DestinationID: req.Origin,
            Date: req.ReturnDate, Passengers: meta.Passengers(),
        })
        if err != nil {
            return SearchResult{}, fmt.Errorf("return voyages: %w", err)
        }
        cards = append(cards, back...)
    }
    ApplyCutoff(cards, s.now(), s.cutoff)
    s.log.Info("trip search",
        zap.String("trip_type", string(trip)),
        zap.String("route", meta.OriginName+" -> "+meta.DestinationName),
        zap.Int("cards", len(cards)))
    return SearchResult{Meta: meta, Cards: cards}, nil
}

// portNames falls back to "Origin <id>" style labels when a port is unknown
// or the lookup fails; a missing name should not block the search.
func (s *SearchService) portNames(ctx context.Context, origin, dest uint64) (string, string) {
    on := "Origin " + strconv.FormatUint(origin, 10)
    dn := "Destination " + strconv.FormatUint(dest, 10)
    if s.ports == nil {
        return on, dn
    }
    names, err := s.ports.Names(ctx, origin, dest)
    if err != nil {
        s.log.Warn("port name lookup failed", zap.Error(err))
        return on, dn
    }
    if v := strings.TrimSpace(names[origin]); v != "" {
        on = v
    }
    if v := strings.TrimSpace(names[dest]); v != "" {
        dn = v
    }
    return on, dn
}

// ApplyCutoff clears the seat options of every card departing within window
// of now and records why.  Cards without a parsed departure are left alone.
func ApplyCutoff(cards []model.ScheduleCard, now time.Time, window time.Duration) {
    if window <= 0 {
        return
    }
    for i := range cards {
        c := &cards[i]
        if c.DepartsAt.IsZero() {
            continue
        }
        closesAt := c.DepartsAt.Add(-window)
        if now.After(closesAt) {
            c.Options = nil
            c.CutoffMessage = "Cut Off for this voyage was at " + strings.NewReplacer("AM", "am", "PM", "pm").Replace(closesAt.Format("01/02/2006 3:04 PM"))
        }
    }
}

// NextCutoff returns when the earliest still-bookable card among cards closes
// for booking, and false when none will.
func NextCutoff(cards []model.ScheduleCard, now time.Time, window time.Duration) (time.Time, bool) {
    var next time.Time
    if window <= 0 {
        return next, false
    }
    for _, c := range cards {
        if c.DepartsAt.IsZero() || len(c.Options) == 0 {
            continue
        }
        closesAt := c.DepartsAt.Add(-window)
        if !closesAt.After(now) {
            continue
        }
        if next.IsZero() || closesAt.Before(next) {
            next = closesAt
        }
    }
    return next, !next.IsZero()
}

// ParseScheduleQuery reads one leg's listing from query parameters origin,
// destination, date (YYYY-MM-DD), passengers (default 1) and direction
// (default outbound).
func ParseScheduleQuery(v url.Values) (repository.ScheduleQuery, error) {
    q := repository.ScheduleQuery{Direction: model.Outbound, Passengers: 1}
    var err error
    if q.OriginID, err = strconv.ParseUint(v.Get("origin"), 10, 64); err != nil || q.OriginID == 0 {
        return q, fmt.Errorf("%w: invalid origin", ErrInvalidSearch)
    }
    if q.DestinationID, err = strconv.ParseUint(v.Get("destination"), 10, 64); err != nil || q.DestinationID == 0 {
        return q, fmt.Errorf("%w: invalid destination", ErrInvalidSearch)
    }
    q.Date = strings.TrimSpace(v.Get("date"))
    if _, err := time.Parse("2006-01-02", q.Date); err != nil {
        return q, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidSearch)
    }
    if raw := v.Get("direction"); raw != "" {
        d, ok := model.ParseDirection(raw)
        if !ok {
            return q, fmt.Errorf("%w: invalid direction", ErrInvalidSearch)
        }
        q.Direction = d
    }
    if n, err := strconv.Atoi(v.Get("passengers")); err == nil && n > 1 {
        q.Passengers = n
    }
    return q, nil
}
