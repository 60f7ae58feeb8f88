// Package pageview keeps the live available trips pages.  Each page view owns
// one selection aggregator and its rendering, and lives until the customer
// leaves the page or it idles out.
package pageview

import (
    "context"
    "errors"
    "sync"
    "time"

    "github.com/google/uuid"
    "github.com/jonboulle/clockwork"
    "go.uber.org/zap"

    "github.com/iliyamo/harbor-booking/internal/model"
    "github.com/iliyamo/harbor-booking/internal/render"
    "github.com/iliyamo/harbor-booking/internal/selection"
)

// ErrViewNotFound is returned for an unknown or already closed page view.
var ErrViewNotFound = errors.New("page view not found")

// View is one open available trips page.
type View struct {
    ID        string
    UserID    string
    CreatedAt time.Time

    Aggregator *selection.Aggregator
    Page       *render.Page

    mu       sync.Mutex
    lastSeen time.Time
}

// State is what API clients see of a page view.
type State struct {
    ID         string            `json:"id"`
    Meta       model.BookingMeta `json:"meta"`
    Selections model.Selections  `json:"selections"`
    Total      float64           `json:"total_price"`
    Ready      bool              `json:"ready"`
    Page       render.PageState  `json:"page"`
}

// State snapshots the view.
func (v *View) State() State {
    snap := v.Aggregator.Snapshot()
    return State{
        ID:         v.ID,
        Meta:       snap.Meta,
        Selections: snap.Selections,
        Total:      snap.TotalPrice,
        Ready:      snap.Complete(),
        Page:       v.Page.State(),
    }
}

func (v *View) touch(now time.Time) {
    v.mu.Lock()
    v.lastSeen = now
    v.mu.Unlock()
}

func (v *View) idleSince() time.Time {
    v.mu.Lock()
    defer v.mu.Unlock()
    return v.lastSeen
}

// Params describes a page view to open.
type Params struct {
    UserID      string
    Meta        model.BookingMeta
    Cards       []model.ScheduleCard
    WithSummary bool
    // Sink builds the persister receiving the view's selection snapshots.
    // It runs once the view id is known; nil disables syncing.
    Sink func(viewID string) selection.Persister
}

// Options configures a Registry.
type Options struct {
    Currency       render.Currency
    PersistDelay   time.Duration
    PersistTimeout time.Duration
    IdleTTL        time.Duration
    Logger         *zap.Logger
    // Clock drives both idle tracking and the selection sync debounce.  Nil
    // means the real clock.
    Clock clockwork.Clock
}

// Registry owns every open page view.
type Registry struct {
    mu    sync.RWMutex
    views map[string]*View
    opts  Options
    clock clockwork.Clock
    log   *zap.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry(opts Options) *Registry {
    if opts.Logger == nil {
        opts.Logger = zap.NewNop()
    }
    if opts.IdleTTL <= 0 {
        opts.IdleTTL = 30 * time.Minute
    }
    if opts.Clock == nil {
        opts.Clock = clockwork.NewRealClock()
    }
    return &Registry{views: map[string]*View{}, opts: opts, clock: opts.Clock, log: opts.Logger}
}

// Create opens a page view for p and returns it.
func (r *Registry) Create(p Params) *View {
    now := r.clock.Now()
    id := uuid.NewString()
    var sink selection.Persister
    if p.Sink != nil {
        sink = p.Sink(id)
    }
    page := render.NewPage(p.Cards, render.PageOptions{
        Currency:    r.opts.Currency,
        WithSummary: p.WithSummary,
        Logger:      r.log,
    })
    agg := selection.New(p.Meta, p.Cards, selection.Options{
        View:           page,
        Persister:      sink,
        Clock:          r.opts.Clock,
        PersistDelay:   r.opts.PersistDelay,
        PersistTimeout: r.opts.PersistTimeout,
        Logger:         r.log.With(zap.String("view_id", id)),
    })
    v := &View{
        ID:         id,
        UserID:     p.UserID,
        CreatedAt:  now,
        Aggregator: agg,
        Page:       page,
        lastSeen:   now,
    }
    r.mu.Lock()
    r.views[id] = v
    r.mu.Unlock()
    return v
}

// Get returns the view with id and marks it as recently used.
func (r *Registry) Get(id string) (*View, error) {
    r.mu.RLock()
    v, ok := r.views[id]
    r.mu.RUnlock()
    if !ok {
        return nil, ErrViewNotFound
    }
    v.touch(r.clock.Now())
    return v, nil
}

// Close discards the view, dropping any pending selection sync.
func (r *Registry) Close(id string) error {
    r.mu.Lock()
    v, ok := r.views[id]
    delete(r.views, id)
    r.mu.Unlock()
    if !ok {
        return ErrViewNotFound
    }
    v.Aggregator.Close()
    return nil
}

// Len returns the number of open views.
func (r *Registry) Len() int {
    r.mu.RLock()
    defer r.mu.RUnlock()
    return len(r.views)
}

// Sweep closes views idle for longer than the configured TTL and returns how
// many were closed.
func (r *Registry) Sweep() int {
    cutoff := r.clock.Now().Add(-r.opts.IdleTTL)
    var stale []*View
    r.mu.Lock()
    for id, v := range r.views {
        if v.idleSince().Before(cutoff) {
            stale = append(stale, v)
            delete(r.views, id)
        }
    }
    r.mu.Unlock()
    for _, v := range stale {
        v.Aggregator.Close()
    }
    if len(stale) > 0 {
        r.log.Info("idle page views closed", zap.Int("count", len(stale)))
    }
    return len(stale)
}

// Run sweeps idle views every interval until ctx is cancelled.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
    if interval <= 0 {
        interval = time.Minute
    }
    t := r.clock.NewTicker(interval)
    defer t.Stop()
    for {
        select {
        case <-ctx.Done():
            return
        case <-t.Chan():
            r.Sweep()
        }
    }
}

// CloseAll discards every view, e.g. on shutdown.
func (r *Registry) CloseAll() {
    r.mu.Lock()
    views := r.views
    r.views = map[string]*View{}
    r.mu.Unlock()
    for _, v := range views {
        v.Aggregator.Close()
    }
}
