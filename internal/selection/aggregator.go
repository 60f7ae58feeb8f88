// Package selection tracks which voyage a customer picked for each leg of a
// trip, keeps the page's derived output (summary, total, continue control) in
// step with it, and syncs the selection to the booking server after a short
// debounce.
package selection

import (
    "context"
    "errors"
    "sync"
    "time"

    "github.com/jonboulle/clockwork"
    "go.uber.org/zap"

    "github.com/iliyamo/harbor-booking/internal/debounce"
    "github.com/iliyamo/harbor-booking/internal/model"
)

// DefaultPersistDelay is the debounce window before a selection is synced.
const DefaultPersistDelay = 200 * time.Millisecond

// ErrUnknownOption is returned when a seat option index is out of range.
var ErrUnknownOption = errors.New("unknown seat option")

// Persister receives full selection snapshots.  Delivery is best effort: the
// aggregator logs a failure and moves on.
type Persister interface {
    Persist(ctx context.Context, payload model.SelectionPayload) error
}

// Options configures an Aggregator.  Zero values pick sensible defaults.
type Options struct {
    View           View
    Persister      Persister
    Clock          clockwork.Clock
    PersistDelay   time.Duration
    PersistTimeout time.Duration
    Logger         *zap.Logger
}

type cardState struct {
    card   model.ScheduleCard
    option int
}

type pick struct {
    cardID string
    leg    model.LegSelection
}

// Aggregator owns the selection state of one available trips page.  All
// operations are serialized; the mutex stands in for the page's event loop.
type Aggregator struct {
    mu      sync.Mutex
    meta    model.BookingMeta
    order   []string
    cards   map[string]*cardState
    picks   map[model.Direction]*pick
    total   float64
    closed  bool
    view    View
    sink    Persister
    persist *debounce.Debouncer
    timeout time.Duration
    log     *zap.Logger
}

// New builds the aggregator for a freshly rendered page.  Every card starts on
// its first seat option with nothing selected.
func New(meta model.BookingMeta, cards []model.ScheduleCard, opts Options) *Aggregator {
    if opts.View == nil {
        opts.View = nopView{}
    }
    if opts.PersistDelay <= 0 {
        opts.PersistDelay = DefaultPersistDelay
    }
    if opts.PersistTimeout <= 0 {
        opts.PersistTimeout = 10 * time.Second
    }
    if opts.Logger == nil {
        opts.Logger = zap.NewNop()
    }
    a := &Aggregator{
        meta:    meta,
        cards:   make(map[string]*cardState, len(cards)),
        picks:   make(map[model.Direction]*pick, len(model.Directions)),
        view:    opts.View,
        sink:    opts.Persister,
        persist: debounce.New(opts.Clock, opts.PersistDelay),
        timeout: opts.PersistTimeout,
        log:     opts.Logger,
    }
    for _, c := range cards {
        if _, dup := a.cards[c.ID]; dup {
            a.log.Warn("duplicate schedule card ignored", zap.String("card_id", c.ID))
            continue
        }
        a.order = append(a.order, c.ID)
        a.cards[c.ID] = &cardState{card: c}
        if len(c.Options) > 0 {
            a.view.ShowCardOption(c.ID, 0, c.Options[0])
        }
    }
    a.mu.Lock()
    a.refreshLocked()
    a.mu.Unlock()
    return a
}

// SelectLeg selects a card for its direction, replacing any other card picked
// for that direction.  Cards without seat options are ignored.  Selecting the
// already selected card rebuilds its selection in place.
func (a *Aggregator) SelectLeg(cardID string) error {
    a.mu.Lock()
    defer a.mu.Unlock()
    cs, ok := a.cards[cardID]
    if !ok {
        return ErrUnknownCard
    }
    a.selectLocked(cs)
    return nil
}

// ToggleLeg mirrors the card's select button: it deselects the card when it
// is the current pick for its direction and selects it otherwise.
func (a *Aggregator) ToggleLeg(cardID string) error {
    a.mu.Lock()
    defer a.mu.Unlock()
    cs, ok := a.cards[cardID]
    if !ok {
        return ErrUnknownCard
    }
    if cur := a.picks[cs.card.Direction]; cur != nil && cur.cardID == cardID {
        a.deselectLocked(cs.card.Direction)
        return nil
    }
    a.selectLocked(cs)
    return nil
}

// DeselectLeg clears the selection for dir and restores its summary
// placeholder.
func (a *Aggregator) DeselectLeg(dir model.Direction) {
    a.mu.Lock()
    defer a.mu.Unlock()
    a.deselectLocked(dir)
}

func (a *Aggregator) selectLocked(cs *cardState) {
    if !cs.card.Selectable() {
        return
    }
    dir := cs.card.Direction
    if prev := a.picks[dir]; prev != nil && prev.cardID != cs.card.ID {
        a.view.MarkCard(prev.cardID, false)
    }
    a.view.MarkCard(cs.card.ID, true)
    a.picks[dir] = &pick{cardID: cs.card.ID, leg: cs.card.BuildSelection(cs.option)}
    a.changedLocked(dir)
}

func (a *Aggregator) deselectLocked(dir model.Direction) {
    if prev := a.picks[dir]; prev != nil {
        a.view.MarkCard(prev.cardID, false)
    }
    delete(a.picks, dir)
    a.changedLocked(dir)
}

// ChangeSeatOption switches a card to the seat option at index.  The card's
// live pricing always updates; the stored selection is rebuilt only when the
// card is the current pick for its direction.
func (a *Aggregator) ChangeSeatOption(cardID string, index int) error {
    a.mu.Lock()
    defer a.mu.Unlock()
    cs, ok := a.cards[cardID]
    if !ok {
        return ErrUnknownCard
    }
    if index < 0 || index >= len(cs.card.Options) {
        return ErrUnknownOption
    }
    cs.option = index
    a.view.ShowCardOption(cardID, index, cs.card.Options[index])

    dir := cs.card.Direction
    if cur := a.picks[dir]; cur != nil && cur.cardID == cardID {
        cur.leg = cs.card.BuildSelection(index)
        a.changedLocked(dir)
    }
    return nil
}

// Ready reports whether the booking may proceed: an outbound leg is picked
// and, for round trips, a return leg too.
func (a *Aggregator) Ready() bool {
    a.mu.Lock()
    defer a.mu.Unlock()
    return a.readyLocked()
}

// Total returns the sum of the selected legs' prices.
func (a *Aggregator) Total() float64 {
    a.mu.Lock()
    defer a.mu.Unlock()
    return a.total
}

// Selection returns the leg selected for dir.
func (a *Aggregator) Selection(dir model.Direction) (model.LegSelection, bool) {
    a.mu.Lock()
    defer a.mu.Unlock()
    p := a.picks[dir]
    if p == nil {
        return model.LegSelection{}, false
    }
    return p.leg, true
}

// SelectedCard returns the id of the card picked for dir, if any.
func (a *Aggregator) SelectedCard(dir model.Direction) (string, bool) {
    a.mu.Lock()
    defer a.mu.Unlock()
    p := a.picks[dir]
    if p == nil {
        return "", false
    }
    return p.cardID, true
}

// Meta returns the page's booking meta snapshot.
func (a *Aggregator) Meta() model.BookingMeta { return a.meta }

// Snapshot returns the payload that would be persisted right now.
func (a *Aggregator) Snapshot() model.SelectionPayload {
    a.mu.Lock()
    defer a.mu.Unlock()
    return a.payloadLocked()
}

// Flush cancels any pending sync and persists the current state immediately.
// The error is returned for the caller to log; state is never rolled back.
func (a *Aggregator) Flush(ctx context.Context) error {
    a.persist.Cancel()
    return a.persistNow(ctx)
}

// Close drops any pending sync.  Later mutations no longer schedule one.
func (a *Aggregator) Close() {
    a.mu.Lock()
    a.closed = true
    a.mu.Unlock()
    a.persist.Cancel()
}

func (a *Aggregator) changedLocked(dir model.Direction) {
    if p := a.picks[dir]; p != nil {
        leg := p.leg
        a.view.ShowSummary(dir, &leg)
    } else {
        a.view.ShowSummary(dir, nil)
    }
    a.refreshLocked()
    a.scheduleLocked()
}

func (a *Aggregator) refreshLocked() {
    a.total = 0
    for _, d := range model.Directions {
        if p := a.picks[d]; p != nil {
            a.total += model.SafePrice(p.leg.Price)
        }
    }
    a.view.ShowTotal(a.total)
    a.view.SetContinueEnabled(a.readyLocked())
}

func (a *Aggregator) readyLocked() bool {
    if a.picks[model.Outbound] == nil {
        return false
    }
    return !a.meta.NeedsReturn() || a.picks[model.Return] != nil
}

func (a *Aggregator) scheduleLocked() {
    if a.closed || a.sink == nil {
        return
    }
    a.persist.Trigger(func() {
        ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
        defer cancel()
        _ = a.persistNow(ctx)
    })
}

// persistNow sends the state as of now, not as of when the sync was
// scheduled.
func (a *Aggregator) persistNow(ctx context.Context) error {
    if a.sink == nil {
        return nil
    }
    a.mu.Lock()
    payload := a.payloadLocked()
    a.mu.Unlock()

    if err := a.sink.Persist(ctx, payload); err != nil {
        a.log.Warn("unable to persist booking selection",
            zap.Float64("total_price", payload.TotalPrice),
            zap.Error(err))
        return err
    }
    a.log.Debug("booking selection persisted", zap.Float64("total_price", payload.TotalPrice))
    return nil
}

func (a *Aggregator) payloadLocked() model.SelectionPayload {
    out := model.SelectionPayload{Meta: a.meta, TotalPrice: a.total}
    if p := a.picks[model.Outbound]; p != nil {
        leg := p.leg
        out.Selections.Outbound = &leg
    }
    if p := a.picks[model.Return]; p != nil {
        leg := p.leg
        out.Selections.Return = &leg
    }
    return out
}
