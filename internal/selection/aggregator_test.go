package selection

import (
    "context"
    "errors"
    "sync"
    "testing"
    "time"

    "github.com/jonboulle/clockwork"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "go.uber.org/zap"
    "go.uber.org/zap/zapcore"
    "go.uber.org/zap/zaptest/observer"

    "github.com/iliyamo/harbor-booking/internal/model"
    "github.com/iliyamo/harbor-booking/internal/render"
)

type recordingSink struct {
    mu       sync.Mutex
    payloads []model.SelectionPayload
    err      error
}

func (s *recordingSink) Persist(_ context.Context, p model.SelectionPayload) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.payloads = append(s.payloads, p)
    return s.err
}

func (s *recordingSink) calls() []model.SelectionPayload {
    s.mu.Lock()
    defer s.mu.Unlock()
    return append([]model.SelectionPayload(nil), s.payloads...)
}

// waitCalls waits for the sink to reach n calls, which fake clock callbacks
// deliver on their own goroutine.
func waitCalls(t *testing.T, s *recordingSink, n int) {
    t.Helper()
    assert.Eventually(t, func() bool { return len(s.calls()) == n }, time.Second, time.Millisecond)
}

// stillCalls asserts the sink stays at n calls for a short while.
func stillCalls(t *testing.T, s *recordingSink, n int) {
    t.Helper()
    assert.Never(t, func() bool { return len(s.calls()) != n }, 100*time.Millisecond, 5*time.Millisecond)
}

func card(id string, dir model.Direction, company string, prices ...string) model.ScheduleCard {
    c := model.ScheduleCard{
        ID:              id,
        Direction:       dir,
        Vessel:          "MV " + id,
        Company:         company,
        DepartureDate:   "2025-10-22",
        DepartureTime:   "08:00",
        OriginName:      "Batangas",
        DestinationName: "Calapan",
    }
    for _, p := range prices {
        c.Options = append(c.Options, model.SeatOption{Price: p, Name: "Economy", SeatType: "Seat", Aircon: "true", Remaining: "10"})
    }
    return c
}

type fixture struct {
    agg   *Aggregator
    page  *render.Page
    sink  *recordingSink
    clock *clockwork.FakeClock
}

func newFixture(t *testing.T, trip model.TripType, cards ...model.ScheduleCard) fixture {
    t.Helper()
    return newFixtureWith(t, trip, render.PageOptions{WithSummary: true}, cards...)
}

func newFixtureWith(t *testing.T, trip model.TripType, opts render.PageOptions, cards ...model.ScheduleCard) fixture {
    t.Helper()
    clock := clockwork.NewFakeClockAt(time.Date(2025, 10, 22, 6, 0, 0, 0, time.UTC))
    page := render.NewPage(cards, opts)
    sink := &recordingSink{}
    agg := New(model.BookingMeta{TripType: trip, Adults: 1}, cards, Options{
        View:      page,
        Persister: sink,
        Clock:     clock,
    })
    return fixture{agg: agg, page: page, sink: sink, clock: clock}
}

func TestSelectLegIsExclusivePerDirection(t *testing.T) {
    f := newFixture(t, model.RoundTrip,
        card("a", model.Outbound, "Alpha", "850.00"),
        card("b", model.Outbound, "Bravo", "900.00"),
        card("r", model.Return, "Return Co", "950.50"),
    )
    require.NoError(t, f.agg.SelectLeg("r"))
    before, _ := f.agg.Selection(model.Return)

    require.NoError(t, f.agg.SelectLeg("a"))
    require.NoError(t, f.agg.SelectLeg("b"))

    out, ok := f.agg.Selection(model.Outbound)
    require.True(t, ok)
    assert.Equal(t, "Bravo", out.Company)
    assert.Equal(t, 900.0, out.Price)
    id, _ := f.agg.SelectedCard(model.Outbound)
    assert.Equal(t, "b", id)

    after, _ := f.agg.Selection(model.Return)
    assert.Equal(t, before, after)

    cards := f.page.State().Cards
    assert.False(t, cards[0].Selected)
    assert.Equal(t, "Select", cards[0].ButtonLabel)
    assert.True(t, cards[1].Selected)
    assert.True(t, cards[2].Selected)
}

func TestReadinessOneWay(t *testing.T) {
    f := newFixture(t, model.OneWay,
        card("a", model.Outbound, "Alpha", "850.00"),
        card("r", model.Return, "Return Co", "950.50"),
    )
    assert.False(t, f.agg.Ready())
    assert.False(t, f.page.State().ContinueEnabled)

    require.NoError(t, f.agg.SelectLeg("r"))
    assert.False(t, f.agg.Ready())

    require.NoError(t, f.agg.SelectLeg("a"))
    assert.True(t, f.agg.Ready())
    assert.True(t, f.page.State().ContinueEnabled)

    f.agg.DeselectLeg(model.Return)
    assert.True(t, f.agg.Ready())
}

func TestReadinessRoundTrip(t *testing.T) {
    f := newFixture(t, model.RoundTrip,
        card("a", model.Outbound, "Alpha", "850.00"),
        card("r", model.Return, "Return Co", "950.50"),
    )
    require.NoError(t, f.agg.SelectLeg("a"))
    assert.False(t, f.agg.Ready())
    assert.False(t, f.page.State().ContinueEnabled)

    require.NoError(t, f.agg.SelectLeg("r"))
    assert.True(t, f.agg.Ready())
    assert.True(t, f.page.State().ContinueEnabled)

    f.agg.DeselectLeg(model.Outbound)
    assert.False(t, f.agg.Ready())
}

func TestTotalSumsSelectedLegs(t *testing.T) {
    f := newFixture(t, model.RoundTrip,
        card("a", model.Outbound, "Alpha", "850.00"),
        card("r", model.Return, "Return Co", "950.50"),
    )
    assert.Zero(t, f.agg.Total())
    assert.Equal(t, "₱0.00", f.page.State().TotalText)

    require.NoError(t, f.agg.SelectLeg("a"))
    require.NoError(t, f.agg.SelectLeg("r"))
    assert.InDelta(t, 1800.50, f.agg.Total(), 1e-9)

    f.agg.DeselectLeg(model.Outbound)
    assert.InDelta(t, 950.50, f.agg.Total(), 1e-9)
    assert.Equal(t, "₱950.50", f.page.State().TotalText)
}

func TestUnparseablePriceCountsAsZero(t *testing.T) {
    f := newFixture(t, model.RoundTrip,
        card("a", model.Outbound, "Alpha", "abc"),
        card("r", model.Return, "Return Co", "950.50"),
    )
    require.NoError(t, f.agg.SelectLeg("a"))
    out, _ := f.agg.Selection(model.Outbound)
    assert.Zero(t, out.Price)

    require.NoError(t, f.agg.SelectLeg("r"))
    assert.InDelta(t, 950.50, f.agg.Total(), 1e-9)
    assert.Equal(t, "--", f.page.State().Cards[0].PriceText)
}

func TestDeselectRestoresSummary(t *testing.T) {
    f := newFixture(t, model.OneWay, card("a", model.Outbound, "Alpha", "850.00"))
    initial := f.page.State().Summary[model.Outbound]

    require.NoError(t, f.agg.SelectLeg("a"))
    assert.Contains(t, f.page.State().Summary[model.Outbound].HTML, "Alpha")

    f.agg.DeselectLeg(model.Outbound)
    _, ok := f.agg.Selection(model.Outbound)
    assert.False(t, ok)
    assert.Equal(t, initial, f.page.State().Summary[model.Outbound])
}

func TestToggleLegDeselectsCurrentPick(t *testing.T) {
    f := newFixture(t, model.OneWay, card("a", model.Outbound, "Alpha", "850.00"))

    require.NoError(t, f.agg.ToggleLeg("a"))
    assert.True(t, f.agg.Ready())
    require.NoError(t, f.agg.ToggleLeg("a"))
    assert.False(t, f.agg.Ready())
    assert.False(t, f.page.State().Cards[0].Selected)
}

func TestPersistIsDebounced(t *testing.T) {
    f := newFixture(t, model.RoundTrip,
        card("a", model.Outbound, "Alpha", "850.00"),
        card("b", model.Outbound, "Bravo", "900.00", "1200.00"),
        card("r", model.Return, "Return Co", "950.50"),
    )
    require.NoError(t, f.agg.SelectLeg("a"))
    f.clock.Advance(50 * time.Millisecond)
    require.NoError(t, f.agg.SelectLeg("b"))
    f.clock.Advance(50 * time.Millisecond)
    require.NoError(t, f.agg.ChangeSeatOption("b", 1))
    f.clock.Advance(199 * time.Millisecond)
    assert.Empty(t, f.sink.calls())

    f.clock.Advance(time.Millisecond)
    waitCalls(t, f.sink, 1)
    calls := f.sink.calls()
    require.Len(t, calls, 1)
    p := calls[0]
    require.NotNil(t, p.Selections.Outbound)
    assert.Equal(t, "Bravo", p.Selections.Outbound.Company)
    assert.Equal(t, 1200.0, p.Selections.Outbound.Price)
    assert.Nil(t, p.Selections.Return)
    assert.Equal(t, 1200.0, p.TotalPrice)
    assert.Equal(t, model.RoundTrip, p.Meta.TripType)

    f.clock.Advance(time.Second)
    stillCalls(t, f.sink, 1)
}

func TestChangeSeatOptionOnUnselectedCard(t *testing.T) {
    f := newFixture(t, model.OneWay, card("a", model.Outbound, "Alpha", "850.00", "990.00"))

    require.NoError(t, f.agg.ChangeSeatOption("a", 1))
    f.clock.Advance(time.Second)
    stillCalls(t, f.sink, 0)
    assert.Equal(t, "₱990.00", f.page.State().Cards[0].PriceText)

    // the chosen option is used once the card is selected
    require.NoError(t, f.agg.SelectLeg("a"))
    out, _ := f.agg.Selection(model.Outbound)
    assert.Equal(t, 990.0, out.Price)

    assert.ErrorIs(t, f.agg.ChangeSeatOption("a", 5), ErrUnknownOption)
}

func TestSelectingCardWithoutOptionsIsNoop(t *testing.T) {
    empty := card("x", model.Outbound, "Sold Out")
    f := newFixture(t, model.OneWay, empty)

    require.NoError(t, f.agg.SelectLeg("x"))
    _, ok := f.agg.Selection(model.Outbound)
    assert.False(t, ok)
    assert.False(t, f.page.State().Cards[0].Selected)
    f.clock.Advance(time.Second)
    stillCalls(t, f.sink, 0)
}

func TestSummaryEscapesCompanyName(t *testing.T) {
    f := newFixture(t, model.OneWay, card("a", model.Outbound, "<script>alert(1)</script>", "850.00"))
    require.NoError(t, f.agg.SelectLeg("a"))

    html := f.page.State().Summary[model.Outbound].HTML
    assert.NotContains(t, html, "<script>")
    assert.Contains(t, html, "&lt;script&gt;alert(1)&lt;/script&gt;")
}

func TestPersistFailureIsLoggedNotRetried(t *testing.T) {
    core, logs := observer.New(zapcore.WarnLevel)
    clock := clockwork.NewFakeClock()
    sink := &recordingSink{err: errors.New("connection refused")}
    cards := []model.ScheduleCard{card("a", model.Outbound, "Alpha", "850.00")}
    agg := New(model.BookingMeta{TripType: model.OneWay}, cards, Options{
        Persister: sink,
        Clock:     clock,
        Logger:    zap.New(core),
    })

    require.NoError(t, agg.SelectLeg("a"))
    clock.Advance(time.Second)
    waitCalls(t, sink, 1)
    clock.Advance(time.Minute)
    stillCalls(t, sink, 1)

    assert.Eventually(t, func() bool {
        return logs.FilterMessage("unable to persist booking selection").Len() == 1
    }, time.Second, time.Millisecond)
    assert.True(t, agg.Ready())
    assert.Equal(t, 850.0, agg.Total())
}

func TestFlushAndClose(t *testing.T) {
    f := newFixture(t, model.OneWay, card("a", model.Outbound, "Alpha", "850.00"))
    require.NoError(t, f.agg.SelectLeg("a"))

    require.NoError(t, f.agg.Flush(context.Background()))
    require.Len(t, f.sink.calls(), 1)
    f.clock.Advance(time.Second)
    stillCalls(t, f.sink, 1)

    f.agg.DeselectLeg(model.Outbound)
    f.agg.Close()
    assert.False(t, f.agg.persist.Pending())
    f.clock.Advance(time.Second)
    stillCalls(t, f.sink, 1)
}

func TestDispatch(t *testing.T) {
    f := newFixture(t, model.OneWay, card("a", model.Outbound, "Alpha", "850.00", "900.00"))

    require.NoError(t, f.agg.Dispatch(Command{Kind: ActionSelectLeg, CardID: "a"}))
    require.NoError(t, f.agg.Dispatch(Command{Kind: ActionChangeSeatOption, CardID: "a", OptionIndex: 1}))
    assert.Equal(t, 900.0, f.agg.Total())
    require.NoError(t, f.agg.Dispatch(Command{Kind: ActionDeselectLeg, Direction: model.Outbound}))
    assert.Zero(t, f.agg.Total())

    assert.ErrorIs(t, f.agg.Dispatch(Command{Kind: ActionSelectLeg, CardID: "nope"}), ErrUnknownCard)
    assert.ErrorIs(t, f.agg.Dispatch(Command{Kind: "launch"}), ErrUnknownAction)
    assert.ErrorIs(t, f.agg.Dispatch(Command{Kind: ActionDeselectLeg, Direction: "sideways"}), ErrInvalidDirection)
}

func TestPageWithoutSummaryStillGatesContinue(t *testing.T) {
    f := newFixtureWith(t, model.RoundTrip, render.PageOptions{WithSummary: false},
        card("a", model.Outbound, "Alpha", "850.00"),
        card("r", model.Return, "Return Co", "950.50"),
    )
    require.False(t, f.page.HasSummary())

    require.NoError(t, f.agg.SelectLeg("a"))
    assert.False(t, f.agg.Ready())
    assert.False(t, f.page.State().ContinueEnabled)

    require.NoError(t, f.agg.SelectLeg("r"))
    assert.True(t, f.agg.Ready())
    st := f.page.State()
    assert.True(t, st.ContinueEnabled)
    assert.Empty(t, st.Summary)
    assert.True(t, st.Cards[0].Selected)
    assert.True(t, st.Cards[1].Selected)
    assert.Equal(t, "₱1,800.50", st.TotalText)

    f.agg.DeselectLeg(model.Return)
    assert.False(t, f.agg.Ready())
    assert.False(t, f.page.State().ContinueEnabled)
    assert.False(t, f.page.State().Cards[1].Selected)

    f.clock.Advance(200 * time.Millisecond)
    waitCalls(t, f.sink, 1)
    p := f.sink.calls()[0]
    require.NotNil(t, p.Selections.Outbound)
    assert.Nil(t, p.Selections.Return)
}
