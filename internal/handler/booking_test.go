package handler

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "net/http"
    "net/http/httptest"
    "strings"
    "sync"
    "testing"
    "time"

    "github.com/jonboulle/clockwork"
    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/harbor-booking/internal/middleware"
    "github.com/iliyamo/harbor-booking/internal/model"
    "github.com/iliyamo/harbor-booking/internal/pageview"
    "github.com/iliyamo/harbor-booking/internal/persist"
    "github.com/iliyamo/harbor-booking/internal/selection"
    "github.com/iliyamo/harbor-booking/internal/service"
)

type stubSearcher struct {
    res service.SearchResult
    err error
}

func (s stubSearcher) Search(_ context.Context, req service.SearchRequest) (service.SearchResult, error) {
    if err := req.Validate(); err != nil {
        return service.SearchResult{}, err
    }
    return s.res, s.err
}

type captureSink struct {
    mu       sync.Mutex
    payloads []model.SelectionPayload
    creds    persist.Credentials
}

func (s *captureSink) Persist(_ context.Context, p model.SelectionPayload) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.payloads = append(s.payloads, p)
    return nil
}

func (s *captureSink) count() int {
    s.mu.Lock()
    defer s.mu.Unlock()
    return len(s.payloads)
}

func roundTripResult() service.SearchResult {
    opt := func(price string) []model.SeatOption {
        return []model.SeatOption{{Price: price, Name: "Tourist", SeatType: "Bed", Remaining: "12"}}
    }
    return service.SearchResult{
        Meta: model.BookingMeta{TripType: model.RoundTrip, Adults: 1, OriginName: "Cebu", DestinationName: "Bohol"},
        Cards: []model.ScheduleCard{
            {ID: "outbound-1", Direction: model.Outbound, Company: "Ocean Jet", Options: opt("1000")},
            {ID: "return-9", Direction: model.Return, Company: "Ocean Jet", Options: opt("800.50")},
        },
    }
}

type env struct {
    e     *echo.Echo
    h     *BookingHandler
    clock *clockwork.FakeClock
    sink  *captureSink
}

func newEnv(t *testing.T, search Searcher) env {
    t.Helper()
    clock := clockwork.NewFakeClock()
    reg := pageview.NewRegistry(pageview.Options{Clock: clock})
    sink := &captureSink{}
    h := NewBookingHandler(search, reg, func(r *http.Request, _, _ string) selection.Persister {
        sink.creds = persist.CredentialsFromRequest(r)
        return sink
    }, nil)

    e := echo.New()
    g := e.Group("/v1/booking", middleware.OptionalAuth("s3cret"))
    g.POST("/views", h.Open)
    g.GET("/views/:id", h.Get)
    g.POST("/views/:id/actions", h.Act)
    g.POST("/views/:id/continue", h.Continue)
    g.DELETE("/views/:id", h.Close)
    return env{e: e, h: h, clock: clock, sink: sink}
}

func (v env) do(t *testing.T, method, path, body string, hdr ...string) *httptest.ResponseRecorder {
    t.Helper()
    req := httptest.NewRequest(method, path, strings.NewReader(body))
    req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    for i := 0; i+1 < len(hdr); i += 2 {
        req.Header.Set(hdr[i], hdr[i+1])
    }
    rec := httptest.NewRecorder()
    v.e.ServeHTTP(rec, req)
    return rec
}

const roundTripSearch = `{"trip_type":"round_trip","origin":1,"destination":2,` +
    `"departure_date":"2025-10-22","return_date":"2025-10-25","adults":1}`

func openView(t *testing.T, v env) pageview.State {
    t.Helper()
    rec := v.do(t, http.MethodPost, "/v1/booking/views", roundTripSearch, "Cookie", "csrftoken=tok%3D1; sessionid=abc")
    require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
    var st pageview.State
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
    return st
}

func act(t *testing.T, v env, id, body string) pageview.State {
    t.Helper()
    rec := v.do(t, http.MethodPost, "/v1/booking/views/"+id+"/actions", body)
    require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
    var st pageview.State
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
    return st
}

func TestOpenViewStartsEmpty(t *testing.T) {
    v := newEnv(t, stubSearcher{res: roundTripResult()})
    st := openView(t, v)

    assert.NotEmpty(t, st.ID)
    assert.False(t, st.Ready)
    assert.Nil(t, st.Selections.Outbound)
    assert.Equal(t, "₱0.00", st.Page.TotalText)
    assert.Equal(t, "tok=1", v.sink.creds.CSRFToken)
}

func TestOpenViewRejectsInvalidSearch(t *testing.T) {
    v := newEnv(t, stubSearcher{res: roundTripResult()})
    rec := v.do(t, http.MethodPost, "/v1/booking/views", `{"trip_type":"one_way","origin":1,"destination":2,"departure_date":"2025-10-22"}`)
    assert.Equal(t, http.StatusBadRequest, rec.Code)
    assert.Contains(t, rec.Body.String(), "passenger")
}

func TestOpenViewSearchFailure(t *testing.T) {
    v := newEnv(t, stubSearcher{err: errors.New("db down")})
    rec := v.do(t, http.MethodPost, "/v1/booking/views", roundTripSearch)
    assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestActionsDriveSelection(t *testing.T) {
    v := newEnv(t, stubSearcher{res: roundTripResult()})
    id := openView(t, v).ID

    st := act(t, v, id, `{"action":"select_leg","card_id":"outbound-1"}`)
    assert.False(t, st.Ready, "round trip needs a return leg")
    assert.Equal(t, 1000.0, st.Total)

    st = act(t, v, id, `{"action":"select_leg","card_id":"return-9"}`)
    assert.True(t, st.Ready)
    assert.InDelta(t, 1800.5, st.Total, 1e-9)
    assert.True(t, st.Page.ContinueEnabled)

    v.clock.Advance(200 * time.Millisecond)
    require.Eventually(t, func() bool { return v.sink.count() == 1 }, time.Second, time.Millisecond)

    st = act(t, v, id, `{"action":"deselect_leg","direction":"return"}`)
    assert.False(t, st.Ready)
    assert.Nil(t, st.Selections.Return)
}

func TestActionErrors(t *testing.T) {
    v := newEnv(t, stubSearcher{res: roundTripResult()})
    id := openView(t, v).ID

    rec := v.do(t, http.MethodPost, "/v1/booking/views/"+id+"/actions", `{"action":"select_leg","card_id":"nope"}`)
    assert.Equal(t, http.StatusNotFound, rec.Code)

    rec = v.do(t, http.MethodPost, "/v1/booking/views/"+id+"/actions", `{"action":"fly"}`)
    assert.Equal(t, http.StatusBadRequest, rec.Code)

    rec = v.do(t, http.MethodPost, "/v1/booking/views/"+id+"/actions", `{"action":"deselect_leg","direction":"sideways"}`)
    assert.Equal(t, http.StatusBadRequest, rec.Code)

    rec = v.do(t, http.MethodPost, "/v1/booking/views/missing/actions", `{"action":"select_leg","card_id":"outbound-1"}`)
    assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestContinueGatesOnReadiness(t *testing.T) {
    v := newEnv(t, stubSearcher{res: roundTripResult()})
    id := openView(t, v).ID
    path := fmt.Sprintf("/v1/booking/views/%s/continue", id)

    rec := v.do(t, http.MethodPost, path, "")
    assert.Equal(t, http.StatusConflict, rec.Code)

    act(t, v, id, `{"action":"select_leg","card_id":"outbound-1"}`)
    act(t, v, id, `{"action":"select_leg","card_id":"return-9"}`)

    rec = v.do(t, http.MethodPost, path, "")
    require.Equal(t, http.StatusOK, rec.Code)
    var out struct {
        Next string `json:"next"`
    }
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
    assert.Equal(t, LoginNextPath, out.Next)
    assert.Equal(t, 1, v.sink.count(), "continue flushes without waiting for the debounce")

    v.clock.Advance(time.Second)
    assert.Never(t, func() bool { return v.sink.count() != 1 }, 100*time.Millisecond, 5*time.Millisecond,
        "flushed sync is not sent twice")
}

func TestGetAndCloseView(t *testing.T) {
    v := newEnv(t, stubSearcher{res: roundTripResult()})
    id := openView(t, v).ID

    assert.Equal(t, http.StatusOK, v.do(t, http.MethodGet, "/v1/booking/views/"+id, "").Code)
    assert.Equal(t, http.StatusNoContent, v.do(t, http.MethodDelete, "/v1/booking/views/"+id, "").Code)
    assert.Equal(t, http.StatusNotFound, v.do(t, http.MethodGet, "/v1/booking/views/"+id, "").Code)
    assert.Equal(t, http.StatusNotFound, v.do(t, http.MethodDelete, "/v1/booking/views/"+id, "").Code)
}
