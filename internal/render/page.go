package render

import (
    "math"
    "strconv"
    "strings"
    "sync"

    "go.uber.org/zap"

    "github.com/iliyamo/harbor-booking/internal/model"
)

// CardDisplay is the live state of one schedule card on the page.
type CardDisplay struct {
    ID            string          `json:"id"`
    Direction     model.Direction `json:"direction"`
    OptionIndex   int             `json:"option_index"`
    PriceText     string          `json:"price_text"`
    SeatTypeText  string          `json:"seat_type_text"`
    RemainingText string          `json:"remaining_text"`
    Selected      bool            `json:"selected"`
    ButtonLabel   string          `json:"button_label"`
    Selectable    bool            `json:"selectable"`
    CutoffMessage string          `json:"cutoff_message,omitempty"`
}

// SummarySection is one direction's block of the summary card.
type SummarySection struct {
    HTML  string `json:"html"`
    Empty bool   `json:"empty"`

    defaultHTML string
}

// PageState is a copy of everything the page currently shows.
type PageState struct {
    Cards           []CardDisplay                      `json:"cards"`
    Summary         map[model.Direction]SummarySection `json:"summary,omitempty"`
    TotalText       string                             `json:"total_text"`
    ContinueEnabled bool                               `json:"continue_enabled"`
}

// PageOptions configures a Page.
type PageOptions struct {
    Currency Currency
    // WithSummary is false for pages rendered without a summary card.  Card
    // tracking and the continue gate keep working; summary output is skipped.
    WithSummary bool
    // Placeholders overrides DefaultPlaceholders per direction.
    Placeholders map[model.Direction]string
    Logger       *zap.Logger
}

// Page is the in-memory rendering of the available trips page.
type Page struct {
    mu      sync.RWMutex
    cur     Currency
    log     *zap.Logger
    order   []string
    cards   map[string]*CardDisplay
    summary map[model.Direction]*SummarySection
    total   string
    canGoOn bool
}

// NewPage prepares card displays for cards and, when enabled, summary sections
// holding their placeholder bodies.
func NewPage(cards []model.ScheduleCard, opts PageOptions) *Page {
    cur := opts.Currency
    if cur.printer == nil {
        cur = NewCurrency(DefaultLocale, cur.symbol)
    }
    log := opts.Logger
    if log == nil {
        log = zap.NewNop()
    }
    p := &Page{
        cur:   cur,
        log:   log,
        cards: make(map[string]*CardDisplay, len(cards)),
        total: cur.Zero(),
    }
    for _, c := range cards {
        // first card wins, matching the selection aggregator
        if _, dup := p.cards[c.ID]; dup {
            log.Warn("duplicate schedule card ignored", zap.String("card_id", c.ID))
            continue
        }
        p.order = append(p.order, c.ID)
        p.cards[c.ID] = &CardDisplay{
            ID:            c.ID,
            Direction:     c.Direction,
            PriceText:     "--",
            SeatTypeText:  "--",
            RemainingText: "--",
            ButtonLabel:   "Select",
            Selectable:    c.Selectable(),
            CutoffMessage: c.CutoffMessage,
        }
    }
    if opts.WithSummary {
        p.summary = make(map[model.Direction]*SummarySection, len(model.Directions))
        for _, d := range model.Directions {
            def := DefaultPlaceholders[d]
            if v, ok := opts.Placeholders[d]; ok {
                def = v
            }
            p.summary[d] = &SummarySection{HTML: def, Empty: true, defaultHTML: def}
        }
    }
    return p
}

// ShowCardOption updates a card's price, seat type and remaining seat texts
// for the chosen option.
func (p *Page) ShowCardOption(cardID string, index int, opt model.SeatOption) {
    p.mu.Lock()
    defer p.mu.Unlock()
    cd, ok := p.cards[cardID]
    if !ok {
        return
    }
    cd.OptionIndex = index
    cd.PriceText = p.priceText(opt.Price)

    seat := opt.SeatType
    if seat == "" {
        seat = opt.DisplayName()
    }
    if seat == "" {
        seat = "--"
    }
    cd.SeatTypeText = seat

    if r := strings.TrimSpace(opt.Remaining); r != "" {
        cd.RemainingText = r + " left"
    } else {
        cd.RemainingText = "--"
    }
}

// priceText shows "--" for a price that does not parse, unlike totals which
// coerce such prices to zero.
func (p *Page) priceText(raw string) string {
    raw = strings.TrimSpace(raw)
    if raw == "" {
        return p.cur.Zero()
    }
    v, err := strconv.ParseFloat(raw, 64)
    if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
        return "--"
    }
    return p.cur.Format(v)
}

// MarkCard toggles a card's selected state and button label.
func (p *Page) MarkCard(cardID string, selected bool) {
    p.mu.Lock()
    defer p.mu.Unlock()
    cd, ok := p.cards[cardID]
    if !ok {
        return
    }
    cd.Selected = selected
    if selected {
        cd.ButtonLabel = "Selected"
    } else {
        cd.ButtonLabel = "Select"
    }
}

// ShowSummary renders leg into its direction's section, or restores the
// placeholder when leg is nil.
func (p *Page) ShowSummary(dir model.Direction, leg *model.LegSelection) {
    p.mu.Lock()
    defer p.mu.Unlock()
    sec, ok := p.summary[dir]
    if !ok {
        return
    }
    if leg == nil {
        sec.HTML = sec.defaultHTML
        sec.Empty = true
        return
    }
    html, err := SummaryHTML(*leg, p.cur)
    if err != nil {
        p.log.Warn("summary render failed", zap.String("direction", string(dir)), zap.Error(err))
        return
    }
    sec.HTML = html
    sec.Empty = false
}

// ShowTotal displays the running total.
func (p *Page) ShowTotal(total float64) {
    p.mu.Lock()
    defer p.mu.Unlock()
    if total > 0 {
        p.total = p.cur.Format(total)
    } else {
        p.total = p.cur.Zero()
    }
}

// SetContinueEnabled enables or disables the continue control.
func (p *Page) SetContinueEnabled(ready bool) {
    p.mu.Lock()
    defer p.mu.Unlock()
    p.canGoOn = ready
}

// HasSummary reports whether the page renders a summary card.
func (p *Page) HasSummary() bool {
    p.mu.RLock()
    defer p.mu.RUnlock()
    return p.summary != nil
}

// State returns a copy of the rendered page.
func (p *Page) State() PageState {
    p.mu.RLock()
    defer p.mu.RUnlock()
    st := PageState{
        Cards:           make([]CardDisplay, 0, len(p.order)),
        TotalText:       p.total,
        ContinueEnabled: p.canGoOn,
    }
    for _, id := range p.order {
        st.Cards = append(st.Cards, *p.cards[id])
    }
    if p.summary != nil {
        st.Summary = make(map[model.Direction]SummarySection, len(p.summary))
        for d, sec := range p.summary {
            st.Summary[d] = *sec
        }
    }
    return st
}
