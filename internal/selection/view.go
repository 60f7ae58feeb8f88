package selection

import "github.com/iliyamo/harbor-booking/internal/model"

// View is the output side of the available trips page.  The aggregator calls
// it synchronously after every state change.
type View interface {
    // ShowCardOption updates a card's live price, seat type and remaining
    // seat texts for the option at index.
    ShowCardOption(cardID string, index int, opt model.SeatOption)
    // MarkCard marks a card selected or not.
    MarkCard(cardID string, selected bool)
    // ShowSummary renders the selected leg for dir, or the placeholder when
    // leg is nil.
    ShowSummary(dir model.Direction, leg *model.LegSelection)
    ShowTotal(total float64)
    SetContinueEnabled(ready bool)
}

type nopView struct{}

func (nopView) ShowCardOption(string, int, model.SeatOption)    {}
func (nopView) MarkCard(string, bool)                           {}
func (nopView) ShowSummary(model.Direction, *model.LegSelection) {}
func (nopView) ShowTotal(float64)                               {}
func (nopView) SetContinueEnabled(bool)                         {}
