package model

import (
    "strings"
    "time"
)

// SeatOption is one purchasable accommodation on a schedule card.  Values are
// kept as the strings the schedule source renders; Price is parsed only when a
// selection is built.
type SeatOption struct {
    Price     string `json:"price"`     // decimal string, e.g. "850.00"
    Name      string `json:"name"`      // accommodation display name
    SeatType  string `json:"seatType"`  // seat type label
    Aircon    string `json:"aircon"`    // "true" means air-conditioned
    Remaining string `json:"remaining"` // remaining seats, opaque
    Label     string `json:"label"`     // option text shown in the select box
}

// IsAircon reports whether the option carries the "true" aircon flag.
func (o SeatOption) IsAircon() bool { return o.Aircon == "true" }

// DisplayName returns the accommodation name, falling back to the option label.
func (o SeatOption) DisplayName() string {
    if o.Name != "" {
        return o.Name
    }
    return strings.TrimSpace(o.Label)
}

// DisplaySeatType returns the seat type, falling back to the option label.
func (o SeatOption) DisplaySeatType() string {
    if o.SeatType != "" {
        return o.SeatType
    }
    return strings.TrimSpace(o.Label)
}

// ScheduleCard is a voyage offered on the available trips page for one
// direction.  A card with no options (sold out or past the booking cutoff)
// cannot be selected.
type ScheduleCard struct {
    ID                string       `json:"id"`
    Direction         Direction    `json:"direction"`
    Vessel            string       `json:"vessel"`
    Company           string       `json:"company"`
    DepartureDateTime string       `json:"departureDateTime"`
    DepartureDate     string       `json:"departureDate"`
    DepartureTime     string       `json:"departureTime"`
    OriginName        string       `json:"originName"`
    DestinationName   string       `json:"destinationName"`
    Options           []SeatOption `json:"options"`
    CutoffMessage     string       `json:"cutoffMessage,omitempty"`

    // DepartsAt is the parsed departure used for the booking cutoff; zero
    // when the source time could not be parsed.
    DepartsAt time.Time `json:"-"`
}

// Selectable reports whether the card can be selected at all.
func (c ScheduleCard) Selectable() bool {
    return c.Direction.Valid() && len(c.Options) > 0
}

// BuildSelection turns the card and its option at index into a LegSelection.
// An out-of-range index yields empty option fields and a zero price.
func (c ScheduleCard) BuildSelection(index int) LegSelection {
    sel := LegSelection{
        Direction:         c.Direction,
        Vessel:            c.Vessel,
        Company:           c.Company,
        DepartureDateTime: c.DepartureDateTime,
        DepartureDate:     c.DepartureDate,
        DepartureTime:     c.DepartureTime,
        OriginName:        c.OriginName,
        DestinationName:   c.DestinationName,
    }
    if index < 0 || index >= len(c.Options) {
        return sel
    }
    opt := c.Options[index]
    sel.AccommodationName = opt.DisplayName()
    sel.SeatType = opt.DisplaySeatType()
    sel.Aircon = opt.IsAircon()
    sel.Remaining = opt.Remaining
    sel.Price = ParsePrice(opt.Price)
    return sel
}
