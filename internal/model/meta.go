package model

import "strings"

// TripType is the kind of trip searched for on the home form.
type TripType string

const (
    OneWay    TripType = "one_way"
    RoundTrip TripType = "round_trip"
)

// ParseTripType maps a form value onto a TripType.  Anything that is not
// round_trip falls back to one_way, which is how the page treats a missing
// trip type.
func ParseTripType(s string) TripType {
    if TripType(strings.ToLower(strings.TrimSpace(s))) == RoundTrip {
        return RoundTrip
    }
    return OneWay
}

// BookingMeta is the page-level snapshot taken once when the available trips
// page is built.  It never changes for the lifetime of the page view.
type BookingMeta struct {
    TripType        TripType `json:"tripType"`
    Adults          int      `json:"adults"`
    Children        int      `json:"children"`
    OriginName      string   `json:"originName"`
    DestinationName string   `json:"destinationName"`
    DepartureDate   string   `json:"departureDate"`
    ReturnDate      string   `json:"returnDate"`

    // IsAuthenticated drives the continue step only; it is not part of the
    // persisted payload.
    IsAuthenticated bool `json:"-"`
}

// NeedsReturn reports whether a return leg is required before continuing.
func (m BookingMeta) NeedsReturn() bool { return m.TripType == RoundTrip }

// Passengers returns the head count used for seat availability, at least 1.
func (m BookingMeta) Passengers() int {
    n := m.Adults + m.Children
    if n < 1 {
        return 1
    }
    return n
}
