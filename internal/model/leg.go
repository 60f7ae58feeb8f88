package model

import (
    "math"
    "strconv"
    "strings"
)

// Direction identifies which leg of a trip a card or selection belongs to.
type Direction string

const (
    Outbound Direction = "outbound" // departure leg
    Return   Direction = "return"   // return leg (round trips only)
)

// Directions lists the legs in display order.
var Directions = []Direction{Outbound, Return}

// Valid reports whether d is one of the known directions.
func (d Direction) Valid() bool {
    return d == Outbound || d == Return
}

// ParseDirection normalizes a direction coming from a request body or a card
// attribute.  Unknown values yield ok=false.
func ParseDirection(s string) (Direction, bool) {
    d := Direction(strings.ToLower(strings.TrimSpace(s)))
    return d, d.Valid()
}

// LegSelection is the selected leg of a trip as it is shown in the summary
// panel and sent to the booking server.  Date and time fields are opaque
// server-supplied strings; nothing in this layer parses them.
//
// Fields:
//  Direction         – outbound or return.
//  Vessel, Company   – display strings from the schedule card.
//  DepartureDateTime – combined departure string.
//  DepartureDate     – departure date string.
//  DepartureTime     – departure time string.
//  OriginName        – origin port name.
//  DestinationName   – destination port name.
//  AccommodationName – display name of the chosen seat option.
//  SeatType          – seat type of the chosen option.
//  Aircon            – whether the accommodation is air-conditioned.
//  Remaining         – remaining seat count, opaque.
//  Price             – non-negative price; unparseable input becomes 0.
type LegSelection struct {
    Direction         Direction `json:"direction"`
    Vessel            string    `json:"vessel"`
    Company           string    `json:"company"`
    DepartureDateTime string    `json:"departureDateTime"`
    DepartureDate     string    `json:"departureDate"`
    DepartureTime     string    `json:"departureTime"`
    OriginName        string    `json:"originName"`
    DestinationName   string    `json:"destinationName"`
    AccommodationName string    `json:"accommodationName"`
    SeatType          string    `json:"seatType"`
    Aircon            bool      `json:"aircon"`
    Remaining         string    `json:"remaining"`
    Price             float64   `json:"price"`
}

// ParsePrice converts a decimal price string into a non-negative float.  Empty,
// malformed, non-finite and negative values all become 0 so that a bad card
// attribute can never leak NaN into a total.
func ParsePrice(raw string) float64 {
    raw = strings.TrimSpace(raw)
    if raw == "" {
        return 0
    }
    v, err := strconv.ParseFloat(raw, 64)
    if err != nil {
        return 0
    }
    return SafePrice(v)
}

// SafePrice clamps a price to a finite, non-negative value.
func SafePrice(v float64) float64 {
    if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
        return 0
    }
    return v
}
