package model

// Selections holds at most one leg per direction.  A nil pointer means the
// direction has no selection and is encoded as JSON null.
type Selections struct {
    Outbound *LegSelection `json:"outbound"`
    Return   *LegSelection `json:"return"`
}

// SelectionPayload is the body of POST /api/store-booking-selection/.  It is a
// full snapshot, never a delta, so a later payload always supersedes an
// earlier one on the server.
type SelectionPayload struct {
    Selections Selections  `json:"selections"`
    Meta       BookingMeta `json:"meta"`
    TotalPrice float64     `json:"total_price"`
}

// Complete reports whether the payload would pass the continue gate.
func (p SelectionPayload) Complete() bool {
    return p.Selections.Outbound != nil && (!p.Meta.NeedsReturn() || p.Selections.Return != nil)
}
