// Package queue defines message payloads exchanged over the message broker.
package queue

import (
    "time"

    "github.com/iliyamo/harbor-booking/internal/model"
)

// SelectionQueueName is the durable queue carrying selection snapshots.
const SelectionQueueName = "booking.selection"

// SelectionStoredEvent is published whenever a page view syncs its selection.
// It carries the full snapshot so consumers never need to query the booking
// server.
type SelectionStoredEvent struct {
    ViewID     string            `json:"view_id"`
    UserID     string            `json:"user_id,omitempty"`
    Selections model.Selections  `json:"selections"`
    Meta       model.BookingMeta `json:"meta"`
    TotalPrice float64           `json:"total_price"`
    Complete   bool              `json:"complete"`
    StoredAt   string            `json:"stored_at"`
}

// NewSelectionStoredEvent wraps a payload for publishing.
func NewSelectionStoredEvent(viewID, userID string, p model.SelectionPayload, at time.Time) SelectionStoredEvent {
    return SelectionStoredEvent{
        ViewID:     viewID,
        UserID:     userID,
        Selections: p.Selections,
        Meta:       p.Meta,
        TotalPrice: p.TotalPrice,
        Complete:   p.Complete(),
        StoredAt:   at.UTC().Format(time.RFC3339),
    }
}
