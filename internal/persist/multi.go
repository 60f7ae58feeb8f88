package persist

import (
    "context"
    "errors"

    "github.com/iliyamo/harbor-booking/internal/model"
)

// Sink is anything that accepts a selection snapshot.
type Sink interface {
    Persist(ctx context.Context, payload model.SelectionPayload) error
}

// Multi delivers a snapshot to every sink, in order, and joins their errors.
// One failing sink does not stop the others.
type Multi []Sink

// Persist implements Sink.
func (m Multi) Persist(ctx context.Context, payload model.SelectionPayload) error {
    var errs []error
    for _, s := range m {
        if s == nil {
            continue
        }
        if err := s.Persist(ctx, payload); err != nil {
            errs = append(errs, err)
        }
    }
    return errors.Join(errs...)
}
