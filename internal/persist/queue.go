package persist

import (
    "context"
    "encoding/json"
    "fmt"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/iliyamo/harbor-booking/internal/model"
    "github.com/iliyamo/harbor-booking/internal/queue"
)

// QueuePersister publishes each snapshot as a queue.SelectionStoredEvent to
// the booking.selection queue.  It dials per publish; snapshots are rare
// enough after debouncing that a pooled connection is not worth holding.
type QueuePersister struct {
    url    string
    viewID string
    user   string
    now    func() time.Time
}

// NewQueuePersister publishes on behalf of one page view.
func NewQueuePersister(amqpURL, viewID, userID string) *QueuePersister {
    return &QueuePersister{url: amqpURL, viewID: viewID, user: userID, now: time.Now}
}

// Persist implements Sink.  Messages are durable and persistent.
func (q *QueuePersister) Persist(ctx context.Context, payload model.SelectionPayload) error {
    body, err := json.Marshal(queue.NewSelectionStoredEvent(q.viewID, q.user, payload, q.now()))
    if err != nil {
        return fmt.Errorf("encode event: %w", err)
    }

    conn, err := amqp.Dial(q.url)
    if err != nil {
        return fmt.Errorf("rabbitmq dial: %w", err)
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("rabbitmq channel: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if _, err := ch.QueueDeclare(
        queue.SelectionQueueName, // name
        true,                     // durable
        false,                    // autoDelete
        false,                    // exclusive
        false,                    // noWait
        nil,                      // args
    ); err != nil {
        return fmt.Errorf("rabbitmq queue declare: %w", err)
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        Timestamp:    q.now().UTC(),
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx, "", queue.SelectionQueueName, false, false, pub); err != nil {
        return fmt.Errorf("rabbitmq publish: %w", err)
    }
    return nil
}
