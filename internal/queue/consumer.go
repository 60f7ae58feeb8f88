package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"
)

// StartSelectionConsumer connects to RabbitMQ, declares the booking.selection
// queue and appends one line per snapshot to logPath.  It reconnects with
// exponential backoff and returns only when ctx is cancelled.  A message that
// cannot be handled is rejected without requeue so a bad payload cannot spin.
func StartSelectionConsumer(ctx context.Context, url, logPath string, log *zap.Logger) error {
    backoff := time.Second
    for {
        if err := ctx.Err(); err != nil {
            return err
        }
        conn, err := amqp.Dial(url)
        if err != nil {
            log.Warn("selection consumer: dial failed", zap.Duration("retry_in", backoff), zap.Error(err))
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = consumeLoop(ctx, conn, logPath, log)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        log.Warn("selection consumer: loop ended; reconnecting", zap.Error(err))
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, logPath string, log *zap.Logger) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        log.Warn("selection consumer: set QoS failed", zap.Error(err))
    }
    if _, err := ch.QueueDeclare(SelectionQueueName, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.Consume(SelectionQueueName, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := handleMessage(d.Body, logPath); err != nil {
                log.Warn("selection consumer: handle message failed", zap.Error(err))
                _ = d.Nack(false, false)
                continue
            }
            _ = d.Ack(false)
        }
    }
}

func handleMessage(body []byte, logPath string) error {
    var ev SelectionStoredEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    if _, err := f.WriteString(formatLine(ev)); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

func formatLine(ev SelectionStoredEvent) string {
    leg := func(name string) string {
        var l = ev.Selections.Outbound
        if name == "return" {
            l = ev.Selections.Return
        }
        if l == nil {
            return "-"
        }
        return fmt.Sprintf("%q/%q %s %s %.2f", l.Company, l.Vessel, l.DepartureDate, l.DepartureTime, l.Price)
    }
    return fmt.Sprintf("[%s] Selection stored | view_id=%s | user_id=%s | trip=%s | route=%q -> %q | outbound=%s | return=%s | total=%.2f | complete=%t\n",
        ev.StoredAt, ev.ViewID, orDash(ev.UserID), ev.Meta.TripType, ev.Meta.OriginName, ev.Meta.DestinationName,
        leg("outbound"), leg("return"), ev.TotalPrice, ev.Complete)
}

func orDash(s string) string {
    if s == "" {
        return "-"
    }
    return s
}
