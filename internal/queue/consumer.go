package queue

import (
    "context"
    "errors"
    "fmt"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"

    "github.com/ezhigval/wedding-bot/internal/model"
)

// EditHandler processes one edit notification.
type EditHandler func(ctx context.Context, n model.EditNotification) error

// Consumer drains the seating.edits queue into an EditHandler.
type Consumer struct {
    url      string
    handle   EditHandler
    log      *zap.Logger
    prefetch int
}

// NewConsumer returns a consumer for the broker at url.  Edits are handled
// one at a time; the syncs they trigger are full-sheet operations.
func NewConsumer(url string, handle EditHandler, log *zap.Logger) *Consumer {
    if log == nil {
        log = zap.NewNop()
    }
    return &Consumer{url: url, handle: handle, log: log.Named("edit-consumer"), prefetch: 1}
}

// Run connects, declares the queue and consumes until ctx is cancelled.
// Lost connections are retried with exponential backoff capped at 30s.
func (c *Consumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        conn, err := amqp.Dial(c.url)
        if err != nil {
            c.log.Warn("failed to dial broker", zap.Error(err), zap.Duration("retry_in", backoff))
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            backoff = min(backoff*2, 30*time.Second)
            continue
        }
        backoff = time.Second

        err = c.consume(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        c.log.Warn("consume loop ended, reconnecting", zap.Error(err))
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(c.prefetch, 0, false); err != nil {
        c.log.Warn("set QoS failed", zap.Error(err))
    }
    if _, err := ch.QueueDeclare(EditsQueue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.Consume(EditsQueue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }
    c.log.Info("consuming", zap.String("queue", EditsQueue))

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            c.settle(d, c.handleMessage(ctx, d.Body), d.Redelivered)
        }
    }
}

// acknowledger is the part of amqp.Delivery settle needs.
type acknowledger interface {
    Ack(multiple bool) error
    Nack(multiple, requeue bool) error
}

// settle acks successes.  Failures are requeued once; a redelivered
// failure or an undecodable body is dropped.
func (c *Consumer) settle(d acknowledger, err error, redelivered bool) {
    switch {
    case err == nil:
        _ = d.Ack(false)
    case errors.Is(err, ErrBadMessage) || redelivered:
        c.log.Error("dropping edit notification", zap.Error(err))
        _ = d.Nack(false, false)
    default:
        c.log.Warn("edit notification failed, requeued", zap.Error(err))
        _ = d.Nack(false, true)
    }
}

func (c *Consumer) handleMessage(ctx context.Context, body []byte) error {
    n, err := DecodeEdit(body)
    if err != nil {
        return err
    }
    return c.handle(ctx, n)
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
