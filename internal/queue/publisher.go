package queue

import (
    "context"
    "encoding/json"
    "fmt"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/ezhigval/wedding-bot/internal/model"
)

// Publisher sends messages to the seating queues.  Each publish dials its
// own connection; traffic is a few messages per edit burst.
type Publisher struct {
    url string
}

// NewPublisher returns a publisher for the broker at url.
func NewPublisher(url string) *Publisher {
    return &Publisher{url: url}
}

// PublishEdit enqueues an edit notification for the sync worker.
func (p *Publisher) PublishEdit(ctx context.Context, n model.EditNotification) error {
    return p.publish(ctx, EditsQueue, n)
}

// PublishSeatingEvent broadcasts a reconcile or lock event.
func (p *Publisher) PublishSeatingEvent(ctx context.Context, ev model.SeatingEvent) error {
    return p.publish(ctx, EventsQueue, ev)
}

func (p *Publisher) publish(ctx context.Context, queue string, v any) error {
    msg, err := newPublishing(v, time.Now())
    if err != nil {
        return err
    }

    conn, err := amqp.Dial(p.url)
    if err != nil {
        return fmt.Errorf("rabbitmq dial: %w", err)
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("rabbitmq channel: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("rabbitmq declare %s: %w", queue, err)
    }
    // default exchange, routing key = queue name
    if err := ch.PublishWithContext(ctx, "", queue, false, false, msg); err != nil {
        return fmt.Errorf("rabbitmq publish %s: %w", queue, err)
    }
    return nil
}

func newPublishing(v any, now time.Time) (amqp.Publishing, error) {
    body, err := json.Marshal(v)
    if err != nil {
        return amqp.Publishing{}, fmt.Errorf("marshal message: %w", err)
    }
    return amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        Timestamp:    now.UTC(),
        Body:         body,
    }, nil
}
