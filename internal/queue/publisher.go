package queue

import (
    "context"
    "encoding/json"
    "fmt"
    "log"
    "sync"

    amqp "github.com/rabbitmq/amqp091-go"
)

// BookingQueue is the durable queue booking events are published to.
const BookingQueue = "booking.events"

// Publisher keeps one connection and channel to RabbitMQ and publishes
// booking events as persistent JSON messages.  A broken connection is
// re-dialled on the next publish.  A nil *Publisher accepts and drops every
// event, so callers need no broker in development.
type Publisher struct {
    url string

    mu   sync.Mutex
    conn *amqp.Connection
    ch   *amqp.Channel
}

// NewPublisher dials the broker and declares the booking queue.
func NewPublisher(url string) (*Publisher, error) {
    p := &Publisher{url: url}
    if err := p.connect(); err != nil {
        return nil, err
    }
    return p, nil
}

// connect must be called with mu held (or before the publisher is shared).
func (p *Publisher) connect() error {
    conn, err := amqp.Dial(p.url)
    if err != nil {
        return fmt.Errorf("dial rabbitmq: %w", err)
    }
    ch, err := conn.Channel()
    if err != nil {
        _ = conn.Close()
        return fmt.Errorf("open channel: %w", err)
    }
    // Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(BookingQueue, true, false, false, false, nil); err != nil {
        _ = ch.Close()
        _ = conn.Close()
        return fmt.Errorf("declare queue: %w", err)
    }
    p.conn, p.ch = conn, ch
    return nil
}

// Publish sends ev to the booking queue.
func (p *Publisher) Publish(ctx context.Context, ev BookingEvent) error {
    if p == nil {
        return nil
    }
    body, err := json.Marshal(ev)
    if err != nil {
        return fmt.Errorf("marshal event: %w", err)
    }

    p.mu.Lock()
    defer p.mu.Unlock()
    if p.ch == nil || p.ch.IsClosed() {
        p.closeLocked()
        if err := p.connect(); err != nil {
            return err
        }
    }
    err = p.ch.PublishWithContext(ctx, "", BookingQueue, false, false, amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        Type:         ev.Type,
        Timestamp:    ev.OccurredAt,
        Body:         body,
    })
    if err != nil {
        log.Printf("rabbitmq: publish %s for booking %d failed: %v", ev.Type, ev.BookingID, err)
        p.closeLocked()
        return fmt.Errorf("publish: %w", err)
    }
    return nil
}

// Close releases the channel and connection.
func (p *Publisher) Close() error {
    if p == nil {
        return nil
    }
    p.mu.Lock()
    defer p.mu.Unlock()
    return p.closeLocked()
}

func (p *Publisher) closeLocked() error {
    var err error
    if p.ch != nil {
        _ = p.ch.Close()
        p.ch = nil
    }
    if p.conn != nil {
        err = p.conn.Close()
        p.conn = nil
    }
    return err
}
