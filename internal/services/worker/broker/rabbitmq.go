// Package broker publishes worker events to RabbitMQ.
package broker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultQueue receives relayed marketplace events.
const DefaultQueue = "roleandroll.events"

// Config configures the RabbitMQ relay.
type Config struct {
	URL   string `env:"ROLEANDROLL_AMQP_URL"`
	Queue string `env:"ROLEANDROLL_AMQP_QUEUE" envDefault:"roleandroll.events"`
	// DialAttempts bounds connection retries while the broker starts.
	DialAttempts int           `env:"ROLEANDROLL_AMQP_DIAL_ATTEMPTS" envDefault:"5"`
	DialBackoff  time.Duration `env:"ROLEANDROLL_AMQP_DIAL_BACKOFF" envDefault:"2s"`
}

// Enabled reports whether a broker URL is configured.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.URL) != ""
}

// RabbitMQPublisher publishes persistent JSON messages to one durable queue.
type RabbitMQPublisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
}

// NewRabbitMQPublisher dials the broker and declares the queue.
func NewRabbitMQPublisher(ctx context.Context, cfg Config) (*RabbitMQPublisher, error) {
	if !cfg.Enabled() {
		return nil, errors.New("amqp url is required")
	}
	queue := strings.TrimSpace(cfg.Queue)
	if queue == "" {
		queue = DefaultQueue
	}
	attempts := cfg.DialAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var conn *amqp.Connection
	var err error
	for i := 1; i <= attempts; i++ {
		conn, err = amqp.Dial(cfg.URL)
		if err == nil {
			break
		}
		if i == attempts {
			break
		}
		log.Printf("rabbitmq dial failed attempt=%d/%d: %v", i, attempts, err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(cfg.DialBackoff):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}
	return &RabbitMQPublisher{conn: conn, channel: ch, queue: queue}, nil
}

// Publish sends payload with the event id as message id and topic as type.
func (p *RabbitMQPublisher) Publish(ctx context.Context, id, topic string, payload []byte) error {
	err := p.channel.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		MessageId:    id,
		Type:         topic,
		ContentType:  "application/json",
		Timestamp:    time.Now().UTC(),
		Body:         payload,
		DeliveryMode: amqp.Persistent,
	})
	if err != nil {
		return fmt.Errorf("publish %s to %s: %w", id, p.queue, err)
	}
	log.Printf("rabbitmq published message_id=%s type=%s queue=%s", id, topic, p.queue)
	return nil
}

// Close releases the channel and connection.
func (p *RabbitMQPublisher) Close() error {
	if p == nil {
		return nil
	}
	return errors.Join(p.channel.Close(), p.conn.Close())
}
