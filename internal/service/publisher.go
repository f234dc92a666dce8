package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/mechanic-shop/internal/queue"
)

// EventPublisher delivers ticket events after their change has committed.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.TicketEvent) error
}

// NopPublisher discards events.  It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, queue.TicketEvent) error { return nil }

// AMQPPublisher publishes events to a durable RabbitMQ queue.  Each publish
// dials its own connection, which keeps the publisher free of reconnect
// state at the cost of a handshake per event.
type AMQPPublisher struct {
	url       string
	queueName string
	log       *slog.Logger
}

// NewAMQPPublisher returns a publisher for queueName on the broker at url.
func NewAMQPPublisher(url, queueName string, log *slog.Logger) *AMQPPublisher {
	if log == nil {
		log = slog.Default()
	}
	return &AMQPPublisher{url: url, queueName: queueName, log: log.With("component", "amqp_publisher")}
}

// Publish sends ev as a persistent JSON message through the default
// exchange.  Errors are logged and returned so the caller may ignore them.
func (p *AMQPPublisher) Publish(ctx context.Context, ev queue.TicketEvent) error {
	conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(5 * time.Second)})
	if err != nil {
		p.log.Warn("dial failed", "error", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.Warn("channel open failed", "error", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Idempotent; durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(p.queueName, true, false, false, false, nil); err != nil {
		p.log.Warn("queue declare failed", "queue", p.queueName, "error", err)
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         ev.Type,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queueName, false, false, pub); err != nil {
		p.log.Warn("publish failed", "queue", p.queueName, "type", ev.Type, "error", err)
		return err
	}
	p.log.Debug("event published", "type", ev.Type, "ticket_id", ev.TicketID)
	return nil
}
