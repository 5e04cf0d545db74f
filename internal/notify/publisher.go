package notify

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Queue names.  Both are durable so messages survive broker restarts.
const (
	BookingQueueName  = "booking.events"
	ReminderQueueName = "session.reminders"
)

// Publisher sends notification events to RabbitMQ.  It dials per publish to
// stay robust against broker restarts; the booking path calls it at most
// once per request, after commit, so connection churn is acceptable here.
// All methods log failures and return the error so callers can choose to
// ignore it; the booking core always does.
type Publisher struct {
	url string
	log zerolog.Logger
}

// NewPublisher constructs a Publisher for the given AMQP URL.
func NewPublisher(url string, log zerolog.Logger) *Publisher {
	return &Publisher{url: url, log: log}
}

// PublishBooking publishes a booking lifecycle event to the booking queue.
func (p *Publisher) PublishBooking(ctx context.Context, ev BookingEvent) error {
	return p.publish(ctx, BookingQueueName, ev)
}

// PublishReminder publishes a session reminder event to the reminder queue.
func (p *Publisher) PublishReminder(ctx context.Context, ev ReminderEvent) error {
	return p.publish(ctx, ReminderQueueName, ev)
}

func (p *Publisher) publish(ctx context.Context, queue string, payload any) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.log.Error().Err(err).Str("queue", queue).Msg("rabbitmq dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.Error().Err(err).Str("queue", queue).Msg("rabbitmq channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	// Declare the queue idempotently so publisher and consumer can start in
	// any order.
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		p.log.Error().Err(err).Str("queue", queue).Msg("rabbitmq queue declare failed")
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		p.log.Error().Err(err).Str("queue", queue).Msg("marshal event failed")
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queue, false, false, pub); err != nil {
		p.log.Error().Err(err).Str("queue", queue).Msg("rabbitmq publish failed")
		return err
	}
	return nil
}
