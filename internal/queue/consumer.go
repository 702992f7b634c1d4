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
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/airport-booking/internal/config"
)

// journalFile is the file, under the configured log directory, that the
// consumer appends one line per event to.
const journalFile = "tickets.log"

// Consumer journals ticket events from the queue.
type Consumer struct {
	cfg    config.EventsConfig
	logger *logrus.Logger
}

// NewConsumer returns a Consumer for cfg.
func NewConsumer(cfg config.EventsConfig, logger *logrus.Logger) *Consumer {
	if logger == nil {
		panic("queue: NewConsumer requires a logger")
	}
	return &Consumer{cfg: cfg, logger: logger}
}

// Run connects to the broker, declares the queue and consumes until ctx
// is cancelled. Dial failures back off exponentially up to 30s; a closed
// delivery channel triggers a reconnect.
func (c *Consumer) Run(ctx context.Context) error {
	log := c.logger.WithField("queue", c.cfg.Queue)
	backoff := time.Second
	for {
		conn, err := dial(ctx, c.cfg.URL)
		if err != nil {
			log.WithError(err).Warnf("ticket-consumer: dial failed; retrying in %s", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.WithError(err).Warn("ticket-consumer: consume loop ended; reconnecting")
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

	if err := ch.Qos(50, 0, false); err != nil {
		c.logger.WithError(err).Warn("ticket-consumer: set QoS failed")
	}
	if _, err := ch.QueueDeclare(c.cfg.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(c.cfg.Queue, "", false, false, false, false, nil)
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
			if err := handleMessage(c.cfg.LogDir, d.Body); err != nil {
				c.logger.WithError(err).Error("ticket-consumer: handle message failed")
				_ = d.Nack(false, false) // no requeue, avoids a tight redelivery loop
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// handleMessage appends one line describing the event to the journal.
func handleMessage(dir string, body []byte) error {
	var ev TicketEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" || ev.OrderNumber == "" {
		return fmt.Errorf("event missing type or order number")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	f, err := os.OpenFile(filepath.Join(dir, journalFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(formatLine(ev)); err != nil {
		return fmt.Errorf("write journal: %w", err)
	}
	return nil
}

func formatLine(ev TicketEvent) string {
	at := ev.OccurredAt.UTC().Format(time.RFC3339)
	switch ev.Type {
	case TicketCancelled:
		return fmt.Sprintf("[%s] Ticket cancelled | order=%s | passenger_id=%d | flight=%s | seat=%s %s | refund=%d cents | reason=%q\n",
			at, ev.OrderNumber, ev.PassengerID, ev.FlightNumber, ev.SeatClass, ev.SeatNumber, ev.RefundCents, ev.Reason)
	default:
		return fmt.Sprintf("[%s] Ticket booked | order=%s | passenger_id=%d | flight=%s | seat=%s %s | price=%d cents\n",
			at, ev.OrderNumber, ev.PassengerID, ev.FlightNumber, ev.SeatClass, ev.SeatNumber, ev.PriceCents)
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
