package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/airport-booking/internal/config"
	"github.com/iliyamo/airport-booking/internal/model"
)

const defaultPublishTimeout = 3 * time.Second

// Publisher sends ticket events to a durable queue. It dials the broker
// per message, which keeps it free of connection state at the cost of a
// handshake per booking. Each publish is bounded by the configured
// timeout. Errors are logged and returned so the caller can ignore them
// without interrupting the request.
type Publisher struct {
	url     string
	queue   string
	timeout time.Duration
	logger  *logrus.Logger
	now     func() time.Time
	send    func(ctx context.Context, body []byte) error
}

// NewPublisher returns a Publisher for cfg.URL and cfg.Queue.
func NewPublisher(cfg config.EventsConfig, logger *logrus.Logger) *Publisher {
	if logger == nil {
		panic("queue: NewPublisher requires a logger")
	}
	timeout := cfg.PublishTimeout
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	p := &Publisher{url: cfg.URL, queue: cfg.Queue, timeout: timeout, logger: logger, now: time.Now}
	p.send = p.dialAndPublish
	return p
}

// TicketBooked publishes a ticket.booked event.
func (p *Publisher) TicketBooked(ctx context.Context, t model.Ticket) error {
	return p.Publish(ctx, newTicketEvent(TicketBooked, t, p.now()))
}

// TicketCancelled publishes a ticket.cancelled event carrying the refund.
func (p *Publisher) TicketCancelled(ctx context.Context, t model.Ticket, refundCents int64) error {
	ev := newTicketEvent(TicketCancelled, t, p.now())
	ev.RefundCents = refundCents
	return p.Publish(ctx, ev)
}

// Publish marshals ev and sends it as a persistent message.
func (p *Publisher) Publish(ctx context.Context, ev TicketEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", ev.Type, err)
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.send(ctx, body); err != nil {
		p.logger.WithError(err).WithFields(logrus.Fields{
			"queue": p.queue, "type": ev.Type, "order_number": ev.OrderNumber,
		}).Warn("rabbitmq: publish failed")
		return err
	}
	return nil
}

func (p *Publisher) dialAndPublish(ctx context.Context, body []byte) error {
	conn, err := dial(ctx, p.url)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer func() { _ = conn.Close() }()
	// channel and declare calls are not context aware
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// durable so messages survive broker restarts
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	return ch.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    p.now().UTC(),
			Body:         body,
		},
	)
}

// dial connects with the TCP connect and AMQP handshake bounded by the
// deadline of ctx, or defaultPublishTimeout when it has none.
func dial(ctx context.Context, url string) (*amqp.Connection, error) {
	timeout := defaultPublishTimeout
	if d, ok := ctx.Deadline(); ok {
		timeout = time.Until(d)
	}
	if timeout <= 0 {
		return nil, context.DeadlineExceeded
	}
	return amqp.DialConfig(url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(timeout),
	})
}
