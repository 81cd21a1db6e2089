package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// DefaultDialTimeout bounds connecting and the AMQP handshake of a publish.
const DefaultDialTimeout = 2 * time.Second

// Publisher sends events to a durable queue on the default exchange.  A
// connection is dialed per publish; event volume is one or two messages
// per user action.
type Publisher struct {
	url         string
	queue       string
	dialTimeout time.Duration
	log         zerolog.Logger
}

// NewPublisher returns a publisher for queue.  A dialTimeout <= 0 means
// DefaultDialTimeout.
func NewPublisher(url, queue string, dialTimeout time.Duration, log zerolog.Logger) *Publisher {
	if queue == "" {
		queue = DefaultQueue
	}
	if dialTimeout <= 0 {
		dialTimeout = DefaultDialTimeout
	}
	return &Publisher{url: url, queue: queue, dialTimeout: dialTimeout, log: log}
}

// Publish marshals ev and publishes it as a persistent message.  Errors are
// logged and returned so callers may treat delivery as best effort.  The
// dial never outlives ctx nor the publisher's dial timeout.
func (p *Publisher) Publish(ctx context.Context, ev InterventionEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	timeout := p.dialTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	if timeout <= 0 {
		return context.DeadlineExceeded
	}
	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(timeout),
	})
	if err != nil {
		p.log.Warn().Err(err).Str("event", ev.Type).Msg("rabbitmq dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.Warn().Err(err).Msg("rabbitmq channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		p.log.Warn().Err(err).Str("queue", p.queue).Msg("rabbitmq queue declare failed")
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
		MessageId:    ev.InterventionID + ":" + ev.Type,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		p.log.Warn().Err(err).Str("event", ev.Type).Msg("rabbitmq publish failed")
		return err
	}
	return nil
}
