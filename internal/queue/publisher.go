package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/iliyamo/minimal-calendar/internal/metrics"
)

// DefaultQueue is the durable queue change events go to.
const DefaultQueue = "calendar.changes"

// Publisher sends ChangeEvents to a RabbitMQ queue. Each Publish opens
// its own connection so a broker outage never blocks startup. A
// Publisher with an empty URL drops every event.
type Publisher struct {
	url   string
	queue string
	log   zerolog.Logger
}

// NewPublisher returns a publisher for queue at url.
func NewPublisher(url, queue string, log zerolog.Logger) *Publisher {
	if queue == "" {
		queue = DefaultQueue
	}
	return &Publisher{url: url, queue: queue, log: log}
}

// Enabled reports whether a broker is configured.
func (p *Publisher) Enabled() bool { return p != nil && p.url != "" }

// Publish marshals ev and publishes it as a persistent message. Errors
// are logged and returned so callers may ignore them without
// interrupting the request.
func (p *Publisher) Publish(ctx context.Context, ev ChangeEvent) error {
	if !p.Enabled() {
		return nil
	}
	err := p.publish(ctx, ev)
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.ChangesPublished.WithLabelValues(ev.Kind, result).Inc()
	return err
}

func (p *Publisher) publish(ctx context.Context, ev ChangeEvent) error {
	log := p.log.With().Str("queue", p.queue).Str("kind", ev.Kind).Logger()

	conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(3 * time.Second)})
	if err != nil {
		log.Warn().Err(err).Msg("rabbitmq dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Warn().Err(err).Msg("rabbitmq channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	// Idempotent; durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		log.Warn().Err(err).Msg("rabbitmq queue declare failed")
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
		Type:         ev.Kind,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		log.Warn().Err(err).Msg("rabbitmq publish failed")
		return err
	}
	log.Debug().Str("user_id", ev.UserID).Msg("change event published")
	return nil
}
