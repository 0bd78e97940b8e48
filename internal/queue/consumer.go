package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Consumer reads the change queue and appends one line per message to
// LogPath.
type Consumer struct {
	URL     string
	Queue   string
	LogPath string
	Log     zerolog.Logger
}

// Run dials the broker and consumes until ctx is done, reconnecting
// with exponential backoff (capped at 30s). Messages that cannot be
// handled are rejected without requeue.
func (c *Consumer) Run(ctx context.Context) error {
	if c.Queue == "" {
		c.Queue = DefaultQueue
	}
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = time.Second
	exp.Multiplier = 2
	exp.MaxInterval = 30 * time.Second
	exp.MaxElapsedTime = 0 // retry until ctx is done
	exp.Reset()

	for {
		conn, err := amqp.DialConfig(c.URL, amqp.Config{Dial: amqp.DefaultDial(5 * time.Second)})
		if err != nil {
			wait := exp.NextBackOff()
			c.Log.Warn().Err(err).Dur("retry_in", wait).Msg("change consumer: dial failed")
			if !sleep(ctx, wait) {
				return ctx.Err()
			}
			continue
		}
		exp.Reset()

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.Log.Warn().Err(err).Msg("change consumer: loop ended, reconnecting")
		if !sleep(ctx, exp.NextBackOff()) {
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
		c.Log.Warn().Err(err).Msg("change consumer: set QoS failed")
	}
	if _, err := ch.QueueDeclare(c.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, c.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := c.HandleMessage(d.Body); err != nil {
			c.Log.Error().Err(err).Msg("change consumer: handle message failed")
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

// HandleMessage decodes one ChangeEvent and appends its line.
func (c *Consumer) HandleMessage(body []byte) error {
	var ev ChangeEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Kind == "" {
		return errors.New("change event without kind")
	}
	if err := os.MkdirAll(filepath.Dir(c.LogPath), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(c.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(FormatLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatLine renders ev as a single log line ending in a newline.
func FormatLine(ev ChangeEvent) string {
	line := fmt.Sprintf("[%s] %s | user_id=%s", ev.OccurredAt, ev.Kind, ev.UserID)
	if ev.EventID != "" {
		line += " | event_id=" + ev.EventID
	}
	if ev.Title != "" {
		line += fmt.Sprintf(" | title=%q", ev.Title)
	}
	if ev.StartsAt != "" {
		line += " | starts_at=" + ev.StartsAt
	}
	return line + "\n"
}

// sleep waits d or until ctx is done; false means ctx ended first.
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
