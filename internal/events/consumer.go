package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

type RentBookedHandler func(ctx context.Context, ev RentBooked) error

// Consume reads the booking queue until ctx ends, reconnecting with a capped
// backoff. Malformed messages are rejected without requeue; handler errors
// requeue the message once.
func Consume(ctx context.Context, url string, log *slog.Logger, handle RentBookedHandler) error {
	backoff := time.Second

	for {
		err := consumeOnce(ctx, url, log, handle)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		log.Warn("booking consumer stopped, reconnecting", "err", err, "backoff", backoff)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func consumeOnce(ctx context.Context, url string, log *slog.Logger, handle RentBookedHandler) error {
	conn, err := amqp.Dial(url)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := DeclareQueue(ch); err != nil {
		return err
	}
	if err := ch.Qos(10, 0, false); err != nil {
		return fmt.Errorf("qos: %w", err)
	}

	msgs, err := ch.Consume(QueueRentBooked, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}

			var ev RentBooked
			if err := json.Unmarshal(d.Body, &ev); err != nil {
				log.Warn("dropping malformed booking event", "err", err)
				_ = d.Reject(false)
				continue
			}

			if err := handle(ctx, ev); err != nil {
				log.Warn("booking event handler failed", "rent_id", ev.RentID, "err", err)
				_ = d.Nack(false, !d.Redelivered)
				continue
			}
			_ = d.Ack(false)
		}
	}
}
