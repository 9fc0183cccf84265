package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/ticket-marketplace/internal/notify"
)

// ReceiptConsumer binds a durable queue to the order events and emails a
// receipt for each one.
type ReceiptConsumer struct {
	URL      string
	Exchange string
	Queue    string
	Notifier notify.Notifier
	Log      *zap.Logger
}

// Run consumes until ctx is cancelled, redialing the broker with
// exponential backoff (capped at 30s) whenever the connection drops.
func (c *ReceiptConsumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			c.Log.Warn("receipt consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
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
		c.Log.Warn("receipt consumer: consume loop ended, reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
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

func (c *ReceiptConsumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(20, 0, false); err != nil {
		c.Log.Warn("receipt consumer: set QoS failed", zap.Error(err))
	}
	if err := declareExchange(ch, c.Exchange); err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(c.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	for _, key := range []string{RoutingOrderPaid, RoutingOrderRefunded} {
		if err := ch.QueueBind(c.Queue, key, c.Exchange, false, nil); err != nil {
			return fmt.Errorf("queue bind %s: %w", key, err)
		}
	}
	msgs, err := ch.Consume(c.Queue, "", false, false, false, false, nil)
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
			if err := c.Handle(ctx, d.RoutingKey, d.Body); err != nil {
				c.Log.Error("receipt consumer: handle message failed",
					zap.String("routing_key", d.RoutingKey), zap.Error(err))
				// not requeued; a poison message would otherwise spin
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Handle decodes one delivery and sends its receipt.  Events without an
// email address are acknowledged and skipped.
func (c *ReceiptConsumer) Handle(ctx context.Context, routingKey string, body []byte) error {
	var (
		to            string
		subject, text string
	)
	switch routingKey {
	case RoutingOrderPaid:
		var ev OrderPaidEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		to = ev.Email
		subject, text = ev.Receipt()
	case RoutingOrderRefunded:
		var ev OrderRefundedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		to = ev.Email
		subject, text = ev.Receipt()
	default:
		return fmt.Errorf("unknown routing key %q", routingKey)
	}
	if to == "" {
		c.Log.Warn("receipt consumer: event without recipient", zap.String("routing_key", routingKey))
		return nil
	}
	return c.Notifier.Send(ctx, to, subject, text)
}
