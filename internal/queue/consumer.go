package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/flight-seat-reservation/internal/model"
)

const maxBackoff = 30 * time.Second

// StartOrderConsumer binds a private, auto-deleted queue to OrdersExchange
// and hands every received order record to deliver.  It reconnects with
// exponential backoff until ctx is done, then returns ctx.Err().
func StartOrderConsumer(ctx context.Context, url string, deliver func(model.OrderRecord), logger Logger) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			logger.Warnf("order-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < maxBackoff {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, deliver, logger)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warnf("order-consumer: consume loop ended: %v; reconnecting", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, deliver func(model.OrderRecord), logger Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		logger.Warnf("order-consumer: set QoS failed: %v", err)
	}
	if err := declareExchange(ch); err != nil {
		return err
	}
	// server-named, exclusive and auto-deleted: every instance gets its own copy
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	if err := ch.QueueBind(q.Name, "", OrdersExchange, false, nil); err != nil {
		return fmt.Errorf("queue bind: %w", err)
	}
	msgs, err := ch.Consume(q.Name, "", false, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	logger.Infof("order-consumer: listening on %s", OrdersExchange)

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := handleMessage(d.Body, deliver); err != nil {
				logger.Warnf("order-consumer: handle message failed: %v", err)
				_ = d.Nack(false, false) // do not requeue a message that will never decode
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func handleMessage(body []byte, deliver func(model.OrderRecord)) error {
	var ev OrderUpdatedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Order.OrderID == "" {
		return errors.New("event without order id")
	}
	deliver(ev.Order)
	return nil
}

// sleep waits for d and reports false when ctx ended first.
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
