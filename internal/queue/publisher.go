package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/flight-seat-reservation/internal/model"
)

// AMQPPublisher publishes OrderUpdatedEvents to OrdersExchange.  The broker
// connection is opened on first use and reopened after any failure.
type AMQPPublisher struct {
	url string
	log Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewAMQPPublisher returns a publisher for the broker at url.  No
// connection is made until the first publish.
func NewAMQPPublisher(url string, logger Logger) *AMQPPublisher {
	return &AMQPPublisher{url: url, log: logger}
}

// PublishOrderUpdated sends rec to every instance.  Errors are returned so
// the caller can log them; the order change itself is already committed.
func (p *AMQPPublisher) PublishOrderUpdated(ctx context.Context, rec model.OrderRecord) error {
	body, err := json.Marshal(OrderUpdatedEvent{Order: rec, PublishedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	ch, err := p.channelLocked()
	if err != nil {
		return err
	}
	err = ch.PublishWithContext(ctx,
		OrdersExchange,
		"",    // fanout ignores the routing key
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Transient, // a newer record always supersedes this one
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
	if err != nil {
		p.resetLocked()
		return fmt.Errorf("publish order %s: %w", rec.OrderID, err)
	}
	return nil
}

func (p *AMQPPublisher) channelLocked() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.resetLocked()
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	if err := declareExchange(ch); err != nil {
		_ = conn.Close()
		return nil, err
	}
	p.conn, p.ch = conn, ch
	p.log.Infof("rabbitmq: publisher connected")
	return ch, nil
}

func (p *AMQPPublisher) resetLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.ch = nil, nil
}

// Close drops the broker connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetLocked()
	return nil
}

func declareExchange(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(
		OrdersExchange,
		amqp.ExchangeFanout,
		true,  // durable
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,
	); err != nil {
		return fmt.Errorf("exchange declare: %w", err)
	}
	return nil
}

// LocalPublisher hands order updates straight to an in-process sink.  It
// serves single-instance deployments that run without a broker.
type LocalPublisher struct {
	deliver func(model.OrderRecord)
}

func NewLocalPublisher(deliver func(model.OrderRecord)) *LocalPublisher {
	return &LocalPublisher{deliver: deliver}
}

func (p *LocalPublisher) PublishOrderUpdated(_ context.Context, rec model.OrderRecord) error {
	p.deliver(rec)
	return nil
}
