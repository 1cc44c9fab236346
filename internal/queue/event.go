// Package queue carries order updates between seat service instances over a
// RabbitMQ fanout exchange.
package queue

import (
	"time"

	"github.com/iliyamo/flight-seat-reservation/internal/model"
)

// OrdersExchange is the fanout exchange every instance publishes order
// updates to and binds a private queue on.
const OrdersExchange = "orders.updated"

// OrderUpdatedEvent is published after every committed order change.  It
// carries the full order record so consumers never query the database.
type OrderUpdatedEvent struct {
	Order       model.OrderRecord `json:"order"`
	PublishedAt time.Time         `json:"published_at"`
}

// Logger is satisfied by echo's logger and by gommon's *log.Logger.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}
