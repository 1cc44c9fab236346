// Package stream fans order records out to the SSE and WebSocket
// connections watching each order.
package stream

import (
	"context"

	"github.com/iliyamo/flight-seat-reservation/internal/model"
)

// subscriberBuffer bounds how many records a slow connection may lag behind.
const subscriberBuffer = 8

// Subscriber receives the records of one order.  C is closed when the
// subscription ends or the hub stops.
type Subscriber struct {
	orderID string
	send    chan model.OrderRecord
	hub     *Hub
}

// C delivers the order's records in publication order.  When the reader
// falls behind by more than the buffer, the oldest pending record is
// dropped; every record is a full snapshot so only the newest matters.
func (s *Subscriber) C() <-chan model.OrderRecord { return s.send }

// Close ends the subscription.  It is safe to call more than once.
func (s *Subscriber) Close() {
	select {
	case s.hub.unregister <- s:
	case <-s.hub.done:
	}
}

// Hub keeps the subscribers of every order.  All bookkeeping happens on
// the goroutine running Run, so no locks are needed.
type Hub struct {
	rooms      map[string]map[*Subscriber]bool
	broadcast  chan model.OrderRecord
	register   chan *Subscriber
	unregister chan *Subscriber
	done       chan struct{}
	log        Logger
}

// Logger is satisfied by echo's logger and by gommon's *log.Logger.
type Logger interface {
	Debugf(format string, args ...interface{})
}

func NewHub(logger Logger) *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Subscriber]bool),
		broadcast:  make(chan model.OrderRecord),
		register:   make(chan *Subscriber),
		unregister: make(chan *Subscriber),
		done:       make(chan struct{}),
		log:        logger,
	}
}

// Run serves subscriptions until ctx is done, then closes every
// subscriber.  Subscribe and Publish must not be called before Run starts
// unless from another goroutine.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		for _, subs := range h.rooms {
			for s := range subs {
				close(s.send)
			}
		}
		h.rooms = nil
	}()
	for {
		select {
		case <-ctx.Done():
			return

		case s := <-h.register:
			if _, ok := h.rooms[s.orderID]; !ok {
				h.rooms[s.orderID] = make(map[*Subscriber]bool)
			}
			h.rooms[s.orderID][s] = true
			h.log.Debugf("stream: watcher joined order %s (total: %d)", s.orderID, len(h.rooms[s.orderID]))

		case s := <-h.unregister:
			subs, ok := h.rooms[s.orderID]
			if !ok || !subs[s] {
				continue
			}
			delete(subs, s)
			close(s.send)
			if len(subs) == 0 {
				delete(h.rooms, s.orderID)
			}
			h.log.Debugf("stream: watcher left order %s (remaining: %d)", s.orderID, len(subs))

		case rec := <-h.broadcast:
			for s := range h.rooms[rec.OrderID] {
				offer(s.send, rec)
			}
		}
	}
}

// offer sends rec without blocking, evicting the oldest queued record when
// the buffer is full.
func offer(ch chan model.OrderRecord, rec model.OrderRecord) {
	for {
		select {
		case ch <- rec:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// Subscribe starts watching orderID.  It returns nil once the hub stopped.
func (h *Hub) Subscribe(orderID string) *Subscriber {
	s := &Subscriber{orderID: orderID, send: make(chan model.OrderRecord, subscriberBuffer), hub: h}
	select {
	case h.register <- s:
		return s
	case <-h.done:
		return nil
	}
}

// Publish delivers rec to the current subscribers of rec.OrderID.  It is a
// no-op once the hub stopped.
func (h *Hub) Publish(rec model.OrderRecord) {
	select {
	case h.broadcast <- rec:
	case <-h.done:
	}
}
