package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/flight-seat-reservation/internal/model"
	"github.com/iliyamo/flight-seat-reservation/internal/repository"
)

type memHold struct {
	orderID string
	expires *time.Time
}

// memStore mirrors the repository.Store semantics in memory.
type memStore struct {
	mu     sync.Mutex
	orders map[string]model.Order
	holds  map[string]map[string]memHold // flight -> seat -> hold
	err    error
}

func newMemStore() *memStore {
	return &memStore{orders: map[string]model.Order{}, holds: map[string]map[string]memHold{}}
}

func (m *memStore) CreateOrder(_ context.Context, o *model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.orders[o.ID]; ok {
		return repository.ErrOrderExists
	}
	m.orders[o.ID] = *o
	return nil
}

func (m *memStore) GetOrder(_ context.Context, id string) (model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return model.Order{}, repository.ErrOrderNotFound
	}
	o.Seats = m.seatsOf(o)
	return o, nil
}

func (m *memStore) seatsOf(o model.Order) []string {
	seats := []string{}
	for label, h := range m.holds[o.FlightID] {
		if h.orderID == o.ID {
			seats = append(seats, label)
		}
	}
	sort.Strings(seats)
	return seats
}

func live(h memHold, now time.Time) bool { return h.expires == nil || h.expires.After(now) }

func (m *memStore) ReplaceSeats(_ context.Context, orderID string, labels []string, now, expiresAt time.Time) (model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return model.Order{}, repository.ErrOrderNotFound
	}
	if !o.Editable() || o.Expired(now) {
		return model.Order{}, repository.ErrOrderLocked
	}
	flight := m.holds[o.FlightID]
	if flight == nil {
		flight = map[string]memHold{}
		m.holds[o.FlightID] = flight
	}
	var taken []string
	for _, l := range labels {
		if h, ok := flight[l]; ok && h.orderID != orderID && live(h, now) {
			taken = append(taken, l)
		}
	}
	if len(taken) > 0 {
		return model.Order{}, &repository.SeatConflictError{Seats: taken}
	}
	for l, h := range flight {
		if h.orderID == orderID || !live(h, now) {
			delete(flight, l)
		}
	}
	exp := expiresAt
	for _, l := range labels {
		flight[l] = memHold{orderID: orderID, expires: &exp}
	}
	o.Status, o.HoldExpiresAt = model.PhaseSeatsSelected, &exp
	if len(labels) == 0 {
		o.Status, o.HoldExpiresAt = model.PhasePending, nil
	}
	o.Version++
	m.orders[orderID] = o
	o.Seats = m.seatsOf(o)
	return o, nil
}

func (m *memStore) ConfirmOrder(_ context.Context, orderID string, now time.Time) (model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	switch {
	case !ok:
		return model.Order{}, repository.ErrOrderNotFound
	case o.Status == model.PhaseConfirmed:
		o.Seats = m.seatsOf(o)
		return o, nil
	case o.Status == model.PhasePending:
		return model.Order{}, repository.ErrNoSeats
	case o.Status != model.PhaseSeatsSelected || o.Expired(now):
		return model.Order{}, repository.ErrOrderLocked
	}
	for l, h := range m.holds[o.FlightID] {
		if h.orderID == orderID {
			m.holds[o.FlightID][l] = memHold{orderID: orderID}
		}
	}
	o.Status, o.HoldExpiresAt = model.PhaseConfirmed, nil
	o.Version++
	m.orders[orderID] = o
	o.Seats = m.seatsOf(o)
	return o, nil
}

func (m *memStore) FlightOccupancy(_ context.Context, flightID, exclude string, now time.Time) (held, confirmed []string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, nil, m.err
	}
	for l, h := range m.holds[flightID] {
		switch {
		case h.orderID == exclude || !live(h, now):
		case h.expires == nil:
			confirmed = append(confirmed, l)
		default:
			held = append(held, l)
		}
	}
	return held, confirmed, nil
}

func (m *memStore) ExpireDue(_ context.Context, now time.Time) ([]model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var due []model.Order
	for id, o := range m.orders {
		if !o.Expired(now) {
			continue
		}
		for l, h := range m.holds[o.FlightID] {
			if h.orderID == id {
				delete(m.holds[o.FlightID], l)
			}
		}
		o.Status = model.PhaseExpired
		o.Version++
		m.orders[id] = o
		o.Seats = []string{}
		due = append(due, o)
	}
	return due, nil
}

type recordingPublisher struct {
	mu   sync.Mutex
	recs []model.OrderRecord
	err  error
}

func (p *recordingPublisher) PublishOrderUpdated(_ context.Context, rec model.OrderRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.recs = append(p.recs, rec)
	return p.err
}

func (p *recordingPublisher) Records() []model.OrderRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.OrderRecord(nil), p.recs...)
}

type recordingCache struct {
	mu      sync.Mutex
	flights []string
}

func (c *recordingCache) InvalidateFlight(_ context.Context, flightID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flights = append(c.flights, flightID)
	return nil
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
