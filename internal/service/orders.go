// Package service implements the seat service's order operations on top of
// the repository layer and announces every committed change.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	glog "github.com/labstack/gommon/log"

	"github.com/iliyamo/flight-seat-reservation/internal/model"
	"github.com/iliyamo/flight-seat-reservation/internal/seat"
)

var (
	// ErrInvalidSeats wraps a seat list with an unknown, off-cabin or
	// duplicate label.
	ErrInvalidSeats = errors.New("invalid seats")
	// ErrInvalidOrder is returned for a missing flight or malformed order ID.
	ErrInvalidOrder = errors.New("invalid order")
)

const maxIDLen = 64

// Store is the persistence the order service needs; *repository.Store
// implements it against MySQL.
type Store interface {
	CreateOrder(ctx context.Context, o *model.Order) error
	GetOrder(ctx context.Context, id string) (model.Order, error)
	ReplaceSeats(ctx context.Context, orderID string, labels []string, now, expiresAt time.Time) (model.Order, error)
	ConfirmOrder(ctx context.Context, orderID string, now time.Time) (model.Order, error)
	FlightOccupancy(ctx context.Context, flightID, excludeOrderID string, now time.Time) (held, confirmed []string, err error)
	ExpireDue(ctx context.Context, now time.Time) ([]model.Order, error)
}

// Publisher announces committed order changes to every subscriber of the
// order, on this instance and others.
type Publisher interface {
	PublishOrderUpdated(ctx context.Context, rec model.OrderRecord) error
}

// CacheInvalidator drops cached availability of a flight.
type CacheInvalidator interface {
	InvalidateFlight(ctx context.Context, flightID string) error
}

// Logger is satisfied by echo's logger and by gommon's *log.Logger.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// OrdersConfig wires an Orders service.  Store and Publisher are required.
type OrdersConfig struct {
	Store     Store
	Publisher Publisher
	Cache     CacheInvalidator // optional
	Layout    seat.Layout
	HoldTTL   time.Duration
	Clock     clockwork.Clock
	Logger    Logger
}

// Orders creates orders, replaces their seats, confirms them and reports
// flight availability.
type Orders struct {
	store   Store
	pub     Publisher
	cache   CacheInvalidator
	layout  seat.Layout
	holdTTL time.Duration
	clock   clockwork.Clock
	log     Logger
}

func NewOrders(cfg OrdersConfig) *Orders {
	if cfg.Store == nil || cfg.Publisher == nil {
		panic("nil store or publisher passed to NewOrders")
	}
	o := &Orders{
		store:   cfg.Store,
		pub:     cfg.Publisher,
		cache:   cfg.Cache,
		layout:  cfg.Layout,
		holdTTL: cfg.HoldTTL,
		clock:   cfg.Clock,
		log:     cfg.Logger,
	}
	if o.layout.Size() == 0 {
		o.layout = seat.DefaultLayout()
	}
	if o.holdTTL <= 0 {
		o.holdTTL = 15 * time.Minute
	}
	if o.clock == nil {
		o.clock = clockwork.NewRealClock()
	}
	if o.log == nil {
		o.log = glog.New("orders")
	}
	return o
}

// Layout is the cabin layout shared by every flight.
func (s *Orders) Layout() seat.Layout { return s.layout }

// Create starts a PENDING order on flightID.  An empty orderID is replaced
// by a random UUID.
func (s *Orders) Create(ctx context.Context, flightID, orderID string) (model.Order, error) {
	if flightID == "" || len(flightID) > maxIDLen {
		return model.Order{}, fmt.Errorf("%w: flight id is required", ErrInvalidOrder)
	}
	if orderID == "" {
		orderID = uuid.NewString()
	}
	if len(orderID) > maxIDLen {
		return model.Order{}, fmt.Errorf("%w: order id longer than %d", ErrInvalidOrder, maxIDLen)
	}
	o := model.Order{ID: orderID, FlightID: flightID, Status: model.PhasePending, Seats: []string{}}
	if err := s.store.CreateOrder(ctx, &o); err != nil {
		return model.Order{}, err
	}
	s.log.Infof("order %s created on flight %s", o.ID, o.FlightID)
	return o, nil
}

// Status returns the order as clients should see it: an order whose holds
// lapsed reads as EXPIRED with no seats even before the sweeper runs.
func (s *Orders) Status(ctx context.Context, orderID string) (model.Order, error) {
	o, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return model.Order{}, err
	}
	if o.Expired(s.clock.Now()) {
		o.Status = model.PhaseExpired
		o.Seats = []string{}
	}
	return o, nil
}

// UpdateSeats replaces the order's seats with labels and refreshes the hold.
func (s *Orders) UpdateSeats(ctx context.Context, orderID string, labels []string) (model.Order, error) {
	set, err := s.layout.ParseSet(labels)
	if err != nil {
		return model.Order{}, fmt.Errorf("%w: %w", ErrInvalidSeats, err)
	}
	now := s.clock.Now().UTC()
	o, err := s.store.ReplaceSeats(ctx, orderID, set.Strings(), now, now.Add(s.holdTTL))
	if err != nil {
		return model.Order{}, err
	}
	s.log.Infof("order %s now holds %v until %s", o.ID, o.Seats, o.HoldExpiresAt)
	s.announce(ctx, o)
	return o, nil
}

// Confirm makes the order's seats permanent.
func (s *Orders) Confirm(ctx context.Context, orderID string) (model.Order, error) {
	o, err := s.store.ConfirmOrder(ctx, orderID, s.clock.Now().UTC())
	if err != nil {
		return model.Order{}, err
	}
	s.log.Infof("order %s confirmed with seats %v", o.ID, o.Seats)
	s.announce(ctx, o)
	return o, nil
}

// Availability classifies every seat of the cabin.  Seats of
// excludeOrderID are reported as available so a client can tell its own
// seats from other orders' seats.
func (s *Orders) Availability(ctx context.Context, flightID, excludeOrderID string) (model.FlightAvailability, error) {
	held, confirmed, err := s.store.FlightOccupancy(ctx, flightID, excludeOrderID, s.clock.Now().UTC())
	if err != nil {
		return model.FlightAvailability{}, err
	}
	taken := make(map[string]bool, len(held)+len(confirmed))
	out := model.FlightAvailability{
		FlightID:  flightID,
		Available: []string{},
		Held:      []string{},
		Confirmed: []string{},
		Total:     s.layout.Size(),
	}
	for _, l := range confirmed {
		if !taken[l] && s.onLayout(l) {
			taken[l] = true
			out.Confirmed = append(out.Confirmed, l)
		}
	}
	for _, l := range held {
		if !taken[l] && s.onLayout(l) {
			taken[l] = true
			out.Held = append(out.Held, l)
		}
	}
	for _, id := range s.layout.All() {
		if l := id.String(); !taken[l] {
			out.Available = append(out.Available, l)
		}
	}
	return out, nil
}

func (s *Orders) onLayout(label string) bool {
	_, err := s.layout.Parse(label)
	return err == nil
}

// SweepExpired expires every order whose holds lapsed and announces each.
func (s *Orders) SweepExpired(ctx context.Context) (int, error) {
	due, err := s.store.ExpireDue(ctx, s.clock.Now().UTC())
	if err != nil {
		return 0, err
	}
	for _, o := range due {
		s.log.Infof("order %s expired, seats released", o.ID)
		s.announce(ctx, o)
	}
	return len(due), nil
}

// RunSweeper calls SweepExpired every interval until ctx is done.
func (s *Orders) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if _, err := s.SweepExpired(ctx); err != nil && ctx.Err() == nil {
				s.log.Errorf("hold sweeper: %v", err)
			}
		}
	}
}

// announce publishes the committed order and drops the flight's cached
// availability.  Failures are logged; the change itself is already durable.
func (s *Orders) announce(ctx context.Context, o model.Order) {
	if err := s.pub.PublishOrderUpdated(ctx, o.Record()); err != nil {
		s.log.Warnf("order %s: publishing update failed: %v", o.ID, err)
	}
	if s.cache != nil {
		if err := s.cache.InvalidateFlight(ctx, o.FlightID); err != nil {
			s.log.Warnf("flight %s: cache invalidation failed: %v", o.FlightID, err)
		}
	}
}
