package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/flight-seat-reservation/internal/model"
)

// Store runs the multi-statement order operations, each inside its own
// transaction.  Every method either commits all of its writes or none.
type Store struct {
	db     *sql.DB
	Orders *OrderRepo
	Holds  *SeatHoldRepo
}

// NewStore wires the order and seat hold repositories to db.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, Orders: NewOrderRepo(db), Holds: NewSeatHoldRepo(db)}
}

// CreateOrder inserts a PENDING order.
func (s *Store) CreateOrder(ctx context.Context, o *model.Order) error {
	return s.Orders.Create(ctx, o)
}

// GetOrder returns the order together with its seats.
func (s *Store) GetOrder(ctx context.Context, id string) (model.Order, error) {
	o, err := s.Orders.GetByID(ctx, id)
	if err != nil {
		return model.Order{}, err
	}
	if o.Seats, err = s.Holds.LabelsByOrder(ctx, s.db, id); err != nil {
		return model.Order{}, err
	}
	return o, nil
}

// withTx runs fn in a transaction and commits when fn succeeds.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// ReplaceSeats makes labels the complete set of seats held by the order,
// releasing seats no longer wanted and refreshing the hold of all of them
// to expiresAt.  An empty set releases everything and returns the order to
// PENDING.  It fails with ErrOrderLocked when the order is final or its
// holds have lapsed, and with a *SeatConflictError when another order
// holds or has confirmed any of the seats.
func (s *Store) ReplaceSeats(ctx context.Context, orderID string, labels []string, now, expiresAt time.Time) (model.Order, error) {
	var o model.Order
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		if o, err = s.Orders.GetForUpdateTx(ctx, tx, orderID); err != nil {
			return err
		}
		if !o.Editable() || o.Expired(now) {
			return ErrOrderLocked
		}
		if _, err := s.Holds.DeleteExpiredTx(ctx, tx, o.FlightID, now); err != nil {
			return err
		}
		taken, err := s.Holds.ConflictsTx(ctx, tx, o.FlightID, o.ID, labels, now)
		if err != nil {
			return err
		}
		if len(taken) > 0 {
			return &SeatConflictError{Seats: taken}
		}
		if err := s.Holds.DeleteByOrderTx(ctx, tx, o.ID); err != nil {
			return err
		}
		holds, err := GenerateHolds(o.ID, o.FlightID, labels, expiresAt)
		if err != nil {
			return err
		}
		if err := s.Holds.CreateMultipleTx(ctx, tx, holds); err != nil {
			return err
		}

		o.Status, o.HoldExpiresAt = model.PhaseSeatsSelected, &expiresAt
		if len(labels) == 0 {
			o.Status, o.HoldExpiresAt = model.PhasePending, nil
		}
		return s.Orders.UpdateStatusTx(ctx, tx, o.ID, o.Status, o.HoldExpiresAt)
	})
	if err != nil {
		return model.Order{}, err
	}
	o.Version++
	o.Seats = append([]string{}, labels...)
	sortLabels(o.Seats)
	return o, nil
}

// ConfirmOrder makes the order's holds permanent and moves it to
// CONFIRMED.  Confirming an already confirmed order returns it unchanged.
func (s *Store) ConfirmOrder(ctx context.Context, orderID string, now time.Time) (model.Order, error) {
	var o model.Order
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		if o, err = s.Orders.GetForUpdateTx(ctx, tx, orderID); err != nil {
			return err
		}
		switch {
		case o.Status == model.PhaseConfirmed:
			o.Seats, err = s.Holds.LabelsByOrder(ctx, tx, o.ID)
			return err
		case o.Status == model.PhasePending:
			return ErrNoSeats
		case o.Status != model.PhaseSeatsSelected || o.Expired(now):
			return ErrOrderLocked
		}
		if err := s.Holds.ConfirmByOrderTx(ctx, tx, o.ID); err != nil {
			return err
		}
		if err := s.Orders.UpdateStatusTx(ctx, tx, o.ID, model.PhaseConfirmed, nil); err != nil {
			return err
		}
		o.Status, o.HoldExpiresAt = model.PhaseConfirmed, nil
		o.Version++
		o.Seats, err = s.Holds.LabelsByOrder(ctx, tx, o.ID)
		return err
	})
	if err != nil {
		return model.Order{}, err
	}
	return o, nil
}

// FlightOccupancy returns the seats of a flight held or confirmed by orders
// other than excludeOrderID.
func (s *Store) FlightOccupancy(ctx context.Context, flightID, excludeOrderID string, now time.Time) (held, confirmed []string, err error) {
	return s.Holds.Occupancy(ctx, flightID, excludeOrderID, now)
}

// ExpireDue moves every order whose holds lapsed at or before now to
// EXPIRED and releases its seats.  The returned orders carry their new
// status and version and no seats.
func (s *Store) ExpireDue(ctx context.Context, now time.Time) ([]model.Order, error) {
	var due []model.Order
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		if due, err = s.Orders.DueForExpiryTx(ctx, tx, now); err != nil || len(due) == 0 {
			return err
		}
		ids := make([]string, len(due))
		for i, o := range due {
			ids[i] = o.ID
		}
		if err := s.Holds.DeleteByOrdersTx(ctx, tx, ids); err != nil {
			return err
		}
		return s.Orders.MarkExpiredTx(ctx, tx, ids)
	})
	if err != nil {
		return nil, err
	}
	for i := range due {
		due[i].Status = model.PhaseExpired
		due[i].Version++
		due[i].Seats = []string{}
	}
	return due, nil
}
