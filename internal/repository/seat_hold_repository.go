package repository

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"sort"
	"time"

	"github.com/iliyamo/flight-seat-reservation/internal/model"
	"github.com/iliyamo/flight-seat-reservation/internal/seat"
)

// SeatHoldRepo provides access to the seat_holds table.  A row claims one
// seat of one flight for one order; the unique (flight_id, seat_label) key
// guarantees a seat is never claimed twice.  Rows with expires_at IS NULL
// are confirmed; rows whose expires_at has passed are stale and ignored by
// every read.
type SeatHoldRepo struct {
	db *sql.DB
}

// NewSeatHoldRepo returns a new SeatHoldRepo bound to the provided database.
func NewSeatHoldRepo(db *sql.DB) *SeatHoldRepo { return &SeatHoldRepo{db: db} }

// LabelsByOrder returns the seats claimed by an order in canonical order.
func (r *SeatHoldRepo) LabelsByOrder(ctx context.Context, q querier, orderID string) ([]string, error) {
	rows, err := q.QueryContext(ctx, `SELECT seat_label FROM seat_holds WHERE order_id = ?`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	labels := []string{}
	for rows.Next() {
		var l string
		if err := rows.Scan(&l); err != nil {
			return nil, err
		}
		labels = append(labels, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortLabels(labels)
	return labels, nil
}

// DeleteExpiredTx removes stale holds of a flight so that their seats can
// be claimed again.  It returns the number of rows removed.
func (r *SeatHoldRepo) DeleteExpiredTx(ctx context.Context, tx *sql.Tx, flightID string, now time.Time) (int64, error) {
	res, err := tx.ExecContext(ctx,
		`DELETE FROM seat_holds WHERE flight_id = ? AND expires_at IS NOT NULL AND expires_at <= ?`,
		flightID, now.UTC(),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ConflictsTx returns which of labels are claimed on the flight by an order
// other than orderID.  The matching rows stay locked until tx ends.
func (r *SeatHoldRepo) ConflictsTx(ctx context.Context, tx *sql.Tx, flightID, orderID string, labels []string, now time.Time) ([]string, error) {
	if len(labels) == 0 {
		return nil, nil
	}
	q := `SELECT seat_label FROM seat_holds
	      WHERE flight_id = ? AND order_id <> ? AND (expires_at IS NULL OR expires_at > ?)
	      AND seat_label IN (` + placeholders(len(labels)) + `) FOR UPDATE`
	args := make([]any, 0, len(labels)+3)
	args = append(args, flightID, orderID, now.UTC())
	for _, l := range labels {
		args = append(args, l)
	}
	rows, err := tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var taken []string
	for rows.Next() {
		var l string
		if err := rows.Scan(&l); err != nil {
			return nil, err
		}
		taken = append(taken, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortLabels(taken)
	return taken, nil
}

// DeleteByOrderTx releases every seat of an order.
func (r *SeatHoldRepo) DeleteByOrderTx(ctx context.Context, tx *sql.Tx, orderID string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM seat_holds WHERE order_id = ?`, orderID)
	return err
}

// DeleteByOrdersTx releases every seat of the given orders.
func (r *SeatHoldRepo) DeleteByOrdersTx(ctx context.Context, tx *sql.Tx, orderIDs []string) error {
	if len(orderIDs) == 0 {
		return nil
	}
	args := make([]any, len(orderIDs))
	for i, id := range orderIDs {
		args[i] = id
	}
	_, err := tx.ExecContext(ctx,
		`DELETE FROM seat_holds WHERE order_id IN (`+placeholders(len(orderIDs))+`)`, args...)
	return err
}

// CreateMultipleTx inserts holds in a single statement.  A unique key
// violation means another order claimed one of the seats concurrently and
// is reported as a *SeatConflictError naming all inserted seats.
func (r *SeatHoldRepo) CreateMultipleTx(ctx context.Context, tx *sql.Tx, holds []model.SeatHold) error {
	if len(holds) == 0 {
		return nil
	}
	query := `INSERT INTO seat_holds (order_id, flight_id, seat_label, hold_token, expires_at) VALUES `
	args := make([]any, 0, len(holds)*5)
	labels := make([]string, 0, len(holds))
	for i, h := range holds {
		if i > 0 {
			query += ", "
		}
		query += "(?, ?, ?, ?, ?)"
		var exp any
		if h.ExpiresAt != nil {
			exp = h.ExpiresAt.UTC()
		}
		args = append(args, h.OrderID, h.FlightID, h.SeatLabel, h.HoldToken, exp)
		labels = append(labels, h.SeatLabel)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		if isDuplicate(err) {
			sortLabels(labels)
			return &SeatConflictError{Seats: labels}
		}
		return err
	}
	return nil
}

// ConfirmByOrderTx makes every hold of the order permanent.
func (r *SeatHoldRepo) ConfirmByOrderTx(ctx context.Context, tx *sql.Tx, orderID string) error {
	_, err := tx.ExecContext(ctx, `UPDATE seat_holds SET expires_at = NULL WHERE order_id = ?`, orderID)
	return err
}

// Occupancy splits the live claims on a flight into held and confirmed
// seats, ignoring those of excludeOrderID (pass "" to include every order).
func (r *SeatHoldRepo) Occupancy(ctx context.Context, flightID, excludeOrderID string, now time.Time) (held, confirmed []string, err error) {
	const q = `SELECT seat_label, expires_at FROM seat_holds
	           WHERE flight_id = ? AND order_id <> ? AND (expires_at IS NULL OR expires_at > ?)`
	rows, err := r.db.QueryContext(ctx, q, flightID, excludeOrderID, now.UTC())
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	held, confirmed = []string{}, []string{}
	for rows.Next() {
		var (
			label string
			exp   sql.NullTime
		)
		if err := rows.Scan(&label, &exp); err != nil {
			return nil, nil, err
		}
		if exp.Valid {
			held = append(held, label)
		} else {
			confirmed = append(confirmed, label)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	sortLabels(held)
	sortLabels(confirmed)
	return held, confirmed, nil
}

// GenerateHolds builds hold rows for the given seats, each with its own
// random token.
func GenerateHolds(orderID, flightID string, labels []string, expiresAt time.Time) ([]model.SeatHold, error) {
	exp := expiresAt.UTC()
	holds := make([]model.SeatHold, 0, len(labels))
	for _, l := range labels {
		token, err := randomToken(16)
		if err != nil {
			return nil, err
		}
		holds = append(holds, model.SeatHold{
			OrderID:   orderID,
			FlightID:  flightID,
			SeatLabel: l,
			HoldToken: token,
			ExpiresAt: &exp,
		})
	}
	return holds, nil
}

// randomToken returns n random bytes hex-encoded.
func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// sortLabels orders seat labels by row, then column.  Labels that do not
// parse sort after the valid ones, lexically.
func sortLabels(labels []string) {
	sort.SliceStable(labels, func(i, j int) bool {
		a, errA := seat.ParseID(labels[i])
		b, errB := seat.ParseID(labels[j])
		switch {
		case errA == nil && errB == nil:
			return a.Less(b)
		case errA == nil:
			return true
		case errB == nil:
			return false
		}
		return labels[i] < labels[j]
	})
}
