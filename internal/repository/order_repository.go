package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/flight-seat-reservation/internal/model"
)

// mysqlDuplicateEntry is the server error number for a unique key violation.
const mysqlDuplicateEntry = 1062

// querier is satisfied by both *sql.DB and *sql.Tx so read helpers can run
// inside or outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// OrderRepo provides access to the orders table.  All timestamps are stored
// and compared in UTC.
type OrderRepo struct {
	db *sql.DB
}

// NewOrderRepo returns a new OrderRepo bound to the given database.
func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

const orderColumns = `id, flight_id, status, version, hold_expires_at, created_at, updated_at`

// Create inserts a new order with version 0.  CreatedAt and UpdatedAt are
// filled by the database and not read back.  A taken ID yields
// ErrOrderExists.
func (r *OrderRepo) Create(ctx context.Context, o *model.Order) error {
	const q = `INSERT INTO orders (id, flight_id, status, version) VALUES (?, ?, ?, 0)`
	if _, err := r.db.ExecContext(ctx, q, o.ID, o.FlightID, o.Status); err != nil {
		if isDuplicate(err) {
			return ErrOrderExists
		}
		return err
	}
	o.Version = 0
	return nil
}

// GetByID returns the order without its seats.
func (r *OrderRepo) GetByID(ctx context.Context, id string) (model.Order, error) {
	return r.get(ctx, r.db, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
}

// GetForUpdateTx reads the order and locks its row until tx ends, which
// serialises concurrent edits of the same order.
func (r *OrderRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id string) (model.Order, error) {
	return r.get(ctx, tx, `SELECT `+orderColumns+` FROM orders WHERE id = ? FOR UPDATE`, id)
}

func (r *OrderRepo) get(ctx context.Context, q querier, query, id string) (model.Order, error) {
	var (
		o   model.Order
		exp sql.NullTime
	)
	err := q.QueryRowContext(ctx, query, id).Scan(
		&o.ID, &o.FlightID, &o.Status, &o.Version, &exp, &o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Order{}, ErrOrderNotFound
	}
	if err != nil {
		return model.Order{}, err
	}
	if exp.Valid {
		t := exp.Time.UTC()
		o.HoldExpiresAt = &t
	}
	return o, nil
}

// UpdateStatusTx sets the phase and hold expiry of an order and bumps its
// version.  A nil holdExpiresAt clears the column.
func (r *OrderRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id, status string, holdExpiresAt *time.Time) error {
	const q = `UPDATE orders SET status = ?, hold_expires_at = ?, version = version + 1 WHERE id = ?`
	var exp any
	if holdExpiresAt != nil {
		exp = holdExpiresAt.UTC()
	}
	_, err := tx.ExecContext(ctx, q, status, exp, id)
	return err
}

// DueForExpiryTx locks and returns the orders whose holds lapsed at or
// before now.  Only ID, FlightID, Status and Version are populated.
func (r *OrderRepo) DueForExpiryTx(ctx context.Context, tx *sql.Tx, now time.Time) ([]model.Order, error) {
	const q = `SELECT id, flight_id, status, version FROM orders
	           WHERE status = ? AND hold_expires_at <= ? FOR UPDATE`
	rows, err := tx.QueryContext(ctx, q, model.PhaseSeatsSelected, now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var due []model.Order
	for rows.Next() {
		var o model.Order
		if err := rows.Scan(&o.ID, &o.FlightID, &o.Status, &o.Version); err != nil {
			return nil, err
		}
		due = append(due, o)
	}
	return due, rows.Err()
}

// MarkExpiredTx moves the given orders to EXPIRED and bumps their version.
func (r *OrderRepo) MarkExpiredTx(ctx context.Context, tx *sql.Tx, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	q := `UPDATE orders SET status = ?, version = version + 1 WHERE id IN (` + placeholders(len(ids)) + `)`
	args := make([]any, 0, len(ids)+1)
	args = append(args, model.PhaseExpired)
	for _, id := range ids {
		args = append(args, id)
	}
	_, err := tx.ExecContext(ctx, q, args...)
	return err
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
