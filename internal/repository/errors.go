// Package repository persists orders and seat holds in MySQL.  Sentinel
// errors let the service and handler layers tell failure scenarios apart:
// ErrOrderNotFound maps to 404, ErrSeatConflict and ErrOrderLocked to 409.
package repository

import (
	"errors"
	"strings"
)

// ErrOrderNotFound is returned when no order has the requested ID.
var ErrOrderNotFound = errors.New("order not found")

// ErrOrderExists is returned when creating an order whose ID is taken.
var ErrOrderExists = errors.New("order already exists")

// ErrOrderLocked is returned when an order's phase no longer allows its
// seats to change (CONFIRMED or EXPIRED).
var ErrOrderLocked = errors.New("order is locked")

// ErrNoSeats is returned when confirming an order that holds no seats.
var ErrNoSeats = errors.New("order holds no seats")

// ErrSeatConflict is matched by every *SeatConflictError.
var ErrSeatConflict = errors.New("seats unavailable")

// SeatConflictError lists the requested seats that another order holds or
// has confirmed.
type SeatConflictError struct {
	Seats []string
}

func (e *SeatConflictError) Error() string {
	return ErrSeatConflict.Error() + ": " + strings.Join(e.Seats, ",")
}

func (e *SeatConflictError) Unwrap() error { return ErrSeatConflict }
