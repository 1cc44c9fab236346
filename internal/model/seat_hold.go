package model

import "time"

// SeatHold is one seat of a flight claimed by an order.  A hold with a nil
// ExpiresAt belongs to a confirmed order and never lapses.
//
// Fields:
//
//	ID        – seat_holds.id
//	OrderID   – order owning the seat
//	FlightID  – flight the seat belongs to
//	SeatLabel – canonical label such as "3C"
//	HoldToken – random token identifying this particular hold
//	ExpiresAt – when the hold lapses (nil once confirmed)
type SeatHold struct {
	ID        uint64
	OrderID   string
	FlightID  string
	SeatLabel string
	HoldToken string
	ExpiresAt *time.Time
	CreatedAt time.Time
}

// Confirmed reports whether the hold is permanent.
func (h SeatHold) Confirmed() bool { return h.ExpiresAt == nil }
