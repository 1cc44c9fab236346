package model

import "time"

// Order phases.  Seats may only change while an order is PENDING or
// SEATS_SELECTED; CONFIRMED and EXPIRED are final.
const (
	PhasePending       = "PENDING"
	PhaseSeatsSelected = "SEATS_SELECTED"
	PhaseConfirmed     = "CONFIRMED"
	PhaseExpired       = "EXPIRED"
)

// EditablePhases lists the phases in which an order's seats may change.
var EditablePhases = []string{PhasePending, PhaseSeatsSelected}

// Order is one customer's seat reservation on a flight.
//
// Fields:
//
//	ID            – client- or server-assigned identifier.
//	FlightID      – flight whose cabin the seats belong to.
//	Status        – one of the Phase constants.
//	Version       – incremented on every committed change.
//	HoldExpiresAt – when the current holds lapse; nil unless SEATS_SELECTED.
//	Seats         – labels currently held or confirmed, sorted.
type Order struct {
	ID            string
	FlightID      string
	Status        string
	Version       int64
	HoldExpiresAt *time.Time
	Seats         []string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Editable reports whether the order's seats may still change.
func (o Order) Editable() bool {
	return o.Status == PhasePending || o.Status == PhaseSeatsSelected
}

// Expired reports whether the order's holds have lapsed at now even if the
// sweeper has not marked it yet.
func (o Order) Expired(now time.Time) bool {
	return o.Status == PhaseSeatsSelected && o.HoldExpiresAt != nil && !o.HoldExpiresAt.After(now)
}

// Record is the wire form of the order pushed to clients.
func (o Order) Record() OrderRecord {
	seats := o.Seats
	if seats == nil {
		seats = []string{}
	}
	return OrderRecord{
		OrderID:       o.ID,
		FlightID:      o.FlightID,
		State:         o.Status,
		Seats:         seats,
		HoldExpiresAt: o.HoldExpiresAt,
		Version:       o.Version,
	}
}

// OrderRecord is the authoritative order state as served by
// GET /orders/:id/status and pushed over SSE and WebSocket.
type OrderRecord struct {
	OrderID       string     `json:"orderId"`
	FlightID      string     `json:"flightId"`
	State         string     `json:"state"`
	Seats         []string   `json:"seats"`
	HoldExpiresAt *time.Time `json:"holdExpiresAt,omitempty"`
	Version       int64      `json:"version"`
}
