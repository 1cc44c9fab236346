package seatgrid

import (
	"github.com/iliyamo/flight-seat-reservation/internal/seat"
)

// Availability is the parsed flight-wide occupancy snapshot.  The sets are
// expected to be disjoint but nothing here depends on it.
type Availability struct {
	Available         seat.Set
	HeldByOthers      seat.Set
	ConfirmedByOthers seat.Set
}

// Occupied reports whether another order holds or has confirmed id.
func (a Availability) Occupied(id seat.ID) bool {
	return a.HeldByOthers.Contains(id) || a.ConfirmedByOthers.Contains(id)
}

// Reconcile is the sync rule applied when a new server selection arrives.
// The server selection replaces the local one only when the client is
// waiting for the acknowledgment of its own confirmation, or when the two
// already agree; otherwise the unconfirmed local edit is kept.  Receiving
// the awaited record closes the gate.
func Reconcile(local, server seat.Set, gate GateStatus) (seat.Set, GateStatus) {
	if gate == AwaitingServerAck {
		return server.Clone(), Idle
	}
	if local.Key() == server.Key() {
		return server.Clone(), gate
	}
	return local, gate
}

// VisualState is the rendered state of one seat.
type VisualState int

const (
	Available VisualState = iota
	LocallySelected
	BeingConfirmed
	ConfirmedMine
	HeldByOther
	ConfirmedByOther
	LockedOut
)

var visualStateNames = [...]string{
	Available:        "available",
	LocallySelected:  "selected",
	BeingConfirmed:   "confirming",
	ConfirmedMine:    "confirmed-mine",
	HeldByOther:      "held",
	ConfirmedByOther: "confirmed-other",
	LockedOut:        "locked",
}

func (v VisualState) String() string {
	if v < 0 || int(v) >= len(visualStateNames) {
		return "unknown"
	}
	return visualStateNames[v]
}

// View is everything Derive needs to colour a seat.
type View struct {
	Local        seat.Set
	Server       seat.Set
	Availability Availability
	Gate         GateStatus
	Locked       bool
}

// Derive computes the visual state of id.  Rules are evaluated in order and
// the first match wins; a locked grid then overrides everything except the
// order's own confirmed or confirming seats.
func Derive(id seat.ID, v View) VisualState {
	st := derive(id, v)
	if v.Locked && st != ConfirmedMine && st != BeingConfirmed {
		return LockedOut
	}
	return st
}

func derive(id seat.ID, v View) VisualState {
	switch {
	case v.Availability.ConfirmedByOthers.Contains(id):
		return ConfirmedByOther
	case v.Availability.HeldByOthers.Contains(id):
		return HeldByOther
	case v.Gate != Idle && v.Local.Contains(id):
		return BeingConfirmed
	case v.Server.Contains(id):
		return ConfirmedMine
	case v.Local.Contains(id):
		return LocallySelected
	default:
		return Available
	}
}
