package seatgrid

import (
	"context"
	"time"
)

// OrderRecord is one authoritative snapshot of an order.  Every delivery
// replaces the previous one entirely.
type OrderRecord struct {
	OrderID       string
	Seats         []string
	Phase         string
	HoldExpiresAt time.Time
	Version       int64
}

// AvailabilityReport is the raw flight-wide occupancy returned by an
// AvailabilitySource, before seat labels are parsed.
type AvailabilityReport struct {
	Available []string
	Held      []string
	Confirmed []string
}

// OrderFeed delivers authoritative order records.  Subscribe blocks until
// ctx is done or the underlying stream ends, calling deliver for every
// record in arrival order.  A nil return with ctx still live means the
// stream ended cleanly and may be resubscribed.
type OrderFeed interface {
	Subscribe(ctx context.Context, orderID string, deliver func(OrderRecord)) error
}

// AvailabilitySource answers the read-only occupancy query for a flight.
// Implementations may exclude the caller's own order from Held/Confirmed.
type AvailabilitySource interface {
	FetchAvailability(ctx context.Context, flightID string) (AvailabilityReport, error)
}

// SeatMutator requests that the order hold exactly the given seats.
type SeatMutator interface {
	UpdateSeats(ctx context.Context, orderID string, seats []string) error
}

// Logger is the subset of the gommon/echo logger the engine writes to.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}
