package seatgrid

import (
	"time"

	"github.com/iliyamo/flight-seat-reservation/internal/seat"
)

// DefaultDebounceWindow is the minimum gap between accepted toggles of the
// same seat.
const DefaultDebounceWindow = 300 * time.Millisecond

// DebounceRecord is the last accepted toggle.
type DebounceRecord struct {
	Seat  seat.ID
	At    time.Time
	Valid bool
}

// Debouncer rejects a repeat toggle of the same seat inside Window.
// Toggles of different seats never debounce each other.
type Debouncer struct {
	Window time.Duration
	last   DebounceRecord
}

// NewDebouncer returns a Debouncer with the given window; a non-positive
// window selects DefaultDebounceWindow.
func NewDebouncer(window time.Duration) *Debouncer {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	return &Debouncer{Window: window}
}

// Allow reports whether a toggle of id at now may proceed and, if so,
// records it as the last accepted toggle.
func (d *Debouncer) Allow(id seat.ID, now time.Time) bool {
	if d.last.Valid && d.last.Seat == id && now.Sub(d.last.At) < d.Window {
		return false
	}
	d.last = DebounceRecord{Seat: id, At: now, Valid: true}
	return true
}

// Last returns the last accepted toggle.
func (d *Debouncer) Last() DebounceRecord { return d.last }
