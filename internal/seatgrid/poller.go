package seatgrid

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/iliyamo/flight-seat-reservation/internal/seat"
)

// DefaultPollInterval is how often the availability snapshot is refreshed.
const DefaultPollInterval = time.Second

// Poller refreshes the availability snapshot of one flight on a fixed
// interval.  A failed fetch keeps the last known snapshot: the error is
// logged and the next tick tries again.
type Poller struct {
	Source   AvailabilitySource
	Layout   seat.Layout
	Interval time.Duration
	Clock    clockwork.Clock
	Log      Logger
}

// Run fetches immediately, then on every tick, handing each successful
// snapshot to apply.  It returns when ctx is done.
func (p *Poller) Run(ctx context.Context, flightID string, apply func(Availability)) {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	p.poll(ctx, flightID, apply)

	ticker := p.Clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			p.poll(ctx, flightID, apply)
		}
	}
}

func (p *Poller) poll(ctx context.Context, flightID string, apply func(Availability)) {
	report, err := p.Source.FetchAvailability(ctx, flightID)
	if err != nil {
		if ctx.Err() == nil {
			p.Log.Warnf("availability poll for flight %s failed: %v", flightID, err)
		}
		return
	}
	if ctx.Err() != nil {
		return
	}
	a, bad := ParseAvailability(p.Layout, report)
	if len(bad) > 0 {
		p.Log.Warnf("availability for flight %s: ignored invalid seats %v", flightID, bad)
	}
	apply(a)
}

// ParseAvailability converts a raw report into seat sets.  Labels that do
// not parse or fall outside the layout are skipped and returned in bad.
func ParseAvailability(layout seat.Layout, r AvailabilityReport) (a Availability, bad []string) {
	parse := func(labels []string) seat.Set {
		s := seat.NewSet()
		for _, l := range labels {
			id, err := layout.Parse(l)
			if err != nil {
				bad = append(bad, l)
				continue
			}
			s.Add(id)
		}
		return s
	}
	a.Available = parse(r.Available)
	a.HeldByOthers = parse(r.Held)
	a.ConfirmedByOthers = parse(r.Confirmed)
	return a, bad
}
