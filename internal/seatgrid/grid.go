package seatgrid

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	glog "github.com/labstack/gommon/log"

	"github.com/iliyamo/flight-seat-reservation/internal/seat"
)

// ErrConfirmFailed wraps the cause of a rejected seat mutation.  The local
// selection is left untouched so the user can retry.
var ErrConfirmFailed = errors.New("seat confirmation failed")

// DefaultEditablePhases are the order phases in which seats may change.
var DefaultEditablePhases = []string{"PENDING", "SEATS_SELECTED"}

const maxFeedBackoff = 30 * time.Second

// Options configures a Grid.  Mutator is required; everything else has a
// usable default.
type Options struct {
	OrderID  string
	FlightID string
	Layout   seat.Layout

	Mutator      SeatMutator
	Feed         OrderFeed          // nil: order records only arrive via ApplyOrder
	Availability AvailabilitySource // nil: snapshot only arrives via ApplyAvailability

	// Initial is the order record known before mount; it seeds both the
	// server and the local selection.
	Initial *OrderRecord

	EditablePhases []string
	PollInterval   time.Duration
	DebounceWindow time.Duration
	Clock          clockwork.Clock
	Logger         Logger

	// OnChange runs after every accepted state change, outside the lock.
	OnChange func()
}

type lifecycle int

const (
	created lifecycle = iota
	mounted
	unmounted
)

// Grid is one mounted seat grid for one order.
type Grid struct {
	orderID  string
	layout   seat.Layout
	mutator  SeatMutator
	feed     OrderFeed
	poller   *Poller
	clock    clockwork.Clock
	log      Logger
	onChange func()
	editable map[string]bool

	mu            sync.Mutex
	state         lifecycle
	local         seat.Set
	server        seat.Set
	avail         Availability
	gate          Gate
	debounce      *Debouncer
	phase         string
	holdExpiresAt time.Time
	version       int64
	flightID      string

	cancel     context.CancelFunc
	ctx        context.Context
	pollCancel context.CancelFunc
	wg         sync.WaitGroup
}

// New builds an unmounted Grid.  It panics when opts.Mutator is nil.
func New(opts Options) *Grid {
	if opts.Mutator == nil {
		panic("nil SeatMutator passed to seatgrid.New")
	}
	layout := opts.Layout
	if layout.Rows <= 0 || layout.Cols <= 0 {
		layout = seat.DefaultLayout()
	}
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	var logger Logger = opts.Logger
	if logger == nil {
		logger = glog.New("seatgrid")
	}
	phases := opts.EditablePhases
	if len(phases) == 0 {
		phases = DefaultEditablePhases
	}
	editable := make(map[string]bool, len(phases))
	for _, p := range phases {
		editable[p] = true
	}

	g := &Grid{
		orderID:  opts.OrderID,
		layout:   layout,
		mutator:  opts.Mutator,
		feed:     opts.Feed,
		clock:    clock,
		log:      logger,
		onChange: opts.OnChange,
		editable: editable,
		local:    seat.NewSet(),
		server:   seat.NewSet(),
		avail:    emptyAvailability(),
		debounce: NewDebouncer(opts.DebounceWindow),
		flightID: opts.FlightID,
	}
	if opts.Availability != nil {
		g.poller = &Poller{
			Source:   opts.Availability,
			Layout:   layout,
			Interval: opts.PollInterval,
			Clock:    clock,
			Log:      logger,
		}
	}
	if opts.Initial != nil {
		if s, err := layout.ParseSet(opts.Initial.Seats); err == nil {
			g.server = s
			g.phase = opts.Initial.Phase
			g.holdExpiresAt = opts.Initial.HoldExpiresAt
			g.version = opts.Initial.Version
		} else {
			logger.Warnf("order %s: ignoring malformed initial record: %v", opts.OrderID, err)
		}
	}
	return g
}

func emptyAvailability() Availability {
	return Availability{Available: seat.NewSet(), HeldByOthers: seat.NewSet(), ConfirmedByOthers: seat.NewSet()}
}

// Mount seeds the local selection from the known server selection and
// starts the order feed subscription and the availability poller.  Both
// stop when ctx is done or Unmount is called.  Mount is a no-op on a grid
// that was already mounted.
func (g *Grid) Mount(ctx context.Context) {
	g.mu.Lock()
	if g.state != created {
		g.mu.Unlock()
		return
	}
	g.state = mounted
	g.local = g.server.Clone()
	g.ctx, g.cancel = context.WithCancel(ctx)
	if g.feed != nil {
		g.wg.Add(1)
		go g.runFeed(g.ctx)
	}
	g.startPollerLocked()
	g.mu.Unlock()
	g.notify()
}

// Unmount stops the poller and the feed subscription and waits for them.
// An in-flight Confirm is not cancelled; its resolution becomes a no-op.
// The grid cannot be mounted again.
func (g *Grid) Unmount() {
	g.mu.Lock()
	prev := g.state
	g.state = unmounted
	cancel := g.cancel
	g.mu.Unlock()
	if prev != mounted {
		return
	}
	cancel()
	g.wg.Wait()
}

// SetFlight switches the flight whose availability is polled.  An empty id
// stops polling.  The previous flight's snapshot is dropped.
func (g *Grid) SetFlight(flightID string) {
	g.mu.Lock()
	if flightID == g.flightID {
		g.mu.Unlock()
		return
	}
	g.flightID = flightID
	g.avail = emptyAvailability()
	if g.pollCancel != nil {
		g.pollCancel()
		g.pollCancel = nil
	}
	if g.state == mounted {
		g.startPollerLocked()
	}
	g.mu.Unlock()
	g.notify()
}

func (g *Grid) startPollerLocked() {
	if g.poller == nil || g.flightID == "" {
		return
	}
	flight := g.flightID
	pctx, cancel := context.WithCancel(g.ctx)
	g.pollCancel = cancel
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		g.poller.Run(pctx, flight, func(a Availability) { g.applyAvailability(flight, a) })
	}()
}

func (g *Grid) runFeed(ctx context.Context) {
	defer g.wg.Done()
	backoff := time.Second
	for {
		err := g.feed.Subscribe(ctx, g.orderID, g.ApplyOrder)
		if ctx.Err() != nil {
			return
		}
		wait := time.Second
		if err != nil {
			wait = backoff
			g.log.Warnf("order %s: update feed failed: %v; retrying in %s", g.orderID, err, wait)
			if backoff < maxFeedBackoff {
				backoff *= 2
			}
		} else {
			backoff = time.Second
		}
		select {
		case <-ctx.Done():
			return
		case <-g.clock.After(wait):
		}
	}
}

// Toggle flips id in the local selection.  It reports false, changing
// nothing, when the grid is locked or not mounted, a confirmation is in
// flight, the seat is held or confirmed by another order, the seat is not
// on the layout, or the same seat was toggled within the debounce window.
func (g *Grid) Toggle(id seat.ID) bool {
	g.mu.Lock()
	ok := g.toggleLocked(id)
	g.mu.Unlock()
	if ok {
		g.notify()
	}
	return ok
}

// ToggleLabel is Toggle for a textual seat label; unparseable labels are
// rejected like any other blocked toggle.
func (g *Grid) ToggleLabel(label string) bool {
	id, err := g.layout.Parse(label)
	if err != nil {
		return false
	}
	return g.Toggle(id)
}

func (g *Grid) toggleLocked(id seat.ID) bool {
	if g.state != mounted || g.lockedLocked() || g.gate.Status() != Idle {
		return false
	}
	if !g.layout.Contains(id) || g.avail.Occupied(id) {
		return false
	}
	if !g.debounce.Allow(id, g.clock.Now()) {
		return false
	}
	g.local = g.local.Toggle(id)
	return true
}

// Confirm submits the full local selection as the order's seats.  It
// reports whether a request was issued: nothing is sent unless the grid is
// mounted and editable, the gate is Idle, and there is a non-empty
// selection that differs from the server's.  A failed request returns the
// gate to Idle and an error wrapping ErrConfirmFailed.
func (g *Grid) Confirm(ctx context.Context) (bool, error) {
	g.mu.Lock()
	if g.state != mounted || g.lockedLocked() || g.local.Len() == 0 || g.local.Equal(g.server) {
		g.mu.Unlock()
		return false, nil
	}
	if !g.gate.Begin() {
		g.mu.Unlock()
		return false, nil
	}
	submitted := g.local.Clone()
	g.mu.Unlock()
	g.notify()

	err := g.mutator.UpdateSeats(ctx, g.orderID, submitted.Strings())

	g.mu.Lock()
	if g.state != mounted {
		g.mu.Unlock()
		if err != nil {
			return true, fmt.Errorf("%w: %w", ErrConfirmFailed, err)
		}
		return true, nil
	}
	if err != nil {
		g.gate.Failed()
		g.mu.Unlock()
		g.log.Warnf("order %s: confirming seats %v failed: %v", g.orderID, submitted.Strings(), err)
		g.notify()
		return true, fmt.Errorf("%w: %w", ErrConfirmFailed, err)
	}
	g.gate.Succeeded()
	if g.server.Equal(submitted) {
		// the acknowledging record overtook the response
		var st GateStatus
		g.local, st = Reconcile(g.local, g.server, g.gate.Status())
		g.gate.set(st)
	}
	g.mu.Unlock()
	g.notify()
	return true, nil
}

// ApplyOrder takes an authoritative order record.  The record always
// replaces the stored server selection and phase; whether it also replaces
// the local selection is decided by Reconcile.  Records with unparseable,
// off-grid or duplicate seats, or for a different order, are discarded.
func (g *Grid) ApplyOrder(rec OrderRecord) {
	if rec.OrderID != "" && g.orderID != "" && rec.OrderID != g.orderID {
		g.log.Warnf("order %s: discarding update addressed to order %s", g.orderID, rec.OrderID)
		return
	}
	server, err := g.layout.ParseSet(rec.Seats)
	if err != nil {
		g.log.Warnf("order %s: discarding malformed update %v: %v", g.orderID, rec.Seats, err)
		return
	}

	g.mu.Lock()
	if g.state == unmounted {
		g.mu.Unlock()
		return
	}
	g.server = server
	g.phase = rec.Phase
	g.holdExpiresAt = rec.HoldExpiresAt
	g.version = rec.Version
	if g.state == mounted {
		var st GateStatus
		g.local, st = Reconcile(g.local, server, g.gate.Status())
		g.gate.set(st)
	}
	g.mu.Unlock()
	g.notify()
}

// ApplyAvailability replaces the availability snapshot wholesale.
func (g *Grid) ApplyAvailability(a Availability) {
	g.mu.Lock()
	if g.state == unmounted {
		g.mu.Unlock()
		return
	}
	g.avail = a
	g.mu.Unlock()
	g.notify()
}

func (g *Grid) applyAvailability(flightID string, a Availability) {
	g.mu.Lock()
	if g.state != mounted || g.flightID != flightID {
		g.mu.Unlock()
		return
	}
	g.avail = a
	g.mu.Unlock()
	g.notify()
}

// State is the visual state of one seat right now.
func (g *Grid) State(id seat.ID) VisualState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Derive(id, g.viewLocked())
}

// HasUnconfirmedChanges reports whether the local selection differs from
// the server's.
func (g *Grid) HasUnconfirmedChanges() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return !g.local.Equal(g.server)
}

// GateStatus returns the confirmation gate state.
func (g *Grid) GateStatus() GateStatus {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gate.Status()
}

// Local returns a copy of the local selection.
func (g *Grid) Local() seat.Set {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.local.Clone()
}

// SeatView is one rendered seat.
type SeatView struct {
	ID    seat.ID
	Label string
	State VisualState
}

// Snapshot is a consistent copy of everything a renderer needs.
type Snapshot struct {
	OrderID               string
	FlightID              string
	Phase                 string
	Layout                seat.Layout
	Seats                 []SeatView
	Selected              []string
	Confirmed             []string
	HasUnconfirmedChanges bool
	Gate                  GateStatus
	Locked                bool
	HoldExpiresAt         time.Time
	Version               int64
}

// Snapshot derives every seat's state under one lock acquisition.
func (g *Grid) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	v := g.viewLocked()
	all := g.layout.All()
	seats := make([]SeatView, len(all))
	for i, id := range all {
		seats[i] = SeatView{ID: id, Label: id.String(), State: Derive(id, v)}
	}
	return Snapshot{
		OrderID:               g.orderID,
		FlightID:              g.flightID,
		Phase:                 g.phase,
		Layout:                g.layout,
		Seats:                 seats,
		Selected:              g.local.Strings(),
		Confirmed:             g.server.Strings(),
		HasUnconfirmedChanges: !g.local.Equal(g.server),
		Gate:                  g.gate.Status(),
		Locked:                v.Locked,
		HoldExpiresAt:         g.holdExpiresAt,
		Version:               g.version,
	}
}

func (g *Grid) viewLocked() View {
	return View{
		Local:        g.local,
		Server:       g.server,
		Availability: g.avail,
		Gate:         g.gate.Status(),
		Locked:       g.lockedLocked(),
	}
}

// lockedLocked reports whether the order phase forbids editing.  An order
// with no known phase yet is treated as editable.
func (g *Grid) lockedLocked() bool {
	return g.phase != "" && !g.editable[g.phase]
}

func (g *Grid) notify() {
	if g.onChange != nil {
		g.onChange()
	}
}
