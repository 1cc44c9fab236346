// Package tui is the terminal seat picker.  It renders a seatgrid.Grid and
// turns key presses into grid operations.
//
// The grid runs its feed and poller on its own goroutines; each accepted
// change signals a Notifier, which the model turns into a redraw.  Blocking
// calls (seat confirmation, order confirmation) run as tea.Cmds and report
// back through messages.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/jonboulle/clockwork"

	"github.com/iliyamo/flight-seat-reservation/internal/client"
	"github.com/iliyamo/flight-seat-reservation/internal/model"
	"github.com/iliyamo/flight-seat-reservation/internal/seat"
	"github.com/iliyamo/flight-seat-reservation/internal/seatgrid"
)

const requestTimeout = 15 * time.Second

// Notifier coalesces grid change notifications into at most one pending
// redraw.  Pass Notify as seatgrid.Options.OnChange.
type Notifier struct {
	ch chan struct{}
}

func NewNotifier() *Notifier { return &Notifier{ch: make(chan struct{}, 1)} }

// Notify never blocks.
func (n *Notifier) Notify() {
	select {
	case n.ch <- struct{}{}:
	default:
	}
}

func (n *Notifier) wait() tea.Cmd {
	return func() tea.Msg {
		<-n.ch
		return gridChangedMsg{}
	}
}

// OrderConfirmer finalizes an order; *client.Client implements it.
type OrderConfirmer interface {
	ConfirmOrder(ctx context.Context, orderID string) (model.OrderRecord, error)
}

// Config wires a Model.  Grid and Changes are required.
type Config struct {
	Grid    *seatgrid.Grid
	Changes *Notifier
	Orders  OrderConfirmer // nil disables the purchase key
	Clock   clockwork.Clock
}

type (
	gridChangedMsg struct{}
	tickMsg        time.Time
	seatsSentMsg   struct {
		sent bool
		err  error
	}
	orderConfirmedMsg struct {
		rec model.OrderRecord
		err error
	}
)

// Model is the bubbletea model of the seat picker.
type Model struct {
	grid    *seatgrid.Grid
	changes *Notifier
	orders  OrderConfirmer
	clock   clockwork.Clock

	snap       seatgrid.Snapshot
	cursor     seat.ID
	spinner    spinner.Model
	now        time.Time
	status     string
	err        error
	purchasing bool
}

func New(cfg Config) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return Model{
		grid:    cfg.Grid,
		changes: cfg.Changes,
		orders:  cfg.Orders,
		clock:   clock,
		snap:    cfg.Grid.Snapshot(),
		cursor:  seat.ID{Row: 1, Col: 1},
		spinner: s,
		now:     clock.Now(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.changes.wait(), m.spinner.Tick, m.tick())
}

func (m Model) tick() tea.Cmd {
	return func() tea.Msg {
		<-m.clock.After(time.Second)
		return tickMsg(m.clock.Now())
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case gridChangedMsg:
		m.snap = m.grid.Snapshot()
		return m, m.changes.wait()

	case tickMsg:
		m.now = time.Time(msg)
		return m, m.tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case seatsSentMsg:
		m.snap = m.grid.Snapshot()
		switch {
		case msg.err != nil:
			m.err = msg.err
			m.status = ""
		case msg.sent:
			m.err = nil
			m.status = "seats sent, waiting for the server"
		default:
			m.status = "nothing to confirm"
		}
		return m, nil

	case orderConfirmedMsg:
		m.purchasing = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.status = "order confirmed"
		m.grid.ApplyOrder(client.GridRecord(msg.rec))
		m.snap = m.grid.Snapshot()
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	layout := m.snap.Layout
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "up", "k":
		if m.cursor.Row > 1 {
			m.cursor.Row--
		}
	case "down", "j":
		if m.cursor.Row < layout.Rows {
			m.cursor.Row++
		}
	case "left", "h":
		if m.cursor.Col > 1 {
			m.cursor.Col--
		}
	case "right", "l":
		if m.cursor.Col < layout.Cols {
			m.cursor.Col++
		}

	case " ":
		if !m.grid.Toggle(m.cursor) {
			m.status = "seat " + m.cursor.String() + " cannot be changed right now"
		} else {
			m.status = ""
		}
		m.snap = m.grid.Snapshot()

	case "enter":
		m.status = "sending seats"
		return m, m.sendSeats()

	case "p":
		if m.orders == nil || m.purchasing {
			return m, nil
		}
		if m.snap.HasUnconfirmedChanges || len(m.snap.Confirmed) == 0 || m.snap.Locked {
			m.status = "confirm your seats with enter first"
			return m, nil
		}
		m.purchasing = true
		m.status = "confirming order"
		return m, m.confirmOrder()
	}
	return m, nil
}

func (m Model) sendSeats() tea.Cmd {
	grid := m.grid
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		sent, err := grid.Confirm(ctx)
		return seatsSentMsg{sent: sent, err: err}
	}
}

func (m Model) confirmOrder() tea.Cmd {
	orders, orderID := m.orders, m.snap.OrderID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		rec, err := orders.ConfirmOrder(ctx, orderID)
		return orderConfirmedMsg{rec: rec, err: err}
	}
}
