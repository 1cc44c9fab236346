// Command seatpicker is a terminal seat picker for one order on one
// flight.  It creates the order unless --order and --token name an
// existing one.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/labstack/gommon/log"
	flag "github.com/spf13/pflag"

	"github.com/iliyamo/flight-seat-reservation/internal/client"
	"github.com/iliyamo/flight-seat-reservation/internal/config"
	"github.com/iliyamo/flight-seat-reservation/internal/model"
	"github.com/iliyamo/flight-seat-reservation/internal/seat"
	"github.com/iliyamo/flight-seat-reservation/internal/seatgrid"
	"github.com/iliyamo/flight-seat-reservation/internal/tui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "seatpicker:", err)
		os.Exit(1)
	}
}

func run() error {
	fs := flag.NewFlagSet("seatpicker", flag.ExitOnError)
	configPath := fs.StringP("config", "c", "", "YAML client config file")
	baseURL := fs.String("url", "", "seat service base URL")
	flightID := fs.StringP("flight", "f", "", "flight to pick seats on")
	orderID := fs.StringP("order", "o", "", "order ID (new orders get this ID when set)")
	token := fs.String("token", "", "access token of an existing order")
	feed := fs.String("feed", "", "order feed: sse, ws or poll")
	pollInterval := fs.Duration("poll-interval", 0, "availability and poll-feed interval")
	rows := fs.Int("rows", 0, "cabin rows")
	cols := fs.Int("cols", 0, "seats per row")
	logFile := fs.String("log-file", "", "file receiving log output")
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.LoadClient(*configPath)
	if err != nil {
		return err
	}
	override := func(name string, apply func()) {
		if fs.Changed(name) {
			apply()
		}
	}
	override("url", func() { cfg.BaseURL = *baseURL })
	override("flight", func() { cfg.FlightID = *flightID })
	override("order", func() { cfg.OrderID = *orderID })
	override("token", func() { cfg.Token = *token })
	override("feed", func() { cfg.Feed = *feed })
	override("poll-interval", func() { cfg.PollInterval = *pollInterval })
	override("rows", func() { cfg.Rows = *rows })
	override("cols", func() { cfg.Cols = *cols })
	override("log-file", func() { cfg.LogFile = *logFile })
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := log.New("seatpicker")
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	logger.SetOutput(f)
	logger.SetLevel(log.INFO)

	c := client.New(cfg.BaseURL, nil)
	ctx := context.Background()
	if cfg.Token != "" && cfg.OrderID != "" {
		c.SetOrder(cfg.OrderID, cfg.Token)
	} else {
		created, err := c.CreateOrder(ctx, cfg.FlightID, cfg.OrderID)
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		logger.Infof("created order %s on flight %s", created.OrderID, created.FlightID)
	}
	orderNo, _ := c.Order()

	rec, err := c.Status(ctx, orderNo)
	if err != nil {
		return fmt.Errorf("load order %s: %w", orderNo, err)
	}
	initial := client.GridRecord(rec)
	if rec.FlightID != "" {
		cfg.FlightID = rec.FlightID
	}

	changes := tui.NewNotifier()
	grid := seatgrid.New(seatgrid.Options{
		OrderID:        orderNo,
		FlightID:       cfg.FlightID,
		Layout:         seat.Layout{Rows: cfg.Rows, Cols: cfg.Cols},
		Mutator:        c,
		Feed:           newFeed(cfg, c, logger),
		Availability:   c,
		Initial:        &initial,
		EditablePhases: model.EditablePhases,
		PollInterval:   cfg.PollInterval,
		Logger:         logger,
		OnChange:       changes.Notify,
	})
	grid.Mount(ctx)
	// Unmount only after the program has stopped delivering messages.
	defer grid.Unmount()

	p := tea.NewProgram(tui.New(tui.Config{Grid: grid, Changes: changes, Orders: c}), tea.WithAltScreen())
	_, err = p.Run()
	return err
}

func newFeed(cfg config.ClientConfig, c *client.Client, logger *log.Logger) seatgrid.OrderFeed {
	switch cfg.Feed {
	case "ws":
		return &client.WSFeed{Client: c, Log: logger}
	case "poll":
		interval := cfg.PollInterval
		if interval <= 0 {
			interval = time.Second
		}
		return &client.PollFeed{Client: c, Interval: interval, Log: logger}
	default:
		return &client.SSEFeed{Client: c, Log: logger}
	}
}
