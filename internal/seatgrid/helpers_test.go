package seatgrid

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

var testEpoch = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

type recordingLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *recordingLogger) Infof(string, ...interface{}) {}

func (l *recordingLogger) Warnf(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, fmt.Sprintf(format, args...))
}

func (l *recordingLogger) Errorf(format string, args ...interface{}) { l.Warnf(format, args...) }

func (l *recordingLogger) Warnings() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.warns...)
}

// fakeMutator records every request.  When release is set, UpdateSeats
// signals entered and blocks until release is closed.
type fakeMutator struct {
	mu      sync.Mutex
	calls   [][]string
	err     error
	entered chan struct{}
	release chan struct{}
}

func (m *fakeMutator) UpdateSeats(_ context.Context, _ string, seats []string) error {
	m.mu.Lock()
	m.calls = append(m.calls, seats)
	err, entered, release := m.err, m.entered, m.release
	m.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
	}
	if release != nil {
		<-release
	}
	return err
}

func (m *fakeMutator) Calls() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]string(nil), m.calls...)
}

func (m *fakeMutator) blocking() {
	m.entered = make(chan struct{}, 1)
	m.release = make(chan struct{})
}

type chanFeed struct {
	ch chan OrderRecord
}

func (f *chanFeed) Subscribe(ctx context.Context, _ string, deliver func(OrderRecord)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case rec := <-f.ch:
			deliver(rec)
		}
	}
}

type fakeSource struct {
	mu      sync.Mutex
	report  AvailabilityReport
	err     error
	flights []string
	fetched chan string
}

func (s *fakeSource) FetchAvailability(_ context.Context, flightID string) (AvailabilityReport, error) {
	s.mu.Lock()
	s.flights = append(s.flights, flightID)
	report, err, fetched := s.report, s.err, s.fetched
	s.mu.Unlock()
	if fetched != nil {
		fetched <- flightID
	}
	return report, err
}

func (s *fakeSource) set(report AvailabilityReport, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.report, s.err = report, err
}

type harness struct {
	grid    *Grid
	clock   *clockwork.FakeClock
	mutator *fakeMutator
	log     *recordingLogger

	mu      sync.Mutex
	changes int
}

func (h *harness) Changes() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.changes
}

func newHarness(t *testing.T, configure ...func(*Options)) *harness {
	t.Helper()
	h := &harness{
		clock:   clockwork.NewFakeClockAt(testEpoch),
		mutator: &fakeMutator{},
		log:     &recordingLogger{},
	}
	opts := Options{
		OrderID:  "order-1",
		Mutator:  h.mutator,
		Clock:    h.clock,
		Logger:   h.log,
		OnChange: func() { h.mu.Lock(); h.changes++; h.mu.Unlock() },
	}
	for _, fn := range configure {
		fn(&opts)
	}
	h.grid = New(opts)
	h.grid.Mount(context.Background())
	t.Cleanup(h.grid.Unmount)
	return h
}

// past moves the fake clock beyond the debounce window.
func (h *harness) past() { h.clock.Advance(DefaultDebounceWindow) }
