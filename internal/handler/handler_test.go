package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/flight-seat-reservation/internal/model"
	"github.com/iliyamo/flight-seat-reservation/internal/repository"
	"github.com/iliyamo/flight-seat-reservation/internal/service"
	"github.com/iliyamo/flight-seat-reservation/internal/stream"
	"github.com/iliyamo/flight-seat-reservation/internal/utils"
)

const secret = "handler-secret"

type fakeOrders struct {
	mu      sync.Mutex
	order   model.Order
	err     error
	seats   []string
	exclude string
}

func (f *fakeOrders) result() (model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.order, f.err
}

func (f *fakeOrders) Create(_ context.Context, flightID, orderID string) (model.Order, error) {
	if orderID == "" {
		orderID = "generated"
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return model.Order{}, f.err
	}
	return model.Order{ID: orderID, FlightID: flightID, Status: model.PhasePending}, nil
}

func (f *fakeOrders) Status(context.Context, string) (model.Order, error) { return f.result() }

func (f *fakeOrders) UpdateSeats(_ context.Context, _ string, labels []string) (model.Order, error) {
	f.mu.Lock()
	f.seats = labels
	f.mu.Unlock()
	return f.result()
}

func (f *fakeOrders) Confirm(context.Context, string) (model.Order, error) { return f.result() }

func (f *fakeOrders) Availability(_ context.Context, flightID, exclude string) (model.FlightAvailability, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exclude = exclude
	return model.FlightAvailability{FlightID: flightID, Available: []string{"1A"}, Held: []string{}, Confirmed: []string{}, Total: 1}, f.err
}

type nopDebug struct{}

func (nopDebug) Debugf(string, ...interface{}) {}

func newEcho(orders *fakeOrders, hub *stream.Hub) *echo.Echo {
	e := echo.New()
	h := NewOrderHandler(orders, secret, time.Hour)
	e.POST("/orders", h.Create)
	e.POST("/orders/:id/seats", h.UpdateSeats)
	e.POST("/orders/:id/confirm", h.Confirm)
	e.GET("/orders/:id/status", h.Status)
	e.GET("/flights/:flightID/available-seats", h.Availability)
	if hub != nil {
		s := NewStreamHandler(orders, hub)
		e.GET("/orders/:id/events", s.Events)
		e.GET("/orders/:id/ws", s.Socket)
	}
	return e
}

func do(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func selected(version int64, seats ...string) model.Order {
	exp := time.Date(2026, 5, 1, 12, 15, 0, 0, time.UTC)
	return model.Order{ID: "o-1", FlightID: "FL-001", Status: model.PhaseSeatsSelected, Seats: seats, Version: version, HoldExpiresAt: &exp}
}

func TestHealth(t *testing.T) {
	e := echo.New()
	e.GET("/healthz", Health)
	rec := do(e, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestCreate_IssuesOrderToken(t *testing.T) {
	e := newEcho(&fakeOrders{}, nil)

	rec := do(e, http.MethodPost, "/orders", `{"flightID":"FL-001","orderID":"o-9"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "o-9", body["orderId"])
	assert.Equal(t, "FL-001", body["flightId"])
	assert.Equal(t, model.PhasePending, body["state"])

	granted, err := utils.ParseOrderToken(secret, body["token"].(string))
	require.NoError(t, err)
	assert.Equal(t, "o-9", granted)
}

func TestCreate_Errors(t *testing.T) {
	e := newEcho(&fakeOrders{}, nil)
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodPost, "/orders", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodPost, "/orders", `{"flightID":`).Code)

	e = newEcho(&fakeOrders{err: repository.ErrOrderExists}, nil)
	assert.Equal(t, http.StatusConflict, do(e, http.MethodPost, "/orders", `{"flightID":"FL-001","orderID":"o-1"}`).Code)
}

func TestUpdateSeats(t *testing.T) {
	orders := &fakeOrders{order: selected(3, "1A", "2B")}
	e := newEcho(orders, nil)

	rec := do(e, http.MethodPost, "/orders/o-1/seats", `{"seats":["1A","2B"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"1A", "2B"}, orders.seats)

	var got model.OrderRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, model.PhaseSeatsSelected, got.State)
	assert.Equal(t, []string{"1A", "2B"}, got.Seats)
	assert.EqualValues(t, 3, got.Version)
	require.NotNil(t, got.HoldExpiresAt)
}

func TestUpdateSeats_ErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"conflict", &repository.SeatConflictError{Seats: []string{"2B"}}, http.StatusConflict},
		{"locked", repository.ErrOrderLocked, http.StatusConflict},
		{"not found", repository.ErrOrderNotFound, http.StatusNotFound},
		{"bad label", fmt.Errorf("%w: seat 9Z", service.ErrInvalidSeats), http.StatusBadRequest},
		{"database", fmt.Errorf("begin tx: connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newEcho(&fakeOrders{err: tc.err}, nil)
			rec := do(e, http.MethodPost, "/orders/o-1/seats", `{"seats":["2B"]}`)
			assert.Equal(t, tc.code, rec.Code)
		})
	}

	e := newEcho(&fakeOrders{err: &repository.SeatConflictError{Seats: []string{"2B", "3C"}}}, nil)
	body := decode(t, do(e, http.MethodPost, "/orders/o-1/seats", `{"seats":["2B","3C"]}`))
	assert.Equal(t, []interface{}{"2B", "3C"}, body["unavailable"])
}

func TestConfirmAndStatus(t *testing.T) {
	confirmed := selected(4, "1A")
	confirmed.Status = model.PhaseConfirmed
	confirmed.HoldExpiresAt = nil
	e := newEcho(&fakeOrders{order: confirmed}, nil)

	rec := do(e, http.MethodPost, "/orders/o-1/confirm", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.PhaseConfirmed, decode(t, rec)["state"])

	rec = do(e, http.MethodGet, "/orders/o-1/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "o-1", body["orderId"])
	assert.NotContains(t, body, "holdExpiresAt")

	e = newEcho(&fakeOrders{err: repository.ErrNoSeats}, nil)
	assert.Equal(t, http.StatusConflict, do(e, http.MethodPost, "/orders/o-1/confirm", "").Code)
}

func TestAvailability_PassesExcludedOrder(t *testing.T) {
	orders := &fakeOrders{}
	e := newEcho(orders, nil)

	rec := do(e, http.MethodGet, "/flights/FL-001/available-seats?order=o-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "o-1", orders.exclude)

	var av model.FlightAvailability
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &av))
	assert.Equal(t, "FL-001", av.FlightID)
	assert.Equal(t, 1, av.Total)
}

func startStreamServer(t *testing.T, orders *fakeOrders) (*httptest.Server, *stream.Hub) {
	t.Helper()
	hub := stream.NewHub(nopDebug{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		hub.Run(ctx)
	}()
	srv := httptest.NewServer(newEcho(orders, hub))
	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-done
	})
	return srv, hub
}

// nextEvent reads one SSE event and returns its data line.
func nextEvent(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	var data string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\r\n")
		switch {
		case line == "" && data != "":
			return data
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func TestEvents_SendsCurrentThenNewerRecords(t *testing.T) {
	srv, hub := startStreamServer(t, &fakeOrders{order: selected(2, "1A")})

	resp, err := http.Get(srv.URL + "/orders/o-1/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	r := bufio.NewReader(resp.Body)
	var first model.OrderRecord
	require.NoError(t, json.Unmarshal([]byte(nextEvent(t, r)), &first))
	assert.Equal(t, []string{"1A"}, first.Seats)

	hub.Publish(selected(1, "9F").Record()) // stale, skipped
	hub.Publish(selected(3, "1A", "1B").Record())

	var next model.OrderRecord
	require.NoError(t, json.Unmarshal([]byte(nextEvent(t, r)), &next))
	assert.EqualValues(t, 3, next.Version)
	assert.Equal(t, []string{"1A", "1B"}, next.Seats)
}

func TestEvents_UnknownOrder(t *testing.T) {
	srv, _ := startStreamServer(t, &fakeOrders{err: repository.ErrOrderNotFound})
	resp, err := http.Get(srv.URL + "/orders/nope/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSocket_PushesRecords(t *testing.T) {
	srv, hub := startStreamServer(t, &fakeOrders{order: selected(5, "2C")})

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/orders/o-1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var first model.OrderRecord
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, []string{"2C"}, first.Seats)

	hub.Publish(selected(6).Record())
	var next model.OrderRecord
	require.NoError(t, conn.ReadJSON(&next))
	assert.EqualValues(t, 6, next.Version)
	assert.Empty(t, next.Seats)
}
