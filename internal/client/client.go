// Package client talks to the seat service over HTTP.  Client implements
// the seat mutation and availability collaborators of a seatgrid.Grid;
// SSEFeed, WSFeed and PollFeed implement its order feed.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/flight-seat-reservation/internal/model"
	"github.com/iliyamo/flight-seat-reservation/internal/seatgrid"
)

// ErrStatus is matched by every *StatusError.
var ErrStatus = errors.New("unexpected response status")

// StatusError is a non-2xx answer of the seat service.
type StatusError struct {
	Code        int
	Message     string
	Unavailable []string // seats another order holds, on 409 seat conflicts
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %d", ErrStatus, e.Code)
	}
	return fmt.Sprintf("%s: %d %s", ErrStatus, e.Code, e.Message)
}

func (e *StatusError) Unwrap() error { return ErrStatus }

// Logger is the subset of the gommon logger the feeds write to.
type Logger interface {
	Warnf(format string, args ...interface{})
}

// CreatedOrder is the answer to CreateOrder.
type CreatedOrder struct {
	OrderID  string `json:"orderId"`
	FlightID string `json:"flightId"`
	State    string `json:"state"`
	Token    string `json:"token"`
}

// Client calls the seat service on behalf of one order.  The order and its
// token are set by CreateOrder or SetOrder.
type Client struct {
	base string
	http *http.Client

	mu      sync.RWMutex
	orderID string
	token   string
}

// New returns a client for the service at baseURL.  A nil hc uses a client
// with a 10 second timeout.
func New(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{base: strings.TrimRight(baseURL, "/"), http: hc}
}

// SetOrder makes the client act for an existing order.
func (c *Client) SetOrder(orderID, token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.orderID, c.token = orderID, token
}

// Order returns the order the client acts for and its token.
func (c *Client) Order() (orderID, token string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.orderID, c.token
}

// CreateOrder starts an order on flightID.  An empty orderID lets the
// service pick one.  The client then acts for the new order.
func (c *Client) CreateOrder(ctx context.Context, flightID, orderID string) (CreatedOrder, error) {
	var out CreatedOrder
	body := map[string]string{"flightID": flightID}
	if orderID != "" {
		body["orderID"] = orderID
	}
	if err := c.do(ctx, http.MethodPost, "/orders", body, &out); err != nil {
		return CreatedOrder{}, err
	}
	c.SetOrder(out.OrderID, out.Token)
	return out, nil
}

// ReplaceSeats asks the service to make the order hold exactly seats.
func (c *Client) ReplaceSeats(ctx context.Context, orderID string, seats []string) (model.OrderRecord, error) {
	if seats == nil {
		seats = []string{}
	}
	var rec model.OrderRecord
	err := c.do(ctx, http.MethodPost, orderPath(orderID, "seats"), map[string][]string{"seats": seats}, &rec)
	return rec, err
}

// UpdateSeats implements seatgrid.SeatMutator.  The resulting record
// reaches the grid through its feed.
func (c *Client) UpdateSeats(ctx context.Context, orderID string, seats []string) error {
	_, err := c.ReplaceSeats(ctx, orderID, seats)
	return err
}

// ConfirmOrder makes the order's held seats permanent.
func (c *Client) ConfirmOrder(ctx context.Context, orderID string) (model.OrderRecord, error) {
	var rec model.OrderRecord
	err := c.do(ctx, http.MethodPost, orderPath(orderID, "confirm"), nil, &rec)
	return rec, err
}

// Status fetches the order's authoritative record.
func (c *Client) Status(ctx context.Context, orderID string) (model.OrderRecord, error) {
	var rec model.OrderRecord
	err := c.do(ctx, http.MethodGet, orderPath(orderID, "status"), nil, &rec)
	return rec, err
}

// FetchAvailability implements seatgrid.AvailabilitySource.  The client's
// own order is excluded so its seats read as available rather than held.
func (c *Client) FetchAvailability(ctx context.Context, flightID string) (seatgrid.AvailabilityReport, error) {
	p := "/flights/" + url.PathEscape(flightID) + "/available-seats"
	if orderID, _ := c.Order(); orderID != "" {
		p += "?order=" + url.QueryEscape(orderID)
	}
	var av model.FlightAvailability
	if err := c.do(ctx, http.MethodGet, p, nil, &av); err != nil {
		return seatgrid.AvailabilityReport{}, err
	}
	return seatgrid.AvailabilityReport{Available: av.Available, Held: av.Held, Confirmed: av.Confirmed}, nil
}

func orderPath(orderID, action string) string {
	return "/orders/" + url.PathEscape(orderID) + "/" + action
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		bs, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(bs)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if _, token := c.Order(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeStatusError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func decodeStatusError(resp *http.Response) error {
	se := &StatusError{Code: resp.StatusCode}
	var body struct {
		Error       string   `json:"error"`
		Unavailable []string `json:"unavailable"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err == nil {
		se.Message, se.Unavailable = body.Error, body.Unavailable
	}
	return se
}

// GridRecord converts a wire record into the form a seatgrid.Grid applies.
func GridRecord(rec model.OrderRecord) seatgrid.OrderRecord {
	out := seatgrid.OrderRecord{
		OrderID: rec.OrderID,
		Seats:   rec.Seats,
		Phase:   rec.State,
		Version: rec.Version,
	}
	if rec.HoldExpiresAt != nil {
		out.HoldExpiresAt = *rec.HoldExpiresAt
	}
	return out
}

// streamURL builds the URL of a push endpoint with the token in the query,
// since EventSource and WebSocket handshakes carry no Authorization header
// in browsers.
func (c *Client) streamURL(orderID, action string) string {
	u := c.base + orderPath(orderID, action)
	if _, token := c.Order(); token != "" {
		u += "?token=" + url.QueryEscape(token)
	}
	return u
}
