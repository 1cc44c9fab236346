package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/iliyamo/flight-seat-reservation/internal/model"
	"github.com/iliyamo/flight-seat-reservation/internal/seatgrid"
)

// decodeRecord parses one pushed payload.  Payloads that are not an order
// record are reported and dropped.
func decodeRecord(data []byte, log Logger, deliver func(seatgrid.OrderRecord)) {
	var rec model.OrderRecord
	if err := json.Unmarshal(data, &rec); err != nil || rec.OrderID == "" {
		if err == nil {
			err = errors.New("missing orderId")
		}
		log.Warnf("order feed: skipping undecodable payload %q: %v", truncate(data, 80), err)
		return
	}
	deliver(GridRecord(rec))
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}

// SSEFeed receives order records over GET /orders/:id/events.
type SSEFeed struct {
	Client *Client
	HTTP   *http.Client // nil: a client without timeout
	Log    Logger
}

// Subscribe implements seatgrid.OrderFeed.  It returns nil when the server
// closes the stream.
func (f *SSEFeed) Subscribe(ctx context.Context, orderID string, deliver func(seatgrid.OrderRecord)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.Client.streamURL(orderID, "events"), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	hc := f.HTTP
	if hc == nil {
		hc = &http.Client{}
	}
	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("open event stream: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeStatusError(resp)
	}

	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)
	var data []string
	event := ""
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			if len(data) > 0 && (event == "" || event == "order") {
				decodeRecord([]byte(strings.Join(data, "\n")), f.Log, deliver)
			}
			data, event = data[:0], ""
		case strings.HasPrefix(line, ":"):
			// comment / heartbeat
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return sc.Err()
}

// WSFeed receives order records over GET /orders/:id/ws.
type WSFeed struct {
	Client *Client
	Dialer *websocket.Dialer // nil: websocket.DefaultDialer
	Log    Logger
}

// Subscribe implements seatgrid.OrderFeed.  It returns nil when the server
// closes the connection normally.
func (f *WSFeed) Subscribe(ctx context.Context, orderID string, deliver func(seatgrid.OrderRecord)) error {
	dialer := f.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	u := "ws" + strings.TrimPrefix(f.Client.streamURL(orderID, "ws"), "http")
	conn, resp, err := dialer.DialContext(ctx, u, nil)
	if err != nil {
		if resp != nil && resp.StatusCode != http.StatusSwitchingProtocols {
			return &StatusError{Code: resp.StatusCode, Message: "websocket handshake refused"}
		}
		return fmt.Errorf("dial order socket: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = conn.Close()
	})
	defer stop()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		decodeRecord(data, f.Log, deliver)
	}
}

// PollFeed fetches GET /orders/:id/status on an interval and delivers the
// record whenever its version or state changed.
type PollFeed struct {
	Client   *Client
	Interval time.Duration
	Clock    clockwork.Clock
	Log      Logger
}

// Subscribe implements seatgrid.OrderFeed.  Failed polls are logged and
// retried on the next tick; it only returns when ctx is done.
func (f *PollFeed) Subscribe(ctx context.Context, orderID string, deliver func(seatgrid.OrderRecord)) error {
	clock := f.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	interval := f.Interval
	if interval <= 0 {
		interval = time.Second
	}

	var last *model.OrderRecord
	poll := func() {
		rec, err := f.Client.Status(ctx, orderID)
		if err != nil {
			if ctx.Err() == nil {
				f.Log.Warnf("order feed: polling order %s: %v", orderID, err)
			}
			return
		}
		if last != nil && last.Version == rec.Version && last.State == rec.State {
			return
		}
		last = &rec
		deliver(GridRecord(rec))
	}

	poll()
	ticker := clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.Chan():
			poll()
		}
	}
}
