package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/flight-seat-reservation/internal/model"
	"github.com/iliyamo/flight-seat-reservation/internal/stream"
)

const defaultHeartbeat = 15 * time.Second

// StreamHandler pushes order records to watchers over Server-Sent Events
// and WebSocket.  Each connection first receives the order's current
// record, then every newer record the hub delivers.
type StreamHandler struct {
	Orders    OrderService
	Hub       *stream.Hub
	Heartbeat time.Duration
	Clock     clockwork.Clock
}

// NewStreamHandler constructs a StreamHandler.  orders and hub must be
// non-nil.
func NewStreamHandler(orders OrderService, hub *stream.Hub) *StreamHandler {
	if orders == nil || hub == nil {
		panic("nil dependency passed to NewStreamHandler")
	}
	return &StreamHandler{Orders: orders, Hub: hub, Heartbeat: defaultHeartbeat, Clock: clockwork.NewRealClock()}
}

// watch subscribes to the order before reading its current record so no
// change committed in between is missed.  On failure the response has been
// written and sub is nil.
func (h *StreamHandler) watch(c echo.Context) (*stream.Subscriber, model.OrderRecord, error) {
	id := c.Param("id")
	sub := h.Hub.Subscribe(id)
	if sub == nil {
		return nil, model.OrderRecord{}, c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "shutting down"})
	}
	o, err := h.Orders.Status(c.Request().Context(), id)
	if err != nil {
		sub.Close()
		return nil, model.OrderRecord{}, orderError(c, err)
	}
	return sub, o.Record(), nil
}

// Events handles GET /orders/:id/events.  Every record is sent as an
// "order" event whose id is the record version.  Comment lines keep idle
// connections open through proxies.
func (h *StreamHandler) Events(c echo.Context) error {
	sub, current, err := h.watch(c)
	if sub == nil {
		return err
	}
	defer sub.Close()

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set(echo.HeaderConnection, "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, current); err != nil {
		return nil
	}
	last := current.Version

	heartbeat := h.Clock.NewTicker(h.heartbeat())
	defer heartbeat.Stop()
	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case rec, ok := <-sub.C():
			if !ok {
				return nil
			}
			if rec.Version <= last {
				continue
			}
			if err := writeEvent(w, rec); err != nil {
				return nil
			}
			last = rec.Version
		case <-heartbeat.Chan():
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}

func (h *StreamHandler) heartbeat() time.Duration {
	if h.Heartbeat <= 0 {
		return defaultHeartbeat
	}
	return h.Heartbeat
}

func writeEvent(w *echo.Response, rec model.OrderRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "id: %d\nevent: order\ndata: %s\n\n", rec.Version, data); err != nil {
		return err
	}
	w.Flush()
	return nil
}
