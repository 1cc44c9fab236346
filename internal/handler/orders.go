package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/flight-seat-reservation/internal/model"
	"github.com/iliyamo/flight-seat-reservation/internal/repository"
	"github.com/iliyamo/flight-seat-reservation/internal/service"
	"github.com/iliyamo/flight-seat-reservation/internal/utils"
)

// OrderService is the order logic the handlers drive; *service.Orders
// implements it.
type OrderService interface {
	Create(ctx context.Context, flightID, orderID string) (model.Order, error)
	Status(ctx context.Context, orderID string) (model.Order, error)
	UpdateSeats(ctx context.Context, orderID string, labels []string) (model.Order, error)
	Confirm(ctx context.Context, orderID string) (model.Order, error)
	Availability(ctx context.Context, flightID, excludeOrderID string) (model.FlightAvailability, error)
}

// OrderHandler serves the order and availability endpoints.  Routes under
// /orders/:id assume OrderAuth and RequireOrderParam already ran.
type OrderHandler struct {
	Orders    OrderService
	JWTSecret string
	TokenTTL  time.Duration
}

// NewOrderHandler constructs an OrderHandler.  orders must be non-nil.
func NewOrderHandler(orders OrderService, jwtSecret string, tokenTTL time.Duration) *OrderHandler {
	if orders == nil {
		panic("nil order service passed to NewOrderHandler")
	}
	if tokenTTL <= 0 {
		tokenTTL = 2 * time.Hour
	}
	return &OrderHandler{Orders: orders, JWTSecret: jwtSecret, TokenTTL: tokenTTL}
}

// Create handles POST /orders.  The body names the flight and optionally
// the order ID.  It returns 201 with the order's access token, which every
// /orders/:id route requires.
func (h *OrderHandler) Create(c echo.Context) error {
	var body struct {
		FlightID string `json:"flightID"`
		OrderID  string `json:"orderID"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.FlightID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "flightID is required"})
	}
	o, err := h.Orders.Create(c.Request().Context(), body.FlightID, body.OrderID)
	if err != nil {
		return orderError(c, err)
	}
	tok, err := utils.NewOrderToken(h.JWTSecret, o.ID, h.TokenTTL)
	if err != nil {
		c.Logger().Errorf("order %s: %v", o.ID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to issue order token"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"orderId":        o.ID,
		"flightId":       o.FlightID,
		"state":          o.Status,
		"token":          tok.Token,
		"tokenExpiresAt": tok.Exp,
	})
}

// UpdateSeats handles POST /orders/:id/seats.  The body's "seats" array
// replaces every seat the order holds; an empty array releases them all.
// Seats taken by other orders yield 409 with the "unavailable" labels.
func (h *OrderHandler) UpdateSeats(c echo.Context) error {
	var body struct {
		Seats []string `json:"seats"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	o, err := h.Orders.UpdateSeats(c.Request().Context(), c.Param("id"), body.Seats)
	if err != nil {
		return orderError(c, err)
	}
	return c.JSON(http.StatusOK, o.Record())
}

// Confirm handles POST /orders/:id/confirm.  The held seats become
// permanent and the order turns CONFIRMED.
func (h *OrderHandler) Confirm(c echo.Context) error {
	o, err := h.Orders.Confirm(c.Request().Context(), c.Param("id"))
	if err != nil {
		return orderError(c, err)
	}
	return c.JSON(http.StatusOK, o.Record())
}

// Status handles GET /orders/:id/status.
func (h *OrderHandler) Status(c echo.Context) error {
	o, err := h.Orders.Status(c.Request().Context(), c.Param("id"))
	if err != nil {
		return orderError(c, err)
	}
	return c.JSON(http.StatusOK, o.Record())
}

// Availability handles GET /flights/:flightID/available-seats.  With
// ?order=ID the seats of that order are reported as available.
func (h *OrderHandler) Availability(c echo.Context) error {
	flightID := c.Param("flightID")
	if flightID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid flight id"})
	}
	av, err := h.Orders.Availability(c.Request().Context(), flightID, c.QueryParam("order"))
	if err != nil {
		c.Logger().Errorf("availability of flight %s: %v", flightID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, av)
}

// orderError translates service and repository errors into responses.
func orderError(c echo.Context, err error) error {
	var conflict *repository.SeatConflictError
	switch {
	case errors.As(err, &conflict):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":       "some seats are unavailable",
			"unavailable": conflict.Seats,
		})
	case errors.Is(err, repository.ErrOrderNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
	case errors.Is(err, repository.ErrOrderLocked):
		return c.JSON(http.StatusConflict, echo.Map{"error": "order can no longer be changed"})
	case errors.Is(err, repository.ErrOrderExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": "order already exists"})
	case errors.Is(err, repository.ErrNoSeats):
		return c.JSON(http.StatusConflict, echo.Map{"error": "order holds no seats"})
	case errors.Is(err, service.ErrInvalidSeats), errors.Is(err, service.ErrInvalidOrder):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, context.Canceled):
		return nil
	}
	c.Logger().Errorf("order request %s %s: %v", c.Request().Method, c.Request().URL.Path, err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
}
