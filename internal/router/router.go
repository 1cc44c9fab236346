package router // package router registers the HTTP routes of the seat service

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/flight-seat-reservation/internal/handler"
	"github.com/iliyamo/flight-seat-reservation/internal/middleware"
)

// RegisterRoutes registers routes that need no order token.  At the moment
// it only exposes the health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// OrderRoutes bundles what RegisterOrders needs.  RateLimit and Cache may
// be nil.
type OrderRoutes struct {
	Orders    *handler.OrderHandler
	Streams   *handler.StreamHandler
	JWTSecret string
	RateLimit echo.MiddlewareFunc
	Cache     *middleware.ResponseCache
}

// RegisterOrders registers the order, push and availability endpoints.
// Creating an order is open and returns the token that every /orders/:id
// route requires, either as a Bearer header or as ?token= for EventSource
// and WebSocket clients.
func RegisterOrders(e *echo.Echo, r OrderRoutes) {
	limit := r.RateLimit
	if limit == nil {
		limit = func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	e.POST("/orders", r.Orders.Create, limit)

	g := e.Group("/orders/:id",
		middleware.OrderAuth(r.JWTSecret),
		middleware.RequireOrderParam("id"),
		limit,
	)
	g.POST("/seats", r.Orders.UpdateSeats)
	g.POST("/confirm", r.Orders.Confirm)
	g.GET("/status", r.Orders.Status)
	g.GET("/events", r.Streams.Events)
	g.GET("/ws", r.Streams.Socket)

	// availability needs no token
	e.GET("/flights/:flightID/available-seats", r.Orders.Availability, limit, r.Cache.Middleware())
}
