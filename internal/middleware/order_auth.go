package middleware // middleware holds the Echo middleware of the seat service

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/flight-seat-reservation/internal/utils"
)

// ContextOrderID is the echo.Context key holding the order ID granted by
// the request's token.
const ContextOrderID = "order_id"

// OrderAuth validates the order access token and stores the order it grants
// under ContextOrderID.  The token is read from a Bearer Authorization
// header or, for EventSource and WebSocket clients that cannot set headers,
// from the "token" query parameter.
func OrderAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := bearerToken(c.Request())
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing order token"})
			}
			orderID, err := utils.ParseOrderToken(secret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid order token"})
			}
			c.Set(ContextOrderID, orderID)
			return next(c)
		}
	}
}

func bearerToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return r.URL.Query().Get("token")
}

// RequireOrderParam rejects requests whose path parameter param names an
// order other than the one granted by the token.  It must run after
// OrderAuth.
func RequireOrderParam(param string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if granted := currentOrderID(c); granted == "" || granted != c.Param(param) {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "token does not grant this order"})
			}
			return next(c)
		}
	}
}

// currentOrderID returns the order granted by the request's token, or ""
// on unauthenticated routes.
func currentOrderID(c echo.Context) string {
	if s, ok := c.Get(ContextOrderID).(string); ok {
		return s
	}
	return ""
}
