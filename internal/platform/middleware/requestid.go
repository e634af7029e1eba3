package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// RequestIDHeader carries the per-request correlation id in both directions.
const RequestIDHeader = "X-Request-ID"

// RequestID stores an id under the "request_id" context key, reusing the
// caller's X-Request-ID when present.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rid := c.Request().Header.Get(RequestIDHeader)
			if rid == "" {
				rid = uuid.NewString()
			}
			c.Set("request_id", rid)
			c.Response().Header().Set(RequestIDHeader, rid)
			return next(c)
		}
	}
}
