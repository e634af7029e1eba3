package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestTimeout puts a deadline on the request context. Warehouse queries
// and completion calls made with that context are cancelled when it
// expires and the client receives 504. A non-positive timeout disables
// the middleware.
func RequestTimeout(timeout time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if timeout <= 0 {
			return next
		}
		return func(c echo.Context) error {
			ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))

			err := next(c)
			if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Response().Committed {
				return echo.NewHTTPError(http.StatusGatewayTimeout, "request exceeded the allowed time")
			}
			return err
		}
	}
}
