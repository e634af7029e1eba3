package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Logger writes one structured line per request. Handler errors are logged
// here and then handed back to echo unchanged, so a failed warehouse query
// is recorded exactly once.
func Logger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			rid, _ := c.Get("request_id").(string)

			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}

			evt := logger.Info()
			switch {
			case err != nil && status >= 500:
				evt = logger.Error().Err(err)
			case err != nil:
				evt = logger.Warn().Err(err)
			}

			evt.
				Str("request_id", rid).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Str("query", req.URL.RawQuery).
				Int("status", status).
				Int64("bytes_out", c.Response().Size).
				Dur("latency", time.Since(start)).
				Str("remote_ip", c.RealIP()).
				Msg("request")

			return err
		}
	}
}
