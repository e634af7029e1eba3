package middleware

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// BodyLimit caps request bodies at limit, given as "64K", "1M" and so on.
// Oversized bodies are rejected with 413, early when Content-Length
// already says so and otherwise as soon as the read crosses the limit.
func BodyLimit(limit string) echo.MiddlewareFunc {
	max := parseLimit(limit)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Body == nil || req.Body == http.NoBody {
				return next(c)
			}
			if req.ContentLength > max {
				return tooLarge(max)
			}
			req.Body = &limitedReadCloser{ReadCloser: req.Body, remaining: max, limit: max}
			return next(c)
		}
	}
}

type limitedReadCloser struct {
	io.ReadCloser
	remaining int64
	limit     int64
}

func (r *limitedReadCloser) Read(p []byte) (int, error) {
	if r.remaining < 0 {
		return 0, tooLarge(r.limit)
	}
	// Read one byte past the limit so overflow is detected.
	if int64(len(p)) > r.remaining+1 {
		p = p[:r.remaining+1]
	}
	n, err := r.ReadCloser.Read(p)
	r.remaining -= int64(n)
	if r.remaining < 0 {
		return 0, tooLarge(r.limit)
	}
	return n, err
}

func tooLarge(limit int64) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusRequestEntityTooLarge,
		fmt.Sprintf("request body exceeds %d bytes", limit))
}

// parseLimit reads sizes like "512K", "1M" or "1MB"; a bare number is bytes.
// Unparseable input falls back to 1 MB.
func parseLimit(s string) int64 {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.TrimSuffix(s, "B")
	if s == "" {
		return 1 << 20
	}

	var mult int64 = 1
	switch s[len(s)-1] {
	case 'K':
		mult = 1 << 10
	case 'M':
		mult = 1 << 20
	case 'G':
		mult = 1 << 30
	}
	if mult > 1 {
		s = s[:len(s)-1]
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 1 << 20
	}
	return n * mult
}
