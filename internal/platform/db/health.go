package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// PoolStats represents warehouse connection pool statistics.
type PoolStats struct {
	TotalConns      int32  `json:"total_conns"`
	IdleConns       int32  `json:"idle_conns"`
	AcquiredConns   int32  `json:"acquired_conns"`
	MaxConns        int32  `json:"max_conns"`
	AcquireCount    int64  `json:"acquire_count"`
	AcquireDuration string `json:"acquire_duration"`
	Healthy         bool   `json:"healthy"`
}

// Pinger is the part of the pool the health endpoint needs. *pgxpool.Pool
// satisfies it through PoolPinger.
type Pinger interface {
	Ping(ctx context.Context) error
	Stats() *PoolStats
}

// PoolPinger adapts a pgx pool to Pinger.
type PoolPinger struct {
	Pool *pgxpool.Pool
}

func (p PoolPinger) Ping(ctx context.Context) error { return p.Pool.Ping(ctx) }

func (p PoolPinger) Stats() *PoolStats { return GetPoolStats(p.Pool) }

// GetPoolStats returns connection pool statistics.
func GetPoolStats(pool *pgxpool.Pool) *PoolStats {
	stat := pool.Stat()
	return &PoolStats{
		TotalConns:      stat.TotalConns(),
		IdleConns:       stat.IdleConns(),
		AcquiredConns:   stat.AcquiredConns(),
		MaxConns:        stat.MaxConns(),
		AcquireCount:    stat.AcquireCount(),
		AcquireDuration: stat.AcquireDuration().String(),
		Healthy:         stat.TotalConns() > 0,
	}
}

// HealthHandler returns a handler for the warehouse health check endpoint.
func HealthHandler(p Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		err := p.Ping(ctx)
		stats := p.Stats()

		if err != nil {
			stats.Healthy = false
			return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
				"status": "unhealthy",
				"error":  err.Error(),
				"pool":   stats,
			})
		}

		return c.JSON(http.StatusOK, map[string]interface{}{
			"status": "healthy",
			"pool":   stats,
		})
	}
}
