package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

const pingTimeout = 5 * time.Second

// PoolStats summarises the pgx pool for /health/db.
type PoolStats struct {
	TotalConns      int32  `json:"total_conns"`
	IdleConns       int32  `json:"idle_conns"`
	AcquiredConns   int32  `json:"acquired_conns"`
	MaxConns        int32  `json:"max_conns"`
	EmptyAcquires   int64  `json:"empty_acquires"`
	AcquireDuration string `json:"acquire_duration"`
	Healthy         bool   `json:"healthy"`
}

// Prober is the slice of a pool the health endpoint depends on.
type Prober interface {
	Ping(ctx context.Context) error
	Stats() PoolStats
}

// NewProber adapts a pgx pool to Prober.
func NewProber(pool *pgxpool.Pool) Prober {
	return pgxProber{pool}
}

type pgxProber struct{ pool *pgxpool.Pool }

func (p pgxProber) Ping(ctx context.Context) error { return p.pool.Ping(ctx) }

func (p pgxProber) Stats() PoolStats {
	s := p.pool.Stat()
	return PoolStats{
		TotalConns:      s.TotalConns(),
		IdleConns:       s.IdleConns(),
		AcquiredConns:   s.AcquiredConns(),
		MaxConns:        s.MaxConns(),
		EmptyAcquires:   s.EmptyAcquireCount(),
		AcquireDuration: s.AcquireDuration().String(),
		Healthy:         s.TotalConns() > 0,
	}
}

type healthReport struct {
	Status string    `json:"status"`
	Error  string    `json:"error,omitempty"`
	PingMS int64     `json:"ping_ms"`
	Pool   PoolStats `json:"pool"`
}

// HealthHandler serves GET /health/db: 200 when a ping succeeds within
// five seconds, 503 otherwise.
func HealthHandler(p Prober) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), pingTimeout)
		defer cancel()

		started := time.Now()
		err := p.Ping(ctx)
		report := healthReport{
			Status: "healthy",
			PingMS: time.Since(started).Milliseconds(),
			Pool:   p.Stats(),
		}
		if err != nil {
			report.Status = "unhealthy"
			report.Error = err.Error()
			report.Pool.Healthy = false
			return c.JSON(http.StatusServiceUnavailable, report)
		}
		return c.JSON(http.StatusOK, report)
	}
}
