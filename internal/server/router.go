// Package server exposes the HTTP surface: the Event Grid delivery endpoint
// plus health and metrics.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/facturave/receipt-ingest/internal/metrics"
	"github.com/facturave/receipt-ingest/internal/users"
)

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(logger *slog.Logger, events *EventHandler, pool *pgxpool.Pool) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		RequestID(),
		Logging(logger),
		Recovery(logger),
	)

	r.POST("/api/events", events.HandleEvents)
	r.GET("/healthz", healthHandler(logger, pool))
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{})))

	return r
}

// healthHandler reports liveness plus relational connectivity.
func healthHandler(logger *slog.Logger, pool *pgxpool.Pool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if pool != nil {
			if err := users.HealthCheck(c.Request.Context(), pool, 2*time.Second, logger); err != nil {
				logger.Warn("health.db_ping_failed", "error", err)
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "unreachable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
