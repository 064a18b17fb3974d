package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"criteria-analyzer/internal/adapter/clickhouse"
	"criteria-analyzer/internal/domain"
)

const probeTimeout = 5 * time.Second

// HealthHandler reports liveness of the worker's backing services.
type HealthHandler struct {
	pool   *pgxpool.Pool
	events *clickhouse.EventSink
	redis  *redis.Client
	llm    domain.LLMClient
}

func NewHealthHandler(pool *pgxpool.Pool, events *clickhouse.EventSink, redisClient *redis.Client, llm domain.LLMClient) *HealthHandler {
	return &HealthHandler{
		pool:   pool,
		events: events,
		redis:  redisClient,
		llm:    llm,
	}
}

// Register mounts the health routes on the echo instance.
func (h *HealthHandler) Register(e *echo.Echo) {
	e.GET("/", h.Root)
	e.GET("/health", h.Health)
}

func (h *HealthHandler) Root(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]string{
		"service": "criteria-analyzer",
		"status":  "running",
	})
}

func (h *HealthHandler) Health(ctx echo.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx.Request().Context(), probeTimeout)
	defer cancel()

	checks := map[string]string{
		"postgres":   probe(h.pool.Ping(probeCtx)),
		"clickhouse": probe(h.events.Ping(probeCtx)),
		"redis":      probe(h.redis.Ping(probeCtx).Err()),
	}
	if h.llm.HealthCheck(probeCtx) {
		checks["llm"] = "ok"
	} else {
		checks["llm"] = "unavailable"
	}

	status := http.StatusOK
	overall := "healthy"
	for _, v := range checks {
		if v != "ok" {
			status = http.StatusServiceUnavailable
			overall = "degraded"
			break
		}
	}

	return ctx.JSON(status, map[string]any{
		"status": overall,
		"checks": checks,
	})
}

func probe(err error) string {
	if err != nil {
		return err.Error()
	}
	return "ok"
}
