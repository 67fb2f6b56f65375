package handler

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// slowThreshold marks the health check itself as slow.
const slowThreshold = 1000 * time.Millisecond

// HealthHandler probes downstream infrastructure and reports aggregate
// liveness. It talks to the database and redis directly, bypassing the
// repositories: the probes are about connectivity, not business state.
type HealthHandler struct {
	DB      *sql.DB
	RDB     *redis.Client // may be nil when redis is unavailable
	Version string
}

func NewHealthHandler(db *sql.DB, rdb *redis.Client, version string) *HealthHandler {
	return &HealthHandler{DB: db, RDB: rdb, Version: version}
}

type checkResult struct {
	Status  string `json:"status"` // ok | warning | error
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// Check handles GET /health/. Overall status is unhealthy only when the
// database probe fails; any other non-ok check degrades. HTTP mirrors the
// outcome: 200 for healthy/degraded, 503 for unhealthy.
func (h *HealthHandler) Check(c echo.Context) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	checks := map[string]checkResult{}

	// Database: trivial round-trip query.
	var one int
	if err := h.DB.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		checks["database"] = checkResult{Status: "error", Message: "database connection failed"}
		c.Logger().Errorf("health: database check failed: %v", err)
	} else {
		checks["database"] = checkResult{Status: "ok", Message: "database connection successful"}
	}

	// Cache: write a sentinel, read it back.
	checks["cache"] = h.cacheProbe(ctx)

	// Response time of the probes themselves.
	elapsed := time.Since(start)
	timing := checkResult{
		Status:  "ok",
		Message: "response time acceptable",
		Value:   fmt.Sprintf("%.2fms", float64(elapsed.Microseconds())/1000),
	}
	if elapsed > slowThreshold {
		timing.Status = "warning"
		timing.Message = "response time slow"
	}
	checks["response_time"] = timing

	overall := "healthy"
	switch {
	case checks["database"].Status == "error":
		overall = "unhealthy"
	default:
		for _, chk := range checks {
			if chk.Status != "ok" {
				overall = "degraded"
				break
			}
		}
	}

	status := http.StatusOK
	if overall == "unhealthy" {
		status = http.StatusServiceUnavailable
	}
	c.Logger().Infof("health check: %s in %s", overall, elapsed)

	return c.JSON(status, echo.Map{
		"status":    overall,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   h.Version,
		"checks":    checks,
	})
}

func (h *HealthHandler) cacheProbe(ctx context.Context) checkResult {
	if h.RDB == nil {
		return checkResult{Status: "error", Message: "cache not configured"}
	}
	const key = "health_check_test"
	if err := h.RDB.Set(ctx, key, "test_value", 30*time.Second).Err(); err != nil {
		return checkResult{Status: "error", Message: "cache write failed"}
	}
	val, err := h.RDB.Get(ctx, key).Result()
	if err != nil || val != "test_value" {
		return checkResult{Status: "warning", Message: "cache test failed"}
	}
	return checkResult{Status: "ok", Message: "cache is working"}
}

// Ping handles GET /ping/: liveness only, no dependency checks. Cheap enough
// for aggressive external monitors.
func (h *HealthHandler) Ping(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"mensaje":   "API is alive",
	})
}
