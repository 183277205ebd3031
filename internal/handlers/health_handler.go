package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"expense-tracker/internal/errors"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheckHandler reports liveness together with database connectivity
type HealthCheckHandler struct {
	ping    func(ctx context.Context) error
	started time.Time
}

func NewHealthCheckHandler(db *gorm.DB) *HealthCheckHandler {
	return &HealthCheckHandler{
		ping: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return fmt.Errorf("failed to get sql.DB: %w", err)
			}
			return sqlDB.PingContext(ctx)
		},
		started: time.Now(),
	}
}

// HealthCheck
// @Summary Health check
// @Tags Health
// @Produce json
// @Success 200 {object} object{status=string,database=string,uptime=string,time=string}
// @Failure 503 {object} errors.ErrorResponse "SYSTEM_003"
// @Router /health [get]
func (h *HealthCheckHandler) HealthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthCheckTimeout)
	defer cancel()

	if err := h.ping(ctx); err != nil {
		return SendError(c, errors.SystemServiceUnavailable, errors.WithDetails("database: unreachable"))
	}

	now := time.Now()
	return c.JSON(http.StatusOK, map[string]string{
		"status":   "healthy",
		"database": "up",
		"uptime":   now.Sub(h.started).Truncate(time.Second).String(),
		"time":     now.UTC().Format(time.RFC3339),
	})
}
