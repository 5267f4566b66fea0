package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"leadgen-pipeline/pkg/models"
)

var startTime = time.Now()

// HealthHandler reports basic liveness.
func HealthHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, models.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Uptime:    time.Since(startTime),
		Checks:    map[string]string{"api": "ok"},
	})
}

// ReadinessHandler reports whether the service is ready to accept jobs.
func ReadinessHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, models.HealthResponse{
		Status:    "ready",
		Timestamp: time.Now(),
		Uptime:    time.Since(startTime),
		Checks:    map[string]string{"api": "ok", "leadgen": "ok"},
	})
}
