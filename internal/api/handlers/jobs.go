package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"leadgen-pipeline/internal/broadcast"
	"leadgen-pipeline/internal/leadgen"
	"leadgen-pipeline/pkg/models"
	"leadgen-pipeline/pkg/utils"
)

var validate = validator.New()

// StartJobHandler handles POST /jobs/:tenant.
func StartJobHandler(manager *leadgen.JobManager, hub *broadcast.Hub) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := utils.GenerateRequestID()
		tenantID := c.Param("tenant")

		// EmailValidation and UsePuppeteer default to true; Bind overwrites
		// them only when the request body sets them.
		cfg := leadgen.JobConfig{EmailValidation: true, UsePuppeteer: true}
		if err := c.Bind(&cfg); err != nil {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error: "invalid_request", Message: err.Error(), RequestID: requestID, Timestamp: time.Now(),
			})
		}
		if err := validate.Struct(&cfg); err != nil {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error: "validation_failed", Message: err.Error(), RequestID: requestID, Timestamp: time.Now(),
			})
		}

		sessionID, err := manager.Start(c.Request().Context(), tenantID, cfg, hub)
		if err != nil {
			status := http.StatusInternalServerError
			switch {
			case errors.Is(err, leadgen.ErrJobAlreadyRunning):
				status = http.StatusConflict
			case errors.Is(err, leadgen.ErrNoQueries), errors.Is(err, leadgen.ErrUnknownUseCase):
				status = http.StatusUnprocessableEntity
			}
			return c.JSON(status, models.ErrorResponse{
				Error: "job_start_failed", Message: err.Error(), RequestID: requestID, Timestamp: time.Now(),
			})
		}

		return c.JSON(http.StatusAccepted, models.StartJobResponse{SessionID: sessionID})
	}
}

// StopJobHandler handles POST /jobs/:tenant/stop.
func StopJobHandler(manager *leadgen.JobManager) echo.HandlerFunc {
	return func(c echo.Context) error {
		tenantID := c.Param("tenant")
		if !manager.Stop(tenantID) {
			return c.JSON(http.StatusNotFound, models.ErrorResponse{
				Error:     "no_running_job",
				Message:   "no job is currently running for this tenant",
				RequestID: utils.GenerateRequestID(),
				Timestamp: time.Now(),
			})
		}
		return c.NoContent(http.StatusAccepted)
	}
}

// JobStatusHandler handles GET /jobs/:tenant.
func JobStatusHandler(manager *leadgen.JobManager) echo.HandlerFunc {
	return func(c echo.Context) error {
		tenantID := c.Param("tenant")
		running, sessionID := manager.Status(tenantID)
		return c.JSON(http.StatusOK, models.JobStatusResponse{Running: running, SessionID: sessionID})
	}
}

// WebSocketHandler handles GET /ws/:tenant, streaming progress events for
// the tenant's running job.
func WebSocketHandler(hub *broadcast.Hub) echo.HandlerFunc {
	return func(c echo.Context) error {
		hub.ServeWS(c.Response(), c.Request(), c.Param("tenant"))
		return nil
	}
}
