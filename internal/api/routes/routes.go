package routes

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"

	"leadgen-pipeline/internal/api/handlers"
	apimiddleware "leadgen-pipeline/internal/api/middleware"
	"leadgen-pipeline/internal/broadcast"
	"leadgen-pipeline/internal/leadgen"
)

// SetupRoutes wires the lead-generation HTTP and WebSocket surface.
func SetupRoutes(e *echo.Echo, manager *leadgen.JobManager, hub *broadcast.Hub) {
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(apimiddleware.CORSConfig())
	e.Use(apimiddleware.RequestID())

	health := e.Group("/health")
	health.GET("", handlers.HealthHandler)
	health.GET("/ready", handlers.ReadinessHandler)

	jobs := e.Group("/jobs")
	jobs.POST("/:tenant", handlers.StartJobHandler(manager, hub))
	jobs.POST("/:tenant/stop", handlers.StopJobHandler(manager))
	jobs.GET("/:tenant", handlers.JobStatusHandler(manager))

	e.GET("/ws/:tenant", handlers.WebSocketHandler(hub))

	e.GET("/", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"service": "leadgen-pipeline",
			"status":  "running",
		})
	})
}
