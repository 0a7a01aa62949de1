package server

import (
	"inkalbum/internal/core/job"
	"inkalbum/internal/core/render"
	"inkalbum/internal/health"
	"inkalbum/internal/platform/redis"
	tasks "inkalbum/internal/platform/tasks"

	"github.com/gofiber/fiber/v2"
)

type Dependencies struct {
	Job    *job.JobService
	Render *render.Service
	Tasks  *tasks.Client
	Redis  *redis.Service
}

func RegisterRoutes(app *fiber.App, d Dependencies) *health.HealthHandler {
	// Health endpoints
	healthHandler := health.NewHealthHandler(d.Redis)
	app.Get("/v1/health", health.HealthLimiter(), healthHandler.HandleHealth)

	api := app.Group("/v1")

	renderHandler := render.NewHandler(d.Render, d.Tasks, d.Job)
	api.Post("/render", renderHandler.HandleCreate)
	api.Get("/render", renderHandler.HandleGet)

	return healthHandler
}
