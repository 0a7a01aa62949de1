package render

import (
	"inkalbum/internal/core/job"
	tasks "inkalbum/internal/platform/tasks"

	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	service *Service
	tasks   *tasks.Client
	jobs    *job.JobService
}

func NewHandler(service *Service, tasks *tasks.Client, jobs *job.JobService) *Handler {
	return &Handler{service: service, tasks: tasks, jobs: jobs}
}

type jobResponse struct {
	Success bool   `json:"success"`
	JobID   string `json:"job_id"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (h *Handler) HandleCreate(c *fiber.Ctx) error {
	var req Request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "invalid body"})
	}
	if req.Album == "" && req.PersonName == "" {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "album or person_name is required"})
	}

	if req.Sync {
		// Synchronous path: render inline and return the bitmap
		res, err := h.service.Render(c.Context(), "", req)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: err.Error()})
		}
		c.Set("Content-Type", "image/png")
		return c.Send(res.Data)
	}

	id, err := h.service.Enqueue(c.Context(), h.tasks, req)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: err.Error()})
	}
	return c.JSON(jobResponse{Success: true, JobID: id})
}

func (h *Handler) HandleGet(c *fiber.Ctx) error {
	jobID := c.Query("job_id")
	if jobID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "job_id is required"})
	}
	j, err := h.jobs.GetJobStatus(c.Context(), jobID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(errorResponse{Error: err.Error()})
	}
	return c.JSON(j)
}
