package handlers

import (
	"github.com/VanitasCaesar1/problemdetails/health"
	"github.com/VanitasCaesar1/problemdetails/models"
	"github.com/gofiber/fiber/v2"
)

type HealthHandler struct {
	checker *health.Checker
}

func NewHealthHandler(checker *health.Checker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

// Health runs every check; an unhealthy report answers 503.
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	report := h.checker.Run(c.UserContext())
	status := fiber.StatusOK
	if report.Status == models.Unhealthy {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(report)
}

func (h *HealthHandler) Ping(c *fiber.Ctx) error {
	return c.SendString("pong")
}
