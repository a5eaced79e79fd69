package handler

import (
	"github.com/gofiber/fiber/v2"

	"dailypages/internal/service"
)

type triggerRequest struct {
	// Email is a reader address or "ALL".
	Email      string `json:"email"`
	DocumentID string `json:"document_id"`
}

// TriggerDelivery handles POST /deliveries: an on-demand pass whose report is returned once
// the pass has finished.
func TriggerDelivery(svc service.DeliveryService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req triggerRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		if req.Email == "" {
			return writeError(c, fiber.StatusBadRequest, "INVALID_EMAIL", "email is required")
		}

		report, err := svc.Trigger(c.UserContext(), req.Email, req.DocumentID)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(report)
	}
}
