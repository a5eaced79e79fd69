package handler

import (
	"net/url"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"dailypages/internal/service"
)

type subscribeRequest struct {
	Email      string `json:"email"`
	DocumentID string `json:"document_id"`
	PageLength int    `json:"page_length"`
}

type setActiveRequest struct {
	Active *bool `json:"active"`
}

// Subscribe handles POST /subscriptions. It answers 201 when a subscription was created and
// 200 when the reader already had one for the document.
func Subscribe(svc service.SubscriptionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req subscribeRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		if _, err := uuid.Parse(req.DocumentID); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid document id format")
		}

		res, err := svc.Subscribe(c.UserContext(), req.Email, req.DocumentID, req.PageLength)
		if err != nil {
			return writeServiceError(c, err)
		}
		status := fiber.StatusOK
		if res.Created {
			status = fiber.StatusCreated
		}
		return c.Status(status).JSON(res)
	}
}

// SetSubscriptionActive handles PATCH /subscriptions/:id with {"active": bool}.
func SetSubscriptionActive(svc service.SubscriptionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		var req setActiveRequest
		if err := c.BodyParser(&req); err != nil || req.Active == nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "active is required")
		}

		sub, err := svc.SetActive(c.UserContext(), id, *req.Active)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(sub)
	}
}

// ListDeliveries handles GET /subscriptions/:id/deliveries?limit=.
func ListDeliveries(svc service.SubscriptionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		limit, err := strconv.Atoi(c.Query("limit", "20"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}

		items, err := svc.Deliveries(c.UserContext(), id, limit)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{"data": items})
	}
}

// ReaderSubscriptions handles GET /readers/:email/subscriptions.
func ReaderSubscriptions(svc service.SubscriptionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		email, err := url.PathUnescape(c.Params("email"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_EMAIL", "invalid email address")
		}

		res, err := svc.ListByReader(c.UserContext(), email)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}
