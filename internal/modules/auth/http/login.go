package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"driveon/internal/modules/auth/domain"
)

type loginReq struct {
	EmailOrPhone string `json:"email_or_phone" validate:"required"`
}

// LoginHandler sends a login code to an existing account. It never
// creates accounts; an unknown identifier is a plain not-found.
func LoginHandler(m *Module) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req loginReq
		if err := c.BodyParser(&req); err != nil {
			return m.rsp.Fail(c, fiber.StatusBadRequest, "INVALID_FIELDS", "malformed request body", err)
		}
		if err := validate.Struct(req); err != nil {
			return m.rsp.Fail(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "invalid request fields", err)
		}

		id, err := domain.ParseIdentifier(req.EmailOrPhone)
		if err != nil {
			return m.rsp.Fail(c, fiber.StatusBadRequest, "INVALID_IDENTIFIER", "provide a valid email or phone", err)
		}

		ctx := c.UserContext()
		acc, err := m.lookupByIdentifier(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return m.rsp.Fail(c, fiber.StatusNotFound, "NOT_FOUND", "no account for this identifier", nil)
			}
			return m.rsp.Fail(c, fiber.StatusInternalServerError, "SERVER_ERROR", "login failed", err)
		}
		if !acc.Active {
			return m.rsp.Fail(c, fiber.StatusUnauthorized, "ACCOUNT_DISABLED", "account is disabled", nil)
		}

		if err := m.allowSend(ctx, id.Value, domain.PurposeLogin); err != nil {
			return m.rsp.Fail(c, fiber.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "too many requests, try again later", err)
		}

		if err := m.issueAndSend(ctx, id, domain.PurposeLogin); err != nil {
			if errors.Is(err, domain.ErrDeliveryFailed) {
				return m.rsp.Fail(c, fiber.StatusServiceUnavailable, "DELIVERY_FAILED", "could not send login code", err)
			}
			return m.rsp.Fail(c, fiber.StatusInternalServerError, "SERVER_ERROR", "login failed", err)
		}

		data := fiber.Map{"otp_sent": true}
		if id.Kind == domain.KindEmail {
			data["email"] = id.Value
		} else {
			data["phone"] = id.Value
		}
		return m.rsp.OK(c, fiber.StatusOK, data)
	}
}
