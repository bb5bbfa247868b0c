package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"driveon/internal/modules/auth/domain"
)

type resendReq struct {
	EmailOrPhone string `json:"email_or_phone" validate:"required"`
	Purpose      string `json:"purpose" validate:"omitempty,oneof=register login reset_password"`
}

// ResendHandler issues a fresh code for an existing account. The previous
// code is not touched; verification picks the newest match.
func ResendHandler(m *Module) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req resendReq
		if err := c.BodyParser(&req); err != nil {
			return m.rsp.Fail(c, fiber.StatusBadRequest, "INVALID_FIELDS", "malformed request body", err)
		}
		if err := validate.Struct(req); err != nil {
			return m.rsp.Fail(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "invalid request fields", err)
		}

		purpose := domain.Purpose(req.Purpose)
		if purpose == "" {
			purpose = domain.PurposeLogin
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
			return m.rsp.Fail(c, fiber.StatusInternalServerError, "SERVER_ERROR", "resend failed", err)
		}
		if !acc.Active {
			return m.rsp.Fail(c, fiber.StatusUnauthorized, "ACCOUNT_DISABLED", "account is disabled", nil)
		}

		if err := m.allowSend(ctx, id.Value, purpose); err != nil {
			return m.rsp.Fail(c, fiber.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "too many requests, try again later", err)
		}

		if err := m.issueAndSend(ctx, id, purpose); err != nil {
			if errors.Is(err, domain.ErrDeliveryFailed) {
				return m.rsp.Fail(c, fiber.StatusServiceUnavailable, "DELIVERY_FAILED", "could not send code", err)
			}
			return m.rsp.Fail(c, fiber.StatusInternalServerError, "SERVER_ERROR", "resend failed", err)
		}

		return m.rsp.OK(c, fiber.StatusOK, fiber.Map{"otp_sent": true})
	}
}
