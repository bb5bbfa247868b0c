package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"driveon/internal/modules/auth/domain"
)

type verifyReq struct {
	EmailOrPhone string `json:"email_or_phone" validate:"required"`
	Code         string `json:"code" validate:"required,len=6,numeric"`
}

// VerifyHandler consumes a one-time code and mints the token pair. A
// wrong code and an expired code get the same message on purpose, so the
// endpoint leaks nothing about which identifiers or codes exist.
func VerifyHandler(m *Module) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req verifyReq
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
		otc, err := m.codes.Consume(ctx, id.Value, req.Code)
		if err != nil {
			if errors.Is(err, domain.ErrCodeInvalid) || errors.Is(err, domain.ErrCodeExpired) {
				return m.rsp.Fail(c, fiber.StatusBadRequest, "INVALID_OTP", "invalid or expired code", nil)
			}
			return m.rsp.Fail(c, fiber.StatusInternalServerError, "SERVER_ERROR", "verification failed", err)
		}

		acc, err := m.lookupByIdentifier(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return m.rsp.Fail(c, fiber.StatusNotFound, "NOT_FOUND", "no account for this identifier", nil)
			}
			return m.rsp.Fail(c, fiber.StatusInternalServerError, "SERVER_ERROR", "verification failed", err)
		}
		if !acc.Active {
			return m.rsp.Fail(c, fiber.StatusUnauthorized, "ACCOUNT_DISABLED", "account is disabled", nil)
		}

		// verification flag flips the moment the matching identifier's code
		// is consumed
		if id.Kind == domain.KindEmail {
			err = m.accounts.MarkEmailVerified(ctx, acc.ID)
			acc.EmailVerified = true
		} else {
			err = m.accounts.MarkPhoneVerified(ctx, acc.ID)
			acc.PhoneVerified = true
		}
		if err != nil {
			return m.rsp.Fail(c, fiber.StatusInternalServerError, "SERVER_ERROR", "verification failed", err)
		}

		pair, exp, err := m.jwtMgr.IssuePair(acc.ID, string(acc.Role))
		if err != nil {
			return m.rsp.Fail(c, fiber.StatusInternalServerError, "SERVER_ERROR", "verification failed", err)
		}

		m.log.Info("code verified",
			zap.String("account_id", acc.ID),
			zap.String("purpose", string(otc.Purpose)),
			zap.String("channel", string(otc.Channel)))

		return m.rsp.OK(c, fiber.StatusOK, fiber.Map{
			"access_token":  pair.AccessToken,
			"refresh_token": pair.RefreshToken,
			"expires_at":    exp.UTC(),
			"account":       accountSummary(acc),
		})
	}
}
