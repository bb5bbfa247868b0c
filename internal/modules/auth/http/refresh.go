package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"driveon/internal/modules/auth/domain"
)

type refreshReq struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshHandler exchanges a refresh token for a new access token. The
// refresh token itself is not rotated; it stays valid until its own
// expiry.
func RefreshHandler(m *Module) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req refreshReq
		if err := c.BodyParser(&req); err != nil {
			return m.rsp.Fail(c, fiber.StatusBadRequest, "INVALID_FIELDS", "malformed request body", err)
		}
		if err := validate.Struct(req); err != nil {
			return m.rsp.Fail(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "invalid request fields", err)
		}

		accountID, err := m.jwtMgr.ParseRefresh(req.RefreshToken)
		if err != nil {
			return m.rsp.Fail(c, fiber.StatusUnauthorized, "INVALID_REFRESH", "invalid or expired refresh token", nil)
		}

		acc, err := m.accounts.GetByID(c.UserContext(), accountID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return m.rsp.Fail(c, fiber.StatusUnauthorized, "INVALID_REFRESH", "invalid or expired refresh token", nil)
			}
			return m.rsp.Fail(c, fiber.StatusInternalServerError, "SERVER_ERROR", "refresh failed", err)
		}
		if !acc.Active {
			return m.rsp.Fail(c, fiber.StatusUnauthorized, "ACCOUNT_DISABLED", "account is disabled", nil)
		}

		access, exp, err := m.jwtMgr.IssueAccess(acc.ID, string(acc.Role))
		if err != nil {
			return m.rsp.Fail(c, fiber.StatusInternalServerError, "SERVER_ERROR", "refresh failed", err)
		}

		return m.rsp.OK(c, fiber.StatusOK, fiber.Map{
			"access_token": access,
			"expires_at":   exp.UTC(),
		})
	}
}
