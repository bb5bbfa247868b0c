package http

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"driveon/internal/modules/auth/domain"
	"driveon/internal/platform/security"
)

// Locals keys set by SessionAuth for downstream handlers.
const (
	LocalAccountID = "account_id"
	LocalAccount   = "account"
)

// SessionAuth gates protected routes on a bearer access token. An expired
// token is rejected with TOKEN_EXPIRED, every other verification failure
// with INVALID_TOKEN; clients only attempt a silent refresh on the
// former. The account is re-read on every request, so a deactivated or
// deleted account is locked out within one access-token lifetime.
func SessionAuth(jwtMgr *security.JWTManager, accounts domain.AccountRepo, rsp *Responder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		h := c.Get("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			return rsp.Fail(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "authorization required", nil)
		}

		accountID, _, err := jwtMgr.ParseAccess(strings.TrimPrefix(h, "Bearer "))
		if err != nil {
			if errors.Is(err, security.ErrTokenExpired) {
				return rsp.Fail(c, fiber.StatusUnauthorized, "TOKEN_EXPIRED", "access token expired", nil)
			}
			return rsp.Fail(c, fiber.StatusUnauthorized, "INVALID_TOKEN", "invalid access token", nil)
		}

		acc, err := accounts.GetByID(c.UserContext(), accountID)
		if err != nil || acc == nil {
			return rsp.Fail(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "account not found", nil)
		}
		if !acc.Active {
			return rsp.Fail(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "account disabled", nil)
		}

		c.Locals(LocalAccountID, acc.ID)
		c.Locals(LocalAccount, acc)
		return c.Next()
	}
}
