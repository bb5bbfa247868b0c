package http

import (
	"github.com/gofiber/fiber/v2"

	"driveon/internal/modules/auth/domain"
	phttp "driveon/internal/platform/http"
)

func ProfileHandler(m *Module) fiber.Handler {
	return func(c *fiber.Ctx) error {
		acc, ok := c.Locals(phttp.LocalAccount).(*domain.Account)
		if !ok {
			return m.rsp.Fail(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "authorization required", nil)
		}
		return m.rsp.OK(c, fiber.StatusOK, accountSummary(acc))
	}
}
