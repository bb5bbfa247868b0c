package http

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	phttp "driveon/internal/platform/http"
)

// LogoutHandler acknowledges a logout. Tokens are stateless, so the
// actual invalidation is the client discarding them; this endpoint exists
// so clients have a single hook and the event lands in the logs.
func LogoutHandler(m *Module) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if id, ok := c.Locals(phttp.LocalAccountID).(string); ok {
			m.log.Info("logout", zap.String("account_id", id))
		}
		return m.rsp.OK(c, fiber.StatusOK, fiber.Map{"message": "logged out"})
	}
}
