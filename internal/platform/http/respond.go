package http

import "github.com/gofiber/fiber/v2"

// Responder writes the uniform response envelope. Internal error detail
// is only included outside production.
type Responder struct {
	production bool
}

func NewResponder(production bool) *Responder {
	return &Responder{production: production}
}

func (r *Responder) OK(c *fiber.Ctx, status int, data interface{}) error {
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

func (r *Responder) Fail(c *fiber.Ctx, status int, code, message string, err error) error {
	body := fiber.Map{
		"success":    false,
		"error_code": code,
		"message":    message,
	}
	if err != nil && !r.production {
		body["detail"] = err.Error()
	}
	return c.Status(status).JSON(body)
}
