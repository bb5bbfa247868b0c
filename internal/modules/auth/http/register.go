package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"driveon/internal/modules/auth/domain"
	"driveon/internal/platform/security"
)

type registerReq struct {
	Email        string `json:"email" validate:"required,email"`
	Phone        string `json:"phone" validate:"required"`
	Name         string `json:"name" validate:"omitempty,max=100"`
	ReferralCode string `json:"referral_code" validate:"omitempty,max=16"`
}

// RegisterHandler creates an unverified account and dispatches a
// registration code to the phone. Both email and phone are required and
// must be unclaimed; the conflict message says which one clashed.
func RegisterHandler(m *Module) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req registerReq
		if err := c.BodyParser(&req); err != nil {
			return m.rsp.Fail(c, fiber.StatusBadRequest, "INVALID_FIELDS", "malformed request body", err)
		}
		if err := validate.Struct(req); err != nil {
			return m.rsp.Fail(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "invalid request fields", err)
		}

		email, err := domain.ParseIdentifier(req.Email)
		if err != nil || email.Kind != domain.KindEmail {
			return m.rsp.Fail(c, fiber.StatusBadRequest, "INVALID_EMAIL", "invalid email address", err)
		}
		phone, err := domain.ParseIdentifier(req.Phone)
		if err != nil || phone.Kind != domain.KindPhone {
			return m.rsp.Fail(c, fiber.StatusBadRequest, "INVALID_PHONE", "invalid phone number", err)
		}

		ctx := c.UserContext()
		emailTaken, err := m.accounts.ExistsByEmail(ctx, email.Value)
		if err != nil {
			return m.rsp.Fail(c, fiber.StatusInternalServerError, "SERVER_ERROR", "registration failed", err)
		}
		phoneTaken, err := m.accounts.ExistsByPhone(ctx, phone.Value)
		if err != nil {
			return m.rsp.Fail(c, fiber.StatusInternalServerError, "SERVER_ERROR", "registration failed", err)
		}
		switch {
		case emailTaken && phoneTaken:
			return m.rsp.Fail(c, fiber.StatusConflict, "EMAIL_PHONE_TAKEN", "email and phone are already registered", nil)
		case emailTaken:
			return m.rsp.Fail(c, fiber.StatusConflict, "EMAIL_TAKEN", "email is already registered", nil)
		case phoneTaken:
			return m.rsp.Fail(c, fiber.StatusConflict, "PHONE_TAKEN", "phone is already registered", nil)
		}

		if err := m.allowSend(ctx, phone.Value, domain.PurposeRegister); err != nil {
			return m.rsp.Fail(c, fiber.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "too many requests, try again later", err)
		}

		// an unknown referral code is ignored, not an error
		var referredBy *string
		if req.ReferralCode != "" {
			if ref, err := m.accounts.GetByReferralCode(ctx, req.ReferralCode); err == nil {
				referredBy = &ref.ID
			}
		}

		referral, err := security.ReferralCode()
		if err != nil {
			return m.rsp.Fail(c, fiber.StatusInternalServerError, "SERVER_ERROR", "registration failed", err)
		}

		_, err = m.accounts.Create(ctx, domain.CreateAccountParams{
			Email:        email.Value,
			Phone:        phone.Value,
			Name:         req.Name,
			Role:         domain.RoleStandard,
			ReferralCode: referral,
			ReferredBy:   referredBy,
		})
		if err != nil {
			// lost a race with a concurrent registration
			if errors.Is(err, domain.ErrEmailTaken) {
				return m.rsp.Fail(c, fiber.StatusConflict, "EMAIL_TAKEN", "email is already registered", nil)
			}
			if errors.Is(err, domain.ErrPhoneTaken) {
				return m.rsp.Fail(c, fiber.StatusConflict, "PHONE_TAKEN", "phone is already registered", nil)
			}
			return m.rsp.Fail(c, fiber.StatusInternalServerError, "SERVER_ERROR", "registration failed", err)
		}

		if err := m.issueAndSend(ctx, phone, domain.PurposeRegister); err != nil {
			if errors.Is(err, domain.ErrDeliveryFailed) {
				return m.rsp.Fail(c, fiber.StatusServiceUnavailable, "DELIVERY_FAILED", "could not send verification code", err)
			}
			return m.rsp.Fail(c, fiber.StatusInternalServerError, "SERVER_ERROR", "registration failed", err)
		}

		return m.rsp.OK(c, fiber.StatusCreated, fiber.Map{
			"email":    email.Value,
			"phone":    phone.Value,
			"otp_sent": true,
		})
	}
}
