package domain

import "errors"

var (
	// ErrCodeInvalid covers both a wrong code and an unknown identifier so
	// callers cannot probe which identifiers exist.
	ErrCodeInvalid = errors.New("code_invalid")
	ErrCodeExpired = errors.New("code_expired")

	ErrNotFound        = errors.New("not_found")
	ErrEmailTaken      = errors.New("email_taken")
	ErrPhoneTaken      = errors.New("phone_taken")
	ErrAccountDisabled = errors.New("account_disabled")

	ErrDeliveryFailed = errors.New("delivery_failed")
)
