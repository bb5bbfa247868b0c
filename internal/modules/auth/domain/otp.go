package domain

import (
	"context"
	"time"
)

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelPhone Channel = "phone"
)

type Purpose string

const (
	PurposeRegister      Purpose = "register"
	PurposeLogin         Purpose = "login"
	PurposeResetPassword Purpose = "reset_password"
)

// OneTimeCode is immutable after issuance except for the single
// consumed_at transition. Expired and consumed records are terminal;
// a resend always inserts a fresh record.
type OneTimeCode struct {
	ID         string
	Identifier string
	Code       string
	Channel    Channel
	Purpose    Purpose
	ExpiresAt  time.Time
	ConsumedAt *time.Time
	CreatedAt  time.Time
}

func (c OneTimeCode) Consumed() bool { return c.ConsumedAt != nil }

type OTPRepo interface {
	// Issue inserts a fresh record. Prior unconsumed records for the same
	// identifier are left alone; Consume picks the newest match.
	Issue(ctx context.Context, c OneTimeCode) error

	// Consume selects the most recently created unconsumed record matching
	// identifier+code and marks it consumed, atomically. Returns
	// ErrCodeInvalid when nothing matches (wrong code and unknown
	// identifier are indistinguishable on purpose) and ErrCodeExpired when
	// the match is past its expiry; an expired record stays unconsumed so
	// a later resend is not blocked.
	Consume(ctx context.Context, identifier, code string) (*OneTimeCode, error)

	// DeleteExpired removes records past their expiry. Housekeeping only;
	// Consume checks expiry regardless.
	DeleteExpired(ctx context.Context) (int64, error)
}
