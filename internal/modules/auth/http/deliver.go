package http

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"driveon/internal/modules/auth/domain"
	"driveon/internal/platform/config"
)

// issueAndSend generates a code, persists the record, then dispatches it
// over the identifier's channel. The record deliberately survives a
// failed dispatch; a resend just issues another code.
func (m *Module) issueAndSend(ctx context.Context, id domain.Identifier, purpose domain.Purpose) error {
	code, expiresAt, err := m.gen.Generate(id.Value)
	if err != nil {
		return err
	}
	otc := domain.OneTimeCode{
		Identifier: id.Value,
		Code:       code,
		Channel:    id.Channel(),
		Purpose:    purpose,
		ExpiresAt:  expiresAt,
	}
	if err := m.codes.Issue(ctx, otc); err != nil {
		return err
	}
	return m.deliver(ctx, id, code)
}

func (m *Module) deliver(ctx context.Context, id domain.Identifier, code string) error {
	sender := m.sms
	if id.Kind == domain.KindEmail {
		sender = m.email
	}
	res, err := sender.Send(ctx, id.Value, code)
	if err != nil {
		if m.policy == config.DeliveryLenient {
			m.log.Warn("code delivery failed, continuing under lenient policy",
				zap.String("identifier", id.Value),
				zap.String("code", code),
				zap.Error(err))
			return nil
		}
		return fmt.Errorf("%w: %v", domain.ErrDeliveryFailed, err)
	}
	if res.IsTest {
		m.log.Info("code issued for test identifier", zap.String("identifier", id.Value))
	}
	return nil
}

func (m *Module) lookupByIdentifier(ctx context.Context, id domain.Identifier) (*domain.Account, error) {
	if id.Kind == domain.KindEmail {
		return m.accounts.GetByEmail(ctx, id.Value)
	}
	return m.accounts.GetByPhone(ctx, id.Value)
}

// allowSend consults the resend limiter when one is configured.
func (m *Module) allowSend(ctx context.Context, identifier string, purpose domain.Purpose) error {
	if m.limiter == nil {
		return nil
	}
	return m.limiter.Allow(ctx, identifier, string(purpose))
}
