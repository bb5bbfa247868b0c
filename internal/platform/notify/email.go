package notify

import (
	"context"

	"go.uber.org/zap"
)

// EmailLogger is the email channel. Actual email dispatch is not
// implemented: the code is logged for manual use. A stub, not a silent
// drop; wire a real mailer here when an email provider is chosen.
type EmailLogger struct {
	log *zap.Logger
}

func NewEmailLogger(log *zap.Logger) *EmailLogger {
	return &EmailLogger{log: log}
}

func (e *EmailLogger) Send(ctx context.Context, email, code string) (SendResult, error) {
	e.log.Info("email dispatch not implemented, code logged",
		zap.String("email", email),
		zap.String("code", code))
	return SendResult{Status: "skipped"}, nil
}
